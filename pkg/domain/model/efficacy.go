package model

// EfficacyEvidence is a transcript excerpt supporting a treatment correlation
type EfficacyEvidence struct {
	Type    string `json:"type"`
	Symptom string `json:"symptom"`
	Text    string `json:"text" masq:"secret"`
}

// TreatmentEffectiveness aggregates symptom changes observed while a treatment was taken
type TreatmentEffectiveness struct {
	Positive           int                `json:"positive"`
	Negative           int                `json:"negative"`
	SymptomsImproved   []string           `json:"symptoms_improved"`
	SymptomsWorsened   []string           `json:"symptoms_worsened"`
	LatestDosage       string             `json:"latest_dosage,omitempty"`
	EffectivenessScore float64            `json:"effectiveness_score"`
	Evidence           []EfficacyEvidence `json:"evidence"`
}

// SymptomChange is one observed change between two visits
type SymptomChange struct {
	Symptom     string   `json:"symptom"`
	Change      string   `json:"change"`
	FromDate    string   `json:"from_date"`
	ToDate      string   `json:"to_date"`
	Treatments  []string `json:"treatments"`
	Correlation string   `json:"correlation"`
	Evidence    string   `json:"evidence,omitempty" masq:"secret"`
}

// TreatmentEfficacyAnalysis is the backend's cross-visit correlation of treatments and symptoms
type TreatmentEfficacyAnalysis struct {
	PatientName            string                            `json:"patient_name" masq:"secret"`
	AnalysisDate           string                            `json:"analysis_date"`
	TreatmentEffectiveness map[string]TreatmentEffectiveness `json:"treatment_effectiveness"`
	DetailedAnalysis       []SymptomChange                   `json:"detailed_analysis"`
}
