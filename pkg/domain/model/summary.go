package model

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/m-mizutani/goerr/v2"
)

// PatientDetails holds demographic fields of a summary. An empty string means absent.
type PatientDetails struct {
	Name          string `json:"name" masq:"secret"`
	Age           string `json:"age"`
	Gender        string `json:"gender"`
	MaritalStatus string `json:"marital_status"`
	Residence     string `json:"residence" masq:"secret"`
}

// IsEmpty reports whether every field is blank
func (p PatientDetails) IsEmpty() bool {
	return blank(p.Name) && blank(p.Age) && blank(p.Gender) && blank(p.MaritalStatus) && blank(p.Residence)
}

// ComplaintDetail describes one chief complaint
type ComplaintDetail struct {
	Complaint string `json:"complaint"`
	Location  string `json:"location,omitempty"`
	Severity  string `json:"severity,omitempty"`
	Duration  string `json:"duration,omitempty"`
}

// LifestyleHabit describes one lifestyle entry
type LifestyleHabit struct {
	Habit     string `json:"habit"`
	Frequency string `json:"frequency,omitempty"`
	Duration  string `json:"duration,omitempty"`
}

// Summary is the fixed-shape structured extraction of a note
type Summary struct {
	PatientDetails        PatientDetails    `json:"patient_details"`
	Allergies             []string          `json:"allergies"`
	ChiefComplaints       []string          `json:"chief_complaints"`
	ChiefComplaintDetails []ComplaintDetail `json:"chief_complaint_details"`
	Symptoms              []string          `json:"symptoms"`
	PastHistory           []string          `json:"past_history"`
	ChronicDiseases       []string          `json:"chronic_diseases"`
	Lifestyle             []LifestyleHabit  `json:"lifestyle"`
	DrugHistory           []string          `json:"drug_history"`
	FamilyHistory         []string          `json:"family_history"`
	PossibleDiseases      []string          `json:"possible_diseases"`
}

// Prepare returns a normalized copy of s in which every slot is present.
// A nil summary yields an empty, fully populated one.
func Prepare(s *Summary) *Summary {
	if s == nil {
		s = &Summary{}
	}
	return &Summary{
		PatientDetails:        s.PatientDetails,
		Allergies:             cloneSlice(s.Allergies),
		ChiefComplaints:       cloneSlice(s.ChiefComplaints),
		ChiefComplaintDetails: cloneSlice(s.ChiefComplaintDetails),
		Symptoms:              cloneSlice(s.Symptoms),
		PastHistory:           cloneSlice(s.PastHistory),
		ChronicDiseases:       cloneSlice(s.ChronicDiseases),
		Lifestyle:             cloneSlice(s.Lifestyle),
		DrugHistory:           cloneSlice(s.DrugHistory),
		FamilyHistory:         cloneSlice(s.FamilyHistory),
		PossibleDiseases:      cloneSlice(s.PossibleDiseases),
	}
}

// Clone returns a deep copy. Unlike Prepare, nil slots stay nil.
func (s *Summary) Clone() *Summary {
	if s == nil {
		return nil
	}
	return &Summary{
		PatientDetails:        s.PatientDetails,
		Allergies:             cloneSliceOrNil(s.Allergies),
		ChiefComplaints:       cloneSliceOrNil(s.ChiefComplaints),
		ChiefComplaintDetails: cloneSliceOrNil(s.ChiefComplaintDetails),
		Symptoms:              cloneSliceOrNil(s.Symptoms),
		PastHistory:           cloneSliceOrNil(s.PastHistory),
		ChronicDiseases:       cloneSliceOrNil(s.ChronicDiseases),
		Lifestyle:             cloneSliceOrNil(s.Lifestyle),
		DrugHistory:           cloneSliceOrNil(s.DrugHistory),
		FamilyHistory:         cloneSliceOrNil(s.FamilyHistory),
		PossibleDiseases:      cloneSliceOrNil(s.PossibleDiseases),
	}
}

// IsEmpty reports whether the summary carries no value in any slot
func (s *Summary) IsEmpty() bool {
	if s == nil {
		return true
	}
	return s.PatientDetails.IsEmpty() &&
		len(s.Allergies) == 0 &&
		len(s.ChiefComplaints) == 0 &&
		len(s.ChiefComplaintDetails) == 0 &&
		len(s.Symptoms) == 0 &&
		len(s.PastHistory) == 0 &&
		len(s.ChronicDiseases) == 0 &&
		len(s.Lifestyle) == 0 &&
		len(s.DrugHistory) == 0 &&
		len(s.FamilyHistory) == 0 &&
		len(s.PossibleDiseases) == 0
}

// ParseSummary decodes a summary that the backend may send either as an object
// or as a JSON-encoded string. null yields nil.
func ParseSummary(raw json.RawMessage) (*Summary, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}

	if raw[0] == '"' {
		var inner string
		if err := json.Unmarshal(raw, &inner); err != nil {
			return nil, goerr.Wrap(ErrInvalidSummary, "failed to decode summary string")
		}
		inner = strings.TrimSpace(inner)
		if inner == "" {
			return nil, nil
		}
		raw = json.RawMessage(inner)
	}

	var s Summary
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, goerr.Wrap(ErrInvalidSummary, "failed to decode summary", goerr.V("error", err.Error()))
	}
	return &s, nil
}

// UnmarshalJSON decodes a summary tolerantly: numbers become text, a single
// string becomes a one-element list, and null slots are left empty.
func (s *Summary) UnmarshalJSON(data []byte) error {
	var raw struct {
		PatientDetails        PatientDetails        `json:"patient_details"`
		Allergies             textList              `json:"allergies"`
		ChiefComplaints       textList              `json:"chief_complaints"`
		ChiefComplaintDetails []flexComplaintDetail `json:"chief_complaint_details"`
		Symptoms              textList              `json:"symptoms"`
		PastHistory           textList              `json:"past_history"`
		ChronicDiseases       textList              `json:"chronic_diseases"`
		Lifestyle             []flexLifestyleHabit  `json:"lifestyle"`
		DrugHistory           textList              `json:"drug_history"`
		FamilyHistory         textList              `json:"family_history"`
		PossibleDiseases      textList              `json:"possible_diseases"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*s = Summary{
		PatientDetails:   raw.PatientDetails,
		Allergies:        raw.Allergies,
		ChiefComplaints:  raw.ChiefComplaints,
		Symptoms:         raw.Symptoms,
		PastHistory:      raw.PastHistory,
		ChronicDiseases:  raw.ChronicDiseases,
		DrugHistory:      raw.DrugHistory,
		FamilyHistory:    raw.FamilyHistory,
		PossibleDiseases: raw.PossibleDiseases,
	}
	for _, d := range raw.ChiefComplaintDetails {
		s.ChiefComplaintDetails = append(s.ChiefComplaintDetails, ComplaintDetail{
			Complaint: string(d.Complaint),
			Location:  string(d.Location),
			Severity:  string(d.Severity),
			Duration:  string(d.Duration),
		})
	}
	for _, h := range raw.Lifestyle {
		s.Lifestyle = append(s.Lifestyle, LifestyleHabit{
			Habit:     string(h.Habit),
			Frequency: string(h.Frequency),
			Duration:  string(h.Duration),
		})
	}
	return nil
}

// UnmarshalJSON accepts numeric and null demographic values
func (p *PatientDetails) UnmarshalJSON(data []byte) error {
	var raw struct {
		Name          flexString `json:"name"`
		Age           flexString `json:"age"`
		Gender        flexString `json:"gender"`
		MaritalStatus flexString `json:"marital_status"`
		Residence     flexString `json:"residence"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*p = PatientDetails{
		Name:          string(raw.Name),
		Age:           string(raw.Age),
		Gender:        string(raw.Gender),
		MaritalStatus: string(raw.MaritalStatus),
		Residence:     string(raw.Residence),
	}
	return nil
}

type flexComplaintDetail struct {
	Complaint flexString `json:"complaint"`
	Location  flexString `json:"location"`
	Severity  flexString `json:"severity"`
	Duration  flexString `json:"duration"`
}

type flexLifestyleHabit struct {
	Habit     flexString `json:"habit"`
	Frequency flexString `json:"frequency"`
	Duration  flexString `json:"duration"`
}

// flexString decodes strings, numbers and booleans as text, and null as empty
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(strings.TrimSpace(s))
		return nil
	}
	if data[0] == '{' || data[0] == '[' {
		return goerr.New("expected a scalar value", goerr.V("value", string(data)))
	}
	*f = flexString(data)
	return nil
}

// textList decodes a list of scalars, or a single scalar, into strings. Blank entries are dropped.
type textList []string

func (l *textList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*l = nil
		return nil
	}

	if data[0] != '[' {
		var single flexString
		if err := json.Unmarshal(data, &single); err != nil {
			return err
		}
		if single != "" {
			*l = textList{string(single)}
		}
		return nil
	}

	var items []flexString
	if err := json.Unmarshal(data, &items); err != nil {
		return err
	}
	result := make(textList, 0, len(items))
	for _, item := range items {
		if item == "" {
			continue
		}
		result = append(result, string(item))
	}
	*l = result
	return nil
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}

func cloneSlice[T any](src []T) []T {
	dst := make([]T, len(src))
	copy(dst, src)
	return dst
}

func cloneSliceOrNil[T any](src []T) []T {
	if src == nil {
		return nil
	}
	return cloneSlice(src)
}
