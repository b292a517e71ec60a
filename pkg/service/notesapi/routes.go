package notesapi

// Routes are the backend paths of each operation, relative to the base URL
type Routes struct {
	SaveNote            string `toml:"save_note"`
	GetNotes            string `toml:"get_notes"`
	SaveEditedNote      string `toml:"save_edited_note"`
	SaveEditedSummary   string `toml:"save_edited_summary"`
	DeleteNote          string `toml:"delete_note"`
	UploadAudio         string `toml:"upload_audio"`
	GenerateFollowUp    string `toml:"generate_follow_up"`
	GetFollowUp         string `toml:"get_follow_up"`
	FindPreviousHistory string `toml:"find_previous_patient_history"`
	AnalyzeEfficacy     string `toml:"analyze_treatment_efficacy"`
}

// DefaultRoutes returns the routes served by the reference backend
func DefaultRoutes() Routes {
	return Routes{
		SaveNote:            "/save_note",
		GetNotes:            "/get_notes",
		SaveEditedNote:      "/save_edited_note",
		SaveEditedSummary:   "/save_edited_summary",
		DeleteNote:          "/delete_note",
		UploadAudio:         "/upload_audio",
		GenerateFollowUp:    "/generate_follow_up",
		GetFollowUp:         "/get_follow_up",
		FindPreviousHistory: "/find_previous_patient_history",
		AnalyzeEfficacy:     "/analyze_treatment_efficacy",
	}
}

// merge fills empty routes from base
func (r Routes) merge(base Routes) Routes {
	pick := func(v, def string) string {
		if v == "" {
			return def
		}
		return v
	}
	return Routes{
		SaveNote:            pick(r.SaveNote, base.SaveNote),
		GetNotes:            pick(r.GetNotes, base.GetNotes),
		SaveEditedNote:      pick(r.SaveEditedNote, base.SaveEditedNote),
		SaveEditedSummary:   pick(r.SaveEditedSummary, base.SaveEditedSummary),
		DeleteNote:          pick(r.DeleteNote, base.DeleteNote),
		UploadAudio:         pick(r.UploadAudio, base.UploadAudio),
		GenerateFollowUp:    pick(r.GenerateFollowUp, base.GenerateFollowUp),
		GetFollowUp:         pick(r.GetFollowUp, base.GetFollowUp),
		FindPreviousHistory: pick(r.FindPreviousHistory, base.FindPreviousHistory),
		AnalyzeEfficacy:     pick(r.AnalyzeEfficacy, base.AnalyzeEfficacy),
	}
}
