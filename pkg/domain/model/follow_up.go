package model

import (
	"strings"

	"github.com/secmon-lab/medinotes/pkg/domain/types"
)

// ActionItem is one generated follow-up action
type ActionItem struct {
	Action   string         `json:"action"`
	Context  string         `json:"context,omitempty"`
	Priority types.Priority `json:"priority"`
	Category string         `json:"category,omitempty"`
}

// FollowUpActionSet is the generated post-visit action plan of a note
type FollowUpActionSet struct {
	NoteID         NoteID             `json:"note_id,omitempty"`
	FollowUpDate   string             `json:"follow_up_date,omitempty"`
	UrgencyLevel   types.UrgencyLevel `json:"urgency_level"`
	PatientActions []ActionItem       `json:"patient_actions"`
	DoctorActions  []ActionItem       `json:"doctor_actions"`
	GeneratedAt    string             `json:"generated_at,omitempty"`
}

// Normalize fixes unknown enum values and drops blank actions in place
func (f *FollowUpActionSet) Normalize() *FollowUpActionSet {
	if f == nil {
		return nil
	}
	f.UrgencyLevel = f.UrgencyLevel.Normalize()
	f.PatientActions = normalizeActions(f.PatientActions)
	f.DoctorActions = normalizeActions(f.DoctorActions)
	return f
}

// IsEmpty reports whether the set has no action at all
func (f *FollowUpActionSet) IsEmpty() bool {
	return f == nil || (len(f.PatientActions) == 0 && len(f.DoctorActions) == 0)
}

// Clone returns a deep copy
func (f *FollowUpActionSet) Clone() *FollowUpActionSet {
	if f == nil {
		return nil
	}
	copied := *f
	copied.PatientActions = cloneSlice(f.PatientActions)
	copied.DoctorActions = cloneSlice(f.DoctorActions)
	return &copied
}

func normalizeActions(actions []ActionItem) []ActionItem {
	result := make([]ActionItem, 0, len(actions))
	for _, a := range actions {
		a.Action = strings.TrimSpace(a.Action)
		if a.Action == "" {
			continue
		}
		a.Priority = types.Priority(strings.ToLower(string(a.Priority))).Normalize()
		result = append(result, a)
	}
	return result
}
