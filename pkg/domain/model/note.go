package model

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
)

// TempNoteIDPrefix marks identifiers synthesized by the client
const TempNoteIDPrefix = "temp-"

// UnknownPatientName is the name the backend and the summary parser use when no name is known
const UnknownPatientName = "Unknown Patient"

// NoteID identifies a note. It is assigned by the backend, or synthesized by the
// client when the backend fails to provide a usable identifier.
type NoteID string

// NewTempNoteID generates a unique client-side placeholder NoteID
func NewTempNoteID() NoteID {
	return NoteID(TempNoteIDPrefix + uuid.Must(uuid.NewV7()).String())
}

// IsTemp reports whether id was synthesized by the client
func (id NoteID) IsTemp() bool {
	return strings.HasPrefix(string(id), TempNoteIDPrefix)
}

func (id NoteID) String() string {
	return string(id)
}

// Validate checks that id is usable as a backend identifier
func (id NoteID) Validate() error {
	s := strings.TrimSpace(string(id))
	if s == "" {
		return goerr.Wrap(ErrInvalidNoteID, "note ID is empty")
	}
	if s == "true" || s == "false" {
		return goerr.Wrap(ErrBooleanNoteID, "note ID looks like a boolean", goerr.V(NoteIDKey, s))
	}
	return nil
}

// ParseNoteID decodes a JSON identifier. Strings and numbers are accepted.
// A boolean yields ErrBooleanNoteID; null or an absent value yields an empty NoteID.
func ParseNoteID(raw json.RawMessage) (NoteID, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}

	switch raw[0] {
	case 't', 'f':
		return "", goerr.Wrap(ErrBooleanNoteID, "backend returned a boolean note ID", goerr.V(RawIDKey, string(raw)))
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", goerr.Wrap(ErrInvalidNoteID, "failed to decode note ID", goerr.V(RawIDKey, string(raw)))
		}
		return NoteID(strings.TrimSpace(s)), nil
	default:
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return "", goerr.Wrap(ErrInvalidNoteID, "note ID is neither string nor number", goerr.V(RawIDKey, string(raw)))
		}
		return NoteID(n.String()), nil
	}
}

// UnmarshalJSON accepts string and number identifiers and rejects booleans
func (id *NoteID) UnmarshalJSON(data []byte) error {
	parsed, err := ParseNoteID(data)
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// Note is a captured clinical encounter
type Note struct {
	ID        NoteID     `json:"id"`
	Original  string     `json:"original" masq:"secret"`
	Summary   *Summary   `json:"summary"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

// Clone returns a deep copy of the note
func (n *Note) Clone() *Note {
	if n == nil {
		return nil
	}
	copied := &Note{
		ID:       n.ID,
		Original: n.Original,
	}
	if n.Summary != nil {
		copied.Summary = n.Summary.Clone()
	}
	if n.CreatedAt != nil {
		t := *n.CreatedAt
		copied.CreatedAt = &t
	}
	return copied
}

// PatientName returns the summary's patient name, or UnknownPatientName
func (n *Note) PatientName() string {
	if n == nil || n.Summary == nil || strings.TrimSpace(n.Summary.PatientDetails.Name) == "" {
		return UnknownPatientName
	}
	return n.Summary.PatientDetails.Name
}

// IsDegenerate reports whether the note carries nothing worth displaying: no
// original text, no summary, an empty summary, or an unknown patient with
// neither chief complaints nor symptoms.
func (n *Note) IsDegenerate() bool {
	if n == nil || strings.TrimSpace(n.Original) == "" || n.Summary == nil {
		return true
	}
	if n.Summary.IsEmpty() {
		return true
	}

	name := strings.TrimSpace(n.Summary.PatientDetails.Name)
	if name == "" || name == UnknownPatientName {
		return len(n.Summary.ChiefComplaints) == 0 && len(n.Summary.Symptoms) == 0
	}
	return false
}

// FilterDisplayable drops degenerate notes while keeping order
func FilterDisplayable(notes []*Note) []*Note {
	result := make([]*Note, 0, len(notes))
	for _, note := range notes {
		if note.IsDegenerate() {
			continue
		}
		result = append(result, note)
	}
	return result
}
