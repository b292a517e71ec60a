package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/medinotes/pkg/domain/types"
)

// SessionID identifies a view-model session, one per browser or CLI run
type SessionID string

// NewSessionID generates a new random SessionID
func NewSessionID() SessionID {
	return SessionID(uuid.New().String())
}

// OpenNote is the note card currently shown in the detail view
type OpenNote struct {
	NoteID   NoteID             `json:"note_id"`
	Summary  *Summary           `json:"summary"`
	Mode     types.DetailMode   `json:"mode"`
	FollowUp *FollowUpActionSet `json:"follow_up,omitempty"`
}

// CaptureArea is the transcript input. A non-empty EditingNoteID means the
// text is an in-progress edit of that note's original.
type CaptureArea struct {
	Text          string `json:"text" masq:"secret"`
	EditingNoteID NoteID `json:"editing_note_id,omitempty"`
}

// Session is the per-user view-model: the rendered cards, the open detail
// view, the capture area and the imported history of the draft being written.
type Session struct {
	ID                SessionID      `json:"id"`
	Notes             []*Note        `json:"notes"`
	Open              *OpenNote      `json:"open,omitempty"`
	Capture           CaptureArea    `json:"capture"`
	ImportedHistory   *Summary       `json:"imported_history,omitempty"`
	HistoryGeneration uint64         `json:"history_generation"`
	Notifications     []Notification `json:"notifications,omitempty"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
}

// NewSession creates an empty session
func NewSession(now time.Time) *Session {
	return &Session{
		ID:        NewSessionID(),
		Notes:     []*Note{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Clone returns a deep copy of the session
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	copied := &Session{
		ID:                s.ID,
		Notes:             make([]*Note, len(s.Notes)),
		Capture:           s.Capture,
		ImportedHistory:   s.ImportedHistory.Clone(),
		HistoryGeneration: s.HistoryGeneration,
		Notifications:     cloneSliceOrNil(s.Notifications),
		CreatedAt:         s.CreatedAt,
		UpdatedAt:         s.UpdatedAt,
	}
	for i, n := range s.Notes {
		copied.Notes[i] = n.Clone()
	}
	if s.Open != nil {
		copied.Open = &OpenNote{
			NoteID:   s.Open.NoteID,
			Summary:  s.Open.Summary.Clone(),
			Mode:     s.Open.Mode,
			FollowUp: s.Open.FollowUp.Clone(),
		}
	}
	return copied
}

// IsEmpty reports whether no note card is displayed
func (s *Session) IsEmpty() bool {
	return len(s.Notes) == 0
}

// SetNotes replaces the displayed cards. The open view is closed if its note disappeared.
func (s *Session) SetNotes(notes []*Note) {
	s.Notes = make([]*Note, 0, len(notes))
	for _, n := range notes {
		s.Notes = append(s.Notes, n.Clone())
	}
	if s.Open != nil && s.FindNote(s.Open.NoteID) == nil {
		s.Open = nil
	}
}

// FindNote returns the displayed note with id, or nil
func (s *Session) FindNote(id NoteID) *Note {
	for _, n := range s.Notes {
		if n.ID == id {
			return n
		}
	}
	return nil
}

// AddNote puts note at the top of the list, replacing a card with the same id
func (s *Session) AddNote(note *Note) {
	s.RemoveNote(note.ID)
	s.Notes = append([]*Note{note.Clone()}, s.Notes...)
}

// ReplaceNote updates the card with the same id in place
func (s *Session) ReplaceNote(note *Note) bool {
	for i, n := range s.Notes {
		if n.ID == note.ID {
			s.Notes[i] = note.Clone()
			return true
		}
	}
	return false
}

// RemoveNote drops the card with id and closes its detail view if open
func (s *Session) RemoveNote(id NoteID) bool {
	for i, n := range s.Notes {
		if n.ID != id {
			continue
		}
		s.Notes = append(s.Notes[:i:i], s.Notes[i+1:]...)
		if s.Open != nil && s.Open.NoteID == id {
			s.Open = nil
		}
		return true
	}
	return false
}

// OpenNote expands note in the detail view with a prepared summary
func (s *Session) OpenNote(note *Note) {
	s.Open = &OpenNote{
		NoteID:  note.ID,
		Summary: Prepare(note.Summary),
		Mode:    types.DetailModeExpanded,
	}
}

// CloseNote collapses every card
func (s *Session) CloseNote() {
	s.Open = nil
}

// IsOpen reports whether the note with id is shown in the detail view
func (s *Session) IsOpen(id NoteID) bool {
	return s.Open != nil && s.Open.NoteID == id
}

// BeginSummaryEdit switches the open note to editing_summary
func (s *Session) BeginSummaryEdit(id NoteID) error {
	if !s.IsOpen(id) {
		return goerr.Wrap(ErrNoOpenNote, "cannot edit summary of a closed note", goerr.V(NoteIDKey, id))
	}
	s.Open.Mode = types.DetailModeEditingSummary
	return nil
}

// CancelSummaryEdit returns the open note to expanded without changes
func (s *Session) CancelSummaryEdit(id NoteID) {
	if s.IsOpen(id) {
		s.Open.Mode = types.DetailModeExpanded
	}
}

// ApplySummary replaces the summary of note id on its card and in the open view,
// and returns the open view to expanded.
func (s *Session) ApplySummary(id NoteID, summary *Summary) error {
	note := s.FindNote(id)
	if note == nil {
		return goerr.Wrap(ErrNoteNotInView, "cannot apply summary", goerr.V(NoteIDKey, id))
	}
	note.Summary = Prepare(summary)
	if s.IsOpen(id) {
		s.Open.Summary = Prepare(summary)
		s.Open.Mode = types.DetailModeExpanded
	}
	return nil
}

// SetFollowUp caches a follow-up set on the open view of note id
func (s *Session) SetFollowUp(id NoteID, set *FollowUpActionSet) {
	if s.IsOpen(id) {
		s.Open.FollowUp = set.Clone()
	}
}

// StartEditingNote loads the note's original text into the capture area
func (s *Session) StartEditingNote(note *Note) {
	s.Capture = CaptureArea{
		Text:          note.Original,
		EditingNoteID: note.ID,
	}
}

// IsEditingNote reports whether the capture area holds an edit of an existing note
func (s *Session) IsEditingNote() bool {
	return s.Capture.EditingNoteID != ""
}

// FinishEditingNote returns the capture area to idle and clears its text
func (s *Session) FinishEditingNote() {
	s.Capture = CaptureArea{}
}

// BeginHistoryLookup starts a new lookup generation and returns its token
func (s *Session) BeginHistoryLookup() uint64 {
	s.HistoryGeneration++
	return s.HistoryGeneration
}

// ApplyHistory stores history if generation is still current. Stale results are rejected.
func (s *Session) ApplyHistory(generation uint64, history *Summary) bool {
	if generation != s.HistoryGeneration {
		return false
	}
	s.ImportedHistory = history.Clone()
	return true
}

// ClearHistory drops imported history and invalidates any pending lookup
func (s *Session) ClearHistory() {
	s.ImportedHistory = nil
	s.HistoryGeneration++
}

// Notify queues a notification
func (s *Session) Notify(level types.NotificationLevel, msg string, now time.Time) Notification {
	n := Notification{Level: level, Message: msg, CreatedAt: now}
	s.Notifications = append(s.Notifications, n)
	return n
}

// DrainNotifications returns and clears queued notifications
func (s *Session) DrainNotifications() []Notification {
	drained := s.Notifications
	s.Notifications = nil
	if drained == nil {
		return []Notification{}
	}
	return drained
}
