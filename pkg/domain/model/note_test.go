package model_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/medinotes/pkg/domain/model"
)

func TestParseNoteID(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    model.NoteID
		wantErr error
	}{
		{name: "string id", raw: `"abc-123"`, want: "abc-123"},
		{name: "numeric id", raw: `42`, want: "42"},
		{name: "null id", raw: `null`, want: ""},
		{name: "absent id", raw: ``, want: ""},
		{name: "true id", raw: `true`, wantErr: model.ErrBooleanNoteID},
		{name: "false id", raw: `false`, wantErr: model.ErrBooleanNoteID},
		{name: "object id", raw: `{"id":1}`, wantErr: model.ErrInvalidNoteID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := model.ParseNoteID(json.RawMessage(tt.raw))
			if tt.wantErr != nil {
				gt.Bool(t, errors.Is(err, tt.wantErr)).True()
				return
			}
			gt.NoError(t, err)
			gt.Value(t, got).Equal(tt.want)
		})
	}
}

func TestNoteID_UnmarshalJSON(t *testing.T) {
	var note model.Note
	gt.NoError(t, json.Unmarshal([]byte(`{"id": 7, "original": "x"}`), &note))
	gt.Value(t, note.ID).Equal(model.NoteID("7"))

	err := json.Unmarshal([]byte(`{"id": true}`), &note)
	gt.Bool(t, errors.Is(err, model.ErrBooleanNoteID)).True()
}

func TestNewTempNoteID(t *testing.T) {
	a := model.NewTempNoteID()
	b := model.NewTempNoteID()

	gt.Bool(t, a.IsTemp()).True()
	gt.Value(t, a).NotEqual(b)
	gt.NoError(t, a.Validate())
	gt.Bool(t, model.NoteID("12").IsTemp()).False()
}

func TestNoteID_Validate(t *testing.T) {
	gt.Error(t, model.NoteID("").Validate())
	gt.Bool(t, errors.Is(model.NoteID("true").Validate(), model.ErrBooleanNoteID)).True()
	gt.NoError(t, model.NoteID("n-1").Validate())
}

func TestNote_IsDegenerate(t *testing.T) {
	full := &model.Summary{
		PatientDetails:  model.PatientDetails{Name: "John Smith"},
		ChiefComplaints: []string{"headache"},
	}

	tests := []struct {
		name string
		note *model.Note
		want bool
	}{
		{name: "nil note", note: nil, want: true},
		{name: "no original", note: &model.Note{ID: "1", Summary: full}, want: true},
		{name: "no summary", note: &model.Note{ID: "1", Original: "text"}, want: true},
		{name: "empty summary", note: &model.Note{ID: "1", Original: "text", Summary: &model.Summary{}}, want: true},
		{
			name: "unknown patient without complaints or symptoms",
			note: &model.Note{ID: "1", Original: "text", Summary: &model.Summary{
				PatientDetails: model.PatientDetails{Name: model.UnknownPatientName},
				Allergies:      []string{"dust"},
			}},
			want: true,
		},
		{
			name: "unknown patient with symptoms",
			note: &model.Note{ID: "1", Original: "text", Summary: &model.Summary{
				PatientDetails: model.PatientDetails{Name: model.UnknownPatientName},
				Symptoms:       []string{"fever"},
			}},
			want: false,
		},
		{name: "named patient", note: &model.Note{ID: "1", Original: "text", Summary: full}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gt.Value(t, tt.note.IsDegenerate()).Equal(tt.want)
		})
	}
}

func TestFilterDisplayable(t *testing.T) {
	keep1 := &model.Note{ID: "1", Original: "a", Summary: &model.Summary{Symptoms: []string{"cough"}}}
	drop := &model.Note{ID: "2", Summary: &model.Summary{PatientDetails: model.PatientDetails{Name: model.UnknownPatientName}}}
	keep2 := &model.Note{ID: "3", Original: "b", Summary: &model.Summary{ChiefComplaints: []string{"pain"}}}

	got := model.FilterDisplayable([]*model.Note{keep1, drop, keep2})
	gt.Array(t, got).Length(2)
	gt.Value(t, got[0].ID).Equal(model.NoteID("1"))
	gt.Value(t, got[1].ID).Equal(model.NoteID("3"))

	gt.Array(t, model.FilterDisplayable([]*model.Note{drop})).Length(0)
}

func TestNote_PatientName(t *testing.T) {
	gt.Value(t, (&model.Note{}).PatientName()).Equal(model.UnknownPatientName)
	note := &model.Note{Summary: &model.Summary{PatientDetails: model.PatientDetails{Name: "Jane Doe"}}}
	gt.Value(t, note.PatientName()).Equal("Jane Doe")
}
