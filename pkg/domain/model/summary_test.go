package model_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/medinotes/pkg/domain/model"
)

func TestPrepare(t *testing.T) {
	t.Run("nil summary gets every slot", func(t *testing.T) {
		s := model.Prepare(nil)
		gt.Value(t, s).NotNil().Required()
		gt.Bool(t, s.IsEmpty()).True()

		data, err := json.Marshal(s)
		gt.NoError(t, err).Required()
		for _, slot := range []string{
			"allergies",
			"chief_complaints",
			"chief_complaint_details",
			"symptoms",
			"past_history",
			"chronic_diseases",
			"lifestyle",
			"drug_history",
			"family_history",
			"possible_diseases",
		} {
			gt.String(t, string(data)).Contains(`"` + slot + `":[]`)
		}
	})

	t.Run("partial summary keeps values and fills the rest", func(t *testing.T) {
		in := &model.Summary{
			PatientDetails: model.PatientDetails{Name: "John Smith", Age: "45"},
			Symptoms:       []string{"fever", "cough"},
		}
		s := model.Prepare(in)
		gt.Value(t, s.PatientDetails.Name).Equal("John Smith")
		gt.Value(t, s.Symptoms).Equal([]string{"fever", "cough"})
		gt.Array(t, s.DrugHistory).Length(0)
		gt.Bool(t, s.DrugHistory != nil).True()
	})

	t.Run("result does not alias the input", func(t *testing.T) {
		in := &model.Summary{Symptoms: []string{"fever"}}
		s := model.Prepare(in)
		s.Symptoms[0] = "changed"
		gt.Value(t, in.Symptoms[0]).Equal("fever")
	})
}

func TestParseSummary(t *testing.T) {
	t.Run("decodes object with numeric age", func(t *testing.T) {
		s, err := model.ParseSummary(json.RawMessage(`{
			"patient_details": {"name": "John Smith", "age": 45, "gender": null},
			"allergies": ["penicillin"],
			"chief_complaint_details": [{"complaint": "headache", "severity": "mild"}],
			"lifestyle": [{"habit": "smoking", "frequency": "daily", "duration": 10}]
		}`))
		gt.NoError(t, err).Required()
		gt.Value(t, s.PatientDetails.Age).Equal("45")
		gt.Value(t, s.PatientDetails.Gender).Equal("")
		gt.Value(t, s.Allergies).Equal([]string{"penicillin"})
		gt.Value(t, s.ChiefComplaintDetails).Equal([]model.ComplaintDetail{{Complaint: "headache", Severity: "mild"}})
		gt.Value(t, s.Lifestyle).Equal([]model.LifestyleHabit{{Habit: "smoking", Frequency: "daily", Duration: "10"}})
	})

	t.Run("decodes JSON-encoded string", func(t *testing.T) {
		s, err := model.ParseSummary(json.RawMessage(`"{\"symptoms\": \"fever\"}"`))
		gt.NoError(t, err).Required()
		gt.Value(t, s.Symptoms).Equal([]string{"fever"})
	})

	t.Run("null yields nil", func(t *testing.T) {
		s, err := model.ParseSummary(json.RawMessage(`null`))
		gt.NoError(t, err)
		gt.Value(t, s).Nil()
	})

	t.Run("garbage is an invalid summary", func(t *testing.T) {
		_, err := model.ParseSummary(json.RawMessage(`"not json"`))
		gt.Bool(t, errors.Is(err, model.ErrInvalidSummary)).True()
	})
}
