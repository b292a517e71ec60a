package interfaces

import (
	"context"

	"github.com/secmon-lab/medinotes/pkg/domain/model"
)

// PatientExtractor finds a patient's name and age in free text. It is advisory
// and returns nil when neither is found.
type PatientExtractor interface {
	Extract(ctx context.Context, text string) (*model.PatientIdentity, error)
}
