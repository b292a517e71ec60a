package interfaces

import (
	"context"

	"github.com/secmon-lab/medinotes/pkg/domain/model"
)

// Notifier presents a transient notification to the user as soon as it is raised
type Notifier interface {
	Notify(ctx context.Context, n model.Notification)
}
