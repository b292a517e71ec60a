package model

import (
	"time"

	"github.com/secmon-lab/medinotes/pkg/domain/types"
)

// Notification is a transient, non-blocking message for the user
type Notification struct {
	Level     types.NotificationLevel `json:"level"`
	Message   string                  `json:"message"`
	CreatedAt time.Time               `json:"created_at"`
}
