package types

import "fmt"

// UrgencyLevel represents how soon a follow-up visit is needed
type UrgencyLevel string

const (
	UrgencyLevelUrgent  UrgencyLevel = "urgent"
	UrgencyLevelSoon    UrgencyLevel = "soon"
	UrgencyLevelRoutine UrgencyLevel = "routine"
)

// AllUrgencyLevels returns all valid urgency levels
func AllUrgencyLevels() []UrgencyLevel {
	return []UrgencyLevel{
		UrgencyLevelUrgent,
		UrgencyLevelSoon,
		UrgencyLevelRoutine,
	}
}

// IsValid checks if the urgency level is valid
func (u UrgencyLevel) IsValid() bool {
	switch u {
	case UrgencyLevelUrgent, UrgencyLevelSoon, UrgencyLevelRoutine:
		return true
	default:
		return false
	}
}

// String returns the string representation of the urgency level
func (u UrgencyLevel) String() string {
	return string(u)
}

// Normalize returns u, or UrgencyLevelRoutine when u is not a known level
func (u UrgencyLevel) Normalize() UrgencyLevel {
	if !u.IsValid() {
		return UrgencyLevelRoutine
	}
	return u
}

// ParseUrgencyLevel parses a string into an UrgencyLevel
func ParseUrgencyLevel(s string) (UrgencyLevel, error) {
	level := UrgencyLevel(s)
	if !level.IsValid() {
		return "", fmt.Errorf("invalid urgency level: %s", s)
	}
	return level, nil
}
