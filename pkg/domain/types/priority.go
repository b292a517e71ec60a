package types

// Priority represents the priority of a follow-up action item
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// IsValid checks if the priority is valid
func (p Priority) IsValid() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	default:
		return false
	}
}

// String returns the string representation of the priority
func (p Priority) String() string {
	return string(p)
}

// Normalize returns p, or PriorityMedium when p is not a known priority
func (p Priority) Normalize() Priority {
	if !p.IsValid() {
		return PriorityMedium
	}
	return p
}
