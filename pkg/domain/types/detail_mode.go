package types

// DetailMode is the state of an opened note card. A card that is not open is collapsed.
type DetailMode string

const (
	DetailModeExpanded       DetailMode = "expanded"
	DetailModeEditingSummary DetailMode = "editing_summary"
)

// IsValid checks if the detail mode is valid
func (m DetailMode) IsValid() bool {
	switch m {
	case DetailModeExpanded, DetailModeEditingSummary:
		return true
	default:
		return false
	}
}

func (m DetailMode) String() string {
	return string(m)
}
