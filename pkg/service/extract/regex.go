package extract

import (
	"context"
	"regexp"
	"strings"

	"github.com/secmon-lab/medinotes/pkg/domain/model"
)

// Candidate patterns are tried in order and the first match wins. The leading
// phrase is case-insensitive, the captured name must be capitalized words.
var (
	namePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i:\bpatient(?:'s)? name(?:\s+is)?(?:\s*:)?)\s+([A-Z][a-z]+(?: [A-Z][a-z]+)+)`),
		regexp.MustCompile(`(?i:\b(?:Mr\.|Mrs\.|Miss|Ms\.|Dr\.))\s+([A-Z][a-z]+(?: [A-Z][a-z]+)+)`),
		regexp.MustCompile(`(?i:\bname(?:\s+is)?(?:\s*:)?)\s+([A-Z][a-z]+(?: [A-Z][a-z]+)+)`),
	}

	agePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:\bpatient(?:'s)? )?\bage(?:\s+is)?(?:\s*:)?\s+(\d{1,3})(?: years? old)?`),
		regexp.MustCompile(`(?i)\b(\d{1,3})(?:\s*|-)?years?(?:\s*|-)?old`),
		regexp.MustCompile(`(?i)\bage(?:\s*:)?\s+(\d{1,3})`),
	}
)

// Regex extracts name and age with fixed patterns. It never fails.
type Regex struct{}

// NewRegex returns the pattern based extractor
func NewRegex() *Regex {
	return &Regex{}
}

// Extract returns the first name and age found in text, or nil when neither is present
func (x *Regex) Extract(_ context.Context, text string) (*model.PatientIdentity, error) {
	return extractByPattern(text), nil
}

func extractByPattern(text string) *model.PatientIdentity {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	id := &model.PatientIdentity{
		Name: firstMatch(namePatterns, text),
		Age:  firstMatch(agePatterns, text),
	}
	if id.Name == "" && id.Age == "" {
		return nil
	}
	return id
}

func firstMatch(patterns []*regexp.Regexp, text string) string {
	for _, p := range patterns {
		if m := p.FindStringSubmatch(text); len(m) > 1 && m[1] != "" {
			return strings.TrimSpace(m[1])
		}
	}
	return ""
}
