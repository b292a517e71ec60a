package summarydoc

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const (
	// DocumentTitle is the top-level heading of a rendered summary
	DocumentTitle = "Medical Summary"

	// Placeholder is rendered for empty sections and empty patient fields
	Placeholder = "(No information provided)"
)

// Section titles in rendering order
const (
	SectionPatientDetails     = "Patient Details"
	SectionAllergies          = "Allergies"
	SectionChiefComplaints    = "Chief Complaints"
	SectionComplaintDetails   = "Complaint Details"
	SectionSymptoms           = "Symptoms"
	SectionPastHistory        = "Past History"
	SectionChronicDiseases    = "Chronic Diseases"
	SectionLifestyle          = "Lifestyle"
	SectionCurrentMedications = "Current Medications"
	SectionFamilyHistory      = "Family History"
	SectionPossibleConditions = "Possible Conditions"
)

// SectionTitles returns the eleven section titles in rendering order
func SectionTitles() []string {
	return []string{
		SectionPatientDetails,
		SectionAllergies,
		SectionChiefComplaints,
		SectionComplaintDetails,
		SectionSymptoms,
		SectionPastHistory,
		SectionChronicDiseases,
		SectionLifestyle,
		SectionCurrentMedications,
		SectionFamilyHistory,
		SectionPossibleConditions,
	}
}

type patientField struct {
	label string
	get   func(*patientValues) *string
}

type patientValues struct {
	name, age, gender, maritalStatus, residence string
}

var patientFields = []patientField{
	{label: "Name", get: func(p *patientValues) *string { return &p.name }},
	{label: "Age", get: func(p *patientValues) *string { return &p.age }},
	{label: "Gender", get: func(p *patientValues) *string { return &p.gender }},
	{label: "Marital Status", get: func(p *patientValues) *string { return &p.maritalStatus }},
	{label: "Residence", get: func(p *patientValues) *string { return &p.residence }},
}

// Sub-field labels of the two structured sections
const (
	labelLocation  = "Location"
	labelSeverity  = "Severity"
	labelDuration  = "Duration"
	labelFrequency = "Frequency"
)

var placeholderPattern = regexp.MustCompile(`(?i)\(\s*no\s[^()]*?(?:provided|reported|identified|recorded)\s*\)|no information provided|not reported`)

// stripPlaceholder removes placeholder phrases and returns the remaining value
func stripPlaceholder(s string) string {
	return normalizeSpace(placeholderPattern.ReplaceAllString(s, ""))
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func element(a atom.Atom, attrs []html.Attribute, children ...*html.Node) *html.Node {
	n := &html.Node{
		Type:     html.ElementNode,
		DataAtom: a,
		Data:     a.String(),
		Attr:     attrs,
	}
	for _, c := range children {
		n.AppendChild(c)
	}
	return n
}

func text(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}

func class(name string) []html.Attribute {
	return []html.Attribute{{Key: "class", Val: name}}
}

// textContent returns the whitespace-normalized text below n
func textContent(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			return
		}
		if n.Type == html.ElementNode && n.DataAtom == atom.Br {
			sb.WriteString(" ")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return normalizeSpace(sb.String())
}
