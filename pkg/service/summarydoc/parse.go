package summarydoc

import (
	"io"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/medinotes/pkg/domain/model"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

type blockKind int

const (
	blockHeading blockKind = iota
	blockList
	blockParagraph
)

type block struct {
	kind  blockKind
	level atom.Atom
	node  *html.Node
	text  string
}

// Parse reads an edited summary document back into a Summary. Sections are
// located by heading text, so unknown markup around them is ignored. The
// result is always prepared and always has a patient name.
func Parse(r io.Reader) (*model.Summary, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to parse summary document")
	}

	blocks := collectBlocks(doc)
	s := model.Prepare(nil)

	patient := &patientValues{}
	for _, item := range sectionItems(blocks, SectionPatientDetails) {
		parsePatientItem(patient, item)
	}
	s.PatientDetails = model.PatientDetails{
		Name:          patient.name,
		Age:           patient.age,
		Gender:        patient.gender,
		MaritalStatus: patient.maritalStatus,
		Residence:     patient.residence,
	}

	s.Allergies = plainItems(blocks, SectionAllergies)
	s.ChiefComplaints = plainItems(blocks, SectionChiefComplaints)
	s.Symptoms = plainItems(blocks, SectionSymptoms)
	s.PastHistory = plainItems(blocks, SectionPastHistory)
	s.ChronicDiseases = plainItems(blocks, SectionChronicDiseases)
	s.DrugHistory = plainItems(blocks, SectionCurrentMedications)
	s.FamilyHistory = plainItems(blocks, SectionFamilyHistory)
	s.PossibleDiseases = plainItems(blocks, SectionPossibleConditions)

	for _, item := range sectionItems(blocks, SectionComplaintDetails) {
		head, fields := splitLabelled(item, labelLocation, labelSeverity, labelDuration)
		if head == "" {
			continue
		}
		s.ChiefComplaintDetails = append(s.ChiefComplaintDetails, model.ComplaintDetail{
			Complaint: head,
			Location:  fields[labelLocation],
			Severity:  fields[labelSeverity],
			Duration:  fields[labelDuration],
		})
	}

	for _, item := range sectionItems(blocks, SectionLifestyle) {
		head, fields := splitLabelled(item, labelFrequency, labelDuration)
		if head == "" {
			continue
		}
		s.Lifestyle = append(s.Lifestyle, model.LifestyleHabit{
			Habit:     head,
			Frequency: fields[labelFrequency],
			Duration:  fields[labelDuration],
		})
	}

	if s.PatientDetails.Name == "" {
		s.PatientDetails.Name = fallbackName(blocks)
	}

	return s, nil
}

// ParseString is Parse for an in-memory document
func ParseString(doc string) (*model.Summary, error) {
	return Parse(strings.NewReader(doc))
}

// collectBlocks flattens the document into headings, lists and paragraphs in document order
func collectBlocks(doc *html.Node) []block {
	var blocks []block
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
				blocks = append(blocks, block{kind: blockHeading, level: n.DataAtom, node: n, text: textContent(n)})
				return
			case atom.Ul, atom.Ol:
				blocks = append(blocks, block{kind: blockList, node: n})
				return
			case atom.P:
				blocks = append(blocks, block{kind: blockParagraph, node: n, text: textContent(n)})
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return blocks
}

// findSection returns the index of the heading for title, preferring an exact
// case-insensitive match over a containing one. -1 when absent.
func findSection(blocks []block, title string) int {
	want := strings.ToLower(title)
	contains := -1
	for i, b := range blocks {
		if b.kind != blockHeading {
			continue
		}
		got := strings.ToLower(b.text)
		if got == want {
			return i
		}
		if contains < 0 && strings.Contains(got, want) {
			contains = i
		}
	}
	return contains
}

// sectionItems returns the raw item texts of a section: the items of the first
// list before the next heading, or else the comma-separated parts of the first paragraph.
func sectionItems(blocks []block, title string) []string {
	idx := findSection(blocks, title)
	if idx < 0 {
		return nil
	}

	var paragraph *block
	for i := idx + 1; i < len(blocks); i++ {
		b := blocks[i]
		if b.kind == blockHeading {
			break
		}
		if b.kind == blockList {
			return listItems(b.node)
		}
		if b.kind == blockParagraph && paragraph == nil {
			paragraph = &blocks[i]
		}
	}

	if paragraph == nil {
		return nil
	}
	var items []string
	for _, part := range strings.Split(paragraph.text, ",") {
		if v := normalizeSpace(part); v != "" {
			items = append(items, v)
		}
	}
	return items
}

func listItems(list *html.Node) []string {
	var items []string
	for c := list.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode || c.DataAtom != atom.Li {
			continue
		}
		if v := textContent(c); v != "" {
			items = append(items, v)
		}
	}
	return items
}

func plainItems(blocks []block, title string) []string {
	result := []string{}
	for _, item := range sectionItems(blocks, title) {
		if v := stripPlaceholder(item); v != "" {
			result = append(result, v)
		}
	}
	return result
}

func parsePatientItem(p *patientValues, item string) {
	for _, f := range patientFields {
		value, ok := cutLabel(item, f.label)
		if !ok {
			continue
		}
		*f.get(p) = stripPlaceholder(value)
		return
	}
}

// cutLabel returns the text after "label:" when item starts with it, case-insensitively
func cutLabel(item, label string) (string, bool) {
	prefix := strings.ToLower(label) + ":"
	if !strings.HasPrefix(strings.ToLower(item), prefix) {
		return "", false
	}
	return strings.TrimSpace(item[len(prefix):]), true
}

// splitLabelled splits "head - Label: value - Label: value" on hyphens. A
// hyphen that is not followed by a known label stays part of the value.
func splitLabelled(item string, labels ...string) (string, map[string]string) {
	parts := strings.Split(item, "-")
	head := parts[0]
	fields := map[string]string{}
	current := ""

	for _, part := range parts[1:] {
		trimmed := strings.TrimSpace(part)
		matched := false
		for _, label := range labels {
			if value, ok := cutLabel(trimmed, label); ok {
				current = label
				fields[label] = value
				matched = true
				break
			}
		}
		if matched {
			continue
		}
		if current == "" {
			head += "-" + part
		} else {
			fields[current] += "-" + part
		}
	}

	for k, v := range fields {
		fields[k] = stripPlaceholder(v)
	}
	return stripPlaceholder(head), fields
}

func fallbackName(blocks []block) string {
	for _, b := range blocks {
		if b.kind != blockHeading || b.level != atom.H1 {
			continue
		}
		title := normalizeSpace(b.text)
		if title == "" || strings.Contains(strings.ToLower(title), strings.ToLower(DocumentTitle)) {
			break
		}
		return title
	}
	return model.UnknownPatientName
}
