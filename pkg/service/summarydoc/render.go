package summarydoc

import (
	"bytes"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/medinotes/pkg/domain/model"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

type renderConfig struct {
	updatedAt time.Time
}

// RenderOption configures Render
type RenderOption func(*renderConfig)

// WithUpdatedAt adds a "Last updated" line below the title
func WithUpdatedAt(t time.Time) RenderOption {
	return func(c *renderConfig) {
		c.updatedAt = t
	}
}

// Render returns the editable HTML fragment of a summary. Every section is
// emitted in fixed order, empty ones with a placeholder item, so that Parse
// can find every heading again.
func Render(summary *model.Summary, opts ...RenderOption) (string, error) {
	var buf bytes.Buffer
	if err := html.Render(&buf, renderNode(summary, opts...)); err != nil {
		return "", goerr.Wrap(err, "failed to render summary")
	}
	return buf.String(), nil
}

func renderNode(summary *model.Summary, opts ...RenderOption) *html.Node {
	cfg := &renderConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	s := model.Prepare(summary)
	root := element(atom.Div, class("medical-summary"),
		element(atom.H1, nil, text(DocumentTitle)),
	)
	if !cfg.updatedAt.IsZero() {
		root.AppendChild(element(atom.P, class("summary-meta"),
			text("Last updated: "+cfg.updatedAt.Format("2006-01-02 15:04")),
		))
	}

	root.AppendChild(heading(SectionPatientDetails))
	root.AppendChild(patientList(s.PatientDetails))

	addList(root, SectionAllergies, s.Allergies)
	addList(root, SectionChiefComplaints, s.ChiefComplaints)

	root.AppendChild(heading(SectionComplaintDetails))
	details := make([]*html.Node, 0, len(s.ChiefComplaintDetails))
	for _, d := range s.ChiefComplaintDetails {
		details = append(details, labelledItem(d.Complaint, []labelled{
			{labelLocation, d.Location},
			{labelSeverity, d.Severity},
			{labelDuration, d.Duration},
		}))
	}
	root.AppendChild(list(details))

	addList(root, SectionSymptoms, s.Symptoms)
	addList(root, SectionPastHistory, s.PastHistory)
	addList(root, SectionChronicDiseases, s.ChronicDiseases)

	root.AppendChild(heading(SectionLifestyle))
	habits := make([]*html.Node, 0, len(s.Lifestyle))
	for _, h := range s.Lifestyle {
		habits = append(habits, labelledItem(h.Habit, []labelled{
			{labelFrequency, h.Frequency},
			{labelDuration, h.Duration},
		}))
	}
	root.AppendChild(list(habits))

	addList(root, SectionCurrentMedications, s.DrugHistory)
	addList(root, SectionFamilyHistory, s.FamilyHistory)
	addList(root, SectionPossibleConditions, s.PossibleDiseases)

	return root
}

type labelled struct {
	label string
	value string
}

func heading(title string) *html.Node {
	return element(atom.H3, nil, text(title))
}

func addList(root *html.Node, title string, values []string) {
	root.AppendChild(heading(title))
	items := make([]*html.Node, 0, len(values))
	for _, v := range values {
		items = append(items, element(atom.Li, nil, text(v)))
	}
	root.AppendChild(list(items))
}

func list(items []*html.Node) *html.Node {
	ul := element(atom.Ul, nil)
	if len(items) == 0 {
		ul.AppendChild(element(atom.Li, class("no-info"), text(Placeholder)))
		return ul
	}
	for _, item := range items {
		ul.AppendChild(item)
	}
	return ul
}

func patientList(p model.PatientDetails) *html.Node {
	values := &patientValues{
		name:          p.Name,
		age:           p.Age,
		gender:        p.Gender,
		maritalStatus: p.MaritalStatus,
		residence:     p.Residence,
	}

	ul := element(atom.Ul, class("patient-details"))
	for _, f := range patientFields {
		v := normalizeSpace(*f.get(values))
		if v == "" {
			v = Placeholder
		}
		ul.AppendChild(element(atom.Li, nil,
			element(atom.Strong, nil, text(f.label+":")),
			text(" "+v),
		))
	}
	return ul
}

func labelledItem(head string, fields []labelled) *html.Node {
	li := element(atom.Li, nil, element(atom.Strong, nil, text(head)))
	var tail bytes.Buffer
	for _, f := range fields {
		v := normalizeSpace(f.value)
		if v == "" {
			continue
		}
		tail.WriteString(" - " + f.label + ": " + v)
	}
	if tail.Len() > 0 {
		li.AppendChild(text(tail.String()))
	}
	return li
}
