package summarydoc

import (
	"bytes"
	"regexp"
	"strings"
	"time"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/medinotes/pkg/domain/model"
	"github.com/secmon-lab/medinotes/pkg/domain/types"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Export is a downloadable, self-contained document
type Export struct {
	Filename    string
	ContentType string
	Body        []byte
}

const exportStyle = `body{font-family:Arial,sans-serif;line-height:1.6;max-width:800px;margin:0 auto;padding:20px;color:#333}
h1{color:#2c3e50;border-bottom:2px solid #3498db;padding-bottom:10px}
h3{color:#3498db;margin-top:20px}
ul{padding-left:20px}
.no-info{color:#888;font-style:italic}
.summary-meta,footer{color:#666;font-size:.9em}
.priority-high{color:#c0392b}
.priority-medium{color:#d68910}
.priority-low{color:#1e8449}`

var unsafeFilenameChars = regexp.MustCompile(`[^\p{L}\p{N}_-]+`)

func filenamePart(s string) string {
	return strings.Trim(unsafeFilenameChars.ReplaceAllString(strings.TrimSpace(s), "_"), "_")
}

// SummaryFilename returns Medical_Summary_<patient>_<YYYY-MM-DD> with the extension for format
func SummaryFilename(patientName string, format types.ExportFormat, now time.Time) string {
	name := filenamePart(patientName)
	if name == "" {
		name = filenamePart(model.UnknownPatientName)
	}
	ext := ".html"
	if format == types.ExportFormatMarkdown {
		ext = ".md"
	}
	return "Medical_Summary_" + name + "_" + now.Format("2006-01-02") + ext
}

// FollowUpFilename returns Follow-up_Actions_<noteId>_<date>.html. The date is
// the set's follow-up date when it has one, else the day of now.
func FollowUpFilename(id model.NoteID, followUpDate string, now time.Time) string {
	date := filenamePart(followUpDate)
	if date == "" {
		date = now.Format("2006-01-02")
	}
	return "Follow-up_Actions_" + filenamePart(string(id)) + "_" + date + ".html"
}

// ExportSummary builds the downloadable summary of a note
func ExportSummary(note *model.Note, format types.ExportFormat, now time.Time) (*Export, error) {
	if note == nil {
		return nil, goerr.New("note is required for export")
	}
	opts := []RenderOption{WithUpdatedAt(now)}
	if note.CreatedAt != nil {
		opts = []RenderOption{WithUpdatedAt(*note.CreatedAt)}
	}
	fragment := renderNode(note.Summary, opts...)
	filename := SummaryFilename(note.PatientName(), format, now)

	switch format {
	case types.ExportFormatMarkdown:
		var buf bytes.Buffer
		if err := html.Render(&buf, fragment); err != nil {
			return nil, goerr.Wrap(err, "failed to render summary")
		}
		md, err := htmltomarkdown.ConvertString(buf.String())
		if err != nil {
			return nil, goerr.Wrap(err, "failed to convert summary to markdown", goerr.V(model.NoteIDKey, note.ID))
		}
		md += "\n\n---\n\nGenerated on " + now.Format("2006-01-02 15:04") + "\n"
		return &Export{Filename: filename, ContentType: "text/markdown; charset=utf-8", Body: []byte(md)}, nil

	case types.ExportFormatHTML:
		body, err := standalone("Medical Summary - "+note.PatientName(), fragment, now)
		if err != nil {
			return nil, err
		}
		return &Export{Filename: filename, ContentType: "text/html; charset=utf-8", Body: body}, nil

	default:
		return nil, goerr.New("unsupported export format", goerr.V("format", format))
	}
}

// ExportFollowUp builds the downloadable follow-up action document of a note
func ExportFollowUp(note *model.Note, set *model.FollowUpActionSet, now time.Time) (*Export, error) {
	if note == nil || set == nil {
		return nil, goerr.New("note and follow-up actions are required for export")
	}

	root := element(atom.Div, class("follow-up-actions"),
		element(atom.H1, nil, text("Follow-up Actions")),
		element(atom.P, class("summary-meta"), text("Patient: "+note.PatientName())),
	)
	if set.FollowUpDate != "" {
		root.AppendChild(element(atom.P, nil, text("Follow-up date: "+set.FollowUpDate)))
	}
	root.AppendChild(element(atom.P, nil, text("Urgency: "+string(set.UrgencyLevel.Normalize()))))

	root.AppendChild(element(atom.H3, nil, text("Patient Actions")))
	root.AppendChild(actionList(set.PatientActions))
	root.AppendChild(element(atom.H3, nil, text("Doctor Actions")))
	root.AppendChild(actionList(set.DoctorActions))

	body, err := standalone("Follow-up Actions - "+note.PatientName(), root, now)
	if err != nil {
		return nil, err
	}
	return &Export{
		Filename:    FollowUpFilename(note.ID, set.FollowUpDate, now),
		ContentType: "text/html; charset=utf-8",
		Body:        body,
	}, nil
}

func actionList(actions []model.ActionItem) *html.Node {
	items := make([]*html.Node, 0, len(actions))
	for _, a := range actions {
		priority := a.Priority.Normalize()
		li := element(atom.Li, class("priority-"+priority.String()),
			element(atom.Strong, nil, text("["+strings.ToUpper(priority.String())+"] ")),
			text(a.Action),
		)
		if a.Context != "" {
			li.AppendChild(element(atom.Br, nil))
			li.AppendChild(element(atom.Em, nil, text(a.Context)))
		}
		items = append(items, li)
	}
	return list(items)
}

func standalone(title string, content *html.Node, now time.Time) ([]byte, error) {
	doc := &html.Node{Type: html.DocumentNode}
	doc.AppendChild(&html.Node{Type: html.DoctypeNode, Data: "html"})
	doc.AppendChild(element(atom.Html, []html.Attribute{{Key: "lang", Val: "en"}},
		element(atom.Head, nil,
			element(atom.Meta, []html.Attribute{{Key: "charset", Val: "utf-8"}}),
			element(atom.Title, nil, text(title)),
			element(atom.Style, nil, text(exportStyle)),
		),
		element(atom.Body, nil,
			content,
			element(atom.Footer, nil, text("Generated on "+now.Format("2006-01-02 15:04"))),
		),
	))

	var buf bytes.Buffer
	if err := html.Render(&buf, doc); err != nil {
		return nil, goerr.Wrap(err, "failed to render export document")
	}
	return buf.Bytes(), nil
}
