package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/medinotes/pkg/domain/model"
	"github.com/secmon-lab/medinotes/pkg/domain/types"
	"github.com/secmon-lab/medinotes/pkg/service/summarydoc"
	"github.com/secmon-lab/medinotes/pkg/utils/safe"
	"github.com/urfave/cli/v3"
)

func cmdNotes() *cli.Command {
	var cfg clientConfig

	return &cli.Command{
		Name:    "notes",
		Aliases: []string{"n"},
		Usage:   "List and manage notes",
		Flags:   cfg.Flags(),
		Commands: []*cli.Command{
			cmdNotesList(&cfg),
			cmdNotesShow(&cfg),
			cmdNotesSave(&cfg),
			cmdNotesEdit(&cfg),
			cmdNotesDelete(&cfg),
			cmdNotesSummaryEdit(&cfg),
			cmdNotesExport(&cfg),
		},
	}
}

// withClient opens a client for the duration of one command action
func withClient(cfg *clientConfig, fn func(ctx context.Context, c *cli.Command, cl *client) error) cli.ActionFunc {
	return func(ctx context.Context, c *cli.Command) error {
		cl, err := cfg.open(ctx, c)
		if err != nil {
			return err
		}
		defer cl.Close()
		return fn(ctx, c, cl)
	}
}

func cmdNotesList(cfg *clientConfig) *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List notes, newest first",
		Action: withClient(cfg, func(ctx context.Context, c *cli.Command, cl *client) error {
			return cl.run(ctx, func(ctx context.Context, s *model.Session) error {
				notes, err := cl.uc.Note.LoadNotes(ctx, s)
				if err != nil {
					return err
				}
				if len(notes) == 0 {
					cl.println("No notes yet. Record or type a note to get started.")
					return nil
				}

				tw := tabwriter.NewWriter(cl.stdout, 0, 4, 2, ' ', 0)
				_, _ = fmt.Fprintln(tw, "ID\tPATIENT\tCREATED\tSYMPTOMS")
				for _, note := range notes {
					created := "-"
					if note.CreatedAt != nil {
						created = note.CreatedAt.Format("2006-01-02 15:04")
					}
					var symptoms []string
					if note.Summary != nil {
						symptoms = note.Summary.Symptoms
					}
					_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", note.ID, note.PatientName(), created, strings.Join(symptoms, ", "))
				}
				return tw.Flush()
			})
		}),
	}
}

func cmdNotesShow(cfg *clientConfig) *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "Show the summary and follow-up actions of a note",
		ArgsUsage: "<note-id>",
		Action: withClient(cfg, func(ctx context.Context, c *cli.Command, cl *client) error {
			id, err := noteIDArg(c)
			if err != nil {
				return err
			}
			return cl.run(ctx, func(ctx context.Context, s *model.Session) error {
				open, err := cl.uc.Note.OpenNote(ctx, s, id)
				if err != nil {
					return err
				}
				return cl.printJSON(open)
			})
		}),
	}
}

func cmdNotesSave(cfg *clientConfig) *cli.Command {
	return &cli.Command{
		Name:      "save",
		Usage:     "Save a note, or the note being edited in the session. Reads stdin without arguments",
		ArgsUsage: "[text...]",
		Action: withClient(cfg, func(ctx context.Context, c *cli.Command, cl *client) error {
			text, err := textArg(c)
			if err != nil {
				return err
			}
			return cl.run(ctx, func(ctx context.Context, s *model.Session) error {
				note, err := cl.uc.Note.Submit(ctx, s, text)
				if err != nil {
					return err
				}
				cl.println(note.ID.String())
				return nil
			})
		}),
	}
}

func cmdNotesEdit(cfg *clientConfig) *cli.Command {
	var cancel bool

	return &cli.Command{
		Name:      "edit",
		Usage:     "Replace the text of a note. Without text, starts editing it in the session and prints its original",
		ArgsUsage: "<note-id> [text...]",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "cancel",
				Usage:       "Abandon the edit in progress",
				Destination: &cancel,
			},
		},
		Action: withClient(cfg, func(ctx context.Context, c *cli.Command, cl *client) error {
			return cl.run(ctx, func(ctx context.Context, s *model.Session) error {
				if cancel {
					cl.uc.Note.CancelEditingNote(ctx, s)
					return nil
				}

				id, err := noteIDArg(c)
				if err != nil {
					return err
				}
				if c.Args().Len() < 2 {
					note, err := cl.uc.Note.StartEditingNote(ctx, s, id)
					if err != nil {
						return err
					}
					cl.println(note.Original)
					return nil
				}

				text := strings.Join(c.Args().Tail(), " ")
				if _, err := cl.uc.Note.SaveEditedNote(ctx, s, id, text); err != nil {
					return err
				}
				return nil
			})
		}),
	}
}

func cmdNotesDelete(cfg *clientConfig) *cli.Command {
	var yes bool

	return &cli.Command{
		Name:      "delete",
		Usage:     "Delete a note",
		ArgsUsage: "<note-id>",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "yes",
				Aliases:     []string{"y"},
				Usage:       "Confirm the deletion",
				Destination: &yes,
			},
		},
		Action: withClient(cfg, func(ctx context.Context, c *cli.Command, cl *client) error {
			id, err := noteIDArg(c)
			if err != nil {
				return err
			}
			return cl.run(ctx, func(ctx context.Context, s *model.Session) error {
				return cl.uc.Note.DeleteNote(ctx, s, id, yes)
			})
		}),
	}
}

func cmdNotesSummaryEdit(cfg *clientConfig) *cli.Command {
	var file string

	return &cli.Command{
		Name:      "summary-edit",
		Usage:     "Print the editable summary document of a note, or apply an edited one with --file",
		ArgsUsage: "<note-id>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "file",
				Aliases:     []string{"f"},
				Usage:       "Edited summary document (HTML)",
				Destination: &file,
			},
		},
		Action: withClient(cfg, func(ctx context.Context, c *cli.Command, cl *client) error {
			id, err := noteIDArg(c)
			if err != nil {
				return err
			}

			return cl.run(ctx, func(ctx context.Context, s *model.Session) error {
				if _, err := cl.uc.Note.OpenNote(ctx, s, id); err != nil {
					return err
				}
				doc, err := cl.uc.Note.BeginSummaryEdit(ctx, s, id)
				if err != nil {
					return err
				}

				if file == "" {
					cl.uc.Note.CancelSummaryEdit(ctx, s, id)
					cl.println(doc)
					return nil
				}

				edited, err := readFile(ctx, file)
				if err != nil {
					return err
				}
				summary, err := cl.uc.Note.SaveEditedSummary(ctx, s, id, string(edited))
				if err != nil {
					return err
				}
				return cl.printJSON(summary)
			})
		}),
	}
}

func cmdNotesExport(cfg *clientConfig) *cli.Command {
	var format, output string

	return &cli.Command{
		Name:      "export",
		Usage:     "Download the summary of a note as HTML or Markdown",
		ArgsUsage: "<note-id>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "format",
				Usage:       "Export format [html|markdown]",
				Value:       string(types.ExportFormatHTML),
				Destination: &format,
			},
			&cli.StringFlag{
				Name:        "output",
				Aliases:     []string{"o"},
				Usage:       "Output path. Defaults to the export file name in the current directory",
				Destination: &output,
			},
		},
		Action: withClient(cfg, func(ctx context.Context, c *cli.Command, cl *client) error {
			id, err := noteIDArg(c)
			if err != nil {
				return err
			}
			f, err := types.ParseExportFormat(format)
			if err != nil {
				return err
			}

			return cl.run(ctx, func(ctx context.Context, s *model.Session) error {
				exp, err := cl.uc.Note.ExportSummary(ctx, s, id, f)
				if err != nil {
					return err
				}
				return cl.save(exp, output)
			})
		}),
	}
}

// save writes an export to path, or to its own file name when path is empty
func (cl *client) save(exp *summarydoc.Export, path string) error {
	if path == "" {
		path = exp.Filename
	}
	if err := os.WriteFile(filepath.Clean(path), exp.Body, 0600); err != nil {
		return goerr.Wrap(err, "failed to write export", goerr.V("path", path))
	}
	cl.println(path)
	return nil
}

func readFile(ctx context.Context, path string) ([]byte, error) {
	// #nosec G304 - path is expected to be provided by CLI argument
	f, err := os.Open(path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open file", goerr.V("path", path))
	}
	defer safe.Close(ctx, f)

	data, err := safe.ReadAll(f, maxInputText)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read file", goerr.V("path", path))
	}
	return data, nil
}
