package cli

import (
	"context"

	"github.com/secmon-lab/medinotes/pkg/domain/model"
	"github.com/urfave/cli/v3"
)

func cmdFollowUp() *cli.Command {
	var cfg clientConfig

	return &cli.Command{
		Name:    "followup",
		Aliases: []string{"f"},
		Usage:   "Follow-up actions of a note",
		Flags:   cfg.Flags(),
		Commands: []*cli.Command{
			{
				Name:      "get",
				Usage:     "Show the follow-up actions of a note",
				ArgsUsage: "<note-id>",
				Action: withClient(&cfg, func(ctx context.Context, c *cli.Command, cl *client) error {
					id, err := noteIDArg(c)
					if err != nil {
						return err
					}
					return cl.run(ctx, func(ctx context.Context, s *model.Session) error {
						set, err := cl.uc.FollowUp.GetFollowUp(ctx, s, id)
						if err != nil {
							return err
						}
						if set == nil {
							cl.println("No follow-up actions yet. Generate them with `followup generate`.")
							return nil
						}
						return cl.printJSON(set)
					})
				}),
			},
			{
				Name:      "generate",
				Usage:     "Generate follow-up actions for a note",
				ArgsUsage: "<note-id>",
				Action: withClient(&cfg, func(ctx context.Context, c *cli.Command, cl *client) error {
					id, err := noteIDArg(c)
					if err != nil {
						return err
					}
					return cl.run(ctx, func(ctx context.Context, s *model.Session) error {
						set, err := cl.uc.FollowUp.GenerateFollowUp(ctx, s, id)
						if err != nil {
							return err
						}
						return cl.printJSON(set)
					})
				}),
			},
			cmdFollowUpExport(&cfg),
		},
	}
}

func cmdFollowUpExport(cfg *clientConfig) *cli.Command {
	var output string

	return &cli.Command{
		Name:      "export",
		Usage:     "Download the follow-up actions of a note as HTML",
		ArgsUsage: "<note-id>",
		Flags: []cli.Flag{
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
			return cl.run(ctx, func(ctx context.Context, s *model.Session) error {
				exp, err := cl.uc.FollowUp.ExportFollowUp(ctx, s, id)
				if err != nil {
					return err
				}
				return cl.save(exp, output)
			})
		}),
	}
}
