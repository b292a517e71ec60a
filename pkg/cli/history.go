package cli

import (
	"context"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/medinotes/pkg/domain/model"
	"github.com/urfave/cli/v3"
)

func cmdHistory() *cli.Command {
	var cfg clientConfig

	return &cli.Command{
		Name:  "history",
		Usage: "Previous visit history of the patient being documented",
		Flags: cfg.Flags(),
		Commands: []*cli.Command{
			{
				Name:      "lookup",
				Usage:     "Find the previous history of the patient named in a transcript. Reads stdin without arguments",
				ArgsUsage: "[transcript...]",
				Action: withClient(&cfg, func(ctx context.Context, c *cli.Command, cl *client) error {
					transcript, err := textArg(c)
					if err != nil {
						return err
					}
					return cl.run(ctx, func(ctx context.Context, s *model.Session) error {
						history, err := cl.uc.History.LookupHistory(ctx, s, transcript)
						if err != nil {
							return err
						}
						if history == nil {
							cl.println("No previous history found.")
							return nil
						}
						return cl.printJSON(history)
					})
				}),
			},
			{
				Name:  "clear",
				Usage: "Dismiss the history imported into the session",
				Action: withClient(&cfg, func(ctx context.Context, c *cli.Command, cl *client) error {
					return cl.run(ctx, func(ctx context.Context, s *model.Session) error {
						cl.uc.History.ClearImportedHistory(ctx, s)
						return nil
					})
				}),
			},
		},
	}
}

func cmdEfficacy() *cli.Command {
	var cfg clientConfig

	return &cli.Command{
		Name:      "efficacy",
		Usage:     "Analyze treatment efficacy across the visits of a patient",
		ArgsUsage: "<patient name...>",
		Flags:     cfg.Flags(),
		Action: withClient(&cfg, func(ctx context.Context, c *cli.Command, cl *client) error {
			name := strings.Join(c.Args().Slice(), " ")
			if strings.TrimSpace(name) == "" {
				return goerr.New("patient name is required")
			}
			return cl.run(ctx, func(ctx context.Context, s *model.Session) error {
				analysis, err := cl.uc.History.AnalyzeTreatmentEfficacy(ctx, s, name)
				if err != nil {
					return err
				}
				return cl.printJSON(analysis)
			})
		}),
	}
}
