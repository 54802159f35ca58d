package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"audiorating/internal/api"
	"audiorating/internal/store"
	"audiorating/internal/studies"
)

func newStudiesCommand(ctx *commandContext) *cobra.Command {
	studiesCmd := &cobra.Command{
		Use:   "studies",
		Short: "Inspect and load study definitions",
	}

	studiesCmd.AddCommand(newStudiesValidateCommand(ctx))
	studiesCmd.AddCommand(newStudiesListCommand(ctx))
	studiesCmd.AddCommand(newStudiesSyncCommand(ctx))

	return studiesCmd
}

// studiesPath picks the explicit argument over paths.studies_config.
func (c *commandContext) studiesPath(args []string) (string, error) {
	if len(args) > 0 && strings.TrimSpace(args[0]) != "" {
		return strings.TrimSpace(args[0]), nil
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return "", err
	}
	return cfg.Paths.StudiesConfig, nil
}

func newStudiesValidateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "validate [path]",
		Short: "Validate a studies file without touching the database",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := ctx.studiesPath(args)
			if err != nil {
				return err
			}
			parsed, err := studies.Load(path)
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(parsed.Studies))
			for _, study := range parsed.Studies {
				participants := strconv.Itoa(len(study.ParticipantIDs))
				if study.AllowUnlistedParticipants {
					participants += " (open)"
				}
				rows = append(rows, []string{
					study.NameShort,
					study.Name,
					strconv.Itoa(len(study.Songs)),
					strconv.Itoa(len(study.RatingDimensions)),
					participants,
				})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Studies file: %s\n", path)
			fmt.Fprintln(out, renderTable(
				[]string{"Short name", "Name", "Songs", "Dimensions", "Participants"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignLeft},
			))
			fmt.Fprintf(out, "%d studies valid\n", len(parsed.Studies))
			return nil
		},
	}
}

func newStudiesSyncCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "sync [path]",
		Short: "Create studies from the studies file in the database",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := ctx.studiesPath(args)
			if err != nil {
				return err
			}
			parsed, err := studies.Load(path)
			if err != nil {
				return err
			}
			return ctx.withStore(func(st *store.Store) error {
				created, err := st.SyncStudies(cmd.Context(), parsed)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(created) == 0 {
					fmt.Fprintln(out, "No new studies")
					return nil
				}
				fmt.Fprintf(out, "Created studies: %s\n", strings.Join(created, ", "))
				return nil
			})
		},
	}
}

func newStudiesListCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List studies stored in the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(st *store.Store) error {
				summaries, err := st.ListStudies(cmd.Context())
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, api.FromSummaries(summaries))
				}
				out := cmd.OutOrStdout()
				if len(summaries) == 0 {
					fmt.Fprintln(out, "No studies found")
					return nil
				}
				rows := make([][]string, 0, len(summaries))
				for _, s := range summaries {
					rows = append(rows, []string{
						s.NameShort,
						s.Name,
						strconv.Itoa(s.SongCount),
						strconv.Itoa(s.DimensionCount),
						strconv.Itoa(s.ParticipantCount),
						strconv.Itoa(s.RatingCount),
						s.DataCollectionEnd.Format("2006-01-02"),
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"Short name", "Name", "Songs", "Dimensions", "Participants", "Ratings", "Closes"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight, alignLeft},
				))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output JSON")
	return cmd
}
