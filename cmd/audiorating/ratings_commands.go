package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"audiorating/internal/api"
	"audiorating/internal/export"
	"audiorating/internal/fileutil"
	"audiorating/internal/rating"
	"audiorating/internal/store"
	"audiorating/internal/textutil"
)

func newRatingsCommand(ctx *commandContext) *cobra.Command {
	ratingsCmd := &cobra.Command{
		Use:   "ratings",
		Short: "Export, inspect and submit ratings",
	}

	ratingsCmd.AddCommand(newRatingsExportCommand(ctx))
	ratingsCmd.AddCommand(newRatingsShowCommand(ctx))
	ratingsCmd.AddCommand(newRatingsSubmitCommand(ctx))

	return ratingsCmd
}

func newRatingsExportCommand(ctx *commandContext) *cobra.Command {
	var study string
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a study's ratings as CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			nameShort := strings.TrimSpace(study)
			if nameShort == "" {
				return errors.New("--study is required")
			}
			return ctx.withStore(func(st *store.Store) error {
				records, err := st.RatingsForStudy(cmd.Context(), nameShort)
				if err != nil {
					return err
				}
				target := strings.TrimSpace(output)
				if target == "-" {
					return export.WriteStudyCSV(cmd.OutOrStdout(), records)
				}
				if target == "" {
					target = textutil.SanitizeFileName(nameShort) + "_ratings.csv"
				} else if info, statErr := os.Stat(target); statErr == nil && info.IsDir() {
					target = filepath.Join(target, textutil.SanitizeFileName(nameShort)+"_ratings.csv")
				}
				err = fileutil.WriteAtomicFunc(target, 0o644, func(w io.Writer) error {
					return export.WriteStudyCSV(w, records)
				})
				if err != nil {
					return fmt.Errorf("export %s: %w", nameShort, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Exported %d ratings to %s\n", len(records), target)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&study, "study", "", "Study short name")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Destination file or directory (- for stdout)")
	return cmd
}

func newRatingsShowCommand(ctx *commandContext) *cobra.Command {
	var study string
	var uid string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "List stored ratings of a study",
		RunE: func(cmd *cobra.Command, args []string) error {
			nameShort := strings.TrimSpace(study)
			if nameShort == "" {
				return errors.New("--study is required")
			}
			filter := strings.TrimSpace(uid)
			return ctx.withStore(func(st *store.Store) error {
				records, err := st.RatingsForStudy(cmd.Context(), nameShort)
				if err != nil {
					return err
				}
				rows := make([][]string, 0, len(records))
				for _, rec := range records {
					if filter != "" && rec.ParticipantID != filter {
						continue
					}
					rows = append(rows, []string{
						rec.ParticipantID,
						rec.DisplayName,
						rec.Dimension,
						strconv.Itoa(len(rec.Segments)),
						segmentValues(rec.Segments),
						rec.UpdatedAt.Local().Format("2006-01-02 15:04"),
					})
				}
				out := cmd.OutOrStdout()
				if len(rows) == 0 {
					fmt.Fprintln(out, "No ratings found")
					return nil
				}
				fmt.Fprintln(out, renderTable(
					[]string{"Participant", "Song", "Dimension", "Segments", "Values", "Updated"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&study, "study", "", "Study short name")
	cmd.Flags().StringVar(&uid, "uid", "", "Only show this participant")
	return cmd
}

func segmentValues(segments []rating.Segment) string {
	values := make([]string, len(segments))
	for i, seg := range segments {
		values[i] = strconv.Itoa(seg.Value)
	}
	return strings.Join(values, " ")
}

// newRatingsSubmitCommand posts a ratings file to the backend named by
// client.backend_url. Without --uid or client.participant_id a fresh
// participant id is generated.
func newRatingsSubmitCommand(ctx *commandContext) *cobra.Command {
	var study string
	var uid string
	var song string
	var file string

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit one recording's ratings to the backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			nameShort := strings.TrimSpace(study)
			mediaURL := strings.TrimSpace(song)
			if nameShort == "" || mediaURL == "" || strings.TrimSpace(file) == "" {
				return errors.New("--study, --song and --file are required")
			}
			participant := strings.TrimSpace(uid)
			if participant == "" {
				participant = cfg.Client.ParticipantID
			}
			if participant == "" {
				participant = uuid.NewString()
				fmt.Fprintf(cmd.ErrOrStderr(), "Generated participant id %s\n", participant)
			}

			payload, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("read ratings: %w", err)
			}
			var data rating.DimensionData
			if err := json.Unmarshal(payload, &data); err != nil {
				return fmt.Errorf("decode ratings %s: %w", file, err)
			}

			client, err := ctx.client()
			if err != nil {
				return err
			}
			definition, err := client.FetchStudy(cmd.Context(), nameShort, participant)
			if err != nil {
				return err
			}
			index := -1
			for i, s := range definition.SongsToRate {
				if s.MediaURL == mediaURL {
					index = i
					break
				}
			}
			if index < 0 {
				return fmt.Errorf("study %s has no song %q", nameShort, mediaURL)
			}

			op, err := client.Submit(cmd.Context(), api.NewSubmission(participant, nameShort, index, mediaURL, data))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Ratings %s for %s (%s)\n", op, mediaURL, participant)
			return nil
		},
	}

	cmd.Flags().StringVar(&study, "study", "", "Study short name")
	cmd.Flags().StringVar(&uid, "uid", "", "Participant id")
	cmd.Flags().StringVar(&song, "song", "", "Media URL of the rated recording")
	cmd.Flags().StringVarP(&file, "file", "f", "", "JSON file mapping dimension titles to segments")
	return cmd
}
