package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"audiorating/internal/api"
	"audiorating/internal/store"
)

func newProgressCommand(ctx *commandContext) *cobra.Command {
	var study string
	var uid string
	var remote bool
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "progress",
		Short: "Show a participant's per-recording completion",
		RunE: func(cmd *cobra.Command, args []string) error {
			nameShort := strings.TrimSpace(study)
			participant := strings.TrimSpace(uid)
			if nameShort == "" || participant == "" {
				return errors.New("--study and --uid are required")
			}

			var progress api.ProgressResponse
			if remote {
				client, err := ctx.client()
				if err != nil {
					return err
				}
				if progress, err = client.Progress(cmd.Context(), nameShort, participant); err != nil {
					return err
				}
			} else {
				err := ctx.withStore(func(st *store.Store) error {
					songs, err := st.Progress(cmd.Context(), nameShort, participant)
					if err != nil {
						return err
					}
					progress = api.FromProgress(nameShort, participant, songs)
					return nil
				})
				if err != nil {
					return err
				}
			}

			if asJSON {
				return writeJSON(cmd, progress)
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			rows := make([][]string, 0, len(progress.Songs))
			for _, song := range progress.Songs {
				rows = append(rows, []string{
					strconv.Itoa(song.SongIndex + 1),
					song.DisplayName,
					renderCompletion(song.Status, colorize),
					strings.Join(song.Missing, ", "),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"#", "Song", "Status", "Missing"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft},
			))
			fmt.Fprintf(out, "Can finish: %s\n", yesNo(progress.CanFinish))
			return nil
		},
	}

	cmd.Flags().StringVar(&study, "study", "", "Study short name")
	cmd.Flags().StringVar(&uid, "uid", "", "Participant id")
	cmd.Flags().BoolVar(&remote, "remote", false, "Ask the backend at client.backend_url instead of the local database")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output JSON")
	return cmd
}
