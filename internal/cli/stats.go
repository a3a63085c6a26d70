package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/archivist/internal/domain/run"
	searchuc "github.com/kailas-cloud/archivist/internal/usecase/search"
)

const recentRuns = 5

func newStatsCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show index contents and recent runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := o.app(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			st, err := app.Searcher.Stats(cmd.Context())
			if err != nil {
				return err
			}

			var runs []run.Report
			if app.History != nil {
				runs, err = app.History.Recent(cmd.Context(), recentRuns)
				if err != nil {
					return err
				}
			}

			printStats(cmd.OutOrStdout(), st, runs)
			return nil
		},
	}
}

func printStats(w io.Writer, st searchuc.Stats, runs []run.Report) {
	_, _ = fmt.Fprintf(w, "Total chunks: %d\n", st.Total)
	for _, sc := range st.BySource {
		_, _ = fmt.Fprintf(w, "  %-8s %d\n", sc.Source, sc.Chunks)
	}

	if len(st.Samples) > 0 {
		_, _ = fmt.Fprintln(w, "\nSamples:")
		for _, s := range st.Samples {
			_, _ = fmt.Fprintf(w, "  [%s] %s (%s, %s)\n    %s\n", s.ID, s.Title, s.Source, s.Strategy, s.Excerpt)
		}
	}

	if len(runs) > 0 {
		_, _ = fmt.Fprintln(w, "\nRecent runs:")
		for _, r := range runs {
			_, _ = fmt.Fprintf(w, "  %s %s %-8s added %d, chunks %d, failed %d\n",
				r.StartedAt.Local().Format("2006-01-02 15:04"), r.RunID, r.Source, r.Added, r.Chunks, r.Failed)
		}
	}
}
