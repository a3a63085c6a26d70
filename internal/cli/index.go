package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/archivist/internal/domain"
	"github.com/kailas-cloud/archivist/internal/domain/run"
	"github.com/kailas-cloud/archivist/internal/parser"
	"github.com/kailas-cloud/archivist/internal/watch"
)

func newIndexCmd(o *rootOptions) *cobra.Command {
	var (
		sourceName string
		watchMode  bool
	)

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Index new documents from the archive",
		Long: "Parses every configured source, skips documents that are already indexed " +
			"and embeds the rest. With --watch, keeps running and re-indexes a source " +
			"whenever its files change.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var source *domain.Source
			if sourceName != "" {
				src, err := domain.ParseSource(sourceName)
				if err != nil {
					return err
				}
				source = &src
			}

			app, err := o.app(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			out := cmd.OutOrStdout()
			if source != nil {
				rep, err := app.Indexer.IndexSource(cmd.Context(), *source)
				if err != nil {
					return err
				}
				printReports(out, []run.Report{rep})
			} else {
				reports, err := app.Indexer.IndexAll(cmd.Context())
				printReports(out, reports)
				if err != nil {
					return err
				}
			}

			if !watchMode {
				return nil
			}

			w := watch.New(app.Indexer, watchedReaders(app.Readers, source),
				time.Duration(app.Config.Watch.DebounceMs)*time.Millisecond, app.Logger)
			w.OnReport = func(r run.Report) { printReports(out, []run.Report{r}) }
			_, _ = fmt.Fprintln(out, "Watching for changes (Ctrl+C to stop)...")
			return w.Run(cmd.Context())
		},
	}

	cmd.Flags().StringVarP(&sourceName, "source", "s", "", "Index only this source: "+sourceList())
	cmd.Flags().BoolVarP(&watchMode, "watch", "w", false, "Keep running and re-index on file changes")
	return cmd
}

func watchedReaders(readers []parser.Reader, source *domain.Source) []parser.Reader {
	if source == nil {
		return readers
	}
	var out []parser.Reader
	for _, r := range readers {
		if r.Source() == *source {
			out = append(out, r)
		}
	}
	return out
}

// printReports writes one summary line per source report.
func printReports(w io.Writer, reports []run.Report) {
	for _, r := range reports {
		_, _ = fmt.Fprintf(w, "%s: found %d / already indexed %d / added %d (%d chunks",
			r.Source, r.Found, r.AlreadyIndexed, r.Added, r.Chunks)
		if r.Summarized > 0 {
			_, _ = fmt.Fprintf(w, ", %d summarized", r.Summarized)
		}
		if r.Failed > 0 {
			_, _ = fmt.Fprintf(w, ", %d failed", r.Failed)
		}
		if r.Unparsed > 0 {
			_, _ = fmt.Fprintf(w, ", %d unparsed", r.Unparsed)
		}
		_, _ = fmt.Fprintln(w, ")")
	}
}
