package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/archivist/internal/domain"
	searchuc "github.com/kailas-cloud/archivist/internal/usecase/search"
)

func newSearchCmd(o *rootOptions) *cobra.Command {
	var (
		limit      int
		sourceName string
		asJSON     bool
	)

	cmd := &cobra.Command{
		Use:   "search QUERY...",
		Short: "Search the archive by meaning",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit < 0 {
				return fmt.Errorf("-n must be positive, got %d", limit)
			}
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

			results, err := app.Searcher.Search(cmd.Context(), strings.Join(args, " "), limit, source)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				if results == nil {
					results = []searchuc.Result{}
				}
				b, err := json.MarshalIndent(results, "", "  ")
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintln(out, string(b))
				return nil
			}
			if len(results) == 0 {
				_, _ = fmt.Fprintln(out, "No results.")
				return nil
			}
			_, _ = fmt.Fprintln(out, searchuc.Format(results))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Number of results (default from config)")
	cmd.Flags().StringVarP(&sourceName, "source", "s", "", "Restrict to one source: "+sourceList())
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print results as JSON")
	return cmd
}

func sourceList() string {
	return strings.Join(domain.SourceNames(), ", ")
}
