package main

import (
	"os"
	"strings"
	"sync/atomic"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/location-search/internal/observability"
	"github.com/couchcryptid/location-search/internal/search"
)

var searchJSON bool

var searchCmd = &cobra.Command{
	Use:   "search <text>...",
	Short: "Print place suggestions for a query",
	Long: `Prints the autocomplete suggestions for the given text, joined with spaces.

$ locsearch search avenida paulista
1  Avenida Paulista  São Paulo - SP, Brasil  ChIJ0WGkg4FEzpQRrlsz_whLqZs
`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(observability.NewLogger, localCacheSize)
		if err != nil {
			return err
		}

		var failed atomic.Bool
		handlers := terminalHandlers()
		report := handlers.OnError
		handlers.OnError = func(n search.Notification) {
			failed.Store(true)
			report(n)
		}
		ctrl := a.newController(handlers)
		defer ctrl.Close()

		q := strings.Join(args, " ")
		stop := startSpinner(q)
		ctrl.Search(q)
		snap, err := ctrl.Await(cmd.Context(), q)
		ctrl.Wait()
		stop()
		if err != nil {
			return err
		}
		if failed.Load() {
			return errReported
		}

		if searchJSON {
			return printJSON(os.Stdout, snap)
		}
		return printSuggestions(os.Stdout, snap.Suggestions)
	},
}

func init() {
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "print the suggestions as JSON")
	rootCmd.AddCommand(searchCmd)
}
