package main

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/location-search/internal/domain"
	"github.com/couchcryptid/location-search/internal/observability"
)

var (
	resolvePlaceID string
	resolveLat     float64
	resolveLng     float64
)

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Resolve a place ID or coordinates into a location",
	Long: `Resolves a place ID through Place Details, or a coordinate pair through
reverse geocoding, and prints the location as JSON.

$ locsearch resolve --place-id ChIJ0WGkg4FEzpQRrlsz_whLqZs
$ locsearch resolve --lat -23.5613 --lng -46.6565
`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		target, err := resolveTarget(cmd)
		if err != nil {
			return err
		}

		a, err := newApp(observability.NewLogger, localCacheSize)
		if err != nil {
			return err
		}
		ctrl := a.newController(terminalHandlers())
		defer ctrl.Close()

		stop := startSpinner(target.String())
		loc, err := ctrl.Select(cmd.Context(), target)
		stop()
		switch {
		case errors.Is(err, domain.ErrEmptyResolution):
			return nil
		case err != nil:
			return errReported
		}
		return printJSON(os.Stdout, loc)
	},
}

func resolveTarget(cmd *cobra.Command) (domain.Target, error) {
	flags := cmd.Flags()
	hasCoords := flags.Changed("lat") || flags.Changed("lng")
	switch {
	case resolvePlaceID != "" && hasCoords:
		return domain.Target{}, errors.New("use either --place-id or --lat/--lng")
	case resolvePlaceID != "":
		return domain.Target{PlaceID: resolvePlaceID}, nil
	case flags.Changed("lat") && flags.Changed("lng"):
		t := domain.CoordinateTarget(resolveLat, resolveLng)
		return t, t.Validate()
	default:
		return domain.Target{}, errors.New("--place-id or both --lat and --lng are required")
	}
}

func init() {
	resolveCmd.Flags().StringVar(&resolvePlaceID, "place-id", "", "Google place ID")
	resolveCmd.Flags().Float64Var(&resolveLat, "lat", 0, "latitude")
	resolveCmd.Flags().Float64Var(&resolveLng, "lng", 0, "longitude")
	rootCmd.AddCommand(resolveCmd)
}
