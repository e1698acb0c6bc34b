package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"world-quiz-service/internal/catalog"
	"world-quiz-service/internal/worldmap"
)

// NewValidateMapCmd checks that every catalog id has a path in the map asset.
func NewValidateMapCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "validate-map [svg]",
		Short: "Check the map asset against the country catalog",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			return runValidateMap(cmd.Context(), cmd, *configPath, path)
		},
	}
}

func runValidateMap(ctx context.Context, cmd *cobra.Command, configPath, path string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if path == "" {
		path = cfg.Map.Path
	}
	if path == "" {
		return fmt.Errorf("no map asset given and map.path not configured")
	}

	b, err := openBackends(ctx, cfg)
	if err != nil {
		return err
	}
	defer b.close()

	countries, err := b.catalogLoader(cfg).LoadCountries(ctx)
	if err != nil {
		return err
	}
	cat, err := catalog.New(countries)
	if err != nil {
		return err
	}
	asset, err := worldmap.LoadFile(path)
	if err != nil {
		return err
	}

	report := asset.Validate(cat.IDs())
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "catalog: %d countries, map: %d paths with ids\n", cat.Size(), len(asset.IDs()))
	if len(report.Unknown) > 0 {
		fmt.Fprintf(out, "paths outside the catalog (stay neutral): %s\n", strings.Join(report.Unknown, ", "))
	}
	for _, s := range cat.Shadowed() {
		fmt.Fprintf(out, "name %q of %s already resolves to %s\n", s.Name, s.CountryID, s.ClaimedBy)
	}
	if !report.OK() {
		return fmt.Errorf("%w: %d catalog ids missing from map: %s", worldmap.ErrInvalidAsset, len(report.Missing), strings.Join(report.Missing, ", "))
	}
	fmt.Fprintln(out, "ok")
	return nil
}
