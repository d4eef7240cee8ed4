// Copyright 2026 The GeoRoute Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/georoute/georoute/geocode"
)

type resolveOptions struct {
	Workspace       string
	Provider        string
	Workers         int
	EnableHTTPTrace bool
}

var resolveOpts = &resolveOptions{}

var resolveCmd = &cobra.Command{
	Use:   "resolve <region>",
	Short: "Resolve a region's address file to coordinates",
	Long: `
Reads <workspace>/<REGION>/addresses.csv (columns: id, address, city, state,
zip), resolves each row and writes geocoded.csv and failures.csv next to the
input. Previously resolved addresses come from the cache without touching the
provider.
`,
	Args: cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		region := strings.ToUpper(strings.TrimSpace(args[0]))

		return runResolve(region)
	},
}

func newProvider(name string) (geocode.Provider, error) {
	var trace io.Writer
	if resolveOpts.EnableHTTPTrace {
		trace = os.Stderr
	}

	cfg := geocode.ProviderConfig{
		Email:     viper.GetString("nominatim.email"),
		UserAgent: viper.GetString("nominatim.useragent"),
		APIKey:    viper.GetString("googlemaps.apikey"),
		HTTPTrace: trace,
	}

	return geocode.NewProvider(name, cfg, logSink)
}

func runResolve(region string) error {
	dir := filepath.Join(resolveOpts.Workspace, region)

	in, err := os.Open(filepath.Join(dir, "addresses.csv"))
	if err != nil {
		return fmt.Errorf("opening address file: %w", err)
	}
	defer in.Close()

	records, err := geocode.ReadRecords(in)
	if err != nil {
		return fmt.Errorf("reading address file: %w", err)
	}

	path, err := cachePath()
	if err != nil {
		return err
	}

	cache, err := geocode.OpenCache(path)
	if err != nil {
		return fmt.Errorf("opening cache: %w", err)
	}
	defer cache.Close()

	provider, err := newProvider(resolveOpts.Provider)
	if err != nil {
		return err
	}

	resolver := geocode.NewResolver(provider, cache, logSink)

	workers := resolveOpts.Workers
	if workers <= 0 {
		workers = viper.GetInt("resolve.workers")
	}

	ctx, stop := interruptContext()
	defer stop()

	results, metrics, err := resolver.ResolveBatch(ctx, records, geocode.BatchOptions{
		Workers:     workers,
		Progress:    os.Stderr,
		Description: fmt.Sprintf("resolving %s", region),
	})
	if err != nil {
		return err
	}

	exports := geocode.BuildExports(results, logSink)

	if err := writeCSV(filepath.Join(dir, "geocoded.csv"), exports.WriteSuccessCSV); err != nil {
		return err
	}

	if err := writeCSV(filepath.Join(dir, "failures.csv"), exports.WriteFailureCSV); err != nil {
		return err
	}

	log.Printf(
		"Resolution metrics for %s - %d lookups, %d cache hits, %d newly geocoded, %d coarse, %d failed",
		region,
		metrics.Lookups,
		metrics.CacheHits,
		metrics.Geocoded,
		metrics.Coarse,
		metrics.Failed,
	)

	return nil
}

func writeCSV(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}

	if err := write(f); err != nil {
		f.Close()

		return fmt.Errorf("writing %s: %w", path, err)
	}

	return f.Close()
}

func init() {
	rootCmd.AddCommand(resolveCmd)
	resolveCmd.PersistentFlags().StringVar(
		&resolveOpts.Workspace,
		"workspace",
		".",
		"Base directory holding one subdirectory per region",
	)
	resolveCmd.PersistentFlags().StringVar(
		&resolveOpts.Provider,
		"provider",
		geocode.ProviderNominatim,
		"Geocoding provider: nominatim or google_maps",
	)
	resolveCmd.PersistentFlags().IntVar(
		&resolveOpts.Workers,
		"workers",
		0,
		"Number of concurrent resolvers. Defaults to the configured resolve.workers",
	)
	resolveCmd.PersistentFlags().BoolVar(
		&resolveOpts.EnableHTTPTrace,
		"trace-http",
		false,
		"Display HTTP requests-responses",
	)
}
