// Copyright 2026 The GeoRoute Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/georoute/georoute/geocode"
)

var (
	serveAddr     string
	serveProvider string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the local resolution and cache-admin API",
	RunE: func(_ *cobra.Command, _ []string) error {
		path, err := cachePath()
		if err != nil {
			return err
		}

		cache, err := geocode.OpenCache(path)
		if err != nil {
			return fmt.Errorf("opening cache: %w", err)
		}
		defer cache.Close()

		provider, err := newProvider(serveProvider)
		if err != nil {
			return err
		}

		resolver := geocode.NewResolver(provider, cache, logSink)

		return geocode.NewServer(resolver, cache).Run(serveAddr)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.PersistentFlags().StringVar(
		&serveAddr,
		"addr",
		"localhost:8080",
		"Address to listen on",
	)
	serveCmd.PersistentFlags().StringVar(
		&serveProvider,
		"provider",
		geocode.ProviderNominatim,
		"Geocoding provider: nominatim or google_maps",
	)
}
