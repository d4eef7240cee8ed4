// Copyright 2026 The GeoRoute Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/georoute/georoute/geocode"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and prune the resolution cache",
}

func withCache(fn func(cache *geocode.Cache) error) error {
	path, err := cachePath()
	if err != nil {
		return err
	}

	cache, err := geocode.OpenCache(path)
	if err != nil {
		return fmt.Errorf("opening cache: %w", err)
	}
	defer cache.Close()

	return fn(cache)
}

var cachePathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the cache location",
	RunE: func(_ *cobra.Command, _ []string) error {
		path, err := cachePath()
		if err != nil {
			return err
		}

		fmt.Println(path)

		return nil
	},
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats [region]",
	Short: "Show entry counts, optionally scoped to a region",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		return withCache(func(cache *geocode.Cache) error {
			region := ""
			if len(args) > 0 {
				region = args[0]
			}

			stats, err := cache.Stats(region)
			if err != nil {
				return err
			}

			fmt.Printf("entries: %d\nsuccessful: %d\nfailed: %d\n",
				stats.Total, stats.Successful, stats.Failed)

			return nil
		})
	},
}

var cacheClearKeyCmd = &cobra.Command{
	Use:   "clear-key <normalized-address>",
	Short: "Remove a single cache entry so it is re-resolved",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		return withCache(func(cache *geocode.Cache) error {
			removed, err := cache.ClearKey(args[0])
			if err != nil {
				return err
			}

			if !removed {
				fmt.Printf("no entry for %q\n", args[0])
			} else {
				fmt.Println("removed 1 entry")
			}

			return nil
		})
	},
}

var cacheClearRegionCmd = &cobra.Command{
	Use:   "clear-region <region>",
	Short: "Remove every cache entry for a region code",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		return withCache(func(cache *geocode.Cache) error {
			removed, err := cache.ClearRegion(args[0])
			if err != nil {
				return err
			}

			fmt.Printf("removed %d entries for %s\n", removed, strings.ToUpper(args[0]))

			return nil
		})
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every cache entry",
	RunE: func(_ *cobra.Command, _ []string) error {
		return withCache(func(cache *geocode.Cache) error {
			removed, err := cache.Clear()
			if err != nil {
				return err
			}

			fmt.Printf("removed %d entries\n", removed)

			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheClearCmd)
	cacheCmd.AddCommand(cachePathCmd)
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheClearKeyCmd)
	cacheCmd.AddCommand(cacheClearRegionCmd)
}
