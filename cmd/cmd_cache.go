// Copyright 2025 The PeopleBlood Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/peopleblood/peopleblood/locator"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and maintain the geocoding cache",
}

var cacheListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the cached addresses",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		resolver, closeStore, err := newResolver(ctx, nil)
		if err != nil {
			return err
		}
		defer closeStore()

		entries := resolver.CacheEntries(ctx)

		a, b, c := strings.Repeat("─", 40), strings.Repeat("─", 24), strings.Repeat("─", 19)
		fmt.Printf("╭─%-40s─┬─%-24s─┬─%-19s─╮\n", a, b, c)
		fmt.Printf("│ %-40s │ %-24s │ %-19s │\n", "Address", "Lat, Lng", "Cached at")
		fmt.Printf("├─%-40s─┼─%-24s─┼─%-19s─┤\n", a, b, c)

		for _, e := range entries {
			stale := ""
			if time.Since(e.Timestamp) >= locator.MaxCacheAge {
				stale = " (stale)"
			}

			fmt.Printf("│ %-40.40s │ %11.6f, %11.6f │ %-19s │%s\n",
				e.Address, e.Coordinates.Lat(), e.Coordinates.Lng(),
				e.Timestamp.Format("2006-01-02 15:04:05"), stale)
		}

		fmt.Printf("╰─%-40s─┴─%-24s─┴─%-19s─╯\n", a, b, c)

		return nil
	},
}

var cacheSweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Remove entries older than 24 hours",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		// Building the resolver already sweeps once.
		resolver, closeStore, err := newResolver(ctx, nil)
		if err != nil {
			return err
		}
		defer closeStore()

		if _, err := resolver.SweepStaleCacheEntries(ctx); err != nil {
			return err
		}

		logger.Infof("%d entries left in the cache", len(resolver.CacheEntries(ctx)))

		return nil
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every cached entry",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		resolver, closeStore, err := newResolver(ctx, nil)
		if err != nil {
			return err
		}
		defer closeStore()

		return resolver.ClearCache(ctx)
	},
}

var cacheWarmDelay time.Duration

var cacheWarmCmd = &cobra.Command{
	Use:   "warm <file>",
	Short: "Geocode every address in file, one per line, filling the cache",
	Long: `
Geocodes every non blank line of file ("-" reads standard input). Addresses
already cached are not sent to the geocoding service. Lookups are spaced by
--delay to respect the usage policy of the public Nominatim instance.
`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		addresses, err := readLines(args[0])
		if err != nil {
			return err
		}

		ctx := cmd.Context()

		resolver, closeStore, err := newResolver(ctx, nil)
		if err != nil {
			return err
		}
		defer closeStore()

		var bar *progressbar.ProgressBar
		if isatty.IsTerminal(os.Stderr.Fd()) {
			bar = progressbar.NewOptions(len(addresses),
				progressbar.OptionSetDescription("Geocoding"),
				progressbar.OptionSetWriter(os.Stderr),
				progressbar.OptionShowCount(),
				progressbar.OptionClearOnFinish(),
			)
		}

		cached := make(map[string]bool)
		for _, e := range resolver.CacheEntries(ctx) {
			if time.Since(e.Timestamp) < locator.MaxCacheAge {
				cached[e.Address] = true
			}
		}

		var errs []error

		resolved := 0

		for i, address := range addresses {
			hit := cached[locator.NormalizeAddress(address)]

			if _, err := resolver.ResolveAddress(ctx, address); err != nil {
				errs = append(errs, err)
			} else {
				resolved++
			}

			if bar == nil {
				logger.WithField("address", address).Info("warming")
			} else if err := bar.Add(1); err != nil {
				errs = append(errs, fmt.Errorf("updating progress bar: %w", err))
			}

			if !hit && i < len(addresses)-1 && cacheWarmDelay > 0 {
				select {
				case <-ctx.Done():
					return errors.Join(append(errs, ctx.Err())...)
				case <-time.After(cacheWarmDelay):
				}
			}
		}

		for _, err := range errs {
			logger.WithError(err).Warn("warming failed")
		}

		logger.Infof("Cache warm complete - %d resolved, %d failed", resolved, len(errs))

		if len(errs) > 0 {
			return fmt.Errorf("%d of %d addresses failed", len(errs), len(addresses))
		}

		return nil
	},
}

func readLines(name string) ([]string, error) {
	f := os.Stdin

	if name != "-" {
		var err error
		if f, err = os.Open(name); err != nil {
			return nil, fmt.Errorf("opening %s: %w", name, err)
		}
		defer f.Close()
	}

	var lines []string

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" && !strings.HasPrefix(line, "#") {
			lines = append(lines, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}

	return lines, nil
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheListCmd)
	cacheCmd.AddCommand(cacheSweepCmd)
	cacheCmd.AddCommand(cacheClearCmd)
	cacheCmd.AddCommand(cacheWarmCmd)

	cacheWarmCmd.Flags().DurationVar(&cacheWarmDelay, "delay", time.Second, "Pause between uncached lookups")
}
