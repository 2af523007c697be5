// Copyright 2025 The PeopleBlood Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/peopleblood/peopleblood/locator"
	"github.com/spf13/cobra"
)

var geocodeCmd = &cobra.Command{
	Use:   "geocode <address>",
	Short: "Resolve an address to coordinates, using the local cache",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		resolver, closeStore, err := newResolver(ctx, nil)
		if err != nil {
			return err
		}
		defer closeStore()

		address := strings.Join(args, " ")

		p, err := resolver.ResolveAddress(ctx, address)
		if err != nil {
			return err
		}

		fmt.Printf("%s\t%f\t%f\n", address, p.Lat(), p.Lng())

		return nil
	},
}

var reverseCmd = &cobra.Command{
	Use:   "reverse <lat> <lng>",
	Short: "Describe the address at the given coordinates",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		lat, lng, err := parseLatLng(args[0], args[1])
		if err != nil {
			return err
		}

		ctx := cmd.Context()

		resolver, closeStore, err := newResolver(ctx, nil)
		if err != nil {
			return err
		}
		defer closeStore()

		fmt.Println(resolver.ResolveCoordinatesToAddress(ctx, lat, lng))

		return nil
	},
}

var locateOptions struct {
	Lat, Lng float64
	IP       bool
	Reverse  bool
}

var locateCmd = &cobra.Command{
	Use:   "locate",
	Short: "Determine the current position of this device",
	Long: `
Determines the current position from --lat/--lng or, with --ip, from the
public IP address of this machine. With --reverse the position is also
described as an address.
`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		var device locator.DeviceLocator

		switch {
		case locateOptions.IP:
			device = locator.NewIPLocator(cfg.IPLocatorURL, nil)
		case cmd.Flags().Changed("lat") && cmd.Flags().Changed("lng"):
			device = locator.StaticLocator{Position: locator.Position{
				Latitude:  locateOptions.Lat,
				Longitude: locateOptions.Lng,
			}}
		}

		resolver, closeStore, err := newResolver(ctx, device)
		if err != nil {
			return err
		}
		defer closeStore()

		p, err := resolver.RequestDeviceLocation(ctx)
		if err != nil {
			if errors.Is(err, locator.ErrUnsupported) {
				return fmt.Errorf("%w (use --ip or --lat/--lng)", err)
			}

			return err
		}

		fmt.Printf("%f\t%f\n", p.Lat(), p.Lng())

		if locateOptions.Reverse {
			fmt.Println(resolver.ResolveCoordinatesToAddress(ctx, p.Lat(), p.Lng()))
		}

		return nil
	},
}

func parseLatLng(latArg, lngArg string) (float64, float64, error) {
	lat, err := strconv.ParseFloat(latArg, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid latitude %q: %w", latArg, err)
	}

	lng, err := strconv.ParseFloat(lngArg, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid longitude %q: %w", lngArg, err)
	}

	return lat, lng, nil
}

func init() {
	rootCmd.AddCommand(geocodeCmd)
	rootCmd.AddCommand(reverseCmd)
	rootCmd.AddCommand(locateCmd)

	locateCmd.Flags().Float64Var(&locateOptions.Lat, "lat", 0, "Latitude of the device")
	locateCmd.Flags().Float64Var(&locateOptions.Lng, "lng", 0, "Longitude of the device")
	locateCmd.Flags().BoolVar(&locateOptions.IP, "ip", false, "Approximate the position from the public IP address")
	locateCmd.Flags().BoolVar(&locateOptions.Reverse, "reverse", false, "Also print the address of the position")
}
