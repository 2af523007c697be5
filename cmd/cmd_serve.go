// Copyright 2025 The PeopleBlood Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/peopleblood/peopleblood/locator"
	"github.com/peopleblood/peopleblood/server"
	"github.com/peopleblood/peopleblood/telemetry"
	"github.com/spf13/cobra"
)

var serveOptions struct {
	Listen   string
	IPDevice bool
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the geocoding and blood bank JSON API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		shutdown, err := telemetry.Setup(ctx, "pblood", Version, cfg.OTelEndpoint)
		if err != nil {
			return err
		}
		defer func() {
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			if err := shutdown(flushCtx); err != nil {
				logger.WithError(err).Warn("flushing traces")
			}
		}()

		var device locator.DeviceLocator
		if serveOptions.IPDevice {
			device = locator.NewIPLocator(cfg.IPLocatorURL, nil)
		}

		resolver, closeStore, err := newResolver(ctx, device)
		if err != nil {
			return err
		}
		defer closeStore()

		if !rootOpts.Verbose {
			gin.SetMode(gin.ReleaseMode)
		}

		addr := cfg.Listen
		if serveOptions.Listen != "" {
			addr = serveOptions.Listen
		}

		return server.NewServer(resolver, newBackend(), logger).Run(addr)
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Args:  cobra.NoArgs,
	Run: func(_ *cobra.Command, _ []string) {
		fmt.Println(Version)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)

	serveCmd.Flags().StringVar(&serveOptions.Listen, "listen", "", "Address to listen on (env PBLOOD_LISTEN)")
	serveCmd.Flags().BoolVar(&serveOptions.IPDevice, "ip-device", false, "Answer device location requests from the server's public IP")
}
