// Copyright 2025 The PeopleBlood Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/peopleblood/peopleblood/bloodbank"
	"github.com/peopleblood/peopleblood/spatial"
	"github.com/peopleblood/peopleblood/utils/textutils"
	"github.com/spf13/cobra"
)

var donorsCmd = &cobra.Command{
	Use:   "donors",
	Short: "Registered blood donors",
}

var donorFilter bloodbank.DonorFilter

var donorsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List donors, optionally filtered",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		donors, err := newBackend().ListDonors(cmd.Context())
		if err != nil {
			return err
		}

		donors = bloodbank.FilterDonors(donors, donorFilter)

		a, b, c, d := strings.Repeat("─", 28), strings.Repeat("─", 32), strings.Repeat("─", 7), strings.Repeat("─", 20)
		fmt.Printf("╭─%s─┬─%s─┬─%s─┬─%s─╮\n", a, b, c, d)
		fmt.Printf("│ %-28s │ %-32s │ %-7s │ %-20s │\n", "Name", "Email", "Type", "City")
		fmt.Printf("├─%s─┼─%s─┼─%s─┼─%s─┤\n", a, b, c, d)

		for _, donor := range donors {
			fmt.Printf("│ %-28.28s │ %-32.32s │ %-7s │ %-20.20s │\n", donor.Name, donor.Email, donor.BloodType, donor.City)
		}

		fmt.Printf("╰─%s─┴─%s─┴─%s─┴─%s─╯\n", a, b, c, d)
		logger.Infof("%s donors", textutils.FormatInt(int64(len(donors))))

		return nil
	},
}

var donorsRegisterCmd = &cobra.Command{
	Use:   "register [file]",
	Short: "Register a donor from a JSON document (standard input by default)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var donor bloodbank.Donor
		if err := readJSON(args, &donor); err != nil {
			return err
		}

		if err := donor.Validate(); err != nil {
			return err
		}

		created, err := newBackend().CreateDonor(cmd.Context(), &donor)
		if err != nil {
			return err
		}

		return printJSON(created)
	},
}

var requestsCmd = &cobra.Command{
	Use:   "requests",
	Short: "Blood requests",
}

var requestsListOptions struct {
	bloodbank.RequestFilter
	Addresses bool
}

var requestsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List blood requests, most urgent first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		reqs, err := newBackend().ListBloodRequests(ctx)
		if err != nil {
			return err
		}

		reqs = bloodbank.FilterRequests(reqs, requestsListOptions.RequestFilter)

		describe := func(r *bloodbank.BloodRequest) string {
			if !r.Resolved() {
				return bloodbank.NotAvailable
			}

			return fmt.Sprintf("%.5f, %.5f", r.Location.Lat(), r.Location.Lng())
		}

		if requestsListOptions.Addresses {
			resolver, closeStore, err := newResolver(ctx, nil)
			if err != nil {
				return err
			}
			defer closeStore()

			describe = func(r *bloodbank.BloodRequest) string {
				return bloodbank.DescribeLocation(ctx, resolver, r)
			}
		}

		for i := range reqs {
			r := &reqs[i]
			fmt.Printf("%-24s %-3s %-8s %-10s %-24.24s %-24.24s %s\n",
				r.ID, r.BloodType, r.Urgency, r.Status, r.PatientName, r.Hospital, describe(r))
		}

		logger.Infof("%s requests", textutils.FormatInt(int64(len(reqs))))

		return nil
	},
}

var requestsCreateOptions struct {
	Lat, Lng float64
}

var requestsCreateCmd = &cobra.Command{
	Use:   "create [file]",
	Short: "Create a blood request from a JSON document (standard input by default)",
	Long: `
Creates a blood request. The request needs a location: either given with
--lat/--lng, present in the document, or resolved from its "address" field.
Requests whose location can't be determined are not sent to the backend.
`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		var r bloodbank.BloodRequest
		if err := readJSON(args, &r); err != nil {
			return err
		}

		if cmd.Flags().Changed("lat") && cmd.Flags().Changed("lng") {
			p := spatial.NewPoint(requestsCreateOptions.Lat, requestsCreateOptions.Lng)
			r.Location = &p
		}

		resolver, closeStore, err := newResolver(ctx, nil)
		if err != nil {
			return err
		}
		defer closeStore()

		submitter := &bloodbank.Submitter{Resolver: resolver, Backend: newBackend(), Log: logger}

		created, err := submitter.Submit(ctx, &r)
		if err != nil {
			return err
		}

		return printJSON(created)
	},
}

var requestsStatusCmd = &cobra.Command{
	Use:       "status <id> <status>",
	Short:     "Change the status of a blood request",
	Args:      cobra.ExactArgs(2),
	ValidArgs: []string{"pending", "processing", "fulfilled", "cancelled"},
	RunE: func(cmd *cobra.Command, args []string) error {
		status, err := bloodbank.ParseStatus(args[1])
		if err != nil {
			return err
		}

		updated, err := newBackend().UpdateRequestStatus(cmd.Context(), args[0], status)
		if err != nil {
			return err
		}

		logger.WithField("id", updated.ID).Infof("status is now %s", updated.Status)

		return nil
	},
}

var requestsNearbyOptions struct {
	Lat, Lng, Radius float64
	Address          string
}

var requestsNearbyCmd = &cobra.Command{
	Use:   "nearby",
	Short: "List requests around a position or address",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		o := requestsNearbyOptions
		origin := spatial.NewPoint(o.Lat, o.Lng)

		if o.Address != "" {
			resolver, closeStore, err := newResolver(ctx, nil)
			if err != nil {
				return err
			}
			defer closeStore()

			if origin, err = resolver.ResolveAddress(ctx, o.Address); err != nil {
				return err
			}
		}

		reqs, err := newBackend().ListBloodRequests(ctx)
		if err != nil {
			return err
		}

		nearby, err := bloodbank.Nearby(reqs, origin, o.Radius)
		if err != nil {
			return err
		}

		for _, n := range nearby {
			fmt.Printf("%7.2f km  %-24s %-3s %-8s %-24.24s %s\n",
				n.DistanceKm, n.ID, n.BloodType, n.Urgency, n.Hospital, n.Status)
		}

		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize donors and requests",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		backend := newBackend()

		donors, err := backend.ListDonors(ctx)
		if err != nil {
			return err
		}

		reqs, err := backend.ListBloodRequests(ctx)
		if err != nil {
			return err
		}

		s := bloodbank.ComputeStats(donors, reqs)

		fmt.Printf("Donors:   %s\n", textutils.FormatInt(int64(s.TotalDonors)))
		fmt.Printf("Requests: %s (%d pending, %d critical and open)\n",
			textutils.FormatInt(int64(s.TotalRequests)), s.PendingRequests, s.CriticalRequests)

		fmt.Println()
		fmt.Printf("%-8s %8s %8s\n", "Type", "Donors", "Requests")

		for _, bt := range append(slices.Clone(bloodbank.BloodTypes), bloodbank.UnknownBloodType) {
			fmt.Printf("%-8s %8d %8d\n", bt, s.DonorsByType[bt], s.RequestsByType[bt])
		}

		fmt.Println()

		for _, st := range []bloodbank.RequestStatus{
			bloodbank.StatusPending, bloodbank.StatusProcessing, bloodbank.StatusFulfilled, bloodbank.StatusCancelled,
		} {
			fmt.Printf("%-10s %6d\n", st, s.RequestsByStatus[st])
		}

		return nil
	},
}

func readJSON(args []string, v any) error {
	var in io.Reader = os.Stdin

	name := "standard input"
	if len(args) > 0 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("opening %s: %w", args[0], err)
		}
		defer f.Close()

		in, name = f, args[0]
	}

	if err := json.NewDecoder(in).Decode(v); err != nil {
		return fmt.Errorf("decoding %s: %w", name, err)
	}

	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	return enc.Encode(v)
}

func init() {
	rootCmd.AddCommand(donorsCmd)
	donorsCmd.AddCommand(donorsListCmd)
	donorsCmd.AddCommand(donorsRegisterCmd)

	donorsListCmd.Flags().StringVar(&donorFilter.Query, "search", "", "Match name, email, city or state")
	donorsListCmd.Flags().StringVar((*string)(&donorFilter.BloodType), "blood-type", "", "Only donors of this blood type")

	rootCmd.AddCommand(requestsCmd)
	requestsCmd.AddCommand(requestsListCmd)
	requestsCmd.AddCommand(requestsCreateCmd)
	requestsCmd.AddCommand(requestsStatusCmd)
	requestsCmd.AddCommand(requestsNearbyCmd)

	flags := requestsListCmd.Flags()
	flags.StringVar(&requestsListOptions.Query, "search", "", "Match patient, contact, hospital or email")
	flags.StringVar((*string)(&requestsListOptions.BloodType), "blood-type", "", "Only requests for this blood type")
	flags.StringVar((*string)(&requestsListOptions.Status), "status", "", "Only requests in this status")
	flags.StringVar((*string)(&requestsListOptions.Urgency), "urgency", "", "Only requests with this urgency")
	flags.BoolVar(&requestsListOptions.Addresses, "addresses", false, "Describe each location as an address")

	requestsCreateCmd.Flags().Float64Var(&requestsCreateOptions.Lat, "lat", 0, "Latitude of the request")
	requestsCreateCmd.Flags().Float64Var(&requestsCreateOptions.Lng, "lng", 0, "Longitude of the request")

	flags = requestsNearbyCmd.Flags()
	flags.Float64Var(&requestsNearbyOptions.Lat, "lat", 0, "Latitude of the search origin")
	flags.Float64Var(&requestsNearbyOptions.Lng, "lng", 0, "Longitude of the search origin")
	flags.StringVar(&requestsNearbyOptions.Address, "address", "", "Search around this address instead of --lat/--lng")
	flags.Float64Var(&requestsNearbyOptions.Radius, "radius", 10, "Search radius in kilometers")

	rootCmd.AddCommand(statsCmd)
}
