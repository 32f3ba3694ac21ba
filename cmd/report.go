package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/adfharrison1/go-analytics/pkg/analytics"
)

// reportBuilders holds the named reports. Ranged reports need --start and --end.
var reportBuilders = map[string]struct {
	ranged bool
	build  func(analytics.DateRange) analytics.Report
}{
	"product-stats":    {build: func(analytics.DateRange) analytics.Report { return analytics.ProductStats() }},
	"friend-stats":     {build: func(analytics.DateRange) analytics.Report { return analytics.FriendStats() }},
	"average-ratings":  {build: func(analytics.DateRange) analytics.Report { return analytics.AverageRatings() }},
	"customer-revenue": {build: func(analytics.DateRange) analytics.Report { return analytics.CustomerRevenue() }},
	"order-totals":     {ranged: true, build: analytics.OrderTotals},
	"events-by-user":   {ranged: true, build: analytics.EventsByUser},
	"sales-revenue":    {ranged: true, build: analytics.SalesRevenue},
}

func reportNames() []string {
	names := make([]string, 0, len(reportBuilders))
	for name := range reportBuilders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func newReportCmd(a *app) *cobra.Command {
	var start, end string
	cmd := &cobra.Command{
		Use:   "report <name>",
		Short: "Run a named analytics report",
		Long:  "Run a named analytics report. Available reports: " + strings.Join(reportNames(), ", "),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			builder, ok := reportBuilders[args[0]]
			if !ok {
				return fmt.Errorf("unknown report %q (available: %s)", args[0], strings.Join(reportNames(), ", "))
			}
			var r analytics.DateRange
			if builder.ranged {
				if r, err = analytics.ParseDateRange(start, end); err != nil {
					return err
				}
			}

			b, err := openBackend(cmd.Context(), a.cfg)
			if err != nil {
				return err
			}
			defer func() {
				if closeErr := b.close(); closeErr != nil && err == nil {
					err = closeErr
				}
			}()

			results, err := analytics.NewService(b.store).Run(cmd.Context(), builder.build(r))
			if err != nil {
				return err
			}
			return printDocuments(cmd.OutOrStdout(), results)
		},
	}
	cmd.Flags().StringVar(&start, "start", "", "start of the date range (RFC 3339 or YYYY-MM-DD)")
	cmd.Flags().StringVar(&end, "end", "", "end of the date range (RFC 3339 or YYYY-MM-DD)")
	return cmd
}
