package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/warp/overtime-engine/engine"
	"github.com/warp/overtime-engine/export"
	"github.com/warp/overtime-engine/offload"
	"github.com/warp/overtime-engine/source"
	"github.com/warp/overtime-engine/store/sqlite"
)

var dbPath string

func main() {
	rootCmd := &cobra.Command{
		Use:   "overtimectl",
		Short: "Overtime report toolbox",
	}

	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "overtime.db", "database path")

	rootCmd.AddCommand(reportCmd())
	rootCmd.AddCommand(seedCmd())
	rootCmd.AddCommand(pullCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func getStore() (*sqlite.Store, error) {
	return sqlite.New(dbPath)
}

func reportCmd() *cobra.Command {
	var start, end, display string
	var asCSV bool

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Run the overtime analysis for a date range",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := getStore()
			if err != nil {
				return err
			}
			defer s.Close()

			ctx := context.Background()
			input, err := s.ReportInput(ctx, engine.DateRange{Start: start, End: end})
			if err != nil {
				return err
			}
			if display != "" {
				input.Config.Params.AmountDisplay = engine.AmountBasis(display)
			}

			report, err := offload.Inline{}.Run(ctx, input)
			if err != nil {
				return err
			}

			if asCSV {
				return export.WriteCSV(os.Stdout, report, input.Config.Params.Basis())
			}
			printSummary(report)
			return nil
		},
	}

	cmd.Flags().StringVar(&start, "start", "", "range start (YYYY-MM-DD)")
	cmd.Flags().StringVar(&end, "end", "", "range end (YYYY-MM-DD)")
	cmd.Flags().StringVar(&display, "display", "", "amount basis: earned, cost, profit")
	cmd.Flags().BoolVar(&asCSV, "csv", false, "emit CSV instead of a summary table")
	cmd.MarkFlagRequired("start")
	cmd.MarkFlagRequired("end")
	return cmd
}

func printSummary(report *engine.Report) {
	fmt.Printf("%-24s %10s %10s %10s %10s %12s\n",
		"USER", "TOTAL", "REGULAR", "OVERTIME", "EXPECTED", "AMOUNT")
	for _, u := range report.Users {
		t := u.Totals
		fmt.Printf("%-24s %10.2f %10.2f %10.2f %10.2f %12.2f\n",
			u.UserName, t.TotalHours, t.RegularHours, t.OvertimeHours,
			t.ExpectedCapacity, t.PrimaryAmount)
	}
}

func pullCmd() *cobra.Command {
	var start, end, baseURL, workspace, clientID, clientSecret, tokenURL string

	cmd := &cobra.Command{
		Use:   "pull",
		Short: "Fetch entries from the remote time-tracking API into the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := getStore()
			if err != nil {
				return err
			}
			defer s.Close()

			ctx := context.Background()
			client := source.NewClient(ctx, source.Config{
				BaseURL:      baseURL,
				WorkspaceID:  workspace,
				ClientID:     clientID,
				ClientSecret: clientSecret,
				TokenURL:     tokenURL,
			})

			entries, err := client.FetchEntries(ctx, engine.DateRange{Start: start, End: end})
			if err != nil {
				return err
			}
			if err := s.InsertEntries(ctx, entries); err != nil {
				return err
			}
			fmt.Printf("Imported %d entries\n", len(entries))
			return nil
		},
	}

	cmd.Flags().StringVar(&start, "start", "", "range start (YYYY-MM-DD)")
	cmd.Flags().StringVar(&end, "end", "", "range end (YYYY-MM-DD)")
	cmd.Flags().StringVar(&baseURL, "api", "", "entry source base URL")
	cmd.Flags().StringVar(&workspace, "workspace", "", "workspace id")
	cmd.Flags().StringVar(&clientID, "client-id", os.Getenv("SOURCE_CLIENT_ID"), "OAuth2 client id")
	cmd.Flags().StringVar(&clientSecret, "client-secret", os.Getenv("SOURCE_CLIENT_SECRET"), "OAuth2 client secret")
	cmd.Flags().StringVar(&tokenURL, "token-url", "", "OAuth2 token endpoint")
	cmd.MarkFlagRequired("start")
	cmd.MarkFlagRequired("end")
	cmd.MarkFlagRequired("api")
	cmd.MarkFlagRequired("workspace")
	return cmd
}

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load a small demo dataset",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := getStore()
			if err != nil {
				return err
			}
			defer s.Close()

			ctx := context.Background()
			for _, u := range []engine.User{
				{ID: "u-ada", Name: "Ada Lovelace"},
				{ID: "u-chuck", Name: "Charles Babbage"},
			} {
				if _, err := s.UpsertUser(ctx, u); err != nil {
					return err
				}
			}

			if err := s.SetOverride(ctx, "u-ada", engine.Override{
				Mode:   engine.OverrideWeekly,
				Values: engine.ParameterSet{Multiplier: "1.5"},
				Weekly: map[string]engine.ParameterSet{"friday": {Capacity: "6"}},
			}); err != nil {
				return err
			}

			if err := s.AddHoliday(ctx, engine.Holiday{
				UserID: "u-chuck", DateKey: "2025-03-14", Name: "Analytical Engine Day",
			}); err != nil {
				return err
			}

			entries := []engine.TimeEntry{
				{ID: "d1", UserID: "u-ada", Start: "2025-03-10T08:00:00Z", Duration: "PT9H30M", Billable: true, EarnedRate: 4000, CostRate: 2500},
				{ID: "d2", UserID: "u-ada", Start: "2025-03-11T08:00:00Z", Duration: "PT8H", Billable: true, EarnedRate: 4000, CostRate: 2500},
				{ID: "d3", UserID: "u-chuck", Start: "2025-03-10T09:00:00Z", Duration: "PT10H", EarnedRate: 3333, CostRate: 2100},
				{ID: "d4", UserID: "u-chuck", Type: engine.TypeBreak, Start: "2025-03-10T12:00:00Z", Duration: "PT30M"},
			}
			if err := s.InsertEntries(ctx, entries); err != nil {
				return err
			}

			fmt.Println("Seeded 2 users, 4 entries, 1 override, 1 holiday")
			return nil
		},
	}
}
