package main

import (
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/opsdesk/vacation-ledger/importer"
)

func init() {
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(balanceCmd)
	rootCmd.AddCommand(holidaysCmd)
	holidaysCmd.AddCommand(holidaysSeedCmd)

	importCmd.Flags().Bool("dry-run", false, "Validate and plan without writing")
	holidaysSeedCmd.Flags().Int("year", 0, "Year to seed (default: current year)")
}

// ─── import ─────────────────────────────────────────────────────────────────

var importCmd = &cobra.Command{
	Use:   "import FILE",
	Short: "Import a CSV export of vacation records",
	Long: `Import a CSV export (';' or ',' delimited, Portuguese or English headers).
Collaborators are matched by name and created when missing. Rows that fail
validation are reported and skipped; the rest are committed in one
transaction. Use --dry-run to see the outcome without writing.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func runImport(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	records, err := importer.Parse(f)
	if err != nil {
		return fmt.Errorf("%s: %w", args[0], err)
	}
	plan := importer.NewPlan(importer.Validate(records), a.service.Today(), a.service.NewID)

	dryRun, _ := cmd.Flags().GetBool("dry-run")
	if dryRun {
		snap, err := a.service.Snapshot(cmd.Context())
		if err != nil {
			return err
		}
		if _, err := plan.Build(snap); err != nil {
			return err
		}
	} else {
		rec, err := a.service.Import(cmd.Context(), cliActor(), filepath.Base(args[0]), plan.Build)
		if err != nil {
			printRows(cmd, plan.Results)
			return err
		}
		a.logger.Info("import finished", zap.String("id", rec.ID), zap.Int("imported", rec.Imported))
	}

	printRows(cmd, plan.Results)
	fmt.Fprintf(cmd.OutOrStdout(), "\n%d imported, %d rejected", plan.Imported(), len(plan.Results)-plan.Imported())
	if dryRun {
		fmt.Fprint(cmd.OutOrStdout(), " (dry run, nothing written)")
	}
	fmt.Fprintln(cmd.OutOrStdout())
	return nil
}

func printRows(cmd *cobra.Command, rows []importer.RowResult) {
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "LINE\tNAME\tKIND\tRESULT")
	for _, r := range rows {
		result := "ok"
		if !r.Imported {
			result = fmt.Sprint(r.Errors)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", r.Line, r.Name, r.Kind, result)
	}
	tw.Flush()
}

// ─── balance ────────────────────────────────────────────────────────────────

var balanceCmd = &cobra.Command{
	Use:   "balance COLLABORATOR_ID",
	Short: "Print a collaborator's balance breakdown",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		c, err := a.service.GetCollaborator(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		s, err := a.service.Balance(cmd.Context(), c.ID)
		if err != nil {
			return err
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintf(tw, "Collaborator\t%s (%s/%s)\n", c.Name, c.State, c.SubUnit)
		fmt.Fprintf(tw, "Initial\t%d\n", s.Initial)
		fmt.Fprintf(tw, "Scheduled\t%d\n", s.Scheduled)
		fmt.Fprintf(tw, "Deducted\t%d\n", s.Deducted)
		fmt.Fprintf(tw, "Balance\t%d\n", s.Available())
		return tw.Flush()
	},
}

// ─── holidays ───────────────────────────────────────────────────────────────

var holidaysCmd = &cobra.Command{
	Use:   "holidays",
	Short: "Manage the holiday registry",
}

var holidaysSeedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the default Brazilian holidays of a year",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		year, _ := cmd.Flags().GetInt("year")
		if year == 0 {
			year = a.service.Today().Year()
		}
		n, err := a.service.SeedDefaultHolidays(cmd.Context(), cliActor(), year)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "seeded %d holidays for %d\n", n, year)
		return nil
	},
}
