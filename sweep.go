package main

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/yeremiapane/cleanshift/services"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run one acknowledgement sweep and print the result",
	Long: `Run a single acknowledgement sweep against the configured database, alert
admins for every assigned task past its grace deadline, and print a report.

Exits non-zero when the task query failed or an alert could not be delivered.`,
	RunE: runSweep,
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	result := a.monitor.Sweep(cmd.Context())
	printSweep(result)

	if result.Error != "" {
		return fmt.Errorf("sweep failed: %s", result.Error)
	}
	if result.Failed > 0 {
		return fmt.Errorf("%d alert(s) could not be delivered", result.Failed)
	}
	return nil
}

func printSweep(r services.SweepResult) {
	bold := color.New(color.Bold)
	bold.Printf("Sweep at %s (%s)\n", r.StartedAt.Format(time.RFC3339), r.Duration.Round(time.Millisecond))

	if r.Error != "" {
		fmt.Printf("  %s %s\n", color.RedString("✗"), r.Error)
		return
	}

	fmt.Printf("  examined       %d\n", r.Examined)
	fmt.Printf("  breached       %s\n", countString(r.Breached, color.YellowString))
	fmt.Printf("  alerted        %s\n", countString(r.Alerted, color.GreenString))
	fmt.Printf("  failed         %s\n", countString(r.Failed, color.RedString))
	if r.UnknownShift > 0 {
		fmt.Printf("  unknown shift  %s\n", color.YellowString("%d", r.UnknownShift))
	}
	if r.MissingAdmin > 0 {
		fmt.Printf("  missing admin  %s\n", color.YellowString("%d", r.MissingAdmin))
	}
	if r.LostClaim > 0 {
		fmt.Printf("  claimed elsewhere %d\n", r.LostClaim)
	}

	if r.Failed == 0 {
		fmt.Printf("\n%s done\n", color.GreenString("✓"))
	}
}

func countString(n int, paint func(string, ...interface{}) string) string {
	if n == 0 {
		return "0"
	}
	return paint("%d", n)
}
