package cli

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/scanwell/scanwell/internal/targets"
)

// targetsCmd groups target inspection commands.
var targetsCmd = &cobra.Command{
	Use:   "targets",
	Short: "Inspect target expansion",
}

// targetsPreviewCmd expands target text without scanning anything.
var targetsPreviewCmd = &cobra.Command{
	Use:   "preview [targets...]",
	Short: "Show how target text expands into scan targets",
	Long: `Expand CIDR blocks, address ranges, and address:port entries the same
way a scan session would, without starting any scans.`,
	Example: `  scanwell targets preview 192.168.1.0/28
  scanwell targets preview "10.0.0.1-20" "192.168.1.5:22,80"`,
	Args: cobra.MinimumNArgs(1),
	Run:  runTargetsPreview,
}

func init() {
	rootCmd.AddCommand(targetsCmd)
	targetsCmd.AddCommand(targetsPreviewCmd)
}

func runTargetsPreview(_ *cobra.Command, args []string) {
	cfg := loadConfig()

	expander := targets.NewExpander(cfg.Targets.CIDRCap, cfg.Targets.RangeCap)
	expansion := expander.Expand(strings.Join(args, "\n"))

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Address", "Ports")
	for _, t := range expansion.Targets {
		_ = table.Append([]string{t.Address, strings.Join(t.Ports, ",")})
	}
	_ = table.Render()

	estimate := time.Duration(len(expansion.Targets)) * 30 * time.Second
	fmt.Printf("%d targets, roughly %s to scan\n", len(expansion.Targets), estimate)
	if expansion.Truncated {
		fmt.Println("Note: one or more ranges were truncated at the configured cap")
	}
}
