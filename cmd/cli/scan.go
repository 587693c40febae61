package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/scanwell/scanwell/internal/db"
	"github.com/scanwell/scanwell/internal/engine"
	"github.com/scanwell/scanwell/internal/session"
	"github.com/scanwell/scanwell/internal/targets"
)

var (
	scanTargets    string
	scanPreset     string
	scanPorts      string
	scanTiming     string
	scanScripts    bool
	scanVersionDet bool
	scanOSDet      bool
	scanSkipPing   bool
	scanAggressive bool
	scanOutput     string
	scanNoDB       bool
)

// scanCmd represents the scan command.
var scanCmd = &cobra.Command{
	Use:   "scan [targets...]",
	Short: "Scan targets for open ports and services",
	Long: `Scan one or more targets for open ports, running services, and
other network information. Targets may be single addresses, CIDR
blocks, address ranges, or address:port1,port2 entries. Each target
runs as its own engine process; progress is reported as the session
advances.`,
	Example: `  scanwell scan 192.168.1.10
  scanwell scan 192.168.1.0/24 --preset fast
  scanwell scan "10.0.0.1-20" --ports 22,80,443
  scanwell scan scanme.example.org --preset top1000 --timing T4 -sV`,
	Run: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().StringVar(&scanTargets, "targets", "", "Targets to scan, newline- or comma-separated (alternative to positional args)")
	scanCmd.Flags().StringVar(&scanPreset, "preset", "", "Scan preset: fast, top1000, allports, udp, stealth, comprehensive, vuln, discovery, ping_only")
	scanCmd.Flags().StringVar(&scanPorts, "ports", "", "Port specification overriding per-target ports (e.g. '22,80,443' or '1-1000')")
	scanCmd.Flags().StringVar(&scanTiming, "timing", "", "Timing template T0-T5 (default from config)")
	scanCmd.Flags().BoolVar(&scanScripts, "scripts", false, "Run default scripts (-sC)")
	scanCmd.Flags().BoolVar(&scanVersionDet, "service-detection", false, "Probe service versions (-sV)")
	scanCmd.Flags().BoolVar(&scanOSDet, "os-detection", false, "Enable OS detection (-O)")
	scanCmd.Flags().BoolVar(&scanSkipPing, "skip-ping", false, "Treat all hosts as online (-Pn)")
	scanCmd.Flags().BoolVar(&scanAggressive, "aggressive", false, "Aggressive scan options (-A)")
	scanCmd.Flags().StringVar(&scanOutput, "output", "table", "Output format: table or json")
	scanCmd.Flags().BoolVar(&scanNoDB, "no-db", false, "Skip result persistence even when a database is configured")
}

func runScan(cmd *cobra.Command, args []string) {
	targetText := collectTargetText(args)
	if targetText == "" {
		fmt.Fprintf(os.Stderr, "Error: no targets given\n\n")
		_ = cmd.Help()
		os.Exit(1)
	}

	opts := engine.Options{
		Preset:           engine.Preset(scanPreset),
		Scripts:          scanScripts,
		VersionDetection: scanVersionDet,
		OSDetection:      scanOSDet,
		SkipPing:         scanSkipPing,
		Aggressive:       scanAggressive,
		Verbose:          verbose,
		Timing:           scanTiming,
		CustomPorts:      scanPorts,
	}
	if opts.Preset != "" && !engine.ValidPreset(opts.Preset) {
		fmt.Fprintf(os.Stderr, "Error: unknown preset %q\n", scanPreset)
		os.Exit(1)
	}

	cfg := loadConfig()
	ctx := context.Background()

	banner, err := engine.CheckBinary(ctx, cfg.Engine.BinaryPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if verbose {
		fmt.Fprintln(os.Stderr, "Engine:", banner)
	}

	expansion := targets.NewExpander(cfg.Targets.CIDRCap, cfg.Targets.RangeCap).Expand(targetText)
	if len(expansion.Targets) == 0 {
		fmt.Fprintln(os.Stderr, "Error: no valid targets after expansion")
		os.Exit(1)
	}
	if expansion.Truncated {
		fmt.Fprintln(os.Stderr, "Warning: range expansion truncated at the configured cap")
	}

	var store session.Store
	if !scanNoDB && cfg.Database.Database != "" {
		database, dbErr := db.Connect(ctx, &cfg.Database)
		if dbErr != nil {
			fmt.Fprintf(os.Stderr, "Warning: continuing without persistence: %v\n", dbErr)
		} else {
			defer database.Close()
			if dbErr = database.EnsureSchema(ctx); dbErr != nil {
				fmt.Fprintf(os.Stderr, "Error preparing schema: %v\n", dbErr)
				os.Exit(1)
			}
			store = db.NewSessionStore(database)
		}
	}

	builder := engine.NewBuilder(cfg.Engine.BinaryPath, cfg.Engine.DefaultTiming)
	supervisor := engine.NewSupervisor(builder, cfg.Engine.MaxConcurrentScans, cfg.Engine.TerminateGrace, nil)

	done := make(chan struct{})
	var results []*engine.Result
	sink := session.SinkFunc(func(event session.Event) {
		switch event.Type {
		case session.EventProgress:
			fmt.Fprintf(os.Stderr, "[%3.0f%%] %d/%d scanning %s (ETA %s)\n",
				event.Percentage, event.Completed, event.Total, event.CurrentTarget, event.ETA)
		case session.EventResult:
			results = append(results, event.Result)
		case session.EventError:
			fmt.Fprintf(os.Stderr, "Error scanning %s: %s\n", event.TargetAddress, event.Message)
		case session.EventSessionCancelled:
			fmt.Fprintln(os.Stderr, "Session cancelled; results below are partial.")
		case session.EventSessionCompleted:
			close(done)
		}
	})

	coordinator := session.NewCoordinator(supervisor, cfg.Engine.ArtifactDir, store, sink, nil, nil)
	sessionID, err := coordinator.Start(expansion.Targets, opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if verbose {
		fmt.Fprintln(os.Stderr, "Session:", sessionID)
	}

	<-done

	if scanOutput == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(results); err != nil {
			fmt.Fprintf(os.Stderr, "Error encoding results: %v\n", err)
			os.Exit(1)
		}
		return
	}
	displayScanResults(results)
}

// collectTargetText merges positional args and the --targets flag into
// one newline-separated block. Commas are accepted as separators.
func collectTargetText(args []string) string {
	parts := make([]string, 0, len(args)+1)
	for _, arg := range args {
		parts = append(parts, strings.Split(arg, ",")...)
	}
	if scanTargets != "" {
		parts = append(parts, strings.FieldsFunc(scanTargets, func(r rune) bool {
			return r == ',' || r == '\n'
		})...)
	}
	return strings.Join(parts, "\n")
}

func displayScanResults(results []*engine.Result) {
	if len(results) == 0 {
		fmt.Println("No results.")
		return
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Target", "Status", "Open", "Services", "OS", "Duration")

	for _, r := range results {
		services := make([]string, 0, len(r.Services))
		for _, svc := range r.Services {
			if svc.State != "open" {
				continue
			}
			entry := fmt.Sprintf("%d/%s", svc.Port, svc.Protocol)
			if svc.ServiceName != "" {
				entry += " " + svc.ServiceName
			}
			services = append(services, entry)
		}

		_ = table.Append([]string{
			r.TargetAddress,
			r.HostStatus,
			fmt.Sprintf("%d", r.OpenPortCount),
			strings.Join(services, ", "),
			r.OSGuess,
			(time.Duration(r.DurationSeconds * float64(time.Second))).Round(time.Millisecond).String(),
		})
	}
	_ = table.Render()
}
