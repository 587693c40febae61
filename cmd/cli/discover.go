package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/scanwell/scanwell/internal/discovery"
)

var discoverResolve bool

// discoverCmd represents the discover command.
var discoverCmd = &cobra.Command{
	Use:   "discover <network>",
	Short: "Ping-sweep a network for live hosts",
	Long: `Run a ping sweep against a network and list the hosts that respond.
The result can be fed back into 'scanwell scan' as a target list.`,
	Example: `  scanwell discover 192.168.1.0/24
  scanwell discover 10.0.0.0/22 --resolve`,
	Args: cobra.ExactArgs(1),
	Run:  runDiscover,
}

func init() {
	rootCmd.AddCommand(discoverCmd)
	discoverCmd.Flags().BoolVar(&discoverResolve, "resolve", false, "Resolve hostnames via reverse DNS")
}

func runDiscover(_ *cobra.Command, args []string) {
	cfg := loadConfig()

	sweepConfig := discovery.Config{
		Timeout:          cfg.Discovery.Timeout,
		ResolveHostnames: discoverResolve || cfg.Discovery.ResolveHostnames,
		DNSServer:        cfg.Discovery.DNSServer,
	}
	sweeper := discovery.NewSweeper(sweepConfig, nil)

	hosts, err := sweeper.Sweep(context.Background(), args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if len(hosts) == 0 {
		fmt.Println("No hosts up.")
		return
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Address", "Hostname", "Latency (ms)")
	for _, h := range hosts {
		latency := ""
		if h.Latency > 0 {
			latency = fmt.Sprintf("%.1f", h.Latency)
		}
		_ = table.Append([]string{h.Address, h.Hostname, latency})
	}
	_ = table.Render()

	fmt.Printf("%d hosts up\n", len(hosts))
}
