// Package discovery finds live hosts on a network with an engine ping
// sweep, optionally enriching each address with its reverse-DNS name.
// Discovered addresses feed the target expander as seed input.
package discovery

import (
	"context"
	"fmt"
	"strings"
	"time"

	nmap "github.com/Ullaakut/nmap/v3"
	"github.com/miekg/dns"

	scanerrors "github.com/scanwell/scanwell/internal/errors"
	"github.com/scanwell/scanwell/internal/logging"
)

const defaultTimeout = 2 * time.Minute

// Host is one discovered live address.
type Host struct {
	Address  string  `json:"address"`
	Hostname string  `json:"hostname,omitempty"`
	Latency  float64 `json:"latency_ms,omitempty"`
}

// Config controls a discovery sweep.
type Config struct {
	// Timeout bounds the whole sweep.
	Timeout time.Duration

	// ResolveHostnames enables reverse-DNS enrichment.
	ResolveHostnames bool

	// DNSServer is the host:port of the resolver used for PTR
	// lookups. Empty disables enrichment even when ResolveHostnames
	// is set.
	DNSServer string
}

// Sweeper runs discovery sweeps.
type Sweeper struct {
	config Config
	logger *logging.Logger
}

// NewSweeper creates a sweeper with the given configuration.
func NewSweeper(config Config, logger *logging.Logger) *Sweeper {
	if logger == nil {
		logger = logging.Default()
	}
	if config.Timeout <= 0 {
		config.Timeout = defaultTimeout
	}
	return &Sweeper{config: config, logger: logger.WithComponent("discovery")}
}

// Sweep ping-scans the network (any engine target expression: CIDR,
// range, single address) and returns the hosts that answered.
func (s *Sweeper) Sweep(ctx context.Context, network string) ([]Host, error) {
	sweepCtx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	scanner, err := nmap.NewScanner(sweepCtx,
		nmap.WithTargets(network),
		nmap.WithPingScan(),
		nmap.WithTimingTemplate(nmap.TimingNormal),
	)
	if err != nil {
		return nil, scanerrors.ErrEngineUnavailable(err)
	}

	result, warnings, err := scanner.Run()
	if err != nil {
		return nil, fmt.Errorf("discovery sweep failed: %w", err)
	}
	if warnings != nil && len(*warnings) > 0 {
		s.logger.Warn("discovery completed with warnings", "warnings", *warnings)
	}

	hosts := make([]Host, 0, len(result.Hosts))
	for i := range result.Hosts {
		found := &result.Hosts[i]
		if found.Status.State != "up" || len(found.Addresses) == 0 {
			continue
		}

		host := Host{Address: found.Addresses[0].Addr}
		for _, hn := range found.Hostnames {
			if hn.Name != "" {
				host.Hostname = hn.Name
				break
			}
		}
		if host.Hostname == "" && s.config.ResolveHostnames && s.config.DNSServer != "" {
			host.Hostname = s.reverseLookup(host.Address)
		}

		hosts = append(hosts, host)
	}

	s.logger.Info("discovery sweep finished", "network", network, "hosts_up", len(hosts))
	return hosts, nil
}

// reverseLookup resolves the PTR record for an address. Failures just
// leave the hostname empty; discovery never depends on DNS working.
func (s *Sweeper) reverseLookup(address string) string {
	arpa, err := dns.ReverseAddr(address)
	if err != nil {
		return ""
	}

	msg := new(dns.Msg)
	msg.SetQuestion(arpa, dns.TypePTR)

	client := &dns.Client{Timeout: 2 * time.Second}
	reply, _, err := client.Exchange(msg, s.config.DNSServer)
	if err != nil || reply == nil {
		return ""
	}

	for _, answer := range reply.Answer {
		if ptr, ok := answer.(*dns.PTR); ok {
			return strings.TrimSuffix(ptr.Ptr, ".")
		}
	}
	return ""
}

// Addresses flattens discovered hosts into expander-ready input text,
// one address per line.
func Addresses(hosts []Host) string {
	out := ""
	for _, h := range hosts {
		out += h.Address + "\n"
	}
	return out
}
