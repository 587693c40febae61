// Package targets expands heterogeneous target input text into a flat,
// ordered list of scan targets. Supported line forms are single
// addresses, CIDR blocks, address ranges, and address:port lists.
// Expansion never fails: malformed lines degrade to a best-effort
// single-target interpretation so partial input cannot abort a batch.
package targets

import (
	"strings"
)

// Default expansion limits. A CIDR block expanding beyond DefaultCIDRCap
// is rejected outright; a range is truncated at DefaultRangeCap.
const (
	DefaultCIDRCap  = 10000
	DefaultRangeCap = 1000
)

// Target is one network address to scan, optionally with an explicit
// port list. Targets are value objects and are never mutated after
// expansion. Two targets are the same host when their addresses match;
// ports are a filter hint only.
type Target struct {
	Address string   `json:"address"`
	Ports   []string `json:"ports,omitempty"`
}

// Expansion is the outcome of expanding one block of input text.
// Truncated is set when any range line hit the cap and was cut short,
// so callers can surface the partial expansion instead of silently
// scanning fewer hosts than requested.
type Expansion struct {
	Targets   []Target
	Truncated bool
}

// Expander turns input text into targets under configured size limits.
type Expander struct {
	cidrCap  int
	rangeCap int
}

// NewExpander creates an expander with the given limits. Non-positive
// limits fall back to the defaults.
func NewExpander(cidrCap, rangeCap int) *Expander {
	if cidrCap <= 0 {
		cidrCap = DefaultCIDRCap
	}
	if rangeCap <= 0 {
		rangeCap = DefaultRangeCap
	}
	return &Expander{cidrCap: cidrCap, rangeCap: rangeCap}
}

// Expand parses input text line by line and returns the expanded target
// list. Line order is preserved and duplicates across lines are kept;
// deduplication policy belongs to the caller.
//
// Per non-empty line, the first matching rule wins:
//  1. contains "/"  -> CIDR block, expanded to usable host addresses
//  2. contains "-"  (not leading) -> inclusive address range
//  3. contains ":"  -> address:port,port,...
//  4. otherwise     -> single address, no ports
func (e *Expander) Expand(input string) Expansion {
	var out Expansion

	for _, line := range strings.Split(input, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		switch {
		case strings.Contains(line, "/"):
			out.Targets = append(out.Targets, e.expandCIDR(line)...)
		case strings.Contains(line, "-") && !strings.HasPrefix(line, "-"):
			expanded, truncated := e.expandRange(line)
			out.Targets = append(out.Targets, expanded...)
			out.Truncated = out.Truncated || truncated
		case strings.Contains(line, ":"):
			out.Targets = append(out.Targets, parsePortedTarget(line))
		default:
			out.Targets = append(out.Targets, Target{Address: line})
		}
	}

	return out
}

// expandCIDR returns the usable host addresses of a CIDR block in
// ascending order. Blocks expanding beyond the cap contribute nothing;
// a malformed block degrades to a single target carrying the raw line.
func (e *Expander) expandCIDR(line string) []Target {
	first, last, ok := cidrHostBounds(line)
	if !ok {
		return []Target{{Address: line}}
	}
	if last < first {
		return nil
	}
	count := int(last-first) + 1
	if count > e.cidrCap {
		return nil
	}

	result := make([]Target, 0, count)
	for ip := first; ; ip++ {
		result = append(result, Target{Address: formatIPv4(ip)})
		if ip == last {
			break
		}
	}
	return result
}

// expandRange enumerates an inclusive address range, truncating at the
// cap. Supports both "A.B.C.D-E.F.G.H" and the last-octet shorthand
// "A.B.C.D-E". The second return value reports truncation.
func (e *Expander) expandRange(line string) ([]Target, bool) {
	startText, endText, found := strings.Cut(line, "-")
	if !found {
		return []Target{{Address: line}}, false
	}
	startText = strings.TrimSpace(startText)
	endText = strings.TrimSpace(endText)

	start, ok := parseIPv4(startText)
	if !ok {
		return []Target{{Address: line}}, false
	}

	end, ok := parseIPv4(endText)
	if !ok {
		// Shorthand form: the end is a bare last octet.
		octet, octOK := parseOctet(endText)
		if !octOK {
			return []Target{{Address: line}}, false
		}
		end = start&0xffffff00 | uint32(octet)
	}

	if end < start {
		return nil, false
	}

	var result []Target
	for ip := start; ; ip++ {
		if len(result) >= e.rangeCap {
			return result, true
		}
		result = append(result, Target{Address: formatIPv4(ip)})
		if ip == end {
			break
		}
	}
	return result, false
}

// parsePortedTarget handles the "address:port,port" form. Port tokens
// are trimmed and empty tokens dropped.
func parsePortedTarget(line string) Target {
	address, portText, _ := strings.Cut(line, ":")
	var ports []string
	for _, p := range strings.Split(portText, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			ports = append(ports, p)
		}
	}
	return Target{Address: strings.TrimSpace(address), Ports: ports}
}
