package targets

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func addresses(ts []Target) []string {
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = t.Address
	}
	return out
}

func TestExpandSingleAddress(t *testing.T) {
	exp := NewExpander(0, 0)
	result := exp.Expand("192.168.1.10")

	require.Len(t, result.Targets, 1)
	assert.Equal(t, "192.168.1.10", result.Targets[0].Address)
	assert.Empty(t, result.Targets[0].Ports)
	assert.False(t, result.Truncated)
}

func TestExpandShorthandRange(t *testing.T) {
	exp := NewExpander(0, 0)
	result := exp.Expand("10.0.0.1-3")

	assert.Equal(t, []string{"10.0.0.1", "10.0.0.2", "10.0.0.3"}, addresses(result.Targets))
	for _, tgt := range result.Targets {
		assert.Empty(t, tgt.Ports)
	}
}

func TestExpandFullRange(t *testing.T) {
	exp := NewExpander(0, 0)
	result := exp.Expand("10.0.0.254-10.0.1.2")

	assert.Equal(t,
		[]string{"10.0.0.254", "10.0.0.255", "10.0.1.0", "10.0.1.1", "10.0.1.2"},
		addresses(result.Targets))
}

func TestExpandRangeTruncatesAtCap(t *testing.T) {
	exp := NewExpander(0, 10)
	result := exp.Expand("10.0.0.1-10.0.0.100")

	assert.Len(t, result.Targets, 10)
	assert.True(t, result.Truncated)
	assert.Equal(t, "10.0.0.1", result.Targets[0].Address)
	assert.Equal(t, "10.0.0.10", result.Targets[9].Address)
}

func TestExpandCIDR(t *testing.T) {
	exp := NewExpander(0, 0)
	result := exp.Expand("192.168.1.0/30")

	// Network and broadcast are excluded.
	assert.Equal(t, []string{"192.168.1.1", "192.168.1.2"}, addresses(result.Targets))
}

func TestExpandCIDRSmallPrefixes(t *testing.T) {
	exp := NewExpander(0, 0)

	assert.Equal(t, []string{"10.1.2.3"}, addresses(exp.Expand("10.1.2.3/32").Targets))
	assert.Equal(t, []string{"10.1.2.2", "10.1.2.3"}, addresses(exp.Expand("10.1.2.2/31").Targets))
}

func TestExpandCIDROverCapRejectsLine(t *testing.T) {
	exp := NewExpander(100, 0)
	result := exp.Expand("10.0.0.0/16\n192.168.1.5")

	// The oversized block contributes nothing; the rest of the batch
	// survives.
	assert.Equal(t, []string{"192.168.1.5"}, addresses(result.Targets))
	assert.False(t, result.Truncated)
}

func TestExpandCIDRAscendingNoDuplicates(t *testing.T) {
	exp := NewExpander(0, 0)
	result := exp.Expand("172.16.0.0/28")

	require.Len(t, result.Targets, 14)
	seen := map[string]bool{}
	for i, tgt := range result.Targets {
		assert.False(t, seen[tgt.Address], "duplicate %s", tgt.Address)
		seen[tgt.Address] = true
		assert.Equal(t, fmt.Sprintf("172.16.0.%d", i+1), tgt.Address)
	}
}

func TestExpandAddressWithPorts(t *testing.T) {
	tests := []struct {
		name      string
		line      string
		wantAddr  string
		wantPorts []string
	}{
		{"simple", "10.0.0.1:80,443", "10.0.0.1", []string{"80", "443"}},
		{"whitespace and empties", "10.0.0.1: 22, ,8080,", "10.0.0.1", []string{"22", "8080"}},
		{"single port", "example.internal:443", "example.internal", []string{"443"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exp := NewExpander(0, 0)
			result := exp.Expand(tt.line)

			require.Len(t, result.Targets, 1)
			assert.Equal(t, tt.wantAddr, result.Targets[0].Address)
			assert.Equal(t, tt.wantPorts, result.Targets[0].Ports)
		})
	}
}

func TestExpandMalformedLinesDegradeToSingleTargets(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{"bad cidr", "not-a-network/99"},
		{"bad range start", "banana-10"},
		{"bad range end", "10.0.0.1-banana"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exp := NewExpander(0, 0)
			result := exp.Expand(tt.line)

			require.Len(t, result.Targets, 1)
			assert.Equal(t, tt.line, result.Targets[0].Address)
		})
	}
}

func TestExpandPreservesOrderAndDuplicates(t *testing.T) {
	exp := NewExpander(0, 0)
	input := strings.Join([]string{
		"192.168.1.5",
		"",
		"10.0.0.1-2",
		"192.168.1.5",
	}, "\n")

	result := exp.Expand(input)
	assert.Equal(t,
		[]string{"192.168.1.5", "10.0.0.1", "10.0.0.2", "192.168.1.5"},
		addresses(result.Targets))
}

func TestExpandInvertedRangeYieldsNothing(t *testing.T) {
	exp := NewExpander(0, 0)
	result := exp.Expand("10.0.0.9-10.0.0.1")
	assert.Empty(t, result.Targets)
}

func TestExpandEmptyInput(t *testing.T) {
	exp := NewExpander(0, 0)
	assert.Empty(t, exp.Expand("").Targets)
	assert.Empty(t, exp.Expand("\n  \n").Targets)
}
