package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scanwell/scanwell/internal/targets"
)

func fixedClockBuilder() *Builder {
	b := NewBuilder("nmap", 3)
	b.Now = func() time.Time { return time.Unix(1700000000, 0) }
	return b
}

func TestBuildFastPresetWithTiming(t *testing.T) {
	b := fixedClockBuilder()
	argv, basename := b.Build(
		targets.Target{Address: "10.0.0.5"},
		Options{Preset: PresetFast, Timing: "T4"},
		"results",
	)

	assert.Equal(t, "scan_10_0_0_5_1700000000", basename)
	assert.Equal(t, []string{
		"nmap",
		"-F",
		"-T4",
		"-oX", "results/scan_10_0_0_5_1700000000.xml",
		"-oN", "results/scan_10_0_0_5_1700000000.nmap",
		"-oG", "results/scan_10_0_0_5_1700000000.gnmap",
		"10.0.0.5",
	}, argv)
}

func TestBuildIsDeterministic(t *testing.T) {
	b := fixedClockBuilder()
	tgt := targets.Target{Address: "192.168.1.1", Ports: []string{"22", "80"}}
	opts := Options{
		Preset:           PresetTop1000,
		Scripts:          true,
		VersionDetection: true,
		OSDetection:      true,
		SkipPing:         true,
		Aggressive:       true,
		Verbose:          true,
		Timing:           "T2",
	}

	first, base1 := b.Build(tgt, opts, "out")
	second, base2 := b.Build(tgt, opts, "out")

	assert.Equal(t, first, second)
	assert.Equal(t, base1, base2)
}

func TestBuildBooleanFlagOrder(t *testing.T) {
	b := fixedClockBuilder()
	argv, _ := b.Build(
		targets.Target{Address: "10.1.1.1"},
		Options{
			Scripts:          true,
			VersionDetection: true,
			OSDetection:      true,
			SkipPing:         true,
			PingOnly:         true,
			Aggressive:       true,
			Verbose:          true,
		},
		"out",
	)

	// Fixed flag order is a contract: some engine flags are
	// order-sensitive, so the exact sequence matters.
	assert.Equal(t,
		[]string{"-sC", "-sV", "-O", "-Pn", "-sn", "-A", "-v", "-T3"},
		argv[1:9])
	assert.Equal(t, "10.1.1.1", argv[len(argv)-1])
}

func TestBuildPortPrecedence(t *testing.T) {
	tests := []struct {
		name        string
		target      targets.Target
		opts        Options
		wantPortArg string
	}{
		{
			name:        "custom ports override target ports",
			target:      targets.Target{Address: "10.0.0.1", Ports: []string{"22"}},
			opts:        Options{CustomPorts: "8000-9000"},
			wantPortArg: "8000-9000",
		},
		{
			name:        "target ports used when no custom ports",
			target:      targets.Target{Address: "10.0.0.1", Ports: []string{"22", "443"}},
			opts:        Options{},
			wantPortArg: "22,443",
		},
		{
			name:        "no port flag at all",
			target:      targets.Target{Address: "10.0.0.1"},
			opts:        Options{},
			wantPortArg: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := fixedClockBuilder()
			argv, _ := b.Build(tt.target, tt.opts, "out")

			idx := -1
			for i, a := range argv {
				if a == "-p" {
					idx = i
					break
				}
			}
			if tt.wantPortArg == "" {
				assert.Equal(t, -1, idx, "expected no -p flag")
				return
			}
			require.GreaterOrEqual(t, idx, 0, "expected a -p flag")
			assert.Equal(t, tt.wantPortArg, argv[idx+1])
		})
	}
}

func TestBuildPresetFlags(t *testing.T) {
	tests := []struct {
		preset Preset
		want   []string
	}{
		{PresetFast, []string{"-F"}},
		{PresetTop1000, []string{"--top-ports", "1000"}},
		{PresetAllPorts, []string{"-p-"}},
		{PresetUDP, []string{"-sU", "--top-ports", "100"}},
		{PresetStealth, []string{"-sS"}},
		{PresetComprehensive, []string{"-A"}},
		{PresetVuln, []string{"--script=vuln"}},
		{PresetDiscovery, []string{"-sn"}},
		{PresetPingOnly, []string{"-sn"}},
	}

	for _, tt := range tests {
		t.Run(string(tt.preset), func(t *testing.T) {
			b := fixedClockBuilder()
			argv, _ := b.Build(targets.Target{Address: "10.0.0.1"}, Options{Preset: tt.preset}, "out")
			assert.Equal(t, tt.want, argv[1:1+len(tt.want)])
		})
	}
}

func TestBuildDefaultTiming(t *testing.T) {
	b := fixedClockBuilder()
	argv, _ := b.Build(targets.Target{Address: "10.0.0.1"}, Options{}, "out")
	assert.Contains(t, argv, "-T3")

	argv, _ = b.Build(targets.Target{Address: "10.0.0.1"}, Options{Timing: "T9"}, "out")
	assert.Contains(t, argv, "-T3", "unrecognized timing falls back to default")
}

func TestArtifactBasenameFlattensAddress(t *testing.T) {
	now := time.Unix(1700000001, 0)
	assert.Equal(t, "scan_10_0_0_1_1700000001", artifactBasename("10.0.0.1", now))
	assert.Equal(t, "scan_fe80__1_1700000001", artifactBasename("fe80::1", now))
}
