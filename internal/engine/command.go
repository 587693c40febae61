package engine

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/scanwell/scanwell/internal/targets"
)

// Builder constructs engine command lines. It is deterministic: the
// same target, options, and clock reading always produce byte-identical
// argv, which tests rely on because some engine flags are
// order-sensitive.
type Builder struct {
	// Binary is the engine executable name or path, argv[0].
	Binary string

	// DefaultTiming is used when options carry a negative timing.
	DefaultTiming int

	// Now supplies the artifact basename timestamp. Injected rather
	// than read globally so command construction stays testable.
	Now func() time.Time
}

// NewBuilder creates a command builder around the given binary.
func NewBuilder(binary string, defaultTiming int) *Builder {
	return &Builder{
		Binary:        binary,
		DefaultTiming: defaultTiming,
		Now:           time.Now,
	}
}

// Build produces the argv for scanning one target and the shared
// basename of the three output artifacts. Flag order is fixed:
// binary, preset flags, boolean flags (scripts, version detection,
// OS detection, skip-ping, ping-only, aggressive, verbose), timing,
// ports, output files, and the target address last.
func (b *Builder) Build(target targets.Target, opts Options, artifactDir string) (argv []string, basename string) {
	basename = artifactBasename(target.Address, b.Now())
	base := filepath.Join(artifactDir, basename)

	argv = []string{b.Binary}
	argv = append(argv, presetFlags[opts.Preset]...)

	if opts.Scripts {
		argv = append(argv, "-sC")
	}
	if opts.VersionDetection {
		argv = append(argv, "-sV")
	}
	if opts.OSDetection {
		argv = append(argv, "-O")
	}
	if opts.SkipPing {
		argv = append(argv, "-Pn")
	}
	if opts.PingOnly {
		argv = append(argv, "-sn")
	}
	if opts.Aggressive {
		argv = append(argv, "-A")
	}
	if opts.Verbose {
		argv = append(argv, "-v")
	}

	argv = append(argv, timingFlag(opts.Timing, b.DefaultTiming))

	// An explicit custom port list beats the target's own ports; with
	// neither present the port flag is omitted entirely.
	switch {
	case opts.CustomPorts != "":
		argv = append(argv, "-p", opts.CustomPorts)
	case len(target.Ports) > 0:
		argv = append(argv, "-p", strings.Join(target.Ports, ","))
	}

	argv = append(argv,
		"-oX", base+".xml",
		"-oN", base+".nmap",
		"-oG", base+".gnmap",
	)

	argv = append(argv, target.Address)
	return argv, basename
}

// timingFlag turns the "T0".."T5" timing option into its engine flag,
// falling back to the configured default for empty or unrecognized
// values.
func timingFlag(timing string, defaultTiming int) string {
	if len(timing) == 2 && timing[0] == 'T' && timing[1] >= '0' && timing[1] <= '5' {
		return "-" + timing
	}
	if defaultTiming < 0 || defaultTiming > 5 {
		defaultTiming = 3
	}
	return fmt.Sprintf("-T%d", defaultTiming)
}

// artifactBasename derives the shared output file stem for one job.
// Dots and colons in the address are flattened so the name is safe on
// every filesystem.
func artifactBasename(address string, now time.Time) string {
	safe := strings.NewReplacer(".", "_", ":", "_").Replace(address)
	return fmt.Sprintf("scan_%s_%d", safe, now.Unix())
}
