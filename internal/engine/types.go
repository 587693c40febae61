// Package engine drives the external nmap binary: it builds
// deterministic command lines, runs one subprocess per scan job,
// supervises in-flight jobs with bounded concurrency, and parses the
// XML artifact each job leaves behind into a normalized result.
package engine

import (
	"time"

	"github.com/scanwell/scanwell/internal/targets"
)

// Preset names a bundle of engine flags selected by one option.
type Preset string

const (
	PresetFast          Preset = "fast"
	PresetTop1000       Preset = "top1000"
	PresetAllPorts      Preset = "allports"
	PresetUDP           Preset = "udp"
	PresetStealth       Preset = "stealth"
	PresetComprehensive Preset = "comprehensive"
	PresetVuln          Preset = "vuln"
	PresetDiscovery     Preset = "discovery"
	PresetPingOnly      Preset = "ping_only"
)

// presetFlags maps each preset to its engine flags. Presets and the
// explicit boolean options are additive, never mutually exclusive.
var presetFlags = map[Preset][]string{
	PresetFast:          {"-F"},
	PresetTop1000:       {"--top-ports", "1000"},
	PresetAllPorts:      {"-p-"},
	PresetUDP:           {"-sU", "--top-ports", "100"},
	PresetStealth:       {"-sS"},
	PresetComprehensive: {"-A"},
	PresetVuln:          {"--script=vuln"},
	PresetDiscovery:     {"-sn"},
	PresetPingOnly:      {"-sn"},
}

// ValidPreset reports whether the preset is recognized.
func ValidPreset(p Preset) bool {
	_, ok := presetFlags[p]
	return ok
}

// Options is the scan configuration for a job. It is a value object:
// created per request, never mutated. The zero value means "no preset,
// no extra flags, default timing".
type Options struct {
	Preset           Preset `json:"preset,omitempty" yaml:"preset,omitempty"`
	Scripts          bool   `json:"scripts,omitempty" yaml:"scripts,omitempty"`
	VersionDetection bool   `json:"version_detection,omitempty" yaml:"version_detection,omitempty"`
	OSDetection      bool   `json:"os_detection,omitempty" yaml:"os_detection,omitempty"`
	SkipPing         bool   `json:"skip_ping,omitempty" yaml:"skip_ping,omitempty"`
	PingOnly         bool   `json:"ping_only,omitempty" yaml:"ping_only,omitempty"`
	Aggressive       bool   `json:"aggressive,omitempty" yaml:"aggressive,omitempty"`
	Verbose          bool   `json:"verbose,omitempty" yaml:"verbose,omitempty"`

	// Timing is the engine timing template, "T0" through "T5".
	// Empty means "use the configured default".
	Timing string `json:"timing,omitempty" yaml:"timing,omitempty"`

	// CustomPorts overrides any per-target port list when set.
	CustomPorts string `json:"custom_ports,omitempty" yaml:"custom_ports,omitempty"`
}

// JobState tracks a scan job through its lifecycle. Transitions are
// monotonic: once a job reaches a terminal state it never leaves it.
type JobState string

const (
	StatePending   JobState = "pending"
	StateRunning   JobState = "running"
	StateCompleted JobState = "completed"
	StateFailed    JobState = "failed"
	StateCancelled JobState = "cancelled"
	StateErrored   JobState = "errored"
)

// Terminal reports whether the state is final.
func (s JobState) Terminal() bool {
	switch s {
	case StateCompleted, StateFailed, StateCancelled, StateErrored:
		return true
	default:
		return false
	}
}

// ServiceEntry is one observed port with whatever service detail the
// engine reported. Name, product, and version are empty strings rather
// than omitted when the engine gave no detail, so consumers always see
// the same shape.
type ServiceEntry struct {
	Port        int    `json:"port"`
	Protocol    string `json:"protocol"`
	State       string `json:"state"`
	ServiceName string `json:"service_name"`
	Product     string `json:"product"`
	Version     string `json:"version"`
}

// Result is the normalized outcome of one scan job. It is created once
// per job and immutable afterwards. ParseError is set (and the rest
// populated best-effort) when the XML artifact was missing or
// malformed; the result is never discarded, only annotated.
type Result struct {
	TargetAddress   string            `json:"target_address"`
	HostStatus      string            `json:"host_status"`
	OpenPortCount   int               `json:"open_port_count"`
	Services        []ServiceEntry    `json:"services"`
	OSGuess         string            `json:"os_guess,omitempty"`
	Hostnames       []string          `json:"hostnames,omitempty"`
	ScriptFindings  map[string]string `json:"script_findings,omitempty"`
	CommandLine     string            `json:"command_line"`
	ExitCode        int               `json:"exit_code"`
	StdoutText      string            `json:"stdout_text,omitempty"`
	StderrText      string            `json:"stderr_text,omitempty"`
	DurationSeconds float64           `json:"duration_seconds"`
	ParseError      string            `json:"parse_error,omitempty"`
}

// JobSnapshot is a read-only view of a job for status reporting.
type JobSnapshot struct {
	ID        string         `json:"id"`
	Target    targets.Target `json:"target"`
	State     JobState       `json:"state"`
	StartedAt time.Time      `json:"started_at"`
	EndedAt   time.Time      `json:"ended_at,omitempty"`
	Basename  string         `json:"artifact_basename"`
}
