package engine

import (
	"encoding/xml"
	"fmt"
	"os"
)

// nmaprun XML artifact shapes. Only the substructures the normalized
// result needs are mapped; everything else is ignored by the decoder.
type nmapRun struct {
	XMLName xml.Name   `xml:"nmaprun"`
	Hosts   []nmapHost `xml:"host"`
}

type nmapHost struct {
	Status      *nmapStatus    `xml:"status"`
	Addresses   []nmapAddress  `xml:"address"`
	Hostnames   []nmapHostname `xml:"hostnames>hostname"`
	Ports       []nmapPort     `xml:"ports>port"`
	OSMatches   []nmapOSMatch  `xml:"os>osmatch"`
	HostScripts []nmapScript   `xml:"hostscript>script"`
}

type nmapStatus struct {
	State string `xml:"state,attr"`
}

type nmapAddress struct {
	Addr     string `xml:"addr,attr"`
	AddrType string `xml:"addrtype,attr"`
}

type nmapHostname struct {
	Name string `xml:"name,attr"`
}

type nmapPort struct {
	Protocol string        `xml:"protocol,attr"`
	PortID   int           `xml:"portid,attr"`
	State    *nmapState    `xml:"state"`
	Service  *nmapService  `xml:"service"`
	Scripts  []nmapScript  `xml:"script"`
}

type nmapState struct {
	State string `xml:"state,attr"`
}

type nmapService struct {
	Name    string `xml:"name,attr"`
	Product string `xml:"product,attr"`
	Version string `xml:"version,attr"`
}

type nmapOSMatch struct {
	Name string `xml:"name,attr"`
}

type nmapScript struct {
	ID     string `xml:"id,attr"`
	Output string `xml:"output,attr"`
}

// ParseArtifact reads the XML artifact at path and fills the
// host-derived fields of result. It is tolerant: any missing optional
// substructure (host block, ports, OS matches, scripts) yields its
// default or empty field. Only a root-level failure — the file missing
// or not well-formed — sets ParseError, and even then the result keeps
// a stable zero-filled shape rather than being discarded.
func ParseArtifact(path string, result *Result) {
	result.HostStatus = "unknown"
	result.Services = []ServiceEntry{}

	data, err := os.ReadFile(path)
	if err != nil {
		result.ParseError = fmt.Sprintf("failed to read scan artifact: %v", err)
		return
	}

	var run nmapRun
	if err := xml.Unmarshal(data, &run); err != nil {
		result.ParseError = fmt.Sprintf("failed to parse scan artifact: %v", err)
		return
	}

	if len(run.Hosts) == 0 {
		return
	}
	host := run.Hosts[0]

	if host.Status != nil && host.Status.State != "" {
		result.HostStatus = host.Status.State
	}

	for _, hn := range host.Hostnames {
		if hn.Name != "" {
			result.Hostnames = append(result.Hostnames, hn.Name)
		}
	}

	scripts := map[string]string{}
	for _, s := range host.HostScripts {
		scripts[s.ID] = s.Output
	}

	for _, port := range host.Ports {
		entry := ServiceEntry{
			Port:     port.PortID,
			Protocol: port.Protocol,
			State:    "unknown",
		}
		if port.State != nil && port.State.State != "" {
			entry.State = port.State.State
		}
		if port.Service != nil {
			entry.ServiceName = port.Service.Name
			entry.Product = port.Service.Product
			entry.Version = port.Service.Version
		}
		if entry.State == "open" {
			result.OpenPortCount++
		}
		result.Services = append(result.Services, entry)

		// Port-level script ids can collide with host-level ones;
		// last write wins.
		for _, s := range port.Scripts {
			scripts[s.ID] = s.Output
		}
	}

	// First OS match is the engine's highest-confidence guess.
	if len(host.OSMatches) > 0 {
		result.OSGuess = host.OSMatches[0].Name
	}

	if len(scripts) > 0 {
		result.ScriptFindings = scripts
	}
}
