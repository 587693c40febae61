package discovery

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewSweeperDefaults(t *testing.T) {
	s := NewSweeper(Config{}, nil)
	assert.Equal(t, defaultTimeout, s.config.Timeout)
}

func TestAddresses(t *testing.T) {
	hosts := []Host{
		{Address: "10.0.0.1", Hostname: "gw.internal"},
		{Address: "10.0.0.7"},
	}
	assert.Equal(t, "10.0.0.1\n10.0.0.7\n", Addresses(hosts))
	assert.Equal(t, "", Addresses(nil))
}

func TestReverseLookupBadInputs(t *testing.T) {
	s := NewSweeper(Config{
		ResolveHostnames: true,
		DNSServer:        "127.0.0.1:1", // nothing listens here
		Timeout:          time.Second,
	}, nil)

	assert.Equal(t, "", s.reverseLookup("not-an-ip"))
	assert.Equal(t, "", s.reverseLookup("10.0.0.1"))
}
