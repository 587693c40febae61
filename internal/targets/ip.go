package targets

import (
	"fmt"
	"net"
	"strconv"
)

// parseIPv4 converts dotted-quad text to its numeric value.
func parseIPv4(s string) (uint32, bool) {
	ip := net.ParseIP(s)
	if ip == nil {
		return 0, false
	}
	v4 := ip.To4()
	if v4 == nil {
		return 0, false
	}
	return uint32(v4[0])<<24 | uint32(v4[1])<<16 | uint32(v4[2])<<8 | uint32(v4[3]), true
}

// formatIPv4 renders a numeric address as dotted-quad text.
func formatIPv4(ip uint32) string {
	return fmt.Sprintf("%d.%d.%d.%d", byte(ip>>24), byte(ip>>16), byte(ip>>8), byte(ip))
}

// parseOctet parses a single 0-255 decimal token.
func parseOctet(s string) (int, bool) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 || n > 255 {
		return 0, false
	}
	return n, true
}

// cidrHostBounds returns the first and last usable host addresses of an
// IPv4 CIDR block. Network and broadcast addresses are excluded for
// prefixes shorter than /31; /31 and /32 include every address.
func cidrHostBounds(s string) (first, last uint32, ok bool) {
	_, ipNet, err := net.ParseCIDR(s)
	if err != nil {
		return 0, 0, false
	}
	v4 := ipNet.IP.To4()
	if v4 == nil {
		return 0, 0, false
	}

	ones, bits := ipNet.Mask.Size()
	base := uint32(v4[0])<<24 | uint32(v4[1])<<16 | uint32(v4[2])<<8 | uint32(v4[3])
	size := uint64(1) << (bits - ones)

	if ones >= 31 {
		return base, base + uint32(size) - 1, true
	}
	return base + 1, base + uint32(size) - 2, true
}
