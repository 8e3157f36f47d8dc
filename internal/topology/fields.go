package topology

import (
	"encoding/binary"
	"net/netip"
	"strconv"
	"strings"

	"github.com/KevinKickass/OpenMachineConfig/internal/types"
)

const maxNameLength = 100

// cleanName trims and checks a user-supplied name.
func cleanName(field, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", types.NewValidationError(field, "Name Is Required")
	}
	if len([]rune(name)) > maxNameLength {
		return "", types.NewValidationError(field, "Name Must Be At Most %d Characters", maxNameLength)
	}
	return name, nil
}

// parseIPv4 accepts a canonical dotted quad only. Leading zeros, CIDR
// suffixes, zones and IPv6 forms are rejected.
func parseIPv4(field, s string) (netip.Addr, error) {
	addr, err := netip.ParseAddr(strings.TrimSpace(s))
	if err != nil || !addr.Is4() {
		return netip.Addr{}, types.NewValidationError(field, "Invalid IPv4 Address: %s", s)
	}
	return addr, nil
}

// parseSubnetMask accepts a dotted quad whose one bits are contiguous.
func parseSubnetMask(field, s string) (netip.Addr, error) {
	addr, err := parseIPv4(field, s)
	if err != nil {
		return addr, err
	}
	b := addr.As4()
	inv := ^binary.BigEndian.Uint32(b[:])
	if inv&(inv+1) != 0 {
		return netip.Addr{}, types.NewValidationError(field, "Invalid Subnet Mask: %s", s)
	}
	return addr, nil
}

// parseStationAddress accepts a decimal serial station number in [1,255] and
// returns its canonical form.
func parseStationAddress(field, s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.IndexFunc(s, func(r rune) bool { return r < '0' || r > '9' }) >= 0 {
		return "", types.NewValidationError(field, "Device Address Must Be A Number Between 1 And 255")
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || n > 255 {
		return "", types.NewValidationError(field, "Device Address Must Be A Number Between 1 And 255")
	}
	return strconv.Itoa(n), nil
}

// validBrokerHost reports whether s is a hostname or IP without a scheme,
// port or path.
func validBrokerHost(s string) bool {
	if s == "" || strings.ContainsAny(s, ":/ ") {
		return false
	}
	if _, err := netip.ParseAddr(s); err == nil {
		return true
	}
	if len(s) > 253 {
		return false
	}
	for _, label := range strings.Split(s, ".") {
		if label == "" || len(label) > 63 || label[0] == '-' || label[len(label)-1] == '-' {
			return false
		}
		for _, r := range label {
			if !(r == '-' || r >= '0' && r <= '9' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z') {
				return false
			}
		}
	}
	return true
}
