// Package netaddr parses and compares IPv4/IPv6 literals, CIDR blocks
// and lo-hi ranges, grounded on uhub's network/ipcalc.c (ip_is_valid_ipv4,
// ip_convert_address, ip_mask_create_left/right).
package netaddr

import (
	"errors"
	"fmt"
	"net/netip"
	"strings"
)

// ParseAddress parses an IPv4 or IPv6 literal, or the symbolic names
// "any" (unspecified address) and "loopback".
func ParseAddress(text string) (netip.Addr, error) {
	switch text {
	case "any":
		return netip.IPv6Unspecified(), nil
	case "loopback":
		return netip.IPv6Loopback(), nil
	}
	addr, err := netip.ParseAddr(text)
	if err != nil {
		return netip.Addr{}, fmt.Errorf("netaddr: invalid address %q: %w", text, err)
	}
	return addr, nil
}

// Range is an inclusive, same-family address range.
type Range struct {
	Lo, Hi netip.Addr
}

// ErrMixedFamily is returned when the two endpoints of a range belong
// to different address families.
var ErrMixedFamily = errors.New("netaddr: range endpoints are not the same address family")

// ParseRange accepts "<addr>/<bits>" (CIDR) or "<lo>-<hi>".
func ParseRange(text string) (Range, error) {
	if i := strings.IndexByte(text, '/'); i >= 0 {
		prefix, err := netip.ParsePrefix(text)
		if err != nil {
			return Range{}, fmt.Errorf("netaddr: invalid range %q: %w", text, err)
		}
		return prefixRange(prefix), nil
	}
	if i := strings.IndexByte(text, '-'); i >= 0 {
		lo, err := ParseAddress(text[:i])
		if err != nil {
			return Range{}, err
		}
		hi, err := ParseAddress(text[i+1:])
		if err != nil {
			return Range{}, err
		}
		if lo.Is4() != hi.Is4() {
			return Range{}, ErrMixedFamily
		}
		return Range{Lo: lo, Hi: hi}, nil
	}
	return Range{}, fmt.Errorf("netaddr: %q is neither a CIDR block nor a lo-hi range", text)
}

func prefixRange(p netip.Prefix) Range {
	addr := p.Addr()
	bits := p.Bits()
	left := maskLeft(addr, bits)
	right := maskRight(addr, bits)
	return Range{Lo: left, Hi: right}
}

// maskLeft computes the lowest address in addr's /bits network,
// mirroring ip_mask_create_left's bitwise-AND-with-left-mask
// construction.
func maskLeft(addr netip.Addr, bits int) netip.Addr {
	b := addr.AsSlice()
	total := len(b) * 8
	if bits < 0 {
		bits = 0
	}
	if bits > total {
		bits = total
	}
	out := make([]byte, len(b))
	copy(out, b)
	clearBitsFrom(out, bits)
	a, _ := netip.AddrFromSlice(out)
	return a
}

// maskRight computes the highest address in addr's /bits network,
// mirroring ip_mask_create_right's bitwise-OR-with-right-mask
// construction.
func maskRight(addr netip.Addr, bits int) netip.Addr {
	b := addr.AsSlice()
	total := len(b) * 8
	if bits < 0 {
		bits = 0
	}
	if bits > total {
		bits = total
	}
	out := make([]byte, len(b))
	copy(out, b)
	setBitsFrom(out, bits)
	a, _ := netip.AddrFromSlice(out)
	return a
}

// clearBitsFrom zeroes every bit at position >= bits (0 = MSB of
// byte 0), left-to-right across the byte slice.
func clearBitsFrom(b []byte, bits int) {
	for i := range b {
		bitStart := i * 8
		bitEnd := bitStart + 8
		switch {
		case bitEnd <= bits:
			// fully inside the network part, keep as-is
		case bitStart >= bits:
			b[i] = 0
		default:
			keep := bits - bitStart // number of leading bits to keep
			mask := byte(0xff << uint(8-keep))
			b[i] &= mask
		}
	}
}

// setBitsFrom sets every bit at position >= bits to 1.
func setBitsFrom(b []byte, bits int) {
	for i := range b {
		bitStart := i * 8
		bitEnd := bitStart + 8
		switch {
		case bitEnd <= bits:
			// fully inside the network part, keep as-is
		case bitStart >= bits:
			b[i] = 0xff
		default:
			keep := bits - bitStart
			mask := byte(0xff >> uint(keep))
			b[i] |= mask
		}
	}
}

// Contains reports whether addr falls within r, inclusive on both
// ends. Comparison is lexicographic over network byte order, matching
// the same-family comparison required by spec.md §4.B.
func (r Range) Contains(addr netip.Addr) bool {
	if addr.Is4() != r.Lo.Is4() {
		return false
	}
	return Compare(r.Lo, addr) <= 0 && Compare(addr, r.Hi) <= 0
}

// Compare orders two same-family addresses lexicographically over
// their network-byte-order representation. Mixed families compare by
// family (IPv4 before IPv6) so the function is still total.
func Compare(a, b netip.Addr) int {
	if a.Is4() != b.Is4() {
		if a.Is4() {
			return -1
		}
		return 1
	}
	ab, bb := a.AsSlice(), b.AsSlice()
	for i := range ab {
		if ab[i] != bb[i] {
			if ab[i] < bb[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}
