package firecracker

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	// HouseCount is the number of house codes, A through P.
	HouseCount = 16

	// ModuleCount is the number of module codes, 1 through 16.
	ModuleCount = 16

	headerBits = 16
	houseBits  = 5
	moduleBits = 11
	footerBits = 8

	// FrameLength is the number of bits in one encoded command.
	FrameLength = headerBits + houseBits + moduleBits + footerBits

	// offBit is the module bit set to 1 for an "off" command.
	offBit = 10
)

// Bits is a sequence of 0/1 values, most significant first.
type Bits []byte

// String renders the sequence as a string of '0' and '1'.
func (b Bits) String() string {
	var sb strings.Builder
	sb.Grow(len(b))
	for _, v := range b {
		if v == 0 {
			sb.WriteByte('0')
		} else {
			sb.WriteByte('1')
		}
	}
	return sb.String()
}

var frameHeader = [headerBits]byte{1, 1, 0, 1, 0, 1, 0, 1, 1, 0, 1, 0, 1, 0, 1, 0}

var frameFooter = [footerBits]byte{1, 0, 1, 0, 1, 1, 0, 1}

// houseCodes is indexed by house letter, A = 0.
var houseCodes = [HouseCount][houseBits]byte{
	{0, 1, 1, 0, 0}, // A
	{0, 1, 1, 1, 0}, // B
	{0, 1, 0, 0, 0}, // C
	{0, 1, 0, 1, 0}, // D
	{1, 0, 0, 0, 0}, // E
	{1, 0, 0, 1, 0}, // F
	{1, 0, 1, 0, 0}, // G
	{1, 0, 1, 1, 0}, // H
	{1, 1, 1, 0, 0}, // I
	{1, 1, 1, 1, 0}, // J
	{1, 1, 0, 0, 0}, // K
	{1, 1, 0, 1, 0}, // L
	{0, 0, 0, 0, 0}, // M
	{0, 0, 0, 1, 0}, // N
	{0, 0, 1, 0, 0}, // O
	{0, 0, 1, 1, 0}, // P
}

// moduleCodes is indexed by module number minus one.
var moduleCodes = [ModuleCount][moduleBits]byte{
	{0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0}, // 1
	{0, 0, 0, 0, 0, 0, 1, 0, 0, 0, 0}, // 2
	{0, 0, 0, 0, 0, 0, 0, 1, 0, 0, 0}, // 3
	{0, 0, 0, 0, 0, 0, 1, 1, 0, 0, 0}, // 4
	{0, 0, 0, 0, 1, 0, 0, 0, 0, 0, 0}, // 5
	{0, 0, 0, 0, 1, 0, 1, 0, 0, 0, 0}, // 6
	{0, 0, 0, 0, 1, 0, 0, 1, 0, 0, 0}, // 7
	{0, 0, 0, 0, 1, 0, 1, 1, 0, 0, 0}, // 8
	{1, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0}, // 9
	{1, 0, 0, 0, 0, 0, 1, 0, 0, 0, 0}, // 10
	{1, 0, 0, 0, 0, 0, 0, 1, 0, 0, 0}, // 11
	{1, 0, 0, 0, 0, 0, 1, 1, 0, 0, 0}, // 12
	{1, 0, 0, 0, 1, 0, 0, 0, 0, 0, 0}, // 13
	{1, 0, 0, 0, 1, 0, 1, 0, 0, 0, 0}, // 14
	{1, 0, 0, 0, 1, 0, 0, 1, 0, 0, 0}, // 15
	{1, 0, 0, 0, 1, 0, 1, 1, 0, 0, 0}, // 16
}

// Header returns a copy of the 16-bit frame header.
func Header() Bits {
	return append(Bits(nil), frameHeader[:]...)
}

// Footer returns a copy of the 8-bit frame footer.
func Footer() Bits {
	return append(Bits(nil), frameFooter[:]...)
}

// HouseCode returns a copy of the 5-bit pattern for house index 0..15 (A..P).
func HouseCode(index int) (Bits, error) {
	if index < 0 || index >= HouseCount {
		return nil, fmt.Errorf("%w: index %d", ErrInvalidHouse, index)
	}
	return append(Bits(nil), houseCodes[index][:]...), nil
}

// ModuleCode returns a copy of the 11-bit pattern for module index 0..15
// (modules 1..16).
func ModuleCode(index int) (Bits, error) {
	if index < 0 || index >= ModuleCount {
		return nil, fmt.Errorf("%w: index %d", ErrInvalidModule, index)
	}
	return append(Bits(nil), moduleCodes[index][:]...), nil
}

// ParseHouse converts a house letter ("A".."P", any case) to its index.
func ParseHouse(s string) (int, error) {
	s = strings.TrimSpace(s)
	if len(s) != 1 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidHouse, s)
	}
	c := s[0] &^ 0x20 // upper-case ASCII letters
	if c < 'A' || c > 'P' {
		return 0, fmt.Errorf("%w: %q", ErrInvalidHouse, s)
	}
	return int(c - 'A'), nil
}

// ParseModule converts a module number ("1".."16") to its index.
func ParseModule(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 || n > ModuleCount {
		return 0, fmt.Errorf("%w: %q", ErrInvalidModule, s)
	}
	return n - 1, nil
}

// HouseLetter returns the letter for a house index, or "?" when out of range.
func HouseLetter(index int) string {
	if index < 0 || index >= HouseCount {
		return "?"
	}
	return string(rune('A' + index))
}

// Address formats a house/module index pair the way X10 users write it,
// e.g. (0, 11) -> "A12".
func Address(house, module int) string {
	return HouseLetter(house) + strconv.Itoa(module+1)
}
