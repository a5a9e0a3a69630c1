package firecracker

import (
	"errors"
	"testing"
)

func TestHouseCode_Table(t *testing.T) {
	want := []string{
		"01100", "01110", "01000", "01010", "10000", "10010", "10100", "10110",
		"11100", "11110", "11000", "11010", "00000", "00010", "00100", "00110",
	}
	for i, w := range want {
		got, err := HouseCode(i)
		if err != nil {
			t.Fatalf("HouseCode(%d) error = %v", i, err)
		}
		if got.String() != w {
			t.Errorf("HouseCode(%d) = %s, want %s", i, got, w)
		}
	}
}

func TestModuleCode_Table(t *testing.T) {
	want := []string{
		"00000000000", "00000010000", "00000001000", "00000011000",
		"00001000000", "00001010000", "00001001000", "00001011000",
		"10000000000", "10000010000", "10000001000", "10000011000",
		"10001000000", "10001010000", "10001001000", "10001011000",
	}
	for i, w := range want {
		got, err := ModuleCode(i)
		if err != nil {
			t.Fatalf("ModuleCode(%d) error = %v", i, err)
		}
		if got.String() != w {
			t.Errorf("ModuleCode(%d) = %s, want %s", i, got, w)
		}
	}
}

func TestCodes_OutOfRange(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"house -1", second(HouseCode(-1)), ErrInvalidHouse},
		{"house 16", second(HouseCode(16)), ErrInvalidHouse},
		{"module -1", second(ModuleCode(-1)), ErrInvalidModule},
		{"module 16", second(ModuleCode(16)), ErrInvalidModule},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !errors.Is(tt.err, tt.want) {
				t.Errorf("error = %v, want %v", tt.err, tt.want)
			}
		})
	}
}

func second(_ Bits, err error) error { return err }

func TestCodes_ReturnCopies(t *testing.T) {
	h, _ := HouseCode(0)
	h[0] = 9
	again, _ := HouseCode(0)
	if again.String() != "01100" {
		t.Errorf("HouseCode(0) = %s after caller mutation, want 01100", again)
	}

	hdr := Header()
	hdr[0] = 0
	if Header().String() != "1101010110101010" {
		t.Errorf("Header() = %s after caller mutation", Header())
	}
	if Footer().String() != "10101101" {
		t.Errorf("Footer() = %s, want 10101101", Footer())
	}
}

func TestParseHouse(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"A", 0, false},
		{"a", 0, false},
		{" P ", 15, false},
		{"g", 6, false},
		{"Q", 0, true},
		{"", 0, true},
		{"AB", 0, true},
		{"1", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseHouse(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidHouse) {
					t.Errorf("ParseHouse(%q) error = %v, want %v", tt.in, err, ErrInvalidHouse)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Errorf("ParseHouse(%q) = %d, %v, want %d", tt.in, got, err, tt.want)
			}
		})
	}
}

func TestParseModule(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"1", 0, false},
		{"16", 15, false},
		{" 7", 6, false},
		{"0", 0, true},
		{"17", 0, true},
		{"x", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseModule(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidModule) {
					t.Errorf("ParseModule(%q) error = %v, want %v", tt.in, err, ErrInvalidModule)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Errorf("ParseModule(%q) = %d, %v, want %d", tt.in, got, err, tt.want)
			}
		})
	}
}

func TestAddress(t *testing.T) {
	if got := Address(0, 11); got != "A12" {
		t.Errorf("Address(0, 11) = %q, want A12", got)
	}
	if got := Address(15, 0); got != "P1" {
		t.Errorf("Address(15, 0) = %q, want P1", got)
	}
	if got := HouseLetter(16); got != "?" {
		t.Errorf("HouseLetter(16) = %q, want ?", got)
	}
}
