// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package sent

import (
	"errors"
	"math/rand"
	"testing"
)

// ============================================================
// Format Table Tests
// ============================================================

func TestFormatTable(t *testing.T) {
	tests := []struct {
		format  Format
		nibbles int
		ch1     uint
		ch2     uint
	}{
		{FormatH1, 6, 12, 12},
		{FormatH2, 3, 12, 0},
		{FormatH3, 4, 12, 0},
		{FormatH4, 6, 12, 8},
		{FormatH5, 6, 12, 0},
		{FormatH6, 6, 14, 10},
		{FormatH7, 6, 16, 8},
	}

	for _, tt := range tests {
		t.Run(tt.format.String(), func(t *testing.T) {
			d := tt.format.Descriptor()
			if d.DataNibbles != tt.nibbles {
				t.Errorf("Expected %d data nibbles, got %d", tt.nibbles, d.DataNibbles)
			}
			if d.Widths[0] != tt.ch1 || d.Widths[1] != tt.ch2 {
				t.Errorf("Expected widths %d/%d, got %d/%d", tt.ch1, tt.ch2, d.Widths[0], d.Widths[1])
			}
			if len(d.nibbles) != d.DataNibbles {
				t.Errorf("Layout has %d positions for %d nibbles", len(d.nibbles), d.DataNibbles)
			}
		})
	}
}

func TestFormat_Invalid(t *testing.T) {
	if Format(0).Valid() || Format(8).Valid() {
		t.Error("Formats outside H1-H7 should be invalid")
	}
	if Format(9).String() != "Format(9)" {
		t.Errorf("Unexpected name %q", Format(9).String())
	}
}

func TestParseFormat(t *testing.T) {
	for _, s := range []string{"H4", "h4", "H.4", "4", " H4 "} {
		f, err := ParseFormat(s)
		if err != nil {
			t.Errorf("ParseFormat(%q) failed: %v", s, err)
			continue
		}
		if f != FormatH4 {
			t.Errorf("ParseFormat(%q) = %s", s, f)
		}
	}

	if _, err := ParseFormat("H8"); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("Expected ErrInvalidConfig for H8, got %v", err)
	}
}

func TestExtract_KnownLayouts(t *testing.T) {
	tests := []struct {
		format   Format
		channels Channels
		expected []Nibble
	}{
		{FormatH1, Channels{0xABC, 0x123}, []Nibble{0xA, 0xB, 0xC, 0x3, 0x2, 0x1}},
		{FormatH2, Channels{0x3A1, 0}, []Nibble{0x3, 0xA, 0x1}},
		{FormatH3, Channels{0xABC, 0}, []Nibble{0x5, 0x2, 0x7, 0x4}},
		{FormatH4, Channels{0xABC, 0x5E}, []Nibble{0xA, 0xB, 0xC, 0x5, 0xE, 0x5}},
		{FormatH5, Channels{0xABC, 0}, []Nibble{0xA, 0xB, 0xC, 0x0, 0x0, 0x0}},
		{FormatH6, Channels{0x2ABC, 0x2D5}, []Nibble{0xA, 0xA, 0xF, 0x1, 0x5, 0xB}},
		{FormatH7, Channels{0xABCD, 0x5E}, []Nibble{0xA, 0xB, 0xC, 0xD, 0xE, 0x5}},
	}

	for _, tt := range tests {
		t.Run(tt.format.String(), func(t *testing.T) {
			d := tt.format.Descriptor()
			for pos, want := range tt.expected {
				if got := d.Extract(pos, tt.channels); got != want {
					t.Errorf("Nibble %d: expected 0x%X, got 0x%X", pos, want, got)
				}
			}

			ch := d.Assemble(tt.expected)
			if ch != tt.channels {
				t.Errorf("Assemble: expected %+v, got %+v", tt.channels, ch)
			}
		})
	}
}

func TestExtract_OutOfBounds(t *testing.T) {
	d := FormatH2.Descriptor()
	if d.Extract(-1, Channels{0xFFF, 0}) != 0 || d.Extract(3, Channels{0xFFF, 0}) != 0 {
		t.Error("Positions outside the layout should extract zero")
	}
}

// randomChannels returns channel values that fit the format widths
func randomChannels(rng *rand.Rand, d FormatDescriptor) Channels {
	var ch Channels
	if d.Widths[0] > 0 {
		ch.Ch1 = uint16(rng.Intn(1 << d.Widths[0]))
	}
	if d.Widths[1] > 0 {
		ch.Ch2 = uint16(rng.Intn(1 << d.Widths[1]))
	}
	return ch
}

func TestExtractAssemble_RoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	for _, f := range Formats {
		d := f.Descriptor()
		for i := 0; i < 200; i++ {
			ch := randomChannels(rng, d)
			nibbles := make([]Nibble, d.DataNibbles)
			for pos := range nibbles {
				nibbles[pos] = d.Extract(pos, ch)
			}
			if got := d.Assemble(nibbles); got != ch {
				t.Fatalf("%s: expected %+v, got %+v", f, ch, got)
			}
		}
	}
}

func TestFits(t *testing.T) {
	d := FormatH6.Descriptor()
	if !d.Fits(Channels{0x3FFF, 0x3FF}) {
		t.Error("Maximum H6 values should fit")
	}
	if d.Fits(Channels{0x4000, 0}) || d.Fits(Channels{0, 0x400}) {
		t.Error("Values beyond H6 widths should not fit")
	}

	if !FormatH7.Descriptor().Fits(Channels{0xFFFF, 0xFF}) {
		t.Error("16-bit channel 1 should always fit H7")
	}
	if FormatH2.Descriptor().Fits(Channels{0x3A1, 1}) {
		t.Error("H2 has no channel 2")
	}
}
