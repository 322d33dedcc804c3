// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package sent

import (
	"fmt"
	"strings"
)

// Format identifies one of the fast-channel frame layouts H.1 to H.7
type Format int

const (
	FormatH1 Format = iota + 1
	FormatH2
	FormatH3
	FormatH4
	FormatH5
	FormatH6
	FormatH7
)

// Formats lists every supported format in table order
var Formats = []Format{FormatH1, FormatH2, FormatH3, FormatH4, FormatH5, FormatH6, FormatH7}

// Channels holds the fast-channel values of a frame
type Channels struct {
	Ch1 uint16
	Ch2 uint16
}

func (c Channels) get(ch int) uint16 {
	if ch == 0 {
		return c.Ch1
	}
	return c.Ch2
}

func (c *Channels) or(ch int, v uint16) {
	if ch == 0 {
		c.Ch1 |= v
	} else {
		c.Ch2 |= v
	}
}

// bitField maps a run of channel bits onto a run of nibble bits
type bitField struct {
	channel int  // 0 = fast channel 1, 1 = fast channel 2
	shift   uint // lowest channel bit carried
	width   uint
	offset  uint // lowest nibble bit position
	invert  bool // redundant one's complement copy
}

func (f bitField) mask() uint16 {
	return 1<<f.width - 1
}

// FormatDescriptor is the static description of a frame format
type FormatDescriptor struct {
	Format      Format
	Name        string
	DataNibbles int
	Widths      [2]uint
	nibbles     [][]bitField
}

// nib is a whole channel nibble starting at channel bit shift
func nib(channel int, shift uint) []bitField {
	return []bitField{{channel: channel, shift: shift, width: 4}}
}

var formatTable = map[Format]FormatDescriptor{
	FormatH1: {
		Format: FormatH1, Name: "H.1 Two 12-bit fast channels",
		DataNibbles: 6, Widths: [2]uint{12, 12},
		nibbles: [][]bitField{nib(0, 8), nib(0, 4), nib(0, 0), nib(1, 0), nib(1, 4), nib(1, 8)},
	},
	FormatH2: {
		Format: FormatH2, Name: "H.2 One 12-bit fast channel",
		DataNibbles: 3, Widths: [2]uint{12, 0},
		nibbles: [][]bitField{nib(0, 8), nib(0, 4), nib(0, 0)},
	},
	FormatH3: {
		Format: FormatH3, Name: "H.3 High-speed one 12-bit fast channel",
		DataNibbles: 4, Widths: [2]uint{12, 0},
		nibbles: [][]bitField{
			{{channel: 0, shift: 9, width: 3}},
			{{channel: 0, shift: 6, width: 3}},
			{{channel: 0, shift: 3, width: 3}},
			{{channel: 0, shift: 0, width: 3}},
		},
	},
	FormatH4: {
		Format: FormatH4, Name: "H.4 Secure sensor with 12-bit fast channel",
		DataNibbles: 6, Widths: [2]uint{12, 8},
		nibbles: [][]bitField{
			nib(0, 8), nib(0, 4), nib(0, 0),
			nib(1, 4), nib(1, 0),
			{{channel: 0, shift: 8, width: 4, invert: true}},
		},
	},
	FormatH5: {
		Format: FormatH5, Name: "H.5 Single sensor with 12-bit fast channel and zero channel 2",
		DataNibbles: 6, Widths: [2]uint{12, 0},
		nibbles: [][]bitField{nib(0, 8), nib(0, 4), nib(0, 0), nil, nil, nil},
	},
	FormatH6: {
		Format: FormatH6, Name: "H.6 14-bit fast channel 1 and 10-bit fast channel 2",
		DataNibbles: 6, Widths: [2]uint{14, 10},
		nibbles: [][]bitField{
			nib(0, 10), nib(0, 6), nib(0, 2),
			{{channel: 0, shift: 0, width: 2, offset: 2}, {channel: 1, shift: 0, width: 2}},
			nib(1, 2), nib(1, 6),
		},
	},
	FormatH7: {
		Format: FormatH7, Name: "H.7 16-bit fast channel 1 and 8-bit fast channel 2",
		DataNibbles: 6, Widths: [2]uint{16, 8},
		nibbles: [][]bitField{nib(0, 12), nib(0, 8), nib(0, 4), nib(0, 0), nib(1, 0), nib(1, 4)},
	},
}

// Valid reports whether f is a known format
func (f Format) Valid() bool {
	_, ok := formatTable[f]
	return ok
}

// Descriptor returns the static layout of the format.
// Unknown formats return a zero descriptor.
func (f Format) Descriptor() FormatDescriptor {
	return formatTable[f]
}

// String returns the short name (H1..H7)
func (f Format) String() string {
	if !f.Valid() {
		return fmt.Sprintf("Format(%d)", int(f))
	}
	return fmt.Sprintf("H%d", int(f))
}

// ParseFormat parses "H1".."H7", "H.1".."H.7" or "1".."7"
func ParseFormat(s string) (Format, error) {
	v := strings.ToUpper(strings.TrimSpace(s))
	v = strings.TrimPrefix(v, "H")
	v = strings.TrimPrefix(v, ".")
	for _, f := range Formats {
		if v == fmt.Sprintf("%d", int(f)) {
			return f, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown format %q", ErrInvalidConfig, s)
}

// Extract returns the nibble at data position pos for the given channel values
func (d FormatDescriptor) Extract(pos int, ch Channels) Nibble {
	if pos < 0 || pos >= len(d.nibbles) {
		return 0
	}
	var n Nibble
	for _, f := range d.nibbles[pos] {
		bits := ch.get(f.channel) >> f.shift & f.mask()
		if f.invert {
			bits = ^bits & f.mask()
		}
		n |= Nibble(bits << f.offset)
	}
	return n & NibbleMask
}

// Assemble rebuilds the channel values from data nibbles.
// Redundant (inverted) fields are skipped; ValidateFrame checks them.
func (d FormatDescriptor) Assemble(nibbles []Nibble) Channels {
	var ch Channels
	for pos, fields := range d.nibbles {
		if pos >= len(nibbles) {
			break
		}
		for _, f := range fields {
			if f.invert {
				continue
			}
			bits := uint16(nibbles[pos]) >> f.offset & f.mask()
			ch.or(f.channel, bits<<f.shift)
		}
	}
	return ch
}

// Fits reports whether the channel values fit the format widths
func (d FormatDescriptor) Fits(ch Channels) bool {
	return fitsWidth(ch.Ch1, d.Widths[0]) && fitsWidth(ch.Ch2, d.Widths[1])
}

func fitsWidth(v uint16, width uint) bool {
	if width >= 16 {
		return true
	}
	return uint32(v) < 1<<width
}
