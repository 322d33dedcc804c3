// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package sent

import (
	"fmt"
	"strings"
)

// FormatFrame formats a frame into a human-readable string
func FormatFrame(f *Frame) string {
	timestamp := f.timestamp.Format("15:04:05.000")

	result := fmt.Sprintf("[%s] %s cu=%d status=0x%X crc=0x%X\n",
		timestamp, f.format, f.calibrationUnit, f.status, f.crc)
	result += fmt.Sprintf("  Data: %s\n", FormatNibbles(f.Data()))
	result += FormatChannels(f.format, f.channels)

	if f.StartBit() || f.DataBit() {
		result += fmt.Sprintf("  SCN: start=%t bit=%t\n", f.StartBit(), f.DataBit())
	}
	if msg, ok := f.ShortMessage(); ok {
		result += "  " + FormatShortMessage(msg)
	}

	return result
}

// FormatChannels formats the fast-channel values of a frame format
func FormatChannels(format Format, ch Channels) string {
	desc := format.Descriptor()
	switch format {
	case FormatH4:
		return fmt.Sprintf("  Ch1: %d (0x%03X), Counter: %d\n", ch.Ch1, ch.Ch1, ch.Ch2)
	case FormatH5:
		return fmt.Sprintf("  Ch1: %d (0x%03X)\n", ch.Ch1, ch.Ch1)
	}
	if desc.Widths[1] == 0 {
		return fmt.Sprintf("  Ch1: %d (0x%0*X)\n", ch.Ch1, hexDigits(desc.Widths[0]), ch.Ch1)
	}
	return fmt.Sprintf("  Ch1: %d (0x%0*X), Ch2: %d (0x%0*X)\n",
		ch.Ch1, hexDigits(desc.Widths[0]), ch.Ch1,
		ch.Ch2, hexDigits(desc.Widths[1]), ch.Ch2)
}

// FormatShortMessage formats a short serial message
func FormatShortMessage(m ShortMessage) string {
	return fmt.Sprintf("Short message: id=0x%X data=0x%X crc=0x%X\n", m.ID, m.Data, m.CRC)
}

// FormatNibbles renders nibbles as hex digits separated by spaces
func FormatNibbles(nibbles []Nibble) string {
	parts := make([]string, len(nibbles))
	for i, n := range nibbles {
		parts[i] = fmt.Sprintf("%X", n&NibbleMask)
	}
	return strings.Join(parts, " ")
}

func hexDigits(width uint) int {
	return int((width + 3) / 4)
}
