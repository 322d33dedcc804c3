// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package sent

import "time"

// Frame represents a decoded SENT frame
type Frame struct {
	format          Format
	calibrationUnit uint32
	status          Nibble
	data            [MaxDataNibbles]Nibble
	dataLen         int
	crc             Nibble
	channels        Channels
	timestamp       time.Time

	// Short message completed while this frame was in flight
	message *ShortMessage
}

// NewFrame creates a frame from its nibbles. Channel values are assembled
// from the data nibbles and the CRC is computed automatically.
func NewFrame(format Format, cu uint32, status Nibble, data []Nibble) *Frame {
	f := &Frame{
		format:          format,
		calibrationUnit: cu,
		status:          status & NibbleMask,
		timestamp:       time.Now(),
	}
	f.dataLen = copy(f.data[:], data)
	f.channels = format.Descriptor().Assemble(f.Data())
	f.crc = CalculateCRC(f.CRCInput())
	return f
}

// Format returns the frame format
func (f *Frame) Format() Format {
	return f.format
}

// CalibrationUnit returns the sync low phase this frame was decoded with
func (f *Frame) CalibrationUnit() uint32 {
	return f.calibrationUnit
}

// Status returns the status nibble
func (f *Frame) Status() Nibble {
	return f.status
}

// Data returns a copy of the data nibbles
func (f *Frame) Data() []Nibble {
	out := make([]Nibble, f.dataLen)
	copy(out, f.data[:f.dataLen])
	return out
}

// CRC returns the frame CRC nibble
func (f *Frame) CRC() Nibble {
	return f.crc
}

// CRCInput returns the nibbles covered by the CRC: status then data
func (f *Frame) CRCInput() []Nibble {
	return append([]Nibble{f.status}, f.data[:f.dataLen]...)
}

// Channels returns the decoded fast-channel values
func (f *Frame) Channels() Channels {
	return f.channels
}

// Timestamp returns the frame decode timestamp
func (f *Frame) Timestamp() time.Time {
	return f.timestamp
}

// ShortMessage returns the short message completed with this frame, if any
func (f *Frame) ShortMessage() (ShortMessage, bool) {
	if f.message == nil {
		return ShortMessage{}, false
	}
	return *f.message, true
}

// StartBit returns the short message start bit of the status nibble
func (f *Frame) StartBit() bool {
	return f.status&StatusStartBit != 0
}

// DataBit returns the short message data bit of the status nibble
func (f *Frame) DataBit() bool {
	return f.status&StatusDataBit != 0
}

// Pulses returns the wire pulses of the frame without a pause pulse
func (f *Frame) Pulses() []Pulse {
	cu := f.calibrationUnit
	pulses := make([]Pulse, 0, f.dataLen+3)
	sync, _ := EncodeSync(cu)
	pulses = append(pulses, sync)
	for _, n := range f.CRCInput() {
		p, _ := EncodeNibble(n, cu)
		pulses = append(pulses, p)
	}
	crc, _ := EncodeNibble(f.crc, cu)
	return append(pulses, crc)
}
