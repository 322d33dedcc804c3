// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package sent

import "fmt"

// ShortMessage is a short serial message: 4-bit ID, 4-bit data and the
// CRC over both. It is carried one bit per frame in the status nibble.
type ShortMessage struct {
	ID   Nibble
	Data Nibble
	CRC  Nibble
}

// NewShortMessage builds a message and computes its CRC
func NewShortMessage(id, data Nibble) (ShortMessage, error) {
	if id > NibbleMask || data > NibbleMask {
		return ShortMessage{}, fmt.Errorf("%w: short message id=%d data=%d", ErrOutOfRange, id, data)
	}
	return ShortMessage{ID: id, Data: data, CRC: CalculateCRC([]Nibble{id, data})}, nil
}

// Validate checks the embedded CRC
func (m ShortMessage) Validate() error {
	if err := ValidateCRC([]Nibble{m.ID, m.Data}, m.CRC); err != nil {
		if ce, ok := err.(*CRCError); ok {
			ce.Field = shortMessageField
		}
		return err
	}
	return nil
}

// bits packs the message MSB first: ID, data, CRC
func (m ShortMessage) bits() uint16 {
	return uint16(m.ID&NibbleMask)<<8 | uint16(m.Data&NibbleMask)<<4 | uint16(m.CRC&NibbleMask)
}

func shortMessageFromBits(reg uint16) ShortMessage {
	return ShortMessage{
		ID:   Nibble(reg>>8) & NibbleMask,
		Data: Nibble(reg>>4) & NibbleMask,
		CRC:  Nibble(reg) & NibbleMask,
	}
}

// ShortMessageSender serializes one message at a time into status bits
type ShortMessageSender struct {
	reg    uint16
	offset int
	active bool
}

// Start loads a new message, discarding any message still in flight
func (s *ShortMessageSender) Start(id, data Nibble) (ShortMessage, error) {
	msg, err := NewShortMessage(id, data)
	if err != nil {
		return ShortMessage{}, err
	}
	s.reg = msg.bits()
	s.offset = 0
	s.active = true
	return msg, nil
}

// Active reports whether message bits remain to be sent
func (s *ShortMessageSender) Active() bool {
	return s.active
}

// NextBit returns the next message bit. start is true only for the first
// bit after Start. Reading past the twelfth bit returns ErrExhausted.
func (s *ShortMessageSender) NextBit() (start bool, bit bool, err error) {
	if !s.active {
		return false, false, ErrExhausted
	}
	start = s.offset == 0
	bit = s.reg&(1<<(ShortMessageBits-1-s.offset)) != 0
	s.offset++
	if s.offset >= ShortMessageBits {
		s.active = false
	}
	return start, bit, nil
}

// ShortMessageReceiver reassembles messages from status bits
type ShortMessageReceiver struct {
	reg   uint16
	count int
}

// PushBit accumulates one status bit pair. A start bit resets the register.
// Once twelve bits are collected the candidate message is returned for CRC
// validation and the register empties until the next start bit.
func (r *ShortMessageReceiver) PushBit(start, bit bool) (ShortMessage, bool) {
	if start {
		r.reg = 0
		r.count = 0
	} else if r.count == 0 {
		// Idle until a start bit is seen
		return ShortMessage{}, false
	}

	r.reg <<= 1
	if bit {
		r.reg |= 1
	}
	r.count++

	if r.count < ShortMessageBits {
		return ShortMessage{}, false
	}
	msg := shortMessageFromBits(r.reg)
	r.Reset()
	return msg, true
}

// Pending returns the number of bits collected for the current message
func (r *ShortMessageReceiver) Pending() int {
	return r.count
}

// Reset drops any partially received message
func (r *ShortMessageReceiver) Reset() {
	r.reg = 0
	r.count = 0
}
