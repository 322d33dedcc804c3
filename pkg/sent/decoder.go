// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package sent

import (
	"errors"
	"fmt"
	"time"
)

// DecoderState is the position of the decoder within a frame
type DecoderState int

const (
	StateSeekSync DecoderState = iota
	StateReadStatus
	StateReadData
	StateReadCRC
)

// String returns the state name
func (s DecoderState) String() string {
	switch s {
	case StateSeekSync:
		return "SeekSync"
	case StateReadStatus:
		return "ReadStatus"
	case StateReadData:
		return "ReadData"
	case StateReadCRC:
		return "ReadCrc"
	default:
		return fmt.Sprintf("DecoderState(%d)", int(s))
	}
}

// Decoder implements the SENT frame decoder state machine
type Decoder struct {
	cfg   Config
	desc  FormatDescriptor
	state DecoderState

	calibrationUnit uint32
	status          Nibble
	data            [MaxDataNibbles]Nibble
	index           int

	scn     ShortMessageReceiver
	message *ShortMessage
	scnErr  error

	skipped uint64
}

// NewDecoder creates a new frame decoder
func NewDecoder(cfg Config) (*Decoder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Decoder{
		cfg:   cfg,
		desc:  cfg.Format.Descriptor(),
		state: StateSeekSync,
	}, nil
}

// Reset returns the decoder to SeekSync. Partial short messages are dropped.
func (d *Decoder) Reset() {
	d.abort()
	d.scn.Reset()
	d.message = nil
	d.scnErr = nil
}

// SetFormat reconfigures the frame format and resets the decoder
func (d *Decoder) SetFormat(f Format) error {
	if !f.Valid() {
		return fmt.Errorf("%w: unknown format %d", ErrInvalidConfig, int(f))
	}
	d.cfg.Format = f
	d.desc = f.Descriptor()
	d.Reset()
	return nil
}

// Config returns the decoder configuration
func (d *Decoder) Config() Config {
	return d.cfg
}

// State returns the current decoder state
func (d *Decoder) State() DecoderState {
	return d.state
}

// Idle reports whether the decoder is waiting for a sync pulse
func (d *Decoder) Idle() bool {
	return d.state == StateSeekSync
}

// CalibrationUnit returns the calibration unit of the frame in progress
func (d *Decoder) CalibrationUnit() uint32 {
	return d.calibrationUnit
}

// Skipped returns the number of pulses ignored while seeking sync
func (d *Decoder) Skipped() uint64 {
	return d.skipped
}

// DecodePulse processes a single pulse through the decoder state machine.
// Returns a completed frame, or nil if the frame is incomplete.
// A short message is returned whenever the status bits complete one with a
// valid CRC, independently of whether the frame itself decodes.
// Returned errors are recoverable: the decoder has already resynchronized.
// A valid sync pulse always starts a new frame, whatever the current state.
func (d *Decoder) DecodePulse(p Pulse) (*Frame, *ShortMessage, error) {
	if d.state != StateSeekSync {
		if cu, err := DecodeSync(p, d.cfg.TolerancePercent); err == nil {
			return d.restart(p, cu)
		}
	}

	switch d.state {
	case StateSeekSync:
		return nil, nil, d.seekSync(p)

	case StateReadStatus:
		n, err := DecodeNibble(p, d.calibrationUnit, d.cfg.TolerancePercent)
		if err != nil {
			return d.fail(withField(err, d.field()))
		}
		d.status = n
		d.pushStatus(n)
		d.index = 0
		d.state = StateReadData
		return nil, nil, nil

	case StateReadData:
		n, err := DecodeNibble(p, d.calibrationUnit, d.cfg.TolerancePercent)
		if err != nil {
			return d.fail(withField(err, d.field()))
		}
		d.data[d.index] = n
		d.index++
		if d.index >= d.desc.DataNibbles {
			d.state = StateReadCRC
		}
		return nil, nil, nil

	case StateReadCRC:
		n, err := DecodeNibble(p, d.calibrationUnit, d.cfg.TolerancePercent)
		if err != nil {
			return d.fail(withField(err, d.field()))
		}
		frame := d.assemble(n)
		if err := ValidateCRC(frame.CRCInput(), n); err != nil {
			msg, scnErr := d.takeMessage()
			d.abort()
			return nil, msg, errors.Join(err, scnErr)
		}
		msg, scnErr := d.takeMessage()
		frame.message = msg
		d.abort()
		return frame, msg, scnErr

	default:
		d.abort()
		return nil, nil, fmt.Errorf("sent: invalid decoder state %d", d.state)
	}
}

// seekSync waits for a pulse in the sync window. Other pulses are skipped.
func (d *Decoder) seekSync(p Pulse) error {
	cu, err := DecodeSync(p, d.cfg.TolerancePercent)
	if err != nil {
		d.skipped++
		var se *SyncError
		if errors.As(err, &se) {
			return err
		}
		return nil
	}
	d.calibrationUnit = cu
	d.state = StateReadStatus
	return nil
}

// fail aborts the frame in progress
func (d *Decoder) fail(err error) (*Frame, *ShortMessage, error) {
	msg, scnErr := d.takeMessage()
	d.abort()
	return nil, msg, errors.Join(err, scnErr)
}

// restart drops a frame cut short by a sync pulse and begins the next one.
// The missing nibble is reported as out of range.
func (d *Decoder) restart(p Pulse, cu uint32) (*Frame, *ShortMessage, error) {
	_, msg, err := d.fail(&TimingError{Err: ErrOutOfRange, Field: d.field(), Pulse: p, CalibrationUnit: d.calibrationUnit})
	d.calibrationUnit = cu
	d.state = StateReadStatus
	return nil, msg, err
}

// field names the nibble the decoder expects next
func (d *Decoder) field() string {
	switch d.state {
	case StateReadStatus:
		return "status"
	case StateReadData:
		return fmt.Sprintf("data[%d]", d.index)
	default:
		return "crc"
	}
}

func (d *Decoder) abort() {
	d.state = StateSeekSync
	d.index = 0
	d.status = 0
}

func (d *Decoder) assemble(crc Nibble) *Frame {
	f := &Frame{
		format:          d.cfg.Format,
		calibrationUnit: d.calibrationUnit,
		status:          d.status,
		dataLen:         d.desc.DataNibbles,
		crc:             crc,
		timestamp:       time.Now(),
	}
	copy(f.data[:], d.data[:d.desc.DataNibbles])
	f.channels = d.desc.Assemble(f.Data())
	return f
}

// pushStatus feeds the short message bits of a status nibble
func (d *Decoder) pushStatus(status Nibble) {
	msg, ok := d.scn.PushBit(status&StatusStartBit != 0, status&StatusDataBit != 0)
	if !ok {
		return
	}
	if err := msg.Validate(); err != nil {
		d.scnErr = err
		return
	}
	d.message = &msg
}

func (d *Decoder) takeMessage() (*ShortMessage, error) {
	msg, err := d.message, d.scnErr
	d.message, d.scnErr = nil, nil
	return msg, err
}

func withField(err error, field string) error {
	var te *TimingError
	if errors.As(err, &te) {
		te.Field = field
	}
	return err
}
