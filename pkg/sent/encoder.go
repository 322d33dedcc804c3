// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package sent

import (
	"fmt"
	"math/rand"
	"time"
)

// EncoderState is the position of the encoder within a frame
type EncoderState int

const (
	EncoderIdle EncoderState = iota
	EncoderEmitSync
	EncoderEmitStatus
	EncoderEmitData
	EncoderEmitCRC
	EncoderEmitPause
)

// String returns the state name
func (s EncoderState) String() string {
	switch s {
	case EncoderIdle:
		return "Idle"
	case EncoderEmitSync:
		return "EmitSync"
	case EncoderEmitStatus:
		return "EmitStatus"
	case EncoderEmitData:
		return "EmitData"
	case EncoderEmitCRC:
		return "EmitCrc"
	case EncoderEmitPause:
		return "EmitPause"
	default:
		return fmt.Sprintf("EncoderState(%d)", int(s))
	}
}

// Encoder composes SENT frames and emits them one pulse at a time.
// The harness drives it by calling NextPulse whenever the line is ready.
type Encoder struct {
	cfg   Config
	desc  FormatDescriptor
	state EncoderState
	rng   *rand.Rand
	scn   ShortMessageSender

	channels Channels
	status   Nibble
	data     [MaxDataNibbles]Nibble
	index    int
	ticks    uint64
}

// NewEncoder creates a new frame encoder
func NewEncoder(cfg Config) (*Encoder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Encoder{
		cfg:   cfg,
		desc:  cfg.Format.Descriptor(),
		state: EncoderIdle,
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}, nil
}

// SetReservedSource replaces the pseudo-random source for reserved status bits
func (e *Encoder) SetReservedSource(src rand.Source) {
	e.rng = rand.New(src)
}

// SendMessage queues a short message. Its twelve bits go out in the status
// nibbles of the following frames, replacing any message still in flight.
func (e *Encoder) SendMessage(id, data Nibble) (ShortMessage, error) {
	return e.scn.Start(id, data)
}

// MessagePending reports whether a short message is still being sent
func (e *Encoder) MessagePending() bool {
	return e.scn.Active()
}

// State returns the current encoder state
func (e *Encoder) State() EncoderState {
	return e.state
}

// Ticks returns the total number of ticks emitted so far
func (e *Encoder) Ticks() uint64 {
	return e.ticks
}

// Config returns the encoder configuration
func (e *Encoder) Config() Config {
	return e.cfg
}

// Load starts a new frame carrying ch. The encoder must be idle.
func (e *Encoder) Load(ch Channels) error {
	if e.state != EncoderIdle {
		return fmt.Errorf("sent: encoder busy in state %s", e.state)
	}
	if !e.desc.Fits(ch) {
		return fmt.Errorf("%w: ch1=%d ch2=%d for %s (widths %d/%d)",
			ErrChannelRange, ch.Ch1, ch.Ch2, e.cfg.Format, e.desc.Widths[0], e.desc.Widths[1])
	}
	e.channels = ch
	e.index = 0
	e.state = EncoderEmitSync
	return nil
}

// NextPulse emits the next pulse of the loaded frame and advances the state
// machine. It returns false once the frame is complete and the encoder is idle.
func (e *Encoder) NextPulse() (Pulse, bool) {
	cu := e.cfg.CalibrationUnit

	switch e.state {
	case EncoderEmitSync:
		p, _ := EncodeSync(cu)
		e.state = EncoderEmitStatus
		return e.emit(p), true

	case EncoderEmitStatus:
		e.status = e.nextStatus()
		p, _ := EncodeNibble(e.status, cu)
		e.state = EncoderEmitData
		return e.emit(p), true

	case EncoderEmitData:
		n := e.desc.Extract(e.index, e.channels)
		e.data[e.index] = n
		e.index++
		if e.index >= e.desc.DataNibbles {
			e.state = EncoderEmitCRC
		}
		p, _ := EncodeNibble(n, cu)
		return e.emit(p), true

	case EncoderEmitCRC:
		crc := CalculateCRC(append([]Nibble{e.status}, e.data[:e.desc.DataNibbles]...))
		p, _ := EncodeNibble(crc, cu)
		if e.cfg.PauseTicks > 0 {
			e.state = EncoderEmitPause
		} else {
			e.state = EncoderIdle
		}
		return e.emit(p), true

	case EncoderEmitPause:
		e.state = EncoderIdle
		return e.emit(Pulse{Low: cu, High: e.cfg.PauseTicks - cu}), true

	default:
		return Pulse{}, false
	}
}

// EncodeFrame loads ch and drains the complete frame
func (e *Encoder) EncodeFrame(ch Channels) ([]Pulse, error) {
	if err := e.Load(ch); err != nil {
		return nil, err
	}
	pulses := make([]Pulse, 0, e.desc.DataNibbles+4)
	for {
		p, ok := e.NextPulse()
		if !ok {
			return pulses, nil
		}
		pulses = append(pulses, p)
	}
}

// nextStatus builds the status nibble, pulling one short message bit
func (e *Encoder) nextStatus() Nibble {
	var status Nibble
	if e.cfg.RandomReservedBits {
		status = Nibble(e.rng.Intn(4)) & StatusReservedMask
	}
	if e.scn.Active() {
		start, bit, err := e.scn.NextBit()
		if err == nil {
			if start {
				status |= StatusStartBit
			}
			if bit {
				status |= StatusDataBit
			}
		}
	}
	return status
}

func (e *Encoder) emit(p Pulse) Pulse {
	e.ticks += uint64(p.Ticks())
	return p
}
