// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package sim drives a SENT encoder with synthetic sensor data so the decoder
// and the host tooling can run without hardware.
package sim

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/Thermoquad/sentscope/pkg/capture"
	"github.com/Thermoquad/sentscope/pkg/sent"
)

// Options configures a simulated sensor
type Options struct {
	Config sent.Config

	// Step is the ramp increment of channel 1 per frame
	Step uint16

	// MessageInterval sends one short message every n frames, 0 disables
	MessageInterval int

	// Messages are sent in turn, each as an id/data pair
	Messages []sent.ShortMessage

	// Seed makes reserved status bits reproducible, 0 keeps the time seed
	Seed int64
}

// DefaultOptions returns an H1 sensor ramping by 7 counts per frame and
// announcing a short message every 16 frames
func DefaultOptions() Options {
	return Options{
		Config:          sent.DefaultConfig(),
		Step:            7,
		MessageInterval: 16,
		Messages: []sent.ShortMessage{
			{ID: 0x1, Data: 0x0},
			{ID: 0x3, Data: 0xB},
		},
	}
}

// Sender produces frames for a simulated sensor
type Sender struct {
	opts    Options
	enc     *sent.Encoder
	frames  uint64
	nextMsg int
}

// NewSender creates a simulated sender
func NewSender(opts Options) (*Sender, error) {
	if opts.MessageInterval != 0 && opts.MessageInterval < sent.ShortMessageBits {
		return nil, fmt.Errorf("%w: message interval %d shorter than %d frames",
			sent.ErrInvalidConfig, opts.MessageInterval, sent.ShortMessageBits)
	}
	enc, err := sent.NewEncoder(opts.Config)
	if err != nil {
		return nil, err
	}
	if opts.Seed != 0 {
		enc.SetReservedSource(rand.NewSource(opts.Seed))
	}
	return &Sender{opts: opts, enc: enc}, nil
}

// Frames returns the number of frames produced
func (s *Sender) Frames() uint64 {
	return s.frames
}

// Ticks returns the total ticks emitted
func (s *Sender) Ticks() uint64 {
	return s.enc.Ticks()
}

// Channels returns the channel values of frame n
func (s *Sender) Channels(n uint64) sent.Channels {
	desc := s.opts.Config.Format.Descriptor()
	var ch sent.Channels

	ch.Ch1 = ramp(n*uint64(s.opts.Step), desc.Widths[0])
	switch s.opts.Config.Format {
	case sent.FormatH4:
		// Rolling secure counter
		ch.Ch2 = uint16(n & 0xFF)
	default:
		if desc.Widths[1] > 0 {
			full := uint64(1)<<desc.Widths[1] - 1
			ch.Ch2 = uint16(full - uint64(ramp(n*uint64(s.opts.Step), desc.Widths[1])))
		}
	}
	return ch
}

// Next encodes the next frame and returns its pulses
func (s *Sender) Next() ([]sent.Pulse, sent.Channels, error) {
	if err := s.queueMessage(); err != nil {
		return nil, sent.Channels{}, err
	}
	ch := s.Channels(s.frames)
	pulses, err := s.enc.EncodeFrame(ch)
	if err != nil {
		return nil, ch, err
	}
	s.frames++
	return pulses, ch, nil
}

// Run writes frames to w until count frames are sent (0 = unbounded) or ctx
// is cancelled. A non-zero period paces one frame per period.
func (s *Sender) Run(ctx context.Context, w *capture.Writer, count uint64, period time.Duration) error {
	var tick <-chan time.Time
	if period > 0 {
		ticker := time.NewTicker(period)
		defer ticker.Stop()
		tick = ticker.C
	}

	for n := uint64(0); count == 0 || n < count; n++ {
		if tick != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-tick:
			}
		} else if err := ctx.Err(); err != nil {
			return err
		}

		pulses, _, err := s.Next()
		if err != nil {
			return err
		}
		if err := w.WritePulses(pulses); err != nil {
			return err
		}
	}
	return nil
}

func (s *Sender) queueMessage() error {
	if s.opts.MessageInterval == 0 || len(s.opts.Messages) == 0 {
		return nil
	}
	if s.frames%uint64(s.opts.MessageInterval) != 0 || s.enc.MessagePending() {
		return nil
	}
	msg := s.opts.Messages[s.nextMsg%len(s.opts.Messages)]
	s.nextMsg++
	_, err := s.enc.SendMessage(msg.ID, msg.Data)
	return err
}

// ramp wraps v into width bits
func ramp(v uint64, width uint) uint16 {
	if width == 0 {
		return 0
	}
	return uint16(v & (uint64(1)<<width - 1))
}
