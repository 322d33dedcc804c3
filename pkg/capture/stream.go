// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package capture moves SENT pulse streams between the codec and the outside
// world: a CBOR sequence of [low, high] pulse records, CBOR frame records for
// publishing, and conversion between pulses and line-level edges or samples.
package capture

import (
	"errors"
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"

	"github.com/Thermoquad/sentscope/pkg/sent"
)

// pulseRecord is the wire form of one pulse: a two element CBOR array
type pulseRecord struct {
	_    struct{} `cbor:",toarray"`
	Low  uint32
	High uint32
}

// Writer encodes pulses as a CBOR sequence
type Writer struct {
	enc   *cbor.Encoder
	count uint64
}

// NewWriter creates a pulse stream writer
func NewWriter(w io.Writer) *Writer {
	return &Writer{enc: cbor.NewEncoder(w)}
}

// WritePulse appends one pulse to the stream
func (w *Writer) WritePulse(p sent.Pulse) error {
	if err := w.enc.Encode(pulseRecord{Low: p.Low, High: p.High}); err != nil {
		return fmt.Errorf("failed to encode pulse: %w", err)
	}
	w.count++
	return nil
}

// WritePulses appends every pulse in order
func (w *Writer) WritePulses(pulses []sent.Pulse) error {
	for _, p := range pulses {
		if err := w.WritePulse(p); err != nil {
			return err
		}
	}
	return nil
}

// Count returns the number of pulses written
func (w *Writer) Count() uint64 {
	return w.count
}

// Reader decodes pulses from a CBOR sequence
type Reader struct {
	dec   *cbor.Decoder
	count uint64
}

// NewReader creates a pulse stream reader
func NewReader(r io.Reader) *Reader {
	return &Reader{dec: cbor.NewDecoder(r)}
}

// ReadPulse returns the next pulse. io.EOF marks a clean end of stream.
func (r *Reader) ReadPulse() (sent.Pulse, error) {
	var rec pulseRecord
	if err := r.dec.Decode(&rec); err != nil {
		if errors.Is(err, io.EOF) {
			return sent.Pulse{}, io.EOF
		}
		return sent.Pulse{}, fmt.Errorf("failed to decode pulse: %w", err)
	}
	r.count++
	return sent.Pulse{Low: rec.Low, High: rec.High}, nil
}

// Count returns the number of pulses read
func (r *Reader) Count() uint64 {
	return r.count
}

// ReadAll reads pulses until the end of the stream
func ReadAll(r io.Reader) ([]sent.Pulse, error) {
	reader := NewReader(r)
	var pulses []sent.Pulse
	for {
		p, err := reader.ReadPulse()
		if err == io.EOF {
			return pulses, nil
		}
		if err != nil {
			return pulses, err
		}
		pulses = append(pulses, p)
	}
}
