// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package sent

import (
	"errors"
	"fmt"
)

var (
	ErrOutOfRange       = errors.New("sent: nibble out of range")
	ErrLowPhaseMismatch = errors.New("sent: low phase mismatch")
	ErrNotAligned       = errors.New("sent: sync pulse not aligned")
	ErrCRCMismatch      = errors.New("sent: CRC mismatch")
	ErrExhausted        = errors.New("sent: short message exhausted")
	ErrChannelRange     = errors.New("sent: channel value exceeds format width")
	ErrInvalidConfig    = errors.New("sent: invalid configuration")
)

// ErrorKind classifies decoder and encoder errors for counters and registers
type ErrorKind int

const (
	KindNone ErrorKind = iota
	KindOutOfRange
	KindLowPhaseMismatch
	KindNotAligned
	KindCRCMismatch
	KindExhausted
	KindOther
)

// String returns the register name of the error kind
func (k ErrorKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindOutOfRange:
		return "out_of_range"
	case KindLowPhaseMismatch:
		return "low_phase_mismatch"
	case KindNotAligned:
		return "not_aligned"
	case KindCRCMismatch:
		return "crc_mismatch"
	case KindExhausted:
		return "exhausted"
	default:
		return "other"
	}
}

// TimingError reports a data pulse that does not decode to a nibble
type TimingError struct {
	Err             error // ErrOutOfRange or ErrLowPhaseMismatch
	Field           string
	Pulse           Pulse
	CalibrationUnit uint32
}

// Error implements the error interface
func (e *TimingError) Error() string {
	return fmt.Sprintf("%v: %s pulse low=%d high=%d (calibration %d)",
		e.Err, e.Field, e.Pulse.Low, e.Pulse.High, e.CalibrationUnit)
}

func (e *TimingError) Unwrap() error {
	return e.Err
}

// SyncError reports a pulse in the sync window whose low phase cannot be
// used as a calibration unit
type SyncError struct {
	Pulse Pulse
}

// Error implements the error interface
func (e *SyncError) Error() string {
	return fmt.Sprintf("%v: low=%d high=%d (calibration must be %d-%d ticks)",
		ErrNotAligned, e.Pulse.Low, e.Pulse.High, MinCalibrationUnit, MaxCalibrationUnit)
}

func (e *SyncError) Unwrap() error {
	return ErrNotAligned
}

const (
	frameField        = "frame"
	shortMessageField = "short message"
)

// CRCError reports a checksum mismatch on a frame or a short message
type CRCError struct {
	Field    string
	Expected Nibble
	Got      Nibble
}

// Error implements the error interface
func (e *CRCError) Error() string {
	return fmt.Sprintf("%s CRC mismatch: expected 0x%X, got 0x%X", e.Field, e.Expected, e.Got)
}

func (e *CRCError) Unwrap() error {
	return ErrCRCMismatch
}

// IsTimingError returns true if the error is a TimingError
func IsTimingError(err error) bool {
	var te *TimingError
	return errors.As(err, &te)
}

// KindOf returns the kind of the first error found in err
func KindOf(err error) ErrorKind {
	kinds := ErrorKinds(err)
	if len(kinds) == 0 {
		return KindNone
	}
	return kinds[0]
}

// ErrorKinds classifies every error joined into err
func ErrorKinds(err error) []ErrorKind {
	leaves := splitErrors(err)
	if len(leaves) == 0 {
		return nil
	}
	kinds := make([]ErrorKind, 0, len(leaves))
	for _, e := range leaves {
		kinds = append(kinds, kindOf(e))
	}
	return kinds
}

// splitErrors flattens errors.Join trees
func splitErrors(err error) []error {
	if err == nil {
		return nil
	}
	joined, ok := err.(interface{ Unwrap() []error })
	if !ok {
		return []error{err}
	}
	var out []error
	for _, e := range joined.Unwrap() {
		out = append(out, splitErrors(e)...)
	}
	return out
}

func kindOf(err error) ErrorKind {
	switch {
	case errors.Is(err, ErrOutOfRange):
		return KindOutOfRange
	case errors.Is(err, ErrLowPhaseMismatch):
		return KindLowPhaseMismatch
	case errors.Is(err, ErrNotAligned):
		return KindNotAligned
	case errors.Is(err, ErrCRCMismatch):
		return KindCRCMismatch
	case errors.Is(err, ErrExhausted):
		return KindExhausted
	}
	return KindOther
}
