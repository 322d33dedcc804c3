// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package sent

import "fmt"

// Nibble is a 4-bit SENT symbol
type Nibble uint8

// Pulse is one pulse-duration event: a low phase followed by a high phase,
// both in ticks
type Pulse struct {
	Low  uint32
	High uint32
}

// Ticks returns the total pulse length
func (p Pulse) Ticks() uint32 {
	return p.Low + p.High
}

// String returns a compact low/high representation
func (p Pulse) String() string {
	return fmt.Sprintf("%d/%d", p.Low, p.High)
}

// ValidCalibrationUnit reports whether cu is an acceptable sync low phase
func ValidCalibrationUnit(cu uint32) bool {
	return cu >= MinCalibrationUnit && cu <= MaxCalibrationUnit
}

// EncodeNibble returns the pulse carrying nibble n at calibration unit cu
func EncodeNibble(n Nibble, cu uint32) (Pulse, error) {
	if n > NibbleMask {
		return Pulse{}, fmt.Errorf("%w: nibble %d", ErrOutOfRange, n)
	}
	if !ValidCalibrationUnit(cu) {
		return Pulse{}, fmt.Errorf("%w: calibration unit %d", ErrInvalidConfig, cu)
	}
	return Pulse{Low: cu, High: cu + NibbleOffset + uint32(n)}, nil
}

// DecodeNibble converts a data pulse back to its nibble value.
// The low phase may deviate from cu by tolerancePercent of cu, rounded up to
// whole ticks.
func DecodeNibble(p Pulse, cu uint32, tolerancePercent uint32) (Nibble, error) {
	if lowDeviation(p.Low, cu) > LowPhaseAllowance(cu, tolerancePercent) {
		return 0, &TimingError{Err: ErrLowPhaseMismatch, Field: "data", Pulse: p, CalibrationUnit: cu}
	}
	if p.High < cu+NibbleOffset || p.High-cu-NibbleOffset > NibbleMask {
		return 0, &TimingError{Err: ErrOutOfRange, Field: "data", Pulse: p, CalibrationUnit: cu}
	}
	return Nibble(p.High - cu - NibbleOffset), nil
}

// EncodeSync returns the synchronization pulse for calibration unit cu
func EncodeSync(cu uint32) (Pulse, error) {
	if !ValidCalibrationUnit(cu) {
		return Pulse{}, fmt.Errorf("%w: calibration unit %d", ErrInvalidConfig, cu)
	}
	return Pulse{Low: cu, High: SyncTicks - cu}, nil
}

// DecodeSync checks a synchronization pulse and returns its calibration unit.
// The total length must fall in the sync window widened by tolerancePercent.
func DecodeSync(p Pulse, tolerancePercent uint32) (uint32, error) {
	if !inSyncWindow(p, tolerancePercent) {
		return 0, fmt.Errorf("%w: pulse length %d outside sync window", ErrNotAligned, p.Ticks())
	}
	if !ValidCalibrationUnit(p.Low) {
		return 0, &SyncError{Pulse: p}
	}
	return p.Low, nil
}

// IsSync reports whether p is a usable synchronization pulse
func IsSync(p Pulse, tolerancePercent uint32) bool {
	_, err := DecodeSync(p, tolerancePercent)
	return err == nil
}

// SyncWindow returns the accepted range of sync pulse totals
func SyncWindow(tolerancePercent uint32) (lo, hi uint32) {
	slack := uint32(SyncTicks) * tolerancePercent / 100
	return SyncTicks - syncWindow - slack, SyncTicks + syncWindow + slack
}

func inSyncWindow(p Pulse, tolerancePercent uint32) bool {
	lo, hi := SyncWindow(tolerancePercent)
	total := p.Ticks()
	return total >= lo && total <= hi
}

// LowPhaseAllowance returns the low phase drift in ticks accepted on a data
// pulse. Any non-zero tolerance allows at least one tick.
func LowPhaseAllowance(cu, tolerancePercent uint32) uint32 {
	return (cu*tolerancePercent + 99) / 100
}

func lowDeviation(low, cu uint32) uint32 {
	if low > cu {
		return low - cu
	}
	return cu - low
}
