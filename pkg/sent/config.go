// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package sent

import "fmt"

// Config holds the per-session link settings shared by Encoder and Decoder
type Config struct {
	Format Format

	// CalibrationUnit is the sync low phase the encoder transmits
	CalibrationUnit uint32

	// TolerancePercent widens the sync window and bounds low phase drift
	TolerancePercent uint32

	// PauseTicks is the total pause pulse length, 0 disables the pause
	PauseTicks uint32

	// RandomReservedBits fills status bits 1..0 with pseudo-random values
	RandomReservedBits bool
}

// DefaultConfig returns the default link configuration (H1, 4-tick calibration)
func DefaultConfig() Config {
	return Config{
		Format:           FormatH1,
		CalibrationUnit:  DefaultCalibrationUnit,
		TolerancePercent: DefaultTolerancePercent,
	}
}

// Validate checks the configuration for consistency
func (c Config) Validate() error {
	if !c.Format.Valid() {
		return fmt.Errorf("%w: unknown format %d", ErrInvalidConfig, int(c.Format))
	}
	if !ValidCalibrationUnit(c.CalibrationUnit) {
		return fmt.Errorf("%w: calibration unit %d (valid %d-%d)",
			ErrInvalidConfig, c.CalibrationUnit, MinCalibrationUnit, MaxCalibrationUnit)
	}
	if c.TolerancePercent > MaxTolerancePercent {
		lo, _ := SyncWindow(c.TolerancePercent)
		return fmt.Errorf("%w: tolerance %d%% (max %d%%): sync window from %d ticks overlaps data pulses up to %d",
			ErrInvalidConfig, c.TolerancePercent, MaxTolerancePercent, lo, MaxDataPulseTicks)
	}
	if c.PauseTicks != 0 {
		if c.PauseTicks < MinPauseTicks || c.PauseTicks <= c.CalibrationUnit {
			return fmt.Errorf("%w: pause %d ticks too short", ErrInvalidConfig, c.PauseTicks)
		}
		if lo, hi := SyncWindow(c.TolerancePercent); c.PauseTicks >= lo && c.PauseTicks <= hi {
			return fmt.Errorf("%w: pause %d ticks falls in the sync window %d-%d",
				ErrInvalidConfig, c.PauseTicks, lo, hi)
		}
	}
	return nil
}
