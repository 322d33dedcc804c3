// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package sent

import (
	"errors"
	"fmt"
	"time"
)

// Statistics tracks frame statistics and error rates
type Statistics struct {
	StartTime      time.Time
	LastUpdateTime time.Time

	// Counters
	TotalFrames       uint64
	ValidFrames       uint64
	CRCErrors         uint64
	TimingErrors      uint64
	OutOfRange        uint64
	LowPhaseMismatch  uint64
	SyncErrors        uint64
	Anomalies         uint64
	ShortMessages     uint64
	ShortMessageFails uint64

	// Rates (calculated)
	FrameRate float64 // frames/sec
	ErrorRate float64 // errors/sec
}

// NewStatistics creates a new statistics tracker
func NewStatistics() *Statistics {
	now := time.Now()
	return &Statistics{
		StartTime:      now,
		LastUpdateTime: now,
	}
}

// Update updates statistics based on one decoder result
func (s *Statistics) Update(frame *Frame, msg *ShortMessage, decodeErr error, validationErrors []ValidationError) {
	if msg != nil {
		s.ShortMessages++
	}

	for _, err := range splitErrors(decodeErr) {
		var ce *CRCError
		if errors.As(err, &ce) && ce.Field == shortMessageField {
			s.ShortMessageFails++
			continue
		}

		switch KindOf(err) {
		case KindOutOfRange:
			s.TotalFrames++
			s.TimingErrors++
			s.OutOfRange++
		case KindLowPhaseMismatch:
			s.TotalFrames++
			s.TimingErrors++
			s.LowPhaseMismatch++
		case KindNotAligned:
			s.SyncErrors++
		case KindCRCMismatch:
			s.TotalFrames++
			s.CRCErrors++
		}
	}

	if frame != nil {
		s.TotalFrames++
		if len(validationErrors) > 0 {
			s.Anomalies += uint64(len(validationErrors))
		} else {
			s.ValidFrames++
		}
	}

	// Update timestamp for rate calculation
	s.LastUpdateTime = time.Now()
}

// CalculateRates calculates frame and error rates
func (s *Statistics) CalculateRates() {
	elapsed := time.Since(s.StartTime).Seconds()
	if elapsed > 0 {
		s.FrameRate = float64(s.TotalFrames) / elapsed
		s.ErrorRate = float64(s.Errors()) / elapsed
	}
}

// Errors returns the total count of frame-level errors
func (s *Statistics) Errors() uint64 {
	return s.CRCErrors + s.TimingErrors + s.SyncErrors + s.Anomalies
}

// String returns a formatted statistics summary
func (s *Statistics) String() string {
	s.CalculateRates()

	var validPercent, crcPercent, timingPercent float64
	if s.TotalFrames > 0 {
		validPercent = float64(s.ValidFrames) * 100.0 / float64(s.TotalFrames)
		crcPercent = float64(s.CRCErrors) * 100.0 / float64(s.TotalFrames)
		timingPercent = float64(s.TimingErrors) * 100.0 / float64(s.TotalFrames)
	}

	elapsed := time.Since(s.StartTime)

	result := fmt.Sprintf("=== Statistics (%.0f seconds) ===\n", elapsed.Seconds())
	result += fmt.Sprintf("Total Frames:    %8d\n", s.TotalFrames)
	result += fmt.Sprintf("Valid Frames:    %8d (%.1f%%)\n", s.ValidFrames, validPercent)

	if s.CRCErrors > 0 {
		result += fmt.Sprintf("CRC Errors:      %8d (%.1f%%)\n", s.CRCErrors, crcPercent)
	}
	if s.TimingErrors > 0 {
		result += fmt.Sprintf("Timing Errors:   %8d (%.1f%%)\n", s.TimingErrors, timingPercent)
		if s.OutOfRange > 0 {
			result += fmt.Sprintf("  Out of Range:     %5d\n", s.OutOfRange)
		}
		if s.LowPhaseMismatch > 0 {
			result += fmt.Sprintf("  Low Phase:        %5d\n", s.LowPhaseMismatch)
		}
	}
	if s.SyncErrors > 0 {
		result += fmt.Sprintf("Sync Errors:     %8d\n", s.SyncErrors)
	}
	if s.Anomalies > 0 {
		result += fmt.Sprintf("Anomalies:       %8d\n", s.Anomalies)
	}
	if s.ShortMessages > 0 || s.ShortMessageFails > 0 {
		result += fmt.Sprintf("Short Messages:  %8d (%d CRC failures)\n", s.ShortMessages, s.ShortMessageFails)
	}

	result += fmt.Sprintf("Frame Rate:      %8.1f frames/sec\n", s.FrameRate)
	result += fmt.Sprintf("Error Rate:      %8.1f errors/sec\n", s.ErrorRate)
	result += "================================\n"

	return result
}

// Reset resets all statistics counters
func (s *Statistics) Reset() {
	*s = *NewStatistics()
}
