// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package sent

import "fmt"

// AnomalyType represents different types of frame anomalies
type AnomalyType int

const (
	AnomalyInvertedCopy AnomalyType = iota
	AnomalyNonZeroChannel
	AnomalyReservedNibbleBit
	AnomalyCounterSkip
	AnomalyChannelRange
)

// String returns the anomaly name
func (a AnomalyType) String() string {
	switch a {
	case AnomalyInvertedCopy:
		return "inverted_copy"
	case AnomalyNonZeroChannel:
		return "non_zero_channel"
	case AnomalyReservedNibbleBit:
		return "reserved_nibble_bit"
	case AnomalyCounterSkip:
		return "counter_skip"
	case AnomalyChannelRange:
		return "channel_range"
	default:
		return "unknown"
	}
}

// ValidationError represents a frame that passed CRC but violates its format
type ValidationError struct {
	Type    AnomalyType
	Message string
	Details map[string]interface{}
}

// Error implements the error interface
func (v *ValidationError) Error() string {
	return v.Message
}

// ValidateFrame checks that every data nibble is reproduced by the format's
// bit extraction from the assembled channel values.
// Returns a slice of validation errors (empty if the frame is consistent)
func ValidateFrame(f *Frame) []ValidationError {
	errors := []ValidationError{}
	desc := f.format.Descriptor()
	data := f.Data()

	if !desc.Fits(f.channels) {
		errors = append(errors, ValidationError{
			Type:    AnomalyChannelRange,
			Message: fmt.Sprintf("Channel values ch1=%d ch2=%d exceed %s widths", f.channels.Ch1, f.channels.Ch2, f.format),
			Details: map[string]interface{}{"ch1": f.channels.Ch1, "ch2": f.channels.Ch2},
		})
	}

	for pos, got := range data {
		expected := desc.Extract(pos, f.channels)
		if got == expected {
			continue
		}
		errors = append(errors, nibbleAnomaly(f.format, pos, got, expected))
	}

	return errors
}

// nibbleAnomaly describes a data nibble that does not match its layout
func nibbleAnomaly(format Format, pos int, got, expected Nibble) ValidationError {
	details := map[string]interface{}{"position": pos, "got": got, "expected": expected}

	switch format {
	case FormatH4:
		return ValidationError{
			Type:    AnomalyInvertedCopy,
			Message: fmt.Sprintf("Inverted ch1 MSN mismatch (0x%X, expected 0x%X)", got, expected),
			Details: details,
		}
	case FormatH5:
		return ValidationError{
			Type:    AnomalyNonZeroChannel,
			Message: fmt.Sprintf("Channel 2 nibble %d not zero (0x%X)", pos+1, got),
			Details: details,
		}
	case FormatH3:
		return ValidationError{
			Type:    AnomalyReservedNibbleBit,
			Message: fmt.Sprintf("High-speed nibble %d has bit 3 set (0x%X)", pos+1, got),
			Details: details,
		}
	}
	return ValidationError{
		Type:    AnomalyChannelRange,
		Message: fmt.Sprintf("Nibble %d does not match channel layout (0x%X, expected 0x%X)", pos+1, got, expected),
		Details: details,
	}
}

// SecureCounterTracker follows the H.4 rolling counter carried in channel 2
type SecureCounterTracker struct {
	last  uint16
	valid bool
}

// Check validates that the H.4 counter advanced by one since the previous
// frame. Frames of other formats are ignored.
func (t *SecureCounterTracker) Check(f *Frame) []ValidationError {
	if f.format != FormatH4 {
		return nil
	}
	counter := f.channels.Ch2
	defer func() {
		t.last = counter
		t.valid = true
	}()

	if !t.valid {
		return nil
	}
	expected := (t.last + 1) & 0xFF
	if counter == expected {
		return nil
	}
	return []ValidationError{{
		Type:    AnomalyCounterSkip,
		Message: fmt.Sprintf("Secure counter skipped (%d, expected %d)", counter, expected),
		Details: map[string]interface{}{"counter": counter, "expected": expected},
	}}
}

// Reset forgets the last counter value
func (t *SecureCounterTracker) Reset() {
	t.valid = false
}
