// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package sent provides a Go implementation of the SAE J2716 SENT
// (Single Edge Nibble Transmission) protocol.
//
// SENT carries fast-channel sensor data as a sequence of pulses whose
// widths encode 4-bit nibbles. Every frame starts with a synchronization
// pulse that calibrates the tick length for the rest of the frame. This
// package provides pulse encoding/decoding, CRC validation, the fast-channel
// frame formats and the short serial message channel carried in the status
// nibble.
package sent

// Pulse timing, in ticks
const (
	// SyncTicks is the nominal total length of the synchronization pulse
	SyncTicks = 56
	// syncWindow is the nominal +/- slack on the sync pulse total
	syncWindow = 2

	// NibbleOffset is the fixed high-phase offset of a data pulse
	NibbleOffset = 12

	MinCalibrationUnit = 4
	MaxCalibrationUnit = 12

	// MaxDataPulseTicks is the longest nominal data pulse: nibble 15 at the
	// largest calibration unit
	MaxDataPulseTicks = 2*MaxCalibrationUnit + NibbleOffset + NibbleMask

	// MinPauseTicks is the shortest pause pulse accepted by Config
	MinPauseTicks = 12
)

// Frame sizing
const (
	MaxDataNibbles = 6
	MinDataNibbles = 3
	NibbleMask     = 0x0F
)

// CRC-4 configuration
const (
	crcSeed = 5
)

// Status nibble layout
const (
	StatusStartBit     = 0x08 // short message start marker
	StatusDataBit      = 0x04 // short message data bit
	StatusReservedMask = 0x03
)

// Short serial message sizing
const (
	ShortMessageBits = 12
)

// Configuration defaults
const (
	DefaultCalibrationUnit  = 4
	DefaultTolerancePercent = 5

	// MaxTolerancePercent is the widest tolerance whose sync window stays
	// above MaxDataPulseTicks. At 6% the window reaches 51 ticks.
	MaxTolerancePercent = 5
)
