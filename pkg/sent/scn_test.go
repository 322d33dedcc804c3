// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package sent

import (
	"errors"
	"testing"
)

// ============================================================
// Short Message Tests
// ============================================================

func TestNewShortMessage_Fixture(t *testing.T) {
	msg, err := NewShortMessage(0x3, 0xB)
	if err != nil {
		t.Fatalf("NewShortMessage failed: %v", err)
	}
	if msg.CRC != 0xB {
		t.Errorf("Expected CRC 0xB, got 0x%X", msg.CRC)
	}
	if err := msg.Validate(); err != nil {
		t.Errorf("Validate failed: %v", err)
	}
}

func TestNewShortMessage_OutOfRange(t *testing.T) {
	if _, err := NewShortMessage(0x10, 0); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("Expected ErrOutOfRange, got %v", err)
	}
}

func TestShortMessage_ValidateField(t *testing.T) {
	msg := ShortMessage{ID: 0x3, Data: 0xB, CRC: 0x0}
	err := msg.Validate()
	var ce *CRCError
	if !errors.As(err, &ce) {
		t.Fatalf("Expected CRCError, got %v", err)
	}
	if ce.Field != "short message" {
		t.Errorf("Expected field 'short message', got %q", ce.Field)
	}
}

func TestShortMessageSender_Bits(t *testing.T) {
	var s ShortMessageSender
	if _, err := s.Start(0x3, 0xB); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	// 0011 1011 1011
	expected := []bool{false, false, true, true, true, false, true, true, true, false, true, true}
	for i, want := range expected {
		start, bit, err := s.NextBit()
		if err != nil {
			t.Fatalf("NextBit %d failed: %v", i, err)
		}
		if start != (i == 0) {
			t.Errorf("Bit %d: start=%t", i, start)
		}
		if bit != want {
			t.Errorf("Bit %d: expected %t, got %t", i, want, bit)
		}
	}

	if s.Active() {
		t.Error("Sender should be inactive after 12 bits")
	}
	if _, _, err := s.NextBit(); !errors.Is(err, ErrExhausted) {
		t.Errorf("Expected ErrExhausted, got %v", err)
	}
	if KindOf(ErrExhausted) != KindExhausted {
		t.Error("ErrExhausted should classify as exhausted")
	}
}

func TestShortMessageSender_Restart(t *testing.T) {
	var s ShortMessageSender
	s.Start(0x1, 0x2)
	s.NextBit()
	s.NextBit()

	s.Start(0x3, 0xB)
	start, _, err := s.NextBit()
	if err != nil || !start {
		t.Errorf("Restart should flag the first bit again (start=%t err=%v)", start, err)
	}
}

func TestShortMessage_RoundTrip(t *testing.T) {
	for id := Nibble(0); id <= NibbleMask; id++ {
		for data := Nibble(0); data <= NibbleMask; data++ {
			var s ShortMessageSender
			var r ShortMessageReceiver

			sent, err := s.Start(id, data)
			if err != nil {
				t.Fatalf("Start(%d, %d) failed: %v", id, data, err)
			}

			var got ShortMessage
			var ok bool
			for i := 0; i < ShortMessageBits; i++ {
				start, bit, err := s.NextBit()
				if err != nil {
					t.Fatalf("NextBit failed: %v", err)
				}
				got, ok = r.PushBit(start, bit)
				if ok != (i == ShortMessageBits-1) {
					t.Fatalf("id=%d data=%d: message ready after %d bits", id, data, i+1)
				}
			}

			if got != sent {
				t.Errorf("Expected %+v, got %+v", sent, got)
			}
			if err := got.Validate(); err != nil {
				t.Errorf("Decoded message failed CRC: %v", err)
			}
		}
	}
}

func TestShortMessageReceiver_IgnoresBitsBeforeStart(t *testing.T) {
	var r ShortMessageReceiver
	for i := 0; i < 20; i++ {
		if _, ok := r.PushBit(false, true); ok {
			t.Fatal("Receiver should not produce a message without a start bit")
		}
	}
	if r.Pending() != 0 {
		t.Errorf("Expected 0 pending bits, got %d", r.Pending())
	}
}

func TestShortMessageReceiver_StartResets(t *testing.T) {
	var r ShortMessageReceiver
	r.PushBit(true, true)
	r.PushBit(false, true)
	r.PushBit(false, true)
	if r.Pending() != 3 {
		t.Fatalf("Expected 3 pending bits, got %d", r.Pending())
	}

	r.PushBit(true, false)
	if r.Pending() != 1 {
		t.Errorf("Start bit should reset the register, got %d pending", r.Pending())
	}

	r.Reset()
	if r.Pending() != 0 {
		t.Errorf("Reset should clear pending bits, got %d", r.Pending())
	}
}
