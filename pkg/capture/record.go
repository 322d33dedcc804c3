// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package capture

import (
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/Thermoquad/sentscope/pkg/sent"
)

// Frame record map keys
const (
	KeyFormat          = 0
	KeyCalibrationUnit = 1
	KeyStatus          = 2
	KeyData            = 3
	KeyCRC             = 4
	KeyCh1             = 5
	KeyCh2             = 6
	KeyTimestamp       = 7
	KeyMessageID       = 8
	KeyMessageData     = 9
)

// FrameRecord is the published form of a decoded frame
type FrameRecord struct {
	Format          string    `json:"format"`
	CalibrationUnit uint32    `json:"calibration_unit"`
	Status          uint8     `json:"status"`
	Data            []int     `json:"data"`
	CRC             uint8     `json:"crc"`
	Ch1             uint16    `json:"ch1"`
	Ch2             uint16    `json:"ch2"`
	Timestamp       time.Time `json:"timestamp"`

	// Short message completed with this frame
	MessageID   *uint8 `json:"message_id,omitempty"`
	MessageData *uint8 `json:"message_data,omitempty"`
}

// NewFrameRecord captures the fields of a decoded frame
func NewFrameRecord(f *sent.Frame) FrameRecord {
	rec := FrameRecord{
		Format:          f.Format().String(),
		CalibrationUnit: f.CalibrationUnit(),
		Status:          uint8(f.Status()),
		CRC:             uint8(f.CRC()),
		Ch1:             f.Channels().Ch1,
		Ch2:             f.Channels().Ch2,
		Timestamp:       f.Timestamp(),
	}
	for _, n := range f.Data() {
		rec.Data = append(rec.Data, int(n))
	}
	if msg, ok := f.ShortMessage(); ok {
		id, data := uint8(msg.ID), uint8(msg.Data)
		rec.MessageID = &id
		rec.MessageData = &data
	}
	return rec
}

// EncodeFrameRecord encodes a frame as a CBOR map with integer keys
func EncodeFrameRecord(f *sent.Frame) ([]byte, error) {
	rec := NewFrameRecord(f)
	nibbles := make([]byte, len(rec.Data))
	for i, n := range rec.Data {
		nibbles[i] = byte(n)
	}
	m := map[int]interface{}{
		KeyFormat:          uint64(f.Format()),
		KeyCalibrationUnit: uint64(rec.CalibrationUnit),
		KeyStatus:          uint64(rec.Status),
		KeyData:            nibbles,
		KeyCRC:             uint64(rec.CRC),
		KeyCh1:             uint64(rec.Ch1),
		KeyTimestamp:       rec.Timestamp.UnixMilli(),
	}
	if f.Format().Descriptor().Widths[1] > 0 {
		m[KeyCh2] = uint64(rec.Ch2)
	}
	if rec.MessageID != nil {
		m[KeyMessageID] = uint64(*rec.MessageID)
		m[KeyMessageData] = uint64(*rec.MessageData)
	}

	data, err := cbor.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to encode frame record: %w", err)
	}
	return data, nil
}

// DecodeFrameRecord parses a CBOR frame record
func DecodeFrameRecord(data []byte) (FrameRecord, error) {
	if len(data) == 0 {
		return FrameRecord{}, fmt.Errorf("empty CBOR frame record")
	}

	var m map[int]interface{}
	if err := cbor.Unmarshal(data, &m); err != nil {
		return FrameRecord{}, fmt.Errorf("failed to decode CBOR: %w", err)
	}

	var rec FrameRecord

	format, ok := GetMapUint(m, KeyFormat)
	if !ok || !sent.Format(format).Valid() {
		return FrameRecord{}, fmt.Errorf("missing or invalid format in frame record")
	}
	rec.Format = sent.Format(format).String()

	if v, ok := GetMapUint(m, KeyCalibrationUnit); ok {
		rec.CalibrationUnit = uint32(v)
	}
	if v, ok := GetMapUint(m, KeyStatus); ok {
		rec.Status = uint8(v)
	}
	if v, ok := GetMapBytes(m, KeyData); ok {
		for _, n := range v {
			rec.Data = append(rec.Data, int(n))
		}
	}
	if v, ok := GetMapUint(m, KeyCRC); ok {
		rec.CRC = uint8(v)
	}
	if v, ok := GetMapUint(m, KeyCh1); ok {
		rec.Ch1 = uint16(v)
	}
	if v, ok := GetMapUint(m, KeyCh2); ok {
		rec.Ch2 = uint16(v)
	}
	if v, ok := GetMapInt(m, KeyTimestamp); ok {
		rec.Timestamp = time.UnixMilli(v)
	}
	if id, ok := GetMapUint(m, KeyMessageID); ok {
		msgID := uint8(id)
		rec.MessageID = &msgID
		if v, ok := GetMapUint(m, KeyMessageData); ok {
			msgData := uint8(v)
			rec.MessageData = &msgData
		}
	}

	return rec, nil
}

// Map value extraction helpers

// GetMapUint extracts a uint64 from a CBOR map by key
func GetMapUint(m map[int]interface{}, key int) (uint64, bool) {
	if m == nil {
		return 0, false
	}
	v, ok := m[key]
	if !ok {
		return 0, false
	}
	switch val := v.(type) {
	case uint64:
		return val, true
	case int64:
		if val >= 0 {
			return uint64(val), true
		}
		return 0, false
	}
	return 0, false
}

// GetMapInt extracts an int64 from a CBOR map by key
func GetMapInt(m map[int]interface{}, key int) (int64, bool) {
	if m == nil {
		return 0, false
	}
	v, ok := m[key]
	if !ok {
		return 0, false
	}
	switch val := v.(type) {
	case int64:
		return val, true
	case uint64:
		return int64(val), true
	}
	return 0, false
}

// GetMapBytes extracts a []byte from a CBOR map by key
func GetMapBytes(m map[int]interface{}, key int) ([]byte, bool) {
	if m == nil {
		return nil, false
	}
	v, ok := m[key]
	if !ok {
		return nil, false
	}
	if val, ok := v.([]byte); ok {
		return val, true
	}
	return nil, false
}
