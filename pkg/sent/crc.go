// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package sent

// crc4Table is the SAE J2716 CRC-4 lookup table (x^4 + x^3 + x^2 + 1)
var crc4Table = [16]Nibble{0, 13, 7, 10, 14, 3, 9, 4, 1, 12, 6, 11, 15, 2, 8, 5}

// CalculateCRC computes the SENT CRC-4 checksum for the given nibbles
func CalculateCRC(nibbles []Nibble) Nibble {
	checksum := Nibble(crcSeed)
	for _, n := range nibbles {
		checksum = (n & NibbleMask) ^ crc4Table[checksum]
	}
	// Augment with a zero nibble
	return crc4Table[checksum]
}

// ValidateCRC recomputes the checksum over nibbles and compares it with claimed
func ValidateCRC(nibbles []Nibble, claimed Nibble) error {
	calculated := CalculateCRC(nibbles)
	if calculated != claimed&NibbleMask {
		return &CRCError{Field: frameField, Expected: calculated, Got: claimed}
	}
	return nil
}
