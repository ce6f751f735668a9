// Copyright 2025 Lemon4ksan. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package zipcore

import "time"

// MS-DOS packed date/time, range 1980-01-01 00:00:00 to 2107-12-31 23:59:59,
// with 2-second resolution. Bit layout (low to high):
//
//	bits 0-4:   seconds / 2
//	bits 5-10:  minutes
//	bits 11-15: hours
//	bits 16-20: day
//	bits 21-24: month
//	bits 25-31: year - 1980
var (
	dosEpochMin = time.Date(1980, 1, 1, 0, 0, 0, 0, time.UTC)
	dosEpochMax = time.Date(2107, 12, 31, 23, 59, 59, 0, time.UTC)
)

// unixToDOS packs a Unix time (seconds since epoch, interpreted in UTC) into
// the 32-bit MS-DOS date/time format, clamping to the representable range.
func unixToDOS(seconds int64) uint32 {
	t := time.Unix(seconds, 0).UTC()
	if t.Before(dosEpochMin) {
		t = dosEpochMin
	}
	if t.After(dosEpochMax) {
		t = dosEpochMax
	}

	year := uint32(t.Year() - 1980)
	month := uint32(t.Month())
	day := uint32(t.Day())
	hour := uint32(t.Hour())
	minute := uint32(t.Minute())
	second := uint32(t.Second()) / 2

	dosTime := (second & 0x1F) | (minute&0x3F)<<5 | (hour&0x1F)<<11
	dosDate := (day & 0x1F) | (month&0x0F)<<5 | (year&0x7F)<<9

	return dosTime | dosDate<<16
}

// dosToUnix unpacks a 32-bit MS-DOS date/time into Unix seconds (UTC).
// Because DOS time only resolves seconds to an even number, dosToUnix is
// the left inverse of unixToDOS only up to 1 second: dosToUnix(unixToDOS(t))
// may equal t-1 when t's second field is odd.
func dosToUnix(packed uint32) int64 {
	dosTime := uint16(packed & 0xFFFF)
	dosDate := uint16(packed >> 16)

	second := int(dosTime&0x1F) * 2
	minute := int((dosTime >> 5) & 0x3F)
	hour := int((dosTime >> 11) & 0x1F)

	day := int(dosDate & 0x1F)
	month := int((dosDate >> 5) & 0x0F)
	year := int((dosDate>>9)&0x7F) + 1980

	if day < 1 || day > 31 {
		day = 1
	}
	if month < 1 || month > 12 {
		month = 1
	}

	return time.Date(year, time.Month(month), day, hour, minute, second, 0, time.UTC).Unix()
}
