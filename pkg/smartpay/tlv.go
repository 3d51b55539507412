// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Pris-Com

package smartpay

import (
	"fmt"
	"strconv"
	"strings"
)

// AppendTLV appends one tag-length-value record: 2-byte big-endian tag,
// 1-byte length, value bytes. Values longer than 255 bytes cannot be
// represented and are clipped.
func AppendTLV(dst []byte, tag uint16, value []byte) []byte {
	if len(value) > 255 {
		value = value[:255]
	}
	dst = append(dst, byte(tag>>8), byte(tag))
	dst = append(dst, byte(len(value)))
	return append(dst, value...)
}

// ParseTLV decodes a TLV sequence into a tag-to-value map. Trailing bytes
// that do not form a complete record are ignored, matching how the terminal
// pads frames.
func ParseTLV(buf []byte) map[uint16][]byte {
	tags := make(map[uint16][]byte)
	for off := 0; off+3 <= len(buf); {
		tag := uint16(buf[off])<<8 | uint16(buf[off+1])
		length := int(buf[off+2])
		start := off + 3
		end := start + length
		if end > len(buf) {
			break
		}
		tags[tag] = buf[start:end]
		off = end
	}
	return tags
}

// TagString renders a tag the way the terminal documentation spells them
// ("A100", "A108", ...).
func TagString(tag uint16) string {
	return fmt.Sprintf("%04X", tag)
}

// ParseTag parses a caller-supplied tag string such as "0xA012" or "A012".
func ParseTag(s string) (uint16, error) {
	t := strings.TrimPrefix(strings.ToUpper(strings.TrimSpace(s)), "0X")
	n, err := strconv.ParseUint(t, 16, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid TLV tag %q", s)
	}
	return uint16(n), nil
}
