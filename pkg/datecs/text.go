// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Pris-Com

package datecs

import (
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// The DP-05 prints from a single-byte Latin-2 code page. Item names and free
// text arrive as UTF-8 and must be narrowed before they go on the wire;
// runes the code page cannot express are replaced rather than failing the
// whole receipt.
var deviceEncoder = encoding.ReplaceUnsupported(charmap.Windows1250.NewEncoder())

// EncodeText converts UTF-8 text to the register's code page.
func EncodeText(s string) string {
	out, _, err := transform.String(deviceEncoder, s)
	if err != nil {
		return s
	}
	return out
}

// TruncateText clips text to the register's column width, counting bytes in
// the device code page.
func TruncateText(s string, max int) string {
	s = EncodeText(s)
	if len(s) > max {
		s = s[:max]
	}
	return s
}
