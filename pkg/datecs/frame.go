// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Pris-Com

package datecs

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
)

// errCodePattern matches the register's signed six-digit error codes
// anywhere inside the response DATA section.
var errCodePattern = regexp.MustCompile(`-\d{6}`)

// EncodeWord expands a 16-bit value to the register's 4-byte ASCII nibble
// encoding: each nibble becomes '0'+nibble, most significant nibble first.
func EncodeWord(w uint16) []byte {
	return []byte{
		'0' + byte(w>>12&0xF),
		'0' + byte(w>>8&0xF),
		'0' + byte(w>>4&0xF),
		'0' + byte(w&0xF),
	}
}

// DecodeWord is the inverse of EncodeWord. The input must be 4 bytes.
func DecodeWord(b []byte) uint16 {
	n := func(c byte) uint16 { return uint16(c-'0') & 0xF }
	return n(b[0])<<12 | n(b[1])<<8 | n(b[2])<<4 | n(b[3])
}

// JoinParams builds the DATA section from command parameters. Parameters are
// tab-separated; trailing empty parameters produce trailing tabs, which some
// commands require as an end-of-list marker.
func JoinParams(params []string) []byte {
	return []byte(strings.Join(params, string(ParamSep)))
}

// BuildFrame assembles a complete command frame:
//
//	PRE(1) LEN(4) SEQ(1) CMD(4) DATA(n) PST(1) BCC(4) EOT(1)
//
// BCC is the additive checksum mod 2^16 of LEN through PST inclusive.
func BuildFrame(seq byte, cmd uint16, params []string) []byte {
	data := JoinParams(params)

	core := make([]byte, 0, 1+4+len(data)+1)
	core = append(core, seq)
	core = append(core, EncodeWord(cmd)...)
	core = append(core, data...)
	core = append(core, Postamble)

	lenField := EncodeWord(uint16(len(core) + 4 + lenOffset))

	var sum uint16
	for _, b := range lenField {
		sum += uint16(b)
	}
	for _, b := range core {
		sum += uint16(b)
	}

	frame := make([]byte, 0, 1+len(lenField)+len(core)+4+1)
	frame = append(frame, Preamble)
	frame = append(frame, lenField...)
	frame = append(frame, core...)
	frame = append(frame, EncodeWord(sum)...)
	frame = append(frame, Terminator)
	return frame
}

// HasCompleteFrame reports whether buf contains a structurally complete
// response wrapper: a preamble, then a postamble, then a terminator, in that
// order. It does not validate the checksum; the register is the only writer
// on the line and partial reads are the failure mode that matters.
func HasCompleteFrame(buf []byte) bool {
	pre := bytes.IndexByte(buf, Preamble)
	if pre < 0 {
		return false
	}
	pst := bytes.IndexByte(buf[pre+1:], Postamble)
	if pst < 0 {
		return false
	}
	pst += pre + 1
	return bytes.IndexByte(buf[pst+1:], Terminator) >= 0
}

// Response is a decoded register reply.
type Response struct {
	Command   uint16
	Data      string
	ErrorCode string // empty when the command succeeded

	// Extra fields carried by the pay command on success.
	PayStatus string
	PayAmount string
}

// OK reports whether the register accepted the command.
func (r *Response) OK() bool { return r.ErrorCode == "" }

// ParseResponse decodes a raw response frame. The command word sits
// immediately after the sequence byte; DATA is everything between the command
// field and the postamble. A signed six-digit number anywhere in DATA is the
// device error code; its absence means success.
func ParseResponse(raw []byte) (*Response, error) {
	pre := bytes.IndexByte(raw, Preamble)
	if pre < 0 {
		return nil, fmt.Errorf("no preamble in %d response bytes", len(raw))
	}
	pst := bytes.IndexByte(raw[pre+1:], Postamble)
	if pst < 0 {
		return nil, fmt.Errorf("no postamble in %d response bytes", len(raw))
	}
	pst += pre + 1

	// PRE(1) LEN(4) SEQ(1) = 6 bytes before the command field.
	if pst < pre+10 {
		return nil, fmt.Errorf("response truncated before command field")
	}

	resp := &Response{
		Command: DecodeWord(raw[pre+6 : pre+10]),
		Data:    string(raw[pre+10 : pst]),
	}
	resp.ErrorCode = errCodePattern.FindString(resp.Data)

	if resp.Command == CmdPay && resp.OK() {
		parts := strings.Split(resp.Data, string(ParamSep))
		if len(parts) > 1 {
			resp.PayStatus = parts[1]
		}
		if len(parts) > 2 {
			resp.PayAmount = parts[2]
		}
	}
	return resp, nil
}
