// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Pris-Com

package smartpay

import "fmt"

// frameOverhead is STX + LEN(2) + ETX + CRC(2).
const frameOverhead = 6

// WrapFrame builds a complete wire frame around a TLV payload:
//
//	STX LEN(2, big-endian) TLV... ETX CRC(2, big-endian)
//
// The CRC covers only the TLV payload.
func WrapFrame(tlv []byte) []byte {
	frame := make([]byte, 0, len(tlv)+frameOverhead)
	frame = append(frame, STX, byte(len(tlv)>>8), byte(len(tlv)))
	frame = append(frame, tlv...)
	crc := CRC16(tlv)
	frame = append(frame, ETX, byte(crc>>8), byte(crc))
	return frame
}

// VerifyFrame checks a complete frame's structure and CRC and returns its
// TLV payload.
func VerifyFrame(frame []byte) ([]byte, error) {
	if len(frame) < frameOverhead {
		return nil, fmt.Errorf("frame too short: %d bytes", len(frame))
	}
	if frame[0] != STX {
		return nil, fmt.Errorf("frame does not start with STX (0x%02X)", frame[0])
	}
	dataLen := int(frame[1])<<8 | int(frame[2])
	if len(frame) != dataLen+frameOverhead {
		return nil, fmt.Errorf("frame length %d does not match declared %d", len(frame), dataLen)
	}
	if frame[3+dataLen] != ETX {
		return nil, fmt.Errorf("missing ETX after payload")
	}
	tlv := frame[3 : 3+dataLen]
	want := uint16(frame[4+dataLen])<<8 | uint16(frame[5+dataLen])
	if got := CRC16(tlv); got != want {
		return nil, fmt.Errorf("CRC mismatch: calculated 0x%04X, frame carries 0x%04X", got, want)
	}
	return tlv, nil
}

// frameAccumulator assembles a response frame byte by byte. After the first
// three bytes the declared length is known and the accumulator waits for
// exactly that many remaining bytes.
type frameAccumulator struct {
	buf  []byte
	want int // full frame length, 0 until the length field is complete
}

// feed adds one byte. It returns true once the frame is complete.
func (a *frameAccumulator) feed(b byte) bool {
	a.buf = append(a.buf, b)
	if len(a.buf) == 3 {
		dataLen := int(a.buf[1])<<8 | int(a.buf[2])
		a.want = dataLen + frameOverhead
	}
	return a.want > 0 && len(a.buf) >= a.want
}

// payload returns the TLV section of the completed frame. The terminal's
// response CRC is not re-verified here; the link layer already ACKed the
// frame and the fields are individually validated downstream.
func (a *frameAccumulator) payload() []byte {
	dataLen := int(a.buf[1])<<8 | int(a.buf[2])
	return a.buf[3 : 3+dataLen]
}
