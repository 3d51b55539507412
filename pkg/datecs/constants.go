// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Pris-Com

// Package datecs implements the wire protocol of the Datecs DP-05 family of
// fiscal cash registers.
//
// The register speaks a length-prefixed, checksummed command protocol over a
// serial line. Every 16-bit field on the wire (length, command, checksum) is
// expanded to four ASCII bytes by mapping each nibble to '0'+nibble. Command
// parameters travel as tab-separated ASCII between the command field and the
// postamble.
package datecs

// Frame delimiter bytes
const (
	Preamble   = 0x01
	Postamble  = 0x05
	Terminator = 0x03
)

// Sequence counter range. The counter wraps back to SeqFirst after SeqLast.
const (
	SeqFirst = 0x20
	SeqLast  = 0xFF
)

// lenOffset is the constant the register adds to the encoded length field:
// LEN = len(SEQ + CMD + DATA + PST) + 4 bytes for LEN itself + 0x20.
const lenOffset = 0x20

// ParamSep separates command parameters in the DATA section.
const ParamSep = '\t'

// Command codes
const (
	CmdOpenNonFiscal  = 0x0026
	CmdCloseNonFiscal = 0x0027
	CmdNonFiscalText  = 0x002A
	CmdOpenFiscal     = 0x0030
	CmdSale           = 0x0031
	CmdFiscalText     = 0x0034
	CmdPay            = 0x0035
	CmdCloseFiscal    = 0x0038
	CmdCancelReceipt  = 0x003C
)

// Device error codes that indicate a consumable/hardware fault the operator
// can fix on the spot, as opposed to a rejected command.
const (
	CodeNoPaper      = "-111008"
	CodePrinterFault = "-111009"
	CodePaperJam     = "-112006"
)

// Payment modes as the register expects them in the pay command.
const (
	PayModeCash = "0"
	PayModeCard = "1"
)

// Pay command status flags returned on success.
const (
	PayStatusDeficit = "D" // paid amount below receipt total, remainder due
	PayStatusChange  = "R" // paid amount above receipt total, change due
)
