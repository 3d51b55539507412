// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Pris-Com

package smartpay

// CRC-16/BUYPASS parameters (SmartPay ECR link appendix 2).
const (
	crcPolynomial = 0x8005
	crcInitial    = 0x0000
)

// CRC16 computes the CRC-16/BUYPASS checksum of data. In this protocol the
// checksum covers the TLV payload only, not the frame delimiters or length.
func CRC16(data []byte) uint16 {
	crc := uint16(crcInitial)
	for _, b := range data {
		crc ^= uint16(b) << 8
		for i := 0; i < 8; i++ {
			if crc&0x8000 != 0 {
				crc = (crc << 1) ^ crcPolynomial
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}
