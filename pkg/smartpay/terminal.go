// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Pris-Com

package smartpay

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"time"

	"go.bug.st/serial"
)

// Transport-level failures, distinguishable from a normal decline.
var (
	// ErrNotConnected means the port could not be opened or the terminal
	// never answered the ENQ probe.
	ErrNotConnected = errors.New("POS terminal not connected")
	// ErrTimeout means the transaction ceiling elapsed without a parsed
	// response (the cardholder never finished, or the line died mid-flow).
	ErrTimeout = errors.New("POS transaction timeout")
	// ErrHandshakeRefused means the terminal NAKed the ENQ probe
	// repeatedly; it is reachable but refuses to talk.
	ErrHandshakeRefused = errors.New("POS terminal refused handshake")
)

// readPoll bounds each blocking read so the deadlines are checked often.
const readPoll = 50 * time.Millisecond

// Port is the slice of serial.Port the session needs; tests substitute a
// scripted implementation.
type Port interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	SetReadTimeout(t time.Duration) error
	Close() error
}

// openPort is swapped out by tests.
var openPort = func(path string, baud int) (Port, error) {
	return serial.Open(path, &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
}

// Terminal describes one card terminal endpoint. Unlike the fiscal register
// the port is opened per transaction: the terminal drops the link after
// every exchange and a fresh handshake is required anyway.
type Terminal struct {
	Label string
	Path  string
	Baud  int

	// HandshakeTimeout bounds only the ENQ->ACK step, so a disconnected or
	// misconfigured terminal is detected quickly.
	HandshakeTimeout time.Duration
	// TxTimeout is the ceiling for a whole transaction, sized for card
	// insertion and PIN entry.
	TxTimeout time.Duration
}

// SaleParams describes one card sale.
type SaleParams struct {
	Amount       float64
	CurrencyName string
	CurrencyCode string
	UniqueID     string
}

// RefundParams describes one card refund.
type RefundParams struct {
	Amount       float64
	CurrencyName string
	CurrencyCode string
	UniqueID     string
	ExtraTags    []ExtraTag
}

// Sale runs a card sale transaction.
func (t *Terminal) Sale(ctx context.Context, p SaleParams) (*Result, error) {
	return t.Execute(ctx, BuildSale(p.Amount, p.CurrencyName, p.CurrencyCode, p.UniqueID))
}

// Refund runs a card refund transaction.
func (t *Terminal) Refund(ctx context.Context, p RefundParams) (*Result, error) {
	return t.Execute(ctx, BuildRefund(p.Amount, p.CurrencyName, p.CurrencyCode, p.UniqueID, p.ExtraTags))
}

// Info runs the connectivity probe.
func (t *Terminal) Info(ctx context.Context) (*Result, error) {
	return t.Execute(ctx, BuildInfo())
}

// session states
const (
	stateAwaitEnqAck = iota
	stateAwaitFrame
	stateReadFrame
)

// Execute runs one full terminal exchange for the given request TLV payload:
// handshake, frame transmission, response accumulation, link ACK, parse.
// Whatever happens, an EOT is written and the port closed - but only if the
// port actually opened.
func (t *Terminal) Execute(ctx context.Context, tlv []byte) (*Result, error) {
	port, err := openPort(t.Path, t.Baud)
	if err != nil {
		log.Printf("[POS %s] open %s: %v", t.Label, t.Path, err)
		return nil, fmt.Errorf("%w: %s", ErrNotConnected, t.Path)
	}
	defer func() {
		// Orderly shutdown signal before release, best effort.
		port.Write([]byte{EOT})
		port.Close()
	}()
	port.SetReadTimeout(readPoll)

	frame := WrapFrame(tlv)
	log.Printf("[POS %s] TX %s", t.Label, hex.EncodeToString(frame))

	if _, err := port.Write([]byte{ENQ}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotConnected, err)
	}

	var (
		state        = stateAwaitEnqAck
		enqTries     = 1
		acc          frameAccumulator
		handshakeEnd = time.Now().Add(t.HandshakeTimeout)
		txEnd        = time.Now().Add(t.TxTimeout)
		buf          = make([]byte, 256)
	)

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if state == stateAwaitEnqAck && time.Now().After(handshakeEnd) {
			log.Printf("[POS %s] ENQ/ACK timeout, terminal unreachable", t.Label)
			return nil, fmt.Errorf("%w: handshake timeout", ErrNotConnected)
		}
		if time.Now().After(txEnd) {
			return nil, ErrTimeout
		}

		n, err := port.Read(buf)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrNotConnected, err)
		}

		for _, b := range buf[:n] {
			switch state {
			case stateAwaitEnqAck:
				switch b {
				case ACK:
					if _, err := port.Write(frame); err != nil {
						return nil, fmt.Errorf("%w: %v", ErrNotConnected, err)
					}
					state = stateAwaitFrame
				case NAK:
					enqTries++
					if enqTries > enqAttempts {
						return nil, ErrHandshakeRefused
					}
					log.Printf("[POS %s] NAK on ENQ, attempt %d/%d", t.Label, enqTries, enqAttempts)
					if _, err := port.Write([]byte{ENQ}); err != nil {
						return nil, fmt.Errorf("%w: %v", ErrNotConnected, err)
					}
				default:
					log.Printf("[POS %s] unexpected handshake byte 0x%02X, ignored", t.Label, b)
				}

			case stateAwaitFrame:
				switch b {
				case STX:
					acc = frameAccumulator{}
					acc.feed(b)
					state = stateReadFrame
				case ACK:
					// link-level ACK of our frame
				case NAK:
					// Terminal wants the frame again. Resent exactly once
					// per NAK without re-entering the handshake; see the
					// link-retry boundary test.
					log.Printf("[POS %s] NAK on frame, resending", t.Label)
					if _, err := port.Write(frame); err != nil {
						return nil, fmt.Errorf("%w: %v", ErrNotConnected, err)
					}
				}

			case stateReadFrame:
				if !acc.feed(b) {
					continue
				}
				log.Printf("[POS %s] RX %s", t.Label, hex.EncodeToString(acc.buf))
				port.Write([]byte{ACK})
				result := ParseResult(acc.payload())
				log.Printf("[POS %s] A100=%s A107=%s approved=%v",
					t.Label, result.ErrorCode, result.HostResp, result.Approved)
				return result, nil
			}
		}
	}
}
