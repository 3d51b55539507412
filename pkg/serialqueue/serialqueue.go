// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Pris-Com

// Package serialqueue provides a per-device serial command transport with a
// strict single-in-flight discipline.
//
// The fiscal protocol has no way to correlate concurrent responses, so all
// commands for one device funnel through a FIFO queue drained by a single
// goroutine. A command is only written to the wire after the previous
// command's attempt (success or exhausted retries) has resolved.
package serialqueue

import (
	"context"
	"encoding/hex"
	"fmt"
	"log"
	"sync"
	"time"

	"go.bug.st/serial"
)

// pollInterval is how often the consumer checks the accumulated response for
// a complete frame instead of blocking for the full response timeout.
const pollInterval = 150 * time.Millisecond

// Sequence counter bounds. The counter starts at SeqStart and wraps back to
// it after SeqLast.
const (
	SeqStart = 0x20
	SeqLast  = 0xFF
)

// Port is the slice of serial.Port the transport needs. Tests substitute an
// in-memory implementation.
type Port interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Drain() error
	ResetInputBuffer() error
	SetReadTimeout(t time.Duration) error
	Close() error
}

// FrameCodec builds outgoing frames and recognizes complete incoming ones.
// The transport itself never interprets frame contents.
type FrameCodec interface {
	BuildFrame(seq byte, cmd uint16, params []string) []byte
	HasCompleteFrame(buf []byte) bool
}

// Config describes one physical device endpoint.
type Config struct {
	ID              string
	Path            string
	Baud            int
	ResponseTimeout time.Duration
	Retries         int // attempts per command, min 1
	RetryDelay      time.Duration
}

// NoFrameError is the terminal failure of a command: no structurally
// complete response arrived within the timeout on any attempt.
type NoFrameError struct {
	Device  string
	Command uint16
	Partial []byte // last partial response, kept for diagnostics
}

func (e *NoFrameError) Error() string {
	return fmt.Sprintf("NO_FRAME dev=%s cmd=%04x", e.Device, e.Command)
}

type request struct {
	ctx        context.Context
	cmd        uint16
	params     []string
	retries    int
	retryDelay time.Duration
	done       chan result
}

type result struct {
	raw []byte
	err error
}

// SendOption adjusts a single Send call.
type SendOption func(*request)

// WithRetries overrides the device's retry count for one command.
func WithRetries(n int) SendOption {
	return func(r *request) {
		if n >= 1 {
			r.retries = n
		}
	}
}

// WithRetryDelay overrides the device's inter-attempt delay for one command.
func WithRetryDelay(d time.Duration) SendOption {
	return func(r *request) {
		if d >= 0 {
			r.retryDelay = d
		}
	}
}

// Device owns one serial port and serializes all commands issued to it.
type Device struct {
	cfg   Config
	codec FrameCodec
	port  Port
	seq   byte

	requests  chan *request
	closed    chan struct{}
	closeOnce sync.Once
}

// Open opens the configured serial port and starts the command consumer.
// An unopenable port is not fatal: the device is created disconnected and
// every Send fails fast until the process restarts with a good port.
func Open(cfg Config, codec FrameCodec) *Device {
	mode := &serial.Mode{
		BaudRate: cfg.Baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(cfg.Path, mode)
	if err != nil {
		log.Printf("[%s] serial open %s: %v", cfg.ID, cfg.Path, err)
		return New(cfg, codec, nil)
	}
	log.Printf("[%s] connected on %s @%d", cfg.ID, cfg.Path, cfg.Baud)
	return New(cfg, codec, port)
}

// New wires a Device over an already-open port. port may be nil for a
// disconnected device.
func New(cfg Config, codec FrameCodec, port Port) *Device {
	if cfg.ResponseTimeout <= 0 {
		cfg.ResponseTimeout = 6 * time.Second
	}
	if cfg.Retries < 1 {
		cfg.Retries = 1
	}
	d := &Device{
		cfg:      cfg,
		codec:    codec,
		port:     port,
		seq:      SeqStart,
		requests: make(chan *request, 16),
		closed:   make(chan struct{}),
	}
	if port != nil {
		port.SetReadTimeout(pollInterval)
		go d.consume()
	}
	return d
}

// ID returns the device label.
func (d *Device) ID() string { return d.cfg.ID }

// Path returns the configured port path.
func (d *Device) Path() string { return d.cfg.Path }

// Connected reports whether the serial port opened.
func (d *Device) Connected() bool { return d.port != nil }

// Close stops the consumer and closes the port. Close is idempotent.
func (d *Device) Close() error {
	if d.port == nil {
		return nil
	}
	var err error
	d.closeOnce.Do(func() {
		close(d.closed)
		err = d.port.Close()
	})
	return err
}

// Send queues a command and blocks until its attempt resolves. It returns
// the raw response bytes of the first attempt that produced a complete
// frame, or a *NoFrameError after retries are exhausted.
func (d *Device) Send(ctx context.Context, cmd uint16, params []string, opts ...SendOption) ([]byte, error) {
	if d.port == nil {
		return nil, fmt.Errorf("device %s not connected (%s)", d.cfg.ID, d.cfg.Path)
	}
	req := &request{
		ctx:        ctx,
		cmd:        cmd,
		params:     params,
		retries:    d.cfg.Retries,
		retryDelay: d.cfg.RetryDelay,
		done:       make(chan result, 1),
	}
	for _, opt := range opts {
		opt(req)
	}

	select {
	case d.requests <- req:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-d.closed:
		return nil, fmt.Errorf("device %s closed", d.cfg.ID)
	}

	// The enqueue select can win against a concurrent Close, leaving the
	// request queued with no consumer. Waking on closed here keeps a
	// post-Close Send from hanging until its context fires.
	select {
	case res := <-req.done:
		return res.raw, res.err
	case <-d.closed:
		return nil, fmt.Errorf("device %s closed", d.cfg.ID)
	case <-ctx.Done():
		// The consumer still finishes the attempt; the response is dropped.
		return nil, ctx.Err()
	}
}

// consume drains the FIFO. Running in a single goroutine is what enforces
// the single-flight invariant.
func (d *Device) consume() {
	for {
		select {
		case <-d.closed:
			return
		case req := <-d.requests:
			raw, err := d.attempt(req)
			req.done <- result{raw: raw, err: err}
		}
	}
}

// attempt runs one command through its retry loop.
func (d *Device) attempt(req *request) ([]byte, error) {
	var partial []byte
	for i := 0; i < req.retries; i++ {
		raw := d.exchange(req.cmd, req.params)
		if d.codec.HasCompleteFrame(raw) {
			return raw, nil
		}
		partial = raw
		if i < req.retries-1 {
			log.Printf("[%s] no complete frame for cmd=%04x, retry %d/%d",
				d.cfg.ID, req.cmd, i+2, req.retries)
			if req.retryDelay > 0 {
				select {
				case <-time.After(req.retryDelay):
				case <-req.ctx.Done():
					return nil, req.ctx.Err()
				}
			}
		}
	}
	return nil, &NoFrameError{Device: d.cfg.ID, Command: req.cmd, Partial: partial}
}

// exchange performs one write and accumulates the response until a complete
// frame shows up or the response timeout elapses. The accumulated bytes are
// returned either way; the caller decides whether they form a frame.
func (d *Device) exchange(cmd uint16, params []string) []byte {
	d.nextSeq()
	frame := d.codec.BuildFrame(d.seq, cmd, params)

	d.port.ResetInputBuffer()
	if _, err := d.port.Write(frame); err != nil {
		log.Printf("[%s] write cmd=%04x: %v", d.cfg.ID, cmd, err)
		return nil
	}
	d.port.Drain()
	log.Printf("[%s] TX cmd=%04x data=%q", d.cfg.ID, cmd, params)

	var resp []byte
	buf := make([]byte, 256)
	deadline := time.Now().Add(d.cfg.ResponseTimeout)
	for {
		n, err := d.port.Read(buf)
		if n > 0 {
			resp = append(resp, buf[:n]...)
			if d.codec.HasCompleteFrame(resp) {
				log.Printf("[%s] RX %s", d.cfg.ID, hex.EncodeToString(resp))
				return resp
			}
		}
		if err != nil {
			log.Printf("[%s] read cmd=%04x: %v", d.cfg.ID, cmd, err)
			return resp
		}
		if time.Now().After(deadline) {
			if len(resp) > 0 {
				log.Printf("[%s] timeout with partial response (%d bytes): %s",
					d.cfg.ID, len(resp), hex.EncodeToString(resp))
			}
			return resp
		}
	}
}

// nextSeq advances the wrapping sequence counter. Called only from the
// consumer goroutine.
func (d *Device) nextSeq() {
	if d.seq >= SeqLast {
		d.seq = SeqStart
	} else {
		d.seq++
	}
}
