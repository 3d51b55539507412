// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Pris-Com

package datecs

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/priscom/paybridge/pkg/serialqueue"
)

// ============================================================
// Scripted Device
// ============================================================

// scriptedPort answers every written command frame with a response built
// from the script, keyed by command code.
type scriptedPort struct {
	mu      sync.Mutex
	script  map[uint16]string // command -> response DATA
	pending []byte
	frames  [][]byte
}

func (p *scriptedPort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	frame := append([]byte(nil), b...)
	p.frames = append(p.frames, frame)

	cmd := DecodeWord(frame[6:10])
	data, ok := p.script[cmd]
	if !ok {
		data = "0"
	}
	p.pending = buildResponse(cmd, data)
	return len(b), nil
}

func (p *scriptedPort) Read(b []byte) (int, error) {
	p.mu.Lock()
	if len(p.pending) == 0 {
		p.mu.Unlock()
		time.Sleep(time.Millisecond)
		return 0, nil
	}
	n := copy(b, p.pending)
	p.pending = p.pending[n:]
	p.mu.Unlock()
	return n, nil
}

func (p *scriptedPort) Drain() error                         { return nil }
func (p *scriptedPort) ResetInputBuffer() error              { return nil }
func (p *scriptedPort) SetReadTimeout(t time.Duration) error { return nil }
func (p *scriptedPort) Close() error                         { return nil }

// lastData extracts the DATA section of the last written command frame.
func (p *scriptedPort) lastData(t *testing.T) string {
	t.Helper()
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.frames) == 0 {
		t.Fatal("no frames written")
	}
	frame := p.frames[len(p.frames)-1]
	pst := bytes.IndexByte(frame, Postamble)
	return string(frame[10:pst])
}

func newTestRegister(t *testing.T, script map[uint16]string) (*Register, *scriptedPort) {
	t.Helper()
	port := &scriptedPort{script: script}
	dev := serialqueue.New(serialqueue.Config{
		ID:              "A",
		Path:            "mem",
		ResponseTimeout: 250 * time.Millisecond,
	}, Codec{}, port)
	t.Cleanup(func() { dev.Close() })
	return NewRegister(dev), port
}

// ============================================================
// Operation Tests
// ============================================================

func TestRegister_OpenFiscal(t *testing.T) {
	reg, port := newTestRegister(t, map[uint16]string{CmdOpenFiscal: "0\t77"})

	data, err := reg.OpenFiscal(context.Background(), Session{Operator: "30", Password: "0030", Till: "1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if data != "0\t77" {
		t.Errorf("data = %q", data)
	}
	if got := port.lastData(t); got != "30\t0030\t1\t" {
		t.Errorf("wire params = %q", got)
	}
}

func TestRegister_Sale_AppliesDefaults(t *testing.T) {
	reg, port := newTestRegister(t, nil)

	if _, err := reg.Sale(context.Background(), SaleItem{Name: "BILET", TaxClass: "B", Price: "15,5"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := port.lastData(t); got != "BILET\t2\t15.50\t1.000\t\t\t1\tX\t" {
		t.Errorf("wire params = %q", got)
	}
}

func TestRegister_Sale_EmptyNameFallsBack(t *testing.T) {
	reg, port := newTestRegister(t, nil)

	if _, err := reg.Sale(context.Background(), SaleItem{Price: "1"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(port.lastData(t), "ITEM\t") {
		t.Errorf("wire params = %q, expected ITEM fallback", port.lastData(t))
	}
}

func TestRegister_Pay_ChangeDue(t *testing.T) {
	reg, port := newTestRegister(t, map[uint16]string{CmdPay: "0\tR\t4.50"})

	res, err := reg.Pay(context.Background(), "cash", "20")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Status != PayStatusChange || res.Amount != "4.50" {
		t.Errorf("result = %+v", res)
	}
	if got := port.lastData(t); got != "0\t20.00\t" {
		t.Errorf("wire params = %q", got)
	}
}

func TestRegister_PaperErrorSurfaces(t *testing.T) {
	reg, _ := newTestRegister(t, map[uint16]string{CmdCloseFiscal: "-111008"})

	_, err := reg.CloseFiscal(context.Background())
	var paperErr *PaperError
	if !errors.As(err, &paperErr) {
		t.Fatalf("err = %v, expected *PaperError", err)
	}
	if paperErr.Code != CodeNoPaper {
		t.Errorf("Code = %q", paperErr.Code)
	}
}

func TestRegister_DeviceErrorSurfaces(t *testing.T) {
	reg, _ := newTestRegister(t, map[uint16]string{CmdSale: "-100035"})

	_, err := reg.Sale(context.Background(), SaleItem{Name: "X", Price: "1"})
	var devErr *DeviceError
	if !errors.As(err, &devErr) {
		t.Fatalf("err = %v, expected *DeviceError", err)
	}
	var paperErr *PaperError
	if errors.As(err, &paperErr) {
		t.Errorf("generic rejection classified as paper error")
	}
}

func TestRegister_NonFiscalSlip(t *testing.T) {
	reg, port := newTestRegister(t, nil)
	ctx := context.Background()

	if _, err := reg.OpenNonFiscal(ctx); err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := reg.NonFiscalText(ctx, "COPIE BON"); err != nil {
		t.Fatalf("text: %v", err)
	}
	if got := port.lastData(t); got != "COPIE BON\t\t\t\t\t\t\t" {
		t.Errorf("wire params = %q", got)
	}
	if _, err := reg.CloseNonFiscal(ctx); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestRegister_Disconnected(t *testing.T) {
	dev := serialqueue.New(serialqueue.Config{ID: "A", Path: "/dev/null"}, Codec{}, nil)
	reg := NewRegister(dev)

	if reg.Connected() {
		t.Errorf("Connected() = true without a port")
	}
	if _, err := reg.CloseFiscal(context.Background()); err == nil {
		t.Errorf("expected error on disconnected register")
	}
}
