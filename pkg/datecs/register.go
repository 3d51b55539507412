// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Pris-Com

package datecs

import (
	"context"

	"github.com/priscom/paybridge/pkg/serialqueue"
)

// Column widths of the DP-05 printer.
const (
	maxItemName = 72
	maxTextLine = 48
	maxUnit     = 6
)

// Codec adapts the frame functions to the transport's FrameCodec interface.
type Codec struct{}

func (Codec) BuildFrame(seq byte, cmd uint16, params []string) []byte {
	return BuildFrame(seq, cmd, params)
}

func (Codec) HasCompleteFrame(buf []byte) bool {
	return HasCompleteFrame(buf)
}

// Register drives one fiscal cash register through its serial transport.
// Every operation sends exactly one command and decodes the reply; rejected
// commands surface as *DeviceError or *PaperError.
type Register struct {
	dev *serialqueue.Device
}

// NewRegister wraps a transport device.
func NewRegister(dev *serialqueue.Device) *Register {
	return &Register{dev: dev}
}

// Open opens the configured serial port and returns a ready register.
func Open(cfg serialqueue.Config) *Register {
	return NewRegister(serialqueue.Open(cfg, Codec{}))
}

// ID returns the device label.
func (r *Register) ID() string { return r.dev.ID() }

// Path returns the configured port path.
func (r *Register) Path() string { return r.dev.Path() }

// Connected reports whether the serial port opened.
func (r *Register) Connected() bool { return r.dev.Connected() }

// Close releases the serial port.
func (r *Register) Close() error { return r.dev.Close() }

// command sends one command and decodes the outcome.
func (r *Register) command(ctx context.Context, cmd uint16, params []string) (*Response, error) {
	raw, err := r.dev.Send(ctx, cmd, params)
	if err != nil {
		return nil, err
	}
	resp, err := ParseResponse(raw)
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return resp, classify(resp.ErrorCode)
	}
	return resp, nil
}

// Session identifies the operator opening a fiscal receipt.
type Session struct {
	Operator string
	Password string
	Till     string
}

// OpenFiscal opens a fiscal receipt for the given operator session.
func (r *Register) OpenFiscal(ctx context.Context, s Session) (string, error) {
	resp, err := r.command(ctx, CmdOpenFiscal, []string{s.Operator, s.Password, s.Till, ""})
	if err != nil {
		return "", err
	}
	return resp.Data, nil
}

// SaleItem is one line of a fiscal receipt.
type SaleItem struct {
	Name       string
	TaxClass   string // letter A-G or digit 1-7
	Price      string // decimal amount, dot or comma
	Quantity   string // empty means 1
	Department string
	Unit       string
}

// Sale records one sale line on the open receipt.
func (r *Register) Sale(ctx context.Context, item SaleItem) (string, error) {
	name := TruncateText(item.Name, maxItemName)
	if name == "" {
		name = "ITEM"
	}
	dept := item.Department
	if dept == "" {
		dept = "1"
	}
	unit := TruncateText(item.Unit, maxUnit)
	if unit == "" {
		unit = "X"
	}
	qty := "1.000"
	if item.Quantity != "" {
		qty = QtyDot(item.Quantity)
	}
	// Discount type and value are sent empty; discounting happens upstream
	// in the booking system, the register only prints final prices.
	params := []string{name, TaxClass(item.TaxClass), MoneyDot(item.Price), qty, "", "", dept, unit, ""}
	resp, err := r.command(ctx, CmdSale, params)
	if err != nil {
		return "", err
	}
	return resp.Data, nil
}

// PayResult carries the pay command's extra response fields.
type PayResult struct {
	Data   string
	Status string // PayStatusDeficit or PayStatusChange
	Amount string // remainder or change, per Status
}

// Pay records a payment against the open receipt. mode accepts the symbolic
// names understood by PayMode.
func (r *Register) Pay(ctx context.Context, mode, amount string) (*PayResult, error) {
	resp, err := r.command(ctx, CmdPay, []string{PayMode(mode), MoneyDot(amount), ""})
	if err != nil {
		return nil, err
	}
	return &PayResult{Data: resp.Data, Status: resp.PayStatus, Amount: resp.PayAmount}, nil
}

// CloseFiscal closes and prints the open fiscal receipt.
func (r *Register) CloseFiscal(ctx context.Context) (string, error) {
	resp, err := r.command(ctx, CmdCloseFiscal, nil)
	if err != nil {
		return "", err
	}
	return resp.Data, nil
}

// Cancel voids the receipt in progress.
func (r *Register) Cancel(ctx context.Context) (string, error) {
	resp, err := r.command(ctx, CmdCancelReceipt, nil)
	if err != nil {
		return "", err
	}
	return resp.Data, nil
}

// PrintText prints one free-text line on the open fiscal receipt.
func (r *Register) PrintText(ctx context.Context, text string) (string, error) {
	resp, err := r.command(ctx, CmdFiscalText, []string{TruncateText(text, maxTextLine), ""})
	if err != nil {
		return "", err
	}
	return resp.Data, nil
}

// OpenNonFiscal opens a non-fiscal slip.
func (r *Register) OpenNonFiscal(ctx context.Context) (string, error) {
	resp, err := r.command(ctx, CmdOpenNonFiscal, []string{"", ""})
	if err != nil {
		return "", err
	}
	return resp.Data, nil
}

// NonFiscalText prints one line on the open non-fiscal slip.
func (r *Register) NonFiscalText(ctx context.Context, text string) (string, error) {
	params := []string{TruncateText(text, maxTextLine), "", "", "", "", "", "", ""}
	resp, err := r.command(ctx, CmdNonFiscalText, params)
	if err != nil {
		return "", err
	}
	return resp.Data, nil
}

// CloseNonFiscal closes the open non-fiscal slip.
func (r *Register) CloseNonFiscal(ctx context.Context) (string, error) {
	resp, err := r.command(ctx, CmdCloseNonFiscal, []string{""})
	if err != nil {
		return "", err
	}
	return resp.Data, nil
}
