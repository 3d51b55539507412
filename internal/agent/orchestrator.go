// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Pris-Com

package agent

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/priscom/paybridge/pkg/datecs"
	"github.com/priscom/paybridge/pkg/smartpay"
)

// posCeiling caps how long the orchestrator waits for one card transaction.
// It only bounds a stuck flow; a decline or approval returns immediately.
// Sized for card insertion plus PIN entry.
const posCeiling = 180 * time.Second

// maxItemName is the register's receipt line width for item names as the
// orchestrator clips them; the codec clips again in device code page bytes.
const maxItemName = 48

// FiscalDevice is the slice of the register driver the orchestrator needs.
// *datecs.Register satisfies it; tests use scripted fakes.
type FiscalDevice interface {
	OpenFiscal(ctx context.Context, s datecs.Session) (string, error)
	Sale(ctx context.Context, item datecs.SaleItem) (string, error)
	Pay(ctx context.Context, mode, amount string) (*datecs.PayResult, error)
	CloseFiscal(ctx context.Context) (string, error)
}

// CardTerminal is the slice of the POS driver the orchestrator needs.
// *smartpay.Terminal satisfies it.
type CardTerminal interface {
	Sale(ctx context.Context, p smartpay.SaleParams) (*smartpay.Result, error)
	Refund(ctx context.Context, p smartpay.RefundParams) (*smartpay.Result, error)
}

// DeviceSource resolves a payload's device label to concrete devices.
type DeviceSource interface {
	FiscalDevice(label string) (FiscalDevice, error)
	CardTerminal(label string) (CardTerminal, error)
}

// Orchestrator sequences POS and fiscal operations for one job at a time
// and turns the outcome into a Report. It never lets a step failure escape
// without a report.
type Orchestrator struct {
	Devices    DeviceSource
	Session    datecs.Session // operator credentials for fiscal receipts
	DefaultDev string         // device label when the payload names none
}

// Process resolves one job into exactly one report. Processing is strictly
// sequential: within a job, fiscal steps never overlap POS steps.
func (o *Orchestrator) Process(ctx context.Context, job *Job) *Report {
	log.Printf("[agent] job #%d type=%s", job.ID, job.Type)

	payload, err := job.decodePayload()
	if err != nil {
		rep := newReport(false, false)
		return rep.fail(fmt.Sprintf("invalid job payload: %v", err))
	}

	switch job.Type {
	case JobCashReceiptOnly:
		return o.cashReceipt(ctx, &CashReceiptJob{
			Amount:      payload.Amount.String(),
			Description: payload.Description,
			Dev:         o.dev(payload.Dev),
		})
	case JobCardAndReceipt:
		return o.cardAndReceipt(ctx, &CardSaleJob{
			Amount:      payload.Amount.Float(),
			Description: payload.Description,
			Currency:    payload.Currency,
			Dev:         o.dev(payload.Dev),
			UniqueID:    payload.uniqueID(),
		})
	case JobCardRefund:
		return o.cardRefund(ctx, &CardRefundJob{
			Amount:    payload.Amount.Float(),
			Currency:  payload.Currency,
			Dev:       o.dev(payload.Dev),
			UniqueID:  payload.uniqueID(),
			ExtraTags: payload.ExtraTags,
		})
	case JobRetryReceipt:
		return o.retryReceipt(ctx, &RetryReceiptJob{
			Amount:        payload.Amount.String(),
			Description:   payload.Description,
			Dev:           o.dev(payload.Dev),
			PaymentMethod: payload.PaymentMethod,
		})
	default:
		log.Printf("[agent] unknown job type %q", job.Type)
		rep := newReport(false, false)
		return rep.fail("UNKNOWN_JOB_TYPE")
	}
}

func (o *Orchestrator) dev(label string) string {
	if label == "" {
		return o.DefaultDev
	}
	return label
}

// itemName clips a job description into a printable item name.
func itemName(desc string) string {
	name := strings.TrimSpace(desc)
	if name == "" {
		name = "BILET"
	}
	if len(name) > maxItemName {
		name = name[:maxItemName]
	}
	return name
}

// fiscalChain runs the full receipt sequence: open session, sale line,
// payment, close. The first failing step aborts the rest.
func (o *Orchestrator) fiscalChain(ctx context.Context, dev FiscalDevice, item datecs.SaleItem, payMode, amount string) error {
	if _, err := dev.OpenFiscal(ctx, o.Session); err != nil {
		return err
	}
	if _, err := dev.Sale(ctx, item); err != nil {
		return err
	}
	if _, err := dev.Pay(ctx, payMode, amount); err != nil {
		return err
	}
	_, err := dev.CloseFiscal(ctx)
	return err
}

func (o *Orchestrator) receiptItem(desc string, amount string) datecs.SaleItem {
	return datecs.SaleItem{
		Name:       itemName(desc),
		TaxClass:   "1",
		Price:      amount,
		Quantity:   "1",
		Department: "1",
		Unit:       "BUC",
	}
}

// cashReceipt: fiscal receipt paid in cash, no POS involvement.
func (o *Orchestrator) cashReceipt(ctx context.Context, j *CashReceiptJob) *Report {
	rep := newReport(true, false)

	dev, err := o.Devices.FiscalDevice(j.Dev)
	if err != nil {
		return rep.fail(err.Error())
	}
	if err := o.fiscalChain(ctx, dev, o.receiptItem(j.Description, j.Amount), "cash", j.Amount); err != nil {
		log.Printf("[agent] cash receipt failed: %v", err)
		return rep.fail(err.Error())
	}

	rep.Success = true
	rep.FiscalOK = true
	rep.Result.Fiscal.OK = true
	return rep
}

// cardAndReceipt: POS sale first, fiscal receipt second. A POS failure
// aborts before any fiscal step; a fiscal failure after POS approval is the
// partial-failure case and its message must never read like a failed
// payment.
func (o *Orchestrator) cardAndReceipt(ctx context.Context, j *CardSaleJob) *Report {
	rep := newReport(false, false)

	if j.Amount <= 0 {
		return rep.fail("AMOUNT_REQUIRED_OR_INVALID")
	}

	term, err := o.Devices.CardTerminal(j.Dev)
	if err != nil {
		return rep.fail(err.Error())
	}

	posCtx, cancel := context.WithTimeout(ctx, posCeiling)
	result, err := term.Sale(posCtx, smartpay.SaleParams{
		Amount:       j.Amount,
		CurrencyName: j.Currency,
		UniqueID:     j.UniqueID,
	})
	cancel()
	if err != nil {
		log.Printf("[agent] POS sale failed: %v", err)
		return rep.fail(err.Error())
	}
	if !result.Approved {
		return rep.fail(smartpay.DeclineMessage(result))
	}

	rep.POSOK = true
	rep.Result.POS = StepResult{
		OK:        true,
		Tags:      result.TagsASCII(),
		HostResp:  result.HostResp,
		ErrorCode: result.ErrorCode,
	}

	fdev, err := o.Devices.FiscalDevice(j.Dev)
	if err != nil {
		return rep.fail(partialFailureMessage(err))
	}
	amount := fmt.Sprintf("%.2f", j.Amount)
	item := o.receiptItem(j.Description, amount)
	if err := o.fiscalChain(ctx, fdev, item, "card", amount); err != nil {
		log.Printf("[agent] receipt after approved payment failed: %v", err)
		return rep.fail(partialFailureMessage(err))
	}

	rep.FiscalOK = true
	rep.Result.Fiscal.OK = true
	rep.Success = true
	return rep
}

// partialFailureMessage states explicitly that the money moved and only the
// receipt is missing.
func partialFailureMessage(err error) string {
	reason := err.Error()
	var paper *datecs.PaperError
	if errors.As(err, &paper) {
		reason = paper.Message()
	}
	return fmt.Sprintf("Payment succeeded at the POS terminal. The fiscal receipt could NOT be issued - %s! Re-issue the receipt.", reason)
}

// cardRefund: POS refund only; no fiscal flow is defined for refunds.
func (o *Orchestrator) cardRefund(ctx context.Context, j *CardRefundJob) *Report {
	rep := newReport(false, true)

	if j.Amount <= 0 {
		return rep.fail("AMOUNT_REQUIRED_OR_INVALID")
	}

	term, err := o.Devices.CardTerminal(j.Dev)
	if err != nil {
		return rep.fail(err.Error())
	}

	posCtx, cancel := context.WithTimeout(ctx, posCeiling)
	result, err := term.Refund(posCtx, smartpay.RefundParams{
		Amount:       j.Amount,
		CurrencyName: j.Currency,
		UniqueID:     j.UniqueID,
		ExtraTags:    j.ExtraTags,
	})
	cancel()
	if err != nil {
		log.Printf("[agent] POS refund failed: %v", err)
		return rep.fail(err.Error())
	}
	if !result.Approved {
		return rep.fail(smartpay.DeclineMessage(result))
	}

	rep.POSOK = true
	rep.Result.POS = StepResult{
		OK:        true,
		Tags:      result.TagsASCII(),
		HostResp:  result.HostResp,
		ErrorCode: result.ErrorCode,
	}
	rep.Success = true
	return rep
}

// retryReceipt: re-emit a receipt for a payment that already succeeded.
// The register's pay mode comes from the stored payment method: cash stays
// cash, anything else was a card payment.
func (o *Orchestrator) retryReceipt(ctx context.Context, j *RetryReceiptJob) *Report {
	rep := newReport(true, false)

	dev, err := o.Devices.FiscalDevice(j.Dev)
	if err != nil {
		return rep.fail(err.Error())
	}

	payMode := "card"
	if strings.EqualFold(strings.TrimSpace(j.PaymentMethod), "cash") {
		payMode = "cash"
	}

	if err := o.fiscalChain(ctx, dev, o.receiptItem(j.Description, j.Amount), payMode, j.Amount); err != nil {
		log.Printf("[agent] receipt retry failed: %v", err)
		return rep.fail(err.Error())
	}

	rep.Success = true
	rep.FiscalOK = true
	rep.Result.Fiscal.OK = true
	return rep
}
