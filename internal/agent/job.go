// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Pris-Com

// Package agent runs the transaction orchestrator: it pulls payment/receipt
// jobs from the booking backend, drives the POS terminal and fiscal register
// through their codecs, and reports exactly one outcome per job.
package agent

import (
	"encoding/json"

	"github.com/priscom/paybridge/internal/bridge"
	"github.com/priscom/paybridge/pkg/smartpay"
)

// Job types understood by the orchestrator.
const (
	JobCashReceiptOnly = "cash_receipt_only"
	JobCardAndReceipt  = "card_and_receipt"
	JobCardRefund      = "card_refund"
	JobRetryReceipt    = "retry_receipt"
)

// Job is one unit of work from the backend queue. The payload is decoded
// per job type; the orchestrator treats the job as read-only input.
type Job struct {
	ID      int64           `json:"id"`
	Type    string          `json:"job_type"`
	Payload json.RawMessage `json:"payload"`
}

// rawPayload is the loose wire shape of every payload variant. Historical
// producers disagree on the unique-id field name, so three spellings are
// accepted in priority order.
type rawPayload struct {
	Amount        bridge.Flex         `json:"amount"`
	Description   string              `json:"description"`
	Currency      string              `json:"currency"`
	Dev           string              `json:"dev"`
	POSUniqueID   bridge.Flex         `json:"pos_unique_id"`
	UniqueID      bridge.Flex         `json:"unique_id"`
	PaymentID     bridge.Flex         `json:"payment_id"`
	PaymentMethod string              `json:"payment_method"`
	ExtraTags     []smartpay.ExtraTag `json:"extra_tags"`
}

func (p *rawPayload) uniqueID() string {
	for _, v := range []string{p.POSUniqueID.String(), p.UniqueID.String(), p.PaymentID.String()} {
		if v != "" {
			return v
		}
	}
	return ""
}

// CashReceiptJob carries the fields of a cash_receipt_only job.
type CashReceiptJob struct {
	Amount      string
	Description string
	Dev         string
}

// CardSaleJob carries the fields of a card_and_receipt job.
type CardSaleJob struct {
	Amount      float64
	Description string
	Currency    string
	Dev         string
	UniqueID    string
}

// CardRefundJob carries the fields of a card_refund job.
type CardRefundJob struct {
	Amount    float64
	Currency  string
	Dev       string
	UniqueID  string
	ExtraTags []smartpay.ExtraTag
}

// RetryReceiptJob carries the fields of a retry_receipt job: a receipt
// re-emission for a payment that already went through.
type RetryReceiptJob struct {
	Amount        string
	Description   string
	Dev           string
	PaymentMethod string
}

// decodePayload parses the raw payload once; missing bodies decode to the
// zero value so every variant still gets its defaults applied downstream.
func (j *Job) decodePayload() (*rawPayload, error) {
	var p rawPayload
	if len(j.Payload) == 0 {
		return &p, nil
	}
	if err := json.Unmarshal(j.Payload, &p); err != nil {
		return nil, err
	}
	return &p, nil
}
