// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Pris-Com

package agent

// StepResult is the per-device half of a report.
type StepResult struct {
	OK        bool              `json:"ok"`
	Tags      map[string]string `json:"tags,omitempty"`
	HostResp  string            `json:"hostResp,omitempty"`
	ErrorCode string            `json:"errorCode,omitempty"`
}

// Report is the sole output contract back to the booking backend. One
// report is emitted per job, exactly once, regardless of how far processing
// got.
type Report struct {
	Success      bool    `json:"success"`
	POSOK        bool    `json:"pos_ok"`
	FiscalOK     bool    `json:"fiscal_ok"`
	ErrorMessage *string `json:"error_message"`
	Result       struct {
		POS    StepResult `json:"pos"`
		Fiscal StepResult `json:"fiscal"`
	} `json:"result"`
}

// newReport pre-sets the sub-flags for flows where one device is not
// involved: an untouched device counts as OK so its flag never masks the
// other device's outcome.
func newReport(posOK, fiscalOK bool) *Report {
	r := &Report{POSOK: posOK, FiscalOK: fiscalOK}
	r.Result.POS.OK = posOK
	r.Result.Fiscal.OK = fiscalOK
	return r
}

// fail records the terminal error message on the report.
func (r *Report) fail(msg string) *Report {
	r.Success = false
	r.ErrorMessage = &msg
	return r
}
