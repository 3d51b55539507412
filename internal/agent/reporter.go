// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Pris-Com

package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Reporter delivers job reports to the booking backend. Delivery is
// attempted at most once per job completion; a failed delivery is the
// caller's to log, never to retry in a loop.
type Reporter struct {
	BackendURL string
	Key        string
	Client     *http.Client
}

// NewReporter builds a reporter with a bounded request timeout.
func NewReporter(backendURL, key string) *Reporter {
	return &Reporter{
		BackendURL: backendURL,
		Key:        key,
		Client:     &http.Client{Timeout: 15 * time.Second},
	}
}

// Send posts one report for one job.
func (r *Reporter) Send(ctx context.Context, jobID int64, rep *Report) error {
	body, err := json.Marshal(rep)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}

	url := fmt.Sprintf("%s/api/agent/jobs/%d/report", r.BackendURL, jobID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if r.Key != "" {
		req.Header.Set("X-Agent-Key", r.Key)
	}

	resp, err := r.Client.Do(req)
	if err != nil {
		return fmt.Errorf("report job #%d: %w", jobID, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("report job #%d: backend answered %d", jobID, resp.StatusCode)
	}
	return nil
}
