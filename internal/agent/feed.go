// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Pris-Com

package agent

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

// Feed events exchanged with the backend's agent socket.
const (
	evtJobNew     = "job:new"
	evtJobNone    = "job:none"
	evtWakeup     = "agent:wakeup"
	evtWelcome    = "agent:welcome"
	evtRequestJob = "agent:requestJob"
)

// envelope is the wire shape of every feed message.
type envelope struct {
	Event string `json:"event"`
	Job   *Job   `json:"job,omitempty"`
}

// reconnectDelay spaces reconnection attempts to the backend.
const reconnectDelay = 2 * time.Second

// Worker pulls jobs over the backend's websocket feed, runs them through
// the orchestrator one at a time, and reports every outcome. The backend
// enforces one active job per terminal; the worker enforces one job at a
// time on its side by processing inline on the read loop.
type Worker struct {
	BackendURL   string
	Key          string
	Orchestrator *Orchestrator
	Reporter     *Reporter
}

// Run keeps a feed session alive until the context is cancelled.
func (w *Worker) Run(ctx context.Context) {
	log.Printf("[agent] started, backend %s", w.BackendURL)
	for {
		if err := ctx.Err(); err != nil {
			return
		}
		if err := w.session(ctx); err != nil {
			log.Printf("[agent] feed session ended: %v", err)
		}
		select {
		case <-time.After(reconnectDelay):
		case <-ctx.Done():
			return
		}
	}
}

// wsURL derives the websocket endpoint from the backend's HTTP base URL.
func (w *Worker) wsURL() (string, error) {
	u, err := url.Parse(w.BackendURL)
	if err != nil {
		return "", fmt.Errorf("invalid backend URL: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported backend URL scheme %q", u.Scheme)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/agent/ws"
	q := u.Query()
	if w.Key != "" {
		q.Set("agent_key", w.Key)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// session runs one connect-read-process loop.
func (w *Worker) session(ctx context.Context) error {
	target, err := w.wsURL()
	if err != nil {
		return err
	}

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, target, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", target, err)
	}
	defer conn.Close()
	log.Printf("[agent] connected to job feed")

	// Close the socket when the context dies so ReadJSON unblocks.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	if err := conn.WriteJSON(envelope{Event: evtRequestJob}); err != nil {
		return err
	}

	for {
		var msg envelope
		if err := conn.ReadJSON(&msg); err != nil {
			return err
		}

		switch msg.Event {
		case evtJobNew:
			if msg.Job == nil || msg.Job.ID == 0 {
				continue
			}
			w.handle(ctx, msg.Job)
			if err := conn.WriteJSON(envelope{Event: evtRequestJob}); err != nil {
				return err
			}
		case evtWakeup:
			if err := conn.WriteJSON(envelope{Event: evtRequestJob}); err != nil {
				return err
			}
		case evtJobNone, evtWelcome:
			// nothing to do until the backend wakes us
		default:
			log.Printf("[agent] unknown feed event %q", msg.Event)
		}
	}
}

// handle runs one job and always sends exactly one report, even when the
// orchestrator panics on an unexpected device state.
func (w *Worker) handle(ctx context.Context, job *Job) {
	started := time.Now()
	rep := w.processSafely(ctx, job)

	if err := w.Reporter.Send(ctx, job.ID, rep); err != nil {
		log.Printf("[agent] report delivery for job #%d failed: %v", job.ID, err)
	} else {
		log.Printf("[agent] job #%d reported success=%v pos=%v fiscal=%v in %s",
			job.ID, rep.Success, rep.POSOK, rep.FiscalOK, time.Since(started).Round(time.Millisecond))
	}
}

// processSafely converts a panic inside job processing into a failure
// report, preserving the one-report-per-job invariant.
func (w *Worker) processSafely(ctx context.Context, job *Job) (rep *Report) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[agent] job #%d panicked: %v", job.ID, r)
			rep = newReport(false, false).fail(fmt.Sprintf("internal error: %v", r))
		}
	}()
	return w.Orchestrator.Process(ctx, job)
}
