// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Pris-Com

package bridge

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
)

// Flex is a JSON field that accepts either a number or a string. The web
// frontends feeding this bridge are inconsistent: amounts arrive as 15.5
// from one page and "15.50" from another.
type Flex string

func (f *Flex) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*f = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = Flex(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = Flex(n.String())
	return nil
}

// String returns the raw field text.
func (f Flex) String() string { return string(f) }

// Float parses the field as a number; malformed input yields 0.
func (f Flex) Float() float64 {
	n, err := strconv.ParseFloat(string(f), 64)
	if err != nil {
		return 0
	}
	return n
}

// writeJSON writes a JSON response body with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// decodeBody decodes a JSON request body into dst. An empty body is fine;
// every endpoint has usable defaults.
func decodeBody(r *http.Request, dst any) error {
	if r.Body == nil {
		return nil
	}
	err := json.NewDecoder(r.Body).Decode(dst)
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}
