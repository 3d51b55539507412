// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Pris-Com

package bridge

import (
	"errors"
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/priscom/paybridge/pkg/datecs"
	"github.com/priscom/paybridge/pkg/smartpay"
)

// Server is the bridge HTTP surface. Every response carries an "ok" flag;
// business declines, paper faults, unreachable devices and protocol
// timeouts each map to a distinct status code.
type Server struct {
	Router *mux.Router
	reg    *Registry
}

// NewServer builds the router over a device registry.
func NewServer(reg *Registry) *Server {
	s := &Server{Router: mux.NewRouter(), reg: reg}

	s.Router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	s.Router.HandleFunc("/fiscal/open", s.fiscalHandler(s.fiscalOpen)).Methods(http.MethodPost)
	s.Router.HandleFunc("/fiscal/sale", s.fiscalHandler(s.fiscalSale)).Methods(http.MethodPost)
	s.Router.HandleFunc("/fiscal/pay", s.fiscalHandler(s.fiscalPay)).Methods(http.MethodPost)
	s.Router.HandleFunc("/fiscal/close", s.fiscalHandler(s.fiscalClose)).Methods(http.MethodPost)
	s.Router.HandleFunc("/fiscal/cancel", s.fiscalHandler(s.fiscalCancel)).Methods(http.MethodPost)
	s.Router.HandleFunc("/fiscal/text", s.fiscalHandler(s.fiscalText)).Methods(http.MethodPost)
	s.Router.HandleFunc("/nf/open", s.fiscalHandler(s.nfOpen)).Methods(http.MethodPost)
	s.Router.HandleFunc("/nf/text", s.fiscalHandler(s.nfText)).Methods(http.MethodPost)
	s.Router.HandleFunc("/nf/close", s.fiscalHandler(s.nfClose)).Methods(http.MethodPost)

	s.Router.HandleFunc("/pos/ping", s.handlePosPing).Methods(http.MethodGet)
	s.Router.HandleFunc("/pos/info", s.handlePosInfo).Methods(http.MethodGet)
	s.Router.HandleFunc("/pos/sale", s.handlePosSale).Methods(http.MethodPost)
	s.Router.HandleFunc("/pos/refund", s.handlePosRefund).Methods(http.MethodPost)

	return s
}

// devLabel reads the device selector; "A" when absent.
func devLabel(r *http.Request) string {
	dev := r.URL.Query().Get("dev")
	if dev == "" {
		dev = "A"
	}
	return dev
}

// ── fiscal endpoints ─────────────────────────────────────────────

// fiscalOp is one register operation producing a data payload and optional
// extra response fields.
type fiscalOp func(reg *datecs.Register, r *http.Request) (map[string]any, error)

// fiscalHandler wraps the shared device lookup, connectivity check and
// error mapping around one register operation.
func (s *Server) fiscalHandler(op fiscalOp) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reg, err := s.reg.Fiscal(devLabel(r))
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "error": err.Error()})
			return
		}
		if !reg.Connected() {
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{
				"ok":      false,
				"error":   "FISCAL_NOT_CONNECTED",
				"message": "fiscal register " + reg.ID() + " is not connected (" + reg.Path() + ")",
			})
			return
		}
		body, err := op(reg, r)
		if err != nil {
			s.writeFiscalError(w, err)
			return
		}
		body["ok"] = true
		writeJSON(w, http.StatusOK, body)
	}
}

// writeFiscalError maps register failures onto the HTTP contract: paper
// faults are a 409 the operator can act on, everything else is a 400 with
// the device's own error text.
func (s *Server) writeFiscalError(w http.ResponseWriter, err error) {
	var paper *datecs.PaperError
	if errors.As(err, &paper) {
		writeJSON(w, http.StatusConflict, map[string]any{
			"ok":      false,
			"error":   "NO_PAPER",
			"message": paper.Message(),
			"code":    paper.Code,
		})
		return
	}
	writeJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "error": err.Error()})
}

func (s *Server) fiscalOpen(reg *datecs.Register, r *http.Request) (map[string]any, error) {
	var req struct {
		Operator Flex `json:"operator"`
		Password Flex `json:"password"`
		Till     Flex `json:"till"`
	}
	if err := decodeBody(r, &req); err != nil {
		return nil, err
	}
	sess := datecs.Session{
		Operator: orDefault(req.Operator.String(), "1"),
		Password: orDefault(req.Password.String(), "0000"),
		Till:     orDefault(req.Till.String(), "1"),
	}
	data, err := reg.OpenFiscal(r.Context(), sess)
	if err != nil {
		return nil, err
	}
	return map[string]any{"data": data}, nil
}

func (s *Server) fiscalSale(reg *datecs.Register, r *http.Request) (map[string]any, error) {
	var req struct {
		Name       string `json:"name"`
		Tax        Flex   `json:"tax"`
		Price      Flex   `json:"price"`
		Quantity   Flex   `json:"quantity"`
		Department Flex   `json:"department"`
		Unit       string `json:"unit"`
	}
	if err := decodeBody(r, &req); err != nil {
		return nil, err
	}
	data, err := reg.Sale(r.Context(), datecs.SaleItem{
		Name:       req.Name,
		TaxClass:   req.Tax.String(),
		Price:      req.Price.String(),
		Quantity:   req.Quantity.String(),
		Department: req.Department.String(),
		Unit:       orDefault(req.Unit, "BUC"),
	})
	if err != nil {
		return nil, err
	}
	return map[string]any{"data": data}, nil
}

func (s *Server) fiscalPay(reg *datecs.Register, r *http.Request) (map[string]any, error) {
	var req struct {
		Mode   string `json:"mode"`
		Amount Flex   `json:"amount"`
	}
	if err := decodeBody(r, &req); err != nil {
		return nil, err
	}
	res, err := reg.Pay(r.Context(), req.Mode, req.Amount.String())
	if err != nil {
		return nil, err
	}
	return map[string]any{"data": res.Data, "status": res.Status, "amount": res.Amount}, nil
}

func (s *Server) fiscalClose(reg *datecs.Register, r *http.Request) (map[string]any, error) {
	data, err := reg.CloseFiscal(r.Context())
	if err != nil {
		return nil, err
	}
	return map[string]any{"data": data}, nil
}

func (s *Server) fiscalCancel(reg *datecs.Register, r *http.Request) (map[string]any, error) {
	data, err := reg.Cancel(r.Context())
	if err != nil {
		return nil, err
	}
	return map[string]any{"data": data}, nil
}

func (s *Server) fiscalText(reg *datecs.Register, r *http.Request) (map[string]any, error) {
	var req struct {
		Text string `json:"text"`
	}
	if err := decodeBody(r, &req); err != nil {
		return nil, err
	}
	data, err := reg.PrintText(r.Context(), req.Text)
	if err != nil {
		return nil, err
	}
	return map[string]any{"data": data}, nil
}

func (s *Server) nfOpen(reg *datecs.Register, r *http.Request) (map[string]any, error) {
	data, err := reg.OpenNonFiscal(r.Context())
	if err != nil {
		return nil, err
	}
	return map[string]any{"data": data}, nil
}

func (s *Server) nfText(reg *datecs.Register, r *http.Request) (map[string]any, error) {
	var req struct {
		Text string `json:"text"`
	}
	if err := decodeBody(r, &req); err != nil {
		return nil, err
	}
	data, err := reg.NonFiscalText(r.Context(), req.Text)
	if err != nil {
		return nil, err
	}
	return map[string]any{"data": data}, nil
}

func (s *Server) nfClose(reg *datecs.Register, r *http.Request) (map[string]any, error) {
	data, err := reg.CloseNonFiscal(r.Context())
	if err != nil {
		return nil, err
	}
	return map[string]any{"data": data}, nil
}

// ── POS endpoints ────────────────────────────────────────────────

func (s *Server) handlePosPing(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "msg": "POS bridge running"})
}

func (s *Server) handlePosInfo(w http.ResponseWriter, r *http.Request) {
	term, err := s.reg.POS(devLabel(r))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "error": err.Error()})
		return
	}
	result, err := term.Info(r.Context())
	if err != nil {
		s.writePosError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":        result.Approved,
		"errorCode": result.ErrorCode,
		"tags":      result.TagsASCII(),
	})
}

func (s *Server) handlePosSale(w http.ResponseWriter, r *http.Request) {
	term, err := s.reg.POS(devLabel(r))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "error": err.Error()})
		return
	}
	var req struct {
		Amount   Flex   `json:"amount"`
		Currency string `json:"currency"`
		UniqueID Flex   `json:"uniqueId"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "error": err.Error()})
		return
	}
	amount := req.Amount.Float()
	if amount <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "error": "AMOUNT_REQUIRED_OR_INVALID"})
		return
	}
	log.Printf("/pos/sale dev=%s amount=%.2f", term.Label, amount)

	result, err := term.Sale(r.Context(), smartpay.SaleParams{
		Amount:       amount,
		CurrencyName: req.Currency,
		UniqueID:     req.UniqueID.String(),
	})
	if err != nil {
		s.writePosError(w, err)
		return
	}
	s.writePosResult(w, result)
}

func (s *Server) handlePosRefund(w http.ResponseWriter, r *http.Request) {
	term, err := s.reg.POS(devLabel(r))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "error": err.Error()})
		return
	}
	var req struct {
		Amount    Flex                `json:"amount"`
		Currency  string              `json:"currency"`
		UniqueID  Flex                `json:"uniqueId"`
		ExtraTags []smartpay.ExtraTag `json:"extra_tags"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "error": err.Error()})
		return
	}
	amount := req.Amount.Float()
	if amount <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "error": "AMOUNT_REQUIRED_OR_INVALID"})
		return
	}
	log.Printf("/pos/refund dev=%s amount=%.2f", term.Label, amount)

	result, err := term.Refund(r.Context(), smartpay.RefundParams{
		Amount:       amount,
		CurrencyName: req.Currency,
		UniqueID:     req.UniqueID.String(),
		ExtraTags:    req.ExtraTags,
	})
	if err != nil {
		s.writePosError(w, err)
		return
	}
	s.writePosResult(w, result)
}

// writePosResult renders an approval or a 409 decline with the derived
// reason.
func (s *Server) writePosResult(w http.ResponseWriter, result *smartpay.Result) {
	if !result.Approved {
		writeJSON(w, http.StatusConflict, map[string]any{
			"ok":        false,
			"error":     "POS_DECLINED",
			"message":   smartpay.DeclineMessage(result),
			"errorCode": result.ErrorCode,
			"hostResp":  result.HostResp,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":        true,
		"errorCode": result.ErrorCode,
		"hostResp":  result.HostResp,
		"tags":      result.TagsASCII(),
	})
}

// writePosError maps transport failures: unreachable terminal, transaction
// timeout, anything else.
func (s *Server) writePosError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, smartpay.ErrNotConnected):
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"ok": false, "error": "POS_NOT_CONNECTED", "message": "POS terminal is not connected",
		})
	case errors.Is(err, smartpay.ErrTimeout):
		writeJSON(w, http.StatusGatewayTimeout, map[string]any{
			"ok": false, "error": "POS_TIMEOUT", "message": "POS transaction timed out",
		})
	default:
		writeJSON(w, http.StatusInternalServerError, map[string]any{"ok": false, "error": err.Error()})
	}
}

// ── misc ─────────────────────────────────────────────────────────

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	devices := []map[string]any{}
	for _, label := range s.reg.FiscalLabels() {
		reg, _ := s.reg.Fiscal(label)
		devices = append(devices, map[string]any{
			"id":        label,
			"path":      reg.Path(),
			"connected": reg.Connected(),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "devices": devices})
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
