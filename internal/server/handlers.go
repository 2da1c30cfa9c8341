package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/jwoolab/depositwatch/internal/callback"
	"github.com/jwoolab/depositwatch/internal/ledger"
	"github.com/jwoolab/depositwatch/internal/model"
	"github.com/jwoolab/depositwatch/internal/relay"
)

// Handlers groups all HTTP handler methods and their dependencies.
type Handlers struct {
	runner   ChargeRunner
	ledger   ledger.Ledger
	notifier *callback.Notifier
	logger   *slog.Logger
}

// chargeCheckRequest is the inbound charge-check body posted by the
// owning platform.
type chargeCheckRequest struct {
	Time        int64  `json:"time"`
	Pushbullet  string `json:"pushbullet"`
	Amount      int    `json:"amount"`
	Name        string `json:"name"`
	UserID      int64  `json:"userId"`
	ChargeLogID int64  `json:"chargeLogId"`
}

// chargeCheckResponse is the synchronous reply.
type chargeCheckResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Amount  int    `json:"amount,omitempty"`
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

func writeFailure(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, chargeCheckResponse{Success: false, Message: msg})
}

// --- CheckCharge ---

// CheckCharge accepts one expected charge and blocks until its run is
// terminal, then reports the outcome. The completion callback fires
// whenever both correlation ids were supplied, success or failure.
func (h *Handlers) CheckCharge(w http.ResponseWriter, r *http.Request) {
	var in chargeCheckRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeFailure(w, http.StatusBadRequest, "잘못된 요청 형식")
		return
	}

	if in.Amount <= 0 || in.Name == "" || in.Time <= 0 {
		writeFailure(w, http.StatusBadRequest, "필수 정보가 누락되었습니다")
		return
	}

	// No subscriber token at all means this deployment cannot watch the
	// stream; the platform falls back to manual processing.
	if in.Pushbullet == "" {
		writeJSON(w, http.StatusOK, chargeCheckResponse{
			Success: false,
			Message: "수동 처리 필요",
			Amount:  in.Amount,
		})
		return
	}

	if err := relay.ValidateToken(in.Pushbullet); err != nil {
		writeFailure(w, http.StatusBadRequest, "잘못된 수신 토큰")
		return
	}

	req := model.ChargeRequest{
		Amount:           in.Amount,
		PayerName:        in.Name,
		RequestedTime:    in.Time,
		SubscriberToken:  in.Pushbullet,
		ExternalUserID:   in.UserID,
		ExternalChargeID: in.ChargeLogID,
	}

	outcome := h.runner.Run(r.Context(), req)

	if req.HasCorrelation() {
		// Best-effort, decoupled from the response and its context.
		go h.notifier.Notify(context.Background(), req.ExternalUserID, req.ExternalChargeID, outcome.Amount, outcome.Success)
	}

	writeJSON(w, http.StatusOK, chargeCheckResponse{
		Success: outcome.Success,
		Message: outcome.Message,
		Amount:  outcome.Amount,
	})
}

// --- ListCharges ---

// ListCharges returns the most recent confirmed charges.
func (h *Handlers) ListCharges(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if s := r.URL.Query().Get("limit"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 && v <= 500 {
			limit = v
		}
	}

	recs, err := h.ledger.Recent(r.Context(), limit)
	if err != nil {
		h.logger.Error("list charges", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "storage unavailable"})
		return
	}

	type chargeView struct {
		Time      int64  `json:"time"`
		Amount    int    `json:"amount"`
		Name      string `json:"name"`
		Device    string `json:"device"`
		Confirmed bool   `json:"confirmed"`
	}

	out := make([]chargeView, 0, len(recs))
	for _, rec := range recs {
		out = append(out, chargeView{
			Time:      rec.Time,
			Amount:    rec.Amount,
			Name:      rec.PayerName,
			Device:    rec.Device,
			Confirmed: rec.Confirmed,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{"charges": out})
}

// --- Health ---

// Health reports process and storage status.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.ledger.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "degraded",
			"error":  err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
