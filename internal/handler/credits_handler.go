package handler

import (
	"encoding/json"
	"fmt"
	"net/http"

	"fsanano/answer-book/internal/metrics"
	"fsanano/answer-book/internal/service/oracle"

	"go.uber.org/zap"
)

type InitRequest struct {
	UserID string `json:"user_id"`
}

type InitResponse struct {
	Credits int `json:"credits"`
}

type ChatRequest struct {
	UserID   *string `json:"user_id"`
	Question *string `json:"question"`
}

type ChatResponse struct {
	Answer           string `json:"answer"`
	RemainingCredits int    `json:"remaining_credits"`
}

type PayRequest struct {
	UserID *string  `json:"user_id"`
	Amount *float64 `json:"amount"`
}

type PayResponse struct {
	Status     string `json:"status"`
	Msg        string `json:"msg"`
	NewBalance int    `json:"new_balance"`
}

type ErrorResponse struct {
	Detail string `json:"detail"`
}

func (h *Handler) InitUser(w http.ResponseWriter, r *http.Request) {
	var req InitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	credits, err := h.balances.ReadBalance(r.Context(), req.UserID)
	if err != nil {
		h.internalError(w, r, "init", err)
		return
	}

	writeJSON(w, http.StatusOK, InitResponse{Credits: credits})
}

// Chat spends one credit, then asks the oracle. The credit is kept whatever the oracle
// returns.
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == nil || req.Question == nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ok, _, err := h.balances.SpendOneCredit(r.Context(), *req.UserID)
	if err != nil {
		h.internalError(w, r, "chat", err)
		return
	}
	if !ok {
		writeError(w, http.StatusPaymentRequired, "insufficient balance")
		return
	}

	res := h.oracle.Ask(r.Context(), *req.Question)
	metrics.OracleOutcome(res.Kind.String())
	if res.Kind != oracle.Success {
		h.log.Warn("oracle unavailable, using fallback answer",
			zap.String("user_id", *req.UserID),
			zap.Stringer("outcome", res.Kind),
			zap.Int("status_code", res.StatusCode),
			zap.Error(res.Err),
		)
	}

	// Re-read rather than trusting the pre-debit balance
	remaining, err := h.balances.ReadBalance(r.Context(), *req.UserID)
	if err != nil {
		h.internalError(w, r, "chat", err)
		return
	}

	writeJSON(w, http.StatusOK, ChatResponse{Answer: res.Answer(), RemainingCredits: remaining})
}

// Pay accepts any payment on trust: the order is recorded and credits granted without
// verification.
func (h *Handler) Pay(w http.ResponseWriter, r *http.Request) {
	var req PayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == nil || req.Amount == nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	res, err := h.balances.TrustPay(r.Context(), *req.UserID, *req.Amount)
	if err != nil {
		h.internalError(w, r, "pay", err)
		return
	}

	h.log.Info("trust payment accepted",
		zap.String("user_id", *req.UserID),
		zap.String("order_id", res.OrderID),
		zap.Float64("amount", *req.Amount),
		zap.Int("points", res.PointsGranted),
	)

	writeJSON(w, http.StatusOK, PayResponse{
		Status:     "success",
		Msg:        fmt.Sprintf("Thank you for your trust! %d credits added.", res.PointsGranted),
		NewBalance: res.NewBalance,
	})
}

func (h *Handler) internalError(w http.ResponseWriter, r *http.Request, op string, err error) {
	h.log.Error("request failed",
		zap.String("op", op),
		zap.String("path", r.URL.Path),
		zap.Error(err),
	)
	writeError(w, http.StatusInternalServerError, "internal server error")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, ErrorResponse{Detail: detail})
}
