package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strconv"

	"github.com/yotlabs/hubclient/service/db"
)

const (
	maxAddressLength = 100 // Solana addresses are 44 chars, give buffer
	defaultListLimit = 50
	maxListLimit     = 1000
)

// Valid Solana address characters: base58 (no 0, O, I, l)
var validAddressRegex = regexp.MustCompile(`^[1-9A-HJ-NP-Za-km-z]+$`)

// Store defines the audit store operations the handlers need.
type Store interface {
	GetSubmission(ctx context.Context, signature string) (*db.Submission, error)
	ListSubmissionsByWallet(ctx context.Context, wallet string, limit int32) ([]*db.Submission, error)
	ListRefundsByRecipient(ctx context.Context, recipient string, limit int32) ([]*db.RefundRecord, error)
	SumRefundsByRecipient(ctx context.Context, recipient string) (int64, error)
}

// handleGetSubmission returns a handler that retrieves one submission record.
// GET /api/v1/submissions/{signature}
func handleGetSubmission(store Store, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		signature := r.PathValue("signature")
		if err := validateAddress(signature); err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}

		sub, err := store.GetSubmission(r.Context(), signature)
		if err != nil {
			if errors.Is(err, db.ErrNotFound) {
				writeError(w, "submission not found", http.StatusNotFound)
				return
			}
			logger.Error("failed to get submission", "signature", signature, "error", err)
			writeError(w, "internal server error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, sub, http.StatusOK)
	})
}

// handleListSubmissions returns a handler that lists a wallet's submissions,
// newest first.
// GET /api/v1/wallets/{wallet}/submissions?limit={n}
func handleListSubmissions(store Store, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		wallet := r.PathValue("wallet")
		if err := validateAddress(wallet); err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}
		limit, err := limitParam(r)
		if err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}

		subs, err := store.ListSubmissionsByWallet(r.Context(), wallet, limit)
		if err != nil {
			logger.Error("failed to list submissions", "wallet", wallet, "error", err)
			writeError(w, "internal server error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, map[string]interface{}{
			"wallet":      wallet,
			"submissions": subs,
		}, http.StatusOK)
	})
}

// handleListRefunds returns a handler that lists refunds issued to a wallet
// along with the running total.
// GET /api/v1/wallets/{wallet}/refunds?limit={n}
func handleListRefunds(store Store, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		wallet := r.PathValue("wallet")
		if err := validateAddress(wallet); err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}
		limit, err := limitParam(r)
		if err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}

		refunds, err := store.ListRefundsByRecipient(r.Context(), wallet, limit)
		if err != nil {
			logger.Error("failed to list refunds", "wallet", wallet, "error", err)
			writeError(w, "internal server error", http.StatusInternalServerError)
			return
		}
		total, err := store.SumRefundsByRecipient(r.Context(), wallet)
		if err != nil {
			logger.Error("failed to sum refunds", "wallet", wallet, "error", err)
			writeError(w, "internal server error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, map[string]interface{}{
			"wallet":         wallet,
			"refunds":        refunds,
			"total_lamports": total,
		}, http.StatusOK)
	})
}

// validateAddress performs a cheap format check before hitting the store.
func validateAddress(address string) error {
	if address == "" {
		return fmt.Errorf("address is required")
	}
	if len(address) > maxAddressLength {
		return fmt.Errorf("address too long")
	}
	if !validAddressRegex.MatchString(address) {
		return fmt.Errorf("address contains invalid characters")
	}
	return nil
}

func limitParam(r *http.Request) (int32, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return defaultListLimit, nil
	}
	n, err := strconv.ParseInt(raw, 10, 32)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid limit %q", raw)
	}
	if n > maxListLimit {
		n = maxListLimit
	}
	return int32(n), nil
}

func writeJSON(w http.ResponseWriter, v interface{}, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, msg string, status int) {
	writeJSON(w, map[string]string{"error": msg}, status)
}
