package cron

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kevin07696/subscription-engine/internal/domain/ports"
	"github.com/kevin07696/subscription-engine/pkg/resilience"
	"github.com/kevin07696/subscription-engine/pkg/shutdown"
	"github.com/kevin07696/subscription-engine/pkg/timeutil"
)

const maxBatchSize = 1000

// RenewalHandler handles cron job endpoints for subscription renewals
type RenewalHandler struct {
	processor        ports.RenewalProcessor
	tracker          *shutdown.InFlightTracker
	timeouts         *resilience.TimeoutConfig
	clock            timeutil.Clock
	logger           *zap.Logger
	cronSecret       string
	defaultBatchSize int
}

// NewRenewalHandler creates a new renewal cron handler
func NewRenewalHandler(
	processor ports.RenewalProcessor,
	tracker *shutdown.InFlightTracker,
	clock timeutil.Clock,
	logger *zap.Logger,
	cronSecret string,
	defaultBatchSize int,
) *RenewalHandler {
	return &RenewalHandler{
		processor:        processor,
		tracker:          tracker,
		timeouts:         resilience.DefaultTimeoutConfig(),
		clock:            clock,
		logger:           logger,
		cronSecret:       cronSecret,
		defaultBatchSize: defaultBatchSize,
	}
}

// ProcessRenewalsRequest represents the optional request body
type ProcessRenewalsRequest struct {
	BatchSize *int `json:"batch_size"`
}

// ProcessRenewalsResponse represents the response from one renewal batch
type ProcessRenewalsResponse struct {
	Success     bool                 `json:"success"`
	Processed   int                  `json:"processed"`
	Renewed     int                  `json:"renewed"`
	Grace       int                  `json:"grace"`
	PastDue     int                  `json:"past_due"`
	Completed   int                  `json:"completed"`
	Skipped     int                  `json:"skipped"`
	Failed      int                  `json:"failed"`
	Errors      []ports.RenewalError `json:"errors,omitempty"`
	ProcessedAt string               `json:"processed_at"`
}

// ProcessRenewals handles POST /cron/process-renewals
func (h *RenewalHandler) ProcessRenewals(w http.ResponseWriter, r *http.Request) {
	h.logger.Info("Renewal cron job triggered",
		zap.String("remote_addr", r.RemoteAddr),
		zap.String("user_agent", r.UserAgent()),
	)

	if r.Method != http.MethodPost {
		h.respondError(w, http.StatusMethodNotAllowed, "only POST method is allowed")
		return
	}

	if !h.authenticateRequest(r) {
		h.logger.Warn("Unauthorized cron request", zap.String("remote_addr", r.RemoteAddr))
		h.respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req ProcessRenewalsRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<16)).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	batchSize := h.defaultBatchSize
	if req.BatchSize != nil {
		if *req.BatchSize < 1 || *req.BatchSize > maxBatchSize {
			h.respondError(w, http.StatusBadRequest, "batch_size must be between 1 and 1000")
			return
		}
		batchSize = *req.BatchSize
	}

	if h.tracker != nil {
		if !h.tracker.Add() {
			h.respondError(w, http.StatusServiceUnavailable, "shutting down")
			return
		}
		defer h.tracker.Done()
	}

	// The batch outlives a caller that hangs up
	ctx, cancel := h.timeouts.CronContext(context.WithoutCancel(r.Context()))
	defer cancel()

	result, err := h.processor.ProcessDueRenewals(ctx, batchSize)
	if result == nil {
		h.logger.Error("Renewal batch failed", zap.Error(err))
		h.respondError(w, http.StatusInternalServerError, "renewal batch failed")
		return
	}

	resp := ProcessRenewalsResponse{
		Success:     err == nil && result.FailedCount == 0,
		Processed:   result.ProcessedCount,
		Renewed:     result.RenewedCount,
		Grace:       result.GraceCount,
		PastDue:     result.PastDueCount,
		Completed:   result.CompletedCount,
		Skipped:     result.SkippedCount,
		Failed:      result.FailedCount,
		Errors:      result.Errors,
		ProcessedAt: h.clock.Now().Format(time.RFC3339),
	}

	h.logger.Info("Renewal processing completed",
		zap.Int("processed", resp.Processed),
		zap.Int("renewed", resp.Renewed),
		zap.Int("failed", resp.Failed),
	)

	status := http.StatusOK
	if !resp.Success {
		status = http.StatusPartialContent
	}
	h.respondJSON(w, status, resp)
}

// authenticateRequest accepts the secret in X-Cron-Secret or as a bearer token
func (h *RenewalHandler) authenticateRequest(r *http.Request) bool {
	if h.cronSecret == "" {
		return false
	}

	provided := r.Header.Get("X-Cron-Secret")
	if provided == "" {
		provided = strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	}

	return subtle.ConstantTimeCompare([]byte(provided), []byte(h.cronSecret)) == 1
}

// HealthCheck handles GET /cron/health for monitoring
func (h *RenewalHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	body := map[string]interface{}{
		"status": "healthy",
		"time":   h.clock.Now().Format(time.RFC3339),
	}
	if h.tracker != nil {
		body["running"] = h.tracker.Running()
		if h.tracker.IsShuttingDown() {
			body["status"] = "draining"
			h.respondJSON(w, http.StatusServiceUnavailable, body)
			return
		}
	}
	h.respondJSON(w, http.StatusOK, body)
}

func (h *RenewalHandler) respondError(w http.ResponseWriter, statusCode int, message string) {
	h.respondJSON(w, statusCode, map[string]interface{}{
		"success": false,
		"error":   message,
	})
}

func (h *RenewalHandler) respondJSON(w http.ResponseWriter, statusCode int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}
