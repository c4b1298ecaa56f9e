package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/onwards-ai/xboard-payments/infra/opensearch"
	"github.com/onwards-ai/xboard-payments/infra/response"
	"github.com/onwards-ai/xboard-payments/provider"
)

// LoggerInterface reads the payment audit log
type LoggerInterface interface {
	SearchLogs(ctx context.Context, provider string, query map[string]any) ([]opensearch.PaymentLog, error)
	GetTradeLogs(ctx context.Context, provider, tradeNo string) ([]opensearch.PaymentLog, error)
}

// LogsHandler serves audited pay and notify attempts
type LogsHandler struct {
	logger LoggerInterface
}

// NewLogsHandler creates a new logs handler. A nil logger answers 503.
func NewLogsHandler(logger LoggerInterface) *LogsHandler {
	return &LogsHandler{logger: logger}
}

// ListLogs returns the newest attempts of a provider.
// Query filters: trade_no, operation (pay|notify), state, error_kind.
func (h *LogsHandler) ListLogs(w http.ResponseWriter, r *http.Request) {
	if h.logger == nil {
		response.Error(w, http.StatusServiceUnavailable, "Audit logging is disabled", nil)
		return
	}

	name, err := provider.ParseName(chi.URLParam(r, "provider"))
	if err != nil {
		response.Error(w, http.StatusNotFound, "Unknown provider", err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	q := r.URL.Query()
	var logs []opensearch.PaymentLog
	if tradeNo := q.Get("trade_no"); tradeNo != "" && q.Get("operation") == "" && q.Get("state") == "" && q.Get("error_kind") == "" {
		logs, err = h.logger.GetTradeLogs(ctx, string(name), tradeNo)
	} else {
		logs, err = h.logger.SearchLogs(ctx, string(name), buildLogQuery(q.Get("trade_no"), q.Get("operation"), q.Get("state"), q.Get("error_kind")))
	}
	if err != nil {
		response.Error(w, http.StatusBadGateway, "Failed to search logs", err)
		return
	}

	response.Success(w, http.StatusOK, "Logs retrieved", map[string]any{
		"provider": name,
		"count":    len(logs),
		"logs":     logs,
	})
}

// LogSummary aggregates the newest audited attempts of a provider
type LogSummary struct {
	Provider       provider.Name  `json:"provider"`
	Hours          int            `json:"hours"`
	Sampled        int            `json:"sampled"`
	PayTotal       int            `json:"pay_total"`
	PayInitiated   int            `json:"pay_initiated"`
	NotifyTotal    int            `json:"notify_total"`
	NotifyVerified int            `json:"notify_verified"`
	AvgDurationMs  float64        `json:"avg_duration_ms"`
	ErrorKinds     map[string]int `json:"error_kinds"`
}

// GetSummary returns pay and notify outcome counts for the last hours (default 24, max 168)
func (h *LogsHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	if h.logger == nil {
		response.Error(w, http.StatusServiceUnavailable, "Audit logging is disabled", nil)
		return
	}

	name, err := provider.ParseName(chi.URLParam(r, "provider"))
	if err != nil {
		response.Error(w, http.StatusNotFound, "Unknown provider", err)
		return
	}

	hours := 24
	if hoursStr := r.URL.Query().Get("hours"); hoursStr != "" {
		if v, err := strconv.Atoi(hoursStr); err == nil && v > 0 && v <= 168 {
			hours = v
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	query := map[string]any{
		"range": map[string]any{
			"timestamp": map[string]any{"gte": time.Now().UTC().Add(-time.Duration(hours) * time.Hour).Format(time.RFC3339)},
		},
	}
	logs, err := h.logger.SearchLogs(ctx, string(name), query)
	if err != nil {
		response.Error(w, http.StatusBadGateway, "Failed to search logs", err)
		return
	}

	response.Success(w, http.StatusOK, "Summary retrieved", summarize(name, hours, logs))
}

func summarize(name provider.Name, hours int, logs []opensearch.PaymentLog) LogSummary {
	summary := LogSummary{
		Provider:   name,
		Hours:      hours,
		Sampled:    len(logs),
		ErrorKinds: map[string]int{},
	}

	var totalMs int64
	for _, l := range logs {
		totalMs += l.DurationMs
		switch l.Operation {
		case "pay":
			summary.PayTotal++
			if l.State == string(provider.StateInitiated) {
				summary.PayInitiated++
			}
		case "notify":
			summary.NotifyTotal++
			if l.State == string(provider.StateVerified) {
				summary.NotifyVerified++
			}
		}
		if l.ErrorKind != "" {
			summary.ErrorKinds[l.ErrorKind]++
		}
	}
	if len(logs) > 0 {
		summary.AvgDurationMs = float64(totalMs) / float64(len(logs))
	}
	return summary
}

// buildLogQuery turns the filters into an OpenSearch bool query, match_all when empty
func buildLogQuery(tradeNo, operation, state, errorKind string) map[string]any {
	filters := [][2]string{
		{"trade_no", tradeNo},
		{"operation", operation},
		{"state", state},
		{"error_kind", errorKind},
	}

	var must []map[string]any
	for _, f := range filters {
		if f[1] != "" {
			must = append(must, map[string]any{"term": map[string]any{f[0]: f[1]}})
		}
	}

	if len(must) == 0 {
		return map[string]any{"match_all": map[string]any{}}
	}
	return map[string]any{
		"bool": map[string]any{
			"must": must,
			"filter": []map[string]any{
				{"range": map[string]any{"timestamp": map[string]any{"gte": time.Now().UTC().Add(-30 * 24 * time.Hour).Format(time.RFC3339)}}},
			},
		},
	}
}
