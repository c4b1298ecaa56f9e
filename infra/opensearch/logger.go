package opensearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"
)

// PaymentLog is one audited pay or notify attempt
type PaymentLog struct {
	Timestamp  time.Time `json:"timestamp"`
	Provider   string    `json:"provider"`
	Operation  string    `json:"operation"`
	RequestID  string    `json:"request_id"`
	TradeNo    string    `json:"trade_no,omitempty"`
	CallbackNo string    `json:"callback_no,omitempty"`
	Amount     int64     `json:"amount,omitempty"`
	Currency   string    `json:"currency,omitempty"`
	State      string    `json:"state"`
	ErrorKind  string    `json:"error_kind,omitempty"`
	Error      string    `json:"error,omitempty"`
	DurationMs int64     `json:"duration_ms"`
	ClientIP   string    `json:"client_ip,omitempty"`
}

// Logger handles OpenSearch logging operations
type Logger struct {
	client *Client
}

// NewLogger creates a new OpenSearch logger
func NewLogger(client *Client) *Logger {
	return &Logger{
		client: client,
	}
}

// LogPaymentRequest indexes one payment attempt
func (l *Logger) LogPaymentRequest(ctx context.Context, log PaymentLog) error {
	if !l.client.IsEnabled() {
		return nil
	}

	if log.Timestamp.IsZero() {
		log.Timestamp = time.Now().UTC()
	}
	if log.RequestID == "" {
		log.RequestID = uuid.New().String()
	}
	log.Error = SanitizeForLog(log.Error)

	return l.index(ctx, l.client.GetLogIndexName(log.Provider), log)
}

// LogSystemEvent mirrors a system log entry
func (l *Logger) LogSystemEvent(ctx context.Context, log any) error {
	if !l.client.IsEnabled() {
		return nil
	}
	return l.index(ctx, l.client.GetSystemIndexName(), log)
}

func (l *Logger) index(ctx context.Context, indexName string, doc any) error {
	logJSON, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal log: %w", err)
	}

	req := opensearchapi.IndexRequest{
		Index: indexName,
		Body:  bytes.NewReader(logJSON),
	}

	res, err := req.Do(ctx, l.client.GetClient())
	if err != nil {
		return fmt.Errorf("failed to index log: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("opensearch error: %s", res.String())
	}
	return nil
}

// SearchLogs searches the audit index of a provider, newest first
func (l *Logger) SearchLogs(ctx context.Context, provider string, query map[string]any) ([]PaymentLog, error) {
	if !l.client.IsEnabled() {
		return nil, fmt.Errorf("logging is disabled")
	}

	searchQuery := map[string]any{
		"query": query,
		"sort": []map[string]any{
			{"timestamp": map[string]string{"order": "desc"}},
		},
		"size": 100,
	}

	queryJSON, err := json.Marshal(searchQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal query: %w", err)
	}

	req := opensearchapi.SearchRequest{
		Index: []string{l.client.GetLogIndexName(provider)},
		Body:  bytes.NewReader(queryJSON),
	}

	res, err := req.Do(ctx, l.client.GetClient())
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("opensearch search error: %s", res.String())
	}

	var searchResult struct {
		Hits struct {
			Hits []struct {
				Source PaymentLog `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&searchResult); err != nil {
		return nil, fmt.Errorf("failed to decode search results: %w", err)
	}

	logs := make([]PaymentLog, len(searchResult.Hits.Hits))
	for i, hit := range searchResult.Hits.Hits {
		logs[i] = hit.Source
	}
	return logs, nil
}

// GetTradeLogs returns every audited attempt for a trade number
func (l *Logger) GetTradeLogs(ctx context.Context, provider, tradeNo string) ([]PaymentLog, error) {
	query := map[string]any{
		"term": map[string]any{
			"trade_no": tradeNo,
		},
	}
	return l.SearchLogs(ctx, provider, query)
}

var sensitivePatterns = func() []*regexp.Regexp {
	fields := []string{
		"api_key", "apiKey", "secret_key", "secretKey", "client_secret", "password", "token",
		"access_token", "authorization", "x-api-key", "stripe_token", "sign", "hmac", "salt",
	}
	var out []*regexp.Regexp
	for _, field := range fields {
		out = append(out,
			regexp.MustCompile(fmt.Sprintf(`(?i)"%s"\s*:\s*"[^"]*"`, regexp.QuoteMeta(field))),
			regexp.MustCompile(fmt.Sprintf(`(?i)\b%s=[^&\s]+`, regexp.QuoteMeta(field))),
		)
	}
	return out
}()

// SanitizeForLog redacts credentials and signatures from free text
func SanitizeForLog(data string) string {
	result := data
	for _, re := range sensitivePatterns {
		result = re.ReplaceAllStringFunc(result, func(match string) string {
			if i := strings.IndexAny(match, ":="); i >= 0 {
				key := match[:i]
				if match[i] == ':' {
					return key + `:"***REDACTED***"`
				}
				return key + "=***REDACTED***"
			}
			return "***REDACTED***"
		})
	}
	return result
}
