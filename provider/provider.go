package provider

import (
	"context"
	"net/http"
	"net/url"
	"strings"
)

// InstructionType tells the caller what to do with a PaymentInstruction
type InstructionType int

const (
	// InstructionQRCode means Data holds an image or code the payer scans
	InstructionQRCode InstructionType = 0
	// InstructionRedirect means Data holds a hosted checkout URL
	InstructionRedirect InstructionType = 1
	// InstructionCompleted means the payment finished synchronously and Data is true
	InstructionCompleted InstructionType = -1
)

// State is a step of the reconciliation lifecycle of a single payment attempt
type State string

const (
	StateCreated          State = "created"
	StateInitiated        State = "initiated"
	StateCallbackReceived State = "callback_received"
	StateVerified         State = "verified"
	StateRejected         State = "rejected"
)

// Config is the flat provider configuration. Adapters keep their own copy.
type Config map[string]string

// Get returns the trimmed value for key, or fallback when the key is absent or blank
func (c Config) Get(key, fallback string) string {
	if v := strings.TrimSpace(c[key]); v != "" {
		return v
	}
	return fallback
}

// Clone returns a copy that is safe to keep after the caller mutates the original
func (c Config) Clone() Config {
	out := make(Config, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// FormField describes one configuration key for config UIs and validation
type FormField struct {
	Key         string `json:"key"`
	Label       string `json:"label"`
	Description string `json:"description"`
	Type        string `json:"type"` // "input", "select", "secret"
	Default     string `json:"default,omitempty"`
	Required    bool   `json:"required"`
	Pattern     string `json:"pattern,omitempty"`
	MinLength   int    `json:"minLength,omitempty"`
	MaxLength   int    `json:"maxLength,omitempty"`
}

// FormKeys returns the keys of fields in order
func FormKeys(fields []FormField) []string {
	keys := make([]string, 0, len(fields))
	for _, f := range fields {
		keys = append(keys, f.Key)
	}
	return keys
}

// OrderRequest is a single payment attempt handed to Pay
type OrderRequest struct {
	TradeNo     string            `json:"trade_no" validate:"required,max=64"`
	TotalAmount int64             `json:"total_amount" validate:"required,gt=0"`
	Currency    string            `json:"currency,omitempty" validate:"omitempty,alpha,min=3,max=3"`
	ReturnURL   string            `json:"return_url" validate:"required,url"`
	NotifyURL   string            `json:"notify_url" validate:"required,url"`
	UserID      string            `json:"user_id"`
	ClientIP    string            `json:"client_ip,omitempty" validate:"omitempty,ip"`
	Extra       map[string]string `json:"extra,omitempty"`
}

// PaymentInstruction is what Pay returns on success
type PaymentInstruction struct {
	Type InstructionType `json:"type"`
	Data any             `json:"data"`
}

// RedirectInstruction builds a browser redirect instruction
func RedirectInstruction(link string) *PaymentInstruction {
	return &PaymentInstruction{Type: InstructionRedirect, Data: link}
}

// QRCodeInstruction builds a scan-code instruction
func QRCodeInstruction(link string) *PaymentInstruction {
	return &PaymentInstruction{Type: InstructionQRCode, Data: link}
}

// CompletedInstruction reports a payment that finished synchronously
func CompletedInstruction() *PaymentInstruction {
	return &PaymentInstruction{Type: InstructionCompleted, Data: true}
}

// WebhookEvent carries an inbound callback. Body is the unparsed transport body.
type WebhookEvent struct {
	Body   []byte
	Header http.Header
	Params map[string]string
}

// NewWebhookEvent builds an event from a raw body, headers and already decoded parameters
func NewWebhookEvent(body []byte, header http.Header, params url.Values) WebhookEvent {
	flat := make(map[string]string, len(params))
	for k, v := range params {
		if len(v) > 0 {
			flat[k] = v[0]
		}
	}
	if header == nil {
		header = http.Header{}
	}
	return WebhookEvent{Body: body, Header: header, Params: flat}
}

// Param returns a decoded parameter
func (e WebhookEvent) Param(key string) string {
	return e.Params[key]
}

// ReconciliationResult is the verified pair produced by Notify
type ReconciliationResult struct {
	TradeNo    string `json:"trade_no"`
	CallbackNo string `json:"callback_no"`
}

// Gateway is implemented by every payment provider adapter
type Gateway interface {
	// Name returns the provider tag
	Name() Name

	// Form returns the ordered configuration schema
	Form() []FormField

	// Pay starts a payment and returns what the payer must do next
	Pay(ctx context.Context, order OrderRequest) (*PaymentInstruction, error)

	// Notify verifies an inbound callback. It returns false when the callback
	// cannot be trusted or does not represent a completed payment.
	Notify(ctx context.Context, event WebhookEvent) (ReconciliationResult, bool)
}

// Factory creates a gateway for a configuration snapshot
type Factory func(conf Config, opts ...Option) Gateway

// Options are construction options shared by all adapters
type Options struct {
	HTTPClient *http.Client
}

// Option customizes adapter construction
type Option func(*Options)

// WithHTTPClient overrides the HTTP client used for outbound calls
func WithHTTPClient(client *http.Client) Option {
	return func(o *Options) {
		o.HTTPClient = client
	}
}

// ApplyOptions folds opts into an Options value
func ApplyOptions(opts ...Option) Options {
	var o Options
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}
