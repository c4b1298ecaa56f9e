package response

import (
	"encoding/json"
	"net/http"
)

// RequestIDHeader carries the request id that is echoed into every envelope
const RequestIDHeader = "X-Request-ID"

// Response is the JSON envelope of the panel API
type Response struct {
	Code      int    `json:"code"`
	Success   bool   `json:"success"`
	Message   string `json:"message,omitempty"`
	Error     string `json:"error,omitempty"`
	ErrorKind string `json:"error_kind,omitempty"`
	RequestID string `json:"request_id,omitempty"`
	Data      any    `json:"data,omitempty"`
}

// WriteJSON encodes v with the given status code
func WriteJSON(w http.ResponseWriter, statusCode int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(v)
}

// Text writes a plain text body, used for gateway acknowledgements
func Text(w http.ResponseWriter, statusCode int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(statusCode)
	_, _ = w.Write([]byte(body))
}

// Success writes a successful envelope around data
func Success(w http.ResponseWriter, statusCode int, message string, data any) {
	_ = WriteJSON(w, statusCode, Response{
		Code:      statusCode,
		Success:   true,
		Message:   message,
		RequestID: w.Header().Get(RequestIDHeader),
		Data:      data,
	})
}

// Error writes a failed envelope. err, when set, becomes the error text.
func Error(w http.ResponseWriter, statusCode int, message string, err error) {
	Fail(w, statusCode, message, "", err)
}

// Fail is Error with a machine readable kind, such as a gateway error kind
func Fail(w http.ResponseWriter, statusCode int, message, kind string, err error) {
	resp := Response{
		Code:      statusCode,
		Message:   message,
		ErrorKind: kind,
		RequestID: w.Header().Get(RequestIDHeader),
	}
	if err != nil {
		resp.Error = err.Error()
	}
	_ = WriteJSON(w, statusCode, resp)
}
