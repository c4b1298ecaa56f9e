package provider

import (
	"strings"

	"github.com/onwards-ai/xboard-payments/infra/logger"
)

// Reject logs why a callback was refused and returns the rejection
func Reject(name Name, reason string) (ReconciliationResult, bool) {
	logger.WithProvider(string(name)).AddField("reason", reason).Warn("notify rejected")
	return ReconciliationResult{}, false
}

// Accept returns the verified pair. A blank trade number is a reconciliation failure.
func Accept(name Name, tradeNo, callbackNo string) (ReconciliationResult, bool) {
	tradeNo = strings.TrimSpace(tradeNo)
	if tradeNo == "" {
		return Reject(name, "verified callback carries no trade number")
	}
	return ReconciliationResult{TradeNo: tradeNo, CallbackNo: strings.TrimSpace(callbackNo)}, true
}
