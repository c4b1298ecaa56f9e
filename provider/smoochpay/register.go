package smoochpay

import "github.com/onwards-ai/xboard-payments/provider"

// Register SmoochPay provider with the gateway registry
func init() {
	provider.Register(provider.SmoochPay, NewProvider)
}
