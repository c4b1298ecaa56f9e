package hitpay

import "github.com/onwards-ai/xboard-payments/provider"

// Register HitPay provider with the gateway registry
func init() {
	provider.Register(provider.HitPay, NewProvider)
}
