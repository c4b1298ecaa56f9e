package paypal

import "github.com/onwards-ai/xboard-payments/provider"

// Register PayPal provider with the gateway registry
func init() {
	provider.Register(provider.PayPal, NewProvider)
}
