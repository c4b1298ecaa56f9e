package omise

import "github.com/onwards-ai/xboard-payments/provider"

// Register Omise provider with the gateway registry
func init() {
	provider.Register(provider.Omise, NewProvider)
}
