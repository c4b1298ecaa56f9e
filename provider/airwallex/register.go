package airwallex

import "github.com/onwards-ai/xboard-payments/provider"

// Register Airwallex provider with the gateway registry
func init() {
	provider.Register(provider.Airwallex, NewProvider)
}
