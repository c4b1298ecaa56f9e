package stripecredit

import "github.com/onwards-ai/xboard-payments/provider"

// Register StripeCredit provider with the gateway registry
func init() {
	provider.Register(provider.StripeCredit, NewProvider)
}
