package yibaopay

import "github.com/onwards-ai/xboard-payments/provider"

// Register both YibaoPay variants with the gateway registry
func init() {
	provider.Register(provider.YibaoPayV1, NewV1Provider)
	provider.Register(provider.YibaoPayV2, NewV2Provider)
}
