package provider

import (
	"fmt"
	"sync"
)

// Name is the closed set of supported providers
type Name string

const (
	Airwallex    Name = "airwallex"
	HitPay       Name = "hitpay"
	Omise        Name = "omise"
	PayPal       Name = "paypal"
	SmoochPay    Name = "smoochpay"
	StripeCredit Name = "stripe_credit"
	YibaoPayV1   Name = "yibaopay"
	YibaoPayV2   Name = "yibaopay_v2"
)

var knownNames = []Name{Airwallex, HitPay, Omise, PayPal, SmoochPay, StripeCredit, YibaoPayV1, YibaoPayV2}

// Names returns every supported provider in a stable order
func Names() []Name {
	out := make([]Name, len(knownNames))
	copy(out, knownNames)
	return out
}

// ParseName maps a string onto a supported provider
func ParseName(s string) (Name, error) {
	for _, n := range knownNames {
		if string(n) == s {
			return n, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownProvider, s)
}

// Valid reports whether n is a supported provider
func (n Name) Valid() bool {
	_, err := ParseName(string(n))
	return err == nil
}

// ProviderRegistry maps provider names to adapter factories
type ProviderRegistry struct {
	providers map[Name]Factory
	mu        sync.RWMutex
}

// NewProviderRegistry creates a new provider registry
func NewProviderRegistry() *ProviderRegistry {
	return &ProviderRegistry{
		providers: make(map[Name]Factory),
	}
}

// Register adds a factory. Unknown names are a programming error and panic.
func (r *ProviderRegistry) Register(name Name, factory Factory) {
	if !name.Valid() {
		panic(fmt.Sprintf("provider: cannot register unknown provider %q", name))
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[name] = factory
}

// Get retrieves a payment provider factory by name
func (r *ProviderRegistry) Get(name Name) (Factory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	factory, exists := r.providers[name]
	if !exists {
		return nil, fmt.Errorf("%w: %q is not registered", ErrUnknownProvider, name)
	}

	return factory, nil
}

// CreateProvider builds a gateway for name with conf
func (r *ProviderRegistry) CreateProvider(name Name, conf Config, opts ...Option) (Gateway, error) {
	factory, err := r.Get(name)
	if err != nil {
		return nil, err
	}

	return factory(conf, opts...), nil
}

// GetProviderNames returns registered names in the order of Names()
func (r *ProviderRegistry) GetProviderNames() []Name {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]Name, 0, len(r.providers))
	for _, n := range knownNames {
		if _, ok := r.providers[n]; ok {
			names = append(names, n)
		}
	}

	return names
}

// DefaultRegistry is the global default provider registry
var DefaultRegistry = NewProviderRegistry()

// Register registers a provider with the default registry
func Register(name Name, factory Factory) {
	DefaultRegistry.Register(name, factory)
}

// Get retrieves a provider factory from the default registry
func Get(name Name) (Factory, error) {
	return DefaultRegistry.Get(name)
}

// CreateProvider creates a provider instance from the default registry
func CreateProvider(name Name, conf Config, opts ...Option) (Gateway, error) {
	return DefaultRegistry.CreateProvider(name, conf, opts...)
}
