package knowledge

import "context"

// Provider is one knowledge source.
type Provider interface {
	// Name labels the provider's section in the rendered report.
	Name() string
	// Enabled reports whether the provider is configured (for example has
	// credentials). Disabled providers are skipped.
	Enabled() bool
	// Query answers q.
	Query(ctx context.Context, q string) (string, error)
}

// ProviderFunc adapts a function to an always enabled Provider.
type ProviderFunc struct {
	ProviderName string
	Fn           func(ctx context.Context, q string) (string, error)
}

// Name implements Provider.
func (p ProviderFunc) Name() string { return p.ProviderName }

// Enabled implements Provider.
func (p ProviderFunc) Enabled() bool { return p.Fn != nil }

// Query implements Provider.
func (p ProviderFunc) Query(ctx context.Context, q string) (string, error) { return p.Fn(ctx, q) }
