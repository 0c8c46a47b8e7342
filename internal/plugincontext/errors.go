package plugincontext

import "fmt"

// PluginError is returned when a plugin context is requested for a provider
// that is neither configured nor the reserved default provider. It carries
// the full registry so callers can report the available providers.
type PluginError struct {
	ProviderName string
	Providers    Registry
}

func (e *PluginError) Error() string {
	return fmt.Sprintf("could not find provider %q", e.ProviderName)
}

// Available returns the names of the configured providers, sorted.
func (e *PluginError) Available() []string {
	return e.Providers.Names()
}
