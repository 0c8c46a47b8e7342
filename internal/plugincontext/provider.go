package plugincontext

import (
	"fmt"
	"sort"

	"github.com/mitchellh/copystructure"
	"github.com/mitchellh/mapstructure"

	"github.com/gardenctx/terraform-provider-garden/internal/garden"
)

// DefaultProviderName is the reserved provider name that always resolves to
// DefaultProvider, even when a configured provider uses the same name.
const DefaultProviderName = "_default"

// dashboardPagesKey is the provider config key holding dashboard pages.
const dashboardPagesKey = "dashboardPages"

// Provider is one configured plugin instance.
type Provider struct {
	Name   string
	Config garden.ProviderConfig
}

// DefaultProvider returns the host-wide default provider record. A fresh
// value is returned on every call so no caller can alter it for others.
func DefaultProvider() Provider {
	return Provider{Name: DefaultProviderName, Config: garden.ProviderConfig{}}
}

// Registry maps provider names to their Provider. Every key equals the Name
// of its value.
type Registry map[string]Provider

// BuildRegistry turns the host's raw provider configs into a Registry. It
// never fails; an empty input yields an empty registry. Each config is
// deep-copied, so changes made through the registry never reach the host.
func BuildRegistry(configs map[string]garden.ProviderConfig) Registry {
	r := make(Registry, len(configs))
	for name, cfg := range configs {
		r[name] = Provider{Name: name, Config: copyConfig(cfg)}
	}
	return r
}

func copyConfig(cfg garden.ProviderConfig) garden.ProviderConfig {
	if cfg == nil {
		return nil
	}
	return copystructure.Must(copystructure.Copy(cfg)).(garden.ProviderConfig)
}

// Names returns the registered provider names in lexical order.
func (r Registry) Names() []string {
	names := make([]string, 0, len(r))
	for name := range r {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DecodeConfig decodes the provider's config document into out, which must
// be a pointer to a plugin-specific struct or map. Fields are matched on
// their `mapstructure` tags; keys the struct does not declare are ignored.
func (p Provider) DecodeConfig(out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:  out,
		TagName: "mapstructure",
	})
	if err != nil {
		return fmt.Errorf("provider %q: %w", p.Name, err)
	}
	if err := dec.Decode(map[string]any(p.Config)); err != nil {
		return fmt.Errorf("provider %q: decoding config: %w", p.Name, err)
	}
	return nil
}

// DashboardPage is a page a provider contributes to the Garden dashboard.
type DashboardPage struct {
	Name        string `mapstructure:"name"`
	Title       string `mapstructure:"title"`
	Description string `mapstructure:"description"`
	URL         string `mapstructure:"url"`
	NewWindow   bool   `mapstructure:"newWindow"`
}

// DashboardPages decodes the optional dashboardPages list of the provider
// config. A provider without the key has no pages.
func (p Provider) DashboardPages() ([]DashboardPage, error) {
	raw, ok := p.Config[dashboardPagesKey]
	if !ok || raw == nil {
		return nil, nil
	}

	var pages []DashboardPage
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      &pages,
		TagName:     "mapstructure",
		ErrorUnused: true,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(raw); err != nil {
		return nil, fmt.Errorf("provider %q: decoding %s: %w", p.Name, dashboardPagesKey, err)
	}
	return pages, nil
}
