// Package plugincontext builds the read-only view of Garden state that is
// handed to a provider (plugin) when it runs, together with the registry of
// all configured providers.
//
// A PluginContext is created fresh for every plugin operation. Project
// sources and provider configs are deep-copied so a provider cannot change
// host state through them; the local config store is shared with Garden.
package plugincontext

import (
	"context"

	"github.com/hashicorp/terraform-plugin-log/tflog"
	"github.com/mitchellh/copystructure"

	"github.com/gardenctx/terraform-provider-garden/internal/garden"
	"github.com/gardenctx/terraform-provider-garden/internal/localconfig"
)

// PluginContext is the projection of Garden state visible to one provider.
type PluginContext struct {
	ProjectName     string
	ProjectRoot     string
	EnvironmentName string
	ProjectSources  []garden.SourceConfig
	// LocalConfigStore is the same store Garden uses, not a copy.
	LocalConfigStore *localconfig.Store
	// Provider is the provider this context was built for.
	Provider Provider
	// Providers holds every configured provider, so a provider can read the
	// configuration of providers it depends on. Its configs are copies.
	Providers Registry
}

// CreatePluginContext builds the context for providerName. The reserved
// name DefaultProviderName always yields DefaultProvider; any other name
// must be configured in g, otherwise a *PluginError is returned.
//
// It performs no I/O and may be called concurrently. ctx is only used for
// logging.
func CreatePluginContext(ctx context.Context, g *garden.Garden, providerName string) (*PluginContext, error) {
	providers := BuildRegistry(g.ProviderConfigs)

	provider, found := providers[providerName]
	if providerName == DefaultProviderName {
		provider, found = DefaultProvider(), true
	}

	if !found {
		tflog.Debug(ctx, "plugin context requested for unknown provider", map[string]interface{}{
			"provider":  providerName,
			"available": providers.Names(),
		})
		return nil, &PluginError{ProviderName: providerName, Providers: providers}
	}

	var sources []garden.SourceConfig
	if g.ProjectSources != nil {
		sources = copystructure.Must(copystructure.Copy(g.ProjectSources)).([]garden.SourceConfig)
	}

	pc := &PluginContext{
		ProjectName:      g.ProjectName,
		ProjectRoot:      g.ProjectRoot,
		EnvironmentName:  g.EnvironmentName,
		ProjectSources:   sources,
		LocalConfigStore: g.LocalConfigStore,
		Provider:         provider,
		Providers:        providers,
	}

	tflog.Debug(ctx, "created plugin context", map[string]interface{}{
		"provider":    provider.Name,
		"environment": pc.EnvironmentName,
		"providers":   len(providers),
	})

	return pc, nil
}
