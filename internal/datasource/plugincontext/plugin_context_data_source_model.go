package plugincontext

import "github.com/hashicorp/terraform-plugin-framework/types"

// PluginContextDataSourceModel maps the garden_plugin_context schema to a Go
// struct.
type PluginContextDataSourceModel struct {
	ID           types.String `tfsdk:"id"`
	ProviderName types.String `tfsdk:"provider_name"`
	Validate     types.Bool   `tfsdk:"validate"`

	ProjectName      types.String             `tfsdk:"project_name"`
	ProjectRoot      types.String             `tfsdk:"project_root"`
	ProjectSources   []SourceModel            `tfsdk:"project_sources"`
	LocalConfigStore types.String             `tfsdk:"local_config_store"`
	EnvironmentName  types.String             `tfsdk:"environment_name"`
	Provider         *ProviderModel           `tfsdk:"provider"`
	Providers        map[string]ProviderModel `tfsdk:"providers"`
}

// SourceModel maps a project source.
type SourceModel struct {
	Name          types.String `tfsdk:"name"`
	RepositoryURL types.String `tfsdk:"repository_url"`
}

// ProviderModel maps a provider and its configuration.
type ProviderModel struct {
	Name           types.String         `tfsdk:"name"`
	ConfigJSON     types.String         `tfsdk:"config_json"`
	DashboardPages []DashboardPageModel `tfsdk:"dashboard_pages"`
}

// DashboardPageModel maps a provider dashboard page.
type DashboardPageModel struct {
	Name        types.String `tfsdk:"name"`
	Title       types.String `tfsdk:"title"`
	Description types.String `tfsdk:"description"`
	URL         types.String `tfsdk:"url"`
	NewWindow   types.Bool   `tfsdk:"new_window"`
}
