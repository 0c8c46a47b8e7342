package plugincontext

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/hashicorp/terraform-plugin-framework-validators/stringvalidator"
	"github.com/hashicorp/terraform-plugin-framework/datasource"
	"github.com/hashicorp/terraform-plugin-framework/datasource/schema"
	"github.com/hashicorp/terraform-plugin-framework/diag"
	"github.com/hashicorp/terraform-plugin-framework/path"
	"github.com/hashicorp/terraform-plugin-framework/schema/validator"
	"github.com/hashicorp/terraform-plugin-framework/types"
	"github.com/hashicorp/terraform-plugin-log/tflog"

	pluginctx "github.com/gardenctx/terraform-provider-garden/internal/plugincontext"
	"github.com/gardenctx/terraform-provider-garden/internal/providerdata"
)

// Compile-time interface checks.
var (
	_ datasource.DataSource              = &PluginContextDataSource{}
	_ datasource.DataSourceWithConfigure = &PluginContextDataSource{}
)

// NewPluginContextDataSource returns a new datasource.DataSource for the
// garden_plugin_context type.
func NewPluginContextDataSource() datasource.DataSource {
	return &PluginContextDataSource{}
}

// PluginContextDataSource implements the garden_plugin_context data source.
// It builds the context the named Garden provider would receive.
type PluginContextDataSource struct {
	providerData *providerdata.ProviderData
}

func (d *PluginContextDataSource) Metadata(_ context.Context, req datasource.MetadataRequest, resp *datasource.MetadataResponse) {
	resp.TypeName = req.ProviderTypeName + "_plugin_context"
}

func (d *PluginContextDataSource) Schema(ctx context.Context, _ datasource.SchemaRequest, resp *datasource.SchemaResponse) {
	s := pluginctx.PluginContextSchema()

	s.Attributes["provider_name"] = schema.StringAttribute{
		MarkdownDescription: "Name of the configured Garden provider to build the context for. `_default` always selects the built-in default provider.",
		Required:            true,
		Validators: []validator.String{
			stringvalidator.LengthAtLeast(1),
		},
	}
	s.Attributes["validate"] = schema.BoolAttribute{
		MarkdownDescription: "Whether to check the built context against its schema and report violations as errors. Defaults to `true`.",
		Optional:            true,
	}
	s.Attributes["id"] = schema.StringAttribute{
		MarkdownDescription: "Identifier of the context, `<project>/<environment>/<provider>`.",
		Computed:            true,
	}

	resp.Schema = s
}

func (d *PluginContextDataSource) Configure(_ context.Context, req datasource.ConfigureRequest, resp *datasource.ConfigureResponse) {
	if req.ProviderData == nil {
		return
	}

	pd, ok := req.ProviderData.(*providerdata.ProviderData)
	if !ok {
		resp.Diagnostics.AddError(
			"Unexpected Data Source Configure Type",
			fmt.Sprintf("Expected *providerdata.ProviderData, got: %T. Please report this issue to the provider developers.", req.ProviderData),
		)
		return
	}

	d.providerData = pd
}

func (d *PluginContextDataSource) Read(ctx context.Context, req datasource.ReadRequest, resp *datasource.ReadResponse) {
	var config PluginContextDataSourceModel
	resp.Diagnostics.Append(req.Config.Get(ctx, &config)...)
	if resp.Diagnostics.HasError() {
		return
	}

	if d.providerData == nil || d.providerData.Garden == nil {
		resp.Diagnostics.AddError(
			"Provider Not Configured",
			"The garden provider must be configured with a project_root before plugin contexts can be read.",
		)
		return
	}

	name := config.ProviderName.ValueString()
	pc, err := pluginctx.CreatePluginContext(ctx, d.providerData.Garden, name)
	if err != nil {
		var perr *pluginctx.PluginError
		if errors.As(err, &perr) {
			available := "none"
			if names := perr.Available(); len(names) > 0 {
				available = strings.Join(names, ", ")
			}
			resp.Diagnostics.AddAttributeError(
				path.Root("provider_name"),
				"Unknown Garden Provider",
				fmt.Sprintf("Could not find provider %q in environment %q. Available providers: %s.",
					perr.ProviderName, d.providerData.Garden.EnvironmentName, available),
			)
			return
		}
		resp.Diagnostics.AddError("Plugin Context Failed", err.Error())
		return
	}

	if config.Validate.IsNull() || config.Validate.ValueBool() {
		resp.Diagnostics.Append(pluginctx.Validate(ctx, pc)...)
		if resp.Diagnostics.HasError() {
			return
		}
	}

	state, diags := flatten(pc)
	resp.Diagnostics.Append(diags...)
	if resp.Diagnostics.HasError() {
		return
	}
	state.ProviderName = config.ProviderName
	state.Validate = config.Validate

	tflog.Debug(ctx, "read plugin context", map[string]interface{}{
		"provider":  pc.Provider.Name,
		"providers": len(pc.Providers),
	})

	resp.Diagnostics.Append(resp.State.Set(ctx, &state)...)
}

// flatten converts a PluginContext into the data source model.
func flatten(pc *pluginctx.PluginContext) (PluginContextDataSourceModel, diag.Diagnostics) {
	var diags diag.Diagnostics

	m := PluginContextDataSourceModel{
		ID:               types.StringValue(strings.Join([]string{pc.ProjectName, pc.EnvironmentName, pc.Provider.Name}, "/")),
		ProjectName:      types.StringValue(pc.ProjectName),
		ProjectRoot:      types.StringValue(pc.ProjectRoot),
		EnvironmentName:  types.StringValue(pc.EnvironmentName),
		LocalConfigStore: types.StringNull(),
		ProjectSources:   make([]SourceModel, 0, len(pc.ProjectSources)),
		Providers:        make(map[string]ProviderModel, len(pc.Providers)),
	}
	if pc.LocalConfigStore != nil {
		m.LocalConfigStore = types.StringValue(pc.LocalConfigStore.BackendName())
	}

	for _, s := range pc.ProjectSources {
		m.ProjectSources = append(m.ProjectSources, SourceModel{
			Name:          types.StringValue(s.Name),
			RepositoryURL: types.StringValue(s.RepositoryURL),
		})
	}

	provider, err := flattenProvider(pc.Provider)
	if err != nil {
		diags.AddAttributeError(path.Root("provider"), "Invalid Provider Config", err.Error())
		return m, diags
	}
	m.Provider = &provider

	for _, name := range pc.Providers.Names() {
		p, err := flattenProvider(pc.Providers[name])
		if err != nil {
			diags.AddAttributeError(path.Root("providers").AtMapKey(name), "Invalid Provider Config", err.Error())
			continue
		}
		m.Providers[name] = p
	}

	return m, diags
}

func flattenProvider(p pluginctx.Provider) (ProviderModel, error) {
	cfg, err := json.Marshal(p.Config)
	if err != nil {
		return ProviderModel{}, fmt.Errorf("provider %q: encoding config: %w", p.Name, err)
	}

	pages, err := p.DashboardPages()
	if err != nil {
		return ProviderModel{}, err
	}

	m := ProviderModel{
		Name:           types.StringValue(p.Name),
		ConfigJSON:     types.StringValue(string(cfg)),
		DashboardPages: make([]DashboardPageModel, 0, len(pages)),
	}
	for _, page := range pages {
		m.DashboardPages = append(m.DashboardPages, DashboardPageModel{
			Name:        types.StringValue(page.Name),
			Title:       types.StringValue(page.Title),
			Description: types.StringValue(page.Description),
			URL:         types.StringValue(page.URL),
			NewWindow:   types.BoolValue(page.NewWindow),
		})
	}
	return m, nil
}
