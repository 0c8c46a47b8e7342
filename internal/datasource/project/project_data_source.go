package project

import (
	"context"
	"fmt"
	"sort"

	"github.com/hashicorp/terraform-plugin-framework/datasource"
	"github.com/hashicorp/terraform-plugin-framework/datasource/schema"
	"github.com/hashicorp/terraform-plugin-framework/types"
	"github.com/hashicorp/terraform-plugin-log/tflog"

	"github.com/gardenctx/terraform-provider-garden/internal/garden"
	"github.com/gardenctx/terraform-provider-garden/internal/providerdata"
)

// Compile-time interface checks.
var (
	_ datasource.DataSource              = &ProjectDataSource{}
	_ datasource.DataSourceWithConfigure = &ProjectDataSource{}
)

// NewProjectDataSource returns a new datasource.DataSource for the
// garden_project type.
func NewProjectDataSource() datasource.DataSource {
	return &ProjectDataSource{}
}

// ProjectDataSource implements the garden_project data source, a summary
// of the project the provider loaded.
type ProjectDataSource struct {
	providerData *providerdata.ProviderData
}

// ProjectDataSourceModel maps the garden_project schema to a Go struct.
type ProjectDataSourceModel struct {
	ID              types.String  `tfsdk:"id"`
	Name            types.String  `tfsdk:"name"`
	Root            types.String  `tfsdk:"root"`
	EnvironmentName types.String  `tfsdk:"environment_name"`
	Environments    types.List    `tfsdk:"environments"`
	Providers       types.List    `tfsdk:"providers"`
	Sources         []SourceModel `tfsdk:"sources"`
	Modules         []ModuleModel `tfsdk:"modules"`
}

// SourceModel maps a project source.
type SourceModel struct {
	Name          types.String `tfsdk:"name"`
	RepositoryURL types.String `tfsdk:"repository_url"`
}

// ModuleModel maps a discovered module.
type ModuleModel struct {
	Name        types.String `tfsdk:"name"`
	Type        types.String `tfsdk:"type"`
	Description types.String `tfsdk:"description"`
	Path        types.String `tfsdk:"path"`
}

func (d *ProjectDataSource) Metadata(_ context.Context, req datasource.MetadataRequest, resp *datasource.MetadataResponse) {
	resp.TypeName = req.ProviderTypeName + "_project"
}

func (d *ProjectDataSource) Schema(_ context.Context, _ datasource.SchemaRequest, resp *datasource.SchemaResponse) {
	resp.Schema = schema.Schema{
		MarkdownDescription: "Summary of the Garden project loaded by the provider: its active environment, configured providers, sources and modules.",

		Attributes: map[string]schema.Attribute{
			"id": schema.StringAttribute{
				MarkdownDescription: "Identifier of the project, `<project>/<environment>`.",
				Computed:            true,
			},
			"name": schema.StringAttribute{
				MarkdownDescription: "The project name.",
				Computed:            true,
			},
			"root": schema.StringAttribute{
				MarkdownDescription: "Absolute path of the project root.",
				Computed:            true,
			},
			"environment_name": schema.StringAttribute{
				MarkdownDescription: "The active environment.",
				Computed:            true,
			},
			"environments": schema.ListAttribute{
				MarkdownDescription: "Every environment declared by the project, in declaration order.",
				Computed:            true,
				ElementType:         types.StringType,
			},
			"providers": schema.ListAttribute{
				MarkdownDescription: "Names of the providers configured for the active environment, sorted.",
				Computed:            true,
				ElementType:         types.StringType,
			},
			"sources": schema.ListNestedAttribute{
				MarkdownDescription: "External sources declared by the project.",
				Computed:            true,
				NestedObject: schema.NestedAttributeObject{
					Attributes: map[string]schema.Attribute{
						"name": schema.StringAttribute{
							MarkdownDescription: "The name of the source.",
							Computed:            true,
						},
						"repository_url": schema.StringAttribute{
							MarkdownDescription: "The source repository URL, `<git remote url>#<branch|tag>`.",
							Computed:            true,
						},
					},
				},
			},
			"modules": schema.ListNestedAttribute{
				MarkdownDescription: "Modules discovered in the project tree, sorted by name.",
				Computed:            true,
				NestedObject: schema.NestedAttributeObject{
					Attributes: map[string]schema.Attribute{
						"name": schema.StringAttribute{
							MarkdownDescription: "The module name.",
							Computed:            true,
						},
						"type": schema.StringAttribute{
							MarkdownDescription: "The module type, handled by the matching provider.",
							Computed:            true,
						},
						"description": schema.StringAttribute{
							MarkdownDescription: "The module description.",
							Computed:            true,
						},
						"path": schema.StringAttribute{
							MarkdownDescription: "Module directory relative to the project root.",
							Computed:            true,
						},
					},
				},
			},
		},
	}
}

func (d *ProjectDataSource) Configure(_ context.Context, req datasource.ConfigureRequest, resp *datasource.ConfigureResponse) {
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

func (d *ProjectDataSource) Read(ctx context.Context, _ datasource.ReadRequest, resp *datasource.ReadResponse) {
	if d.providerData == nil || d.providerData.Garden == nil {
		resp.Diagnostics.AddError(
			"Provider Not Configured",
			"The garden provider must be configured with a project_root before the project can be read.",
		)
		return
	}
	g := d.providerData.Garden

	environments, diags := types.ListValueFrom(ctx, types.StringType, g.Environments)
	resp.Diagnostics.Append(diags...)
	providers, diags := types.ListValueFrom(ctx, types.StringType, providerNames(g))
	resp.Diagnostics.Append(diags...)
	if resp.Diagnostics.HasError() {
		return
	}

	state := ProjectDataSourceModel{
		ID:              types.StringValue(g.ProjectName + "/" + g.EnvironmentName),
		Name:            types.StringValue(g.ProjectName),
		Root:            types.StringValue(g.ProjectRoot),
		EnvironmentName: types.StringValue(g.EnvironmentName),
		Environments:    environments,
		Providers:       providers,
		Sources:         make([]SourceModel, 0, len(g.ProjectSources)),
		Modules:         make([]ModuleModel, 0, len(g.Modules)),
	}
	for _, s := range g.ProjectSources {
		state.Sources = append(state.Sources, SourceModel{
			Name:          types.StringValue(s.Name),
			RepositoryURL: types.StringValue(s.RepositoryURL),
		})
	}
	for _, m := range g.Modules {
		state.Modules = append(state.Modules, ModuleModel{
			Name:        types.StringValue(m.Name),
			Type:        types.StringValue(m.Type),
			Description: types.StringValue(m.Description),
			Path:        types.StringValue(m.Path),
		})
	}

	tflog.Debug(ctx, "read garden project", map[string]interface{}{
		"project": g.ProjectName,
		"modules": len(g.Modules),
	})

	resp.Diagnostics.Append(resp.State.Set(ctx, &state)...)
}

func providerNames(g *garden.Garden) []string {
	names := make([]string, 0, len(g.ProviderConfigs))
	for name := range g.ProviderConfigs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
