package provider

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/hashicorp/terraform-plugin-framework-validators/int64validator"
	"github.com/hashicorp/terraform-plugin-framework-validators/listvalidator"
	"github.com/hashicorp/terraform-plugin-framework-validators/stringvalidator"
	"github.com/hashicorp/terraform-plugin-framework/datasource"
	"github.com/hashicorp/terraform-plugin-framework/path"
	"github.com/hashicorp/terraform-plugin-framework/provider"
	"github.com/hashicorp/terraform-plugin-framework/provider/schema"
	"github.com/hashicorp/terraform-plugin-framework/resource"
	"github.com/hashicorp/terraform-plugin-framework/schema/validator"
	"github.com/hashicorp/terraform-plugin-framework/types"
	"github.com/hashicorp/terraform-plugin-log/tflog"

	"github.com/gardenctx/terraform-provider-garden/internal/backend"
	plugincontextds "github.com/gardenctx/terraform-provider-garden/internal/datasource/plugincontext"
	projectds "github.com/gardenctx/terraform-provider-garden/internal/datasource/project"
	"github.com/gardenctx/terraform-provider-garden/internal/garden"
	"github.com/gardenctx/terraform-provider-garden/internal/localconfig"
	localconfigresource "github.com/gardenctx/terraform-provider-garden/internal/resource/localconfig"
)

// Ensure GardenProvider satisfies the provider.Provider interface.
var _ provider.Provider = &GardenProvider{}

// GardenProvider implements the garden Terraform provider.
type GardenProvider struct {
	// version is set to the provider version on release, "dev" when the
	// provider is built and run locally.
	version string
}

// New returns a factory function that creates a new GardenProvider instance
// for the given version string. This is the entry-point used in main.go.
func New(version string) func() provider.Provider {
	return func() provider.Provider {
		return &GardenProvider{
			version: version,
		}
	}
}

// Metadata returns the provider type name.
func (p *GardenProvider) Metadata(_ context.Context, _ provider.MetadataRequest, resp *provider.MetadataResponse) {
	resp.TypeName = "garden"
	resp.Version = p.version
}

// Schema returns the provider schema.
func (p *GardenProvider) Schema(_ context.Context, _ provider.SchemaRequest, resp *provider.SchemaResponse) {
	resp.Schema = schema.Schema{
		MarkdownDescription: "The garden provider loads a Garden project and exposes the context each Garden provider (plugin) receives, together with the project's local configuration store.",
		Attributes: map[string]schema.Attribute{
			"project_root": schema.StringAttribute{
				MarkdownDescription: "Path to the directory containing the project `garden.yml`.",
				Required:            true,
				Validators: []validator.String{
					stringvalidator.LengthAtLeast(1),
				},
			},
			"environment": schema.StringAttribute{
				MarkdownDescription: "Environment to resolve provider configuration for. Defaults to the project's `defaultEnvironment`, or the first declared environment.",
				Optional:            true,
				Validators: []validator.String{
					stringvalidator.RegexMatches(garden.IdentifierPattern, garden.IdentifierDescription),
				},
			},
			"module_excludes": schema.ListAttribute{
				MarkdownDescription: "Additional glob patterns (relative to the project root) excluded from module discovery. `.git`, `.garden` and `node_modules` are always excluded.",
				Optional:            true,
				ElementType:         types.StringType,
			},
		},
		Blocks: map[string]schema.Block{
			"local_config": schema.ListNestedBlock{
				MarkdownDescription: "Where the project's local configuration store is persisted. Defaults to the `.garden` directory in the project root. At most one block may be specified.",
				Validators: []validator.List{
					listvalidator.SizeAtMost(1),
				},
				NestedObject: schema.NestedBlockObject{
					Attributes: map[string]schema.Attribute{
						"type": schema.StringAttribute{
							MarkdownDescription: "Storage backend type. Supported values are `\"file\"`, `\"memory\"`, `\"s3\"`, `\"azure\"`, and `\"gcs\"`.",
							Required:            true,
							Validators: []validator.String{
								stringvalidator.OneOf("file", "memory", "s3", "azure", "gcs"),
							},
						},
						"name": schema.StringAttribute{
							MarkdownDescription: "Name of the store, used in logs and to share `memory` stores between provider instances. Defaults to `\"local\"`.",
							Optional:            true,
						},
						"bucket": schema.StringAttribute{
							MarkdownDescription: "S3 or GCS bucket name. Required for `s3` and `gcs` types.",
							Optional:            true,
						},
						"region": schema.StringAttribute{
							MarkdownDescription: "AWS region for the S3 bucket. Required for the `s3` type.",
							Optional:            true,
						},
						"kms_key_id": schema.StringAttribute{
							MarkdownDescription: "AWS KMS key ID or ARN used for server-side encryption of the S3 object.",
							Optional:            true,
						},
						"storage_account": schema.StringAttribute{
							MarkdownDescription: "Azure Storage account name. Required for the `azure` type.",
							Optional:            true,
						},
						"container_name": schema.StringAttribute{
							MarkdownDescription: "Azure Blob Storage container name. Required for the `azure` type.",
							Optional:            true,
						},
						"kms_key_name": schema.StringAttribute{
							MarkdownDescription: "GCS Cloud KMS key resource name used for object encryption.",
							Optional:            true,
						},
						"prefix": schema.StringAttribute{
							MarkdownDescription: "Key prefix prepended to the store document within the bucket or container. Ignored for `file` and `memory`.",
							Optional:            true,
						},
						"max_retries": schema.Int64Attribute{
							MarkdownDescription: "Maximum number of retries for failed operations against a remote store. Defaults to `3`.",
							Optional:            true,
							Validators: []validator.Int64{
								int64validator.Between(0, 10),
							},
						},
						"retry_backoff": schema.StringAttribute{
							MarkdownDescription: "Retry backoff strategy. Supported values are `\"exponential\"` and `\"linear\"`. Defaults to `\"exponential\"`.",
							Optional:            true,
							Validators: []validator.String{
								stringvalidator.OneOf("exponential", "linear"),
							},
						},
					},
				},
			},
		},
	}
}

// Configure loads the Garden project, builds its local config store and
// stores everything in ProviderData for downstream resources.
func (p *GardenProvider) Configure(ctx context.Context, req provider.ConfigureRequest, resp *provider.ConfigureResponse) {
	var config ProviderModel
	resp.Diagnostics.Append(req.Config.Get(ctx, &config)...)
	if resp.Diagnostics.HasError() {
		return
	}

	if config.ProjectRoot.IsUnknown() {
		resp.Diagnostics.AddAttributeError(
			path.Root("project_root"),
			"Unknown Project Root",
			"The provider cannot load the Garden project until project_root is known. Set it to a value known at plan time.",
		)
		return
	}

	root, err := filepath.Abs(config.ProjectRoot.ValueString())
	if err != nil {
		resp.Diagnostics.AddAttributeError(path.Root("project_root"), "Invalid Project Root", err.Error())
		return
	}

	var environment string
	if !config.Environment.IsNull() && !config.Environment.IsUnknown() {
		environment = config.Environment.ValueString()
	}

	var excludes []string
	if !config.ModuleExcludes.IsNull() && !config.ModuleExcludes.IsUnknown() {
		resp.Diagnostics.Append(config.ModuleExcludes.ElementsAs(ctx, &excludes, false)...)
		if resp.Diagnostics.HasError() {
			return
		}
	}

	var store *localconfig.Store
	if len(config.LocalConfig) == 1 {
		b, err := newLocalConfigBackend(root, config.LocalConfig[0])
		if err != nil {
			resp.Diagnostics.AddAttributeError(
				path.Root("local_config").AtListIndex(0),
				"Local Config Store Initialization Failed",
				err.Error(),
			)
			return
		}
		store = localconfig.New(b)
	}

	g, err := garden.LoadProject(ctx, garden.Options{
		ProjectRoot:    root,
		Environment:    environment,
		Store:          store,
		ModuleExcludes: excludes,
	})
	if err != nil {
		var cfgErr *garden.ConfigurationError
		if errors.As(err, &cfgErr) {
			resp.Diagnostics.AddError("Invalid Garden Project", cfgErr.Error())
			return
		}
		resp.Diagnostics.AddError("Garden Project Load Failed", fmt.Sprintf("Failed to load project at %q: %s", root, err))
		return
	}

	tflog.Debug(ctx, "configured garden provider", map[string]interface{}{
		"project":      g.ProjectName,
		"environment":  g.EnvironmentName,
		"local_config": g.LocalConfigStore.BackendName(),
	})

	pd := &ProviderData{
		Garden: g,
	}

	resp.DataSourceData = pd
	resp.ResourceData = pd
}

// newLocalConfigBackend resolves block defaults and builds the backend.
func newLocalConfigBackend(root string, lc LocalConfigModel) (backend.Backend, error) {
	name := "local"
	if !lc.Name.IsNull() && !lc.Name.IsUnknown() && lc.Name.ValueString() != "" {
		name = lc.Name.ValueString()
	}

	maxRetries := int64(3)
	if !lc.MaxRetries.IsNull() && !lc.MaxRetries.IsUnknown() {
		maxRetries = lc.MaxRetries.ValueInt64()
	}

	retryBackoff := "exponential"
	if !lc.RetryBackoff.IsNull() && !lc.RetryBackoff.IsUnknown() {
		retryBackoff = lc.RetryBackoff.ValueString()
	}

	return backend.New(backend.Config{
		Name:           name,
		Type:           lc.Type.ValueString(),
		Dir:            filepath.Join(root, garden.MetadataDirName),
		Bucket:         lc.Bucket.ValueString(),
		Region:         lc.Region.ValueString(),
		KMSKeyID:       lc.KMSKeyID.ValueString(),
		StorageAccount: lc.StorageAccount.ValueString(),
		ContainerName:  lc.ContainerName.ValueString(),
		KMSKeyName:     lc.KMSKeyName.ValueString(),
		Prefix:         lc.Prefix.ValueString(),
		MaxRetries:     int(maxRetries),
		RetryBackoff:   retryBackoff,
	})
}

// Resources returns the set of resource types supported by this provider.
func (p *GardenProvider) Resources(_ context.Context) []func() resource.Resource {
	return []func() resource.Resource{
		localconfigresource.NewLocalConfigResource,
	}
}

// DataSources returns the set of data source types supported by this provider.
func (p *GardenProvider) DataSources(_ context.Context) []func() datasource.DataSource {
	return []func() datasource.DataSource{
		plugincontextds.NewPluginContextDataSource,
		projectds.NewProjectDataSource,
	}
}
