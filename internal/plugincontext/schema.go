package plugincontext

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strings"

	"github.com/hashicorp/terraform-plugin-framework-validators/mapvalidator"
	"github.com/hashicorp/terraform-plugin-framework-validators/stringvalidator"
	"github.com/hashicorp/terraform-plugin-framework/datasource/schema"
	"github.com/hashicorp/terraform-plugin-framework/schema/validator"

	"github.com/gardenctx/terraform-provider-garden/internal/garden"
)

// The schemas below describe a PluginContext for documentation and for the
// garden_plugin_context data source. They are not applied when a context is
// created; use Validate for that.

func identifierValidators() []validator.String {
	return []validator.String{
		stringvalidator.LengthAtMost(garden.IdentifierMaxLength),
		stringvalidator.RegexMatches(garden.IdentifierPattern, garden.IdentifierDescription),
	}
}

// providerNameValidators accept identifiers and the reserved default name.
func providerNameValidators() []validator.String {
	return []validator.String{
		stringvalidator.Any(
			stringvalidator.OneOf(DefaultProviderName),
			stringvalidator.All(identifierValidators()...),
		),
	}
}

// urlValidator checks a string is a URL with one of the allowed schemes.
// An empty scheme list means the value must be an absolute slash-separated
// path, which is how project roots are expressed. Such paths are not parsed
// as URLs since they may contain '%' or a drive letter.
type urlValidator struct {
	schemes         []string
	requireFragment bool
	description     string
}

var _ validator.String = urlValidator{}

func (v urlValidator) Description(_ context.Context) string {
	return v.description
}

func (v urlValidator) MarkdownDescription(ctx context.Context) string {
	return v.Description(ctx)
}

func (v urlValidator) ValidateString(_ context.Context, req validator.StringRequest, resp *validator.StringResponse) {
	if req.ConfigValue.IsNull() || req.ConfigValue.IsUnknown() {
		return
	}
	value := req.ConfigValue.ValueString()

	if msg := v.check(value); msg != "" {
		resp.Diagnostics.AddAttributeError(
			req.Path,
			"Invalid Attribute Value",
			fmt.Sprintf("Attribute %s %s, got: %q", req.Path, msg, value),
		)
	}
}

// drivePathPattern matches a Windows drive path after filepath.ToSlash.
var drivePathPattern = regexp.MustCompile(`^[A-Za-z]:/`)

func (v urlValidator) check(value string) string {
	if len(v.schemes) == 0 {
		if !path.IsAbs(value) && !drivePathPattern.MatchString(value) {
			return "must be an absolute path"
		}
		return ""
	}

	u, err := url.Parse(value)
	if err != nil {
		return "must be a valid URI"
	}

	ok := false
	for _, s := range v.schemes {
		if strings.EqualFold(u.Scheme, s) {
			ok = true
			break
		}
	}
	if !ok {
		return fmt.Sprintf("must use one of the schemes %v", v.schemes)
	}
	if v.requireFragment && u.Fragment == "" {
		return "must end with #<branch|tag>"
	}
	return ""
}

var (
	projectRootValidator = urlValidator{
		description: "value must be an absolute path",
	}
	repositoryURLValidator = urlValidator{
		schemes:         []string{"git", "http", "https", "ssh", "file"},
		requireFragment: true,
		description:     "value must be a git repository URL with a #<branch|tag> suffix",
	}
	dashboardURLValidator = urlValidator{
		schemes:     []string{"http", "https"},
		description: "value must be an http(s) URL",
	}
)

// SourceAttributes is the schema of a project source descriptor.
func SourceAttributes() map[string]schema.Attribute {
	return map[string]schema.Attribute{
		"name": schema.StringAttribute{
			MarkdownDescription: "The name of the source.",
			Computed:            true,
			Validators:          identifierValidators(),
		},
		"repository_url": schema.StringAttribute{
			MarkdownDescription: "A remote git repository URL, with the format `<git remote url>#<branch|tag>`.",
			Computed:            true,
			Validators:          []validator.String{repositoryURLValidator},
		},
	}
}

// DashboardPageAttributes is the schema of a provider dashboard page.
func DashboardPageAttributes() map[string]schema.Attribute {
	return map[string]schema.Attribute{
		"name": schema.StringAttribute{
			MarkdownDescription: "A unique identifier for the page.",
			Computed:            true,
			Validators:          identifierValidators(),
		},
		"title": schema.StringAttribute{
			MarkdownDescription: "The link title to show in the menu bar (max length 32).",
			Computed:            true,
			Validators:          []validator.String{stringvalidator.LengthBetween(1, 32)},
		},
		"description": schema.StringAttribute{
			MarkdownDescription: "A description to show when hovering over the link.",
			Computed:            true,
		},
		"url": schema.StringAttribute{
			MarkdownDescription: "The URL to open in the dashboard pane when clicking the link.",
			Computed:            true,
			Validators:          []validator.String{dashboardURLValidator},
		},
		"new_window": schema.BoolAttribute{
			MarkdownDescription: "Whether to open the link in a new tab or window.",
			Computed:            true,
		},
	}
}

// ProviderAttributes is the schema of a Provider.
func ProviderAttributes() map[string]schema.Attribute {
	return map[string]schema.Attribute{
		"name": schema.StringAttribute{
			MarkdownDescription: "The name of the provider (plugin).",
			Computed:            true,
			Validators:          providerNameValidators(),
		},
		"config_json": schema.StringAttribute{
			MarkdownDescription: "The provider configuration as a JSON document. Its base shape is a mapping with an optional `name`; each plugin extends it with its own settings.",
			Computed:            true,
		},
		"dashboard_pages": schema.ListNestedAttribute{
			MarkdownDescription: "Pages the provider contributes to the dashboard.",
			Computed:            true,
			NestedObject: schema.NestedAttributeObject{
				Attributes: DashboardPageAttributes(),
			},
		},
	}
}

// PluginContextAttributes is the schema of a PluginContext.
func PluginContextAttributes() map[string]schema.Attribute {
	return map[string]schema.Attribute{
		"project_name": schema.StringAttribute{
			MarkdownDescription: "The name of the project.",
			Computed:            true,
			Validators:          identifierValidators(),
		},
		"project_root": schema.StringAttribute{
			MarkdownDescription: "The absolute path of the project root.",
			Computed:            true,
			Validators:          []validator.String{projectRootValidator},
		},
		"project_sources": schema.ListNestedAttribute{
			MarkdownDescription: "The external sources declared by the project.",
			Computed:            true,
			NestedObject: schema.NestedAttributeObject{
				Attributes: SourceAttributes(),
			},
		},
		"local_config_store": schema.StringAttribute{
			MarkdownDescription: "Helper for managing local configuration for plugins, reported by the name of its backing store. This attribute is descriptive only.",
			Computed:            true,
		},
		"environment_name": schema.StringAttribute{
			MarkdownDescription: "The name of the active environment.",
			Computed:            true,
			Validators:          identifierValidators(),
		},
		"provider": schema.SingleNestedAttribute{
			MarkdownDescription: "The provider being used for this context.",
			Computed:            true,
			Attributes:          ProviderAttributes(),
		},
		"providers": schema.MapNestedAttribute{
			MarkdownDescription: "Map of other providers that the current provider depends on (useful for referencing their configuration).",
			Computed:            true,
			NestedObject: schema.NestedAttributeObject{
				Attributes: ProviderAttributes(),
			},
			Validators: []validator.Map{
				mapvalidator.KeysAre(providerNameValidators()...),
			},
		},
	}
}

// PluginContextSchema returns the documentation schema of a PluginContext.
func PluginContextSchema() schema.Schema {
	return schema.Schema{
		MarkdownDescription: "The view of project state that a Garden provider (plugin) receives when it runs.",
		Attributes:          PluginContextAttributes(),
	}
}

// ConfigSchema describes the settings a plugin accepts in its provider
// config. Settings not declared in Attributes are allowed and unchecked.
// Supported attribute kinds are String, Bool, Int64 and List of String.
type ConfigSchema struct {
	Attributes map[string]schema.Attribute
}

// BaseConfigSchema is the schema every provider config satisfies.
func BaseConfigSchema() ConfigSchema {
	return ConfigSchema{
		Attributes: map[string]schema.Attribute{
			"name": schema.StringAttribute{
				MarkdownDescription: "The name of the provider (plugin).",
				Optional:            true,
				Validators:          identifierValidators(),
			},
		},
	}
}

// Extend returns a copy of s with attrs added. Attributes in attrs replace
// same-named attributes of s.
func (s ConfigSchema) Extend(attrs map[string]schema.Attribute) ConfigSchema {
	out := make(map[string]schema.Attribute, len(s.Attributes)+len(attrs))
	for k, v := range s.Attributes {
		out[k] = v
	}
	for k, v := range attrs {
		out[k] = v
	}
	return ConfigSchema{Attributes: out}
}
