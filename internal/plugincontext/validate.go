package plugincontext

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/hashicorp/terraform-plugin-framework/attr"
	"github.com/hashicorp/terraform-plugin-framework/datasource/schema"
	"github.com/hashicorp/terraform-plugin-framework/diag"
	"github.com/hashicorp/terraform-plugin-framework/path"
	"github.com/hashicorp/terraform-plugin-framework/schema/validator"
	"github.com/hashicorp/terraform-plugin-framework/types"

	"github.com/gardenctx/terraform-provider-garden/internal/garden"
)

// Validator checks a constructed PluginContext against the schemas in this
// package by running the validators attached to each schema attribute.
type Validator struct {
	// ConfigSchemas maps provider names to the schema their config must
	// satisfy. Providers without an entry are checked against
	// BaseConfigSchema.
	ConfigSchemas map[string]ConfigSchema
}

// Validate checks pc against PluginContextSchema using only the base
// provider config schema.
func Validate(ctx context.Context, pc *PluginContext) diag.Diagnostics {
	return Validator{}.Validate(ctx, pc)
}

// ValidationError wraps the error diagnostics of a failed validation.
type ValidationError struct {
	Diagnostics diag.Diagnostics
}

func (e *ValidationError) Error() string {
	var msgs []string
	for _, d := range e.Diagnostics.Errors() {
		msg := d.Summary() + ": " + d.Detail()
		if withPath, ok := d.(diag.DiagnosticWithPath); ok {
			msg = withPath.Path().String() + ": " + msg
		}
		msgs = append(msgs, msg)
	}
	return "invalid plugin context: " + strings.Join(msgs, "; ")
}

// Check is Validate returning a *ValidationError when any error diagnostic
// was produced.
func (v Validator) Check(ctx context.Context, pc *PluginContext) error {
	diags := v.Validate(ctx, pc)
	if diags.HasError() {
		return &ValidationError{Diagnostics: diags}
	}
	return nil
}

// Validate returns every problem found in pc. Warnings are never produced.
func (v Validator) Validate(ctx context.Context, pc *PluginContext) diag.Diagnostics {
	var diags diag.Diagnostics
	attrs := PluginContextAttributes()

	runString(ctx, path.Root("project_name"), pc.ProjectName, stringValidators(attrs, "project_name"), &diags)
	runString(ctx, path.Root("project_root"), pc.ProjectRoot, stringValidators(attrs, "project_root"), &diags)
	runString(ctx, path.Root("environment_name"), pc.EnvironmentName, stringValidators(attrs, "environment_name"), &diags)

	if pc.LocalConfigStore == nil {
		diags.AddAttributeError(path.Root("local_config_store"), "Missing Local Config Store",
			"A plugin context must carry the project's local config store.")
	}

	sourceAttrs := nestedAttributes(attrs["project_sources"])
	for i, s := range pc.ProjectSources {
		p := path.Root("project_sources").AtListIndex(i)
		runString(ctx, p.AtName("name"), s.Name, stringValidators(sourceAttrs, "name"), &diags)
		runString(ctx, p.AtName("repository_url"), s.RepositoryURL, stringValidators(sourceAttrs, "repository_url"), &diags)
	}

	v.validateProvider(ctx, path.Root("provider"), pc.Provider, &diags)

	if pc.Providers == nil {
		diags.AddAttributeError(path.Root("providers"), "Missing Providers",
			"A plugin context must carry the provider registry, even when it is empty.")
		return diags
	}

	runMapKeys(ctx, path.Root("providers"), pc.Providers.Names(), mapValidators(attrs, "providers"), &diags)
	for _, name := range pc.Providers.Names() {
		p := path.Root("providers").AtMapKey(name)
		provider := pc.Providers[name]
		if provider.Name != name {
			diags.AddAttributeError(p.AtName("name"), "Provider Name Mismatch",
				fmt.Sprintf("Registry key %q holds provider %q.", name, provider.Name))
		}
		v.validateProvider(ctx, p, provider, &diags)
	}

	return diags
}

func (v Validator) validateProvider(ctx context.Context, p path.Path, provider Provider, diags *diag.Diagnostics) {
	attrs := ProviderAttributes()
	runString(ctx, p.AtName("name"), provider.Name, stringValidators(attrs, "name"), diags)

	if provider.Config == nil {
		diags.AddAttributeError(p.AtName("config"), "Missing Provider Config",
			fmt.Sprintf("Provider %q has no config document.", provider.Name))
		return
	}

	cs, ok := v.ConfigSchemas[provider.Name]
	if !ok {
		cs = BaseConfigSchema()
	}
	diags.Append(cs.ValidateConfig(ctx, p.AtName("config"), provider.Config)...)

	if name, ok := provider.Config["name"].(string); ok && name != provider.Name {
		diags.AddAttributeError(p.AtName("config").AtName("name"), "Provider Name Mismatch",
			fmt.Sprintf("Provider %q has config for provider %q.", provider.Name, name))
	}

	pages, err := provider.DashboardPages()
	if err != nil {
		diags.AddAttributeError(p.AtName("dashboard_pages"), "Invalid Dashboard Pages", err.Error())
		return
	}
	pageAttrs := nestedAttributes(attrs["dashboard_pages"])
	for i, page := range pages {
		pp := p.AtName("dashboard_pages").AtListIndex(i)
		runString(ctx, pp.AtName("name"), page.Name, stringValidators(pageAttrs, "name"), diags)
		runString(ctx, pp.AtName("title"), page.Title, stringValidators(pageAttrs, "title"), diags)
		runString(ctx, pp.AtName("url"), page.URL, stringValidators(pageAttrs, "url"), diags)
	}
}

// ValidateConfig checks cfg against the schema. p is the path reported in
// diagnostics.
func (s ConfigSchema) ValidateConfig(ctx context.Context, p path.Path, cfg garden.ProviderConfig) diag.Diagnostics {
	var diags diag.Diagnostics

	names := make([]string, 0, len(s.Attributes))
	for name := range s.Attributes {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		a := s.Attributes[name]
		ap := p.AtName(name)

		raw, present := cfg[name]
		if !present || raw == nil {
			if a.IsRequired() {
				diags.AddAttributeError(ap, "Missing Required Provider Setting",
					fmt.Sprintf("The provider setting %q is required.", name))
			}
			continue
		}

		switch a := a.(type) {
		case schema.StringAttribute:
			str, ok := raw.(string)
			if !ok {
				addTypeError(&diags, ap, "a string", raw)
				continue
			}
			runString(ctx, ap, str, a.Validators, &diags)

		case schema.BoolAttribute:
			b, ok := raw.(bool)
			if !ok {
				addTypeError(&diags, ap, "a boolean", raw)
				continue
			}
			for _, val := range a.Validators {
				resp := &validator.BoolResponse{}
				val.ValidateBool(ctx, validator.BoolRequest{Path: ap, PathExpression: ap.Expression(), ConfigValue: types.BoolValue(b)}, resp)
				diags.Append(resp.Diagnostics...)
			}

		case schema.Int64Attribute:
			n, ok := toInt64(raw)
			if !ok {
				addTypeError(&diags, ap, "an integer", raw)
				continue
			}
			for _, val := range a.Validators {
				resp := &validator.Int64Response{}
				val.ValidateInt64(ctx, validator.Int64Request{Path: ap, PathExpression: ap.Expression(), ConfigValue: types.Int64Value(n)}, resp)
				diags.Append(resp.Diagnostics...)
			}

		case schema.ListAttribute:
			if !a.ElementType.Equal(types.StringType) {
				diags.AddAttributeError(ap, "Unsupported Provider Setting Schema",
					fmt.Sprintf("List setting %q must have string elements.", name))
				continue
			}
			items, ok := raw.([]any)
			if !ok {
				addTypeError(&diags, ap, "a list of strings", raw)
				continue
			}
			elems := make([]attr.Value, 0, len(items))
			valid := true
			for i, item := range items {
				str, ok := item.(string)
				if !ok {
					addTypeError(&diags, ap.AtListIndex(i), "a string", item)
					valid = false
					continue
				}
				elems = append(elems, types.StringValue(str))
			}
			if !valid {
				continue
			}
			list := types.ListValueMust(types.StringType, elems)
			for _, val := range a.Validators {
				resp := &validator.ListResponse{}
				val.ValidateList(ctx, validator.ListRequest{Path: ap, PathExpression: ap.Expression(), ConfigValue: list}, resp)
				diags.Append(resp.Diagnostics...)
			}

		default:
			diags.AddAttributeError(ap, "Unsupported Provider Setting Schema",
				fmt.Sprintf("Setting %q uses an attribute kind (%T) that provider configs do not support.", name, a))
		}
	}

	return diags
}

func addTypeError(diags *diag.Diagnostics, p path.Path, want string, got any) {
	diags.AddAttributeError(p, "Invalid Provider Setting Type",
		fmt.Sprintf("Expected %s, got %T.", want, got))
}

// toInt64 accepts the integer shapes produced by YAML and JSON decoding.
func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int64:
		return n, true
	case int32:
		return int64(n), true
	case uint64:
		if n > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	case float64:
		if n != math.Trunc(n) || n > math.MaxInt64 || n < math.MinInt64 {
			return 0, false
		}
		return int64(n), true
	}
	return 0, false
}

func runString(ctx context.Context, p path.Path, value string, validators []validator.String, diags *diag.Diagnostics) {
	for _, v := range validators {
		resp := &validator.StringResponse{}
		v.ValidateString(ctx, validator.StringRequest{
			Path:           p,
			PathExpression: p.Expression(),
			ConfigValue:    types.StringValue(value),
		}, resp)
		diags.Append(resp.Diagnostics...)
	}
}

// runMapKeys applies map validators that only inspect keys, such as
// mapvalidator.KeysAre, to the given key set.
func runMapKeys(ctx context.Context, p path.Path, keys []string, validators []validator.Map, diags *diag.Diagnostics) {
	elems := make(map[string]attr.Value, len(keys))
	for _, k := range keys {
		elems[k] = types.StringValue(k)
	}
	m := types.MapValueMust(types.StringType, elems)

	for _, v := range validators {
		resp := &validator.MapResponse{}
		v.ValidateMap(ctx, validator.MapRequest{Path: p, PathExpression: p.Expression(), ConfigValue: m}, resp)
		diags.Append(resp.Diagnostics...)
	}
}

func stringValidators(attrs map[string]schema.Attribute, name string) []validator.String {
	a, _ := attrs[name].(schema.StringAttribute)
	return a.Validators
}

func mapValidators(attrs map[string]schema.Attribute, name string) []validator.Map {
	a, _ := attrs[name].(schema.MapNestedAttribute)
	return a.Validators
}

func nestedAttributes(a schema.Attribute) map[string]schema.Attribute {
	switch a := a.(type) {
	case schema.ListNestedAttribute:
		return a.NestedObject.Attributes
	case schema.MapNestedAttribute:
		return a.NestedObject.Attributes
	case schema.SingleNestedAttribute:
		return a.Attributes
	}
	return nil
}
