package provider

import "github.com/hashicorp/terraform-plugin-framework/types"

// ProviderModel maps the provider schema to a Go struct.
type ProviderModel struct {
	ProjectRoot    types.String       `tfsdk:"project_root"`
	Environment    types.String       `tfsdk:"environment"`
	ModuleExcludes types.List         `tfsdk:"module_excludes"` // List of strings
	LocalConfig    []LocalConfigModel `tfsdk:"local_config"`
}
