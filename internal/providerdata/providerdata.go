// Package providerdata defines the ProviderData struct that is shared between
// the provider and its resources / data sources. It is separated into its own
// package to avoid import cycles (provider -> datasource -> provider).
package providerdata

import (
	"github.com/hashicorp/terraform-plugin-framework/types"

	"github.com/gardenctx/terraform-provider-garden/internal/garden"
)

// ProviderData is configured during provider.Configure() and shared with
// resources via resp.ResourceData and resp.DataSourceData.
type ProviderData struct {
	// Garden is the loaded project. It is read-only after Configure.
	Garden *garden.Garden
}

// LocalConfigModel maps the local_config {} block in the provider
// configuration.
type LocalConfigModel struct {
	Type           types.String `tfsdk:"type"`
	Name           types.String `tfsdk:"name"`
	Bucket         types.String `tfsdk:"bucket"`
	Region         types.String `tfsdk:"region"`
	KMSKeyID       types.String `tfsdk:"kms_key_id"`
	StorageAccount types.String `tfsdk:"storage_account"`
	ContainerName  types.String `tfsdk:"container_name"`
	KMSKeyName     types.String `tfsdk:"kms_key_name"`
	Prefix         types.String `tfsdk:"prefix"`
	MaxRetries     types.Int64  `tfsdk:"max_retries"`
	RetryBackoff   types.String `tfsdk:"retry_backoff"`
}
