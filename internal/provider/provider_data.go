package provider

import "github.com/gardenctx/terraform-provider-garden/internal/providerdata"

// ProviderData is an alias for the shared ProviderData type. The canonical
// definition lives in the providerdata package to break the import cycle
// with data source and resource packages.
type ProviderData = providerdata.ProviderData

// LocalConfigModel is an alias for the shared LocalConfigModel type.
type LocalConfigModel = providerdata.LocalConfigModel
