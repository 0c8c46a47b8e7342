package localconfig

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/hashicorp/terraform-plugin-framework-validators/listvalidator"
	"github.com/hashicorp/terraform-plugin-framework-validators/stringvalidator"
	"github.com/hashicorp/terraform-plugin-framework/diag"
	"github.com/hashicorp/terraform-plugin-framework/path"
	"github.com/hashicorp/terraform-plugin-framework/resource"
	"github.com/hashicorp/terraform-plugin-framework/resource/schema"
	"github.com/hashicorp/terraform-plugin-framework/resource/schema/listplanmodifier"
	"github.com/hashicorp/terraform-plugin-framework/resource/schema/planmodifier"
	"github.com/hashicorp/terraform-plugin-framework/resource/schema/stringplanmodifier"
	"github.com/hashicorp/terraform-plugin-framework/schema/validator"
	"github.com/hashicorp/terraform-plugin-framework/types"
	"github.com/hashicorp/terraform-plugin-log/tflog"

	"github.com/gardenctx/terraform-provider-garden/internal/localconfig"
	"github.com/gardenctx/terraform-provider-garden/internal/providerdata"
)

// idSeparator joins key path segments into the resource ID.
const idSeparator = "."

var keyPattern = regexp.MustCompile(`^[^.]+$`)

// Compile-time interface checks.
var (
	_ resource.Resource                = &LocalConfigResource{}
	_ resource.ResourceWithConfigure   = &LocalConfigResource{}
	_ resource.ResourceWithImportState = &LocalConfigResource{}
)

// NewLocalConfigResource returns a new resource.Resource for the
// garden_local_config type.
func NewLocalConfigResource() resource.Resource {
	return &LocalConfigResource{}
}

// LocalConfigResource implements the garden_local_config Terraform resource.
// It manages a single string value in the project's local config store, the
// same store every plugin context receives.
type LocalConfigResource struct {
	providerData *providerdata.ProviderData
}

// LocalConfigResourceModel maps the garden_local_config schema to a Go
// struct.
type LocalConfigResourceModel struct {
	ID      types.String `tfsdk:"id"`
	KeyPath types.List   `tfsdk:"key_path"` // List of strings
	Value   types.String `tfsdk:"value"`
}

// --------------------------------------------------------------------------
// Metadata
// --------------------------------------------------------------------------

func (r *LocalConfigResource) Metadata(_ context.Context, req resource.MetadataRequest, resp *resource.MetadataResponse) {
	resp.TypeName = req.ProviderTypeName + "_local_config"
}

// --------------------------------------------------------------------------
// Schema
// --------------------------------------------------------------------------

func (r *LocalConfigResource) Schema(_ context.Context, _ resource.SchemaRequest, resp *resource.SchemaResponse) {
	resp.Schema = schema.Schema{
		MarkdownDescription: "Manages one value in the Garden project's local config store. Intermediate mappings along `key_path` are created as needed. Changing `key_path` forces recreation.",

		Attributes: map[string]schema.Attribute{
			"key_path": schema.ListAttribute{
				MarkdownDescription: "Path of keys from the document root to the value, e.g. `[\"kubernetes\", \"context\"]`.",
				Required:            true,
				ElementType:         types.StringType,
				Validators: []validator.List{
					listvalidator.SizeAtLeast(1),
					listvalidator.ValueStringsAre(
						stringvalidator.RegexMatches(keyPattern, "must be non-empty and must not contain \".\""),
					),
				},
				PlanModifiers: []planmodifier.List{
					listplanmodifier.RequiresReplace(),
				},
			},
			"value": schema.StringAttribute{
				MarkdownDescription: "The value stored at `key_path`.",
				Required:            true,
			},
			"id": schema.StringAttribute{
				MarkdownDescription: "The key path joined with `.`.",
				Computed:            true,
				PlanModifiers: []planmodifier.String{
					stringplanmodifier.UseStateForUnknown(),
				},
			},
		},
	}
}

// --------------------------------------------------------------------------
// Configure
// --------------------------------------------------------------------------

func (r *LocalConfigResource) Configure(_ context.Context, req resource.ConfigureRequest, resp *resource.ConfigureResponse) {
	if req.ProviderData == nil {
		return
	}

	pd, ok := req.ProviderData.(*providerdata.ProviderData)
	if !ok {
		resp.Diagnostics.AddError(
			"Unexpected Resource Configure Type",
			fmt.Sprintf("Expected *providerdata.ProviderData, got: %T. Please report this issue to the provider developers.", req.ProviderData),
		)
		return
	}

	r.providerData = pd
}

func (r *LocalConfigResource) store() (*localconfig.Store, error) {
	if r.providerData == nil || r.providerData.Garden == nil || r.providerData.Garden.LocalConfigStore == nil {
		return nil, fmt.Errorf("the garden provider has not been configured")
	}
	return r.providerData.Garden.LocalConfigStore, nil
}

// --------------------------------------------------------------------------
// Create
// --------------------------------------------------------------------------

func (r *LocalConfigResource) Create(ctx context.Context, req resource.CreateRequest, resp *resource.CreateResponse) {
	var plan LocalConfigResourceModel
	resp.Diagnostics.Append(req.Plan.Get(ctx, &plan)...)
	if resp.Diagnostics.HasError() {
		return
	}

	resp.Diagnostics.Append(r.write(ctx, &plan)...)
	if resp.Diagnostics.HasError() {
		return
	}

	resp.Diagnostics.Append(resp.State.Set(ctx, &plan)...)
}

// --------------------------------------------------------------------------
// Read
// --------------------------------------------------------------------------

func (r *LocalConfigResource) Read(ctx context.Context, req resource.ReadRequest, resp *resource.ReadResponse) {
	var state LocalConfigResourceModel
	resp.Diagnostics.Append(req.State.Get(ctx, &state)...)
	if resp.Diagnostics.HasError() {
		return
	}

	store, err := r.store()
	if err != nil {
		resp.Diagnostics.AddError("Provider Not Configured", err.Error())
		return
	}

	var keyPath []string
	resp.Diagnostics.Append(state.KeyPath.ElementsAs(ctx, &keyPath, false)...)
	if resp.Diagnostics.HasError() {
		return
	}

	v, found, err := store.Get(ctx, keyPath...)
	if err != nil {
		resp.Diagnostics.AddError("Local Config Read Failed", fmt.Sprintf("Failed to read %q: %s", strings.Join(keyPath, idSeparator), err))
		return
	}
	if !found {
		tflog.Info(ctx, "local config value not found, removing from state", map[string]interface{}{
			"key_path": keyPath,
		})
		resp.State.RemoveResource(ctx)
		return
	}

	value, err := stringify(v)
	if err != nil {
		resp.Diagnostics.AddError("Local Config Read Failed", fmt.Sprintf("Failed to encode %q: %s", strings.Join(keyPath, idSeparator), err))
		return
	}
	state.Value = types.StringValue(value)
	state.ID = types.StringValue(strings.Join(keyPath, idSeparator))

	resp.Diagnostics.Append(resp.State.Set(ctx, &state)...)
}

// --------------------------------------------------------------------------
// Update
// --------------------------------------------------------------------------

func (r *LocalConfigResource) Update(ctx context.Context, req resource.UpdateRequest, resp *resource.UpdateResponse) {
	var plan LocalConfigResourceModel
	resp.Diagnostics.Append(req.Plan.Get(ctx, &plan)...)
	if resp.Diagnostics.HasError() {
		return
	}

	resp.Diagnostics.Append(r.write(ctx, &plan)...)
	if resp.Diagnostics.HasError() {
		return
	}

	resp.Diagnostics.Append(resp.State.Set(ctx, &plan)...)
}

// --------------------------------------------------------------------------
// Delete
// --------------------------------------------------------------------------

func (r *LocalConfigResource) Delete(ctx context.Context, req resource.DeleteRequest, resp *resource.DeleteResponse) {
	var state LocalConfigResourceModel
	resp.Diagnostics.Append(req.State.Get(ctx, &state)...)
	if resp.Diagnostics.HasError() {
		return
	}

	store, err := r.store()
	if err != nil {
		resp.Diagnostics.AddError("Provider Not Configured", err.Error())
		return
	}

	var keyPath []string
	resp.Diagnostics.Append(state.KeyPath.ElementsAs(ctx, &keyPath, false)...)
	if resp.Diagnostics.HasError() {
		return
	}

	if err := store.Delete(ctx, keyPath...); err != nil {
		resp.Diagnostics.AddError("Local Config Delete Failed", fmt.Sprintf("Failed to delete %q: %s", strings.Join(keyPath, idSeparator), err))
		return
	}

	tflog.Info(ctx, "deleted local config value", map[string]interface{}{
		"key_path": keyPath,
		"backend":  store.BackendName(),
	})
}

// --------------------------------------------------------------------------
// Import
// --------------------------------------------------------------------------

// ImportState accepts the key path joined with ".", e.g. "kubernetes.context".
func (r *LocalConfigResource) ImportState(ctx context.Context, req resource.ImportStateRequest, resp *resource.ImportStateResponse) {
	keyPath, err := parseID(req.ID)
	if err != nil {
		resp.Diagnostics.AddError("Invalid Import ID", err.Error())
		return
	}

	list, diags := types.ListValueFrom(ctx, types.StringType, keyPath)
	resp.Diagnostics.Append(diags...)
	if resp.Diagnostics.HasError() {
		return
	}

	resp.Diagnostics.Append(resp.State.SetAttribute(ctx, path.Root("key_path"), list)...)
	resp.Diagnostics.Append(resp.State.SetAttribute(ctx, path.Root("id"), req.ID)...)
}

// --------------------------------------------------------------------------
// Helpers
// --------------------------------------------------------------------------

// write stores the planned value and sets plan.ID.
func (r *LocalConfigResource) write(ctx context.Context, plan *LocalConfigResourceModel) diag.Diagnostics {
	var diags diag.Diagnostics

	store, err := r.store()
	if err != nil {
		diags.AddError("Provider Not Configured", err.Error())
		return diags
	}

	var keyPath []string
	diags.Append(plan.KeyPath.ElementsAs(ctx, &keyPath, false)...)
	if diags.HasError() {
		return diags
	}

	if err := store.Set(ctx, plan.Value.ValueString(), keyPath...); err != nil {
		diags.AddError("Local Config Write Failed", fmt.Sprintf("Failed to write %q: %s", strings.Join(keyPath, idSeparator), err))
		return diags
	}

	plan.ID = types.StringValue(strings.Join(keyPath, idSeparator))

	tflog.Info(ctx, "wrote local config value", map[string]interface{}{
		"key_path": keyPath,
		"backend":  store.BackendName(),
	})
	return diags
}

// parseID splits an import ID into a key path.
func parseID(id string) ([]string, error) {
	if id == "" {
		return nil, fmt.Errorf("import ID must be a key path joined with %q, e.g. \"kubernetes.context\"", idSeparator)
	}
	keyPath := strings.Split(id, idSeparator)
	for _, k := range keyPath {
		if k == "" {
			return nil, fmt.Errorf("import ID %q contains an empty key", id)
		}
	}
	return keyPath, nil
}

// stringify renders a stored value as the resource's string value. Values
// written by other tools may be scalars or mappings.
func stringify(v any) (string, error) {
	switch v := v.(type) {
	case string:
		return v, nil
	case nil:
		return "", nil
	case int, int64, float64, bool:
		return fmt.Sprint(v), nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
