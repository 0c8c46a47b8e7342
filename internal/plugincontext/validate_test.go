package plugincontext

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/hashicorp/terraform-plugin-framework-validators/int64validator"
	"github.com/hashicorp/terraform-plugin-framework-validators/listvalidator"
	"github.com/hashicorp/terraform-plugin-framework/datasource/schema"
	"github.com/hashicorp/terraform-plugin-framework/diag"
	"github.com/hashicorp/terraform-plugin-framework/path"
	"github.com/hashicorp/terraform-plugin-framework/schema/validator"
	"github.com/hashicorp/terraform-plugin-framework/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gardenctx/terraform-provider-garden/internal/garden"
)

func validContext(t *testing.T) *PluginContext {
	t.Helper()
	g := testGarden(map[string]garden.ProviderConfig{
		"kubernetes": {"name": "kubernetes", "context": "minikube"},
		"monitoring": {"dashboardPages": []any{
			map[string]any{"name": "grafana", "title": "Grafana", "url": "https://grafana.example.com"},
		}},
	})
	pc, err := CreatePluginContext(context.Background(), g, "kubernetes")
	require.NoError(t, err)
	return pc
}

func diagPaths(diags diag.Diagnostics) []string {
	var paths []string
	for _, d := range diags.Errors() {
		if withPath, ok := d.(diag.DiagnosticWithPath); ok {
			paths = append(paths, withPath.Path().String())
		}
	}
	return paths
}

func TestValidate_Valid(t *testing.T) {
	diags := Validate(context.Background(), validContext(t))
	assert.False(t, diags.HasError(), "%v", diags)
}

func TestValidate_DefaultProvider(t *testing.T) {
	pc, err := CreatePluginContext(context.Background(), testGarden(nil), DefaultProviderName)
	require.NoError(t, err)

	diags := Validate(context.Background(), pc)
	assert.False(t, diags.HasError(), "%v", diags)
}

func TestValidate_ProjectRoots(t *testing.T) {
	for _, root := range []string{"/home/dev/my-project", "/home/dev/100%-done", "C:/Users/dev/proj"} {
		t.Run(root, func(t *testing.T) {
			pc := validContext(t)
			pc.ProjectRoot = root
			diags := Validate(context.Background(), pc)
			assert.False(t, diags.HasError(), "%v", diags)
		})
	}
}

func TestValidate_Invalid(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(pc *PluginContext)
		wantPath string
	}{
		{
			name:     "project name not an identifier",
			mutate:   func(pc *PluginContext) { pc.ProjectName = "My Project" },
			wantPath: "project_name",
		},
		{
			name:     "relative project root",
			mutate:   func(pc *PluginContext) { pc.ProjectRoot = "projects/mine" },
			wantPath: "project_root",
		},
		{
			name:     "environment name too long",
			mutate:   func(pc *PluginContext) { pc.EnvironmentName = strings.Repeat("e", 64) },
			wantPath: "environment_name",
		},
		{
			name:     "missing store",
			mutate:   func(pc *PluginContext) { pc.LocalConfigStore = nil },
			wantPath: "local_config_store",
		},
		{
			name: "source without branch",
			mutate: func(pc *PluginContext) {
				pc.ProjectSources[0].RepositoryURL = "https://github.com/example/charts.git"
			},
			wantPath: "project_sources[0].repository_url",
		},
		{
			name: "source with unsupported scheme",
			mutate: func(pc *PluginContext) {
				pc.ProjectSources[0].RepositoryURL = "ftp://example.com/charts#main"
			},
			wantPath: "project_sources[0].repository_url",
		},
		{
			name: "config name mismatch",
			mutate: func(pc *PluginContext) {
				pc.Provider.Config = garden.ProviderConfig{"name": "helm"}
			},
			wantPath: "provider.config.name",
		},
		{
			name: "registry key mismatch",
			mutate: func(pc *PluginContext) {
				pc.Providers["kubernetes"] = Provider{Name: "helm", Config: garden.ProviderConfig{}}
			},
			wantPath: `providers["kubernetes"].name`,
		},
		{
			name: "invalid registry key",
			mutate: func(pc *PluginContext) {
				pc.Providers["Bad_Key"] = Provider{Name: "Bad_Key", Config: garden.ProviderConfig{}}
			},
			wantPath: `providers["Bad_Key"]`,
		},
		{
			name:     "missing registry",
			mutate:   func(pc *PluginContext) { pc.Providers = nil },
			wantPath: "providers",
		},
		{
			name: "dashboard page with non-http url",
			mutate: func(pc *PluginContext) {
				pc.Providers["monitoring"].Config["dashboardPages"] = []any{
					map[string]any{"name": "grafana", "title": "Grafana", "url": "file:///tmp/index.html"},
				}
			},
			wantPath: `providers["monitoring"].dashboard_pages[0].url`,
		},
		{
			name: "dashboard page title too long",
			mutate: func(pc *PluginContext) {
				pc.Providers["monitoring"].Config["dashboardPages"] = []any{
					map[string]any{"name": "grafana", "title": "A title that is far too long for the menu", "url": "https://grafana.example.com"},
				}
			},
			wantPath: `providers["monitoring"].dashboard_pages[0].title`,
		},
		{
			name: "undecodable dashboard pages",
			mutate: func(pc *PluginContext) {
				pc.Providers["monitoring"].Config["dashboardPages"] = "grafana"
			},
			wantPath: `providers["monitoring"].dashboard_pages`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pc := validContext(t)
			tt.mutate(pc)

			diags := Validate(context.Background(), pc)
			require.True(t, diags.HasError())
			assert.Contains(t, diagPaths(diags), tt.wantPath)
		})
	}
}

func TestValidator_Check(t *testing.T) {
	pc := validContext(t)
	pc.ProjectName = "Invalid Name"

	err := Validator{}.Check(context.Background(), pc)
	require.Error(t, err)

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.True(t, verr.Diagnostics.HasError())
	assert.Contains(t, err.Error(), "project_name")

	assert.NoError(t, Validator{}.Check(context.Background(), validContext(t)))
}

func kubernetesSchema() ConfigSchema {
	return BaseConfigSchema().Extend(map[string]schema.Attribute{
		"context": schema.StringAttribute{Required: true},
		"replicas": schema.Int64Attribute{
			Optional:   true,
			Validators: []validator.Int64{int64validator.Between(1, 10)},
		},
		"tls": schema.BoolAttribute{Optional: true},
		"hosts": schema.ListAttribute{
			ElementType: types.StringType,
			Optional:    true,
			Validators:  []validator.List{listvalidator.UniqueValues()},
		},
	})
}

func TestConfigSchema_ValidateConfig(t *testing.T) {
	tests := []struct {
		name      string
		config    garden.ProviderConfig
		wantPaths []string
	}{
		{
			name: "valid",
			config: garden.ProviderConfig{
				"context":  "minikube",
				"replicas": 3,
				"tls":      true,
				"hosts":    []any{"a.example.com", "b.example.com"},
				"extra":    map[string]any{"unchecked": true},
			},
		},
		{
			name:   "json integers",
			config: garden.ProviderConfig{"context": "minikube", "replicas": float64(3)},
		},
		{
			name:      "missing required",
			config:    garden.ProviderConfig{"replicas": 3},
			wantPaths: []string{"config.context"},
		},
		{
			name:      "null required",
			config:    garden.ProviderConfig{"context": nil},
			wantPaths: []string{"config.context"},
		},
		{
			name:      "wrong types",
			config:    garden.ProviderConfig{"context": 1, "tls": "yes", "replicas": 1.5},
			wantPaths: []string{"config.context", "config.replicas", "config.tls"},
		},
		{
			name:      "validator failure",
			config:    garden.ProviderConfig{"context": "minikube", "replicas": 20},
			wantPaths: []string{"config.replicas"},
		},
		{
			name:      "list element type",
			config:    garden.ProviderConfig{"context": "minikube", "hosts": []any{"a", 2}},
			wantPaths: []string{"config.hosts[1]"},
		},
		{
			name:      "duplicate list values",
			config:    garden.ProviderConfig{"context": "minikube", "hosts": []any{"a", "a"}},
			wantPaths: []string{"config.hosts"},
		},
		{
			name:      "invalid base name",
			config:    garden.ProviderConfig{"context": "minikube", "name": "Kubernetes"},
			wantPaths: []string{"config.name"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			diags := kubernetesSchema().ValidateConfig(context.Background(), path.Root("config"), tt.config)
			assert.ElementsMatch(t, tt.wantPaths, diagPaths(diags))
		})
	}
}

func TestValidator_ProviderSchemas(t *testing.T) {
	v := Validator{ConfigSchemas: map[string]ConfigSchema{"kubernetes": kubernetesSchema()}}

	pc := validContext(t)
	assert.False(t, v.Validate(context.Background(), pc).HasError())

	pc.Providers["kubernetes"].Config["replicas"] = 0
	assert.Contains(t, diagPaths(v.Validate(context.Background(), pc)), `providers["kubernetes"].config.replicas`)
}

func TestConfigSchema_Extend(t *testing.T) {
	base := BaseConfigSchema()
	ext := base.Extend(map[string]schema.Attribute{"context": schema.StringAttribute{Required: true}})

	assert.Len(t, base.Attributes, 1)
	assert.Len(t, ext.Attributes, 2)
	assert.Contains(t, ext.Attributes, "name")
}

func TestURLValidator(t *testing.T) {
	tests := []struct {
		name  string
		v     urlValidator
		value string
		ok    bool
	}{
		{"absolute root", projectRootValidator, "/home/dev/project", true},
		{"relative root", projectRootValidator, "dev/project", false},
		{"root with scheme", projectRootValidator, "file:///home/dev", false},
		{"root with percent", projectRootValidator, "/home/dev/100%-done", true},
		{"windows drive root", projectRootValidator, "C:/Users/dev/proj", true},
		{"drive letter without slash", projectRootValidator, "C:proj", false},
		{"https source", repositoryURLValidator, "https://github.com/org/repo.git#v1.2.0", true},
		{"git source", repositoryURLValidator, "git://github.com/org/repo.git#main", true},
		{"source without fragment", repositoryURLValidator, "https://github.com/org/repo.git", false},
		{"dashboard http", dashboardURLValidator, "http://localhost:3000/d/abc", true},
		{"dashboard ssh", dashboardURLValidator, "ssh://host/path", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.ok, tt.v.check(tt.value) == "")
		})
	}
}
