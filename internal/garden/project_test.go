package garden

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gardenctx/terraform-provider-garden/internal/backend"
	"github.com/gardenctx/terraform-provider-garden/internal/localconfig"
)

const testProject = `
project:
  name: demo-project
  defaultEnvironment: local
  environmentDefaults:
    providers:
      - name: container
      - name: local-kubernetes
        context: docker-for-desktop
  environments:
    - name: local
      providers:
        - name: local-kubernetes
          context: minikube
    - name: prod
      providers:
        - name: kubernetes
          context: gke-prod
  sources:
    - name: shared-lib
      repositoryUrl: https://github.com/example/shared-lib.git#main
`

func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for rel, content := range files {
		p := filepath.Join(dir, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
	return dir
}

func TestLoadProject_DefaultEnvironment(t *testing.T) {
	root := writeFiles(t, map[string]string{"garden.yml": testProject})

	g, err := LoadProject(context.Background(), Options{ProjectRoot: root})
	require.NoError(t, err)

	assert.Equal(t, "demo-project", g.ProjectName)
	assert.Equal(t, "local", g.EnvironmentName)
	assert.Equal(t, []string{"local", "prod"}, g.Environments)
	assert.Equal(t, filepath.ToSlash(root), g.ProjectRoot)
	assert.Equal(t, []SourceConfig{{Name: "shared-lib", RepositoryURL: "https://github.com/example/shared-lib.git#main"}}, g.ProjectSources)

	require.Len(t, g.ProviderConfigs, 2)
	assert.Equal(t, ProviderConfig{"name": "container"}, g.ProviderConfigs["container"])
	// The environment entry replaces the environmentDefaults entry.
	assert.Equal(t, ProviderConfig{"name": "local-kubernetes", "context": "minikube"}, g.ProviderConfigs["local-kubernetes"])

	require.NotNil(t, g.LocalConfigStore)
	assert.Equal(t, "local", g.LocalConfigStore.BackendName())
}

func TestLoadProject_ExplicitEnvironment(t *testing.T) {
	root := writeFiles(t, map[string]string{"garden.yml": testProject})
	store := localconfig.New(backend.NewMemoryBackend("mem"))

	g, err := LoadProject(context.Background(), Options{ProjectRoot: root, Environment: "prod", Store: store})
	require.NoError(t, err)

	assert.Equal(t, "prod", g.EnvironmentName)
	assert.Same(t, store, g.LocalConfigStore)
	assert.ElementsMatch(t, []string{"container", "local-kubernetes", "kubernetes"}, keys(g.ProviderConfigs))
}

func TestLoadProject_FirstEnvironmentWhenNoDefault(t *testing.T) {
	root := writeFiles(t, map[string]string{"garden.yml": `
project:
  name: p
  environments:
    - name: dev
    - name: staging
`})

	g, err := LoadProject(context.Background(), Options{ProjectRoot: root})
	require.NoError(t, err)
	assert.Equal(t, "dev", g.EnvironmentName)
	assert.Empty(t, g.ProviderConfigs)
	assert.NotNil(t, g.ProviderConfigs)
}

func TestLoadProject_Errors(t *testing.T) {
	tests := []struct {
		name    string
		config  string
		env     string
		wantMsg string
	}{
		{
			name:    "missing project block",
			config:  "module:\n  name: x\n  type: container\n",
			wantMsg: "missing project block",
		},
		{
			name:    "invalid project name",
			config:  "project:\n  name: Bad_Name\n  environments:\n    - name: local\n",
			wantMsg: `project name "Bad_Name" is invalid`,
		},
		{
			name:    "no environments",
			config:  "project:\n  name: p\n",
			wantMsg: "declares no environments",
		},
		{
			name:    "unknown environment",
			config:  "project:\n  name: p\n  environments:\n    - name: local\n",
			env:     "prod",
			wantMsg: `environment "prod" is not declared`,
		},
		{
			name:    "duplicate environment",
			config:  "project:\n  name: p\n  environments:\n    - name: local\n    - name: local\n",
			wantMsg: "declared more than once",
		},
		{
			name:    "provider without name",
			config:  "project:\n  name: p\n  environments:\n    - name: local\n      providers:\n        - context: x\n",
			wantMsg: "provider name \"\" is invalid",
		},
		{
			name:    "duplicate provider",
			config:  "project:\n  name: p\n  environments:\n    - name: local\n      providers:\n        - name: a\n        - name: a\n",
			wantMsg: "configured more than once",
		},
		{
			name:    "source without url",
			config:  "project:\n  name: p\n  environments:\n    - name: local\n  sources:\n    - name: s\n",
			wantMsg: "repositoryUrl is required",
		},
		{
			name:    "invalid yaml",
			config:  "project: [\n",
			wantMsg: "invalid YAML",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := writeFiles(t, map[string]string{"garden.yml": tt.config})
			_, err := LoadProject(context.Background(), Options{ProjectRoot: root, Environment: tt.env})
			require.Error(t, err)

			var cfgErr *ConfigurationError
			require.True(t, errors.As(err, &cfgErr), "want *ConfigurationError, got %T", err)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestLoadProject_MissingConfigFile(t *testing.T) {
	_, err := LoadProject(context.Background(), Options{ProjectRoot: t.TempDir()})
	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, err.Error(), "no garden.yml found")
}

func TestIsIdentifier(t *testing.T) {
	valid := []string{"a", "kubernetes", "local-kubernetes", "a1-b2", "x0"}
	invalid := []string{"", "_default", "1abc", "Abc", "a--b", "a-", "-a", "a_b", "a.b",
		"a234567890123456789012345678901234567890123456789012345678901234"}

	for _, s := range valid {
		assert.True(t, IsIdentifier(s), "IsIdentifier(%q)", s)
	}
	for _, s := range invalid {
		assert.False(t, IsIdentifier(s), "IsIdentifier(%q)", s)
	}
}

func keys(m map[string]ProviderConfig) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
