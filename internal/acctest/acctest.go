package acctest

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/hashicorp/terraform-plugin-framework/providerserver"
	"github.com/hashicorp/terraform-plugin-go/tfprotov6"

	"github.com/gardenctx/terraform-provider-garden/internal/backend"
	"github.com/gardenctx/terraform-provider-garden/internal/provider"
)

// TestProtoV6ProviderFactories is a map of provider factory functions
// suitable for use with the terraform-plugin-testing framework.
var TestProtoV6ProviderFactories = map[string]func() (tfprotov6.ProviderServer, error){
	"garden": providerserver.NewProtocol6WithError(provider.New("test")()),
}

// ProjectYAML is a project with two environments, provider defaults that the
// local environment overrides, one source and a dashboard page.
const ProjectYAML = `project:
  name: my-project
  defaultEnvironment: local
  environmentDefaults:
    providers:
      - name: exec
      - name: kubernetes
        context: production
  environments:
    - name: local
      providers:
        - name: kubernetes
          context: minikube
          dashboardPages:
            - name: dashboard
              title: Dashboard
              url: http://localhost:8001
    - name: staging
  sources:
    - name: charts
      repositoryUrl: https://github.com/example/charts.git#main
`

// SetupTest resets the global memory backend registry so each test starts
// with a clean slate.
func SetupTest(t *testing.T) {
	t.Helper()
	backend.ResetMemoryBackends()
	t.Cleanup(func() {
		backend.ResetMemoryBackends()
	})
}

// CreateTempProject creates a temporary project directory with the given
// files and returns its absolute path. The files map keys are relative paths
// and values are file contents. The directory is automatically cleaned up
// when the test finishes.
func CreateTempProject(t *testing.T, files map[string]string) string {
	t.Helper()

	dir := t.TempDir()
	for relPath, content := range files {
		fullPath := filepath.Join(dir, relPath)
		if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
			t.Fatalf("failed to create parent dir for %s: %s", relPath, err)
		}
		if err := os.WriteFile(fullPath, []byte(content), 0o644); err != nil {
			t.Fatalf("failed to write file %s: %s", relPath, err)
		}
	}
	return dir
}

// ProviderConfig returns an HCL snippet that configures the garden provider
// for the project at root with the default file-backed local config store.
func ProviderConfig(root string) string {
	return fmt.Sprintf(`
provider "garden" {
  project_root = %q
}
`, root)
}

// ProviderConfigMemory returns an HCL snippet that configures the garden
// provider for the project at root with a named memory local config store.
func ProviderConfigMemory(root, storeName string) string {
	return fmt.Sprintf(`
provider "garden" {
  project_root = %q

  local_config {
    type = "memory"
    name = %q
  }
}
`, root, storeName)
}
