package provider_test

import (
	"regexp"
	"testing"

	"github.com/hashicorp/terraform-plugin-testing/helper/resource"

	"github.com/gardenctx/terraform-provider-garden/internal/acctest"
)

func TestAccPluginContextDataSource_Configured(t *testing.T) {
	acctest.SetupTest(t)

	root := acctest.CreateTempProject(t, map[string]string{
		"garden.yml": acctest.ProjectYAML,
	})

	resource.Test(t, resource.TestCase{
		ProtoV6ProviderFactories: acctest.TestProtoV6ProviderFactories,
		Steps: []resource.TestStep{
			{
				Config: acctest.ProviderConfig(root) + `
data "garden_plugin_context" "k8s" {
  provider_name = "kubernetes"
}
`,
				Check: resource.ComposeAggregateTestCheckFunc(
					resource.TestCheckResourceAttr("data.garden_plugin_context.k8s", "id", "my-project/local/kubernetes"),
					resource.TestCheckResourceAttr("data.garden_plugin_context.k8s", "project_name", "my-project"),
					resource.TestCheckResourceAttr("data.garden_plugin_context.k8s", "environment_name", "local"),
					resource.TestCheckResourceAttr("data.garden_plugin_context.k8s", "local_config_store", "local"),
					resource.TestCheckResourceAttr("data.garden_plugin_context.k8s", "project_sources.#", "1"),
					resource.TestCheckResourceAttr("data.garden_plugin_context.k8s", "project_sources.0.name", "charts"),
					resource.TestCheckResourceAttr("data.garden_plugin_context.k8s", "provider.name", "kubernetes"),
					resource.TestCheckResourceAttr("data.garden_plugin_context.k8s", "provider.config_json",
						`{"context":"minikube","dashboardPages":[{"name":"dashboard","title":"Dashboard","url":"http://localhost:8001"}],"name":"kubernetes"}`),
					resource.TestCheckResourceAttr("data.garden_plugin_context.k8s", "provider.dashboard_pages.#", "1"),
					resource.TestCheckResourceAttr("data.garden_plugin_context.k8s", "provider.dashboard_pages.0.url", "http://localhost:8001"),
					resource.TestCheckResourceAttr("data.garden_plugin_context.k8s", "provider.dashboard_pages.0.new_window", "false"),
					resource.TestCheckResourceAttr("data.garden_plugin_context.k8s", "providers.%", "2"),
					resource.TestCheckResourceAttr("data.garden_plugin_context.k8s", "providers.exec.name", "exec"),
					resource.TestCheckResourceAttr("data.garden_plugin_context.k8s", "providers.exec.config_json", `{"name":"exec"}`),
					resource.TestCheckResourceAttr("data.garden_plugin_context.k8s", "providers.kubernetes.name", "kubernetes"),
				),
			},
		},
	})
}

func TestAccPluginContextDataSource_Default(t *testing.T) {
	acctest.SetupTest(t)

	root := acctest.CreateTempProject(t, map[string]string{
		"garden.yml": acctest.ProjectYAML,
	})

	resource.Test(t, resource.TestCase{
		ProtoV6ProviderFactories: acctest.TestProtoV6ProviderFactories,
		Steps: []resource.TestStep{
			{
				Config: acctest.ProviderConfig(root) + `
data "garden_plugin_context" "default" {
  provider_name = "_default"
}
`,
				Check: resource.ComposeAggregateTestCheckFunc(
					resource.TestCheckResourceAttr("data.garden_plugin_context.default", "provider.name", "_default"),
					resource.TestCheckResourceAttr("data.garden_plugin_context.default", "provider.config_json", "{}"),
					resource.TestCheckResourceAttr("data.garden_plugin_context.default", "provider.dashboard_pages.#", "0"),
					resource.TestCheckResourceAttr("data.garden_plugin_context.default", "providers.%", "2"),
					resource.TestCheckNoResourceAttr("data.garden_plugin_context.default", "providers._default"),
				),
			},
		},
	})
}

func TestAccPluginContextDataSource_StagingEnvironment(t *testing.T) {
	acctest.SetupTest(t)

	root := acctest.CreateTempProject(t, map[string]string{
		"garden.yml": acctest.ProjectYAML,
	})

	resource.Test(t, resource.TestCase{
		ProtoV6ProviderFactories: acctest.TestProtoV6ProviderFactories,
		Steps: []resource.TestStep{
			{
				Config: `
provider "garden" {
  project_root = "` + root + `"
  environment  = "staging"
}

data "garden_plugin_context" "k8s" {
  provider_name = "kubernetes"
}
`,
				Check: resource.ComposeAggregateTestCheckFunc(
					resource.TestCheckResourceAttr("data.garden_plugin_context.k8s", "environment_name", "staging"),
					resource.TestCheckResourceAttr("data.garden_plugin_context.k8s", "provider.config_json", `{"context":"production","name":"kubernetes"}`),
				),
			},
		},
	})
}

func TestAccPluginContextDataSource_UnknownProvider(t *testing.T) {
	acctest.SetupTest(t)

	root := acctest.CreateTempProject(t, map[string]string{
		"garden.yml": acctest.ProjectYAML,
	})

	resource.Test(t, resource.TestCase{
		ProtoV6ProviderFactories: acctest.TestProtoV6ProviderFactories,
		Steps: []resource.TestStep{
			{
				Config: acctest.ProviderConfig(root) + `
data "garden_plugin_context" "missing" {
  provider_name = "nonexistent"
}
`,
				ExpectError: regexp.MustCompile(`(?s)Unknown Garden Provider.*nonexistent`),
			},
		},
	})
}

func TestAccPluginContextDataSource_ValidationFailure(t *testing.T) {
	acctest.SetupTest(t)

	root := acctest.CreateTempProject(t, map[string]string{
		"garden.yml": `project:
  name: my-project
  environments:
    - name: local
      providers:
        - name: monitoring
          dashboardPages:
            - name: grafana
              title: Grafana
              url: file:///tmp/grafana.html
`,
	})

	resource.Test(t, resource.TestCase{
		ProtoV6ProviderFactories: acctest.TestProtoV6ProviderFactories,
		Steps: []resource.TestStep{
			{
				Config: acctest.ProviderConfig(root) + `
data "garden_plugin_context" "strict" {
  provider_name = "monitoring"
}
`,
				ExpectError: regexp.MustCompile(`must\s+use\s+one\s+of\s+the\s+schemes`),
			},
			{
				Config: acctest.ProviderConfig(root) + `
data "garden_plugin_context" "lenient" {
  provider_name = "monitoring"
  validate      = false
}
`,
				Check: resource.TestCheckResourceAttr("data.garden_plugin_context.lenient", "provider.dashboard_pages.0.url", "file:///tmp/grafana.html"),
			},
		},
	})
}
