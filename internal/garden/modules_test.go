package garden

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiscoverModules(t *testing.T) {
	root := writeFiles(t, map[string]string{
		"garden.yml":                           testProject,
		"services/api/garden.yml":              "module:\n  name: api\n  type: container\n  description: The API\n",
		"services/web/garden.yml":              "module:\n  name: web\n  type: container\n",
		"services/web/node_modules/garden.yml": "module:\n  name: vendored\n  type: container\n",
		".garden/cache/garden.yml":             "module:\n  name: cached\n  type: container\n",
		"tools/garden.yml":                     "module:\n  name: tools\n  type: exec\n",
		"docs/garden.yaml.bak":                 "module:\n  name: docs\n  type: exec\n",
	})

	modules, err := DiscoverModules(context.Background(), root, []string{"tools/"})
	require.NoError(t, err)

	assert.Equal(t, []ModuleConfig{
		{Name: "api", Type: "container", Description: "The API", Path: "services/api"},
		{Name: "web", Type: "container", Path: "services/web"},
	}, modules)
}

func TestDiscoverModules_GlobExclude(t *testing.T) {
	root := writeFiles(t, map[string]string{
		"a/garden.yml":      "module:\n  name: a\n  type: exec\n",
		"b/test/garden.yml": "module:\n  name: b-test\n  type: exec\n",
	})

	modules, err := DiscoverModules(context.Background(), root, []string{"**/test", "# comment", " "})
	require.NoError(t, err)
	require.Len(t, modules, 1)
	assert.Equal(t, "a", modules[0].Name)
}

func TestDiscoverModules_DuplicateName(t *testing.T) {
	root := writeFiles(t, map[string]string{
		"a/garden.yml": "module:\n  name: same\n  type: exec\n",
		"b/garden.yml": "module:\n  name: same\n  type: exec\n",
	})

	_, err := DiscoverModules(context.Background(), root, nil)
	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, err.Error(), `module "same" is also declared`)
}

func TestDiscoverModules_InvalidModule(t *testing.T) {
	tests := map[string]string{
		"bad name": "module:\n  name: Bad\n  type: exec\n",
		"no type":  "module:\n  name: good\n",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			root := writeFiles(t, map[string]string{"m/garden.yml": content})
			_, err := DiscoverModules(context.Background(), root, nil)
			var cfgErr *ConfigurationError
			require.ErrorAs(t, err, &cfgErr)
		})
	}
}

func TestLoadProject_IncludesModules(t *testing.T) {
	root := writeFiles(t, map[string]string{
		"garden.yml":     testProject,
		"api/garden.yml": "module:\n  name: api\n  type: container\n",
	})

	g, err := LoadProject(context.Background(), Options{ProjectRoot: root})
	require.NoError(t, err)
	require.Len(t, g.Modules, 1)
	assert.Equal(t, "api", g.Modules[0].Name)
}
