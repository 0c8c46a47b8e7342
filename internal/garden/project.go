package garden

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/hashicorp/terraform-plugin-log/tflog"
	"gopkg.in/yaml.v3"

	"github.com/gardenctx/terraform-provider-garden/internal/backend"
	"github.com/gardenctx/terraform-provider-garden/internal/localconfig"
)

// ConfigFileName is the name of project and module configuration files.
const ConfigFileName = "garden.yml"

// MetadataDirName is the project-local directory holding Garden state.
const MetadataDirName = ".garden"

// Options controls LoadProject.
type Options struct {
	// ProjectRoot is the directory containing the project garden.yml.
	ProjectRoot string
	// Environment selects the environment. Empty means the project's
	// defaultEnvironment, or the first declared environment.
	Environment string
	// Store is the local config store. When nil, a file-backed store in
	// <ProjectRoot>/.garden is used.
	Store *localconfig.Store
	// ModuleExcludes are extra doublestar globs excluded from module discovery.
	ModuleExcludes []string
}

type projectFile struct {
	Project *projectSpec `yaml:"project"`
}

type projectSpec struct {
	Name                string            `yaml:"name"`
	DefaultEnvironment  string            `yaml:"defaultEnvironment"`
	EnvironmentDefaults environmentSpec   `yaml:"environmentDefaults"`
	Environments        []environmentSpec `yaml:"environments"`
	Sources             []SourceConfig    `yaml:"sources"`
}

type environmentSpec struct {
	Name      string           `yaml:"name"`
	Providers []map[string]any `yaml:"providers"`
}

// LoadProject reads <ProjectRoot>/garden.yml, resolves the environment and
// its provider configuration, discovers modules, and returns the Garden.
func LoadProject(ctx context.Context, opts Options) (*Garden, error) {
	root, err := filepath.Abs(opts.ProjectRoot)
	if err != nil {
		return nil, fmt.Errorf("garden: resolving project root: %w", err)
	}

	configPath := filepath.Join(root, ConfigFileName)
	data, err := os.ReadFile(configPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, configErrorf(root, "no %s found in project root", ConfigFileName)
	}
	if err != nil {
		return nil, fmt.Errorf("garden: reading %s: %w", configPath, err)
	}

	var pf projectFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return nil, configErrorf(configPath, "invalid YAML: %s", err)
	}
	if pf.Project == nil {
		return nil, configErrorf(configPath, "missing project block")
	}
	spec := pf.Project

	if !IsIdentifier(spec.Name) {
		return nil, configErrorf(configPath, "project name %q is invalid: %s", spec.Name, IdentifierDescription)
	}

	env, err := resolveEnvironment(configPath, spec, opts.Environment)
	if err != nil {
		return nil, err
	}

	providerConfigs, err := mergeProviderConfigs(configPath, spec.EnvironmentDefaults.Providers, env.Providers)
	if err != nil {
		return nil, err
	}

	if err := validateSources(configPath, spec.Sources); err != nil {
		return nil, err
	}

	modules, err := DiscoverModules(ctx, root, opts.ModuleExcludes)
	if err != nil {
		return nil, err
	}

	store := opts.Store
	if store == nil {
		b, err := backend.New(backend.Config{
			Name: "local",
			Type: "file",
			Dir:  filepath.Join(root, MetadataDirName),
		})
		if err != nil {
			return nil, fmt.Errorf("garden: creating local config backend: %w", err)
		}
		store = localconfig.New(b)
	}

	environments := make([]string, 0, len(spec.Environments))
	for _, e := range spec.Environments {
		environments = append(environments, e.Name)
	}

	g := &Garden{
		ProjectName:      spec.Name,
		ProjectRoot:      filepath.ToSlash(root),
		EnvironmentName:  env.Name,
		Environments:     environments,
		ProjectSources:   spec.Sources,
		LocalConfigStore: store,
		ProviderConfigs:  providerConfigs,
		Modules:          modules,
	}

	tflog.Info(ctx, "loaded garden project", map[string]interface{}{
		"project":     g.ProjectName,
		"environment": g.EnvironmentName,
		"providers":   len(g.ProviderConfigs),
		"modules":     len(g.Modules),
	})

	return g, nil
}

func resolveEnvironment(configPath string, spec *projectSpec, requested string) (environmentSpec, error) {
	if len(spec.Environments) == 0 {
		return environmentSpec{}, configErrorf(configPath, "project %q declares no environments", spec.Name)
	}

	seen := make(map[string]bool, len(spec.Environments))
	for _, e := range spec.Environments {
		if !IsIdentifier(e.Name) {
			return environmentSpec{}, configErrorf(configPath, "environment name %q is invalid: %s", e.Name, IdentifierDescription)
		}
		if seen[e.Name] {
			return environmentSpec{}, configErrorf(configPath, "environment %q is declared more than once", e.Name)
		}
		seen[e.Name] = true
	}

	name := requested
	if name == "" {
		name = spec.DefaultEnvironment
	}
	if name == "" {
		return spec.Environments[0], nil
	}

	for _, e := range spec.Environments {
		if e.Name == name {
			return e, nil
		}
	}

	available := make([]string, 0, len(spec.Environments))
	for _, e := range spec.Environments {
		available = append(available, e.Name)
	}
	sort.Strings(available)
	return environmentSpec{}, configErrorf(configPath, "environment %q is not declared in the project (available: %v)", name, available)
}

// mergeProviderConfigs keys provider entries by name; environment entries
// replace same-named environmentDefaults entries. Each config keeps its own
// name key.
func mergeProviderConfigs(configPath string, defaults, overrides []map[string]any) (map[string]ProviderConfig, error) {
	out := make(map[string]ProviderConfig, len(defaults)+len(overrides))

	add := func(section string, entries []map[string]any) error {
		seen := make(map[string]bool, len(entries))
		for i, entry := range entries {
			name, _ := entry["name"].(string)
			if !IsIdentifier(name) {
				return configErrorf(configPath, "%s.providers[%d]: provider name %q is invalid: %s", section, i, name, IdentifierDescription)
			}
			if seen[name] {
				return configErrorf(configPath, "%s.providers: provider %q is configured more than once", section, name)
			}
			seen[name] = true
			out[name] = ProviderConfig(entry)
		}
		return nil
	}

	if err := add("environmentDefaults", defaults); err != nil {
		return nil, err
	}
	if err := add("environments", overrides); err != nil {
		return nil, err
	}
	return out, nil
}

func validateSources(configPath string, sources []SourceConfig) error {
	seen := make(map[string]bool, len(sources))
	for i, s := range sources {
		if !IsIdentifier(s.Name) {
			return configErrorf(configPath, "sources[%d]: name %q is invalid: %s", i, s.Name, IdentifierDescription)
		}
		if s.RepositoryURL == "" {
			return configErrorf(configPath, "sources[%d]: repositoryUrl is required", i)
		}
		if seen[s.Name] {
			return configErrorf(configPath, "source %q is declared more than once", s.Name)
		}
		seen[s.Name] = true
	}
	return nil
}
