// Package garden loads a Garden project from disk and holds the resolved
// host state (project, environment, provider configs, sources and the local
// config store) from which plugin contexts are projected.
package garden

import (
	"fmt"
	"regexp"

	"github.com/gardenctx/terraform-provider-garden/internal/localconfig"
)

// IdentifierMaxLength is the longest name accepted by the identifier grammar.
const IdentifierMaxLength = 63

// IdentifierPattern is the grammar for project, environment, provider,
// module and source names: lowercase letters, digits and single dashes,
// starting with a letter and not ending with a dash.
var IdentifierPattern = regexp.MustCompile(`^[a-z][a-z0-9]*(-[a-z0-9]+)*$`)

// IdentifierDescription is the human-readable form of IdentifierPattern.
const IdentifierDescription = "may contain lowercase letters, numbers and dashes, must start with a letter, " +
	"cannot contain consecutive dashes or end with a dash, and must be at most 63 characters"

// IsIdentifier reports whether s satisfies the identifier grammar.
func IsIdentifier(s string) bool {
	return len(s) <= IdentifierMaxLength && IdentifierPattern.MatchString(s)
}

// ProviderConfig is the raw, plugin-specific configuration of one provider.
// Its shape is owned by the plugin.
type ProviderConfig map[string]any

// SourceConfig describes an external project source.
type SourceConfig struct {
	Name          string `yaml:"name"`
	RepositoryURL string `yaml:"repositoryUrl"`
}

// ModuleConfig is a module discovered in the project tree.
type ModuleConfig struct {
	Name        string
	Type        string
	Description string
	// Path is the module directory relative to the project root, using
	// forward slashes ("." for the root).
	Path string
}

// Garden is the resolved host state for one project and environment. It is
// built once by LoadProject and then only read.
type Garden struct {
	ProjectName      string
	ProjectRoot      string
	EnvironmentName  string
	Environments     []string
	ProjectSources   []SourceConfig
	LocalConfigStore *localconfig.Store
	ProviderConfigs  map[string]ProviderConfig
	Modules          []ModuleConfig
}

// ConfigurationError reports an invalid project or module configuration.
type ConfigurationError struct {
	Path    string
	Message string
}

func (e *ConfigurationError) Error() string {
	if e.Path == "" {
		return "configuration error: " + e.Message
	}
	return fmt.Sprintf("configuration error in %s: %s", e.Path, e.Message)
}

func configErrorf(path, format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Path: path, Message: fmt.Sprintf(format, args...)}
}
