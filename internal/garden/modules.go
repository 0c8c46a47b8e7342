package garden

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
	"gopkg.in/yaml.v3"
)

// maxParallelModuleReads bounds concurrent module config reads.
const maxParallelModuleReads = 8

// defaultModuleExcludes are never scanned for module configs.
var defaultModuleExcludes = []string{
	".git",
	".git/**",
	MetadataDirName,
	MetadataDirName + "/**",
	"**/node_modules",
	"**/node_modules/**",
	".terraform",
	".terraform/**",
}

type moduleFile struct {
	Module *struct {
		Name        string `yaml:"name"`
		Type        string `yaml:"type"`
		Description string `yaml:"description"`
	} `yaml:"module"`
}

// excluded reports whether rel (forward slashes, relative to the project
// root) matches a default or user exclude. A trailing slash in a user
// pattern excludes the directory and everything below it.
func excluded(rel string, userExcludes []string) bool {
	for _, p := range defaultModuleExcludes {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	for _, p := range userExcludes {
		p = filepath.ToSlash(strings.TrimSpace(p))
		if p == "" || strings.HasPrefix(p, "#") {
			continue
		}
		if strings.HasSuffix(p, "/") {
			dir := strings.TrimSuffix(p, "/")
			if rel == dir || strings.HasPrefix(rel, dir+"/") {
				return true
			}
			continue
		}
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}

// DiscoverModules walks root for garden.yml files declaring a module block
// and returns the modules sorted by name. Files without a module block (such
// as the project file) are ignored.
func DiscoverModules(ctx context.Context, root string, userExcludes []string) ([]ModuleConfig, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("garden: resolving project root: %w", err)
	}

	var candidates []string
	err = filepath.WalkDir(absRoot, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		rel, err := filepath.Rel(absRoot, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if rel == "." {
			return nil
		}
		if excluded(rel, userExcludes) {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if !d.IsDir() && d.Name() == ConfigFileName {
			candidates = append(candidates, rel)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("garden: scanning for modules: %w", err)
	}

	results := make([]*ModuleConfig, len(candidates))
	sem := semaphore.NewWeighted(maxParallelModuleReads)
	g, gctx := errgroup.WithContext(ctx)

	for i, rel := range candidates {
		g.Go(func() error {
			if err := sem.Acquire(gctx, 1); err != nil {
				return err
			}
			defer sem.Release(1)

			m, err := readModuleConfig(absRoot, rel)
			if err != nil {
				return err
			}
			results[i] = m
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	modules := make([]ModuleConfig, 0, len(results))
	byName := make(map[string]string, len(results))
	for _, m := range results {
		if m == nil {
			continue
		}
		if other, dup := byName[m.Name]; dup {
			return nil, configErrorf(m.Path, "module %q is also declared in %s", m.Name, other)
		}
		byName[m.Name] = m.Path
		modules = append(modules, *m)
	}

	sort.Slice(modules, func(i, j int) bool {
		return modules[i].Name < modules[j].Name
	})
	return modules, nil
}

func readModuleConfig(absRoot, rel string) (*ModuleConfig, error) {
	data, err := os.ReadFile(filepath.Join(absRoot, filepath.FromSlash(rel)))
	if err != nil {
		return nil, fmt.Errorf("garden: reading %s: %w", rel, err)
	}

	var mf moduleFile
	if err := yaml.Unmarshal(data, &mf); err != nil {
		return nil, configErrorf(rel, "invalid YAML: %s", err)
	}
	if mf.Module == nil {
		return nil, nil
	}

	if !IsIdentifier(mf.Module.Name) {
		return nil, configErrorf(rel, "module name %q is invalid: %s", mf.Module.Name, IdentifierDescription)
	}
	if mf.Module.Type == "" {
		return nil, configErrorf(rel, "module %q has no type", mf.Module.Name)
	}

	return &ModuleConfig{
		Name:        mf.Module.Name,
		Type:        mf.Module.Type,
		Description: mf.Module.Description,
		Path:        path.Dir(rel),
	}, nil
}
