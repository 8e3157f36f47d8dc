package devices

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/KevinKickass/OpenMachineConfig/internal/types"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

const allTemplatesKey = "templates:all"

// TemplateLoader reads device type templates from disk. Parsed templates are
// cached for the configured TTL.
type TemplateLoader struct {
	cache       *cache.Cache
	validator   *Validator
	searchPaths []string
	logger      *zap.Logger
}

func NewTemplateLoader(searchPaths []string, ttl time.Duration, logger *zap.Logger) (*TemplateLoader, error) {
	validator, err := NewValidator()
	if err != nil {
		return nil, fmt.Errorf("failed to create validator: %w", err)
	}
	if ttl <= 0 {
		ttl = cache.NoExpiration
	}

	return &TemplateLoader{
		cache:       cache.New(ttl, 2*ttl),
		validator:   validator,
		searchPaths: searchPaths,
		logger:      logger,
	}, nil
}

// LoadAll returns every template on the search paths, ordered by model. Two
// files declaring the same model are an error.
func (l *TemplateLoader) LoadAll() ([]types.DeviceTypeDefinition, error) {
	if cached, ok := l.cache.Get(allTemplatesKey); ok {
		return cached.([]types.DeviceTypeDefinition), nil
	}

	seen := make(map[string]string)
	defs := make([]types.DeviceTypeDefinition, 0)

	for _, root := range l.searchPaths {
		if _, err := os.Stat(root); os.IsNotExist(err) {
			l.logger.Warn("Device type search path does not exist", zap.String("path", root))
			continue
		}
		files, err := templateFiles(root)
		if err != nil {
			return nil, err
		}
		for _, file := range files {
			def, err := l.LoadFile(file)
			if err != nil {
				return nil, err
			}
			if prev, dup := seen[def.DeviceType.Model]; dup {
				return nil, fmt.Errorf("device type %q defined in both %s and %s", def.DeviceType.Model, prev, file)
			}
			seen[def.DeviceType.Model] = file
			defs = append(defs, *def)
		}
	}

	sort.Slice(defs, func(i, j int) bool { return defs[i].DeviceType.Model < defs[j].DeviceType.Model })

	l.logger.Info("Device type templates loaded",
		zap.Int("count", len(defs)),
		zap.Strings("search_paths", l.searchPaths))

	l.cache.SetDefault(allTemplatesKey, defs)
	return defs, nil
}

// Load returns the template for one model.
func (l *TemplateLoader) Load(model string) (*types.DeviceTypeDefinition, error) {
	defs, err := l.LoadAll()
	if err != nil {
		return nil, err
	}
	for i := range defs {
		if defs[i].DeviceType.Model == model {
			def := defs[i]
			return &def, nil
		}
	}
	return nil, fmt.Errorf("device type template not found: %s (searched in: %v)", model, l.searchPaths)
}

// LoadFile parses and validates a single YAML or JSON template.
func (l *TemplateLoader) LoadFile(path string) (*types.DeviceTypeDefinition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read template %s: %w", path, err)
	}

	// YAML is a superset of JSON, so every template goes through the YAML
	// decoder and is re-encoded as JSON for schema validation.
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse template %s: %w", path, err)
	}
	jsonData, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to convert template %s: %w", path, err)
	}

	if err := l.validator.ValidateJSON(jsonData); err != nil {
		return nil, fmt.Errorf("validation failed for %s: %w", path, err)
	}

	var def types.DeviceTypeDefinition
	if err := json.Unmarshal(jsonData, &def); err != nil {
		return nil, fmt.Errorf("failed to unmarshal template %s: %w", path, err)
	}
	return &def, nil
}

func (l *TemplateLoader) ClearCache() {
	l.cache.Flush()
}

func templateFiles(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".yaml", ".yml", ".json":
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", root, err)
	}
	sort.Strings(files)
	return files, nil
}
