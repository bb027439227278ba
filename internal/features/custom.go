package features

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// customFile is the on-disk shape of a custom features file:
//
//	features:
//	  chemistry:
//	    name: Chemistry Tutor
//	    description: ...
//	    prompt: ...
//	    system_prompt: ...
type customFile struct {
	Features map[string]Config `yaml:"features"`
}

// LoadCustom merges features from a YAML file into the catalog. Entries that
// would shadow a builtin id are rejected.
func (c *Catalog) LoadCustom(path string) error {
	if c == nil {
		return errors.New("nil catalog")
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return errors.New("missing path")
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var f customFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return fmt.Errorf("parsing custom features: %w", err)
	}

	loaded := map[string]Config{}
	for id, cfg := range f.Features {
		id = strings.TrimSpace(id)
		if id == "" {
			return errors.New("custom feature with empty id")
		}
		if _, ok := builtin[id]; ok {
			return fmt.Errorf("custom feature %q shadows a builtin", id)
		}
		if strings.TrimSpace(cfg.SystemPrompt) == "" {
			return fmt.Errorf("custom feature %q has no system_prompt", id)
		}
		if strings.TrimSpace(cfg.Name) == "" {
			cfg.Name = id
		}
		loaded[id] = cfg
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for id, cfg := range loaded {
		c.custom[id] = cfg
	}
	return nil
}
