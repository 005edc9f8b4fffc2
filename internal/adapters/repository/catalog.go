package repository

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/okian/upskill/internal/domain/model"
	"gopkg.in/yaml.v3"
)

// Catalog is the reference data seeded into a store: role requirements and
// learning modules.
type Catalog struct {
	Roles   []model.RoleRequirements `yaml:"roles"`
	Modules []model.ModuleMeta       `yaml:"modules"`
}

// LoadCatalog reads a YAML catalog file.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes and validates a YAML catalog.
func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks ids are present and unique and values are in range.
func (c *Catalog) Validate() error {
	roles := make(map[string]bool, len(c.Roles))
	for _, r := range c.Roles {
		if strings.TrimSpace(r.RoleID) == "" {
			return fmt.Errorf("%w: role without role_id", ErrInvalidCatalog)
		}
		if roles[r.RoleID] {
			return fmt.Errorf("%w: duplicate role %s", ErrInvalidCatalog, r.RoleID)
		}
		roles[r.RoleID] = true
		for skill, req := range r.Skills {
			if req.RequiredLevel < 1 || req.RequiredLevel > 5 {
				return fmt.Errorf("%w: role %s skill %s required_level %g out of [1,5]", ErrInvalidCatalog, r.RoleID, skill, req.RequiredLevel)
			}
			if req.Importance < 1 || req.Importance > 5 {
				return fmt.Errorf("%w: role %s skill %s importance %d out of [1,5]", ErrInvalidCatalog, r.RoleID, skill, req.Importance)
			}
		}
	}
	modules := make(map[string]bool, len(c.Modules))
	for _, m := range c.Modules {
		if strings.TrimSpace(m.ModuleID) == "" {
			return fmt.Errorf("%w: module without module_id", ErrInvalidCatalog)
		}
		if modules[m.ModuleID] {
			return fmt.Errorf("%w: duplicate module %s", ErrInvalidCatalog, m.ModuleID)
		}
		modules[m.ModuleID] = true
		for _, cs := range m.SkillsCovered {
			if strings.TrimSpace(cs.Skill) == "" {
				return fmt.Errorf("%w: module %s covers a skill without a name", ErrInvalidCatalog, m.ModuleID)
			}
			if cs.Weight != nil && *cs.Weight <= 0 {
				return fmt.Errorf("%w: module %s skill %s weight must be positive", ErrInvalidCatalog, m.ModuleID, cs.Skill)
			}
			if cs.TargetLevel != nil && (*cs.TargetLevel < 1 || *cs.TargetLevel > 5) {
				return fmt.Errorf("%w: module %s skill %s target_level out of [1,5]", ErrInvalidCatalog, m.ModuleID, cs.Skill)
			}
			if cs.PassThreshold != nil && (*cs.PassThreshold < 0 || *cs.PassThreshold > 1) {
				return fmt.Errorf("%w: module %s skill %s pass_threshold out of [0,1]", ErrInvalidCatalog, m.ModuleID, cs.Skill)
			}
		}
	}
	return nil
}

// Seed writes every role and module in c to store, replacing existing ids.
func Seed(ctx context.Context, store Store, c *Catalog) error {
	for _, r := range c.Roles {
		if err := store.PutRole(ctx, r); err != nil {
			return fmt.Errorf("seed role %s: %w", r.RoleID, err)
		}
	}
	for _, m := range c.Modules {
		if err := store.PutModule(ctx, m); err != nil {
			return fmt.Errorf("seed module %s: %w", m.ModuleID, err)
		}
	}
	return nil
}
