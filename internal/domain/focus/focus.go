// Package focus ranks a user's skill gaps against a role and suggests
// modules to close them.
package focus

import (
	"math"
	"sort"

	"github.com/okian/upskill/internal/domain/model"
)

// Defaults for the number of focus points and suggestions per point.
const (
	DefaultLimit       = 3
	DefaultSuggestions = 2
)

// Engine computes focus points. It holds no state between calls.
type Engine struct {
	limit       int
	suggestions int
}

// Option configures an Engine.
type Option func(*Engine)

// WithLimit caps the number of focus points returned.
func WithLimit(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.limit = n
		}
	}
}

// WithSuggestions caps the number of modules attached to each focus point.
func WithSuggestions(n int) Option {
	return func(e *Engine) {
		if n >= 0 {
			e.suggestions = n
		}
	}
}

// New creates an Engine.
func New(opts ...Option) *Engine {
	e := &Engine{limit: DefaultLimit, suggestions: DefaultSuggestions}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Limit reports the configured number of focus points.
func (e *Engine) Limit() int { return e.limit }

// Compute returns the largest positive gaps between profile and role, ordered
// by gap then importance (both descending) with skill name as the final tie
// break. The result is never nil.
func (e *Engine) Compute(profile *model.UserSkillProfile, role *model.RoleRequirements, catalog []model.ModuleMeta) []model.FocusPoint {
	points := make([]model.FocusPoint, 0, e.limit)
	if role == nil {
		return points
	}
	type gapped struct {
		point model.FocusPoint
		raw   float64
	}
	var all []gapped
	for skill, req := range role.Skills {
		gap := req.RequiredLevel - profile.Skill(skill).Level
		if !(gap > 0) {
			continue
		}
		all = append(all, gapped{
			point: model.FocusPoint{Skill: skill, Gap: displayGap(gap), Importance: req.Importance},
			raw:   gap,
		})
	}
	sort.Slice(all, func(i, j int) bool {
		a, b := all[i], all[j]
		if a.raw != b.raw {
			return a.raw > b.raw
		}
		if a.point.Importance != b.point.Importance {
			return a.point.Importance > b.point.Importance
		}
		return a.point.Skill < b.point.Skill
	})
	for _, g := range all {
		points = append(points, g.point)
	}
	if len(points) > e.limit {
		points = points[:e.limit]
	}
	for i := range points {
		points[i].SuggestedModules = e.suggest(points[i].Skill, catalog)
	}
	return points
}

// displayGap rounds gap to two decimals but never rounds a positive gap down
// to zero.
func displayGap(gap float64) float64 {
	if r := round2(gap); r > 0 {
		return r
	}
	return gap
}

// suggest returns module ids covering skill, strongest weight first.
func (e *Engine) suggest(skill string, catalog []model.ModuleMeta) []string {
	type match struct {
		id     string
		weight float64
	}
	var matches []match
	for i := range catalog {
		if w, ok := catalog[i].MaxWeight(skill); ok {
			matches = append(matches, match{id: catalog[i].ModuleID, weight: w})
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].weight != matches[j].weight {
			return matches[i].weight > matches[j].weight
		}
		return matches[i].id < matches[j].id
	})
	out := make([]string, 0, e.suggestions)
	for _, m := range matches {
		if len(out) == e.suggestions {
			break
		}
		out = append(out, m.id)
	}
	return out
}

func round2(x float64) float64 { return math.Round(x*100) / 100 }
