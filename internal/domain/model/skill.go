// Package model contains domain models passed between layers.
package model

import "encoding/json"

// Default state for a skill the first time it is referenced for a user.
const (
	DefaultLevel      = 1.0
	DefaultConfidence = 0.3
)

// SkillState is one user's proficiency estimate for one skill.
// Level lives in [1,5], Confidence in [0,1].
type SkillState struct {
	Level      float64 `json:"level"`
	Confidence float64 `json:"confidence"`
}

// DefaultSkillState is the state assumed for a never-seen skill.
func DefaultSkillState() SkillState {
	return SkillState{Level: DefaultLevel, Confidence: DefaultConfidence}
}

// UserSkillProfile is the per-user skill model mutated by the supervisor.
type UserSkillProfile struct {
	UserID string                `json:"user_id"`
	RoleID string                `json:"role_id"`
	Skills map[string]SkillState `json:"skills"`
}

// Skill returns the state for name, falling back to the default state.
func (p *UserSkillProfile) Skill(name string) SkillState {
	if p == nil || p.Skills == nil {
		return DefaultSkillState()
	}
	if s, ok := p.Skills[name]; ok {
		return s
	}
	return DefaultSkillState()
}

// SkillRequirement is one entry of a role's job description.
type SkillRequirement struct {
	RequiredLevel float64 `json:"required_level" yaml:"required_level"`
	Importance    int     `json:"importance" yaml:"importance"`
}

// RoleRequirements maps skills to the level a role expects.
type RoleRequirements struct {
	RoleID string                      `json:"role_id" yaml:"role_id"`
	Title  string                      `json:"title,omitempty" yaml:"title"`
	Skills map[string]SkillRequirement `json:"skills" yaml:"skills"`
}

// CoveredSkill describes how a module moves one skill. Nil fields fall back
// to the values carried by the completion event.
type CoveredSkill struct {
	Skill         string   `json:"skill" yaml:"skill"`
	TargetLevel   *float64 `json:"target_level,omitempty" yaml:"target_level"`
	Weight        *float64 `json:"weight,omitempty" yaml:"weight"`
	HasAssessment *bool    `json:"has_assessment,omitempty" yaml:"has_assessment"`
	PassThreshold *float64 `json:"pass_threshold,omitempty" yaml:"pass_threshold"`
}

// ModuleMeta is catalog data for one learning module.
type ModuleMeta struct {
	ModuleID      string         `json:"module_id" yaml:"module_id"`
	Title         string         `json:"title,omitempty" yaml:"title"`
	SkillsCovered []CoveredSkill `json:"skills_covered" yaml:"skills_covered"`
}

// MaxWeight returns the largest weight the module declares for skill and
// whether the module covers the skill at all. A missing weight counts as 1.
func (m *ModuleMeta) MaxWeight(skill string) (float64, bool) {
	best, found := 0.0, false
	for _, c := range m.SkillsCovered {
		if c.Skill != skill {
			continue
		}
		w := 1.0
		if c.Weight != nil {
			w = *c.Weight
		}
		if !found || w > best {
			best = w
		}
		found = true
	}
	return best, found
}

// FocusPoint is a prioritized skill gap with suggested remediation.
type FocusPoint struct {
	Skill            string   `json:"skill"`
	Gap              float64  `json:"gap"`
	Importance       int      `json:"importance"`
	SuggestedModules []string `json:"suggested_modules"`
}

// FocusSet is the persisted focus document for a user.
type FocusSet struct {
	Focus []FocusPoint `json:"focus"`
}

// SkillDelta records one level change applied by a module completion.
type SkillDelta struct {
	Skill       string  `json:"skill"`
	DeltaLevel  float64 `json:"delta_level"`
	Alpha       float64 `json:"alpha"`
	TargetLevel float64 `json:"target_level"`
}

// IdempotencyRecord is what the store keeps per (user, idempotency key).
type IdempotencyRecord struct {
	PayloadHash string          `json:"payload_hash"`
	EventType   string          `json:"event_type"`
	Result      json.RawMessage `json:"result"`
	Deltas      []SkillDelta    `json:"deltas,omitempty"`
	CreatedAt   string          `json:"created_at"`
}
