// Package bootstrap builds the first skill profile for a new user from the
// resume text submitted with user_created.
package bootstrap

import (
	"context"
	"fmt"
	"regexp"

	"github.com/okian/upskill/internal/domain/model"
)

// Estimate for a skill the resume mentions.
const (
	MentionedLevel      = 2.0
	MentionedConfidence = 0.5
)

// RoleSource looks up role requirements; nil, nil means the role is unknown.
type RoleSource interface {
	GetRoleRequirements(ctx context.Context, roleID string) (*model.RoleRequirements, error)
}

// Bootstrapper turns a resume into an initial profile.
type Bootstrapper interface {
	Bootstrap(ctx context.Context, roles RoleSource, userID, roleID, resume string) (*model.UserSkillProfile, *model.RoleRequirements, error)
}

// KeywordEstimator scores each skill the role requires by whether the resume
// names it as a whole word, ignoring case.
type KeywordEstimator struct{}

// NewKeywordEstimator returns the default Bootstrapper.
func NewKeywordEstimator() *KeywordEstimator { return &KeywordEstimator{} }

// Bootstrap returns the estimated profile and the role it was built against.
func (KeywordEstimator) Bootstrap(ctx context.Context, roles RoleSource, userID, roleID, resume string) (*model.UserSkillProfile, *model.RoleRequirements, error) {
	role, err := roles.GetRoleRequirements(ctx, roleID)
	if err != nil {
		return nil, nil, fmt.Errorf("load role %s: %w", roleID, err)
	}
	if role == nil {
		return nil, nil, fmt.Errorf("%w: no JD for role %s", ErrUnknownRole, roleID)
	}
	profile := &model.UserSkillProfile{
		UserID: userID,
		RoleID: roleID,
		Skills: make(map[string]model.SkillState, len(role.Skills)),
	}
	for skill := range role.Skills {
		state := model.DefaultSkillState()
		if Mentions(resume, skill) {
			state = model.SkillState{Level: MentionedLevel, Confidence: MentionedConfidence}
		}
		profile.Skills[skill] = state
	}
	return profile, role, nil
}

// Mentions reports whether text contains skill as a whole word, ignoring case.
func Mentions(text, skill string) bool {
	if skill == "" {
		return false
	}
	re, err := regexp.Compile(`(?i)(^|[^\p{L}\p{N}_])` + regexp.QuoteMeta(skill) + `($|[^\p{L}\p{N}_])`)
	if err != nil {
		return false
	}
	return re.MatchString(text)
}
