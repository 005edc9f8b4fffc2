// Package scoring holds the pure update rules that move a skill estimate
// after a learning event. Nothing here does I/O or keeps state.
package scoring

import (
	"math"

	"github.com/okian/upskill/internal/domain/model"
)

// Learning-rate and bound constants.
const (
	baseAlpha      = 0.25
	passedBonus    = 0.15
	failedPenalty  = 0.10
	assessmentGain = 0.40

	MinAlpha = 0.05
	MaxAlpha = 0.50

	MinLevel      = 1.0
	MaxLevel      = 5.0
	MinConfidence = 0.0
	MaxConfidence = 1.0

	confidenceRate   = 0.5
	confidenceBase   = 0.5
	confidencePassed = 0.2
	confidenceScore  = 0.3
)

// Input is one skill's share of a completion event, after module and event
// values have been merged.
type Input struct {
	TargetLevel    float64
	Weight         float64
	CompletionType string
	HasAssessment  bool
	Score          *float64
	PassThreshold  *float64
}

// ComputeAlpha returns the learning rate for one completion, always within
// [MinAlpha, MaxAlpha].
func ComputeAlpha(weight float64, completionType string, hasAssessment bool, score, passThreshold *float64) float64 {
	base := baseAlpha
	switch completionType {
	case model.CompletionPassed:
		base += passedBonus
	case model.CompletionFailed:
		base -= failedPenalty
	}
	if hasAssessment && score != nil && passThreshold != nil {
		base += assessmentGain * (*score - *passThreshold)
	}
	alpha := base * weight
	if math.IsNaN(alpha) {
		return MinAlpha
	}
	return clip(alpha, MinAlpha, MaxAlpha)
}

// UpdateSkill moves the level toward targetLevel by alpha and raises
// confidence. The level never passes the target and confidence never drops.
func UpdateSkill(old model.SkillState, targetLevel, alpha float64, completionType string, score *float64, hasAssessment bool) model.SkillState {
	alpha = clip(alpha, 0, 1)
	target := clip(targetLevel, MinLevel, MaxLevel)
	level := clip(old.Level, MinLevel, MaxLevel)

	newLevel := clip(level+alpha*(target-level), MinLevel, MaxLevel)

	passed := 0.0
	if completionType == model.CompletionPassed {
		passed = confidencePassed
	}
	scoreVal := 0.0
	if hasAssessment && score != nil {
		scoreVal = *score
	}
	incr := confidenceRate * alpha * (confidenceBase + passed + confidenceScore*scoreVal)
	if incr < 0 || math.IsNaN(incr) {
		incr = 0
	}
	newConf := clip(old.Confidence+incr, MinConfidence, MaxConfidence)

	return model.SkillState{Level: newLevel, Confidence: newConf}
}

// Apply computes alpha for in and the resulting state, rounded to two
// decimals the way profiles are stored.
func Apply(old model.SkillState, in Input) (model.SkillState, float64) {
	alpha := ComputeAlpha(in.Weight, in.CompletionType, in.HasAssessment, in.Score, in.PassThreshold)
	next := UpdateSkill(old, in.TargetLevel, alpha, in.CompletionType, in.Score, in.HasAssessment)
	return model.SkillState{Level: Round2(next.Level), Confidence: Round2(next.Confidence)}, alpha
}

// Round2 rounds half away from zero to two decimals.
func Round2(x float64) float64 {
	return math.Round(x*100) / 100
}

func clip(x, lo, hi float64) float64 {
	if math.IsNaN(x) {
		return lo
	}
	return math.Max(lo, math.Min(hi, x))
}
