package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/okian/upskill/internal/adapters/repository"
	"github.com/okian/upskill/internal/domain/bootstrap"
	"github.com/okian/upskill/internal/domain/dedupe"
	"github.com/okian/upskill/internal/domain/model"
	"github.com/okian/upskill/internal/domain/scoring"
	"github.com/okian/upskill/internal/domain/types"
	"github.com/okian/upskill/pkg/logger"
	"github.com/okian/upskill/pkg/metrics"
)

const assessmentTodo = "assessment scores are recorded in the audit log; skill deltas are not applied"

// HandleEvent decodes one JSON event record and applies it. It never panics
// and never returns a Go error: every failure is a Result with an error code.
func (s *Service) HandleEvent(ctx context.Context, raw []byte) Result {
	env, verr := model.DecodeEvent(raw)
	return s.handle(ctx, env, verr)
}

// HandleFields is HandleEvent for a record that is already decoded.
func (s *Service) HandleFields(ctx context.Context, fields map[string]any) Result {
	env, verr := model.DecodeFields(fields)
	return s.handle(ctx, env, verr)
}

// call carries the per-call values shared by the steps of handle.
type call struct {
	env        *model.Envelope
	subject    string
	receivedAt string
	outcome    string
	deltas     []model.SkillDelta
}

func (c *call) eventType() string {
	if c.env.Type == "" {
		return "unknown"
	}
	return string(c.env.Type)
}

func (c *call) audit(errCode types.Code) *model.AuditEntry {
	return &model.AuditEntry{
		EventType: c.eventType(),
		Outcome:   c.outcome,
		ErrorCode: string(errCode),
		Payload: model.AuditPayload{
			Payload:        c.env.AuditFields(),
			Deltas:         c.deltas,
			ReceivedAt:     c.receivedAt,
			IdempotencyKey: c.env.IdempotencyKey,
		},
	}
}

func (s *Service) handle(ctx context.Context, env *model.Envelope, verr *model.ValidationError) Result {
	start := time.Now()
	c := &call{env: env, subject: env.UserID, receivedAt: s.now().UTC().Format(time.RFC3339Nano)}
	if c.subject == "" {
		c.subject = AnonymousUser
	}

	store, started := s.running()
	if !started {
		return errorResult(types.CodeInternal, ErrNotStarted.Error(), nil)
	}
	log := s.logger.With(logger.String("userID", c.subject), logger.String("eventType", c.eventType()))

	unlock := s.locks.Lock(c.subject)
	defer unlock()

	log.Debug(ctx, "handling event", logger.String("idempotencyKey", env.IdempotencyKey))

	res, err := s.run(ctx, store, c, verr)
	if err != nil {
		c.outcome, c.deltas = model.OutcomeFailed, nil
		res = errorResult(types.CodeInternal, err.Error(), map[string]any{"event_type": c.eventType()})
		log.Error(ctx, "event handling failed", logger.Error(err))
		if aerr := store.Atomically(ctx, func(tx repository.Tx) error {
			return tx.AppendAudit(ctx, c.subject, c.audit(types.CodeInternal))
		}); aerr != nil {
			metrics.RecordAuditAppendFailure()
			log.Error(ctx, "audit append failed", logger.Error(aerr))
		}
	}

	s.count(c.outcome)
	latency := float64(time.Since(start).Microseconds()) / 1000
	metrics.RecordEventHandled(c.eventType(), c.outcome, latency)

	switch {
	case res.Error != nil && c.outcome != model.OutcomeFailed:
		log.Warn(ctx, "event not applied",
			logger.String("outcome", c.outcome),
			logger.String("code", string(res.Error.Code)),
			logger.String("reason", res.Error.Message),
			logger.Float64("latencyMs", latency))
	case res.Error == nil:
		log.Info(ctx, "event handled",
			logger.String("outcome", c.outcome),
			logger.Int("deltas", len(c.deltas)),
			logger.Float64("latencyMs", latency))
	}
	return res
}

// run performs validation, idempotency and dispatch in one transaction. An
// error return means the transaction was rolled back.
func (s *Service) run(ctx context.Context, store repository.Store, c *call, verr *model.ValidationError) (res Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrPanic, r)
		}
	}()

	if verr != nil {
		res = Result{Error: verr.AsError()}
		c.outcome = model.OutcomeRejected
		if err := store.Atomically(ctx, func(tx repository.Tx) error {
			return tx.AppendAudit(ctx, c.subject, c.audit(res.Error.Code))
		}); err != nil {
			return Result{}, fmt.Errorf("audit rejected event: %w", err)
		}
		return res, nil
	}

	key := c.env.IdempotencyKey
	var hash string
	if key != "" {
		if hash, err = dedupe.PayloadHash(c.env.HashedFields()); err != nil {
			return Result{}, err
		}
	}

	err = store.Atomically(ctx, func(tx repository.Tx) error {
		if key != "" {
			rec, err := tx.LoadIdempotency(ctx, c.subject, key)
			if err != nil {
				return err
			}
			switch dedupe.Classify(rec, hash) {
			case dedupe.Replay:
				if err := json.Unmarshal(rec.Result, &res); err != nil {
					return fmt.Errorf("stored result for key %s: %w", key, err)
				}
				res.Replayed = true
				c.outcome, c.deltas = model.OutcomeReplayed, rec.Deltas
				return tx.AppendAudit(ctx, c.subject, c.audit(res.Code()))
			case dedupe.Conflict:
				metrics.RecordIdempotencyConflict()
				res = errorResult(types.CodeConflict,
					fmt.Sprintf("idempotency key %q was already used with a different payload", key),
					map[string]any{"idempotency_key": key, "event_type": rec.EventType})
				c.outcome = model.OutcomeRejected
				return tx.AppendAudit(ctx, c.subject, c.audit(types.CodeConflict))
			}
		}

		var err error
		res, c.deltas, err = s.dispatch(ctx, tx, c.env.Event)
		if err != nil {
			return err
		}
		c.outcome = model.OutcomeApplied
		if res.Error != nil {
			c.outcome = model.OutcomeRejected
		}

		if key != "" {
			body, err := json.Marshal(res)
			if err != nil {
				return fmt.Errorf("encode result: %w", err)
			}
			if err := tx.StoreIdempotency(ctx, c.subject, key, model.IdempotencyRecord{
				PayloadHash: hash,
				EventType:   c.eventType(),
				Result:      body,
				Deltas:      c.deltas,
				CreatedAt:   c.receivedAt,
			}); err != nil {
				return err
			}
		}
		return tx.AppendAudit(ctx, c.subject, c.audit(res.Code()))
	})
	return res, err
}

// dispatch routes a validated event to its handler. Domain failures come back
// as error results; a Go error aborts the transaction.
func (s *Service) dispatch(ctx context.Context, tx repository.Tx, ev model.Event) (Result, []model.SkillDelta, error) {
	switch e := ev.(type) {
	case model.UserCreated:
		res, err := s.userCreated(ctx, tx, e)
		return res, nil, err
	case model.ModuleCompleted:
		return s.moduleCompleted(ctx, tx, e)
	case model.AssessmentSubmitted:
		return Result{OK: true, Todo: assessmentTodo}, nil, nil
	default:
		return Result{}, nil, fmt.Errorf("no handler for event %T", ev)
	}
}

func (s *Service) userCreated(ctx context.Context, tx repository.Tx, e model.UserCreated) (Result, error) {
	existing, err := tx.LoadProfile(ctx, e.UserID)
	if err != nil {
		return Result{}, err
	}
	if existing != nil {
		return errorResult(types.CodeConflict,
			fmt.Sprintf("profile for user %s already exists", e.UserID),
			map[string]any{"user_id": e.UserID}), nil
	}

	profile, role, err := s.bootstrapper.Bootstrap(ctx, tx, e.UserID, e.RoleID, e.ResumeText)
	if errors.Is(err, bootstrap.ErrUnknownRole) {
		return errorResult(types.CodeNotFound, err.Error(), map[string]any{"role_id": e.RoleID}), nil
	}
	if err != nil {
		return Result{}, fmt.Errorf("bootstrap user %s: %w", e.UserID, err)
	}
	if err := tx.SaveProfile(ctx, profile); err != nil {
		return Result{}, err
	}
	points, err := s.refocus(ctx, tx, profile, role)
	if err != nil {
		return Result{}, err
	}
	metrics.RecordProfileBootstrapped()
	return Result{Profile: profile, Focus: points}, nil
}

func (s *Service) moduleCompleted(ctx context.Context, tx repository.Tx, e model.ModuleCompleted) (Result, []model.SkillDelta, error) {
	profile, err := tx.LoadProfile(ctx, e.UserID)
	if err != nil {
		return Result{}, nil, err
	}
	if profile == nil {
		return errorResult(types.CodeNotFound, fmt.Sprintf("profile for user %s not found", e.UserID),
			map[string]any{"user_id": e.UserID}), nil, nil
	}
	var module *model.ModuleMeta
	if e.ModuleID != "" {
		if module, err = tx.GetModule(ctx, e.ModuleID); err != nil {
			return Result{}, nil, err
		}
	}
	if module == nil {
		return errorResult(types.CodeNotFound, fmt.Sprintf("module %q not found", e.ModuleID),
			map[string]any{"module_id": e.ModuleID}), nil, nil
	}
	role, err := tx.GetRoleRequirements(ctx, profile.RoleID)
	if err != nil {
		return Result{}, nil, err
	}
	if role == nil {
		return errorResult(types.CodeNotFound, fmt.Sprintf("role requirements for %s not found", profile.RoleID),
			map[string]any{"role_id": profile.RoleID}), nil, nil
	}

	covered := module.SkillsCovered
	if len(covered) == 0 {
		covered = []model.CoveredSkill{{Skill: e.Skill}}
	}
	if profile.Skills == nil {
		profile.Skills = make(map[string]model.SkillState, len(covered))
	}
	deltas := make([]model.SkillDelta, 0, len(covered))
	for _, cs := range covered {
		in := mergeInput(cs, e)
		old := profile.Skill(cs.Skill)
		next, alpha := scoring.Apply(old, in)
		profile.Skills[cs.Skill] = next

		d := model.SkillDelta{
			Skill:       cs.Skill,
			DeltaLevel:  scoring.Round2(next.Level - old.Level),
			Alpha:       math.Round(alpha*1e4) / 1e4,
			TargetLevel: in.TargetLevel,
		}
		deltas = append(deltas, d)
		metrics.RecordSkillLevelDelta(d.DeltaLevel)
	}

	if err := tx.SaveProfile(ctx, profile); err != nil {
		return Result{}, nil, err
	}
	points, err := s.refocus(ctx, tx, profile, role)
	if err != nil {
		return Result{}, nil, err
	}
	return Result{Profile: profile, Focus: points}, deltas, nil
}

// mergeInput fills a module's skill entry with the event's values where the
// entry leaves them out.
func mergeInput(cs model.CoveredSkill, e model.ModuleCompleted) scoring.Input {
	in := scoring.Input{
		TargetLevel:    e.TargetLevel,
		Weight:         1.0,
		CompletionType: e.CompletionType,
		Score:          e.Score,
		PassThreshold:  e.PassThreshold,
	}
	if cs.TargetLevel != nil {
		in.TargetLevel = *cs.TargetLevel
	}
	switch {
	case cs.Weight != nil:
		in.Weight = *cs.Weight
	case e.Weight != nil:
		in.Weight = *e.Weight
	}
	switch {
	case cs.HasAssessment != nil:
		in.HasAssessment = *cs.HasAssessment
	case e.HasAssessment != nil:
		in.HasAssessment = *e.HasAssessment
	}
	if cs.PassThreshold != nil {
		in.PassThreshold = cs.PassThreshold
	}
	return in
}

func (s *Service) refocus(ctx context.Context, tx repository.Tx, profile *model.UserSkillProfile, role *model.RoleRequirements) ([]model.FocusPoint, error) {
	catalog, err := tx.ListModules(ctx)
	if err != nil {
		return nil, err
	}
	points := s.focus.Compute(profile, role, catalog)
	if err := tx.UpsertFocus(ctx, profile.UserID, model.FocusSet{Focus: points}); err != nil {
		return nil, err
	}
	metrics.RecordFocusPoints(len(points))
	return points, nil
}
