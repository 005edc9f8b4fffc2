package model_test

import (
	"encoding/json"
	"testing"

	model "github.com/okian/upskill/internal/domain/model"
	"github.com/okian/upskill/internal/domain/types"
	"github.com/smartystreets/goconvey/convey"
)

func TestDecodeEvent(t *testing.T) {
	convey.Convey("Given raw event records", t, func() {
		convey.Convey("When decoding a complete module_completed event", func() {
			env, verr := model.DecodeEvent([]byte(`{
				"type": "module_completed",
				"user_id": "u1",
				"idempotency_key": "k-1",
				"module_id": "py-101",
				"skill": "Python",
				"target_level": 4,
				"completion_type": "passed",
				"score": 0.85,
				"has_assessment": true,
				"pass_threshold": 0.7
			}`))

			convey.Convey("Then it should produce a typed ModuleCompleted", func() {
				convey.So(verr, convey.ShouldBeNil)
				convey.So(env.Type, convey.ShouldEqual, model.EventModuleCompleted)
				convey.So(env.UserID, convey.ShouldEqual, "u1")
				convey.So(env.IdempotencyKey, convey.ShouldEqual, "k-1")

				ev, ok := env.Event.(model.ModuleCompleted)
				convey.So(ok, convey.ShouldBeTrue)
				convey.So(ev.ModuleID, convey.ShouldEqual, "py-101")
				convey.So(ev.TargetLevel, convey.ShouldEqual, 4.0)
				convey.So(*ev.Score, convey.ShouldEqual, 0.85)
				convey.So(*ev.HasAssessment, convey.ShouldBeTrue)
				convey.So(*ev.PassThreshold, convey.ShouldEqual, 0.7)
				convey.So(ev.Weight, convey.ShouldBeNil)
				convey.So(ev.Subject(), convey.ShouldEqual, "u1")
			})

			convey.Convey("And the hashed fields should exclude the idempotency key", func() {
				hashed := env.HashedFields()
				_, present := hashed[model.FieldIdempotencyKey]
				convey.So(present, convey.ShouldBeFalse)
				convey.So(hashed["skill"], convey.ShouldEqual, "Python")
			})
		})

		convey.Convey("When completion_type is missing", func() {
			env, verr := model.DecodeEvent([]byte(`{"type":"module_completed","user_id":"u1","skill":"Python","target_level":4}`))

			convey.Convey("Then it should report MISSING_FIELD with the missing names", func() {
				convey.So(verr, convey.ShouldNotBeNil)
				convey.So(verr.Code, convey.ShouldEqual, types.CodeMissingField)
				convey.So(verr.Missing, convey.ShouldResemble, []string{"completion_type"})
				convey.So(env.Event, convey.ShouldBeNil)
				convey.So(env.UserID, convey.ShouldEqual, "u1")

				e := verr.AsError()
				convey.So(e.Details["missing"], convey.ShouldResemble, []string{"completion_type"})
			})
		})

		convey.Convey("When several fields are null or empty", func() {
			_, verr := model.DecodeEvent([]byte(`{"type":"user_created","user_id":"","role_id":null}`))

			convey.Convey("Then all of them should be listed in declaration order", func() {
				convey.So(verr.Code, convey.ShouldEqual, types.CodeMissingField)
				convey.So(verr.Missing, convey.ShouldResemble, []string{"user_id", "role_id", "resume_text"})
			})
		})

		convey.Convey("When the score is zero", func() {
			env, verr := model.DecodeEvent([]byte(`{"type":"assessment_submitted","user_id":"u1","assessment_id":"a1","score":0}`))

			convey.Convey("Then zero should count as present", func() {
				convey.So(verr, convey.ShouldBeNil)
				convey.So(env.Event.(model.AssessmentSubmitted).Score, convey.ShouldEqual, 0.0)
			})
		})

		convey.Convey("When the type is missing", func() {
			_, verr := model.DecodeEvent([]byte(`{"user_id":"u1"}`))
			convey.So(verr.Code, convey.ShouldEqual, types.CodeMissingField)
			convey.So(verr.Missing, convey.ShouldResemble, []string{"type"})
		})

		convey.Convey("When the type is not recognized", func() {
			_, verr := model.DecodeEvent([]byte(`{"type":"quiz_taken","user_id":"u1"}`))
			convey.So(verr.Code, convey.ShouldEqual, types.CodeUnknownEventType)
			convey.So(verr.AsError().Details["field"], convey.ShouldEqual, "type")
		})

		convey.Convey("When a field has the wrong type or range", func() {
			cases := map[string]string{
				"target_level":   `{"type":"module_completed","user_id":"u1","skill":"Go","target_level":"four","completion_type":"passed"}`,
				"score":          `{"type":"module_completed","user_id":"u1","skill":"Go","target_level":4,"completion_type":"passed","score":1.5}`,
				"weight":         `{"type":"module_completed","user_id":"u1","skill":"Go","target_level":4,"completion_type":"passed","weight":-1}`,
				"has_assessment": `{"type":"module_completed","user_id":"u1","skill":"Go","target_level":4,"completion_type":"passed","has_assessment":"yes"}`,
				"completion_type": `{"type":"module_completed","user_id":"u1","skill":"Go","target_level":4,"completion_type":7}`,
			}
			for field, raw := range cases {
				_, verr := model.DecodeEvent([]byte(raw))
				convey.So(verr, convey.ShouldNotBeNil)
				convey.So(verr.Code, convey.ShouldEqual, types.CodeInvalidField)
				convey.So(verr.Field, convey.ShouldEqual, field)
			}
		})

		convey.Convey("When the body is not an object", func() {
			for _, raw := range []string{`[1,2]`, `null`, `{"type":`, `{} {}`} {
				env, verr := model.DecodeEvent([]byte(raw))
				convey.So(verr, convey.ShouldNotBeNil)
				convey.So(verr.Code, convey.ShouldEqual, types.CodeInvalidPayload)
				convey.So(env, convey.ShouldNotBeNil)
				convey.So(env.Fields, convey.ShouldNotBeNil)
			}
		})

		convey.Convey("When derived fields are submitted", func() {
			env, _ := model.DecodeEvent([]byte(`{"type":"assessment_submitted","user_id":"u1","assessment_id":"a1","score":0.5,"deltas":[1],"received_at":"x"}`))

			convey.Convey("Then they should be stripped from the audit copy only", func() {
				audit := env.AuditFields()
				_, hasDeltas := audit["deltas"]
				_, hasReceived := audit["received_at"]
				convey.So(hasDeltas, convey.ShouldBeFalse)
				convey.So(hasReceived, convey.ShouldBeFalse)
				_, stillThere := env.Fields["deltas"]
				convey.So(stillThere, convey.ShouldBeTrue)
			})
		})
	})
}

func TestDecodeFields(t *testing.T) {
	convey.Convey("Given an event built in Go", t, func() {
		fields := map[string]any{
			"type":            "module_completed",
			"user_id":         "u2",
			"skill":           "SQL",
			"target_level":    3,
			"completion_type": "failed",
			"weight":          0.5,
		}

		convey.Convey("When decoding the map directly", func() {
			env, verr := model.DecodeFields(fields)

			convey.Convey("Then native numeric types should be accepted", func() {
				convey.So(verr, convey.ShouldBeNil)
				ev := env.Event.(model.ModuleCompleted)
				convey.So(ev.TargetLevel, convey.ShouldEqual, 3.0)
				convey.So(*ev.Weight, convey.ShouldEqual, 0.5)
				convey.So(ev.CompletionType, convey.ShouldEqual, model.CompletionFailed)
			})
		})

		convey.Convey("When the idempotency key is not a string", func() {
			fields["idempotency_key"] = json.Number("12")
			_, verr := model.DecodeFields(fields)
			convey.So(verr.Code, convey.ShouldEqual, types.CodeInvalidField)
			convey.So(verr.Field, convey.ShouldEqual, "idempotency_key")
		})
	})
}

func TestUserSkillProfile(t *testing.T) {
	convey.Convey("Given a profile", t, func() {
		p := &model.UserSkillProfile{UserID: "u1", RoleID: "r1", Skills: map[string]model.SkillState{
			"Go": {Level: 3, Confidence: 0.6},
		}}

		convey.Convey("Then unknown skills should use the default state", func() {
			convey.So(p.Skill("Rust"), convey.ShouldResemble, model.SkillState{Level: 1.0, Confidence: 0.3})
			convey.So(p.Skill("Go").Level, convey.ShouldEqual, 3.0)
		})

		convey.Convey("Then a nil profile should still answer", func() {
			var nilProfile *model.UserSkillProfile
			convey.So(nilProfile.Skill("Go"), convey.ShouldResemble, model.DefaultSkillState())
		})
	})
}

func TestModuleMetaMaxWeight(t *testing.T) {
	convey.Convey("Given a module covering a skill twice", t, func() {
		low, high := 0.4, 0.9
		m := model.ModuleMeta{ModuleID: "m", SkillsCovered: []model.CoveredSkill{
			{Skill: "Go", Weight: &low},
			{Skill: "Go", Weight: &high},
			{Skill: "SQL"},
		}}

		convey.Convey("Then the max weight should win and missing weights count as 1", func() {
			w, ok := m.MaxWeight("Go")
			convey.So(ok, convey.ShouldBeTrue)
			convey.So(w, convey.ShouldEqual, 0.9)

			w, ok = m.MaxWeight("SQL")
			convey.So(ok, convey.ShouldBeTrue)
			convey.So(w, convey.ShouldEqual, 1.0)

			_, ok = m.MaxWeight("Rust")
			convey.So(ok, convey.ShouldBeFalse)
		})
	})
}
