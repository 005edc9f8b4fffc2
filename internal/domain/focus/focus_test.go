package focus_test

import (
	"testing"

	"github.com/okian/upskill/internal/domain/focus"
	"github.com/okian/upskill/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func w(f float64) *float64 { return &f }

func role() *model.RoleRequirements {
	return &model.RoleRequirements{RoleID: "jr_data_eng", Skills: map[string]model.SkillRequirement{
		"Python":  {RequiredLevel: 3, Importance: 5},
		"SQL":     {RequiredLevel: 3, Importance: 4},
		"Git":     {RequiredLevel: 2, Importance: 2},
		"Airflow": {RequiredLevel: 3, Importance: 3},
		"Docker":  {RequiredLevel: 2, Importance: 1},
	}}
}

func catalog() []model.ModuleMeta {
	return []model.ModuleMeta{
		{ModuleID: "py-201", SkillsCovered: []model.CoveredSkill{{Skill: "Python", Weight: w(0.8)}}},
		{ModuleID: "py-101", SkillsCovered: []model.CoveredSkill{{Skill: "Python", Weight: w(1.2)}}},
		{ModuleID: "data-mix", SkillsCovered: []model.CoveredSkill{{Skill: "Python", Weight: w(0.5)}, {Skill: "SQL"}}},
		{ModuleID: "sql-101", SkillsCovered: []model.CoveredSkill{{Skill: "SQL"}}},
	}
}

func TestCompute(t *testing.T) {
	Convey("Given a profile and role requirements", t, func() {
		engine := focus.New()
		profile := &model.UserSkillProfile{UserID: "u1", RoleID: "jr_data_eng", Skills: map[string]model.SkillState{
			"Python": {Level: 1, Confidence: 0.3},
			"SQL":    {Level: 1, Confidence: 0.3},
			"Git":    {Level: 2, Confidence: 0.5},
		}}

		Convey("When computing focus points", func() {
			points := engine.Compute(profile, role(), catalog())

			Convey("Then at most three positive gaps should be returned in order", func() {
				So(len(points), ShouldEqual, 3)
				So(points[0].Skill, ShouldEqual, "Python")
				So(points[1].Skill, ShouldEqual, "SQL")
				So(points[2].Skill, ShouldEqual, "Airflow")
				for _, p := range points {
					So(p.Gap, ShouldBeGreaterThan, 0)
				}
			})

			Convey("Then suggestions should be ranked by weight and capped", func() {
				So(points[0].SuggestedModules, ShouldResemble, []string{"py-101", "py-201"})
				So(points[1].SuggestedModules, ShouldResemble, []string{"data-mix", "sql-101"})
			})

			Convey("Then skills without modules should get an empty list", func() {
				So(points[2].SuggestedModules, ShouldNotBeNil)
				So(points[2].SuggestedModules, ShouldBeEmpty)
			})
		})

		Convey("When the profile already meets every requirement", func() {
			for name, req := range role().Skills {
				profile.Skills[name] = model.SkillState{Level: req.RequiredLevel + 0.5, Confidence: 0.8}
			}
			points := engine.Compute(profile, role(), catalog())

			Convey("Then no focus points should be returned", func() {
				So(points, ShouldNotBeNil)
				So(points, ShouldBeEmpty)
			})
		})

		Convey("When the skill is absent from the profile", func() {
			points := engine.Compute(&model.UserSkillProfile{UserID: "u2"}, role(), nil)

			Convey("Then its level should be treated as the floor", func() {
				So(points[0].Gap, ShouldEqual, 2.0)
			})
		})

		Convey("When configured with a different limit", func() {
			points := focus.New(focus.WithLimit(5), focus.WithSuggestions(1)).Compute(profile, role(), catalog())

			Convey("Then the options should apply", func() {
				So(len(points), ShouldEqual, 4)
				So(points[0].SuggestedModules, ShouldResemble, []string{"py-101"})
				So(points[3].Skill, ShouldEqual, "Docker")
			})
		})

		Convey("When a gap is positive but below display precision", func() {
			narrow := &model.RoleRequirements{RoleID: "r", Skills: map[string]model.SkillRequirement{
				"Python": {RequiredLevel: 3.333, Importance: 1},
				"SQL":    {RequiredLevel: 3.336, Importance: 5},
			}}
			p := &model.UserSkillProfile{UserID: "u3", Skills: map[string]model.SkillState{
				"Python": {Level: 3.33, Confidence: 0.5},
				"SQL":    {Level: 3.33, Confidence: 0.5},
			}}
			points := engine.Compute(p, narrow, nil)

			Convey("Then it should still be a focus point with a positive gap", func() {
				So(len(points), ShouldEqual, 2)
				So(points[0].Skill, ShouldEqual, "SQL")
				So(points[0].Gap, ShouldEqual, 0.01)
				So(points[1].Skill, ShouldEqual, "Python")
				So(points[1].Gap, ShouldBeGreaterThan, 0)
				So(points[1].Gap, ShouldBeLessThan, 0.005)
			})
		})

		Convey("When there is no role", func() {
			So(engine.Compute(profile, nil, catalog()), ShouldBeEmpty)
		})
	})
}
