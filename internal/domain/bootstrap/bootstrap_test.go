package bootstrap_test

import (
	"context"
	"errors"
	"testing"

	"github.com/okian/upskill/internal/domain/bootstrap"
	"github.com/okian/upskill/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

type roles map[string]*model.RoleRequirements

func (r roles) GetRoleRequirements(_ context.Context, id string) (*model.RoleRequirements, error) {
	return r[id], nil
}

type brokenRoles struct{}

func (brokenRoles) GetRoleRequirements(context.Context, string) (*model.RoleRequirements, error) {
	return nil, errors.New("disk gone")
}

func TestKeywordEstimator(t *testing.T) {
	Convey("Given a role with required skills", t, func() {
		ctx := context.Background()
		src := roles{"jr_data_eng": {RoleID: "jr_data_eng", Skills: map[string]model.SkillRequirement{
			"Python":  {RequiredLevel: 3, Importance: 5},
			"SQL":     {RequiredLevel: 3, Importance: 4},
			"Git":     {RequiredLevel: 2, Importance: 2},
			"Airflow": {RequiredLevel: 2, Importance: 3},
		}}}
		est := bootstrap.NewKeywordEstimator()

		Convey("When the resume mentions some of them", func() {
			profile, role, err := est.Bootstrap(ctx, src, "u1", "jr_data_eng", "Worked with python, SQL, Git daily.")

			Convey("Then mentioned skills should start higher", func() {
				So(err, ShouldBeNil)
				So(role.RoleID, ShouldEqual, "jr_data_eng")
				So(profile.UserID, ShouldEqual, "u1")
				So(profile.RoleID, ShouldEqual, "jr_data_eng")
				So(profile.Skills["Python"], ShouldResemble, model.SkillState{Level: 2, Confidence: 0.5})
				So(profile.Skills["SQL"], ShouldResemble, model.SkillState{Level: 2, Confidence: 0.5})
				So(profile.Skills["Git"], ShouldResemble, model.SkillState{Level: 2, Confidence: 0.5})
				So(profile.Skills["Airflow"], ShouldResemble, model.DefaultSkillState())
			})
		})

		Convey("When the resume is empty", func() {
			profile, _, err := est.Bootstrap(ctx, src, "u1", "jr_data_eng", "")

			Convey("Then every skill should use the default state", func() {
				So(err, ShouldBeNil)
				So(len(profile.Skills), ShouldEqual, 4)
				for _, s := range profile.Skills {
					So(s, ShouldResemble, model.DefaultSkillState())
				}
			})
		})

		Convey("When the role is unknown", func() {
			_, _, err := est.Bootstrap(ctx, src, "u1", "astronaut", "Python")

			Convey("Then ErrUnknownRole should name the role", func() {
				So(errors.Is(err, bootstrap.ErrUnknownRole), ShouldBeTrue)
				So(err.Error(), ShouldContainSubstring, "no JD for role astronaut")
			})
		})

		Convey("When the role source fails", func() {
			_, _, err := est.Bootstrap(ctx, brokenRoles{}, "u1", "jr_data_eng", "Python")

			Convey("Then the error should not look like an unknown role", func() {
				So(err, ShouldNotBeNil)
				So(errors.Is(err, bootstrap.ErrUnknownRole), ShouldBeFalse)
			})
		})
	})
}

func TestMentions(t *testing.T) {
	Convey("Given resume text", t, func() {
		So(bootstrap.Mentions("I know Go and C++.", "go"), ShouldBeTrue)
		So(bootstrap.Mentions("I know Go and C++.", "C++"), ShouldBeTrue)
		So(bootstrap.Mentions("Google Cloud", "Go"), ShouldBeFalse)
		So(bootstrap.Mentions("MySQL admin", "SQL"), ShouldBeFalse)
		So(bootstrap.Mentions("anything", ""), ShouldBeFalse)
	})
}
