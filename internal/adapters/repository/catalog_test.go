package repository_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/okian/upskill/internal/adapters/repository"
	. "github.com/smartystreets/goconvey/convey"
)

const catalogYAML = `
roles:
  - role_id: jr_data_eng
    title: Junior Data Engineer
    skills:
      Python: {required_level: 3, importance: 5}
      SQL: {required_level: 3, importance: 4}
modules:
  - module_id: py-101
    skills_covered:
      - skill: Python
        target_level: 4
        weight: 1.0
        has_assessment: true
        pass_threshold: 0.7
  - module_id: sql-101
    skills_covered:
      - skill: SQL
`

func TestCatalog(t *testing.T) {
	Convey("Given a catalog file", t, func() {
		path := filepath.Join(t.TempDir(), "catalog.yaml")
		So(os.WriteFile(path, []byte(catalogYAML), 0o600), ShouldBeNil)

		Convey("When loading it", func() {
			c, err := repository.LoadCatalog(path)

			Convey("Then roles and modules should be decoded", func() {
				So(err, ShouldBeNil)
				So(len(c.Roles), ShouldEqual, 1)
				So(c.Roles[0].Skills["SQL"].Importance, ShouldEqual, 4)
				So(len(c.Modules), ShouldEqual, 2)
				So(*c.Modules[0].SkillsCovered[0].PassThreshold, ShouldEqual, 0.7)
				So(*c.Modules[0].SkillsCovered[0].HasAssessment, ShouldBeTrue)
				So(c.Modules[1].SkillsCovered[0].Weight, ShouldBeNil)
			})

			Convey("Then seeding should make it readable from a store", func() {
				ctx := context.Background()
				store := repository.NewMemoryStore()
				So(repository.Seed(ctx, store, c), ShouldBeNil)

				role, _ := store.GetRoleRequirements(ctx, "jr_data_eng")
				So(role.Title, ShouldEqual, "Junior Data Engineer")
				mods, _ := store.ListModules(ctx)
				So(len(mods), ShouldEqual, 2)
			})
		})

		Convey("When the file does not exist", func() {
			_, err := repository.LoadCatalog(filepath.Join(t.TempDir(), "missing.yaml"))
			So(err, ShouldNotBeNil)
		})
	})

	Convey("Given invalid catalogs", t, func() {
		bad := []string{
			"roles: [{skills: {}}]",
			"roles: [{role_id: a}, {role_id: a}]",
			"roles: [{role_id: a, skills: {Go: {required_level: 9, importance: 1}}}]",
			"roles: [{role_id: a, skills: {Go: {required_level: 2, importance: 0}}}]",
			"modules: [{module_id: m, skills_covered: [{skill: Go, weight: 0}]}]",
			"modules: [{module_id: m, skills_covered: [{target_level: 3}]}]",
			"modules: [{module_id: m}, {module_id: m}]",
			"roles: {not: a list}",
		}
		for _, doc := range bad {
			_, err := repository.ParseCatalog([]byte(doc))
			So(errors.Is(err, repository.ErrInvalidCatalog), ShouldBeTrue)
		}
	})
}
