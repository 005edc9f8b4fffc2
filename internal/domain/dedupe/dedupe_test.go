package dedupe_test

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	dedupe "github.com/okian/upskill/internal/domain/dedupe"
	"github.com/okian/upskill/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestPayloadHash(t *testing.T) {
	Convey("Given event payloads", t, func() {
		a := map[string]any{
			"type":         "module_completed",
			"user_id":      "u1",
			"target_level": json.Number("4"),
			"meta":         map[string]any{"b": 1, "a": 2},
		}
		b := map[string]any{
			"meta":         map[string]any{"a": 2, "b": 1},
			"target_level": json.Number("4"),
			"user_id":      "u1",
			"type":         "module_completed",
		}

		Convey("When the same fields are built in a different order", func() {
			ha, errA := dedupe.PayloadHash(a)
			hb, errB := dedupe.PayloadHash(b)

			Convey("Then the hashes should match", func() {
				So(errA, ShouldBeNil)
				So(errB, ShouldBeNil)
				So(ha, ShouldEqual, hb)
				So(len(ha), ShouldEqual, 64)
			})
		})

		Convey("When a value changes", func() {
			ha, _ := dedupe.PayloadHash(a)
			b["target_level"] = json.Number("5")
			hb, _ := dedupe.PayloadHash(b)

			Convey("Then the hashes should differ", func() {
				So(ha, ShouldNotEqual, hb)
			})
		})

		Convey("When the payload holds a value JSON cannot encode", func() {
			_, err := dedupe.PayloadHash(map[string]any{"x": math.Inf(1)})

			Convey("Then ErrUnhashable should be returned", func() {
				So(errors.Is(err, dedupe.ErrUnhashable), ShouldBeTrue)
			})
		})
	})
}

func TestClassify(t *testing.T) {
	Convey("Given a stored idempotency record", t, func() {
		rec := &model.IdempotencyRecord{PayloadHash: "abc"}

		Convey("Then a missing record should be unseen", func() {
			So(dedupe.Classify(nil, "abc"), ShouldEqual, dedupe.Unseen)
		})

		Convey("Then a matching hash should be a replay", func() {
			So(dedupe.Classify(rec, "abc"), ShouldEqual, dedupe.Replay)
		})

		Convey("Then a different hash should be a conflict", func() {
			So(dedupe.Classify(rec, "def"), ShouldEqual, dedupe.Conflict)
			So(dedupe.Conflict.String(), ShouldEqual, "conflict")
		})
	})
}
