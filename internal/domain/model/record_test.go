package model_test

import (
	"encoding/json"
	"testing"

	"github.com/okian/reviewdesk/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestRecord(t *testing.T) {
	convey.Convey("Given an evaluation record", t, func() {
		rec := model.NewRecord(model.SchemaEvaluation, map[string]model.Value{
			model.FieldName:     model.String("Jane Doe"),
			model.FieldDecision: model.String("Rejected"),
			model.FieldScore:    model.Int(40),
			model.FieldEmail:    {},
		})

		convey.Convey("It starts with high confidence and drops absent values", func() {
			convey.So(rec.Confidence, convey.ShouldEqual, model.ConfidenceHigh)
			convey.So(rec.Has(model.FieldEmail), convey.ShouldBeFalse)
			convey.So(rec.Fields(), convey.ShouldResemble, []string{"decision", "name", "score"})
			convey.So(rec.IsZero(), convey.ShouldBeFalse)
			convey.So(model.Record{}.IsZero(), convey.ShouldBeTrue)
		})

		convey.Convey("With merges overrides without touching the original", func() {
			merged := rec.With(map[string]model.Value{model.FieldDecision: model.String("Selected")})
			convey.So(merged.Get(model.FieldDecision).Text(), convey.ShouldEqual, "Selected")
			convey.So(merged.Get(model.FieldScore).Text(), convey.ShouldEqual, "40")
			convey.So(rec.Get(model.FieldDecision).Text(), convey.ShouldEqual, "Rejected")
		})

		convey.Convey("Values returns an independent copy", func() {
			vals := rec.Values()
			vals[model.FieldName] = model.String("Other")
			convey.So(rec.Get(model.FieldName).Text(), convey.ShouldEqual, "Jane Doe")
		})

		convey.Convey("WithWarning downgrades confidence on a copy", func() {
			warned := rec.WithWarning(model.Warning{Field: model.FieldEmail, Message: "invalid address"})
			convey.So(warned.Confidence, convey.ShouldEqual, model.ConfidenceLow)
			convey.So(warned.Warnings, convey.ShouldHaveLength, 1)
			convey.So(rec.Confidence, convey.ShouldEqual, model.ConfidenceHigh)
			convey.So(rec.Warnings, convey.ShouldBeEmpty)
		})

		convey.Convey("The typed view reads every field", func() {
			ev := model.EvaluationOf(rec)
			convey.So(ev, convey.ShouldResemble, model.Evaluation{Name: "Jane Doe", Decision: "Rejected", Score: 40})
		})

		convey.Convey("JSON nests fields under a fields key", func() {
			b, err := json.Marshal(rec)
			convey.So(err, convey.ShouldBeNil)
			var out map[string]any
			convey.So(json.Unmarshal(b, &out), convey.ShouldBeNil)
			convey.So(out["schema"], convey.ShouldEqual, "evaluation")
			convey.So(out["confidence"], convey.ShouldEqual, "high")
			fields := out["fields"].(map[string]any)
			convey.So(fields["score"], convey.ShouldEqual, 40.0)
		})
	})

	convey.Convey("Given a critique record", t, func() {
		rec := model.NewRecord(model.SchemaCritique, map[string]model.Value{
			model.FieldRequirementID: model.String("FR-1"),
			model.FieldFulfillment:   model.String(model.PartiallyFulfilled),
		})
		c := model.CritiqueOf(rec)
		convey.So(c.RequirementID, convey.ShouldEqual, "FR-1")
		convey.So(c.Fulfillment, convey.ShouldEqual, "Partially Fulfilled")
		convey.So(c.Suggestions, convey.ShouldEqual, "")
	})
}
