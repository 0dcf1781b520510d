package extract_test

import (
	"errors"
	"testing"

	"github.com/okian/reviewdesk/internal/domain/extract"
	"github.com/okian/reviewdesk/internal/domain/model"
	"github.com/okian/reviewdesk/internal/domain/parser"
	"github.com/okian/reviewdesk/internal/domain/schema"
	"github.com/smartystreets/goconvey/convey"
)

func TestExtract(t *testing.T) {
	convey.Convey("Given an evaluation extractor", t, func() {
		ex := extract.New(schema.Evaluation())
		convey.So(ex.Schema().Name, convey.ShouldEqual, "evaluation")

		convey.Convey("A chatty reply with a valid object yields a record", func() {
			raw := "Here is my assessment:\n" +
				`{"name":"Jane Doe","email":"jane@x.com","selection_decision":"selected","resume_score":92,"feedback":"Strong fit"}` +
				"\nLet me know if you need more."
			rec, err := ex.Extract(raw)
			convey.So(err, convey.ShouldBeNil)
			convey.So(model.EvaluationOf(rec), convey.ShouldResemble, model.Evaluation{
				Name: "Jane Doe", Email: "jane@x.com", Decision: "Selected", Score: 92, Feedback: "Strong fit",
			})
		})

		convey.Convey("An unparseable reply keeps the raw text", func() {
			raw := "Sorry, I cannot read this resume."
			_, err := ex.Extract(raw)
			var f *extract.Failure
			convey.So(errors.As(err, &f), convey.ShouldBeTrue)
			convey.So(f.Raw, convey.ShouldEqual, raw)
			convey.So(f.ParseErr, convey.ShouldNotBeNil)
			convey.So(f.FieldErrors, convey.ShouldBeEmpty)
			convey.So(errors.Is(err, parser.ErrUnparseable), convey.ShouldBeTrue)
		})

		convey.Convey("A structurally valid but invalid record lists every field error", func() {
			raw := `{"name":"Sam","decision":"maybe","score":150}`
			_, err := ex.Extract(raw)
			var f *extract.Failure
			convey.So(errors.As(err, &f), convey.ShouldBeTrue)
			convey.So(f.Raw, convey.ShouldEqual, raw)
			convey.So(f.ParseErr, convey.ShouldBeNil)
			convey.So(f.FieldErrors, convey.ShouldHaveLength, 3)
			convey.So(errors.Is(err, schema.ErrInvalidRecord), convey.ShouldBeTrue)
			convey.So(f.Error(), convey.ShouldContainSubstring, "extract evaluation")
		})
	})

	convey.Convey("Given a critique extractor and an envelope reply", t, func() {
		ex := extract.New(schema.Critique())
		raw := `{"results":[
			{"FR_id":"FR-1","requirement_summary":"Login","fulfillment":"fulfilled","critique":"Works","suggestions":""},
			{"FR_id":"FR-2","requirement_summary":"Reset","fulfillment":"sometimes","critique":"Flaky"}
		]}`

		recs, errs, err := ex.ExtractAll(raw)
		convey.So(err, convey.ShouldBeNil)
		convey.So(recs, convey.ShouldHaveLength, 2)
		convey.So(errs[0], convey.ShouldBeNil)
		convey.So(recs[0].Get("fulfillment").Text(), convey.ShouldEqual, "Fulfilled")

		var f *extract.Failure
		convey.So(errors.As(errs[1], &f), convey.ShouldBeTrue)
		convey.So(f.FieldErrors[0].Code, convey.ShouldEqual, schema.CodeInvalidEnum)
		convey.So(recs[1].IsZero(), convey.ShouldBeTrue)

		_, _, err = ex.ExtractAll("no json")
		convey.So(errors.Is(err, parser.ErrUnparseable), convey.ShouldBeTrue)
	})
}
