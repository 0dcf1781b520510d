package rating_test

import (
	"testing"

	"github.com/okian/reviewdesk/internal/domain/model"
	"github.com/okian/reviewdesk/internal/domain/rating"
	. "github.com/smartystreets/goconvey/convey"
)

func TestClassify(t *testing.T) {
	Convey("Given the default classifier", t, func() {
		Convey("Selected candidates are strong matches at any score", func() {
			So(rating.Classify(10, "Selected"), ShouldEqual, rating.Strong)
			So(rating.Classify(95, " selected "), ShouldEqual, rating.Strong)
		})

		Convey("Rejected candidates are graded by score", func() {
			So(rating.Classify(85, "Rejected"), ShouldEqual, rating.Moderate)
			So(rating.Classify(50, "Rejected"), ShouldEqual, rating.Moderate)
			So(rating.Classify(49, "Rejected"), ShouldEqual, rating.Poor)
			So(rating.Classify(0, ""), ShouldEqual, rating.Poor)
		})
	})

	Convey("Given a custom threshold", t, func() {
		c := rating.NewClassifier(rating.WithModerateThreshold(70))
		So(c.Classify(69, "Rejected"), ShouldEqual, rating.Poor)
		So(c.Classify(70, "Rejected"), ShouldEqual, rating.Moderate)

		ignored := rating.NewClassifier(rating.WithModerateThreshold(-1))
		So(ignored.Classify(50, "Rejected"), ShouldEqual, rating.Moderate)
	})

	Convey("Given records", t, func() {
		c := rating.NewClassifier()
		rec := model.NewRecord(model.SchemaEvaluation, map[string]model.Value{
			model.FieldDecision: model.String("Rejected"),
			model.FieldScore:    model.Int(30),
		})
		m, ok := c.ClassifyRecord(rec)
		So(ok, ShouldBeTrue)
		So(m, ShouldEqual, rating.Poor)

		_, ok = c.ClassifyRecord(model.NewRecord(model.SchemaEvaluation, nil))
		So(ok, ShouldBeFalse)
	})
}
