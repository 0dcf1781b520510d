package schema_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/okian/reviewdesk/internal/domain/model"
	"github.com/okian/reviewdesk/internal/domain/schema"
	"github.com/smartystreets/goconvey/convey"
)

const ticketSchema = `
schemas:
  - name: ticket
    title: Support Tickets
    envelope: tickets
    header_field: id
    long_text_field: summary
    rank_field: priority
    fields:
      - name: id
        label: Ticket
        type: string
        required: true
        key: true
      - name: priority
        type: integer
        required: true
        min: 1
        max: 5
      - name: tags
        type: list
      - name: summary
        type: text
`

func TestRegistry(t *testing.T) {
	convey.Convey("Given a new registry", t, func() {
		r := schema.NewRegistry()

		convey.Convey("The built-in schemas are available", func() {
			convey.So(r.Names(), convey.ShouldResemble, []string{"critique", "evaluation", "test_case"})
			s, err := r.Get("evaluation")
			convey.So(err, convey.ShouldBeNil)
			convey.So(s.FieldNames(), convey.ShouldResemble, []string{"name", "email", "decision", "score", "feedback"})
			convey.So(s.KeyFields(), convey.ShouldResemble, []string{"name", "decision", "score"})
			convey.So(s.Label("requirement_id"), convey.ShouldEqual, "requirement_id")
		})

		convey.Convey("Unknown names fail with ErrUnknownSchema", func() {
			_, err := r.Get("nope")
			convey.So(errors.Is(err, schema.ErrUnknownSchema), convey.ShouldBeTrue)
		})

		convey.Convey("Schemas load from YAML", func() {
			convey.So(r.LoadYAML([]byte(ticketSchema)), convey.ShouldBeNil)
			s, err := r.Get("ticket")
			convey.So(err, convey.ShouldBeNil)
			convey.So(s.Label("id"), convey.ShouldEqual, "Ticket")
			convey.So(s.Label("priority"), convey.ShouldEqual, "priority")

			rec, err := schema.Validate(model.Candidate{"id": "T-1", "priority": 3, "tags": []any{"ui", "auth"}}, s)
			convey.So(err, convey.ShouldBeNil)
			convey.So(rec.Get("tags").Items(), convey.ShouldResemble, []string{"ui", "auth"})

			_, err = schema.Validate(model.Candidate{"id": "T-2", "priority": 9}, s)
			convey.So(errors.Is(err, schema.ErrInvalidRecord), convey.ShouldBeTrue)
		})

		convey.Convey("Schemas load from a file", func() {
			path := filepath.Join(t.TempDir(), "schemas.yaml")
			convey.So(os.WriteFile(path, []byte(ticketSchema), 0o600), convey.ShouldBeNil)
			convey.So(r.LoadFile(path), convey.ShouldBeNil)
			_, err := r.Get("ticket")
			convey.So(err, convey.ShouldBeNil)
		})

		convey.Convey("Invalid definitions are rejected as a whole", func() {
			bad := `
schemas:
  - name: ok
    header_field: a
    fields:
      - name: a
        type: string
  - name: broken
    header_field: b
    fields:
      - name: b
        type: enum
`
			err := r.LoadYAML([]byte(bad))
			convey.So(errors.Is(err, schema.ErrInvalidSchema), convey.ShouldBeTrue)
			_, err = r.Get("ok")
			convey.So(errors.Is(err, schema.ErrUnknownSchema), convey.ShouldBeTrue)
		})

		convey.Convey("Check catches malformed schemas", func() {
			convey.So(r.Register(&schema.Schema{Name: "x"}), convey.ShouldNotBeNil)
			convey.So(r.Register(&schema.Schema{
				Name: "x", Header: "missing",
				Fields: []schema.Field{{Name: "a", Type: schema.TypeString}},
			}), convey.ShouldNotBeNil)
			convey.So(r.Register(&schema.Schema{
				Name: "x", Header: "a",
				Fields: []schema.Field{{Name: "a", Type: "blob"}},
			}), convey.ShouldNotBeNil)
			convey.So(r.Register(nil), convey.ShouldNotBeNil)
			convey.So(errors.Is(r.Register(&schema.Schema{
				Name: "x", Header: "a",
				Fields: []schema.Field{{Name: "a", Type: schema.TypeString}, {Name: schema.SourceField, Type: schema.TypeString}},
			}), schema.ErrInvalidSchema), convey.ShouldBeTrue)
			convey.So(r.Register(&schema.Schema{
				Name: "x", Header: "a",
				Fields: []schema.Field{{Name: "a", Type: schema.TypeString}},
			}), convey.ShouldBeNil)
		})
	})
}
