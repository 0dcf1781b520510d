package service_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/okian/reviewdesk/internal/adapters/replies"
	"github.com/okian/reviewdesk/internal/adapters/repository"
	service "github.com/okian/reviewdesk/internal/app"
	"github.com/okian/reviewdesk/internal/domain/extract"
	"github.com/okian/reviewdesk/internal/domain/model"
	"github.com/okian/reviewdesk/internal/domain/rating"
	"github.com/okian/reviewdesk/internal/domain/schema"
	"github.com/okian/reviewdesk/pkg/logger"
	"github.com/okian/reviewdesk/pkg/metrics"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func reply(name string, score int, decision string) string {
	return fmt.Sprintf("Sure! Here is the result:\n"+
		`{"name":%q,"email":"%s@example.com","selection_decision":%q,"resume_score":%d,"feedback":"Reviewed %s"}`,
		name, name, decision, score, name)
}

// counter reads the current value of a counter from the metrics registry.
func counter(name string) float64 {
	families, err := metrics.GetRegistry().Gather()
	So(err, ShouldBeNil)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		var sum float64
		for _, m := range mf.GetMetric() {
			sum += m.GetCounter().GetValue()
		}
		return sum
	}
	return 0
}

func TestService_Lifecycle(t *testing.T) {
	Convey("Given a new service", t, func() {
		svc := service.New(service.WithWorkerCount(2), service.WithQueueSize(8))
		defer svc.Stop()

		Convey("It is not started until Start", func() {
			So(svc.GetStats().Started, ShouldBeFalse)
			_, err := svc.Submit(context.Background(), "x", "{}")
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
		})

		Convey("Start and Stop toggle the started flag", func() {
			So(svc.Start(context.Background()), ShouldBeNil)
			So(svc.Start(context.Background()), ShouldBeNil)
			stats := svc.GetStats()
			So(stats.Started, ShouldBeTrue)
			So(stats.WorkerCount, ShouldEqual, 2)
			So(stats.QueueSize, ShouldEqual, 8)
			So(stats.Schema, ShouldEqual, "evaluation")

			svc.Stop()
			So(svc.GetStats().Started, ShouldBeFalse)
		})
	})
}

func TestService_RegisterAndIngest(t *testing.T) {
	Convey("Given a service", t, func() {
		ctx := context.Background()
		svc := service.New()

		Convey("Register generates an id when none is given", func() {
			id, err := svc.Register(ctx, "", "")
			So(err, ShouldBeNil)
			So(id, ShouldHaveLength, 36)
		})

		Convey("Duplicate source names are rejected until the first is removed", func() {
			_, err := svc.Register(ctx, "a", "Resumes/Jane.pdf")
			So(err, ShouldBeNil)
			_, err = svc.Register(ctx, "b", "jane.PDF")
			So(errors.Is(err, service.ErrDuplicateSource), ShouldBeTrue)

			So(svc.Remove(ctx, "a"), ShouldBeNil)
			_, err = svc.Register(ctx, "b", "jane.pdf")
			So(err, ShouldBeNil)
		})

		Convey("A reused id does not hold its source name", func() {
			_, err := svc.Register(ctx, "a", "one.pdf")
			So(err, ShouldBeNil)
			_, err = svc.Register(ctx, "a", "two.pdf")
			So(errors.Is(err, repository.ErrAlreadyExists), ShouldBeTrue)
			_, err = svc.Register(ctx, "c", "two.pdf")
			So(err, ShouldBeNil)
		})

		Convey("Ingest stores the extracted record", func() {
			_, err := svc.Register(ctx, "jane", "")
			So(err, ShouldBeNil)
			rec, err := svc.Ingest(ctx, "jane", reply("Jane", 88, "selected"))
			So(err, ShouldBeNil)
			So(rec.Get(model.FieldDecision).Text(), ShouldEqual, model.DecisionSelected)

			eff, err := svc.Effective(ctx, "jane")
			So(err, ShouldBeNil)
			So(model.EvaluationOf(eff).Score, ShouldEqual, 88)
		})

		Convey("A bad reply leaves the submission without a record", func() {
			_, err := svc.Register(ctx, "bob", "")
			So(err, ShouldBeNil)
			_, err = svc.Ingest(ctx, "bob", "I could not read the resume.")
			var f *extract.Failure
			So(errors.As(err, &f), ShouldBeTrue)
			So(f.Raw, ShouldEqual, "I could not read the resume.")

			_, err = svc.Effective(ctx, "bob")
			So(errors.Is(err, repository.ErrNoRecordYet), ShouldBeTrue)
			So(svc.Rows(ctx), ShouldBeEmpty)
			So(svc.List(ctx), ShouldHaveLength, 1)

			Convey("and the rejected reply is kept for review", func() {
				snap, err := svc.Get(ctx, "bob")
				So(err, ShouldBeNil)
				So(snap.Failure, ShouldNotBeNil)
				So(snap.Failure.Raw, ShouldEqual, "I could not read the resume.")
				So(snap.Failure.ParseError, ShouldNotBeEmpty)
				So(svc.List(ctx)[0].Failed, ShouldBeTrue)

				_, err = svc.Ingest(ctx, "bob", `{"name":"Bob","decision":"maybe"}`)
				So(err, ShouldNotBeNil)
				snap, _ = svc.Get(ctx, "bob")
				So(snap.Failure.ParseError, ShouldBeEmpty)
				So(snap.Failure.FieldErrors, ShouldNotBeEmpty)

				_, err = svc.Ingest(ctx, "bob", reply("Bob", 35, "rejected"))
				So(err, ShouldBeNil)
				snap, _ = svc.Get(ctx, "bob")
				So(snap.Failure, ShouldBeNil)
			})
		})

		Convey("Ingest for an unknown id is NotFound", func() {
			_, err := svc.Ingest(ctx, "ghost", reply("Ghost", 10, "rejected"))
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			_, err = svc.Ingest(ctx, "ghost", "garbage")
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
		})
	})
}

func TestService_Override(t *testing.T) {
	Convey("Given an ingested submission", t, func() {
		ctx := context.Background()
		svc := service.New()
		_, err := svc.Register(ctx, "jane", "")
		So(err, ShouldBeNil)

		Convey("Override before a record exists is NoRecordYet", func() {
			_, err := svc.Override(ctx, "jane", map[string]any{"score": 50})
			So(errors.Is(err, repository.ErrNoRecordYet), ShouldBeTrue)
		})

		_, err = svc.Ingest(ctx, "jane", reply("Jane", 40, "rejected"))
		So(err, ShouldBeNil)

		Convey("Overrides win and survive a new machine record", func() {
			eff, err := svc.Override(ctx, "jane", map[string]any{"decision": "SELECTED", "score": 95})
			So(err, ShouldBeNil)
			So(eff.Get(model.FieldDecision).Text(), ShouldEqual, model.DecisionSelected)
			So(model.EvaluationOf(eff).Score, ShouldEqual, 95)

			_, err = svc.Ingest(ctx, "jane", reply("Jane", 10, "rejected"))
			So(err, ShouldBeNil)
			eff, err = svc.Effective(ctx, "jane")
			So(err, ShouldBeNil)
			So(model.EvaluationOf(eff).Score, ShouldEqual, 95)

			snap, err := svc.Get(ctx, "jane")
			So(err, ShouldBeNil)
			So(snap.Overridden, ShouldResemble, []string{"decision", "score"})
			score, _ := snap.Machine.Get(model.FieldScore).Int()
			So(score, ShouldEqual, int64(10))

			eff, err = svc.ClearOverride(ctx, "jane", "score")
			So(err, ShouldBeNil)
			So(model.EvaluationOf(eff).Score, ShouldEqual, 10)
		})

		Convey("Confidence follows the effective email", func() {
			eff, err := svc.Override(ctx, "jane", map[string]any{"email": "not an email"})
			So(err, ShouldBeNil)
			So(eff.Confidence, ShouldEqual, model.ConfidenceLow)
			So(eff.Warnings, ShouldHaveLength, 1)
			So(eff.Warnings[0].Field, ShouldEqual, model.FieldEmail)

			snap, err := svc.Get(ctx, "jane")
			So(err, ShouldBeNil)
			So(snap.Effective.Confidence, ShouldEqual, model.ConfidenceLow)
			So(snap.Machine.Confidence, ShouldEqual, model.ConfidenceHigh)
			So(svc.List(ctx)[0].Record.Confidence, ShouldEqual, model.ConfidenceLow)

			eff, err = svc.ClearOverride(ctx, "jane", "email")
			So(err, ShouldBeNil)
			So(eff.Confidence, ShouldEqual, model.ConfidenceHigh)
			So(eff.Warnings, ShouldBeEmpty)
		})

		Convey("Fixing a bad extracted email restores high confidence", func() {
			_, err := svc.Ingest(ctx, "jane", `{"name":"Jane","email":"jane at example","decision":"Selected","score":90,"feedback":"ok"}`)
			So(err, ShouldBeNil)
			eff, err := svc.Effective(ctx, "jane")
			So(err, ShouldBeNil)
			So(eff.Confidence, ShouldEqual, model.ConfidenceLow)

			eff, err = svc.Override(ctx, "jane", map[string]any{"email": "jane@example.com"})
			So(err, ShouldBeNil)
			So(eff.Confidence, ShouldEqual, model.ConfidenceHigh)
			So(eff.Warnings, ShouldBeEmpty)
			So(svc.Rows(ctx)[0].Record.Confidence, ShouldEqual, model.ConfidenceHigh)
		})

		Convey("Clearing an undeclared field is rejected", func() {
			_, err := svc.ClearOverride(ctx, "jane", "color")
			var ve *schema.ValidationError
			So(errors.As(err, &ve), ShouldBeTrue)
			So(ve.Has("color", schema.CodeUnknown), ShouldBeTrue)
		})

		Convey("Invalid overrides are rejected with field errors", func() {
			_, err := svc.Override(ctx, "jane", map[string]any{"score": 101, "color": "red"})
			var ve *schema.ValidationError
			So(errors.As(err, &ve), ShouldBeTrue)
			So(ve.Has("score", schema.CodeOutOfRange), ShouldBeTrue)
			So(ve.Has("color", schema.CodeUnknown), ShouldBeTrue)

			eff, err := svc.Effective(ctx, "jane")
			So(err, ShouldBeNil)
			So(model.EvaluationOf(eff).Score, ShouldEqual, 40)
		})
	})
}

func TestService_Metrics(t *testing.T) {
	Convey("Given a service", t, func() {
		ctx := context.Background()
		svc := service.New()
		registered := counter("reviewdesk_srer_submissions_registered_total")
		removed := counter("reviewdesk_srer_submissions_removed_total")
		overrides := counter("reviewdesk_srer_overrides_applied_total")

		_, err := svc.Register(ctx, "jane", "jane.pdf")
		So(err, ShouldBeNil)
		_, err = svc.Ingest(ctx, "jane", reply("Jane", 80, "selected"))
		So(err, ShouldBeNil)
		_, err = svc.Override(ctx, "jane", map[string]any{"score": 81})
		So(err, ShouldBeNil)
		_, err = svc.Override(ctx, "jane", map[string]any{"score": 500})
		So(err, ShouldNotBeNil)
		So(svc.Remove(ctx, "jane"), ShouldBeNil)

		So(counter("reviewdesk_srer_submissions_registered_total"), ShouldEqual, registered+1)
		So(counter("reviewdesk_srer_submissions_removed_total"), ShouldEqual, removed+1)
		So(counter("reviewdesk_srer_overrides_applied_total"), ShouldEqual, overrides+1)
	})
}

func TestService_Submit(t *testing.T) {
	Convey("Given a started service", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		svc := service.New(service.WithWorkerCount(4))
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		Convey("Queued replies complete with their outcome", func() {
			var dones []<-chan struct{}
			var mu sync.Mutex
			results := make(map[string]error)
			for i := 0; i < 10; i++ {
				id := fmt.Sprintf("c%d", i)
				_, err := svc.Register(ctx, id, "")
				So(err, ShouldBeNil)
				raw := reply(id, i*10, "rejected")
				if i == 3 {
					raw = "no json"
				}
				done, err := svc.Submit(ctx, id, raw)
				So(err, ShouldBeNil)
				finished := make(chan struct{})
				go func() {
					defer close(finished)
					out, err := service.AwaitOutcome(ctx, done)
					mu.Lock()
					defer mu.Unlock()
					if err != nil {
						results[id] = err
						return
					}
					results[id] = out.Err
				}()
				dones = append(dones, finished)
			}
			for _, d := range dones {
				<-d
			}
			So(results, ShouldHaveLength, 10)
			So(results["c3"], ShouldNotBeNil)
			So(results["c4"], ShouldBeNil)

			entries := svc.List(ctx)
			So(entries, ShouldHaveLength, 10)
			for i, e := range entries {
				So(e.ID, ShouldEqual, fmt.Sprintf("c%d", i))
			}
			So(svc.Rows(ctx), ShouldHaveLength, 9)
			So(svc.GetStats().Processed, ShouldEqual, int64(10))
		})

		Convey("Submit for an unknown id is NotFound", func() {
			_, err := svc.Submit(ctx, "ghost", "{}")
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
		})
	})
}

func TestService_AnalyzeBatch(t *testing.T) {
	Convey("Given a service with a replay analyzer", t, func() {
		ctx := context.Background()
		answers := replies.Map{
			"ann": reply("Ann", 70, "rejected"),
			"ben": reply("Ben", 95, "selected"),
			"cat": "The model timed out.",
			"dan": reply("Dan", 30, "rejected"),
		}
		svc := service.New(service.WithAnalyzer(answers), service.WithBatchConcurrency(2))
		ids := []string{"ann", "ben", "cat", "dan", "eve"}
		for _, id := range ids {
			_, err := svc.Register(ctx, id, id+".pdf")
			So(err, ShouldBeNil)
		}

		Convey("Results come back in input order with failures kept", func() {
			results, err := svc.AnalyzeBatch(ctx, ids)
			So(err, ShouldBeNil)
			So(results, ShouldHaveLength, 5)
			for i, r := range results {
				So(r.ID, ShouldEqual, ids[i])
			}
			So(results[0].Err, ShouldBeNil)
			So(results[2].Raw, ShouldEqual, "The model timed out.")
			var f *extract.Failure
			So(errors.As(results[2].Err, &f), ShouldBeTrue)
			So(errors.Is(results[4].Err, replies.ErrNoReply), ShouldBeTrue)

			Convey("TopN ranks by score with a match rating", func() {
				top := svc.TopN(ctx, 2)
				So(top, ShouldHaveLength, 2)
				So(top[0].ID, ShouldEqual, "ben")
				So(top[0].Rank, ShouldEqual, 1)
				So(top[0].Source, ShouldEqual, "ben.pdf")
				So(top[0].Match, ShouldEqual, string(rating.Strong))
				So(top[1].Name, ShouldEqual, "Ann")
				So(top[1].Match, ShouldEqual, string(rating.Moderate))
				So(svc.TopN(ctx, 0), ShouldBeEmpty)
			})

			Convey("Rating grades one submission", func() {
				m, err := svc.Rating(ctx, "dan")
				So(err, ShouldBeNil)
				So(m, ShouldEqual, rating.Poor)
				_, err = svc.Rating(ctx, "cat")
				So(errors.Is(err, repository.ErrNoRecordYet), ShouldBeTrue)
			})
		})

		Convey("A cancelled batch is abandoned", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			results, err := svc.AnalyzeBatch(cctx, ids)
			So(errors.Is(err, context.Canceled), ShouldBeTrue)
			So(results, ShouldHaveLength, 5)
			So(svc.Rows(ctx), ShouldBeEmpty)
		})
	})

	Convey("Without an analyzer AnalyzeBatch fails", t, func() {
		_, err := service.New().AnalyzeBatch(context.Background(), []string{"x"})
		So(errors.Is(err, service.ErrNoAnalyzer), ShouldBeTrue)
	})
}

func TestService_IngestEnvelope(t *testing.T) {
	Convey("Given a critique service", t, func() {
		ctx := context.Background()
		svc := service.New(service.WithSchema(schema.Critique()))
		raw := `{"results":[
			{"FR_id":"FR-1","requirement_summary":"Login","fulfillment":"fulfilled","critique":"Works"},
			{"FR_id":"FR-2","requirement_summary":"Reset","fulfillment":"sometimes","critique":"Flaky"}
		]}`

		ids, errs, err := svc.IngestEnvelope(ctx, "fr", raw)
		So(err, ShouldBeNil)
		So(ids, ShouldResemble, []string{"fr-1", "fr-2"})
		So(errs[0], ShouldBeNil)
		So(errs[1], ShouldNotBeNil)
		snap, err := svc.Get(ctx, "fr-2")
		So(err, ShouldBeNil)
		So(snap.Failure, ShouldNotBeNil)
		So(snap.Failure.FieldErrors, ShouldNotBeEmpty)
		So(svc.Rows(ctx), ShouldHaveLength, 1)
		So(svc.List(ctx), ShouldHaveLength, 2)
		So(svc.TopN(ctx, 5), ShouldBeEmpty)

		_, _, err = svc.IngestEnvelope(ctx, "bad", "nothing here")
		So(err, ShouldNotBeNil)
	})
}
