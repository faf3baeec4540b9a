package worker_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/okian/modellab/internal/adapters/mq/queue"
	"github.com/okian/modellab/internal/adapters/mq/worker"
	"github.com/okian/modellab/internal/domain/lab"
	"github.com/okian/modellab/internal/domain/model"
	"github.com/okian/modellab/internal/domain/weights"
	logging "github.com/okian/modellab/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func dataset() *model.Dataset {
	return &model.Dataset{
		Entities: []model.Entity{
			{ID: "a", BaselineRank: 1, BaselineScore: 0.6, Metrics: map[string]float64{"elo": 0.9, "sd": 0.1}},
			{ID: "b", BaselineRank: 2, BaselineScore: 0.4, Metrics: map[string]float64{"elo": 0.2, "sd": 0.9}},
		},
		Matchups: []model.Matchup{
			{Game: 1, First: "a", Second: "b", BaselineWinner: "a", BaselineProbability: 0.6,
				Probabilities: map[string]float64{"elo": 0.7, "bt": 0.6, "rf": 0.4, "gbm": 0.6, "lr": 0.6, "mlp": 0.6}},
		},
	}
}

// recordingStore wraps a lab.Store and remembers the order edits arrive in.
type recordingStore struct {
	*lab.Store
	mu  sync.Mutex
	ids []string
}

func (s *recordingStore) Apply(e model.Edit) (lab.State, error) {
	s.mu.Lock()
	s.ids = append(s.ids, e.ID)
	s.mu.Unlock()
	return s.Store.Apply(e)
}

func (s *recordingStore) applied() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.ids...)
}

func await(t *testing.T, j queue.Job) queue.Outcome {
	t.Helper()
	select {
	case o := <-j.Done:
		return o
	case <-time.After(time.Second):
		t.Fatal("no outcome within a second")
		return queue.Outcome{}
	}
}

func TestApplier(t *testing.T) {
	convey.Convey("Given a running applier over a lab store", t, func() {
		_ = logging.Init()

		q := queue.NewInMemoryQueue(queue.WithCapacity(64))
		store := &recordingStore{Store: lab.NewStore(dataset())}
		w := worker.NewApplier(q, store, worker.WithName("test-applier"))

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go w.Run(ctx)

		convey.Convey("When a valid edit is submitted", func() {
			job := queue.NewJob(model.Edit{ID: "e1", Op: model.EditSet, Kind: weights.KindRanking, Key: "sd", Value: 1})
			convey.So(q.Enqueue(ctx, job), convey.ShouldBeNil)
			out := await(t, job)

			convey.Convey("Then it is applied and recomputed", func() {
				convey.So(out.Err, convey.ShouldBeNil)
				convey.So(out.Revision, convey.ShouldEqual, 1)
				res := store.Result()
				convey.So(res.Revision, convey.ShouldEqual, 1)
				convey.So(res.Entities[0].ID, convey.ShouldEqual, "b")
			})

			convey.Convey("And the outcome carries the result of that revision", func() {
				convey.So(out.Result.Revision, convey.ShouldEqual, 1)
				convey.So(out.Result.Entities[0].ID, convey.ShouldEqual, "b")
				convey.So(out.Result.Ranking.Modified, convey.ShouldBeTrue)
			})
		})

		convey.Convey("When an edit names an unknown key", func() {
			job := queue.NewJob(model.Edit{ID: "e2", Op: model.EditSet, Kind: weights.KindPrediction, Key: "pyth", Value: 0.3})
			convey.So(q.Enqueue(ctx, job), convey.ShouldBeNil)
			out := await(t, job)

			convey.Convey("Then the error is reported and the state is unchanged", func() {
				convey.So(errors.Is(out.Err, model.ErrInvalidEdit), convey.ShouldBeTrue)
				convey.So(errors.Is(out.Err, weights.ErrUnknownKey), convey.ShouldBeTrue)
				convey.So(out.Revision, convey.ShouldEqual, 0)
			})

			convey.Convey("And the applier keeps running", func() {
				next := queue.NewJob(model.Edit{ID: "e3", Op: model.EditReset})
				convey.So(q.Enqueue(ctx, next), convey.ShouldBeNil)
				convey.So(await(t, next).Err, convey.ShouldBeNil)
			})
		})

		convey.Convey("When many edits are queued at once", func() {
			ids := []string{"k0", "k1", "k2", "k3", "k4", "k5", "k6", "k7"}
			jobs := make([]queue.Job, len(ids))
			for i, id := range ids {
				jobs[i] = queue.NewJob(model.Edit{ID: id, Op: model.EditSet, Kind: weights.KindPrediction, Key: "rf", Value: float64(i+1) / 10})
				convey.So(q.Enqueue(ctx, jobs[i]), convey.ShouldBeNil)
			}
			var last queue.Outcome
			for _, j := range jobs {
				last = await(t, j)
			}

			convey.Convey("Then they are applied in arrival order", func() {
				convey.So(store.applied(), convey.ShouldResemble, ids)
				convey.So(last.Revision, convey.ShouldEqual, len(ids))
				rf, _ := store.State().Prediction.Value("rf")
				convey.So(rf, convey.ShouldEqual, 0.8)
			})
		})

		convey.Convey("When a job carries no reply channel", func() {
			convey.So(q.Enqueue(ctx, queue.Job{Edit: model.Edit{ID: "fire", Op: model.EditSet, Kind: weights.KindRanking, Key: "gd", Value: 0.5}}), convey.ShouldBeNil)
			probe := queue.NewJob(model.Edit{ID: "probe", Op: model.EditReset, Kind: weights.KindPrediction})
			convey.So(q.Enqueue(ctx, probe), convey.ShouldBeNil)
			await(t, probe)

			convey.Convey("Then it is still applied", func() {
				gd, _ := store.State().Ranking.Value("gd")
				convey.So(gd, convey.ShouldEqual, 0.5)
			})
		})

		convey.Convey("When the applier is shut down", func() {
			shutdownCtx, done := context.WithTimeout(context.Background(), time.Second)
			defer done()

			convey.Convey("Then it stops promptly and repeated calls are safe", func() {
				convey.So(w.Shutdown(shutdownCtx), convey.ShouldBeNil)
				convey.So(w.Shutdown(shutdownCtx), convey.ShouldBeNil)
				select {
				case <-w.Done():
				default:
					t.Fatal("applier still running after shutdown")
				}
			})
		})
	})

	convey.Convey("Given an applier whose queue is closed", t, func() {
		_ = logging.Init()
		q := queue.NewInMemoryQueue(queue.WithCapacity(4))
		w := worker.NewApplier(q, lab.NewStore(dataset()))
		_ = q.Close()

		convey.Convey("Then Run returns on its own", func() {
			finished := make(chan struct{})
			go func() {
				w.Run(context.Background())
				close(finished)
			}()
			select {
			case <-finished:
			case <-time.After(time.Second):
				t.Fatal("Run did not return after queue close")
			}
		})
	})
}
