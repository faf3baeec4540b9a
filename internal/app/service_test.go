package service_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/okian/modellab/internal/adapters/mq/queue"
	service "github.com/okian/modellab/internal/app"
	"github.com/okian/modellab/internal/domain/model"
	"github.com/okian/modellab/internal/domain/weights"
	"github.com/okian/modellab/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func dataset() *model.Dataset {
	return &model.Dataset{
		Entities: []model.Entity{
			{ID: "car", BaselineRank: 1, BaselineScore: 0.8, Metrics: map[string]float64{"elo": 0.9, "bt": 0.9, "sd": 0.2}},
			{ID: "dal", BaselineRank: 2, BaselineScore: 0.6, Metrics: map[string]float64{"elo": 0.6, "bt": 0.7, "sd": 0.5}},
			{ID: "uta", BaselineRank: 3, BaselineScore: 0.3, Metrics: map[string]float64{"elo": 0.2, "bt": 0.3, "sd": 1.0}},
		},
		Matchups: []model.Matchup{
			{Game: 1, First: "car", Second: "uta", BaselineWinner: "car", BaselineProbability: 0.62,
				Probabilities: map[string]float64{"elo": 0.7, "bt": 0.7, "rf": 0.3, "gbm": 0.7, "lr": 0.6, "mlp": 0.6}},
			{Game: 2, First: "dal", Second: "car", BaselineWinner: "car", BaselineProbability: 0.45,
				Probabilities: map[string]float64{"elo": 0.4, "bt": 0.4, "rf": 0.6, "gbm": 0.45, "lr": 0.5, "mlp": 0.4}},
		},
	}
}

func setEdit(id string, kind weights.Kind, key string, value float64) model.Edit {
	return model.Edit{ID: id, Op: model.EditSet, Kind: kind, Key: key, Value: value}
}

func TestService_New(t *testing.T) {
	Convey("Given a service built with options", t, func() {
		svc := service.New(
			service.WithDataset(dataset()),
			service.WithQueueSize(8),
			service.WithDedupeSize(16),
			service.WithNotableShift(1),
			service.WithModifiedTolerance(0.01),
		)

		Convey("Then stats reflect the configuration before start", func() {
			stats := svc.GetStats()
			So(stats["started"], ShouldEqual, false)
			So(stats["queueSize"], ShouldEqual, 8)
			So(stats["dedupeSize"], ShouldEqual, 16)
			So(stats["entities"], ShouldEqual, 3)
		})

		Convey("Then reads fail until it is started", func() {
			_, err := svc.Result(context.Background())
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			_, err = svc.Submit(context.Background(), model.Edit{Op: model.EditReset})
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			So(svc.Done(), ShouldBeNil)
		})
	})
}

func TestService_Lifecycle(t *testing.T) {
	Convey("Given a started service", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		svc := service.New(service.WithDataset(dataset()), service.WithNotableShift(1))
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		Convey("Then it serves the baseline at revision 0", func() {
			res, err := svc.Result(ctx)
			So(err, ShouldBeNil)
			So(res.Revision, ShouldEqual, uint64(0))
			So(res.Modified, ShouldBeFalse)

			stats := svc.GetStats()
			So(stats["started"], ShouldEqual, true)
			So(stats["revision"], ShouldEqual, uint64(0))
			So(stats["queueLength"], ShouldEqual, 0)
		})

		Convey("Then starting twice is harmless", func() {
			So(svc.Start(ctx), ShouldBeNil)
		})

		Convey("When shot differential takes all the ranking weight", func() {
			rec, err := svc.Submit(ctx, setEdit("e1", weights.KindRanking, weights.KeySD, 1))
			So(err, ShouldBeNil)

			Convey("Then the reranked result comes back", func() {
				So(rec.EditID, ShouldEqual, "e1")
				So(rec.Duplicate, ShouldBeFalse)
				So(rec.Result.Revision, ShouldEqual, uint64(1))
				So(rec.Result.Entities[0].ID, ShouldEqual, "uta")
				So(rec.Result.Entities[0].RankDelta, ShouldEqual, 2)
				So(rec.Result.Entities[0].Notable, ShouldBeTrue)
				So(rec.Result.Summary.MovedUp, ShouldBeGreaterThan, 0)
			})

			Convey("Then the read side agrees", func() {
				top, err := svc.Rankings(ctx, 1)
				So(err, ShouldBeNil)
				So(len(top), ShouldEqual, 1)
				So(top[0].ID, ShouldEqual, "uta")

				e, err := svc.Entity(ctx, "car")
				So(err, ShouldBeNil)
				So(e.CustomRank, ShouldEqual, 3)

				r, _, err := svc.Weights(ctx)
				So(err, ShouldBeNil)
				So(r.Modified, ShouldBeTrue)
			})

			Convey("And the same edit ID is retried", func() {
				again, err := svc.Submit(ctx, setEdit("e1", weights.KindRanking, weights.KeySD, 0))

				Convey("Then it is not applied again", func() {
					So(err, ShouldBeNil)
					So(again.Duplicate, ShouldBeTrue)
					So(again.Result.Revision, ShouldEqual, uint64(1))
				})
			})

			Convey("And everything is reset", func() {
				rec, err := svc.Submit(ctx, model.Edit{Op: model.EditReset})

				Convey("Then an ID is generated and the baseline returns", func() {
					So(err, ShouldBeNil)
					So(rec.EditID, ShouldNotBeEmpty)
					So(rec.Result.Revision, ShouldEqual, uint64(2))
					So(rec.Result.Modified, ShouldBeFalse)
					for _, e := range rec.Result.Entities {
						So(e.RankDelta, ShouldEqual, 0)
					}
				})
			})
		})

		Convey("When the random forest takes all the prediction weight", func() {
			_, err := svc.Submit(ctx, setEdit("p1", weights.KindPrediction, weights.KeyRF, 1))
			So(err, ShouldBeNil)

			Convey("Then flipped matchups can be listed on their own", func() {
				all, err := svc.Matchups(ctx, false)
				So(err, ShouldBeNil)
				So(len(all), ShouldEqual, 2)

				flipped, err := svc.Matchups(ctx, true)
				So(err, ShouldBeNil)
				So(len(flipped), ShouldEqual, 2)
				for _, m := range flipped {
					So(m.WinnerChanged, ShouldBeTrue)
				}

				sum, err := svc.Summary(ctx)
				So(err, ShouldBeNil)
				So(sum.Flipped, ShouldEqual, 2)
			})
		})

		Convey("When an edit is invalid", func() {
			_, errKey := svc.Submit(ctx, setEdit("bad1", weights.KindRanking, weights.KeyMLP, 0.4))
			_, errKind := svc.Submit(ctx, setEdit("bad2", "power", weights.KeyElo, 0.4))

			Convey("Then it is rejected synchronously", func() {
				So(errors.Is(errKey, model.ErrInvalidEdit), ShouldBeTrue)
				So(errors.Is(errKind, weights.ErrUnknownKind), ShouldBeTrue)
				res, _ := svc.Result(ctx)
				So(res.Revision, ShouldEqual, uint64(0))
			})
		})

		Convey("When an unknown entity is requested", func() {
			_, err := svc.Entity(ctx, "nobody")

			Convey("Then ErrNotFound is returned", func() {
				So(errors.Is(err, service.ErrNotFound), ShouldBeTrue)
			})
		})

		Convey("When the service is stopped", func() {
			svc.Stop()

			Convey("Then the applier exits and submissions fail", func() {
				select {
				case <-svc.Done():
				case <-time.After(time.Second):
					t.Fatal("applier still running")
				}
				_, err := svc.Submit(ctx, model.Edit{Op: model.EditReset})
				So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			})
		})
	})
}

func TestService_Concurrency(t *testing.T) {
	Convey("Given many clients editing at once", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		svc := service.New(service.WithDataset(dataset()), service.WithQueueSize(256))
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		keys := weights.KeysOf
		rankingKeys, _ := keys(weights.KindRanking)

		var (
			wg       sync.WaitGroup
			mu       sync.Mutex
			failures []error
		)
		for c := 0; c < 8; c++ {
			wg.Add(1)
			go func(c int) {
				defer wg.Done()
				for i := 0; i < 20; i++ {
					key := rankingKeys[(c+i)%len(rankingKeys)]
					rec, err := svc.Submit(ctx, setEdit(fmt.Sprintf("c%d-%d", c, i), weights.KindRanking, key, float64(i%10)/10))
					if err == nil {
						var sum float64
						for _, w := range rec.Result.Ranking.Weights {
							sum += w.Weight
						}
						if d := sum - 1; d > 1e-9 || d < -1e-9 {
							err = fmt.Errorf("sum drifted to %v", sum)
						}
					}
					if err != nil && !errors.Is(err, queue.ErrFull) {
						mu.Lock()
						failures = append(failures, err)
						mu.Unlock()
					}
				}
			}(c)
		}
		wg.Wait()

		Convey("Then every response carried a consistent vector", func() {
			So(failures, ShouldBeEmpty)
			res, err := svc.Result(ctx)
			So(err, ShouldBeNil)
			So(res.Ranking.Sum, ShouldAlmostEqual, 1, weights.SumTolerance)
		})
	})

	Convey("Given many clients each setting elo to their own value", t, func() {
		ctx := context.Background()
		svc := service.New(service.WithDataset(dataset()), service.WithQueueSize(512))
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		const clients = 200
		receipts := make([]service.Receipt, clients)
		errs := make([]error, clients)
		var wg sync.WaitGroup
		for i := 0; i < clients; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				value := float64(i+1) / (clients + 2)
				receipts[i], errs[i] = svc.Submit(ctx, setEdit(fmt.Sprintf("elo-%d", i), weights.KindRanking, weights.KeyElo, value))
			}(i)
		}
		wg.Wait()

		Convey("Then each receipt reports the vector its own edit produced", func() {
			revisions := make(map[uint64]struct{}, clients)
			for i, rec := range receipts {
				So(errs[i], ShouldBeNil)
				So(eloWeight(rec.Result), ShouldAlmostEqual, float64(i+1)/(clients+2), 1e-9)
				So(rec.Result.Revision, ShouldBeGreaterThan, uint64(0))
				revisions[rec.Result.Revision] = struct{}{}
			}
			So(revisions, ShouldHaveLength, clients)
		})
	})

	Convey("Given a started service and an impatient caller", t, func() {
		ctx := context.Background()
		svc := service.New(service.WithDataset(dataset()), service.WithQueueSize(1))
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		Convey("When a submission is abandoned by its caller", func() {
			short, cancel := context.WithCancel(ctx)
			cancel()
			_, err := svc.Submit(short, setEdit("gone", weights.KindRanking, weights.KeyGD, 0.3))

			Convey("Then the caller sees the context error", func() {
				So(errors.Is(err, context.Canceled), ShouldBeTrue)
			})
		})
	})
}

func eloWeight(res model.Result) float64 {
	for _, w := range res.Ranking.Weights {
		if w.Key == weights.KeyElo {
			return w.Weight
		}
	}
	return -1
}

func TestService_UnboundedDedupe(t *testing.T) {
	Convey("Given a service told to remember every edit ID", t, func() {
		ctx := context.Background()
		svc := service.New(service.WithDataset(dataset()), service.WithDedupeSize(0))

		Convey("Then the zero size is kept rather than replaced by the default", func() {
			So(svc.GetStats()["dedupeSize"], ShouldEqual, 0)
		})

		Convey("When the first of many edits is retried", func() {
			So(svc.Start(ctx), ShouldBeNil)
			defer svc.Stop()

			first, err := svc.Submit(ctx, setEdit("first", weights.KindRanking, weights.KeySD, 0.5))
			So(err, ShouldBeNil)
			for i := 0; i < 50; i++ {
				_, err := svc.Submit(ctx, setEdit(fmt.Sprintf("later-%d", i), weights.KindRanking, weights.KeyGD, float64(i%10)/10))
				So(err, ShouldBeNil)
			}
			again, err := svc.Submit(ctx, setEdit("first", weights.KindRanking, weights.KeySD, 0.5))

			Convey("Then it is still recognised as a duplicate", func() {
				So(err, ShouldBeNil)
				So(again.Duplicate, ShouldBeTrue)
				So(again.Result.Revision, ShouldBeGreaterThan, first.Result.Revision)
			})
		})
	})
}
