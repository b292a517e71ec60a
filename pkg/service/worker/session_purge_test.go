package worker_test

import (
	"context"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/medinotes/pkg/domain/model"
	"github.com/secmon-lab/medinotes/pkg/repository/memory"
	"github.com/secmon-lab/medinotes/pkg/service/worker"
)

func TestSessionPurgeWorker(t *testing.T) {
	t.Run("purges idle sessions on start and keeps active ones", func(t *testing.T) {
		ctx := context.Background()
		repo := memory.New()
		now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)

		idle := model.NewSession(now.Add(-48 * time.Hour))
		active := model.NewSession(now.Add(-time.Minute))
		gt.NoError(t, repo.Session().Put(ctx, idle)).Required()
		gt.NoError(t, repo.Session().Put(ctx, active)).Required()

		w := worker.NewSessionPurgeWorker(repo, 24*time.Hour, time.Hour)
		w.SetClock(func() time.Time { return now })
		gt.NoError(t, w.Start(ctx)).Required()

		deadline := time.Now().Add(5 * time.Second)
		for {
			if _, err := repo.Session().Get(ctx, idle.ID); err != nil {
				break
			}
			if time.Now().After(deadline) {
				t.Fatal("idle session was not purged")
			}
			time.Sleep(10 * time.Millisecond)
		}
		w.Stop()

		_, err := repo.Session().Get(ctx, active.ID)
		gt.NoError(t, err)
	})

	t.Run("rejects non-positive durations", func(t *testing.T) {
		w := worker.NewSessionPurgeWorker(memory.New(), 0, time.Hour)
		gt.Error(t, w.Start(context.Background()))
	})

	t.Run("stops on context cancel", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		w := worker.NewSessionPurgeWorker(memory.New(), time.Hour, time.Hour)
		gt.NoError(t, w.Start(ctx)).Required()
		cancel()

		done := make(chan struct{})
		go func() {
			w.Stop()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Fatal("worker did not stop")
		}
	})
}
