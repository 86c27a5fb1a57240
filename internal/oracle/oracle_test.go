package oracle

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/guaranteebettor/tradebot/internal/bus"
	"github.com/guaranteebettor/tradebot/internal/sportsfeed"
	"github.com/guaranteebettor/tradebot/pkg/types"
)

// fakeFeed emits a fixed sequence of events then closes its channel.
type fakeFeed struct {
	name   string
	events []types.ScoreEvent
}

func (f *fakeFeed) Name() string                   { return f.name }
func (f *fakeFeed) Startup(ctx context.Context) error { return nil }
func (f *fakeFeed) Shutdown() error                 { return nil }

func (f *fakeFeed) Stream(ctx context.Context) <-chan types.ScoreEvent {
	ch := make(chan types.ScoreEvent, len(f.events))
	for _, evt := range f.events {
		ch <- evt
	}
	close(ch)
	return ch
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestOracleDropsDuplicateScoresAcrossFeeds(t *testing.T) {
	t.Parallel()
	feedA := &fakeFeed{name: "a", events: []types.ScoreEvent{
		{GameID: "g1", HomeScore: 10, AwayScore: 7, Provider: "a"},
	}}
	feedB := &fakeFeed{name: "b", events: []types.ScoreEvent{
		{GameID: "g1", HomeScore: 10, AwayScore: 7, Provider: "b"}, // duplicate of feedA's
	}}

	b := bus.New(testLogger())
	o := New(b, []sportsfeed.Client{feedA, feedB}, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() { o.Run(ctx); close(done) }()

	select {
	case evt := <-b.GameEvents():
		if evt.Provider != "a" {
			t.Errorf("expected first-delivery-wins provider 'a', got %q", evt.Provider)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for game event")
	}

	select {
	case evt := <-b.GameEvents():
		t.Fatalf("expected no second event (duplicate should be dropped), got %+v", evt)
	case <-time.After(100 * time.Millisecond):
	}

	cancel()
	<-done
}

func TestOraclePublishesNewScoreForSameGame(t *testing.T) {
	t.Parallel()
	feed := &fakeFeed{name: "a", events: []types.ScoreEvent{
		{GameID: "g1", HomeScore: 10, AwayScore: 7},
		{GameID: "g1", HomeScore: 12, AwayScore: 7},
	}}

	b := bus.New(testLogger())
	o := New(b, []sportsfeed.Client{feed}, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() { o.Run(ctx); close(done) }()

	for i := 0; i < 2; i++ {
		select {
		case <-b.GameEvents():
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for event %d", i)
		}
	}

	cancel()
	<-done
}
