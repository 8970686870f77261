package executor

import (
	"context"
	"errors"
	"testing"
	"time"
)

const subSDL = `
type Query { ok: Boolean }
type Subscription { ticks(limit: Int): Tick }
type Tick { seq: Int! }
`

func tickExecutor(t *testing.T, src chan any) *Executor {
	t.Helper()
	return newTestExecutor(t, subSDL, map[string]ResolveFunc{
		"Subscription.ticks": func(ctx context.Context, info *ResolveInfo) (any, error) {
			return src, nil
		},
		"Tick.seq": sourceResolver(),
	})
}

func collectEvents(t *testing.T, ch <-chan SubscriptionEvent) []SubscriptionEvent {
	t.Helper()
	var events []SubscriptionEvent
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return events
			}
			events = append(events, ev)
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for events")
		}
	}
}

func TestSubscribe_CompletesEachEvent(t *testing.T) {
	src := make(chan any, 3)
	src <- map[string]any{"seq": 1}
	src <- map[string]any{"seq": 2}
	close(src)

	exec := tickExecutor(t, src)
	doc := mustParseQuery(t, "subscription { ticks { seq } }")

	ch, err := exec.Subscribe(context.Background(), nil, doc, "", nil, nil)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	events := collectEvents(t, ch)

	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	for i, want := range []string{`{"ticks":{"seq":1}}`, `{"ticks":{"seq":2}}`} {
		if events[i].Err != nil {
			t.Fatalf("event %d: unexpected error %v", i, events[i].Err)
		}
		if got := dataJSON(t, events[i].Result); got != want {
			t.Fatalf("event %d data: got %s, want %s", i, got, want)
		}
	}
}

func TestSubscribe_ErrorValueIsTerminal(t *testing.T) {
	src := make(chan any, 3)
	src <- map[string]any{"seq": 1}
	src <- errors.New("upstream gone")
	src <- map[string]any{"seq": 3}

	exec := tickExecutor(t, src)
	doc := mustParseQuery(t, "subscription { ticks { seq } }")

	ch, err := exec.Subscribe(context.Background(), nil, doc, "", nil, nil)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	events := collectEvents(t, ch)

	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[1].Err == nil || events[1].Err.Error() != "upstream gone" {
		t.Fatalf("expected terminal error event, got %+v", events[1])
	}
}

func TestSubscribe_EventCompletionErrors(t *testing.T) {
	src := make(chan any, 2)
	src <- map[string]any{"seq": nil}
	close(src)

	exec := tickExecutor(t, src)
	doc := mustParseQuery(t, "subscription { ticks { seq } }")

	ch, err := exec.Subscribe(context.Background(), nil, doc, "", nil, nil)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	events := collectEvents(t, ch)

	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	res := events[0].Result
	if want := `{"ticks":null}`; dataJSON(t, res) != want {
		t.Fatalf("data mismatch: got %s, want %s", dataJSON(t, res), want)
	}
	if len(res.Errors) != 1 {
		t.Fatalf("expected one error, got %v", res.Errors)
	}
}

func TestSubscribe_ContextCancelStopsStream(t *testing.T) {
	src := make(chan any)
	exec := tickExecutor(t, src)
	doc := mustParseQuery(t, "subscription { ticks { seq } }")

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := exec.Subscribe(ctx, nil, doc, "", nil, nil)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	cancel()

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected channel to close without events")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("channel did not close after cancel")
	}
}

func TestSubscribe_RejectsMultipleRootFields(t *testing.T) {
	exec := tickExecutor(t, make(chan any))
	doc := mustParseQuery(t, "subscription { a: ticks { seq } b: ticks { seq } }")

	if _, err := exec.Subscribe(context.Background(), nil, doc, "", nil, nil); err == nil {
		t.Fatal("expected an error for multiple root fields")
	}
}

func TestSubscribe_RejectsNonStreamValue(t *testing.T) {
	exec := newTestExecutor(t, subSDL, map[string]ResolveFunc{
		"Subscription.ticks": valueResolver(42),
	})
	doc := mustParseQuery(t, "subscription { ticks { seq } }")

	if _, err := exec.Subscribe(context.Background(), nil, doc, "", nil, nil); err == nil {
		t.Fatal("expected an error for a non-stream resolver value")
	}
}
