package eventbus

import (
	"context"
	"testing"
)

type pingEvent struct{ N int }
type otherEvent struct{}

func TestPublishReachesTypedSubscribers(t *testing.T) {
	Use(New())
	defer Use(nil)

	var pings []int
	var others int
	Subscribe(func(ctx context.Context, e pingEvent) { pings = append(pings, e.N) })
	Subscribe(func(ctx context.Context, e otherEvent) { others++ })

	Publish(context.Background(), pingEvent{N: 1})
	Publish(context.Background(), pingEvent{N: 2})

	if len(pings) != 2 || pings[0] != 1 || pings[1] != 2 {
		t.Fatalf("pings = %v", pings)
	}
	if others != 0 {
		t.Fatalf("other subscriber fired %d times", others)
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	Use(New())
	defer Use(nil)

	var a, b int
	unsubA := Subscribe(func(ctx context.Context, e pingEvent) { a++ })
	Subscribe(func(ctx context.Context, e pingEvent) { b++ })

	Publish(context.Background(), pingEvent{})
	unsubA()
	Publish(context.Background(), pingEvent{})

	if a != 1 || b != 2 {
		t.Fatalf("a = %d, b = %d", a, b)
	}
}

func TestNoBusInstalledIsNoop(t *testing.T) {
	Use(nil)

	unsub := Subscribe(func(ctx context.Context, e pingEvent) {
		t.Fatal("handler fired with no bus installed")
	})
	Publish(context.Background(), pingEvent{})
	unsub()
}
