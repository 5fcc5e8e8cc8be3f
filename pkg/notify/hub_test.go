package notify

import (
	"testing"
	"time"
)

func TestHub_FanOut(t *testing.T) {
	hub := NewHub()

	a, cancelA := hub.Subscribe()
	defer cancelA()
	b, cancelB := hub.Subscribe()
	defer cancelB()

	hub.Publish(Event{Kind: EventPhase, Asset: "stable", Phase: "submitting"})

	for name, ch := range map[string]<-chan Event{"a": a, "b": b} {
		select {
		case ev := <-ch:
			if ev.Kind != EventPhase || ev.Asset != "stable" {
				t.Errorf("%s got %+v", name, ev)
			}
			if ev.At.IsZero() {
				t.Errorf("%s event missing timestamp", name)
			}
		case <-time.After(time.Second):
			t.Fatalf("%s did not receive event", name)
		}
	}
}

func TestHub_CancelClosesChannel(t *testing.T) {
	hub := NewHub()
	ch, cancel := hub.Subscribe()

	cancel()
	if _, ok := <-ch; ok {
		t.Error("channel should be closed after cancel")
	}

	// Cancel is idempotent and publishing after cancel must not panic.
	cancel()
	hub.Publish(Event{Kind: EventError, Message: "x"})
}

func TestHub_SlowSubscriberDropsInsteadOfBlocking(t *testing.T) {
	hub := NewHub()
	_, cancel := hub.Subscribe()
	defer cancel()

	done := make(chan struct{})
	go func() {
		// More events than the subscriber buffer holds.
		for i := 0; i < 100; i++ {
			hub.Publish(Event{Kind: EventPhase})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on slow subscriber")
	}
}

func TestHubNotifier(t *testing.T) {
	hub := NewHub()
	ch, cancel := hub.Subscribe()
	defer cancel()

	HubNotifier{Hub: hub}.Success("done")
	if ev := <-ch; ev.Kind != EventSuccess || ev.Message != "done" {
		t.Errorf("got %+v", ev)
	}

	HubNotifier{Hub: hub}.Error("boom")
	if ev := <-ch; ev.Kind != EventError || ev.Message != "boom" {
		t.Errorf("got %+v", ev)
	}
}
