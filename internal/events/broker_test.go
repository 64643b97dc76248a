package events

import (
	"testing"
	"time"
)

func TestBroker_PublishToSubscriber(t *testing.T) {
	b := NewBroker()
	ch := b.Subscribe(RenderCompleteEvent)

	b.Publish(Event{Type: RenderCompleteEvent, Payload: RenderResult{HTML: "out"}})

	select {
	case ev := <-ch:
		result, ok := ev.Payload.(RenderResult)
		if !ok || result.HTML != "out" {
			t.Errorf("unexpected payload: %#v", ev.Payload)
		}
	case <-time.After(time.Second):
		t.Fatal("event never delivered")
	}
}

func TestBroker_TypeFiltering(t *testing.T) {
	b := NewBroker()
	ch := b.Subscribe(RenderErrorEvent)

	b.Publish(Event{Type: RenderCompleteEvent})

	select {
	case ev := <-ch:
		t.Errorf("received unsubscribed event type %s", ev.Type)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestBroker_WildcardSubscription(t *testing.T) {
	b := NewBroker()
	ch := b.Subscribe()

	b.Publish(Event{Type: RenderStartedEvent})
	b.Publish(Event{Type: PrerenderCompleteEvent})

	for i := 0; i < 2; i++ {
		select {
		case <-ch:
		case <-time.After(time.Second):
			t.Fatalf("wildcard subscriber missed event %d", i)
		}
	}
}

func TestBroker_UnsubscribeClosesChannel(t *testing.T) {
	b := NewBroker()
	ch := b.Subscribe(RenderCompleteEvent, RenderErrorEvent)

	b.Unsubscribe(ch)

	if _, open := <-ch; open {
		t.Error("channel still open after Unsubscribe")
	}
}

func TestBroker_Shutdown(t *testing.T) {
	b := NewBroker()
	ch := b.Subscribe(RenderCompleteEvent)

	b.Shutdown()

	if _, open := <-ch; open {
		t.Error("channel still open after Shutdown")
	}

	// Publishing after shutdown must not panic
	b.Publish(Event{Type: RenderCompleteEvent})
}
