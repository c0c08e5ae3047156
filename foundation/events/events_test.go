package events_test

import (
	"testing"

	"github.com/avisen/ledger/foundation/events"
)

func Test_Send(t *testing.T) {
	evts := events.New()

	ch1 := evts.Acquire("one")
	ch2 := evts.Acquire("two")

	if evts.Acquire("one") != ch1 || evts.Viewers() != 2 {
		t.Fatalf("Should reuse the channel for a known id.")
	}

	evts.Send("ledger: not for viewers")
	evts.Send(`viewer: block: {"height":1}`)

	for _, ch := range []chan string{ch1, ch2} {
		select {
		case msg := <-ch:
			if msg != `block: {"height":1}` {
				t.Fatalf("Should strip the viewer prefix: %q", msg)
			}
		default:
			t.Fatalf("Should deliver viewer messages.")
		}

		select {
		case msg := <-ch:
			t.Fatalf("Should not deliver other messages: %q", msg)
		default:
		}
	}

	if err := evts.Release("one"); err != nil {
		t.Fatalf("Should release a known id: %s", err)
	}

	if err := evts.Release("one"); err == nil {
		t.Fatalf("Should not release an unknown id.")
	}

	evts.Shutdown()

	if _, open := <-ch2; open {
		t.Fatalf("Should close every channel on shutdown.")
	}
}
