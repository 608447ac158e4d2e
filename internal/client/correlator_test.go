package client

import (
	"errors"
	"testing"
	"time"

	"github.com/dexpulse/tradefeed/internal/wire"
)

func TestCorrelatorResolveByID(t *testing.T) {
	co := newCorrelator()
	pc := co.register(wire.TypeLatest, time.Second)

	if !co.resolve(pc.id, wire.TypeLatest, "payload") {
		t.Fatal("resolve by id failed")
	}

	select {
	case res := <-pc.ch:
		if res.err != nil || res.payload != "payload" {
			t.Errorf("unexpected result: %+v", res)
		}
	default:
		t.Fatal("no result delivered")
	}

	if co.pendingCount() != 0 {
		t.Errorf("pending count = %d after resolve", co.pendingCount())
	}
}

func TestCorrelatorLegacyFamilyFallback(t *testing.T) {
	co := newCorrelator()
	pc := co.register(wire.TypeHistory, time.Second)

	// Legacy backends echo no id; the family slot takes the response.
	if !co.resolve("", wire.TypeHistory, "payload") {
		t.Fatal("family fallback failed")
	}

	res := <-pc.ch
	if res.payload != "payload" {
		t.Errorf("unexpected payload: %v", res.payload)
	}
}

func TestCorrelatorFamilySlotHoldsLatestCall(t *testing.T) {
	co := newCorrelator()
	first := co.register(wire.TypeLatest, time.Second)
	second := co.register(wire.TypeLatest, time.Second)

	// An id-less response lands on the most recent call of the family.
	if !co.resolve("", wire.TypeLatest, "payload") {
		t.Fatal("family fallback failed")
	}
	res := <-second.ch
	if res.payload != "payload" {
		t.Errorf("unexpected payload: %v", res.payload)
	}

	// The older call is still resolvable by its id.
	if !co.resolve(first.id, wire.TypeLatest, "older") {
		t.Fatal("resolve of older call by id failed")
	}
}

func TestCorrelatorUnknownResponseIgnored(t *testing.T) {
	co := newCorrelator()

	if co.resolve("no-such-id", wire.TypeLatest, "payload") {
		t.Error("resolved a call that was never registered")
	}
	if co.resolveError("no-such-id", errors.New("boom")) {
		t.Error("rejected a call that was never registered")
	}
}

func TestCorrelatorTimeout(t *testing.T) {
	co := newCorrelator()
	pc := co.register(wire.TypeLatest, 20*time.Millisecond)

	select {
	case res := <-pc.ch:
		if !errors.Is(res.err, ErrCallTimeout) {
			t.Errorf("expected ErrCallTimeout, got %v", res.err)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout never fired")
	}
	if co.pendingCount() != 0 {
		t.Errorf("pending count = %d after timeout", co.pendingCount())
	}
}

func TestCorrelatorRejectAll(t *testing.T) {
	co := newCorrelator()
	a := co.register(wire.TypeLatest, time.Second)
	b := co.register(wire.TypeHistory, time.Second)

	co.rejectAll(ErrConnectionClosed)

	for _, pc := range []*pendingCall{a, b} {
		res := <-pc.ch
		if !errors.Is(res.err, ErrConnectionClosed) {
			t.Errorf("call %s: expected ErrConnectionClosed, got %v", pc.family, res.err)
		}
	}
	if co.pendingCount() != 0 {
		t.Errorf("pending count = %d after rejectAll", co.pendingCount())
	}
}

func TestCorrelatorRemove(t *testing.T) {
	co := newCorrelator()
	pc := co.register(wire.TypeLatest, time.Second)
	co.remove(pc)

	if co.resolve(pc.id, wire.TypeLatest, "payload") {
		t.Error("resolved a removed call")
	}
	if co.pendingCount() != 0 {
		t.Errorf("pending count = %d after remove", co.pendingCount())
	}
}
