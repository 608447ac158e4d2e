package client

import (
	"sync"
	"time"

	"github.com/dexpulse/tradefeed/internal/wire"
)

// The correlator turns fire-and-forget socket sends into awaitable calls.
// Outbound queries carry a client-generated id; responses echoing it resolve
// by id. Legacy backends drop the id, so each response family additionally
// keeps a single slot holding the most recent call of that family
// (last-writer-wins, a protocol-inherited limitation).

type callResult struct {
	payload any
	err     error
}

type pendingCall struct {
	id     string
	family string // response type: history, latest, globalTrades
	ch     chan callResult
	timer  *time.Timer
}

type correlator struct {
	mu   sync.Mutex
	byID map[string]*pendingCall
	slot map[string]*pendingCall
}

func newCorrelator() *correlator {
	return &correlator{
		byID: make(map[string]*pendingCall),
		slot: make(map[string]*pendingCall),
	}
}

// register creates a pending call and arms its timeout.
func (co *correlator) register(family string, timeout time.Duration) *pendingCall {
	pc := &pendingCall{
		id:     wire.NewCallID(),
		family: family,
		ch:     make(chan callResult, 1),
	}

	co.mu.Lock()
	co.byID[pc.id] = pc
	co.slot[family] = pc
	co.mu.Unlock()

	pc.timer = time.AfterFunc(timeout, func() {
		co.fail(pc, ErrCallTimeout)
	})

	return pc
}

// resolve completes the call matching id (preferred) or the family slot.
func (co *correlator) resolve(id, family string, payload any) bool {
	pc := co.take(id, family)
	if pc == nil {
		return false
	}
	pc.ch <- callResult{payload: payload}
	return true
}

// resolveError completes the call matching id with a server-reported error.
// Responses without an id cannot be attributed to a family and are not
// resolved here.
func (co *correlator) resolveError(id string, err error) bool {
	if id == "" {
		return false
	}
	pc := co.take(id, "")
	if pc == nil {
		return false
	}
	pc.ch <- callResult{err: err}
	return true
}

// remove drops a call without completing it (caller gave up).
func (co *correlator) remove(pc *pendingCall) {
	co.mu.Lock()
	co.removeLocked(pc)
	co.mu.Unlock()
}

// rejectAll fails every pending call, e.g. when the connection drops.
func (co *correlator) rejectAll(err error) {
	co.mu.Lock()
	pending := make([]*pendingCall, 0, len(co.byID))
	for _, pc := range co.byID {
		pending = append(pending, pc)
	}
	co.byID = make(map[string]*pendingCall)
	co.slot = make(map[string]*pendingCall)
	co.mu.Unlock()

	for _, pc := range pending {
		pc.timer.Stop()
		pc.ch <- callResult{err: err}
	}
}

func (co *correlator) pendingCount() int {
	co.mu.Lock()
	defer co.mu.Unlock()
	return len(co.byID)
}

func (co *correlator) fail(pc *pendingCall, err error) {
	co.mu.Lock()
	if _, ok := co.byID[pc.id]; !ok {
		co.mu.Unlock()
		return
	}
	co.removeLocked(pc)
	co.mu.Unlock()
	pc.ch <- callResult{err: err}
}

func (co *correlator) take(id, family string) *pendingCall {
	co.mu.Lock()
	defer co.mu.Unlock()

	if id != "" {
		pc, ok := co.byID[id]
		if !ok {
			return nil
		}
		co.removeLocked(pc)
		return pc
	}

	pc, ok := co.slot[family]
	if !ok {
		return nil
	}
	co.removeLocked(pc)
	return pc
}

func (co *correlator) removeLocked(pc *pendingCall) {
	delete(co.byID, pc.id)
	if co.slot[pc.family] == pc {
		delete(co.slot, pc.family)
	}
	if pc.timer != nil {
		pc.timer.Stop()
	}
}
