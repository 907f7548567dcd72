package mem

import "github.com/sarchlab/rvsim/insts"

// DefaultUncachedLatency is the reference latency of the uncached port.
const DefaultUncachedLatency = 120

// Uncached is a memory model where every access goes to the backing store
// after the same fixed latency.
type Uncached struct {
	store   BackingStore
	latency uint32

	wait      uint32
	fetchAddr uint32
}

// NewUncached creates an uncached port in front of store.
func NewUncached(store BackingStore, latency uint32) *Uncached {
	return &Uncached{
		store:   store,
		latency: latency,
	}
}

// Latency returns the fixed access latency.
func (u *Uncached) Latency() uint32 {
	return u.latency
}

// WaitCycles returns the remaining cycles of the pending access.
func (u *Uncached) WaitCycles() uint32 {
	return u.wait
}

// RequestFetch latches ip and starts the countdown.
func (u *Uncached) RequestFetch(ip uint32) {
	u.fetchAddr = ip
	u.wait = u.latency
}

// PollFetch returns the word at the latched address once the countdown has
// expired.
func (u *Uncached) PollFetch() (uint32, bool) {
	if u.wait > 0 {
		return 0, false
	}
	return u.store.Read(u.fetchAddr), true
}

// RequestData starts the countdown for loads and stores and ignores every
// other kind.
func (u *Uncached) RequestData(addr uint32, kind insts.IType) {
	if !kind.IsMemory() {
		return
	}
	u.wait = u.latency
}

// PollData completes a load or store once the countdown has expired.
// Non-memory kinds complete at once.
func (u *Uncached) PollData(addr uint32, kind insts.IType, data *uint32) bool {
	if !kind.IsMemory() {
		return true
	}
	if u.wait > 0 {
		return false
	}

	if kind == insts.Ld {
		*data = u.store.Read(addr)
	} else {
		u.store.Write(addr, *data)
	}
	return true
}

// Clock decrements the countdown, stopping at zero.
func (u *Uncached) Clock() {
	if u.wait > 0 {
		u.wait--
	}
}
