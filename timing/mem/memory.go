package mem

import "github.com/sarchlab/rvsim/insts"

// BackingStore is the word-addressed storage behind a memory model.
type BackingStore interface {
	Read(addr uint32) uint32
	Write(addr uint32, value uint32)
}

// Memory is the request/poll protocol the CPU drives, one clock edge at a
// time.
//
// A request latches its operands and starts a latency countdown. Polls never
// block: they report "not ready" until the countdown reaches zero and have no
// side effect while waiting. Clock advances the countdown by one cycle.
type Memory interface {
	// RequestFetch starts an instruction fetch at ip.
	RequestFetch(ip uint32)
	// PollFetch returns the fetched word once it is ready.
	PollFetch() (uint32, bool)

	// RequestData starts the data access of an instruction of the given
	// kind. Kinds other than loads and stores need no memory access.
	RequestData(addr uint32, kind insts.IType)
	// PollData completes the data access once it is ready. A load writes the
	// loaded word into *data; a store writes *data to memory.
	PollData(addr uint32, kind insts.IType, data *uint32) bool

	// Clock advances the latency countdown by one cycle.
	Clock()
}
