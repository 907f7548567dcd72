// Package mem defines the memory-port protocol shared by the CPU and its
// memory models, together with the address arithmetic they use and an
// uncached constant-latency port.
package mem

// Line geometry.
const (
	// LineSizeBytes is the size of a cache line in bytes.
	LineSizeBytes = 64
	// LineSizeWords is the size of a cache line in 4-byte words.
	LineSizeWords = LineSizeBytes / 4
)

// Line is one fully populated cache line.
type Line [LineSizeWords]uint32

// WordAddr returns the word index of a byte address.
func WordAddr(addr uint32) uint32 {
	return addr >> 2
}

// LineAddr returns the line-aligned address (the tag) of addr.
func LineAddr(addr uint32) uint32 {
	return addr &^ (LineSizeBytes - 1)
}

// LineOffset returns the index of addr's word within its line.
func LineOffset(addr uint32) uint32 {
	return WordAddr(addr) % LineSizeWords
}

// ReadLine reads the 16 words of the line at tag from store into a new
// buffer.
func ReadLine(store BackingStore, tag uint32) Line {
	var line Line
	for i := range line {
		line[i] = store.Read(tag + uint32(i)*4)
	}
	return line
}

// WriteLine writes every word of line back to store at tag.
func WriteLine(store BackingStore, tag uint32, line *Line) {
	for i, w := range line {
		store.Write(tag+uint32(i)*4, w)
	}
}
