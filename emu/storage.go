// Package emu provides the functional building blocks of the RV32I simulator:
// backing storage, register and CSR files, and the executor.
package emu

import (
	"fmt"
	"log"

	"github.com/sarchlab/rvsim/loader"
)

// DefaultStorageWords is the default backing store size in 4-byte words
// (4 MiB).
const DefaultStorageWords = 1024 * 1024

// Storage is the flat, word-addressed backing memory. Reads and writes
// complete immediately; latency is modeled by the ports in front of it.
type Storage struct {
	words []uint32
}

// NewStorage creates a zeroed storage holding the given number of words.
func NewStorage(words int) *Storage {
	if words <= 0 {
		words = DefaultStorageWords
	}
	return &Storage{words: make([]uint32, words)}
}

// Size returns the storage size in bytes.
func (s *Storage) Size() uint64 {
	return uint64(len(s.words)) * 4
}

// Read returns the word holding addr. The low two address bits are ignored.
func (s *Storage) Read(addr uint32) uint32 {
	return s.words[s.index(addr)]
}

// Write stores value into the word holding addr.
func (s *Storage) Write(addr uint32, value uint32) {
	s.words[s.index(addr)] = value
}

func (s *Storage) index(addr uint32) int {
	i := int(addr >> 2)
	if i >= len(s.words) {
		log.Panicf("address 0x%08X outside %d-byte storage", addr, s.Size())
	}
	return i
}

// write8 stores one byte, little-endian within its word.
func (s *Storage) write8(addr uint32, b byte) {
	i := s.index(addr)
	shift := (addr & 3) * 8
	s.words[i] = s.words[i]&^(0xFF<<shift) | uint32(b)<<shift
}

// LoadBytes copies raw bytes to addr, little-endian within each word.
func (s *Storage) LoadBytes(addr uint32, data []byte) {
	for i, b := range data {
		s.write8(addr+uint32(i), b)
	}
}

// LoadProgram copies every segment of prog to its physical address and
// zero-fills the part of each segment not backed by file bytes.
func (s *Storage) LoadProgram(prog *loader.Program) error {
	for _, seg := range prog.Segments {
		end := seg.PhysAddr + seg.MemSize
		if end < seg.PhysAddr || end > s.Size() {
			return fmt.Errorf("%w: segment at 0x%x (%d bytes) exceeds %d-byte storage",
				loader.ErrOutOfBounds, seg.PhysAddr, seg.MemSize, s.Size())
		}
	}

	for _, seg := range prog.Segments {
		base := uint32(seg.PhysAddr)
		s.LoadBytes(base, seg.Data)
		for i := uint64(len(seg.Data)); i < seg.MemSize; i++ {
			s.write8(base+uint32(i), 0)
		}
	}

	return nil
}

// LoadImage parses an ELF image and loads it. It returns the entry point.
func (s *Storage) LoadImage(data []byte) (uint32, error) {
	prog, err := loader.Parse(data)
	if err != nil {
		return 0, err
	}

	if err := s.LoadProgram(prog); err != nil {
		return 0, err
	}

	return uint32(prog.Entry), nil
}
