package loader_test

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rvsim/loader"
)

type testSegment struct {
	typ    elf.ProgType
	flags  elf.ProgFlag
	paddr  uint64
	data   []byte
	memsz  uint64
	filesz uint64 // overrides len(data) when non-zero
}

// buildELF32 builds an ELFCLASS32 image with the given program headers,
// segment data following the headers.
func buildELF32(order binary.ByteOrder, entry uint32, segs ...testSegment) []byte {
	hdrSize := binary.Size(elf.Header32{})
	phSize := binary.Size(elf.Prog32{})

	hdr := elf.Header32{
		Type:      uint16(elf.ET_EXEC),
		Machine:   uint16(elf.EM_RISCV),
		Version:   uint32(elf.EV_CURRENT),
		Entry:     entry,
		Phoff:     uint32(hdrSize),
		Ehsize:    uint16(hdrSize),
		Phentsize: uint16(phSize),
		Phnum:     uint16(len(segs)),
	}
	copy(hdr.Ident[:], elf.ELFMAG)
	hdr.Ident[elf.EI_CLASS] = byte(elf.ELFCLASS32)
	hdr.Ident[elf.EI_DATA] = byte(elf.ELFDATA2LSB)
	if order == binary.BigEndian {
		hdr.Ident[elf.EI_DATA] = byte(elf.ELFDATA2MSB)
	}
	hdr.Ident[elf.EI_VERSION] = byte(elf.EV_CURRENT)

	buf := &bytes.Buffer{}
	_ = binary.Write(buf, order, hdr)

	off := uint32(hdrSize + phSize*len(segs))
	for _, s := range segs {
		filesz := uint32(len(s.data))
		if s.filesz != 0 {
			filesz = uint32(s.filesz)
		}
		_ = binary.Write(buf, order, elf.Prog32{
			Type:   uint32(s.typ),
			Flags:  uint32(s.flags),
			Off:    off,
			Vaddr:  uint32(s.paddr),
			Paddr:  uint32(s.paddr),
			Filesz: filesz,
			Memsz:  uint32(s.memsz),
			Align:  4,
		})
		off += uint32(len(s.data))
	}

	for _, s := range segs {
		buf.Write(s.data)
	}

	return buf.Bytes()
}

// buildELF64 builds a little-endian ELFCLASS64 image with one PT_LOAD segment.
func buildELF64(entry, paddr uint64, data []byte, memsz uint64) []byte {
	hdrSize := binary.Size(elf.Header64{})
	phSize := binary.Size(elf.Prog64{})

	hdr := elf.Header64{
		Type:      uint16(elf.ET_EXEC),
		Machine:   uint16(elf.EM_RISCV),
		Version:   uint32(elf.EV_CURRENT),
		Entry:     entry,
		Phoff:     uint64(hdrSize),
		Ehsize:    uint16(hdrSize),
		Phentsize: uint16(phSize),
		Phnum:     1,
	}
	copy(hdr.Ident[:], elf.ELFMAG)
	hdr.Ident[elf.EI_CLASS] = byte(elf.ELFCLASS64)
	hdr.Ident[elf.EI_DATA] = byte(elf.ELFDATA2LSB)
	hdr.Ident[elf.EI_VERSION] = byte(elf.EV_CURRENT)

	buf := &bytes.Buffer{}
	_ = binary.Write(buf, binary.LittleEndian, hdr)
	_ = binary.Write(buf, binary.LittleEndian, elf.Prog64{
		Type:   uint32(elf.PT_LOAD),
		Flags:  uint32(elf.PF_R | elf.PF_X),
		Off:    uint64(hdrSize + phSize),
		Vaddr:  paddr,
		Paddr:  paddr,
		Filesz: uint64(len(data)),
		Memsz:  memsz,
		Align:  8,
	})
	buf.Write(data)

	return buf.Bytes()
}

var _ = Describe("ELF Loader", func() {
	code := []byte{
		0x13, 0x05, 0xa0, 0x02, // addi a0, zero, 42
		0x73, 0x10, 0x05, 0x78, // csrw tohost, a0
	}

	Describe("Parse", func() {
		Context("with a valid ELF32 image", func() {
			It("should extract the entry point and class", func() {
				image := buildELF32(binary.LittleEndian, 0x1000, testSegment{
					typ: elf.PT_LOAD, flags: elf.PF_R | elf.PF_X,
					paddr: 0x1000, data: code, memsz: uint64(len(code)),
				})

				prog, err := loader.Parse(image)

				Expect(err).NotTo(HaveOccurred())
				Expect(prog.Entry).To(Equal(uint64(0x1000)))
				Expect(prog.Class).To(Equal(elf.ELFCLASS32))
				Expect(prog.Machine).To(Equal(elf.EM_RISCV))
			})

			It("should return segment contents and flags", func() {
				image := buildELF32(binary.LittleEndian, 0x1000, testSegment{
					typ: elf.PT_LOAD, flags: elf.PF_R | elf.PF_X,
					paddr: 0x1000, data: code, memsz: uint64(len(code)),
				})

				prog, err := loader.Parse(image)

				Expect(err).NotTo(HaveOccurred())
				Expect(prog.Segments).To(HaveLen(1))
				Expect(prog.Segments[0].PhysAddr).To(Equal(uint64(0x1000)))
				Expect(prog.Segments[0].Data).To(Equal(code))
				Expect(prog.Segments[0].Flags & loader.SegmentFlagExecute).NotTo(BeZero())
				Expect(prog.Segments[0].Flags & loader.SegmentFlagWrite).To(BeZero())
			})

			It("should keep BSS segments where memsz > filesz", func() {
				image := buildELF32(binary.LittleEndian, 0x1000, testSegment{
					typ: elf.PT_LOAD, flags: elf.PF_R | elf.PF_W,
					paddr: 0x2000, data: []byte{1, 2, 3, 4}, memsz: 1024,
				})

				prog, err := loader.Parse(image)

				Expect(err).NotTo(HaveOccurred())
				Expect(prog.Segments[0].Data).To(Equal([]byte{1, 2, 3, 4}))
				Expect(prog.Segments[0].MemSize).To(Equal(uint64(1024)))
			})

			It("should skip non-loadable and empty segments", func() {
				image := buildELF32(binary.LittleEndian, 0x1000,
					testSegment{typ: elf.PT_NOTE, paddr: 0x0, data: []byte{9, 9, 9, 9}, memsz: 4},
					testSegment{typ: elf.PT_LOAD, paddr: 0x3000, memsz: 0},
					testSegment{typ: elf.PT_LOAD, paddr: 0x1000, data: code, memsz: 8},
				)

				prog, err := loader.Parse(image)

				Expect(err).NotTo(HaveOccurred())
				Expect(prog.Segments).To(HaveLen(1))
				Expect(prog.Segments[0].PhysAddr).To(Equal(uint64(0x1000)))
			})

			It("should parse big-endian images", func() {
				image := buildELF32(binary.BigEndian, 0x4000, testSegment{
					typ: elf.PT_LOAD, paddr: 0x4000, data: code, memsz: 8,
				})

				prog, err := loader.Parse(image)

				Expect(err).NotTo(HaveOccurred())
				Expect(prog.Entry).To(Equal(uint64(0x4000)))
				Expect(prog.Segments[0].Data).To(Equal(code))
			})
		})

		Context("with a valid ELF64 image", func() {
			It("should parse the header and segment", func() {
				prog, err := loader.Parse(buildELF64(0x8000, 0x8000, code, 64))

				Expect(err).NotTo(HaveOccurred())
				Expect(prog.Class).To(Equal(elf.ELFCLASS64))
				Expect(prog.Entry).To(Equal(uint64(0x8000)))
				Expect(prog.Segments).To(HaveLen(1))
				Expect(prog.Segments[0].Data).To(Equal(code))
				Expect(prog.Segments[0].MemSize).To(Equal(uint64(64)))
			})
		})

		Context("with a malformed image", func() {
			It("should report an empty image as a truncated header", func() {
				_, err := loader.Parse(nil)
				Expect(errors.Is(err, loader.ErrTruncatedHeader)).To(BeTrue())
			})

			It("should report bad magic", func() {
				_, err := loader.Parse([]byte("not an elf file"))
				Expect(errors.Is(err, loader.ErrBadMagic)).To(BeTrue())
			})

			It("should report a truncated header", func() {
				image := buildELF32(binary.LittleEndian, 0x1000)
				_, err := loader.Parse(image[:30])
				Expect(errors.Is(err, loader.ErrTruncatedHeader)).To(BeTrue())
			})

			It("should report a truncated program header table", func() {
				image := buildELF32(binary.LittleEndian, 0x1000, testSegment{
					typ: elf.PT_LOAD, paddr: 0x1000, data: code, memsz: 8,
				})
				_, err := loader.Parse(image[:binary.Size(elf.Header32{})+4])
				Expect(errors.Is(err, loader.ErrTruncatedHeader)).To(BeTrue())
			})

			It("should report an unsupported class", func() {
				image := buildELF32(binary.LittleEndian, 0x1000)
				image[elf.EI_CLASS] = 7
				_, err := loader.Parse(image)
				Expect(errors.Is(err, loader.ErrUnsupportedClass)).To(BeTrue())
			})

			It("should report truncated segment data", func() {
				image := buildELF32(binary.LittleEndian, 0x1000, testSegment{
					typ: elf.PT_LOAD, paddr: 0x1000, data: code, memsz: 8,
				})
				_, err := loader.Parse(image[:len(image)-2])
				Expect(errors.Is(err, loader.ErrTruncatedSegment)).To(BeTrue())
			})

			It("should report memsz smaller than filesz", func() {
				image := buildELF32(binary.LittleEndian, 0x1000, testSegment{
					typ: elf.PT_LOAD, paddr: 0x1000, data: code, memsz: 4,
				})
				_, err := loader.Parse(image)
				Expect(errors.Is(err, loader.ErrSegmentSize)).To(BeTrue())
			})

			It("should keep the failure kinds distinct", func() {
				_, err := loader.Parse([]byte("not an elf file"))
				Expect(errors.Is(err, loader.ErrTruncatedHeader)).To(BeFalse())
				Expect(errors.Is(err, loader.ErrSegmentSize)).To(BeFalse())
			})
		})
	})

	Describe("Load", func() {
		var tempDir string

		BeforeEach(func() {
			tempDir = GinkgoT().TempDir()
		})

		It("should load an image from disk", func() {
			path := filepath.Join(tempDir, "prog.elf")
			image := buildELF32(binary.LittleEndian, 0x1000, testSegment{
				typ: elf.PT_LOAD, paddr: 0x1000, data: code, memsz: 8,
			})
			Expect(os.WriteFile(path, image, 0o644)).To(Succeed())

			prog, err := loader.Load(path)

			Expect(err).NotTo(HaveOccurred())
			Expect(prog.Entry).To(Equal(uint64(0x1000)))
		})

		It("should report a missing file as ErrOpen", func() {
			_, err := loader.Load(filepath.Join(tempDir, "missing.elf"))
			Expect(errors.Is(err, loader.ErrOpen)).To(BeTrue())
			Expect(errors.Is(err, os.ErrNotExist)).To(BeTrue())
		})
	})
})
