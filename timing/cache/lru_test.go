package cache_test

import (
	"math/rand"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rvsim/timing/cache"
	"github.com/sarchlab/rvsim/timing/mem"
)

var _ = Describe("LineCache", func() {
	var c *cache.LineCache

	lineOf := func(v uint32) mem.Line {
		var l mem.Line
		for i := range l {
			l[i] = v + uint32(i)
		}
		return l
	}

	BeforeEach(func() {
		c = cache.NewLineCache("test", 4)
	})

	It("should start empty", func() {
		Expect(c.Len()).To(BeZero())
		Expect(c.Capacity()).To(Equal(4))
		Expect(c.Recency()).To(BeEmpty())
		Expect(c.Contains(0)).To(BeFalse())
	})

	It("should keep recency most recent first", func() {
		for _, tag := range []uint32{0x000, 0x040, 0x080} {
			c.Fill(tag, lineOf(tag))
		}
		Expect(c.Recency()).To(Equal([]uint32{0x080, 0x040, 0x000}))

		Expect(c.Touch(0x000)).To(BeTrue())
		Expect(c.Recency()).To(Equal([]uint32{0x000, 0x080, 0x040}))
	})

	It("should evict the least recently used line when full", func() {
		for _, tag := range []uint32{0x000, 0x040, 0x080, 0x0C0} {
			c.Fill(tag, lineOf(tag))
		}
		c.Touch(0x000)

		victim, evicted := c.Fill(0x100, lineOf(0x100))

		Expect(evicted).To(BeTrue())
		Expect(victim.Tag).To(Equal(uint32(0x040)))
		Expect(victim.Line).To(Equal(lineOf(0x040)))
		Expect(c.Len()).To(Equal(4))
		Expect(c.Contains(0x040)).To(BeFalse())
		Expect(c.Recency()).To(Equal([]uint32{0x100, 0x000, 0x0C0, 0x080}))
		Expect(c.Stats().Evictions).To(Equal(uint64(1)))
	})

	It("should not double-insert a resident tag", func() {
		c.Fill(0x040, lineOf(1))
		_, evicted := c.Fill(0x040, lineOf(2))

		line, ok := c.Line(0x040)
		Expect(evicted).To(BeFalse())
		Expect(ok).To(BeTrue())
		Expect(line).To(Equal(lineOf(1)))
		Expect(c.Len()).To(Equal(1))
	})

	It("should read and write words of resident lines", func() {
		c.Fill(0x040, lineOf(100))

		w, ok := c.ReadWord(0x040, 3)
		Expect(ok).To(BeTrue())
		Expect(w).To(Equal(uint32(103)))

		Expect(c.WriteWord(0x040, 3, 7)).To(BeTrue())
		w, _ = c.ReadWord(0x040, 3)
		Expect(w).To(Equal(uint32(7)))
	})

	It("should refuse word access to absent lines", func() {
		_, ok := c.ReadWord(0x040, 0)
		Expect(ok).To(BeFalse())
		Expect(c.WriteWord(0x040, 0, 1)).To(BeFalse())
		Expect(c.Touch(0x040)).To(BeFalse())
	})

	It("should drop everything on reset", func() {
		c.Fill(0x040, lineOf(1))
		c.Reset()

		Expect(c.Len()).To(BeZero())
		Expect(c.Contains(0x040)).To(BeFalse())
	})

	It("should always evict the last line of the recency order", func() {
		rng := rand.New(rand.NewSource(7))
		for i := 0; i < 200; i++ {
			tag := uint32(rng.Intn(8)) * mem.LineSizeBytes
			if c.Touch(tag) {
				Expect(c.Recency()[0]).To(Equal(tag))
				continue
			}

			before := c.Recency()
			victim, evicted := c.Fill(tag, lineOf(tag))
			if evicted {
				Expect(before).To(HaveLen(4))
				Expect(victim.Tag).To(Equal(before[3]))
			}
			Expect(c.Recency()[0]).To(Equal(tag))
		}
	})

	It("should forget recency on reset", func() {
		c.Fill(0x040, lineOf(1))
		c.Fill(0x080, lineOf(2))
		c.Reset()
		c.Fill(0x0C0, lineOf(3))

		Expect(c.Recency()).To(Equal([]uint32{0x0C0}))
	})

	It("should compute the hit rate", func() {
		Expect(cache.Statistics{}.HitRate()).To(BeZero())
		Expect(cache.Statistics{Hits: 3, Misses: 1}.HitRate()).To(Equal(0.75))
	})
})
