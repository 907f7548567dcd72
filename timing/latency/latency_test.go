package latency_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/rvsim/emu"
	"github.com/sarchlab/rvsim/insts"
	"github.com/sarchlab/rvsim/timing/cache"
	"github.com/sarchlab/rvsim/timing/latency"
	"github.com/sarchlab/rvsim/timing/mem"
)

var _ = Describe("TimingConfig", func() {
	Describe("Default Config", func() {
		It("should create valid default config", func() {
			config := latency.DefaultTimingConfig()
			Expect(config.Validate()).To(Succeed())
		})

		It("should carry the reference values", func() {
			config := latency.DefaultTimingConfig()

			Expect(config.UncachedLatency).To(Equal(uint32(120)))
			Expect(config.LineFillLatency).To(Equal(uint32(136)))
			Expect(config.DataHitPenalty).To(Equal(uint32(3)))
			Expect(config.CodeCacheLines).To(Equal(8))
			Expect(config.DataCacheLines).To(Equal(64))
		})

		It("should match the cache engine defaults", func() {
			Expect(latency.DefaultTimingConfig().CacheConfig()).To(Equal(cache.DefaultConfig()))
		})
	})

	Describe("Validation", func() {
		It("should reject empty caches", func() {
			config := latency.DefaultTimingConfig()
			config.CodeCacheLines = 0
			Expect(config.Validate()).To(MatchError(ContainSubstring("code_cache_lines")))

			config = latency.DefaultTimingConfig()
			config.DataCacheLines = -1
			Expect(config.Validate()).To(MatchError(ContainSubstring("data_cache_lines")))
		})

		It("should reject unusable memory sizes", func() {
			config := latency.DefaultTimingConfig()
			config.MemoryWords = 0
			Expect(config.Validate()).To(HaveOccurred())

			config.MemoryWords = 1<<30 + 1
			Expect(config.Validate()).To(HaveOccurred())
		})

		It("should reject a memory size ending in a partial line", func() {
			config := latency.DefaultTimingConfig()
			config.MemoryWords = 20
			Expect(config.Validate()).To(MatchError(ContainSubstring("multiple of 16")))

			config.MemoryWords = 32
			Expect(config.Validate()).To(Succeed())
		})

		It("should fill the last line of a validated memory", func() {
			config := latency.DefaultTimingConfig()
			config.MemoryWords = 32
			Expect(config.Validate()).To(Succeed())

			storage := emu.NewStorage(config.MemoryWords)
			storage.Write(0x7C, 0xBEEF)
			m := config.NewMemory(storage, false)

			m.RequestData(0x7C, insts.Ld)
			for i := 0; i < 200; i++ {
				m.Clock()
			}
			var data uint32
			Expect(m.PollData(0x7C, insts.Ld, &data)).To(BeTrue())
			Expect(data).To(Equal(uint32(0xBEEF)))
		})

		It("should reject a zero clock", func() {
			config := latency.DefaultTimingConfig()
			config.ClockMHz = 0
			Expect(config.Validate()).To(MatchError(ContainSubstring("clock_mhz")))
		})
	})

	Describe("Clone", func() {
		It("should create independent copy", func() {
			original := latency.DefaultTimingConfig()
			clone := original.Clone()

			clone.LineFillLatency = 100

			Expect(original.LineFillLatency).To(Equal(uint32(136)))
			Expect(clone.LineFillLatency).To(Equal(uint32(100)))
		})
	})

	Describe("Environment overrides", func() {
		It("should override fields from RVSIM_ variables", func() {
			GinkgoT().Setenv("RVSIM_LINE_FILL_LATENCY", "200")
			GinkgoT().Setenv("RVSIM_DATA_CACHE_LINES", "16")
			GinkgoT().Setenv("RVSIM_CLOCK_MHZ", "500")

			config := latency.DefaultTimingConfig()
			Expect(config.ApplyEnv()).To(Succeed())

			Expect(config.LineFillLatency).To(Equal(uint32(200)))
			Expect(config.DataCacheLines).To(Equal(16))
			Expect(config.ClockMHz).To(Equal(uint64(500)))
			Expect(config.UncachedLatency).To(Equal(uint32(120)))
		})

		It("should name the variable that fails to parse", func() {
			GinkgoT().Setenv("RVSIM_UNCACHED_LATENCY", "soon")

			config := latency.DefaultTimingConfig()
			Expect(config.ApplyEnv()).To(MatchError(ContainSubstring("RVSIM_UNCACHED_LATENCY")))
		})
	})

	Describe("File Operations", func() {
		var tempDir string

		BeforeEach(func() {
			var err error
			tempDir, err = os.MkdirTemp("", "latency-test")
			Expect(err).NotTo(HaveOccurred())
		})

		AfterEach(func() {
			_ = os.RemoveAll(tempDir)
		})

		It("should save and load config", func() {
			original := latency.DefaultTimingConfig()
			original.LineFillLatency = 50
			original.DataCacheLines = 32

			path := filepath.Join(tempDir, "timing.json")
			Expect(original.SaveConfig(path)).To(Succeed())

			loaded, err := latency.LoadConfig(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded).To(Equal(original))
		})

		It("should keep defaults for fields missing from the file", func() {
			path := filepath.Join(tempDir, "partial.json")
			Expect(os.WriteFile(path, []byte(`{"data_hit_penalty": 5}`), 0644)).To(Succeed())

			loaded, err := latency.LoadConfig(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded.DataHitPenalty).To(Equal(uint32(5)))
			Expect(loaded.LineFillLatency).To(Equal(uint32(136)))
		})

		It("should return error for non-existent file", func() {
			_, err := latency.LoadConfig("/nonexistent/path/timing.json")
			Expect(err).To(HaveOccurred())
		})

		It("should return error for invalid JSON", func() {
			path := filepath.Join(tempDir, "invalid.json")
			err := os.WriteFile(path, []byte("not valid json"), 0644)
			Expect(err).NotTo(HaveOccurred())

			_, err = latency.LoadConfig(path)
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("Builders", func() {
		It("should report the clock frequency", func() {
			Expect(latency.DefaultTimingConfig().Freq()).To(Equal(1 * sim.GHz))
		})

		It("should build an uncached port", func() {
			config := latency.DefaultTimingConfig()
			m := config.NewMemory(emu.NewStorage(1024), true)

			port, ok := m.(*mem.Uncached)
			Expect(ok).To(BeTrue())
			Expect(port.Latency()).To(Equal(uint32(120)))
		})

		It("should build a cache engine", func() {
			config := latency.DefaultTimingConfig()
			config.CodeCacheLines = 2
			m := config.NewMemory(emu.NewStorage(1024), false)

			engine, ok := m.(*cache.Engine)
			Expect(ok).To(BeTrue())
			Expect(engine.CodeCache().Capacity()).To(Equal(2))
		})
	})
})
