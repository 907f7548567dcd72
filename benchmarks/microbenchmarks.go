package benchmarks

import (
	"github.com/sarchlab/rvsim/emu"
	"github.com/sarchlab/rvsim/insts"
)

// DataBase is the start of the data region the benchmarks use.
const DataBase = 0x8000

// GetMicrobenchmarks returns the standard set of microbenchmarks.
// Each benchmark targets one aspect of the memory system.
func GetMicrobenchmarks() []Benchmark {
	return []Benchmark{
		arithmeticSequential(),
		dependencyChain(),
		memorySequential(),
		functionCalls(),
		branchTaken(),
		mixedOperations(),
		loopSimulation(),
		codeStream(),
		dataEviction(),
	}
}

// GetCoreBenchmarks returns a minimal set of benchmarks for quick validation.
func GetCoreBenchmarks() []Benchmark {
	return []Benchmark{
		loopSimulation(),
		memorySequential(),
		branchTaken(),
	}
}

// exitWithReg ends a program with the exit code held in reg.
func exitWithReg(reg uint32) []uint32 {
	return []uint32{
		insts.EncodeSLLI(10, reg, 1),
		insts.EncodeORI(10, 10, 1),
		insts.EncodeExit(10),
	}
}

func program(body []uint32, exitReg uint32) []byte {
	return insts.BuildProgram(append(body, exitWithReg(exitReg)...)...)
}

// 1. Arithmetic Sequential - independent ALU operations
func arithmeticSequential() Benchmark {
	body := make([]uint32, 0, 20)
	for i := 0; i < 4; i++ {
		for rd := uint32(5); rd <= 9; rd++ {
			body = append(body, insts.EncodeADDI(rd, rd, 1))
		}
	}

	return Benchmark{
		Name:         "arithmetic_sequential",
		Description:  "20 independent ADDIs - one fetch per instruction",
		Program:      program(body, 9),
		ExpectedExit: 4,
	}
}

// 2. Dependency Chain - each ADDI reads the previous result
func dependencyChain() Benchmark {
	return Benchmark{
		Name:         "dependency_chain",
		Description:  "20 dependent ADDIs (x5 = x5 + 1)",
		Program:      buildDependencyChain(20),
		ExpectedExit: 20,
	}
}

func buildDependencyChain(n int) []byte {
	body := make([]uint32, 0, n)
	for i := 0; i < n; i++ {
		body = append(body, insts.EncodeADDI(5, 5, 1))
	}
	return program(body, 5)
}

// 3. Memory Sequential - store/load pairs within one data line
func memorySequential() Benchmark {
	body := []uint32{
		insts.EncodeLUI(2, DataBase>>12),
		insts.EncodeADDI(5, 0, 42),
	}
	for i := int32(0); i < 10; i++ {
		body = append(body,
			insts.EncodeSW(5, 2, i*4),
			insts.EncodeLW(5, 2, i*4),
		)
	}

	return Benchmark{
		Name:         "memory_sequential",
		Description:  "10 store/load pairs to sequential words - data hit penalty",
		Program:      program(body, 5),
		ExpectedExit: 42,
	}
}

// 4. Function Calls - JAL/JALR round trips
func functionCalls() Benchmark {
	const calls = 5
	// calls, then 3 exit instructions, then the function body.
	fn := int32(calls + 3)

	body := make([]uint32, 0, calls+5)
	for i := int32(0); i < calls; i++ {
		body = append(body, insts.EncodeJAL(1, (fn-i)*4))
	}
	body = append(body, exitWithReg(5)...)
	body = append(body,
		insts.EncodeADDI(5, 5, 1),
		insts.EncodeJALR(0, 1, 0),
	)

	return Benchmark{
		Name:         "function_calls",
		Description:  "5 calls to a one-instruction function",
		Program:      insts.BuildProgram(body...),
		ExpectedExit: calls,
	}
}

// 5. Branch Taken - always-taken conditional branches skipping code
func branchTaken() Benchmark {
	body := make([]uint32, 0, 15)
	for i := 0; i < 5; i++ {
		body = append(body,
			insts.EncodeBEQ(0, 0, 8),
			insts.EncodeADDI(5, 5, 100),
			insts.EncodeADDI(5, 5, 1),
		)
	}

	return Benchmark{
		Name:         "branch_taken",
		Description:  "5 taken branches, each skipping one instruction",
		Program:      program(body, 5),
		ExpectedExit: 5,
	}
}

// 6. Mixed Operations - ALU work around a store and a load
func mixedOperations() Benchmark {
	body := []uint32{
		insts.EncodeLUI(2, DataBase>>12),
		insts.EncodeADDI(5, 0, 3),
		insts.EncodeADDI(6, 0, 4),
		insts.EncodeADD(7, 5, 6),  // 7
		insts.EncodeSW(7, 2, 64),  // second data line
		insts.EncodeLW(8, 2, 64),  // 7
		insts.EncodeSUB(9, 8, 5),  // 4
		insts.EncodeXOR(11, 9, 6), // 0
		insts.EncodeADDI(11, 11, 12),
	}

	return Benchmark{
		Name:         "mixed_operations",
		Description:  "ALU operations around a store and a reload",
		Program:      program(body, 11),
		ExpectedExit: 12,
	}
}

// 7. Loop Simulation - a counted loop inside one code line
func loopSimulation() Benchmark {
	body := []uint32{
		insts.EncodeADDI(6, 0, 10),
		insts.EncodeADDI(5, 5, 1), // loop:
		insts.EncodeADDI(6, 6, -1),
		insts.EncodeBNE(6, 0, -8),
	}

	return Benchmark{
		Name:         "loop_simulation",
		Description:  "10-iteration counted loop - instruction cache reuse",
		Program:      program(body, 5),
		ExpectedExit: 10,
	}
}

// 8. Code Stream - straight-line code spanning more lines than the
// instruction cache holds
func codeStream() Benchmark {
	const n = 160
	body := make([]uint32, 0, n)
	for i := 0; i < n; i++ {
		body = append(body, insts.EncodeADDI(5, 5, 1))
	}

	return Benchmark{
		Name:         "code_stream",
		Description:  "160 straight-line ADDIs over 10 code lines",
		Program:      program(body, 5),
		ExpectedExit: n,
	}
}

// 9. Data Eviction - stores to 65 distinct lines, then a reload of the first
func dataEviction() Benchmark {
	const lines = 65
	body := []uint32{
		insts.EncodeLUI(2, DataBase>>12),
		insts.EncodeADDI(6, 0, lines),
		insts.EncodeLW(5, 2, 0), // seeded by Setup
		insts.EncodeSW(5, 2, 0), // loop:
		insts.EncodeADDI(2, 2, 64),
		insts.EncodeADDI(6, 6, -1),
		insts.EncodeBNE(6, 0, -12),
		insts.EncodeLUI(2, DataBase>>12),
		insts.EncodeLW(7, 2, 0),
	}

	return Benchmark{
		Name:        "data_eviction",
		Description: "stores to 65 lines evict the first; reload misses",
		Setup: func(storage *emu.Storage) {
			storage.Write(DataBase, 7)
		},
		Program:      program(body, 7),
		ExpectedExit: 7,
	}
}
