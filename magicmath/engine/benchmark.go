package engine

import (
	"time"

	"magic-math-gateway/magicmath/domain"
)

// BenchmarkRow é o tempo médio das duas estratégias para um n.
type BenchmarkRow struct {
	N         int              `json:"n"`
	Recursive time.Duration    `json:"recursive_ns"`
	Iterative time.Duration    `json:"iterative_ns"`
	Winner    domain.Algorithm `json:"winner"`
}

// DefaultBenchmarkInputs são os n medidos pelo endpoint /benchmark.
var DefaultBenchmarkInputs = []int{10, 100, 1000}

// Benchmark mede as duas estratégias para cada n. Cada rodada recursiva usa um
// Engine novo, senão o memo transformaria tudo em lookup.
func Benchmark(ns []int, runs int) []BenchmarkRow {
	if runs <= 0 {
		runs = 1
	}

	out := make([]BenchmarkRow, 0, len(ns))
	for _, n := range ns {
		if n < 0 {
			continue
		}
		row := BenchmarkRow{N: n}

		var rec, it time.Duration
		for r := 0; r < runs; r++ {
			e := New()
			start := time.Now()
			_, _ = e.Recursive(n)
			rec += time.Since(start)

			start = time.Now()
			_, _ = Iterative(n)
			it += time.Since(start)
		}
		row.Recursive = rec / time.Duration(runs)
		row.Iterative = it / time.Duration(runs)

		row.Winner = domain.Recursive
		if row.Iterative < row.Recursive {
			row.Winner = domain.Iterative
		}
		out = append(out, row)
	}
	return out
}
