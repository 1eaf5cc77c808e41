// Package benchmark provides performance benchmarks for pixelsync.
//
// Run benchmarks with:
//
//	go test -bench=. -benchmem ./internal/tests/benchmark/...
//
// Run one group for longer:
//
//	go test -bench=BenchmarkCoordinator -benchmem -benchtime=10s ./internal/tests/benchmark/...
//
// Generate a report and compare runs:
//
//	go test -bench=. -benchmem -count=5 ./internal/tests/benchmark/... | tee benchmark.txt
//	benchstat old.txt new.txt
package benchmark
