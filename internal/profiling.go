package internal

import (
	"fmt"
	"os"
	"runtime"
	"runtime/pprof"
	"time"
)

// Profiler periodically captures heap profiles when ENABLE_PROFILING is
// set. Useful when chasing growth in the per-endpoint duration buffers or
// match ingestion batches.
type Profiler struct {
	enabled bool
	logger  *Logger
}

func NewProfiler(logger *Logger) *Profiler {
	return &Profiler{
		enabled: os.Getenv("ENABLE_PROFILING") == "true",
		logger:  logger,
	}
}

func (p *Profiler) StartMemoryProfiling() {
	if !p.enabled {
		return
	}

	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()

		for range ticker.C {
			p.captureMemoryProfile()
		}
	}()

	p.logger.Info("memory_profiling_started").
		Component("profiler").
		Operation("start_memory").
		Log()
}

func (p *Profiler) captureMemoryProfile() {
	filename := fmt.Sprintf("mem_%d.prof", time.Now().Unix())

	f, err := os.Create(filename)
	if err != nil {
		p.logger.Error("memory_profile_create_failed").
			Component("profiler").
			Operation("capture_memory").
			Err(err).
			Log()
		return
	}
	defer f.Close()

	runtime.GC()

	if err := pprof.WriteHeapProfile(f); err != nil {
		p.logger.Error("memory_profile_write_failed").
			Component("profiler").
			Operation("capture_memory").
			Err(err).
			Log()
		return
	}

	p.logger.Info("memory_profile_captured").
		Component("profiler").
		Operation("capture_memory").
		Meta("filename", filename).
		Meta("goroutines", runtime.NumGoroutine()).
		Log()
}
