package metrics

import (
	"runtime"
	"time"
)

// CollectRuntime starts a goroutine that samples Go runtime stats into
// gauges under the given prefix at the given interval.
func (r *Registry) CollectRuntime(prefix string, interval time.Duration) {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	goroutines := r.Gauge(prefix+"_goroutines", "Number of live goroutines")
	heapAlloc := r.Gauge(prefix+"_heap_alloc_bytes", "Bytes of allocated heap objects")
	heapSys := r.Gauge(prefix+"_heap_sys_bytes", "Bytes of heap obtained from the OS")
	gcRuns := r.Gauge(prefix+"_gc_runs_total", "Completed GC cycles")

	go func() {
		var ms runtime.MemStats
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for range ticker.C {
			runtime.ReadMemStats(&ms)
			goroutines.Set(int64(runtime.NumGoroutine()))
			heapAlloc.Set(int64(ms.HeapAlloc))
			heapSys.Set(int64(ms.HeapSys))
			gcRuns.Set(int64(ms.NumGC))
		}
	}()
}
