package engine

import "sync"

// progressCounter adapts a (done, total) callback to the per-item hook used by ResolveAll.
func progressCounter(total int, fn func(done, total int)) func() {
	if fn == nil {
		return nil
	}
	var mu sync.Mutex
	done := 0
	return func() {
		mu.Lock()
		defer mu.Unlock()
		done++
		fn(done, total)
	}
}
