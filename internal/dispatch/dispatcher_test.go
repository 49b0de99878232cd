package dispatch

import (
	"fmt"
	"runtime"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestSubmitSerializesPerKey(t *testing.T) {
	d := NewDispatcher(zap.NewNop())

	const tasks = 200
	var mu sync.Mutex
	order := make([]int, 0, tasks)

	for i := 0; i < tasks; i++ {
		i := i
		d.Submit("booking:1", func() {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
		})
	}
	d.Close()

	if len(order) != tasks {
		t.Fatalf("ran %d tasks, want %d", len(order), tasks)
	}
	for i, got := range order {
		if got != i {
			t.Fatalf("order[%d] = %d, tasks for one key must run in submission order", i, got)
		}
	}
}

func TestDifferentKeysRunIndependently(t *testing.T) {
	d := NewDispatcher(zap.NewNop())

	// A blocked key must not prevent another key's task from running.
	release := make(chan struct{})
	done := make(chan struct{})

	d.Submit("slow", func() { <-release })
	d.Submit("fast", func() { close(done) })

	<-done
	close(release)
	d.Close()
}

func TestIdleKeysAreReaped(t *testing.T) {
	d := NewDispatcher(zap.NewNop())
	before := runtime.NumGoroutine()

	const keys = 1000
	var done sync.WaitGroup
	done.Add(keys)
	for i := 0; i < keys; i++ {
		d.Submit(fmt.Sprintf("booking:%d", i), func() { done.Done() })
	}
	done.Wait()

	// Workers exit shortly after their queues drain; poll until the map is
	// empty rather than sleeping a fixed amount.
	deadline := time.Now().Add(5 * time.Second)
	for {
		d.mu.Lock()
		remaining := len(d.queues)
		d.mu.Unlock()
		if remaining == 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("%d queues still registered after all tasks completed", remaining)
		}
		time.Sleep(5 * time.Millisecond)
	}

	after := runtime.NumGoroutine()
	if after > before+10 {
		t.Errorf("%d goroutines before, %d after; workers must exit when their queues drain", before, after)
	}

	// A reaped key must still serialize correctly when reused.
	ran := make(chan struct{})
	d.Submit("booking:0", func() { close(ran) })
	<-ran
	d.Close()
}

func TestSubmitAfterCloseIsDropped(t *testing.T) {
	d := NewDispatcher(zap.NewNop())
	d.Close()

	ran := false
	d.Submit("k", func() { ran = true })
	if ran {
		t.Error("task submitted after Close must not run")
	}
}

func TestCloseDrainsQueuedTasks(t *testing.T) {
	d := NewDispatcher(zap.NewNop())

	var mu sync.Mutex
	count := 0
	for i := 0; i < 50; i++ {
		key := "a"
		if i%2 == 0 {
			key = "b"
		}
		d.Submit(key, func() {
			mu.Lock()
			count++
			mu.Unlock()
		})
	}
	d.Close()

	if count != 50 {
		t.Errorf("ran %d tasks before Close returned, want 50", count)
	}
}
