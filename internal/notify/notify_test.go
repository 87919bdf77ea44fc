package notify

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTakeClearsMask(t *testing.T) {
	b := NewBridge()

	var wg sync.WaitGroup
	for _, r := range []Reason{QueueChanged, OutOfMemory} {
		wg.Add(1)
		go func(r Reason) {
			defer wg.Done()
			b.Post(r)
		}(r)
	}
	wg.Wait()

	select {
	case <-b.C():
	case <-time.After(time.Second):
		t.Fatal("no wakeup after post")
	}

	got := b.Take()
	assert.True(t, got.Has(QueueChanged))
	assert.True(t, got.Has(OutOfMemory))
	assert.Equal(t, QueueChanged|OutOfMemory, got)

	assert.Equal(t, Reason(0), b.Take(), "second read must be empty")
}

func TestPostNeverBlocks(t *testing.T) {
	b := NewBridge()
	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			b.Post(LogChanged)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Post blocked without a reader")
	}

	<-b.C()
	assert.Equal(t, LogChanged, b.Take())
	select {
	case <-b.C():
		t.Fatal("wakeups must coalesce into one slot")
	default:
	}
}

func TestWakeupBeforeWaitIsKept(t *testing.T) {
	b := NewBridge()
	b.Wakeup()

	select {
	case <-b.C():
	default:
		t.Fatal("wakeup posted before the wait was lost")
	}
	assert.Equal(t, Reason(0), b.Take())
}

func TestConcurrentProducers(t *testing.T) {
	b := NewBridge()
	const producers = 16

	var wg sync.WaitGroup
	for i := 0; i < producers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				b.Post(QueueChanged)
			} else {
				b.Post(LogChanged)
			}
		}(i)
	}

	var seen Reason
	finished := make(chan struct{})
	go func() {
		wg.Wait()
		close(finished)
	}()

	for {
		select {
		case <-b.C():
			seen |= b.Take()
			continue
		case <-finished:
		}
		break
	}
	seen |= b.Take()
	require.Equal(t, QueueChanged|LogChanged, seen)
}

func TestReasonString(t *testing.T) {
	assert.Equal(t, "none", Reason(0).String())
	assert.Equal(t, "queue-changed|out-of-memory", (QueueChanged | OutOfMemory).String())
	assert.Equal(t, "log-changed", LogChanged.String())
}
