package reactor

import (
	"context"
	"math/rand"
	"os"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/rileyhilliard/drbdmon/internal/errors"
	"github.com/rileyhilliard/drbdmon/internal/notify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

type fakeLines struct {
	ch  chan string
	err error
}

func (f *fakeLines) Lines() <-chan string { return f.ch }
func (f *fakeLines) Err() error           { return f.err }

func quiet() Config {
	return Config{Signals: []os.Signal{}, Input: 4}
}

func waitFor(t *testing.T, r *Reactor) Event {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	ev, err := r.Wait(ctx)
	require.NoError(t, err)
	return ev
}

func TestClassify(t *testing.T) {
	tests := []struct {
		sig  os.Signal
		want Signal
	}{
		{unix.SIGHUP, SignalExit},
		{unix.SIGINT, SignalExit},
		{unix.SIGTERM, SignalExit},
		{unix.SIGALRM, SignalTimer},
		{unix.SIGCHLD, SignalChild},
		{unix.SIGWINCH, SignalResize},
		{unix.SIGUSR1, SignalDebug},
		{unix.SIGUSR2, SignalGeneric},
		{unix.SIGPIPE, SignalGeneric},
	}

	for _, tt := range tests {
		t.Run(tt.sig.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.sig))
		})
	}
}

func TestStrings(t *testing.T) {
	assert.Equal(t, "line", KindLine.String())
	assert.Equal(t, "wakeup", KindWakeup.String())
	assert.Equal(t, "unknown", Kind(42).String())
	assert.Equal(t, "resize", SignalResize.String())
	assert.Equal(t, "unknown", Signal(42).String())
}

func TestLine(t *testing.T) {
	src := &fakeLines{ch: make(chan string, 1)}
	r := New(src, notify.NewBridge(), quiet())
	defer r.Close()

	src.ch <- "exists -"
	ev := waitFor(t, r)
	assert.Equal(t, KindLine, ev.Kind)
	assert.Equal(t, "exists -", ev.Line)
}

func TestClosedSourceIsTerminal(t *testing.T) {
	failure := errors.New(errors.ErrSource, "Events source exited with status 1", "")
	src := &fakeLines{ch: make(chan string), err: failure}
	close(src.ch)

	r := New(src, notify.NewBridge(), quiet())
	defer r.Close()

	_, err := r.Wait(context.Background())
	assert.Equal(t, failure, err)
}

func TestClosedSourceWithoutError(t *testing.T) {
	src := &fakeLines{ch: make(chan string)}
	close(src.ch)
	r := New(src, nil, quiet())
	defer r.Close()

	_, err := r.Wait(context.Background())
	assert.True(t, errors.IsCode(err, errors.ErrSource))
}

func TestInput(t *testing.T) {
	r := New(nil, nil, quiet())
	defer r.Close()

	require.NoError(t, r.Send(context.Background(), "quit"))
	ev := waitFor(t, r)
	assert.Equal(t, KindInput, ev.Kind)
	assert.Equal(t, "quit", ev.Input)
}

func TestSendRespectsContext(t *testing.T) {
	r := New(nil, nil, Config{Signals: []os.Signal{}, Input: 1})
	defer r.Close()

	require.NoError(t, r.Send(context.Background(), 1))
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, r.Send(ctx, 2), context.DeadlineExceeded)
}

func TestWakeupCarriesReasons(t *testing.T) {
	b := notify.NewBridge()
	r := New(nil, b, quiet())
	defer r.Close()

	b.Post(notify.QueueChanged)
	b.Post(notify.LogChanged)
	ev := waitFor(t, r)
	assert.Equal(t, KindWakeup, ev.Kind)
	assert.Equal(t, notify.QueueChanged|notify.LogChanged, ev.Reasons)
}

func TestTimer(t *testing.T) {
	r := New(nil, nil, Config{Signals: []os.Signal{}, Tick: 10 * time.Millisecond})
	defer r.Close()

	ev := waitFor(t, r)
	assert.Equal(t, KindSignal, ev.Kind)
	assert.Equal(t, SignalTimer, ev.Signal)
	assert.Nil(t, ev.OSSig)
}

func TestSignals(t *testing.T) {
	r := New(nil, nil, Config{Signals: []os.Signal{unix.SIGUSR1, unix.SIGWINCH}})
	defer r.Close()

	require.NoError(t, syscall.Kill(os.Getpid(), syscall.SIGUSR1))
	ev := waitFor(t, r)
	assert.Equal(t, KindSignal, ev.Kind)
	assert.Equal(t, SignalDebug, ev.Signal)
	assert.Equal(t, unix.SIGUSR1, ev.OSSig)

	require.NoError(t, syscall.Kill(os.Getpid(), syscall.SIGWINCH))
	ev = waitFor(t, r)
	assert.Equal(t, SignalResize, ev.Signal)
}

func TestWaitHonoursContext(t *testing.T) {
	r := New(nil, nil, quiet())
	defer r.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := r.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

// Every Post must be observed by some later Wait, whether it lands before
// Wait starts, while it blocks, or between the wakeup and Take.
func TestWakeupIsNeverLost(t *testing.T) {
	seed := time.Now().UnixNano()
	rng := rand.New(rand.NewSource(seed))
	t.Logf("seed %d", seed)

	b := notify.NewBridge()
	r := New(nil, b, quiet())
	defer r.Close()

	const rounds = 300
	for i := 0; i < rounds; i++ {
		delay := time.Duration(rng.Intn(200)) * time.Microsecond
		producers := 1 + rng.Intn(3)

		var wg sync.WaitGroup
		for p := 0; p < producers; p++ {
			wg.Add(1)
			go func(p int) {
				defer wg.Done()
				time.Sleep(delay * time.Duration(p))
				if p%2 == 0 {
					b.Post(notify.QueueChanged)
				} else {
					b.Post(notify.LogChanged)
				}
			}(p)
		}

		var seen notify.Reason
		want := notify.QueueChanged
		if producers > 1 {
			want |= notify.LogChanged
		}
		for !seen.Has(want) {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			ev, err := r.Wait(ctx)
			cancel()
			require.NoError(t, err, "round %d lost a wakeup (seed %d)", i, seed)
			require.Equal(t, KindWakeup, ev.Kind)
			seen |= ev.Reasons
		}
		wg.Wait()
		// Drain a wakeup left behind by a Post that raced with Take.
		b.Take()
		select {
		case <-b.C():
		default:
		}
	}
}

func TestInboxOutlivesReactor(t *testing.T) {
	inbox := make(chan interface{}, 2)
	first := New(nil, nil, Config{Signals: []os.Signal{}, Inbox: inbox})
	require.NoError(t, first.Send(context.Background(), "queued"))
	first.Close()

	second := New(nil, nil, Config{Signals: []os.Signal{}, Inbox: inbox})
	defer second.Close()
	ev := waitFor(t, second)
	assert.Equal(t, KindInput, ev.Kind)
	assert.Equal(t, "queued", ev.Input)
}
