package exec

import (
	"strings"
	"testing"
	"time"

	"github.com/rileyhilliard/drbdmon/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitRunning(t *testing.T, p *Process) {
	t.Helper()
	require.Eventually(t, func() bool { return p.Pid() != 0 }, 5*time.Second, 5*time.Millisecond)
}

func TestExecute_SimpleCommand(t *testing.T) {
	p := New([]string{"sh", "-c", "echo hello; echo oops >&2"})
	assert.Equal(t, ExitStatusNone, p.ExitStatus())

	require.NoError(t, p.Execute())
	assert.Equal(t, 0, p.ExitStatus())
	assert.Equal(t, "hello\n", string(p.Stdout()))
	assert.Equal(t, "oops\n", string(p.Stderr()))
	assert.True(t, p.Finished())
	assert.Equal(t, 0, p.Pid())
}

func TestExecute_NonZeroExitCode(t *testing.T) {
	p := New([]string{"sh", "-c", "exit 42"})

	require.NoError(t, p.Execute(), "a command that ran is not an error")
	assert.Equal(t, 42, p.ExitStatus())
}

func TestExecute_SpawnFailure(t *testing.T) {
	p := New([]string{"/nonexistent/drbdadm", "up", "r0"})

	err := p.Execute()
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrSpawn))
	assert.Equal(t, ExitStatusFailed, p.ExitStatus())
	assert.True(t, p.Finished())
}

func TestExecute_EmptyCommandLine(t *testing.T) {
	p := New(nil)
	err := p.Execute()
	assert.True(t, errors.IsCode(err, errors.ErrSpawn))
	assert.Equal(t, ExitStatusFailed, p.ExitStatus())
}

func TestExecute_OnlyOnce(t *testing.T) {
	p := New([]string{"true"})
	require.NoError(t, p.Execute())
	assert.Error(t, p.Execute())
}

func TestExecute_TruncatesOutput(t *testing.T) {
	const written = 300000
	p := New([]string{"sh", "-c", "head -c 300000 /dev/zero; head -c 300000 /dev/zero >&2"})

	done := make(chan error, 1)
	go func() { done <- p.Execute() }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("process blocked on a full pipe")
	}

	assert.Equal(t, 0, p.ExitStatus())
	assert.Len(t, p.Stdout(), MaxCapture)
	assert.Len(t, p.Stderr(), MaxCapture)
	out, errOut := p.Discarded()
	assert.Equal(t, int64(written-MaxCapture), out)
	assert.Equal(t, int64(written-MaxCapture), errOut)
}

func TestTerminate(t *testing.T) {
	tests := []struct {
		name   string
		force  bool
		status int
	}{
		{name: "graceful", force: false, status: 128 + 15},
		{name: "forced", force: true, status: 128 + 9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New([]string{"sleep", "30"})
			done := make(chan struct{})
			go func() {
				_ = p.Execute()
				close(done)
			}()
			waitRunning(t, p)

			start := time.Now()
			require.NoError(t, p.Terminate(tt.force))
			assert.Less(t, time.Since(start), time.Second, "terminate must not block")

			select {
			case <-done:
			case <-time.After(5 * time.Second):
				t.Fatal("process did not exit after terminate")
			}
			assert.Equal(t, tt.status, p.ExitStatus())
		})
	}
}

func TestTerminate_AfterExitSignalsNothing(t *testing.T) {
	// The background sleep keeps stdout open, so Execute is still waiting
	// on the pipe after the shell itself has exited.
	p := New([]string{"sh", "-c", "sleep 2 & echo started"})
	done := make(chan struct{})
	go func() {
		_ = p.Execute()
		close(done)
	}()

	require.Eventually(t, func() bool {
		return strings.Contains(string(p.Stdout()), "started") && p.Pid() == 0
	}, 5*time.Second, 5*time.Millisecond)
	assert.False(t, p.Finished())

	start := time.Now()
	require.NoError(t, p.Terminate(true))
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("process did not finish")
	}
	assert.Greater(t, time.Since(start), time.Second, "the background sleep was killed")
	assert.Equal(t, 0, p.ExitStatus())
}

func TestTerminate_BeforeStart(t *testing.T) {
	p := New([]string{"sleep", "30"})
	require.NoError(t, p.Terminate(true))

	done := make(chan struct{})
	go func() {
		_ = p.Execute()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("pending termination request was not delivered")
	}
	assert.Equal(t, 128+9, p.ExitStatus())
}

func TestTerminate_ReachesProcessGroup(t *testing.T) {
	// The background sleep inherits the pipes; without a group kill Execute
	// would only return after pipeDrainDelay.
	p := New([]string{"sh", "-c", "sleep 30 & wait"})
	done := make(chan struct{})
	go func() {
		_ = p.Execute()
		close(done)
	}()
	waitRunning(t, p)
	time.Sleep(50 * time.Millisecond)

	require.NoError(t, p.Terminate(false))
	select {
	case <-done:
	case <-time.After(pipeDrainDelay - time.Second):
		t.Fatal("child of the command kept the process alive")
	}
}

func TestTerminate_AfterExit(t *testing.T) {
	p := New([]string{"true"})
	require.NoError(t, p.Execute())
	assert.NoError(t, p.Terminate(true))
	assert.Equal(t, 0, p.ExitStatus())
}

func TestCommandLine(t *testing.T) {
	argv := []string{"drbdadm", "connect", "r0:nodeB"}
	p := New(argv)
	assert.Equal(t, "drbdadm connect r0:nodeB", p.CommandLine())

	got := p.Argv()
	got[0] = "changed"
	assert.Equal(t, "drbdadm", p.Argv()[0])
}

func TestIsCommandNotFound(t *testing.T) {
	tests := []struct {
		name     string
		stderr   string
		exitCode int
		wantName string
		wantOK   bool
	}{
		{"dash", "sh: 1: drbdadm: not found", 127, "drbdadm", true},
		{"bash", "bash: drbdsetup: command not found", 127, "drbdsetup", true},
		{"busybox", "sh: drbdadm: not found", 127, "drbdadm", true},
		{"unknown output", "something else", 127, "", true},
		{"wrong exit code", "sh: 1: drbdadm: not found", 1, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			name, ok := IsCommandNotFound(tt.stderr, tt.exitCode)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantName, name)
		})
	}
}

func TestDiagnose(t *testing.T) {
	ok := New([]string{"true"})
	require.NoError(t, ok.Execute())
	assert.NoError(t, Diagnose(ok))

	failed := New([]string{"sh", "-c", "exit 3"})
	require.NoError(t, failed.Execute())
	err := Diagnose(failed)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exit code 3")

	missing := New([]string{"sh", "-c", "drbdmon-no-such-tool"})
	require.NoError(t, missing.Execute())
	err = Diagnose(missing)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "not found"))

	spawn := New([]string{"/nonexistent"})
	_ = spawn.Execute()
	assert.True(t, errors.IsCode(Diagnose(spawn), errors.ErrSpawn))
}
