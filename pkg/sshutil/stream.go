package sshutil

import (
	stderrors "errors"
	"fmt"
	"io"

	"github.com/rileyhilliard/drbdmon/internal/errors"
	"golang.org/x/crypto/ssh"
)

// Stream is a long-running remote command whose output is consumed as it
// arrives.
type Stream struct {
	session *ssh.Session
	stdout  io.Reader
	cmd     string
}

// Start runs cmd on the node without waiting for it. stderr, if not nil,
// receives the command's standard error.
func (c *Client) Start(cmd string, stderr io.Writer) (*Stream, error) {
	session, err := c.Client.NewSession()
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrSSH,
			"Failed to create SSH session",
			"Connection may have been closed. Try reconnecting.")
	}

	stdout, err := session.StdoutPipe()
	if err != nil {
		session.Close()
		return nil, errors.WrapWithCode(err, errors.ErrSSH, "Failed to open remote stdout", "")
	}
	if stderr != nil {
		session.Stderr = stderr
	}

	if err := session.Start(cmd); err != nil {
		session.Close()
		return nil, errors.WrapWithCode(err, errors.ErrSpawn,
			fmt.Sprintf("Failed to start remote command: %s", cmd),
			"Check if the command exists on the remote host.")
	}
	return &Stream{session: session, stdout: stdout, cmd: cmd}, nil
}

// Stdout returns the command's standard output.
func (s *Stream) Stdout() io.Reader {
	return s.stdout
}

// Wait blocks until the command exited and returns its exit status. A
// command that ended without reporting one (killed, connection lost)
// returns -1 and an error.
func (s *Stream) Wait() (int, error) {
	err := s.session.Wait()
	if err == nil {
		return 0, nil
	}
	var exitErr *ssh.ExitError
	if stderrors.As(err, &exitErr) {
		if sig := exitErr.Signal(); sig != "" {
			return -1, fmt.Errorf("remote command killed by SIG%s", sig)
		}
		return exitErr.ExitStatus(), nil
	}
	return -1, errors.WrapWithCode(err, errors.ErrSSH,
		fmt.Sprintf("Lost remote command: %s", s.cmd), "")
}

// Terminate asks the remote side to stop the command and closes the
// session. Servers that ignore signal requests see the channel close.
func (s *Stream) Terminate() error {
	_ = s.session.Signal(ssh.SIGTERM)
	err := s.session.Close()
	if err == io.EOF {
		return nil
	}
	return err
}
