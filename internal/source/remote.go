package source

import (
	"fmt"
	"sync"
	"time"

	"github.com/rileyhilliard/drbdmon/internal/errors"
	"github.com/rileyhilliard/drbdmon/pkg/sshutil"
)

// Remote runs the helper on a storage node over SSH.
type Remote struct {
	stream
	cfg       Config
	client    *sshutil.Client
	session   *sshutil.Stream
	stderr    *lineWriter
	closeOnce sync.Once
}

// StartRemote dials cfg.Host and starts the helper there.
func StartRemote(cfg Config) (*Remote, error) {
	cfg.normalize()

	client, err := sshutil.Dial(cfg.Host, cfg.SSH)
	if err != nil {
		return nil, err
	}
	r := &Remote{
		stream: newStream(),
		cfg:    cfg,
		client: client,
		stderr: &lineWriter{emit: cfg.Stderr},
	}
	r.session, err = client.Start(cfg.Command, r.stderr)
	if err != nil {
		client.Close()
		return nil, err
	}
	cfg.Log.Debug("events source started on %s (%s): %s", cfg.Host, client.Address, cfg.Command)

	go r.pump(r.session.Stdout(), r.terminate, r.wait)
	return r, nil
}

func (r *Remote) terminate() {
	if err := r.session.Terminate(); err != nil {
		r.cfg.Log.Debug("terminate remote events source: %v", err)
	}
}

func (r *Remote) wait() error {
	code, err := r.session.Wait()
	r.stderr.Flush()
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrSource,
			fmt.Sprintf("Events source on %s ended", r.cfg.Host), "")
	}
	return errors.New(errors.ErrSource,
		fmt.Sprintf("Events source on %s exited with status %d", r.cfg.Host, code), "")
}

// Close stops the remote helper and drops the connection. If the session
// does not end within the grace period the connection is closed under it.
func (r *Remote) Close() error {
	var err error
	r.closeOnce.Do(func() {
		close(r.stop)
		r.terminate()
		select {
		case <-r.done:
		case <-time.After(r.cfg.Grace):
		}
		err = r.client.Close()
		<-r.done
	})
	return err
}
