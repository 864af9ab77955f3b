package tunnel

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"syscall"
	"time"

	"github.com/rs/zerolog"
)

// KillDelay is how long Stop waits after SIGTERM before killing the process.
const KillDelay = 1500 * time.Millisecond

// Process is a running child whose combined output is logged line by line.
type Process struct {
	name   string
	cmd    *exec.Cmd
	cancel context.CancelFunc
	done   chan struct{}
	err    error
}

// Start runs argv in dir with stdout and stderr merged. Each non-empty output
// line is logged at Info. The process is stopped as if by Stop when ctx is
// done.
func Start(ctx context.Context, log zerolog.Logger, name string, argv []string, dir string) (*Process, error) {
	if len(argv) == 0 {
		return nil, errors.New("start " + name + ": empty command")
	}

	ctx, cancel := context.WithCancel(ctx)
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = dir
	cmd.Cancel = func() error {
		return cmd.Process.Signal(syscall.SIGTERM)
	}
	cmd.WaitDelay = KillDelay

	r, w, err := os.Pipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("start %s: %w", name, err)
	}
	cmd.Stdout = w
	cmd.Stderr = w

	log = log.With().Str("proc", name).Logger()
	log.Debug().Strs("argv", argv).Msg("starting")

	if err := cmd.Start(); err != nil {
		cancel()
		_ = r.Close()
		_ = w.Close()
		return nil, fmt.Errorf("start %s: %w", name, err)
	}
	_ = w.Close()

	go func() {
		defer r.Close()
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			if line := sc.Text(); line != "" {
				log.Info().Msg(line)
			}
		}
		if err := sc.Err(); err != nil {
			log.Debug().Err(err).Msg("output closed")
		}
	}()

	p := &Process{name: name, cmd: cmd, cancel: cancel, done: make(chan struct{})}
	log.Info().Int("pid", p.Pid()).Msg("started")
	go func() {
		p.err = cmd.Wait()
		cancel()
		log.Info().AnErr("exit", p.err).Msg("exited")
		close(p.done)
	}()

	return p, nil
}

// Stop sends SIGTERM, kills the process if it is still running after
// KillDelay, and returns once it has exited. It may be called repeatedly.
func (p *Process) Stop() {
	p.cancel()
	<-p.done
}

// Done is closed once the process has exited.
func (p *Process) Done() <-chan struct{} {
	return p.done
}

// Err returns the result of waiting on the process. It is only meaningful
// after Done is closed.
func (p *Process) Err() error {
	select {
	case <-p.done:
		return p.err
	default:
		return nil
	}
}

func (p *Process) Pid() int {
	return p.cmd.Process.Pid
}
