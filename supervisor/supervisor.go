// Package supervisor owns the inference server child process: it launches
// the binary in its own process group, drains its combined output, and
// tears it down with a bounded grace period. At most one child is managed
// at a time; starting again replaces whatever ran before.
package supervisor

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shirou/gopsutil/v3/process"

	pkgerrors "github.com/daverage/TinyLLM/pkg/errors"
)

const (
	// chunkSize is the read granularity of the output drain.
	chunkSize = 4096
	// killGrace is how long a terminated child gets to exit before the
	// whole group is killed.
	killGrace = 2 * time.Second
)

// Sink receives chunks of the child's combined stdout and stderr. Chunks
// are raw bytes, not lines; a sink that needs lines must reassemble them.
type Sink func(chunk []byte)

type Supervisor struct {
	logger *slog.Logger

	mu        sync.Mutex
	cmd       *exec.Cmd
	proc      *process.Process
	pid       int
	startedAt time.Time
	stop      *sync.Once
	exited    chan struct{}
	drained   chan struct{}
	reader    *os.File

	lastOutput atomic.Int64
}

func New(logger *slog.Logger) *Supervisor {
	return &Supervisor{
		logger: logger,
	}
}

// Start launches binary with args and begins draining its output into
// sink. Any previously managed child is terminated first, and stray
// processes with the same executable name are cleaned up best effort.
// The child is not bound to ctx; it runs until terminated or it exits.
func (s *Supervisor) Start(ctx context.Context, binary string, args []string, sink Sink) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.terminateLocked()
	s.killStrays(ctx, binary)

	r, w, err := os.Pipe()
	if err != nil {
		return 0, errors.Join(pkgerrors.ErrLaunch, err)
	}

	cmd := exec.Command(binary, args...)
	cmd.Stdout = w
	cmd.Stderr = w
	setProcGroup(cmd)

	if err := cmd.Start(); err != nil {
		r.Close()
		w.Close()

		return 0, errors.Join(pkgerrors.ErrLaunch, err)
	}
	// The child holds its own copy of the write end.
	w.Close()

	s.cmd = cmd
	s.proc, _ = process.NewProcessWithContext(ctx, int32(cmd.Process.Pid))
	s.pid = cmd.Process.Pid
	s.startedAt = time.Now()
	s.stop = &sync.Once{}
	s.exited = make(chan struct{})
	s.drained = make(chan struct{})
	s.reader = r
	s.lastOutput.Store(s.startedAt.UnixNano())

	go s.drain(r, sink, s.drained)
	go s.reap(cmd, s.exited)

	s.logger.Info("inference server started", slog.Int("pid", s.pid), slog.String("binary", binary))

	return s.pid, nil
}

// Terminate initiates shutdown of the managed child. The output drain
// has finished before this returns, so a sink never sees a chunk after
// Terminate; the child itself gets killGrace to honour the termination
// signal before its process group is killed. Calling Terminate with no
// child, or twice, is a no-op.
func (s *Supervisor) Terminate() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.terminateLocked()
}

func (s *Supervisor) terminateLocked() {
	if s.cmd == nil {
		return
	}

	pid, exited, reader, logger := s.pid, s.exited, s.reader, s.logger
	drained := s.drained
	s.stop.Do(func() {
		// Closing the reader unblocks the drain; waiting for it
		// guarantees no output lands in the sink after this point.
		reader.Close()
		<-drained

		select {
		case <-exited:
			return
		default:
		}

		if err := terminateGroup(pid); err != nil {
			return
		}

		go func() {
			select {
			case <-exited:
			case <-time.After(killGrace):
				if err := killGroup(pid); err == nil {
					logger.Warn("inference server ignored termination, killed group", slog.Int("pid", pid))
				}
			}
		}()
	})
}

// Shutdown terminates the child and waits for it to be reaped, or for ctx.
func (s *Supervisor) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	exited := s.exited
	s.terminateLocked()
	s.mu.Unlock()

	if exited == nil {
		return nil
	}

	select {
	case <-exited:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Supervisor) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cmd == nil {
		return false
	}

	select {
	case <-s.exited:
		return false
	default:
		return true
	}
}

func (s *Supervisor) PID() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.pid
}

func (s *Supervisor) StartedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.startedAt
}

// LastOutput reports when the drain last saw a chunk from the child. For
// a child that has produced no output yet this is its start time.
func (s *Supervisor) LastOutput() time.Time {
	nano := s.lastOutput.Load()
	if nano == 0 {
		return time.Time{}
	}

	return time.Unix(0, nano)
}

func (s *Supervisor) drain(r *os.File, sink Sink, done chan<- struct{}) {
	defer close(done)
	defer r.Close()

	buf := make([]byte, chunkSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			s.lastOutput.Store(time.Now().UnixNano())
			if sink != nil {
				chunk := make([]byte, n)
				copy(chunk, buf[:n])
				sink(chunk)
			}
		}
		if err != nil {
			return
		}
	}
}

func (s *Supervisor) reap(cmd *exec.Cmd, exited chan struct{}) {
	err := cmd.Wait()
	close(exited)

	if err != nil {
		s.logger.Info("inference server exited", slog.Int("pid", cmd.Process.Pid), slog.Any("error", err))

		return
	}
	s.logger.Info("inference server exited", slog.Int("pid", cmd.Process.Pid))
}

// killStrays terminates leftover processes whose executable name matches
// the binary about to be launched. These are orphans from a previous
// daemon run; losing the race here is acceptable.
func (s *Supervisor) killStrays(ctx context.Context, binary string) {
	name := filepath.Base(binary)

	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return
	}

	self := int32(os.Getpid())
	for _, p := range procs {
		if p.Pid == self || int(p.Pid) == s.pid {
			continue
		}
		pname, err := p.NameWithContext(ctx)
		if err != nil || pname != name {
			continue
		}
		if err := p.TerminateWithContext(ctx); err == nil {
			s.logger.Warn("terminated stray inference server", slog.Int("pid", int(p.Pid)))
		}
	}
}
