package daemon

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	ps "github.com/mitchellh/go-ps"

	"github.com/martinwickman/tabswitch/internal/logx"
	"pkt.systems/pslog"
)

// ErrRunning is returned by Start when another live daemon owns the socket.
var ErrRunning = errors.New("daemon already running")

const connTimeout = 5 * time.Second

// Server accepts one request per connection on a unix socket.
type Server struct {
	socketPath string
	svc        *Service
	log        pslog.Logger

	mu       sync.Mutex
	listener net.Listener
	wg       sync.WaitGroup
}

// NewServer returns a server for svc listening at socketPath.
func NewServer(socketPath string, svc *Service, log pslog.Logger) *Server {
	return &Server{
		socketPath: socketPath,
		svc:        svc,
		log:        logx.Or(log).With("component", "daemon"),
	}
}

// PIDPath returns the pid file kept next to socketPath.
func PIDPath(socketPath string) string {
	return socketPath + ".pid"
}

// Start claims the socket, writes the pid file and starts accepting. A pid
// file naming a live process other than this one fails with ErrRunning; a
// dead one marks a stale socket, which is removed.
func (s *Server) Start(ctx context.Context) error {
	if s.socketPath == "" {
		return fmt.Errorf("socket path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(s.socketPath), 0o755); err != nil {
		return fmt.Errorf("creating socket directory: %w", err)
	}

	if pid, alive := livePID(PIDPath(s.socketPath)); alive && pid != os.Getpid() {
		return fmt.Errorf("%w (pid %d)", ErrRunning, pid)
	}
	if err := os.Remove(s.socketPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing stale socket: %w", err)
	}

	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.socketPath, err)
	}
	if err := os.Chmod(s.socketPath, 0o600); err != nil {
		listener.Close()
		return fmt.Errorf("setting socket permissions: %w", err)
	}
	if err := os.WriteFile(PIDPath(s.socketPath), []byte(strconv.Itoa(os.Getpid())+"\n"), 0o644); err != nil {
		listener.Close()
		return fmt.Errorf("writing pid file: %w", err)
	}

	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	s.svc.Start(ctx)

	s.wg.Add(1)
	go s.acceptLoop(ctx, listener)

	s.log.Info("listening", "socket", s.socketPath, "pid", os.Getpid())
	return nil
}

// Shutdown stops accepting, waits for in-flight connections until ctx ends
// and removes the socket and pid file.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	listener := s.listener
	s.listener = nil
	s.mu.Unlock()

	if listener != nil {
		listener.Close()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}

	os.Remove(PIDPath(s.socketPath))
	if err := os.Remove(s.socketPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing socket: %w", err)
	}
	return nil
}

func (s *Server) acceptLoop(ctx context.Context, listener net.Listener) {
	defer s.wg.Done()

	for {
		conn, err := listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}
			s.log.Warn("accept failed", "err", err)
			continue
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConn(ctx, conn)
		}()
	}
}

func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(connTimeout))

	ctx, cancel := context.WithTimeout(ctx, connTimeout)
	defer cancel()

	var resp Response
	line, err := bufio.NewReader(conn).ReadBytes('\n')
	if err != nil && len(line) == 0 {
		s.log.Debug("read failed", "err", err)
		return
	}
	var req Request
	if err := json.Unmarshal(line, &req); err != nil {
		resp = fail(fmt.Errorf("decoding request: %w", err))
	} else {
		s.log.Debug("request", "type", req.Type, "tab", req.Tab, "window", req.Window)
		resp = s.svc.Handle(ctx, req)
	}

	if err := json.NewEncoder(conn).Encode(resp); err != nil {
		s.log.Debug("write failed", "err", err)
	}
}

// livePID reads a pid file and reports whether its process is still running.
func livePID(path string) (int, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, false
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, false
	}
	proc, err := ps.FindProcess(pid)
	if err != nil || proc == nil {
		return pid, false
	}
	return pid, true
}
