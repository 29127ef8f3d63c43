package daemon

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"time"
)

// ErrUnavailable means no daemon answered on the socket.
var ErrUnavailable = errors.New("daemon unavailable")

// ErrUnresponsive means the pid file names a live daemon that did not answer.
var ErrUnresponsive = errors.New("daemon running but not answering")

const dialTimeout = 500 * time.Millisecond

// Send delivers req to the daemon at socketPath and returns its response.
// A failed dial wraps ErrUnavailable so callers can fall back to running
// the tracker in-process.
func Send(ctx context.Context, socketPath string, req Request) (Response, error) {
	d := net.Dialer{Timeout: dialTimeout}
	conn, err := d.DialContext(ctx, "unix", socketPath)
	if err != nil {
		return Response{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer conn.Close()

	deadline := time.Now().Add(connTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	conn.SetDeadline(deadline)

	if err := json.NewEncoder(conn).Encode(req); err != nil {
		return Response{}, fmt.Errorf("sending %s: %w", req.Type, err)
	}
	line, err := bufio.NewReader(conn).ReadBytes('\n')
	if err != nil && len(line) == 0 {
		return Response{}, fmt.Errorf("reading response: %w", err)
	}
	var resp Response
	if err := json.Unmarshal(line, &resp); err != nil {
		return Response{}, fmt.Errorf("decoding response: %w", err)
	}
	if !resp.OK {
		return resp, fmt.Errorf("daemon: %s", resp.Error)
	}
	return resp, nil
}

// Running reports the pid of a live daemon owning socketPath, if any.
func Running(socketPath string) (int, bool) {
	return livePID(PIDPath(socketPath))
}
