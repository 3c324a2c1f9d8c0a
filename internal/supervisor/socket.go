package supervisor

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"os"
	"time"

	"github.com/opsgate/captainhook/internal/cerr"
	"github.com/opsgate/captainhook/internal/config"
)

const maxSocketResponse = 1 << 20 // 1 MiB

// SocketBackend talks to a co-resident supervisor process over a Unix
// domain socket: one length-prefixed JSON request out, one
// length-prefixed JSON response back, bounded to maxSocketResponse.
type SocketBackend struct {
	SocketPath  string
	TimeoutSecs int
}

func (b *SocketBackend) timeout() time.Duration {
	if b.TimeoutSecs <= 0 {
		return 30 * time.Second
	}
	return time.Duration(b.TimeoutSecs) * time.Second
}

func (b *SocketBackend) Evaluate(ctx context.Context, req *Request, _ *config.PolicyConfig) (*Response, error) {
	if _, err := os.Stat(b.SocketPath); err != nil {
		return nil, &cerr.SocketNotFound{Path: b.SocketPath}
	}

	deadline := time.Now().Add(b.timeout())
	if dl, ok := ctx.Deadline(); ok && dl.Before(deadline) {
		deadline = dl
	}

	type result struct {
		resp *Response
		err  error
	}
	done := make(chan result, 1)

	go func() {
		conn, err := net.DialTimeout("unix", b.SocketPath, b.timeout())
		if err != nil {
			done <- result{nil, &cerr.Ipc{Reason: fmt.Sprintf("connect failed: %v", err)}}
			return
		}
		defer conn.Close()
		_ = conn.SetDeadline(deadline)

		payload, err := json.Marshal(req)
		if err != nil {
			done <- result{nil, &cerr.Ipc{Reason: fmt.Sprintf("encode failed: %v", err)}}
			return
		}
		var header [4]byte
		binary.BigEndian.PutUint32(header[:], uint32(len(payload)))
		if _, err := conn.Write(header[:]); err != nil {
			done <- result{nil, &cerr.Ipc{Reason: fmt.Sprintf("write header failed: %v", err)}}
			return
		}
		if _, err := conn.Write(payload); err != nil {
			done <- result{nil, &cerr.Ipc{Reason: fmt.Sprintf("write body failed: %v", err)}}
			return
		}

		var respHeader [4]byte
		if _, err := io.ReadFull(conn, respHeader[:]); err != nil {
			done <- result{nil, &cerr.Ipc{Reason: fmt.Sprintf("read header failed: %v", err)}}
			return
		}
		respLen := binary.BigEndian.Uint32(respHeader[:])
		if respLen > maxSocketResponse {
			done <- result{nil, &cerr.Ipc{Reason: fmt.Sprintf("response too large: %d bytes", respLen)}}
			return
		}

		buf := make([]byte, respLen)
		if _, err := io.ReadFull(conn, buf); err != nil {
			done <- result{nil, &cerr.Ipc{Reason: fmt.Sprintf("read body failed: %v", err)}}
			return
		}

		var resp Response
		if err := json.Unmarshal(buf, &resp); err != nil {
			done <- result{nil, &cerr.Supervisor{Reason: fmt.Sprintf("invalid response: %v", err)}}
			return
		}
		done <- result{&resp, nil}
	}()

	select {
	case r := <-done:
		return r.resp, r.err
	case <-time.After(time.Until(deadline)):
		return nil, &cerr.SupervisorTimeout{TimeoutSecs: b.TimeoutSecs}
	}
}
