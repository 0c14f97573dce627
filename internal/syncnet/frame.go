package syncnet

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/localpdub/localpdub/internal/common"
)

// MaxMessageSize caps a single accumulated protocol message. Exceeding it
// aborts the connection.
const MaxMessageSize = 10 << 20

const readChunkSize = 4096

// frameConn reads and writes newline-terminated JSON messages over a net
// connection, refreshing the I/O deadline around every operation. Bytes
// received past a newline are retained as the start of the next message.
type frameConn struct {
	conn    net.Conn
	timeout time.Duration
	rest    []byte
}

func newFrameConn(conn net.Conn, timeout time.Duration) *frameConn {
	return &frameConn{conn: conn, timeout: timeout}
}

// readMessage accumulates bytes until the first newline and parses the
// prefix as a protocol envelope.
func (f *frameConn) readMessage() (*envelope, error) {
	line, err := f.readLine()
	if err != nil {
		return nil, err
	}
	var env envelope
	if err := json.Unmarshal(line, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrProtocol, err)
	}
	return &env, nil
}

func (f *frameConn) readLine() ([]byte, error) {
	for {
		if i := bytes.IndexByte(f.rest, '\n'); i >= 0 {
			line := f.rest[:i]
			f.rest = append([]byte(nil), f.rest[i+1:]...)
			return line, nil
		}
		if len(f.rest) > MaxMessageSize {
			return nil, fmt.Errorf("%w: message exceeds %d bytes", common.ErrProtocol, MaxMessageSize)
		}

		if err := f.conn.SetReadDeadline(time.Now().Add(f.timeout)); err != nil {
			return nil, err
		}
		chunk := make([]byte, readChunkSize)
		n, err := f.conn.Read(chunk)
		if n > 0 {
			f.rest = append(f.rest, chunk[:n]...)
			continue
		}
		if err != nil {
			return nil, err
		}
	}
}

// writeMessage marshals v, appends the newline terminator and writes the
// whole frame.
func (f *frameConn) writeMessage(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return f.writeRaw(append(data, '\n'))
}

// readRaw reads exactly n unframed bytes (the auth challenge/response),
// consuming any bytes already buffered past a previous frame.
func (f *frameConn) readRaw(n int) ([]byte, error) {
	out := make([]byte, n)
	copied := copy(out, f.rest)
	f.rest = append([]byte(nil), f.rest[copied:]...)

	if copied < n {
		if err := f.conn.SetReadDeadline(time.Now().Add(f.timeout)); err != nil {
			return nil, err
		}
		if _, err := io.ReadFull(f.conn, out[copied:]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (f *frameConn) writeRaw(data []byte) error {
	if err := f.conn.SetWriteDeadline(time.Now().Add(f.timeout)); err != nil {
		return err
	}
	for len(data) > 0 {
		n, err := f.conn.Write(data)
		if err != nil {
			return err
		}
		data = data[n:]
	}
	return nil
}
