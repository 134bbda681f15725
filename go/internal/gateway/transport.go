package gateway

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"time"
)

// Transport moves framed lines to and from one client.
type Transport interface {
	// ReadLine blocks for the next line. It returns io.EOF once the peer is gone.
	ReadLine() (string, error)
	WriteLine(line string) error
	Close() error
	RemoteAddr() string
}

// lineTransport frames newline terminated text over a stream connection.
type lineTransport struct {
	conn         net.Conn
	scanner      *bufio.Scanner
	writeTimeout time.Duration
}

// NewLineTransport wraps a raw TCP connection.
func NewLineTransport(conn net.Conn, config ConnectionConfig) Transport {
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, config.ReadBufferSize), int(config.MaxMessageSize))
	return &lineTransport{
		conn:         conn,
		scanner:      scanner,
		writeTimeout: config.WriteTimeout,
	}
}

func (t *lineTransport) ReadLine() (string, error) {
	if t.scanner.Scan() {
		return t.scanner.Text(), nil
	}
	if err := t.scanner.Err(); err != nil {
		return "", fmt.Errorf("read line: %w", err)
	}
	return "", io.EOF
}

func (t *lineTransport) WriteLine(line string) error {
	if t.writeTimeout > 0 {
		if err := t.conn.SetWriteDeadline(time.Now().Add(t.writeTimeout)); err != nil {
			return fmt.Errorf("set write deadline: %w", err)
		}
	}
	if _, err := io.WriteString(t.conn, line+"\n"); err != nil {
		return fmt.Errorf("write line: %w", err)
	}
	return nil
}

func (t *lineTransport) Close() error {
	return t.conn.Close()
}

func (t *lineTransport) RemoteAddr() string {
	return t.conn.RemoteAddr().String()
}
