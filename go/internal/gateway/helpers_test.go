package gateway

import (
	"bufio"
	"context"
	"net"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/mcdev12/bidtable/go/internal/auction"
	"github.com/mcdev12/bidtable/go/internal/protocol"
	"github.com/stretchr/testify/require"
)

const readTimeout = 2 * time.Second

// pipeClient is the far end of an in-memory connection served by a Manager.
type pipeClient struct {
	conn net.Conn
	r    *bufio.Reader
}

func (c *pipeClient) send(t *testing.T, line string) {
	t.Helper()
	require.NoError(t, c.conn.SetWriteDeadline(time.Now().Add(readTimeout)))
	_, err := c.conn.Write([]byte(line + "\n"))
	require.NoError(t, err)
}

// read decodes the next server line.
func (c *pipeClient) read(t *testing.T) protocol.Message {
	t.Helper()
	require.NoError(t, c.conn.SetReadDeadline(time.Now().Add(readTimeout)))
	line, err := c.r.ReadString('\n')
	require.NoError(t, err)
	msg, err := protocol.DecodeServer(line)
	require.NoError(t, err)
	return msg
}

// readUntil skips messages until want arrives.
func (c *pipeClient) readUntil(t *testing.T, want protocol.Message) {
	t.Helper()
	var seen []string
	for {
		require.NoError(t, c.conn.SetReadDeadline(time.Now().Add(readTimeout)))
		line, err := c.r.ReadString('\n')
		require.NoErrorf(t, err, "waiting for %q, saw %q", want, seen)
		msg, err := protocol.DecodeServer(line)
		require.NoError(t, err)
		if msg == want {
			return
		}
		seen = append(seen, line)
	}
}

// expectClosed drains the connection and requires the server to hang up.
// Only a read that times out counts as still open.
func (c *pipeClient) expectClosed(t *testing.T) {
	t.Helper()
	for {
		if err := c.conn.SetReadDeadline(time.Now().Add(readTimeout)); err != nil {
			return
		}
		if _, err := c.r.ReadString('\n'); err != nil {
			require.NotErrorIs(t, err, os.ErrDeadlineExceeded, "connection still open")
			return
		}
	}
}

// join connects a client and completes registration as name.
func (c *pipeClient) join(t *testing.T, name string) {
	t.Helper()
	require.Equal(t, protocol.SubmitName(), c.read(t))
	c.send(t, name)
	require.Equal(t, protocol.NameAccepted(), c.read(t))
	require.Equal(t, protocol.Welcome(name), c.read(t))
}

type gatewayFixture struct {
	coordinator *auction.Coordinator
	manager     *Manager
	ctx         context.Context
}

// newGateway builds a manager in front of a running coordinator.
func newGateway(t *testing.T, maxPlayers int) *gatewayFixture {
	t.Helper()

	c, err := auction.NewCoordinator(auction.Config{
		MaxPlayers:       maxPlayers,
		DisconnectPolicy: auction.DisconnectSkip,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = c.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	return &gatewayFixture{
		coordinator: c,
		manager:     NewManager(c, DefaultConnectionConfig()),
		ctx:         ctx,
	}
}

func (f *gatewayFixture) dial(t *testing.T) *pipeClient {
	t.Helper()
	return dialManager(t, f.ctx, f.manager)
}

// dialManager serves one end of an in-memory connection with m and returns
// the other end.
func dialManager(t *testing.T, ctx context.Context, m *Manager) *pipeClient {
	t.Helper()

	server, client := net.Pipe()
	ctx, cancel := context.WithCancel(ctx)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		m.Serve(ctx, NewLineTransport(server, DefaultConnectionConfig()))
	}()
	t.Cleanup(func() {
		_ = client.Close()
		cancel()
		wg.Wait()
	})

	return &pipeClient{conn: client, r: bufio.NewReader(client)}
}
