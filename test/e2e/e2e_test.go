package e2e

import (
	"context"
	"fmt"
	"log"
	"net"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/rosapi/rosapi/pkg/client"
	"github.com/rosapi/rosapi/pkg/rosmock"
	"github.com/rosapi/rosapi/pkg/rosproto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

const (
	username = "admin"
	password = "secret"

	recvTimeout = 5 * time.Second
)

// mockInstance is the shared mock device every test in this package
// talks to, started once by TestMain.
var mockInstance *rosmock.Server

var interfaces = []map[string]string{
	{"name": "ether1", "type": "ether", "mtu": "1500", "running": "true"},
	{"name": "ether2", "type": "ether", "mtu": "1500", "running": "false"},
	{"name": "lo", "type": "loopback", "mtu": "65536", "running": "true"},
}

func TestMain(m *testing.M) {
	addr, err := findFreeAddr()
	if err != nil {
		log.Fatalf("failed to find a free port: %v", err)
	}
	mockInstance = rosmock.New("tcp://"+addr, rosmock.WithCredentials(username, password))
	registerHandlers(mockInstance)
	if err := mockInstance.Start(); err != nil {
		log.Fatalf("failed to start the mock device: %v", err)
	}

	code := m.Run()

	mockInstance.Stop()
	os.Exit(code)
}

func findFreeAddr() (string, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", err
	}
	defer l.Close()
	return l.Addr().String(), nil
}

func registerHandlers(s *rosmock.Server) {
	s.Handle("/system/identity/print", func(req *rosmock.Request, w *rosmock.Responder) {
		_ = w.Reply(map[string]string{"name": "e2e-mock"})
	})
	s.Handle("/interface/print", func(req *rosmock.Request, w *rosmock.Responder) {
		for _, ifc := range interfaces {
			if !matches(ifc, req.Queries) {
				continue
			}
			_ = w.Reply(ifc)
		}
	})
	s.Handle("/interface/listen", func(req *rosmock.Request, w *rosmock.Responder) {
		// streams until a cancel finishes the responder
		for seq := 0; ; seq++ {
			ifc := interfaces[seq%len(interfaces)]
			if err := w.Reply(map[string]string{"name": ifc["name"], "seq": fmt.Sprintf("%d", seq)}); err != nil {
				return
			}
			time.Sleep(20 * time.Millisecond)
		}
	})
	s.Handle("/tool/fetch", func(req *rosmock.Request, w *rosmock.Responder) {
		url, ok := req.Attrs["url"]
		if !ok {
			_ = w.Trap(rosproto.TrapCategoryArgumentValueFailure, "url required")
			return
		}
		_ = w.Reply(map[string]string{"status": "finished", "url": url})
	})
}

// matches filters one fixture row by the request's query words. Only
// the presence and equality forms take part, the rest pass.
func matches(ifc map[string]string, queries []string) bool {
	for _, q := range queries {
		if q == "" {
			continue
		}
		switch q[0] {
		case '-', '>', '<', '#':
			continue
		}
		if key, value, ok := strings.Cut(q, "="); ok {
			if ifc[key] != value {
				return false
			}
		} else if _, present := ifc[q]; !present {
			return false
		}
	}
	return true
}

func connect(t *testing.T) *client.Device[client.SimpleResult] {
	t.Helper()
	d, err := client.ConnectSimple(context.Background(), mockInstance.Addr(), username, password)
	require.NoError(t, err)
	t.Cleanup(d.Close)
	return d
}

func recvResult(t *testing.T, st *client.Stream[client.SimpleResult]) client.SimpleResult {
	t.Helper()
	select {
	case r, ok := <-st.C():
		require.True(t, ok, "stream closed before a result arrived")
		return r
	case <-time.After(recvTimeout):
		require.FailNow(t, "timed out waiting for a result")
	}
	return client.SimpleResult{}
}

// collect drains the stream until it closes.
func collect(t *testing.T, st *client.Stream[client.SimpleResult]) []client.SimpleResult {
	t.Helper()
	var out []client.SimpleResult
	deadline := time.After(recvTimeout)
	for {
		select {
		case r, ok := <-st.C():
			if !ok {
				return out
			}
			out = append(out, r)
		case <-deadline:
			require.FailNow(t, "timed out draining the stream")
		}
	}
}

func TestE2E_PrintWithQuery(t *testing.T) {
	d := connect(t)

	st, err := d.Send(context.Background(), []byte("/interface/print"), func(b *rosproto.CommandBuilder) {
		b.QueryEqual([]byte("type"), []byte("ether"))
	})
	require.NoError(t, err)

	results := collect(t, st)
	require.Len(t, results, 2)
	assert.Equal(t, "ether1", results[0].Reply["name"])
	assert.Equal(t, "ether2", results[1].Reply["name"])
}

func TestE2E_BadLogin(t *testing.T) {
	_, err := client.ConnectSimple(context.Background(), mockInstance.Addr(), username, "nope")
	assert.ErrorIs(t, err, client.ErrLoginFailed)
}

func TestE2E_TrapThenRecovery(t *testing.T) {
	d := connect(t)

	st, err := d.SendSimple(context.Background(), []byte("/tool/fetch"))
	require.NoError(t, err)
	results := collect(t, st)
	require.Len(t, results, 1)
	require.NotNil(t, results[0].Trap)
	assert.Equal(t, rosproto.TrapCategoryArgumentValueFailure, results[0].Trap.Category)
	assert.Equal(t, "url required", results[0].Trap.Message)

	// the same session keeps working after a trap
	st, err = d.Send(context.Background(), []byte("/tool/fetch"), func(b *rosproto.CommandBuilder) {
		b.Attribute([]byte("url"), []byte("http://example.com/config.rsc"))
	})
	require.NoError(t, err)
	results = collect(t, st)
	require.Len(t, results, 1)
	require.NotNil(t, results[0].Reply)
	assert.Equal(t, "finished", results[0].Reply["status"])
}

func TestE2E_ListenUntilClose(t *testing.T) {
	d := connect(t)

	st, err := d.SendSimple(context.Background(), []byte("/interface/listen"))
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		res := recvResult(t, st)
		require.NotNil(t, res.Reply)
		assert.Equal(t, fmt.Sprintf("%d", i), res.Reply["seq"])
	}

	// closing the device cancels the listen on the wire and ends the
	// stream; the mock must stay healthy for the next session
	d.Close()
	collect(t, st)

	d2 := connect(t)
	st2, err := d2.SendSimple(context.Background(), []byte("/system/identity/print"))
	require.NoError(t, err)
	results := collect(t, st2)
	require.Len(t, results, 1)
	assert.Equal(t, "e2e-mock", results[0].Reply["name"])
}

func TestE2E_ConcurrentDevices(t *testing.T) {
	const devices = 4
	const commands = 8

	var g errgroup.Group
	for i := 0; i < devices; i++ {
		g.Go(func() error {
			d, err := client.ConnectSimple(context.Background(), mockInstance.Addr(), username, password)
			if err != nil {
				return err
			}
			defer d.Close()

			var inner errgroup.Group
			for j := 0; j < commands; j++ {
				inner.Go(func() error {
					st, err := d.Send(context.Background(), []byte("/interface/print"), func(b *rosproto.CommandBuilder) {
						b.QueryEqual([]byte("type"), []byte("ether"))
					})
					if err != nil {
						return err
					}
					n := 0
					for res := range st.C() {
						if res.Err != nil {
							return res.Err
						}
						if res.Reply == nil {
							return fmt.Errorf("unexpected result %+v", res)
						}
						n++
					}
					if n != 2 {
						return fmt.Errorf("expected 2 interfaces, got %d", n)
					}
					return nil
				})
			}
			return inner.Wait()
		})
	}
	require.NoError(t, g.Wait())
}
