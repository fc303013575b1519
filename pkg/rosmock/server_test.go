package rosmock_test

import (
	"context"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/rosapi/rosapi/pkg/client"
	"github.com/rosapi/rosapi/pkg/rosmock"
	"github.com/rosapi/rosapi/pkg/rosproto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func freeAddr(t *testing.T) string {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())
	return "tcp://" + addr
}

func startServer(t *testing.T, opt ...rosmock.Option) *rosmock.Server {
	s := rosmock.New(freeAddr(t), opt...)
	require.NoError(t, s.Start())
	t.Cleanup(s.Stop)
	return s
}

func recvResult(t *testing.T, st *client.Stream[client.SimpleResult]) client.SimpleResult {
	select {
	case r, ok := <-st.C():
		require.True(t, ok, "stream closed before a result arrived")
		return r
	case <-time.After(5 * time.Second):
		require.FailNow(t, "timed out waiting for a result")
	}
	return client.SimpleResult{}
}

func recvClosed(t *testing.T, st *client.Stream[client.SimpleResult]) {
	select {
	case r, ok := <-st.C():
		require.False(t, ok, "expected closed stream, got %v", r)
	case <-time.After(5 * time.Second):
		require.FailNow(t, "timed out waiting for the stream to close")
	}
}

func TestServerServesCommands(t *testing.T) {
	s := startServer(t)
	s.Handle("/interface/print", func(req *rosmock.Request, w *rosmock.Responder) {
		if req.Attrs["detail"] != "yes" {
			_ = w.Trap(rosproto.TrapCategoryArgumentValueFailure, "expected detail")
			return
		}
		_ = w.Reply(map[string]string{"name": "ether1", "queries": req.Queries[0]})
		_ = w.Reply(map[string]string{"name": "ether2"})
	})

	d, err := client.ConnectSimple(context.Background(), s.Addr(), "admin", "secret")
	require.NoError(t, err)
	defer d.Close()

	st, err := d.Send(context.Background(), []byte("/interface/print"), func(b *rosproto.CommandBuilder) {
		b.Attribute([]byte("detail"), []byte("yes")).
			QueryEqual([]byte("type"), []byte("ether"))
	})
	require.NoError(t, err)

	first := recvResult(t, st)
	require.NotNil(t, first.Reply)
	assert.Equal(t, "ether1", first.Reply["name"])
	assert.Equal(t, "type=ether", first.Reply["queries"])
	second := recvResult(t, st)
	require.NotNil(t, second.Reply)
	assert.Equal(t, "ether2", second.Reply["name"])
	recvClosed(t, st)

	assert.Equal(t, uint64(1), s.Connections.Load())
	assert.GreaterOrEqual(t, s.InSentences.Load(), uint64(2))
	assert.GreaterOrEqual(t, s.OutSentences.Load(), uint64(4))
}

func TestServerUnknownCommand(t *testing.T) {
	s := startServer(t)

	d, err := client.ConnectSimple(context.Background(), s.Addr(), "admin", "")
	require.NoError(t, err)
	defer d.Close()

	st, err := d.SendSimple(context.Background(), []byte("/no/such/path"))
	require.NoError(t, err)

	res := recvResult(t, st)
	require.NotNil(t, res.Trap)
	assert.Equal(t, rosproto.TrapCategoryMissingItemOrCommand, res.Trap.Category)
	assert.Equal(t, "no such command", res.Trap.Message)
	recvClosed(t, st)
}

func TestServerRejectsBadCredentials(t *testing.T) {
	s := startServer(t, rosmock.WithCredentials("admin", "secret"))

	_, err := client.ConnectSimple(context.Background(), s.Addr(), "admin", "wrong")
	assert.ErrorIs(t, err, client.ErrLoginFailed)

	d, err := client.ConnectSimple(context.Background(), s.Addr(), "admin", "secret")
	require.NoError(t, err)
	d.Close()
}

func TestServerCancelInterrupts(t *testing.T) {
	s := startServer(t)
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })
	s.Handle("/wait", func(req *rosmock.Request, w *rosmock.Responder) {
		<-release
	})

	d, err := client.ConnectSimple(context.Background(), s.Addr(), "admin", "")
	require.NoError(t, err)
	defer d.Close()

	tag := d.NextTag()
	waiting, err := d.SendCommand(context.Background(), rosproto.NewCommandBuilder(tag, []byte("/wait")).Build())
	require.NoError(t, err)

	canceling, err := d.SendCommand(context.Background(), rosproto.CancelCommand(tag))
	require.NoError(t, err)

	// the cancel reuses the target's tag, so the waiting stream is
	// displaced before the device answers
	res := recvResult(t, waiting)
	assert.ErrorIs(t, res.Err, client.ErrTagReused)
	recvClosed(t, waiting)

	res = recvResult(t, canceling)
	require.NotNil(t, res.Trap)
	assert.Equal(t, rosproto.TrapCategoryExecutionInterrupted, res.Trap.Category)
	recvClosed(t, canceling)
}

func TestServerCancelDuringStream(t *testing.T) {
	s := startServer(t)
	s.Handle("/flood", func(req *rosmock.Request, w *rosmock.Responder) {
		for seq := 0; ; seq++ {
			if err := w.Reply(map[string]string{"seq": fmt.Sprintf("%d", seq)}); err != nil {
				return
			}
			time.Sleep(time.Millisecond)
		}
	})

	d, err := client.ConnectSimple(context.Background(), s.Addr(), "admin", "")
	require.NoError(t, err)
	defer d.Close()

	tag := d.NextTag()
	flood, err := d.SendCommand(context.Background(), rosproto.NewCommandBuilder(tag, []byte("/flood")).Build())
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		res := recvResult(t, flood)
		require.NotNil(t, res.Reply)
	}

	canceling, err := d.SendCommand(context.Background(), rosproto.CancelCommand(tag))
	require.NoError(t, err)

	// the displaced stream ends with the reuse error behind whatever
	// replies it had buffered
	var reused bool
	for res := range flood.C() {
		if res.Err != nil {
			assert.ErrorIs(t, res.Err, client.ErrTagReused)
			reused = true
		}
	}
	assert.True(t, reused)

	// the canceling stream sees the interrupt trap, then closes on the
	// done; a reply trailing the done would kill the whole session
	var interrupted bool
	for res := range canceling.C() {
		if res.Trap != nil {
			assert.Equal(t, rosproto.TrapCategoryExecutionInterrupted, res.Trap.Category)
			interrupted = true
		}
	}
	assert.True(t, interrupted)

	assert.Equal(t, client.RUNNING, d.Status())
	st, err := d.SendSimple(context.Background(), []byte("/after"))
	require.NoError(t, err)
	res := recvResult(t, st)
	require.NotNil(t, res.Trap)
	recvClosed(t, st)
}

func TestServerRequiresLogin(t *testing.T) {
	s := startServer(t)

	host := s.Addr()[len("tcp://"):]
	conn, err := net.Dial("tcp", host)
	require.NoError(t, err)
	defer conn.Close()

	cmd := rosproto.NewCommandBuilder(7, []byte("/interface/print")).Build()
	_, err = conn.Write(cmd.Data)
	require.NoError(t, err)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var acc []byte
	buf := make([]byte, 1024)
	for {
		n, rerr := conn.Read(buf)
		acc = append(acc, buf[:n]...)
		if sentence, _, perr := rosproto.NextSentence(acc); perr == nil {
			require.NotEmpty(t, sentence)
			assert.Equal(t, rosproto.WordTypeCategory, sentence[0].Type)
			assert.Equal(t, rosproto.CategoryFatal, sentence[0].Category)
			break
		}
		require.NoError(t, rerr)
	}
}
