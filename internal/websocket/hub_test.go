package websocket

import (
	"encoding/json"
	"testing"

	"dm-relay/internal/errs"
	"dm-relay/internal/models"
	"dm-relay/internal/presence"

	"github.com/stretchr/testify/require"
)

func testClient(id presence.ConnectionID, buffer int) *Client {
	return &Client{id: id, send: make(chan []byte, buffer)}
}

func readFrame(t *testing.T, c *Client) models.Envelope {
	t.Helper()
	select {
	case frame, ok := <-c.send:
		require.True(t, ok, "send channel closed")
		env, err := models.DecodeEnvelope(frame)
		require.NoError(t, err)
		return env
	default:
		t.Fatal("no frame queued")
		return models.Envelope{}
	}
}

func TestHub_Notify(t *testing.T) {
	req := require.New(t)
	hub := NewHub()
	a, b := testClient("a", 4), testClient("b", 4)
	hub.Register(a)
	hub.Register(b)

	req.NoError(hub.Notify("b", models.EventError, "bad"))

	env := readFrame(t, b)
	req.Equal(models.EventError, env.Event)
	var reason string
	req.NoError(json.Unmarshal(env.Data, &reason))
	req.Equal("bad", reason)
	req.Empty(a.send)
}

func TestHub_Notify_UnknownConnection(t *testing.T) {
	err := NewHub().Notify("ghost", models.EventError, "bad")
	require.ErrorIs(t, err, errs.ErrConnectionNotFound)
}

func TestHub_Broadcast(t *testing.T) {
	req := require.New(t)
	hub := NewHub()
	a, b := testClient("a", 4), testClient("b", 4)
	hub.Register(a)
	hub.Register(b)

	hub.Broadcast(models.EventUsers, []string{"alice", "bob"})

	for _, c := range []*Client{a, b} {
		env := readFrame(t, c)
		req.Equal(models.EventUsers, env.Event)
		req.JSONEq(`["alice","bob"]`, string(env.Data))
	}
}

func TestHub_PreservesOrderPerConnection(t *testing.T) {
	req := require.New(t)
	hub := NewHub()
	a := testClient("a", 8)
	hub.Register(a)

	req.NoError(hub.Notify("a", models.EventError, "first"))
	hub.Broadcast(models.EventUsers, []string{"alice"})
	req.NoError(hub.Notify("a", models.EventError, "third"))

	req.JSONEq(`"first"`, string(readFrame(t, a).Data))
	req.Equal(models.EventUsers, readFrame(t, a).Event)
	req.JSONEq(`"third"`, string(readFrame(t, a).Data))
}

func TestHub_DropsSlowClient(t *testing.T) {
	req := require.New(t)
	hub := NewHub()
	slow, fast := testClient("slow", 1), testClient("fast", 4)
	hub.Register(slow)
	hub.Register(fast)

	hub.Broadcast(models.EventUsers, []string{"x"})
	hub.Broadcast(models.EventUsers, []string{"y"})

	// slow had room for one frame, then was dropped and closed
	req.Equal(1, hub.Count())
	<-slow.send
	_, ok := <-slow.send
	req.False(ok)

	err := hub.Notify("slow", models.EventError, "late")
	req.ErrorIs(err, errs.ErrConnectionNotFound)

	req.Len(fast.send, 2)
}

func TestHub_Notify_FullBufferDrops(t *testing.T) {
	req := require.New(t)
	hub := NewHub()
	c := testClient("c", 1)
	hub.Register(c)

	req.NoError(hub.Notify("c", models.EventError, "one"))
	req.ErrorIs(hub.Notify("c", models.EventError, "two"), errs.ErrConnectionNotFound)
	req.Zero(hub.Count())
}

func TestHub_UnregisterIsIdempotent(t *testing.T) {
	req := require.New(t)
	hub := NewHub()
	c := testClient("c", 1)
	hub.Register(c)

	hub.Unregister(c)
	hub.Unregister(c)

	req.Zero(hub.Count())
	_, ok := <-c.send
	req.False(ok)
}

func TestHub_Shutdown(t *testing.T) {
	req := require.New(t)
	hub := NewHub()
	a := testClient("a", 1)
	hub.Register(a)

	hub.Shutdown()

	_, ok := <-a.send
	req.False(ok)
	req.Zero(hub.Count())

	// late registrations are closed straight away
	late := testClient("late", 1)
	hub.Register(late)
	_, ok = <-late.send
	req.False(ok)

	// the read pump still unregisters on its way out
	hub.Unregister(a)
}
