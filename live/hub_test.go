package live

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroadcastToRoom_OnlyReachesRoom(t *testing.T) {
	hub := NewHub(nil)
	mine := NewClient(hub, nil, "client-a")
	other := NewClient(hub, nil, "client-b")
	hub.add(mine)
	hub.add(other)

	hub.BroadcastToRoom("client-a", Message{Type: TypeNavigate, Payload: NavigatePayload{To: "/login"}})

	require.Len(t, mine.Send, 1)
	assert.Empty(t, other.Send)

	var got struct {
		Type    string          `json:"type"`
		RoomID  string          `json:"room_id"`
		Payload NavigatePayload `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(<-mine.Send, &got))
	assert.Equal(t, TypeNavigate, got.Type)
	assert.Equal(t, "client-a", got.RoomID)
	assert.Equal(t, "/login", got.Payload.To)
}

func TestBroadcastToRoom_SkipsFullClient(t *testing.T) {
	hub := NewHub(nil)
	client := NewClient(hub, nil, "room")
	hub.add(client)

	for i := 0; i < sendBuffer+3; i++ {
		hub.BroadcastToRoom("room", Message{Type: TypeNavigate})
	}

	assert.Len(t, client.Send, sendBuffer)
}

func TestCloseRoom(t *testing.T) {
	hub := NewHub(nil)
	client := NewClient(hub, nil, "room")
	hub.add(client)

	hub.CloseRoom("room")
	hub.CloseRoom("room")

	_, open := <-client.Send
	assert.False(t, open)
	assert.Zero(t, hub.RoomSize("room"))
	hub.BroadcastToRoom("room", Message{Type: TypeNavigate})
}

func TestRun_RegisterAndShutdown(t *testing.T) {
	hub := NewHub(nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(done)
	}()

	client := NewClient(hub, nil, "room")
	hub.Register <- client
	hub.Unregister <- NewClient(hub, nil, "room")
	assert.Equal(t, 1, hub.RoomSize("room"))

	cancel()
	<-done

	_, open := <-client.Send
	assert.False(t, open)
}

func TestNavigate(t *testing.T) {
	hub := NewHub(nil)
	client := NewClient(hub, nil, "c1")
	hub.add(client)

	hub.Navigate("c1", "/dashboard", "admin_required")

	var got struct {
		Type    string          `json:"type"`
		Payload NavigatePayload `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(<-client.Send, &got))
	assert.Equal(t, TypeNavigate, got.Type)
	assert.Equal(t, NavigatePayload{To: "/dashboard", Notice: "admin_required"}, got.Payload)
}

func TestJoinAndLeaveAfterShutdown(t *testing.T) {
	hub := NewHub(nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(done)
	}()

	client := NewClient(hub, nil, "room")
	require.True(t, hub.Join(client))
	assert.Equal(t, 1, hub.RoomSize("room"))

	cancel()
	<-done

	late := NewClient(hub, nil, "room")
	assert.False(t, hub.Join(late))
	assert.Zero(t, hub.RoomSize("room"))

	left := make(chan struct{})
	go func() {
		hub.leave(client)
		close(left)
	}()
	select {
	case <-left:
	case <-time.After(time.Second):
		t.Fatal("leave blocked after the hub stopped")
	}
}
