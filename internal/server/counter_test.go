package server

import (
	"net/http"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCounterSnapshotOnConnect(t *testing.T) {
	room := newTestRoom(t, "example-room")
	c := newTestClient(t, "conn-1")

	room.handleJoin(c)
	assert.Equal(t, []byte("0"), recvRaw(t, c))
}

func TestCounterIncrementBroadcastsToAll(t *testing.T) {
	room := newTestRoom(t, "example-room")
	sender := newTestClient(t, "conn-1")
	peer := newTestClient(t, "conn-2")
	room.handleJoin(sender)
	room.handleJoin(peer)
	drain(sender)
	drain(peer)

	room.store.message(room, sender, []byte("increment"))

	assert.Equal(t, []byte("1"), recvRaw(t, sender))
	assert.Equal(t, []byte("1"), recvRaw(t, peer))
}

func TestCounterWrapsAtOneHundred(t *testing.T) {
	room := newTestRoom(t, "example-room")
	sender := newTestClient(t, "conn-1")
	room.handleJoin(sender)
	drain(sender)

	store := room.store.(*counterStore)
	for i := 0; i < 205; i++ {
		room.store.message(room, sender, []byte("increment"))
		assert.GreaterOrEqual(t, store.count, 0)
		assert.Less(t, store.count, 100)
	}

	// 205 accepted increments mod 100
	assert.Equal(t, 5, store.count)
}

func TestCounterIgnoresUnknownMessages(t *testing.T) {
	room := newTestRoom(t, "example-room")
	sender := newTestClient(t, "conn-1")
	room.handleJoin(sender)
	drain(sender)

	room.store.message(room, sender, []byte(`{"type":"increment"}`))
	room.store.message(room, sender, []byte("decrement"))

	assert.Equal(t, 0, room.store.(*counterStore).count)
	assertNoMessage(t, sender)
}

func TestCounterRequest(t *testing.T) {
	room := newTestRoom(t, "example-room")
	c := newTestClient(t, "conn-1")
	room.handleJoin(c)
	drain(c)

	// GET reads without mutating
	assert.Equal(t, "0", room.store.request(room, http.MethodGet))
	assertNoMessage(t, c)

	// POST increments and broadcasts the new value
	assert.Equal(t, "1", room.store.request(room, http.MethodPost))
	assert.Equal(t, []byte("1"), recvRaw(t, c))

	assert.Equal(t, "1", room.store.request(room, http.MethodGet))
}

func TestCounterValueMatchesAcceptedIncrements(t *testing.T) {
	room := newTestRoom(t, "example-room")
	sender := newTestClient(t, "conn-1")
	room.handleJoin(sender)
	drain(sender)

	const n = 42
	for i := 0; i < n; i++ {
		room.store.message(room, sender, []byte("increment"))
	}
	drain(sender)

	newcomer := newTestClient(t, "conn-2")
	room.handleJoin(newcomer)
	assert.Equal(t, []byte(strconv.Itoa(n%100)), recvRaw(t, newcomer))
}
