package server

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roomkit/relay/internal/types"
)

func graphOf(r *Room) *graphStore {
	return r.store.(*graphStore)
}

func TestGraphInitSnapshotMatchesState(t *testing.T) {
	room := newTestRoom(t, "reactflow")
	sender := newTestClient(t, "conn-1")
	room.handleJoin(sender)
	drain(sender)

	room.store.message(room, sender, []byte(`{"type":"add-node","node":{"id":"n1","position":{"x":50,"y":50}}}`))
	room.store.message(room, sender, []byte(`{"type":"add-node","node":{"id":"n2","position":{"x":10,"y":20}}}`))
	room.store.message(room, sender, []byte(`{"type":"add-edge","edge":{"id":"e1","source":"n1","target":"n2"}}`))

	newcomer := newTestClient(t, "conn-2")
	room.handleJoin(newcomer)

	init := recvJson(t, newcomer)
	assert.Equal(t, "init", init["type"])
	require.Len(t, init["nodes"], 2)
	require.Len(t, init["edges"], 1)

	nodes := init["nodes"].([]any)
	assert.Equal(t, "n1", nodes[0].(map[string]any)["id"])
	assert.Equal(t, "n2", nodes[1].(map[string]any)["id"])
}

func TestGraphAddNodeRelaysToOthers(t *testing.T) {
	room := newTestRoom(t, "reactflow")
	sender := newTestClient(t, "conn-1")
	peer := newTestClient(t, "conn-2")
	room.handleJoin(sender)
	room.handleJoin(peer)
	drain(sender)
	drain(peer)

	raw := []byte(`{"type":"add-node","node":{"id":"n1","data":{"label":"A"}}}`)
	room.store.message(room, sender, raw)

	assert.JSONEq(t, string(raw), string(recvRaw(t, peer)))
	assertNoMessage(t, sender)
}

func TestGraphUpdateNodeReplacesMatchingId(t *testing.T) {
	room := newTestRoom(t, "reactflow")
	sender := newTestClient(t, "conn-1")
	room.handleJoin(sender)
	drain(sender)

	room.store.message(room, sender, []byte(`{"type":"add-node","node":{"id":"n1","label":"old"}}`))
	room.store.message(room, sender, []byte(`{"type":"update-node","node":{"id":"n1","label":"new"}}`))

	store := graphOf(room)
	require.Len(t, store.nodes, 1)

	var node map[string]any
	require.NoError(t, json.Unmarshal(store.nodes[0].raw, &node))
	assert.Equal(t, "new", node["label"])
}

func TestGraphUpdateNodeUnknownIdIsNoOp(t *testing.T) {
	room := newTestRoom(t, "reactflow")
	sender := newTestClient(t, "conn-1")
	room.handleJoin(sender)
	drain(sender)

	room.store.message(room, sender, []byte(`{"type":"add-node","node":{"id":"n1","label":"old"}}`))
	room.store.message(room, sender, []byte(`{"type":"update-node","node":{"id":"missing","label":"new"}}`))

	store := graphOf(room)
	require.Len(t, store.nodes, 1)

	var node map[string]any
	require.NoError(t, json.Unmarshal(store.nodes[0].raw, &node))
	assert.Equal(t, "old", node["label"])
}

func TestGraphWholesaleReplace(t *testing.T) {
	room := newTestRoom(t, "reactflow")
	sender := newTestClient(t, "conn-1")
	room.handleJoin(sender)
	drain(sender)

	room.store.message(room, sender, []byte(`{"type":"add-node","node":{"id":"n1"}}`))
	room.store.message(room, sender, []byte(`{"type":"graph","nodes":[{"id":"a"},{"id":"b"}],"edges":[{"id":"e"}]}`))

	store := graphOf(room)
	require.Len(t, store.nodes, 2)
	require.Len(t, store.edges, 1)
	assert.Equal(t, "a", store.nodes[0].id)
	assert.Equal(t, "b", store.nodes[1].id)
}

func TestGraphResetClearsAndBroadcastsToAll(t *testing.T) {
	room := newTestRoom(t, "reactflow")
	sender := newTestClient(t, "conn-1")
	peer := newTestClient(t, "conn-2")
	room.handleJoin(sender)
	room.handleJoin(peer)
	drain(sender)
	drain(peer)

	room.store.message(room, sender, []byte(`{"type":"add-node","node":{"id":"n1"}}`))
	drain(peer)
	room.store.message(room, sender, []byte(`{"type":"reset"}`))

	store := graphOf(room)
	assert.Empty(t, store.nodes)
	assert.Empty(t, store.edges)

	// reset reaches the sender too
	assert.Equal(t, "reset", recvJson(t, sender)["type"])
	assert.Equal(t, "reset", recvJson(t, peer)["type"])

	newcomer := newTestClient(t, "conn-3")
	room.handleJoin(newcomer)
	init := recvJson(t, newcomer)
	assert.Empty(t, init["nodes"])
	assert.Empty(t, init["edges"])
}

func TestGraphCursorEnrichedFromLedger(t *testing.T) {
	room := newTestRoom(t, "reactflow")
	sender := newTestClient(t, "conn-1")
	peer := newTestClient(t, "conn-2")
	room.handleJoin(sender)
	room.handleJoin(peer)
	drain(sender)
	drain(peer)

	room.store.message(room, sender, []byte(`{"type":"identify","payload":{"userId":"u1","name":"ann","color":"#f00","avatar":"data:img"}}`))
	room.store.message(room, sender, []byte(`{"type":"cursor","x":12.5,"y":7,"name":"spoofed","color":"#000"}`))

	cursor := recvJson(t, peer)
	assert.Equal(t, "cursor", cursor["type"])
	assert.Equal(t, sender.id, cursor["from"])
	assert.Equal(t, 12.5, cursor["x"])
	assert.Equal(t, float64(7), cursor["y"])
	assert.Equal(t, "ann", cursor["name"])
	assert.Equal(t, "#f00", cursor["color"])
	assert.Equal(t, "data:img", cursor["avatar"])
	assertNoMessage(t, sender)
}

func TestGraphCursorFallsBackToAssertedFields(t *testing.T) {
	room := newTestRoom(t, "reactflow")
	sender := newTestClient(t, "conn-1")
	peer := newTestClient(t, "conn-2")
	room.handleJoin(sender)
	room.handleJoin(peer)
	drain(sender)
	drain(peer)

	room.store.message(room, sender, []byte(`{"type":"cursor","x":1,"y":2,"name":"self","color":"#123"}`))

	cursor := recvJson(t, peer)
	assert.Equal(t, "self", cursor["name"])
	assert.Equal(t, "#123", cursor["color"])
}

func TestGraphSelectAndMarqueeAreEphemeralRelays(t *testing.T) {
	room := newTestRoom(t, "reactflow")
	sender := newTestClient(t, "conn-1")
	peer := newTestClient(t, "conn-2")
	room.handleJoin(sender)
	room.handleJoin(peer)
	drain(sender)
	drain(peer)

	room.setIdentity(sender, &types.Identity{UserId: "u1", Name: "ann", Color: "#f00"})

	room.store.message(room, sender, []byte(`{"type":"select","ids":["n1","n2"]}`))
	sel := recvJson(t, peer)
	assert.Equal(t, "select", sel["type"])
	assert.Equal(t, sender.id, sel["from"])
	assert.Equal(t, []any{"n1", "n2"}, sel["ids"])
	assert.Equal(t, "#f00", sel["color"])
	assert.Equal(t, "ann", sel["name"])

	room.store.message(room, sender, []byte(`{"type":"marquee","rect":{"x":1,"y":2,"w":3,"h":4}}`))
	marquee := recvJson(t, peer)
	assert.Equal(t, "marquee", marquee["type"])
	assert.Equal(t, sender.id, marquee["from"])
	assert.Equal(t, float64(3), marquee["rect"].(map[string]any)["w"])

	// nothing was stored
	store := graphOf(room)
	assert.Empty(t, store.nodes)
	assert.Empty(t, store.edges)
}

func TestGraphMarqueeNullRectClears(t *testing.T) {
	room := newTestRoom(t, "reactflow")
	sender := newTestClient(t, "conn-1")
	peer := newTestClient(t, "conn-2")
	room.handleJoin(sender)
	room.handleJoin(peer)
	drain(sender)
	drain(peer)

	room.store.message(room, sender, []byte(`{"type":"marquee","rect":null}`))

	marquee := recvJson(t, peer)
	assert.Equal(t, "marquee", marquee["type"])
	assert.Nil(t, marquee["rect"])
}

func TestGraphCursorLeaveOnDisconnect(t *testing.T) {
	room := newTestRoom(t, "reactflow")
	leaver := newTestClient(t, "conn-1")
	peer := newTestClient(t, "conn-2")
	room.handleJoin(leaver)
	room.handleJoin(peer)
	drain(leaver)
	drain(peer)

	room.handleLeave(leaver)

	msg := recvJson(t, peer)
	assert.Equal(t, "cursor-leave", msg["type"])
	assert.Equal(t, leaver.id, msg["id"])
}

func TestGraphMalformedMessageIsDropped(t *testing.T) {
	room := newTestRoom(t, "reactflow")
	sender := newTestClient(t, "conn-1")
	peer := newTestClient(t, "conn-2")
	room.handleJoin(sender)
	room.handleJoin(peer)
	drain(sender)
	drain(peer)

	room.store.message(room, sender, []byte(`{not json`))
	room.store.message(room, sender, []byte(`{"type":"add-node"}`))

	assert.Empty(t, graphOf(room).nodes)
	assertNoMessage(t, peer)
}

func TestGraphInstancesAreIndependent(t *testing.T) {
	roomA := newTestRoom(t, "reactflow-a")
	roomB := newTestRoom(t, "reactflow-b")
	sender := newTestClient(t, "conn-1")
	roomA.handleJoin(sender)
	drain(sender)

	for i := 0; i < 3; i++ {
		roomA.store.message(roomA, sender, []byte(fmt.Sprintf(`{"type":"add-node","node":{"id":"n%d"}}`, i)))
	}

	assert.Len(t, graphOf(roomA).nodes, 3)
	assert.Empty(t, graphOf(roomB).nodes)
}
