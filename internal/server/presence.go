package server

import (
	"encoding/json"

	"github.com/roomkit/relay/internal/types"
)

// presenceRecord pairs a roster entry with the connection that owns
// it. Records are kept in join order so roster broadcasts are stable.
type presenceRecord struct {
	connId string
	entry  *types.PresenceEntry
}

// presenceStore maps connections to their current location. A
// provisional entry is created on connect so the roster reflects the
// connection count even before the client identifies.
type presenceStore struct {
	records []*presenceRecord
}

type rosterOut struct {
	Type    string                 `json:"type"`
	Payload []*types.PresenceEntry `json:"payload"`
}

type presenceIdentify struct {
	types.Identity
	Page string `json:"page"`
}

type pagePayload struct {
	Page string `json:"page"`
}

func (s *presenceStore) connect(r *Room, c *Client) {
	name := c.id
	if len(name) > 4 {
		name = name[:4]
	}

	s.records = append(s.records, &presenceRecord{
		connId: c.id,
		entry: &types.PresenceEntry{
			UserId: c.id,
			Name:   name,
			Color:  "#888",
			Page:   "#/counter",
		},
	})

	s.broadcastRoster(r)
}

func (s *presenceStore) message(r *Room, sender *Client, data []byte) {
	var msg envelope
	if err := json.Unmarshal(data, &msg); err != nil {
		r.log.Printf("room %q: drop malformed message: %v", r.id, err)
		return
	}

	switch msg.Type {
	case "identify":
		var ident presenceIdentify
		if err := json.Unmarshal(msg.Payload, &ident); err != nil {
			return
		}

		r.setIdentity(sender, &ident.Identity)
		s.setEntry(sender.id, &types.PresenceEntry{
			UserId: ident.UserId,
			Name:   ident.Name,
			Color:  ident.Color,
			Avatar: ident.Avatar,
			Page:   ident.Page,
		})
		s.broadcastRoster(r)
	case "page":
		var page pagePayload
		if err := json.Unmarshal(msg.Payload, &page); err != nil {
			return
		}

		rec := s.record(sender.id)
		if rec == nil {
			return
		}

		if page.Page != "" {
			rec.entry.Page = page.Page
		}
		s.broadcastRoster(r)
	}
}

func (s *presenceStore) disconnect(r *Room, c *Client) {
	for i, rec := range s.records {
		if rec.connId == c.id {
			s.records = append(s.records[:i], s.records[i+1:]...)
			break
		}
	}

	s.broadcastRoster(r)
}

func (s *presenceStore) request(r *Room, method string) string { return "ok" }

func (s *presenceStore) record(connId string) *presenceRecord {
	for _, rec := range s.records {
		if rec.connId == connId {
			return rec
		}
	}

	return nil
}

// setEntry overwrites the connection's record, keeping its roster
// position when one already exists.
func (s *presenceStore) setEntry(connId string, entry *types.PresenceEntry) {
	if rec := s.record(connId); rec != nil {
		rec.entry = entry
		return
	}

	s.records = append(s.records, &presenceRecord{connId: connId, entry: entry})
}

// broadcastRoster sends the full roster to every connection; there is
// no diffing.
func (s *presenceStore) broadcastRoster(r *Room) {
	roster := make([]*types.PresenceEntry, len(s.records))
	for i, rec := range s.records {
		roster[i] = rec.entry
	}

	r.broadcast(r.marshalMessage(rosterOut{Type: "roster", Payload: roster}), nil)
}
