package server

import (
	"encoding/json"

	"github.com/roomkit/relay/internal/types"
)

// chatStore keeps a room's append-only chat history. Messages are
// never removed or reordered; reactions mutate stored entries in
// place.
type chatStore struct {
	history []*types.ChatMessage
}

type presenceCount struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
}

type chatInit struct {
	Type    string               `json:"type"`
	Payload []*types.ChatMessage `json:"payload"`
}

type chatOut struct {
	Type    string             `json:"type"`
	Payload *types.ChatMessage `json:"payload"`
}

type typingOut struct {
	Type    string `json:"type"`
	Payload struct {
		From string `json:"from"`
	} `json:"payload"`
}

type reactPayload struct {
	Id    string `json:"id"`
	Emoji string `json:"emoji"`
}

type reactOut struct {
	Type    string       `json:"type"`
	Payload reactPayload `json:"payload"`
}

// connect sends the full history, then the peer count to the joiner
// and to everyone else. The joiner is already registered, so the count
// includes it.
func (s *chatStore) connect(r *Room, c *Client) {
	history := s.history
	if history == nil {
		history = []*types.ChatMessage{}
	}
	r.send(c, r.marshalMessage(chatInit{Type: "init", Payload: history}))

	presence := r.marshalMessage(presenceCount{Type: "presence", Count: len(r.clients)})
	r.send(c, presence)
	r.broadcast(presence, c)
}

func (s *chatStore) message(r *Room, sender *Client, data []byte) {
	var msg envelope
	if err := json.Unmarshal(data, &msg); err != nil {
		r.log.Printf("room %q: drop malformed message: %v", r.id, err)
		return
	}

	switch msg.Type {
	case "typing":
		// ephemeral: the receiving client expires the indicator
		out := typingOut{Type: "typing"}
		out.Payload.From = sender.id
		r.broadcast(r.marshalMessage(out), sender)
	case "identify":
		if ident, ok := parseIdentify(msg.Payload); ok {
			r.setIdentity(sender, ident)
			r.broadcast(r.marshalMessage(presenceCount{Type: "presence", Count: len(r.clients)}), nil)
		}
	case "react":
		var react reactPayload
		if err := json.Unmarshal(msg.Payload, &react); err != nil {
			return
		}

		for _, m := range s.history {
			if m.Id == react.Id {
				if m.Reactions == nil {
					m.Reactions = make(map[string]int)
				}
				m.Reactions[react.Emoji]++
				break
			}
		}

		// relay the delta, not the full message
		r.broadcast(r.marshalMessage(reactOut{Type: "react", Payload: react}), sender)
	case "chat":
		var incoming types.ChatMessage
		if err := json.Unmarshal(msg.Payload, &incoming); err != nil {
			return
		}

		enriched := s.enrich(r, sender, incoming)
		s.history = append(s.history, enriched)
		r.broadcast(r.marshalMessage(chatOut{Type: "chat", Payload: enriched}), sender)
	}
}

func (s *chatStore) disconnect(r *Room, c *Client) {
	r.broadcast(r.marshalMessage(presenceCount{Type: "presence", Count: len(r.clients)}), nil)
}

func (s *chatStore) request(r *Room, method string) string { return "ok" }

// enrich overwrites identity fields from the ledger when the sender
// has identified; otherwise the client-asserted fields are trusted
// as-is. That fallback is a documented trust boundary, not a bug.
func (s *chatStore) enrich(r *Room, sender *Client, incoming types.ChatMessage) *types.ChatMessage {
	enriched := incoming
	if ident, ok := r.identity(sender); ok {
		enriched.Name = ident.Name
		enriched.UserId = ident.UserId
		if ident.Color != "" {
			enriched.Color = ident.Color
		}
		if ident.Avatar != "" {
			enriched.Avatar = ident.Avatar
		}
	}

	return &enriched
}
