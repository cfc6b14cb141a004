package server

import (
	"encoding/json"

	"github.com/roomkit/relay/internal/types"
)

// envelope is the outer shape shared by every JSON room protocol:
// a type tag plus an optional payload. Kinds with flat message shapes
// re-parse the raw bytes with their own structs.
type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// parseIdentify decodes the payload of an "identify" message. The
// identity is self-asserted; binding it is what makes it authoritative
// for later enrichment.
func parseIdentify(payload json.RawMessage) (*types.Identity, bool) {
	if len(payload) == 0 {
		return nil, false
	}

	var ident types.Identity
	if err := json.Unmarshal(payload, &ident); err != nil {
		return nil, false
	}

	return &ident, true
}

// marshalMessage serializes an outbound message, reporting failures to
// the room's log. A nil return means the message is dropped; nothing in
// this protocol treats a dropped message as fatal.
func (r *Room) marshalMessage(v any) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		r.log.Printf("room %q: marshal outbound message: %v", r.id, err)
		return nil
	}

	return data
}
