package types

// Identity is the display identity a connection binds with an
// "identify" message. It is self-asserted but server-remembered: once
// bound, it overrides identity fields embedded in later payloads.
type Identity struct {
	UserId string `json:"userId"`
	Name   string `json:"name"`
	Color  string `json:"color"`
	Avatar string `json:"avatar,omitempty"`
}

// ChatMessage is one entry in a chat room's append-only history.
// Reactions maps emoji to a count and is created lazily on first react.
type ChatMessage struct {
	Id        string         `json:"id"`
	UserId    string         `json:"userId"`
	Text      string         `json:"text,omitempty"`
	Image     string         `json:"image,omitempty"`
	Ts        int64          `json:"ts"`
	Name      string         `json:"name,omitempty"`
	Color     string         `json:"color,omitempty"`
	Avatar    string         `json:"avatar,omitempty"`
	Reactions map[string]int `json:"reactions,omitempty"`
}

// Poll is one voting question. Votes is keyed by the option's index
// rendered as a decimal string ("0", "1", ...), matching the wire shape
// clients expect.
type Poll struct {
	Id       string         `json:"id"`
	Question string         `json:"question"`
	Options  []string       `json:"options"`
	Votes    map[string]int `json:"votes"`
}

// PresenceEntry is one user's current location in the presence roster.
type PresenceEntry struct {
	UserId string `json:"userId"`
	Name   string `json:"name"`
	Color  string `json:"color"`
	Avatar string `json:"avatar,omitempty"`
	Page   string `json:"page"`
}
