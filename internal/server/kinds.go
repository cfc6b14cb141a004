package server

import "strings"

// Kind is the behavioral category of a room instance. It is resolved
// once, when the room is created, and fixed for the room's lifetime.
type Kind int

const (
	// KindNone accepts connections but attaches no store behavior.
	KindNone Kind = iota
	KindCounter
	KindGraphBoard
	KindChatLog
	KindSharedDocument
	KindPollSet
	KindPresence
)

func (k Kind) String() string {
	switch k {
	case KindCounter:
		return "counter"
	case KindGraphBoard:
		return "graphboard"
	case KindChatLog:
		return "chatlog"
	case KindSharedDocument:
		return "document"
	case KindPollSet:
		return "pollset"
	case KindPresence:
		return "presence"
	default:
		return "none"
	}
}

// counterRoomId is the single well-known counter room. Counter rooms
// are not multi-instance; every other kind uses the <kind>-<instance>
// naming convention.
const counterRoomId = "example-room"

var kindPrefixes = []struct {
	name string
	kind Kind
}{
	{"chat", KindChatLog},
	{"reactflow", KindGraphBoard},
	{"editor", KindSharedDocument},
	{"polls", KindPollSet},
	{"presence", KindPresence},
}

// ResolveKind maps a room identifier to its kind: an exact match on the
// kind name, or the "<kind>-<instance>" convention for independent
// multi-instance rooms. Unrecognized identifiers resolve to KindNone.
func ResolveKind(roomId string) Kind {
	if roomId == counterRoomId {
		return KindCounter
	}

	for _, p := range kindPrefixes {
		if roomId == p.name || strings.HasPrefix(roomId, p.name+"-") {
			return p.kind
		}
	}

	return KindNone
}

// newStore returns a fresh store for the kind. Every room instance owns
// its own store; instances of the same kind share nothing.
func newStore(k Kind) Store {
	switch k {
	case KindCounter:
		return &counterStore{}
	case KindGraphBoard:
		return &graphStore{}
	case KindChatLog:
		return &chatStore{}
	case KindSharedDocument:
		return &documentStore{}
	case KindPollSet:
		return &pollStore{}
	case KindPresence:
		return &presenceStore{}
	default:
		return noopStore{}
	}
}
