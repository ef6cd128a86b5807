package sync

import "time"

const (
	BookAdded    = "book.add"
	BookRemoved  = "book.remove"
	BookBorrowed = "book.borrow"
	BookReturned = "book.return"

	WelcomeType = "welcome"

	TransportTCP = "tcp"
	TransportWS  = "websocket"
)

// BookEvent is one catalog change. Seq is assigned by the Hub and grows by
// one per event, so followers can spot gaps after a reconnect.
type BookEvent struct {
	Seq    uint64    `json:"seq"`
	Type   string    `json:"type"`
	ISBN   string    `json:"isbn"`
	Title  string    `json:"title,omitempty"`
	Author string    `json:"author,omitempty"`
	UserID string    `json:"user_id,omitempty"` // set for borrow/return
	At     time.Time `json:"at"`
}

// Welcome is the first line every follower receives. Seq is the last event
// published before the follower joined.
type Welcome struct {
	Type      string `json:"type"`
	Transport string `json:"transport"`
	Seq       uint64 `json:"seq"`
	Clients   int    `json:"clients"`
}
