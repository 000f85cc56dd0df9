package session

import "context"

// Menu is the active conversational mode. It governs how the next plain
// text message from the chat is interpreted.
type Menu int

const (
	MenuNone Menu = iota
	MenuMain
	MenuStudentList
	MenuAddStudent
	MenuEditStudent
	MenuDeleteStudent
)

// Session is the per-chat conversational state. EditingEmail doubles as
// the edit flow's step marker: empty means step one (awaiting the target
// email), non-empty means step two (awaiting the replacement).
type Session struct {
	Authenticated bool   `json:"authenticated"`
	Menu          Menu   `json:"menu"`
	EditingEmail  string `json:"editing_email,omitempty"`
	LastMessageID int    `json:"last_message_id,omitempty"`
	ListPage      int    `json:"list_page,omitempty"`
}

// Store is the abstraction over different session backends. Get returns a
// zero Session for chats it has never seen.
type Store interface {
	Get(ctx context.Context, chatID int64) (Session, error)
	Put(ctx context.Context, chatID int64, sess Session) error
}
