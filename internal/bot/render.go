package bot

import (
	"strconv"
	"strings"

	"gopkg.in/telebot.v4"

	"whitelistbot/internal/metrics"
	"whitelistbot/internal/session"
)

// Transport is the subset of telebot.Bot the renderer needs. Narrowed so
// tests can drive the renderer with a fake.
type Transport interface {
	Send(to telebot.Recipient, what interface{}, opts ...interface{}) (*telebot.Message, error)
	Edit(msg telebot.Editable, what interface{}, opts ...interface{}) (*telebot.Message, error)
	Delete(msg telebot.Editable) error
}

// Renderer maintains the chat's single live message: every view edits the
// tracked message in place, falling back to delete-and-resend when the
// edit is rejected.
type Renderer struct {
	api Transport
}

// NewRenderer creates a renderer over a transport.
func NewRenderer(api Transport) *Renderer {
	return &Renderer{api: api}
}

// Show displays text and keyboard on the chat's live message. Rich-text
// mode is MarkdownV2; when the transport rejects the markup, the same
// call is retried in plain text. After a successful return the session
// tracks exactly one live message id.
func (r *Renderer) Show(sess *session.Session, chatID int64, text string, markup *telebot.ReplyMarkup, plain bool) error {
	opts := renderOpts(markup, plain)

	if sess.LastMessageID != 0 {
		live := telebot.StoredMessage{
			MessageID: strconv.Itoa(sess.LastMessageID),
			ChatID:    chatID,
		}
		_, err := r.api.Edit(live, text, opts...)
		if err == nil || isNotModified(err) {
			return nil
		}
		if !plain && isEntityParseError(err) {
			if _, perr := r.api.Edit(live, text, renderOpts(markup, true)...); perr == nil || isNotModified(perr) {
				return nil
			}
		}
		// Message too old, deleted, or otherwise uneditable. Clear it
		// best-effort and fall through to a fresh send.
		metrics.RenderFallbacksTotal.Inc()
		_ = r.api.Delete(live)
	}

	msg, err := r.api.Send(telebot.ChatID(chatID), text, opts...)
	if err != nil && !plain && isEntityParseError(err) {
		msg, err = r.api.Send(telebot.ChatID(chatID), text, renderOpts(markup, true)...)
	}
	if err != nil {
		return err
	}
	sess.LastMessageID = msg.ID
	return nil
}

func renderOpts(markup *telebot.ReplyMarkup, plain bool) []interface{} {
	opts := make([]interface{}, 0, 2)
	if markup != nil {
		opts = append(opts, markup)
	}
	if !plain {
		opts = append(opts, telebot.ModeMarkdownV2)
	}
	return opts
}

// isEntityParseError matches the Bot API rejection raised when MarkdownV2
// entities fail to parse.
func isEntityParseError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "can't parse entities")
}

// isNotModified matches the edit rejection for identical content, which
// means the live message already shows what we want.
func isNotModified(err error) bool {
	return err != nil && strings.Contains(err.Error(), "message is not modified")
}
