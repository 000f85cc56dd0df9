package bot

import (
	"context"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v4"

	"whitelistbot/internal/metrics"
	"whitelistbot/internal/session"
)

// Attach registers the bot's handlers on a telebot instance. Commands and
// buttons route through the session state machine; telebot delivers
// updates for one chat sequentially, which is the only ordering the state
// machine relies on.
func (b *Bot) Attach(tb *telebot.Bot) {
	tb.Handle("/start", b.instrument("command_start", func(c telebot.Context) error {
		return b.Start(context.Background(), c.Chat().ID)
	}))
	tb.Handle("/help", b.instrument("command_help", func(c telebot.Context) error {
		return b.Help(context.Background(), c.Chat().ID)
	}))
	tb.Handle("/cancel", b.instrument("command_cancel", func(c telebot.Context) error {
		return b.Cancel(context.Background(), c.Chat().ID, inboundMessageID(c))
	}))

	tb.Handle(telebot.OnText, b.instrument("text", func(c telebot.Context) error {
		return b.Text(context.Background(), c.Chat().ID, inboundMessageID(c), c.Text())
	}))

	for _, action := range []string{
		cbMainMenu, cbStudentList, cbAddStudent, cbEditStudent, cbDeleteStudent, cbListPage,
	} {
		action := action
		tb.Handle(&telebot.Btn{Unique: action}, b.instrument("callback", func(c telebot.Context) error {
			// Answer first so the button stops spinning even if the
			// transition fails.
			_ = c.Respond(&telebot.CallbackResponse{})
			return b.Callback(context.Background(), c.Chat().ID, action, c.Data())
		}))
	}
}

// instrument wraps a handler with per-update logging, metrics, and
// top-level error recovery. Handler errors are logged and converted into
// a generic failure notice; they never crash the poller.
func (b *Bot) instrument(kind string, fn func(c telebot.Context) error) func(telebot.Context) error {
	return func(c telebot.Context) error {
		metrics.UpdatesTotal.WithLabelValues(kind).Inc()
		entry := b.log.WithFields(logrus.Fields{"kind": kind, "chat": chatOf(c)})
		if err := fn(c); err != nil {
			entry.WithError(err).Error("update handling failed")
			b.notifyFailure(c)
			return nil
		}
		entry.Debug("update handled")
		return nil
	}
}

func (b *Bot) notifyFailure(c telebot.Context) {
	chatID := chatOf(c)
	if chatID == 0 {
		return
	}
	err := b.withSession(context.Background(), chatID, func(sess *session.Session) error {
		return b.render.Show(sess, chatID, escapeMarkdown("❌ An error occurred. Please try again or contact the administrator."), nil, false)
	})
	if err != nil {
		b.log.WithError(err).WithField("chat", chatID).Error("failure notice not delivered")
	}
}

func chatOf(c telebot.Context) int64 {
	if c == nil || c.Chat() == nil {
		return 0
	}
	return c.Chat().ID
}

func inboundMessageID(c telebot.Context) int {
	if c == nil || c.Message() == nil {
		return 0
	}
	return c.Message().ID
}
