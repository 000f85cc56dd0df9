package bot

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v4"

	"whitelistbot/internal/config"
	"whitelistbot/internal/metrics"
	"whitelistbot/internal/session"
	"whitelistbot/internal/student"
)

type textHandler func(ctx context.Context, sess *session.Session, chatID int64, msgID int, text string) error

// Bot routes inbound chat events through the per-chat session state
// machine. Event entrypoints (Start, Help, Cancel, Text, Callback) load
// the session, run the matching handler, and persist whatever changed;
// they carry no transport types so tests can drive them directly.
type Bot struct {
	cfg      config.App
	api      Transport
	sessions session.Store
	students *student.Service
	render   *Renderer
	log      *logrus.Logger

	// onText dispatches plain text by the active menu. States absent
	// from the table fall back to re-displaying the main menu.
	onText map[session.Menu]textHandler
}

// New wires the bot core.
func New(cfg config.App, api Transport, sessions session.Store, students *student.Service, log *logrus.Logger) *Bot {
	b := &Bot{
		cfg:      cfg,
		api:      api,
		sessions: sessions,
		students: students,
		render:   NewRenderer(api),
		log:      log,
	}
	b.onText = map[session.Menu]textHandler{
		session.MenuAddStudent:    b.handleAddInput,
		session.MenuEditStudent:   b.handleEditInput,
		session.MenuDeleteStudent: b.handleDeleteInput,
	}
	return b
}

// Start handles /start: main menu when authenticated, otherwise the
// authentication instructions.
func (b *Bot) Start(ctx context.Context, chatID int64) error {
	return b.withSession(ctx, chatID, func(sess *session.Session) error {
		if sess.Authenticated {
			return b.showMainMenu(sess, chatID)
		}
		return b.showAuthPrompt(sess, chatID)
	})
}

// Help handles /help.
func (b *Bot) Help(ctx context.Context, chatID int64) error {
	return b.withSession(ctx, chatID, func(sess *session.Session) error {
		return b.showHelp(sess, chatID)
	})
}

// Cancel handles /cancel: drops the active menu and any pending edit
// target, then returns to the main menu.
func (b *Bot) Cancel(ctx context.Context, chatID int64, msgID int) error {
	return b.withSession(ctx, chatID, func(sess *session.Session) error {
		b.deleteInbound(chatID, msgID)
		sess.Menu = session.MenuNone
		sess.EditingEmail = ""
		if !sess.Authenticated {
			return b.showAuthPrompt(sess, chatID)
		}
		return b.showMainMenu(sess, chatID)
	})
}

// Text handles a plain text message according to the session state.
func (b *Bot) Text(ctx context.Context, chatID int64, msgID int, text string) error {
	text = strings.TrimSpace(text)
	if text == "" || strings.HasPrefix(text, "/") {
		// Unrecognized commands are never treated as menu input.
		return nil
	}
	return b.withSession(ctx, chatID, func(sess *session.Session) error {
		if !sess.Authenticated {
			return b.handleAuthAttempt(sess, chatID, msgID, text)
		}
		if handler, ok := b.onText[sess.Menu]; ok {
			return handler(ctx, sess, chatID, msgID, text)
		}
		// Authenticated but outside any prompt flow: re-display the menu.
		return b.showMainMenu(sess, chatID)
	})
}

// Callback handles an inline button press. Buttons are idempotent menu
// selectors: they move the session between views but never mutate the
// whitelist.
func (b *Bot) Callback(ctx context.Context, chatID int64, action, payload string) error {
	return b.withSession(ctx, chatID, func(sess *session.Session) error {
		if !sess.Authenticated {
			return nil
		}
		switch action {
		case cbMainMenu:
			return b.showMainMenu(sess, chatID)
		case cbStudentList:
			return b.showStudentList(ctx, sess, chatID, 0)
		case cbAddStudent:
			return b.showAddPrompt(sess, chatID)
		case cbEditStudent:
			return b.showEditPrompt(sess, chatID)
		case cbDeleteStudent:
			return b.showDeletePrompt(sess, chatID)
		case cbListPage:
			page, err := strconv.Atoi(payload)
			if err != nil {
				page = 0
			}
			return b.showStudentList(ctx, sess, chatID, page)
		default:
			return nil
		}
	})
}

// handleAuthAttempt compares inbound text against the shared secret. A
// wrong code keeps the session unauthenticated and re-displays the
// authentication prompt.
func (b *Bot) handleAuthAttempt(sess *session.Session, chatID int64, msgID int, text string) error {
	if text != b.cfg.AuthCode {
		return b.showAuthPrompt(sess, chatID)
	}
	b.deleteInbound(chatID, msgID)
	sess.Authenticated = true
	notice := escapeMarkdown("✅ Authentication successful! Welcome to the student whitelist admin.")
	if err := b.render.Show(sess, chatID, notice, nil, false); err != nil {
		return err
	}
	b.pause()
	return b.showMainMenu(sess, chatID)
}

// handleAddInput parses a comma-separated email list and attempts a bulk
// add. Every input is attempted; the report shows both partitions, then
// the list view is displayed.
func (b *Bot) handleAddInput(ctx context.Context, sess *session.Session, chatID int64, msgID int, text string) error {
	b.deleteInbound(chatID, msgID)

	var emails []string
	for _, part := range strings.Split(text, ",") {
		if part = strings.TrimSpace(part); part != "" {
			emails = append(emails, part)
		}
	}
	if len(emails) == 0 {
		if err := b.render.Show(sess, chatID, escapeMarkdown("❌ No valid emails provided. Please try again."), nil, false); err != nil {
			return err
		}
		b.pause()
		return b.showAddPrompt(sess, chatID)
	}

	res := b.students.AddBatch(ctx, emails)
	metrics.StudentOpsTotal.WithLabelValues("add", "ok").Add(float64(len(res.Added)))
	metrics.StudentOpsTotal.WithLabelValues("add", "failed").Add(float64(len(res.Failed)))

	var sb strings.Builder
	sb.WriteString("✅ *Students Added*\n\n")
	if len(res.Added) > 0 {
		sb.WriteString("*Successfully added:*\n")
		for _, rec := range res.Added {
			sb.WriteString("• " + escapeMarkdown(rec.Email) + "\n")
		}
	}
	if len(res.Failed) > 0 {
		sb.WriteString("\n*Errors:*\n")
		for _, reason := range res.Failed {
			sb.WriteString("• " + escapeMarkdown(reason) + "\n")
		}
	}

	if err := b.render.Show(sess, chatID, sb.String(), nil, false); err != nil {
		return err
	}
	b.pause()
	return b.showStudentList(ctx, sess, chatID, 0)
}

// handleEditInput runs the two-step edit flow. Step one captures the
// target email; step two applies the replacement. A failed replacement
// keeps the target so only the new email needs retyping, except when the
// target itself is missing.
func (b *Bot) handleEditInput(ctx context.Context, sess *session.Session, chatID int64, msgID int, text string) error {
	b.deleteInbound(chatID, msgID)

	if sess.EditingEmail == "" {
		return b.showNewEmailPrompt(sess, chatID, student.Normalize(text))
	}

	_, err := b.students.UpdateEmail(ctx, sess.EditingEmail, text)
	metrics.StudentOpsTotal.WithLabelValues("update", outcomeLabel(err)).Inc()
	if err != nil {
		if errB := b.render.Show(sess, chatID, escapeMarkdown(displayError(err)), nil, false); errB != nil {
			return errB
		}
		b.pause()
		if errors.Is(err, student.ErrNotFound) {
			// The captured target does not exist; restart from step one.
			return b.showEditPrompt(sess, chatID)
		}
		return b.showNewEmailPrompt(sess, chatID, sess.EditingEmail)
	}

	sess.EditingEmail = ""
	return b.showStudentList(ctx, sess, chatID, 0)
}

// handleDeleteInput removes an email from the whitelist. Deleting an
// absent email succeeds, so the list view follows either way unless the
// store itself failed.
func (b *Bot) handleDeleteInput(ctx context.Context, sess *session.Session, chatID int64, msgID int, text string) error {
	b.deleteInbound(chatID, msgID)

	err := b.students.Delete(ctx, text)
	metrics.StudentOpsTotal.WithLabelValues("delete", outcomeLabel(err)).Inc()
	if err != nil {
		if errB := b.render.Show(sess, chatID, escapeMarkdown(displayError(err)), nil, false); errB != nil {
			return errB
		}
		b.pause()
		return b.showDeletePrompt(sess, chatID)
	}
	return b.showStudentList(ctx, sess, chatID, 0)
}

// withSession loads the chat session, runs fn, and persists the session
// even when fn failed, so live-message tracking survives handler errors.
func (b *Bot) withSession(ctx context.Context, chatID int64, fn func(sess *session.Session) error) error {
	sess, err := b.sessions.Get(ctx, chatID)
	if err != nil {
		return err
	}
	handlerErr := fn(&sess)
	if err := b.sessions.Put(ctx, chatID, sess); err != nil {
		b.log.WithError(err).WithField("chat", chatID).Error("persist session failed")
		if handlerErr == nil {
			return err
		}
	}
	return handlerErr
}

// deleteInbound removes the user's message best-effort so the chat keeps
// a single admin surface.
func (b *Bot) deleteInbound(chatID int64, msgID int) {
	if msgID == 0 {
		return
	}
	_ = b.api.Delete(telebot.StoredMessage{
		MessageID: strconv.Itoa(msgID),
		ChatID:    chatID,
	})
}

// pause briefly keeps a transient notice on screen before the next view.
func (b *Bot) pause() {
	if b.cfg.SuccessPause > 0 {
		time.Sleep(b.cfg.SuccessPause)
	}
}

// displayError maps domain errors to user-visible text. User-correctable
// failures surface their reason; anything else gets a generic notice.
func displayError(err error) string {
	switch {
	case errors.Is(err, student.ErrInvalidEmail),
		errors.Is(err, student.ErrDuplicateEmail),
		errors.Is(err, student.ErrNotFound):
		return "❌ Error: " + err.Error()
	default:
		return "❌ Something went wrong. Please try again."
	}
}

func outcomeLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, student.ErrInvalidEmail):
		return "invalid"
	case errors.Is(err, student.ErrDuplicateEmail):
		return "conflict"
	case errors.Is(err, student.ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}
