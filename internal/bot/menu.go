package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/telebot.v4"

	"whitelistbot/internal/session"
)

// Callback uniques routed by the inline keyboards.
const (
	cbMainMenu      = "main_menu"
	cbStudentList   = "student_list"
	cbAddStudent    = "add_student"
	cbEditStudent   = "edit_student"
	cbDeleteStudent = "delete_student"
	cbListPage      = "student_page"
)

func (b *Bot) showMainMenu(sess *session.Session, chatID int64) error {
	text := "🤖 *Student Whitelist Admin*\n\n" + escapeMarkdown("Select an option:")

	markup := &telebot.ReplyMarkup{}
	markup.Inline(
		markup.Row(markup.Data("📋 Student List", cbStudentList)),
	)

	if err := b.render.Show(sess, chatID, text, markup, false); err != nil {
		return err
	}
	sess.Menu = session.MenuMain
	return nil
}

func (b *Bot) showAuthPrompt(sess *session.Session, chatID int64) error {
	text := "🔒 *Authentication Required*\n\n" +
		escapeMarkdown("Send the authentication code to access the admin panel.\n\nType /help for more information.")
	return b.render.Show(sess, chatID, text, nil, false)
}

func (b *Bot) showHelp(sess *session.Session, chatID int64) error {
	text := "📖 *Help*\n\n" + escapeMarkdown(
		"This bot manages the student whitelist.\n\n"+
			"Commands:\n"+
			"/start - Start the bot\n"+
			"/cancel - Cancel the current operation\n"+
			"/help - Show this help message\n\n"+
			"To authenticate, send the authentication code provided by the administrator.")

	var markup *telebot.ReplyMarkup
	if sess.Authenticated {
		markup = &telebot.ReplyMarkup{}
		markup.Inline(markup.Row(markup.Data("🔙 Back to Main Menu", cbMainMenu)))
	}
	return b.render.Show(sess, chatID, text, markup, false)
}

// showStudentList renders one page of the whitelist in plain text so the
// emails can be copied straight out of the chat.
func (b *Bot) showStudentList(ctx context.Context, sess *session.Session, chatID int64, page int) error {
	students, err := b.students.List(ctx)
	if err != nil {
		b.log.WithError(err).Error("list students failed")
		markup := &telebot.ReplyMarkup{}
		markup.Inline(
			markup.Row(markup.Data("🔄 Try Again", cbStudentList)),
			markup.Row(markup.Data("🔙 Back to Main Menu", cbMainMenu)),
		)
		return b.render.Show(sess, chatID, escapeMarkdown("❌ Failed to load the student list. Please try again."), markup, false)
	}

	if len(students) == 0 {
		markup := &telebot.ReplyMarkup{}
		markup.Inline(
			markup.Row(markup.Data("➕ Add Student", cbAddStudent)),
			markup.Row(markup.Data("🔙 Back to Main Menu", cbMainMenu)),
		)
		if err := b.render.Show(sess, chatID, "📋 Student List\n\nNo students found.", markup, true); err != nil {
			return err
		}
		sess.Menu = session.MenuStudentList
		sess.ListPage = 0
		return nil
	}

	lines := make([]string, len(students))
	for i, rec := range students {
		lines[i] = fmt.Sprintf("%d. %s\n", i+1, rec.Email)
	}
	pg := paginateLines(lines, maxMessageLength-headerAllowance, page)

	var sb strings.Builder
	sb.WriteString("📋 Student List\n\n")
	fmt.Fprintf(&sb, "Total: %d student%s\n", pg.Total, plural(pg.Total))
	if pg.Pages > 1 {
		fmt.Fprintf(&sb, "Page %d of %d\n", pg.Index+1, pg.Pages)
	}
	sb.WriteString("\n")
	for _, line := range lines[pg.Start:pg.End] {
		sb.WriteString(line)
	}

	markup := &telebot.ReplyMarkup{}
	rows := make([]telebot.Row, 0, 4)
	if pg.Pages > 1 {
		nav := make([]telebot.Btn, 0, 2)
		if pg.Index > 0 {
			nav = append(nav, markup.Data("◀️ Previous", cbListPage, strconv.Itoa(pg.Index-1)))
		}
		if pg.Index < pg.Pages-1 {
			nav = append(nav, markup.Data("Next ▶️", cbListPage, strconv.Itoa(pg.Index+1)))
		}
		rows = append(rows, markup.Row(nav...))
	}
	rows = append(rows,
		markup.Row(markup.Data("➕ Add Student", cbAddStudent)),
		markup.Row(
			markup.Data("✏️ Edit Student", cbEditStudent),
			markup.Data("🗑 Delete Student", cbDeleteStudent),
		),
		markup.Row(markup.Data("🔙 Back to Main Menu", cbMainMenu)),
	)
	markup.Inline(rows...)

	if err := b.render.Show(sess, chatID, sb.String(), markup, true); err != nil {
		return err
	}
	sess.Menu = session.MenuStudentList
	sess.ListPage = pg.Index
	return nil
}

func (b *Bot) showAddPrompt(sess *session.Session, chatID int64) error {
	text := "➕ *Add Student*\n\n" + escapeMarkdown(
		"Enter email address(es):\n\n"+
			"• Single student: enter one email\n"+
			"• Bulk: enter multiple emails separated by commas\n\n"+
			"Type /cancel to cancel.")

	if err := b.render.Show(sess, chatID, text, backToListMarkup(), false); err != nil {
		return err
	}
	sess.Menu = session.MenuAddStudent
	return nil
}

func (b *Bot) showEditPrompt(sess *session.Session, chatID int64) error {
	text := "✏️ *Edit Student*\n\n" +
		escapeMarkdown("Enter the email of the student you want to edit:\n\nType /cancel to cancel.")

	if err := b.render.Show(sess, chatID, text, backToListMarkup(), false); err != nil {
		return err
	}
	sess.Menu = session.MenuEditStudent
	sess.EditingEmail = ""
	return nil
}

func (b *Bot) showNewEmailPrompt(sess *session.Session, chatID int64, oldEmail string) error {
	text := "✏️ *Edit Student*\n\n" +
		escapeMarkdown("Current email: ") + escapeMarkdown(oldEmail) + "\n\n" +
		escapeMarkdown("Enter the new email address:\n\nType /cancel to cancel.")

	if err := b.render.Show(sess, chatID, text, backToListMarkup(), false); err != nil {
		return err
	}
	sess.Menu = session.MenuEditStudent
	sess.EditingEmail = oldEmail
	return nil
}

func (b *Bot) showDeletePrompt(sess *session.Session, chatID int64) error {
	text := "🗑 *Delete Student*\n\n" +
		escapeMarkdown("Enter the email of the student you want to delete:\n\nType /cancel to cancel.")

	if err := b.render.Show(sess, chatID, text, backToListMarkup(), false); err != nil {
		return err
	}
	sess.Menu = session.MenuDeleteStudent
	return nil
}

func backToListMarkup() *telebot.ReplyMarkup {
	markup := &telebot.ReplyMarkup{}
	markup.Inline(markup.Row(markup.Data("🔙 Back", cbStudentList)))
	return markup
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
