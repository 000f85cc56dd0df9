package bot

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"whitelistbot/internal/config"
	"whitelistbot/internal/session"
	"whitelistbot/internal/student"
)

// memStore is an in-memory student.Store for state machine tests.
type memStore struct {
	records []student.Record
}

func (m *memStore) List(ctx context.Context) ([]student.Record, error) {
	out := make([]student.Record, len(m.records))
	copy(out, m.records)
	return out, nil
}

func (m *memStore) Insert(ctx context.Context, email string) (student.Record, error) {
	for _, rec := range m.records {
		if rec.Email == email {
			return student.Record{}, fmt.Errorf("%w: %s", student.ErrDuplicateEmail, email)
		}
	}
	rec := student.Record{ID: strconv.Itoa(len(m.records) + 1), Email: email, CreatedAt: time.Now(), UpdatedAt: time.Now()}
	m.records = append([]student.Record{rec}, m.records...)
	return rec, nil
}

func (m *memStore) Delete(ctx context.Context, email string) error {
	for i, rec := range m.records {
		if rec.Email == email {
			m.records = append(m.records[:i], m.records[i+1:]...)
			return nil
		}
	}
	return nil
}

func (m *memStore) UpdateEmail(ctx context.Context, oldEmail, newEmail string) (student.Record, error) {
	for _, rec := range m.records {
		if rec.Email == newEmail {
			return student.Record{}, fmt.Errorf("%w: %s", student.ErrDuplicateEmail, newEmail)
		}
	}
	for i, rec := range m.records {
		if rec.Email == oldEmail {
			m.records[i].Email = newEmail
			return m.records[i], nil
		}
	}
	return student.Record{}, fmt.Errorf("%w: %s", student.ErrNotFound, oldEmail)
}

func (m *memStore) emails() []string {
	out := make([]string, len(m.records))
	for i, rec := range m.records {
		out[i] = rec.Email
	}
	return out
}

const (
	testChat int64 = 100
	testCode       = "s3cret"
)

func newTestBot(t *testing.T) (*Bot, *fakeTransport, *memStore, session.Store) {
	t.Helper()
	api := &fakeTransport{}
	store := &memStore{}
	sessions := session.NewMemory()
	log := logrus.New()
	log.SetOutput(io.Discard)
	cfg := config.App{AuthCode: testCode}
	return New(cfg, api, sessions, student.NewService(store), log), api, store, sessions
}

func currentSession(t *testing.T, sessions session.Store) session.Session {
	t.Helper()
	sess, err := sessions.Get(context.Background(), testChat)
	require.NoError(t, err)
	return sess
}

func lastRender(t *testing.T, api *fakeTransport) transportCall {
	t.Helper()
	var last transportCall
	for _, call := range api.sends {
		last = call
	}
	for _, call := range api.edits {
		last = call
	}
	return last
}

// authenticate drives a session through the auth handshake.
func authenticate(t *testing.T, b *Bot) {
	t.Helper()
	require.NoError(t, b.Text(context.Background(), testChat, 1, testCode))
}

func TestAuthentication(t *testing.T) {
	ctx := context.Background()

	t.Run("wrong code keeps session unauthenticated", func(t *testing.T) {
		b, api, _, sessions := newTestBot(t)
		require.NoError(t, b.Text(ctx, testChat, 1, "not-the-code"))

		sess := currentSession(t, sessions)
		assert.False(t, sess.Authenticated)
		assert.Contains(t, lastRender(t, api).Text, "Authentication Required")
	})

	t.Run("correct code authenticates and shows main menu", func(t *testing.T) {
		b, api, _, sessions := newTestBot(t)
		require.NoError(t, b.Text(ctx, testChat, 1, testCode))

		sess := currentSession(t, sessions)
		assert.True(t, sess.Authenticated)
		assert.Equal(t, session.MenuMain, sess.Menu)
		assert.Contains(t, lastRender(t, api).Text, "Student Whitelist Admin")
		// The secret message is cleared from the chat.
		assert.Contains(t, api.deletes, 1)
	})

	t.Run("commands are never treated as the code", func(t *testing.T) {
		b, _, _, sessions := newTestBot(t)
		require.NoError(t, b.Text(ctx, testChat, 1, "/unknown"))
		assert.False(t, currentSession(t, sessions).Authenticated)
	})
}

func TestSingleLiveMessage(t *testing.T) {
	ctx := context.Background()
	b, api, _, sessions := newTestBot(t)

	authenticate(t, b)
	require.NoError(t, b.Callback(ctx, testChat, cbStudentList, ""))
	require.NoError(t, b.Callback(ctx, testChat, cbAddStudent, ""))
	require.NoError(t, b.Text(ctx, testChat, 2, "a@b.com"))
	require.NoError(t, b.Callback(ctx, testChat, cbMainMenu, ""))

	// One send for the very first view; everything after edits in place.
	assert.Len(t, api.sends, 1)
	sess := currentSession(t, sessions)
	assert.Equal(t, api.sends[0].MessageID, sess.LastMessageID)
}

func TestAddFlow(t *testing.T) {
	ctx := context.Background()

	t.Run("bulk add partitions and returns to list", func(t *testing.T) {
		b, api, store, sessions := newTestBot(t)
		authenticate(t, b)
		require.NoError(t, b.Callback(ctx, testChat, cbStudentList, ""))
		require.NoError(t, b.Callback(ctx, testChat, cbAddStudent, ""))
		assert.Equal(t, session.MenuAddStudent, currentSession(t, sessions).Menu)

		require.NoError(t, b.Text(ctx, testChat, 5, "a@b.com, bad-email, C@D.com, a@b.com"))

		assert.ElementsMatch(t, []string{"a@b.com", "c@d.com"}, store.emails())
		sess := currentSession(t, sessions)
		assert.Equal(t, session.MenuStudentList, sess.Menu)
		// List view is plain text with the emails verbatim.
		last := lastRender(t, api)
		assert.False(t, last.Markdown)
		assert.Contains(t, last.Text, "a@b.com")
	})

	t.Run("empty input re-prompts without leaving the state", func(t *testing.T) {
		b, _, store, sessions := newTestBot(t)
		authenticate(t, b)
		require.NoError(t, b.Callback(ctx, testChat, cbAddStudent, ""))

		require.NoError(t, b.Text(ctx, testChat, 5, " , ,, "))

		assert.Empty(t, store.emails())
		assert.Equal(t, session.MenuAddStudent, currentSession(t, sessions).Menu)
	})
}

func TestEditFlow(t *testing.T) {
	ctx := context.Background()

	t.Run("two-step edit replaces the email", func(t *testing.T) {
		b, _, store, sessions := newTestBot(t)
		authenticate(t, b)
		require.NoError(t, b.Callback(ctx, testChat, cbAddStudent, ""))
		require.NoError(t, b.Text(ctx, testChat, 2, "a@b.com"))

		require.NoError(t, b.Callback(ctx, testChat, cbEditStudent, ""))
		require.NoError(t, b.Text(ctx, testChat, 3, "A@B.com"))
		sess := currentSession(t, sessions)
		assert.Equal(t, "a@b.com", sess.EditingEmail)

		require.NoError(t, b.Text(ctx, testChat, 4, "c@d.com"))
		sess = currentSession(t, sessions)
		assert.Empty(t, sess.EditingEmail)
		assert.Equal(t, session.MenuStudentList, sess.Menu)
		assert.Equal(t, []string{"c@d.com"}, store.emails())
	})

	t.Run("failed replacement preserves the target", func(t *testing.T) {
		b, _, store, sessions := newTestBot(t)
		authenticate(t, b)
		require.NoError(t, b.Callback(ctx, testChat, cbAddStudent, ""))
		require.NoError(t, b.Text(ctx, testChat, 2, "a@b.com, c@d.com"))

		require.NoError(t, b.Callback(ctx, testChat, cbEditStudent, ""))
		require.NoError(t, b.Text(ctx, testChat, 3, "a@b.com"))
		// Replacement collides with an existing record.
		require.NoError(t, b.Text(ctx, testChat, 4, "c@d.com"))

		sess := currentSession(t, sessions)
		assert.Equal(t, "a@b.com", sess.EditingEmail)
		assert.Equal(t, session.MenuEditStudent, sess.Menu)
		assert.ElementsMatch(t, []string{"a@b.com", "c@d.com"}, store.emails())
	})

	t.Run("missing target restarts from step one", func(t *testing.T) {
		b, _, _, sessions := newTestBot(t)
		authenticate(t, b)
		require.NoError(t, b.Callback(ctx, testChat, cbEditStudent, ""))
		require.NoError(t, b.Text(ctx, testChat, 3, "ghost@b.com"))
		require.NoError(t, b.Text(ctx, testChat, 4, "c@d.com"))

		sess := currentSession(t, sessions)
		assert.Empty(t, sess.EditingEmail)
		assert.Equal(t, session.MenuEditStudent, sess.Menu)
	})
}

func TestDeleteFlow(t *testing.T) {
	ctx := context.Background()
	b, _, store, sessions := newTestBot(t)
	authenticate(t, b)
	require.NoError(t, b.Callback(ctx, testChat, cbAddStudent, ""))
	require.NoError(t, b.Text(ctx, testChat, 2, "a@b.com"))

	require.NoError(t, b.Callback(ctx, testChat, cbDeleteStudent, ""))
	require.NoError(t, b.Text(ctx, testChat, 3, " A@B.COM "))

	assert.Empty(t, store.emails())
	assert.Equal(t, session.MenuStudentList, currentSession(t, sessions).Menu)

	// Deleting a missing email is not an error and still shows the list.
	require.NoError(t, b.Callback(ctx, testChat, cbDeleteStudent, ""))
	require.NoError(t, b.Text(ctx, testChat, 4, "a@b.com"))
	assert.Equal(t, session.MenuStudentList, currentSession(t, sessions).Menu)
}

func TestCancel(t *testing.T) {
	ctx := context.Background()
	b, _, _, sessions := newTestBot(t)
	authenticate(t, b)
	require.NoError(t, b.Callback(ctx, testChat, cbEditStudent, ""))
	require.NoError(t, b.Text(ctx, testChat, 3, "a@b.com"))

	require.NoError(t, b.Cancel(ctx, testChat, 4))

	sess := currentSession(t, sessions)
	assert.Equal(t, session.MenuMain, sess.Menu)
	assert.Empty(t, sess.EditingEmail)
}

func TestCallbacks(t *testing.T) {
	ctx := context.Background()

	t.Run("ignored while unauthenticated", func(t *testing.T) {
		b, api, _, sessions := newTestBot(t)
		require.NoError(t, b.Callback(ctx, testChat, cbStudentList, ""))
		assert.Equal(t, session.MenuNone, currentSession(t, sessions).Menu)
		assert.Empty(t, api.sends)
	})

	t.Run("pagination clamps out-of-range pages", func(t *testing.T) {
		b, _, _, sessions := newTestBot(t)
		authenticate(t, b)
		require.NoError(t, b.Callback(ctx, testChat, cbAddStudent, ""))
		require.NoError(t, b.Text(ctx, testChat, 2, "a@b.com"))

		require.NoError(t, b.Callback(ctx, testChat, cbListPage, "42"))

		sess := currentSession(t, sessions)
		assert.Equal(t, session.MenuStudentList, sess.Menu)
		assert.Equal(t, 0, sess.ListPage)
	})

	t.Run("unknown action is ignored", func(t *testing.T) {
		b, _, _, sessions := newTestBot(t)
		authenticate(t, b)
		before := currentSession(t, sessions)
		require.NoError(t, b.Callback(ctx, testChat, "bogus", ""))
		assert.Equal(t, before, currentSession(t, sessions))
	})
}

func TestStrayTextShowsMainMenu(t *testing.T) {
	ctx := context.Background()
	b, api, _, sessions := newTestBot(t)
	authenticate(t, b)
	require.NoError(t, b.Callback(ctx, testChat, cbStudentList, ""))

	require.NoError(t, b.Text(ctx, testChat, 9, "hello there"))

	assert.Equal(t, session.MenuMain, currentSession(t, sessions).Menu)
	assert.Contains(t, lastRender(t, api).Text, "Student Whitelist Admin")
}
