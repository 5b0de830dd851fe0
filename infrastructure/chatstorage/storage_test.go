package chatstorage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/AzielCF/az-wabridge/domains/contact"
	"github.com/AzielCF/az-wabridge/domains/group"
	"github.com/AzielCF/az-wabridge/domains/thread"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestRepos(t *testing.T) *Repositories {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?_foreign_keys=on", filepath.Join(t.TempDir(), "bridge.db"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	repos := NewRepositories(db)
	require.NoError(t, repos.InitSchema(context.Background()))
	return repos
}

func TestContacts_FindByPhoneMatchesPhoneOrMobile(t *testing.T) {
	ctx := context.Background()
	repos := newTestRepos(t)

	require.NoError(t, repos.Contacts.Create(ctx, &contact.Contact{Name: "Landline", Phone: "+51999"}))
	require.NoError(t, repos.Contacts.Create(ctx, &contact.Contact{Name: "Mobile", Mobile: "51888"}))

	got, err := repos.Contacts.FindByPhone(ctx, "+51999")
	require.NoError(t, err)
	assert.Equal(t, "Landline", got.Name)

	got, err = repos.Contacts.FindByPhone(ctx, "51888")
	require.NoError(t, err)
	assert.Equal(t, "Mobile", got.Name)

	_, err = repos.Contacts.FindByPhone(ctx, "51999")
	assert.ErrorIs(t, err, contact.ErrContactNotFound)

	_, err = repos.Contacts.FindByPhone(ctx, "")
	assert.ErrorIs(t, err, contact.ErrContactNotFound)
}

func TestContacts_EnsureSystemContactIsStable(t *testing.T) {
	ctx := context.Background()
	repos := newTestRepos(t)

	first, err := repos.Contacts.EnsureSystemContact(ctx, contact.SystemKeyGroupGuest, "WhatsApp Group Guest")
	require.NoError(t, err)
	second, err := repos.Contacts.EnsureSystemContact(ctx, contact.SystemKeyGroupGuest, "Other Name")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "WhatsApp Group Guest", second.Name)

	dup := &contact.Contact{Name: "x", SystemKey: contact.SystemKeyGroupGuest}
	assert.ErrorIs(t, repos.Contacts.Create(ctx, dup), contact.ErrDuplicateContact)

	// Regular contacts have no system key and never collide.
	require.NoError(t, repos.Contacts.Create(ctx, &contact.Contact{Name: "a"}))
	require.NoError(t, repos.Contacts.Create(ctx, &contact.Contact{Name: "b"}))
}

func TestGroups_UniqueJIDAndStateTransitions(t *testing.T) {
	ctx := context.Background()
	repos := newTestRepos(t)

	g := &group.Group{JID: "120363@g.us", Name: "WhatsApp Group (120363@g.us)"}
	require.NoError(t, repos.Groups.Create(ctx, g))
	assert.Equal(t, group.StatePending, g.State)

	err := repos.Groups.Create(ctx, &group.Group{JID: "120363@g.us", Name: "again"})
	assert.ErrorIs(t, err, group.ErrDuplicateGroup)

	n, err := repos.Groups.SetState(ctx, []string{g.ID}, group.StatePending, group.StateRejected)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = repos.Groups.SetState(ctx, []string{g.ID}, group.StatePending, group.StateRejected)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	got, err := repos.Groups.GetByJID(ctx, "120363@g.us")
	require.NoError(t, err)
	assert.Equal(t, group.StateRejected, got.State)

	rejected, err := repos.Groups.List(ctx, group.StateRejected)
	require.NoError(t, err)
	assert.Len(t, rejected, 1)

	pending, err := repos.Groups.List(ctx, group.StatePending)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestGroups_UpdateLinksThread(t *testing.T) {
	ctx := context.Background()
	repos := newTestRepos(t)

	g := &group.Group{JID: "1@g.us", Name: "Sales"}
	require.NoError(t, repos.Groups.Create(ctx, g))

	g.State = group.StateAccepted
	g.ThreadID = "thread-1"
	g.IconBase64 = "icon"
	require.NoError(t, repos.Groups.Update(ctx, g))

	got, err := repos.Groups.GetByID(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, "thread-1", got.ThreadID)
	assert.Equal(t, "icon", got.IconBase64)

	missing := &group.Group{ID: "nope", JID: "2@g.us", Name: "x", State: group.StatePending}
	assert.ErrorIs(t, repos.Groups.Update(ctx, missing), group.ErrGroupNotFound)
}

func TestThreads_ExternalKeyIsUnique(t *testing.T) {
	ctx := context.Background()
	repos := newTestRepos(t)

	first := &thread.Thread{Kind: thread.KindDirect, Name: "Ana (WhatsApp)", ExternalKey: "51999"}
	require.NoError(t, repos.Threads.Create(ctx, first, "c-1", "c-1", "op"))

	err := repos.Threads.Create(ctx, &thread.Thread{Kind: thread.KindDirect, Name: "dup", ExternalKey: "51999"})
	assert.ErrorIs(t, err, thread.ErrDuplicateThread)

	// Unlinked threads may coexist.
	require.NoError(t, repos.Threads.Create(ctx, &thread.Thread{Kind: thread.KindDirect, Name: "internal 1"}))
	require.NoError(t, repos.Threads.Create(ctx, &thread.Thread{Kind: thread.KindDirect, Name: "internal 2"}))

	got, err := repos.Threads.FindByExternalKey(ctx, "51999")
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)

	members, err := repos.Threads.ListMembers(ctx, first.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"c-1", "op"}, members)
}

func TestThreads_AddMemberIsIdempotent(t *testing.T) {
	ctx := context.Background()
	repos := newTestRepos(t)

	th := &thread.Thread{Kind: thread.KindGroup, Name: "Sales (1@g.us)", ExternalKey: "1@g.us"}
	require.NoError(t, repos.Threads.Create(ctx, th))

	added, err := repos.Threads.AddMember(ctx, th.ID, "c-1")
	require.NoError(t, err)
	assert.True(t, added)

	added, err = repos.Threads.AddMember(ctx, th.ID, "c-1")
	require.NoError(t, err)
	assert.False(t, added)

	members, err := repos.Threads.ListMembers(ctx, th.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"c-1"}, members)
}

func TestThreads_PostsWithAttachments(t *testing.T) {
	ctx := context.Background()
	repos := newTestRepos(t)

	th := &thread.Thread{Kind: thread.KindDirect, Name: "Ana (WhatsApp)", ExternalKey: "51999"}
	require.NoError(t, repos.Threads.Create(ctx, th))

	for i := 1; i <= 3; i++ {
		p := &thread.Post{ThreadID: th.ID, AuthorID: "c-1", Body: fmt.Sprintf("msg %d", i), Origin: thread.OriginExternal}
		if i == 2 {
			p.Attachments = []thread.Attachment{{FileName: "a.jpg", MimeType: "image/jpeg", Size: 3, ContentBase64: "AAAA"}}
		}
		require.NoError(t, repos.Threads.CreatePost(ctx, p))
		assert.Equal(t, thread.MessageComment, p.MessageType)
	}

	posts, err := repos.Threads.ListPosts(ctx, th.ID, 2)
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, "msg 2", posts[0].Body)
	assert.Equal(t, "msg 3", posts[1].Body)
	require.Len(t, posts[0].Attachments, 1)
	assert.Equal(t, "a.jpg", posts[0].Attachments[0].FileName)

	got, err := repos.Threads.GetByID(ctx, th.ID)
	require.NoError(t, err)
	assert.NotNil(t, got.LastMessageAt)

	err = repos.Threads.CreatePost(ctx, &thread.Post{ThreadID: "missing", Body: "x", Origin: thread.OriginOperator})
	assert.ErrorIs(t, err, thread.ErrThreadNotFound)
}

func TestIsUniqueViolation(t *testing.T) {
	assert.False(t, isUniqueViolation(nil))
	assert.False(t, isUniqueViolation(errors.New("boom")))
	assert.True(t, isUniqueViolation(&pgconn.PgError{Code: "23505"}))
	assert.False(t, isUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.True(t, isUniqueViolation(fmt.Errorf("wrapped: %w", gorm.ErrDuplicatedKey)))
	assert.True(t, isUniqueViolation(errors.New("UNIQUE constraint failed: threads.external_key")))
}
