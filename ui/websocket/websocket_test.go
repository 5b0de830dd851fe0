package websocket

import (
	"context"
	"testing"
	"time"

	domainThread "github.com/AzielCF/az-wabridge/domains/thread"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func samplePost() (domainThread.Thread, domainThread.Post) {
	t := domainThread.Thread{ID: "t1", Name: "Ana (WhatsApp)", ExternalKey: "51999"}
	p := domainThread.Post{
		ID:       "p1",
		ThreadID: "t1",
		Body:     "hi",
		Attachments: []domainThread.Attachment{
			{FileName: "a.png", MimeType: "image/png", Size: 3, ContentBase64: "QUJD"},
		},
	}
	return t, p
}

func TestNotifyPost_StripsAttachmentContent(t *testing.T) {
	h := NewHub(nil, "test")
	th, p := samplePost()

	h.NotifyPost(th, p)

	require.Len(t, h.broadcast, 1)
	msg := <-h.broadcast
	assert.Equal(t, CodeNewPost, msg.Code)
	assert.Equal(t, "t1", msg.ThreadID)

	item, ok := msg.Result.(PostFeedItem)
	require.True(t, ok)
	assert.Equal(t, "Ana (WhatsApp)", item.ThreadName)
	require.Len(t, item.Post.Attachments, 1)
	assert.Empty(t, item.Post.Attachments[0].ContentBase64)
	assert.Equal(t, int64(3), item.Post.Attachments[0].Size)

	// The caller's post is untouched.
	assert.Equal(t, "QUJD", p.Attachments[0].ContentBase64)
}

func TestNotifyPost_DoesNotBlockWhenQueueIsFull(t *testing.T) {
	h := NewHub(nil, "test")
	th, p := samplePost()

	for i := 0; i < broadcastBuffer+10; i++ {
		h.NotifyPost(th, p)
	}
	assert.Len(t, h.broadcast, broadcastBuffer)
}

type stubThreads struct {
	domainThread.IThreadUsecase
	limit int
}

func (s *stubThreads) ListPosts(ctx context.Context, threadID string, limit int) ([]domainThread.Post, error) {
	s.limit = limit
	if threadID != "t1" {
		return nil, domainThread.ErrThreadNotFound
	}
	_, p := samplePost()
	return []domainThread.Post{p}, nil
}

func TestFetchPosts(t *testing.T) {
	threads := &stubThreads{}

	msg := fetchPosts(threads, clientRequest{Code: CodeFetchPost, ThreadID: "t1", Limit: 1000})
	assert.Equal(t, CodeListPosts, msg.Code)
	assert.Equal(t, 50, threads.limit)
	posts, ok := msg.Result.([]domainThread.Post)
	require.True(t, ok)
	require.Len(t, posts, 1)
	assert.Empty(t, posts[0].Attachments[0].ContentBase64)

	msg = fetchPosts(threads, clientRequest{Code: CodeFetchPost, ThreadID: "nope"})
	assert.Nil(t, msg.Result)
	assert.Equal(t, domainThread.ErrThreadNotFound.Error(), msg.Message)
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	h := NewHub(nil, "test")
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(done)
	}()

	th, p := samplePost()
	h.NotifyPost(th, p)
	cancel()
	<-done
}

func TestHub_HandlersDoNotBlockAfterStop(t *testing.T) {
	h := NewHub(nil, "test")
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(stopped)
	}()
	cancel()
	<-stopped

	finished := make(chan bool)
	go func() {
		joined := h.join(nil)
		h.leave(nil)
		for i := 0; i < broadcastBuffer+1; i++ {
			h.reply(nil, BroadcastMessage{Code: CodeListPosts})
		}
		finished <- joined
	}()

	select {
	case joined := <-finished:
		assert.False(t, joined)
	case <-time.After(2 * time.Second):
		t.Fatal("connection handler blocked on a stopped hub")
	}
}
