package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	coreconfig "github.com/AzielCF/az-wabridge/core/config"
	domainContact "github.com/AzielCF/az-wabridge/domains/contact"
	domainEvents "github.com/AzielCF/az-wabridge/domains/events"
	domainGateway "github.com/AzielCF/az-wabridge/domains/gateway"
	domainGroup "github.com/AzielCF/az-wabridge/domains/group"
	domainThread "github.com/AzielCF/az-wabridge/domains/thread"
	domainWebhook "github.com/AzielCF/az-wabridge/domains/webhook"
	"github.com/AzielCF/az-wabridge/infrastructure/chatstorage"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type sentText struct {
	Phone string
	Text  string
}

// fakeGateway records outbound calls and serves canned fetch results.
type fakeGateway struct {
	mu          sync.Mutex
	texts       []sentText
	media       []domainGateway.MediaRequest
	mediaB64    string
	mediaFetch  []json.RawMessage
	pictures    map[string]string
	pictureAsks []string
	groups      []domainGateway.Group
	sendErr     error
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{pictures: map[string]string{}}
}

func (f *fakeGateway) SendText(ctx context.Context, phone, text string) (domainGateway.SendResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return domainGateway.SendResult{}, f.sendErr
	}
	f.texts = append(f.texts, sentText{Phone: phone, Text: text})
	return domainGateway.SendResult{MessageID: fmt.Sprintf("out-%d", len(f.texts))}, nil
}

func (f *fakeGateway) SendMedia(ctx context.Context, req domainGateway.MediaRequest) (domainGateway.SendResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return domainGateway.SendResult{}, f.sendErr
	}
	f.media = append(f.media, req)
	return domainGateway.SendResult{}, nil
}

func (f *fakeGateway) FetchMediaBase64(ctx context.Context, envelope json.RawMessage) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mediaFetch = append(f.mediaFetch, envelope)
	return f.mediaB64
}

func (f *fakeGateway) FetchProfilePicture(ctx context.Context, jid string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pictureAsks = append(f.pictureAsks, jid)
	return f.pictures[jid]
}

func (f *fakeGateway) TestConnection(ctx context.Context) domainGateway.ConnectionResult {
	return domainGateway.ConnectionResult{Success: true, Message: "Connection Successful! Instance State: open"}
}

func (f *fakeGateway) FetchAllGroups(ctx context.Context) []domainGateway.Group {
	return f.groups
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []domainEvents.Envelope
	keys   []string
}

func (p *recordingPublisher) Publish(ctx context.Context, key string, msg domainEvents.Envelope) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keys = append(p.keys, key)
	p.events = append(p.events, msg)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) count(key string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, k := range p.keys {
		if k == key {
			n++
		}
	}
	return n
}

type harness struct {
	repos     *chatstorage.Repositories
	gateway   *fakeGateway
	publisher *recordingPublisher
	identity  domainContact.IIdentityResolver
	groups    domainGroup.IGroupUsecase
	threads   domainThread.IThreadUsecase
	webhook   domainWebhook.IWebhookUsecase
}

func testConfig() *coreconfig.Config {
	return &coreconfig.Config{
		Bridge: coreconfig.BridgeConfig{
			OperatorName: "Operator",
			GuestName:    "WhatsApp Group Guest",
			ContactTTL:   time.Minute,
			DedupeTTL:    time.Minute,
		},
		Events: coreconfig.EventsConfig{Producer: "az-wabridge/test"},
	}
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000", filepath.Join(t.TempDir(), "bridge.db"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func newHarness(t *testing.T, opts ...WebhookOption) *harness {
	t.Helper()

	db := openTestDB(t)
	repos := chatstorage.NewRepositories(db)
	require.NoError(t, repos.InitSchema(context.Background()))

	cfg := testConfig()
	gw := newFakeGateway()
	pub := &recordingPublisher{}

	h := &harness{repos: repos, gateway: gw, publisher: pub}
	h.identity = NewIdentityService(repos.Contacts, gw, nil, cfg.Bridge)
	h.groups = NewGroupService(repos.Groups, repos.Threads, gw)
	h.threads = NewThreadService(repos.Threads, repos.Contacts, gw, pub, cfg)
	h.webhook = NewWebhookService(NewInboundNormalizer(gw), h.identity, h.groups, h.threads, opts...)
	return h
}

// upsert builds a messages.upsert payload around the given message body.
func upsert(t *testing.T, key map[string]any, pushName string, message map[string]any) []byte {
	t.Helper()
	raw, err := json.Marshal(map[string]any{
		"event":    "messages.upsert",
		"instance": "Odoo",
		"data": map[string]any{
			"key":      key,
			"pushName": pushName,
			"message":  message,
		},
	})
	require.NoError(t, err)
	return raw
}

func directKey(number, id string) map[string]any {
	return map[string]any{"remoteJid": number + "@s.whatsapp.net", "fromMe": false, "id": id}
}

func groupKey(groupJID, participant, id string) map[string]any {
	return map[string]any{"remoteJid": groupJID, "fromMe": false, "id": id, "participant": participant}
}

func (h *harness) threadByKey(t *testing.T, key string) *domainThread.Thread {
	t.Helper()
	th, err := h.repos.Threads.FindByExternalKey(context.Background(), key)
	require.NoError(t, err)
	return th
}

func (h *harness) posts(t *testing.T, threadID string) []domainThread.Post {
	t.Helper()
	posts, err := h.repos.Threads.ListPosts(context.Background(), threadID, 100)
	require.NoError(t, err)
	return posts
}

var errGatewayDown = errors.New("gateway down")
