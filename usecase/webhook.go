package usecase

import (
	"context"
	"errors"
	"time"

	domainCache "github.com/AzielCF/az-wabridge/domains/cache"
	domainContact "github.com/AzielCF/az-wabridge/domains/contact"
	domainGroup "github.com/AzielCF/az-wabridge/domains/group"
	domainThread "github.com/AzielCF/az-wabridge/domains/thread"
	domainWebhook "github.com/AzielCF/az-wabridge/domains/webhook"
	"github.com/AzielCF/az-wabridge/pkg/msgworker"
	"github.com/sirupsen/logrus"
)

type serviceWebhook struct {
	normalizer domainWebhook.INormalizer
	identity   domainContact.IIdentityResolver
	groups     domainGroup.IGroupUsecase
	threads    domainThread.IThreadUsecase

	pool      *msgworker.Pool
	dedupe    domainCache.KeyStore
	dedupeTTL time.Duration
}

type WebhookOption func(*serviceWebhook)

// WithWorkerPool serializes processing per chat on pool.
func WithWorkerPool(pool *msgworker.Pool) WebhookOption {
	return func(s *serviceWebhook) { s.pool = pool }
}

// WithDedupe drops redeliveries of the same message id within ttl.
func WithDedupe(store domainCache.KeyStore, ttl time.Duration) WebhookOption {
	return func(s *serviceWebhook) {
		s.dedupe = store
		s.dedupeTTL = ttl
	}
}

func NewWebhookService(
	normalizer domainWebhook.INormalizer,
	identity domainContact.IIdentityResolver,
	groups domainGroup.IGroupUsecase,
	threads domainThread.IThreadUsecase,
	opts ...WebhookOption,
) domainWebhook.IWebhookUsecase {
	s := &serviceWebhook{
		normalizer: normalizer,
		identity:   identity,
		groups:     groups,
		threads:    threads,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (service *serviceWebhook) Handle(ctx context.Context, raw []byte) domainWebhook.Outcome {
	msg, err := service.normalizer.Normalize(ctx, raw)
	if err != nil {
		var rejection *domainWebhook.Rejection
		if errors.As(err, &rejection) {
			logrus.Debugf("[WEBHOOK] %s", rejection.Error())
			return rejection.Outcome()
		}
		logrus.WithError(err).Error("[WEBHOOK] normalization failed")
		return domainWebhook.Outcome{Status: domainWebhook.StatusError, Reason: domainWebhook.ReasonBadJSON}
	}

	claimed, dup := service.claim(ctx, msg.MessageID)
	if dup {
		return domainWebhook.Outcome{Status: domainWebhook.StatusIgnored, Reason: domainWebhook.ReasonDuplicate}
	}

	results := make(chan domainWebhook.Outcome, 1)
	run := func(ctx context.Context) error {
		results <- service.process(ctx, msg)
		return nil
	}

	if service.pool == nil {
		_ = run(ctx)
	} else if err := service.pool.Run(ctx, msgworker.Job{Key: msg.RemoteJID, Handler: run}); err != nil {
		if !errors.Is(err, msgworker.ErrQueueFull) && !errors.Is(err, msgworker.ErrPoolStopped) {
			logrus.WithError(err).Errorf("[WEBHOOK] processing %s did not complete", msg.RemoteJID)
			return domainWebhook.Outcome{Status: domainWebhook.StatusError, Reason: domainWebhook.ReasonIngest}
		}
		logrus.WithError(err).Warnf("[WEBHOOK] processing %s inline", msg.RemoteJID)
		_ = run(ctx)
	}

	outcome := <-results
	if claimed && outcome.Status == domainWebhook.StatusError {
		// Let a redelivery try again.
		service.release(ctx, msg.MessageID)
	}
	return outcome
}

func (service *serviceWebhook) process(ctx context.Context, msg domainWebhook.InboundMessage) domainWebhook.Outcome {
	var grp *domainGroup.Group
	if msg.IsGroup {
		g, gate, err := service.groups.Gate(ctx, msg.RemoteJID)
		if err != nil {
			logrus.WithError(err).Errorf("[WEBHOOK] group gate failed for %s", msg.RemoteJID)
			return domainWebhook.Outcome{Status: domainWebhook.StatusError, Reason: domainWebhook.ReasonGroupGate}
		}
		switch gate {
		case domainGroup.GatePending:
			return domainWebhook.Outcome{Status: domainWebhook.StatusPendingApproval}
		case domainGroup.GateBlocked:
			return domainWebhook.Outcome{Status: domainWebhook.StatusIgnored, Reason: domainWebhook.ReasonGroupNotAccepted}
		}
		grp = &g
	}

	resolution, err := service.identity.Resolve(ctx, domainContact.ResolveRequest{
		SenderJID: msg.SenderJID,
		RemoteJID: msg.RemoteJID,
		IsGroup:   msg.IsGroup,
		PushName:  msg.DisplayName,
	})
	if err != nil {
		logrus.WithError(err).Errorf("[WEBHOOK] identity resolution failed for %s", msg.SenderJID)
		return domainWebhook.Outcome{Status: domainWebhook.StatusError, Reason: domainWebhook.ReasonIdentity}
	}

	msg.TextBody = resolution.Attribute(msg.TextBody, msg.Media != nil)
	post, err := service.threads.Ingest(ctx, *resolution.Contact, msg, grp)
	if err != nil {
		logrus.WithError(err).Errorf("[WEBHOOK] failed to ingest message from %s", msg.RemoteJID)
		return domainWebhook.Outcome{Status: domainWebhook.StatusError, Reason: domainWebhook.ReasonIngest}
	}

	logrus.Infof("[WEBHOOK] message %s from %s posted to thread %s", msg.MessageID, msg.RemoteJID, post.ThreadID)
	return domainWebhook.Outcome{Status: domainWebhook.StatusSuccess}
}

// claim marks the message id as seen. dup is true when it already was.
func (service *serviceWebhook) claim(ctx context.Context, messageID string) (claimed, dup bool) {
	if service.dedupe == nil || messageID == "" {
		return false, false
	}
	ok, err := service.dedupe.SetNX(ctx, "dedupe:"+messageID, "1", service.dedupeTTL)
	if err != nil {
		logrus.WithError(err).Warn("[WEBHOOK] dedupe store unavailable, processing anyway")
		return false, false
	}
	return ok, !ok
}

func (service *serviceWebhook) release(ctx context.Context, messageID string) {
	if err := service.dedupe.Delete(ctx, "dedupe:"+messageID); err != nil {
		logrus.WithError(err).Warn("[WEBHOOK] failed to release dedupe key")
	}
}
