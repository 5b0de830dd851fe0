package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	coreconfig "github.com/AzielCF/az-wabridge/core/config"
	domainContact "github.com/AzielCF/az-wabridge/domains/contact"
	domainEvents "github.com/AzielCF/az-wabridge/domains/events"
	domainGateway "github.com/AzielCF/az-wabridge/domains/gateway"
	domainGroup "github.com/AzielCF/az-wabridge/domains/group"
	domainThread "github.com/AzielCF/az-wabridge/domains/thread"
	domainWebhook "github.com/AzielCF/az-wabridge/domains/webhook"
	"github.com/AzielCF/az-wabridge/pkg/chatmedia"
	pkgError "github.com/AzielCF/az-wabridge/pkg/error"
	"github.com/AzielCF/az-wabridge/pkg/utils"
	"github.com/AzielCF/az-wabridge/validations"
	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"
)

type serviceThread struct {
	threads      domainThread.IThreadRepository
	contacts     domainContact.IContactRepository
	gateway      domainGateway.IGatewayClient
	publisher    domainEvents.IPublisher
	producer     string
	operatorName string

	listenersMu sync.RWMutex
	listeners   []domainThread.PostListener
}

func NewThreadService(
	threads domainThread.IThreadRepository,
	contacts domainContact.IContactRepository,
	gateway domainGateway.IGatewayClient,
	publisher domainEvents.IPublisher,
	cfg *coreconfig.Config,
) domainThread.IThreadUsecase {
	operatorName := strings.TrimSpace(cfg.Bridge.OperatorName)
	if operatorName == "" {
		operatorName = "Operator"
	}
	return &serviceThread{
		threads:      threads,
		contacts:     contacts,
		gateway:      gateway,
		publisher:    publisher,
		producer:     cfg.Events.Producer,
		operatorName: operatorName,
	}
}

func (service *serviceThread) Subscribe(listener domainThread.PostListener) {
	service.listenersMu.Lock()
	defer service.listenersMu.Unlock()
	service.listeners = append(service.listeners, listener)
}

// --- INBOUND ---

// Ingest posts a normalized WhatsApp message into the chat's thread,
// creating the thread on first contact.
func (service *serviceThread) Ingest(ctx context.Context, author domainContact.Contact, msg domainWebhook.InboundMessage, grp *domainGroup.Group) (domainThread.Post, error) {
	candidate := &domainThread.Thread{}
	if msg.IsGroup {
		groupName := msg.RemoteJID
		if grp != nil {
			groupName = grp.Name
			candidate.AvatarBase64 = grp.IconBase64
		}
		candidate.Kind = domainThread.KindGroup
		candidate.ExternalKey = msg.RemoteJID
		candidate.Name = fmt.Sprintf("%s (%s)", groupName, msg.RemoteJID)
	} else {
		candidate.Kind = domainThread.KindDirect
		candidate.ExternalKey = utils.BareNumber(msg.RemoteJID)
		candidate.Name = author.Name + " (WhatsApp)"
	}

	t, created, err := findOrCreateThread(ctx, service.threads, candidate, author.ID)
	if err != nil {
		return domainThread.Post{}, err
	}
	if created {
		logrus.Infof("[THREADS] created %s thread %s for %s", t.Kind, t.ID, t.ExternalKey)
	} else if _, err := service.threads.AddMember(ctx, t.ID, author.ID); err != nil {
		return domainThread.Post{}, err
	}

	req := domainThread.NewPost{
		AuthorID:    author.ID,
		Body:        msg.TextBody,
		Origin:      domainThread.OriginExternal,
		MessageType: domainThread.MessageComment,
		ExternalID:  msg.MessageID,
	}
	if msg.Media != nil {
		if attachment, ok := attachmentFromMedia(msg.Media); ok {
			req.Attachments = []domainThread.Attachment{attachment}
		}
	}

	result, err := service.post(ctx, t, req)
	if err != nil {
		return domainThread.Post{}, err
	}

	service.publish(ctx, domainEvents.TypeInbound, domainEvents.InboundEvent{
		ThreadID:  t.ID,
		PostID:    result.Post.ID,
		RemoteJID: msg.RemoteJID,
		IsGroup:   msg.IsGroup,
		AuthorID:  author.ID,
		HasMedia:  len(result.Post.Attachments) > 0,
	})
	return result.Post, nil
}

func attachmentFromMedia(media *domainWebhook.Media) (domainThread.Attachment, bool) {
	data, err := chatmedia.DecodeBase64(media.ContentBase64)
	if err != nil {
		logrus.WithError(err).Errorf("[THREADS] dropping undecodable %s attachment %s", media.Kind, media.FileName)
		return domainThread.Attachment{}, false
	}
	logrus.Debugf("[THREADS] attaching %s (%s)", media.FileName, humanize.Bytes(uint64(len(data))))
	return domainThread.Attachment{
		FileName:      media.FileName,
		MimeType:      media.MimeType,
		Size:          int64(len(data)),
		ContentBase64: chatmedia.StripDataURI(media.ContentBase64),
	}, true
}

// --- POSTS ---

func (service *serviceThread) Post(ctx context.Context, threadID string, request domainThread.NewPost) (domainThread.PostResult, error) {
	t, err := service.threads.GetByID(ctx, threadID)
	if err != nil {
		return domainThread.PostResult{}, err
	}
	return service.post(ctx, t, request)
}

// Reply posts as the operator contact, which forwards the post to WhatsApp.
func (service *serviceThread) Reply(ctx context.Context, threadID string, request domainThread.ReplyRequest) (domainThread.PostResult, error) {
	if err := validations.ValidateReply(ctx, request); err != nil {
		return domainThread.PostResult{}, err
	}
	operator, err := service.operator(ctx)
	if err != nil {
		return domainThread.PostResult{}, err
	}

	messageType := domainThread.MessageComment
	if request.Notification {
		messageType = domainThread.MessageNotification
	}
	post := domainThread.NewPost{
		AuthorID:    operator.ID,
		Body:        request.Body,
		Origin:      domainThread.OriginOperator,
		MessageType: messageType,
	}
	for _, a := range request.Attachments {
		data, err := chatmedia.DecodeBase64(a.ContentBase64)
		if err != nil {
			return domainThread.PostResult{}, pkgError.ValidationError(fmt.Sprintf("attachment %s is not valid base64", a.FileName))
		}
		post.Attachments = append(post.Attachments, domainThread.Attachment{
			FileName:      a.FileName,
			MimeType:      a.MimeType,
			Size:          int64(len(data)),
			ContentBase64: chatmedia.StripDataURI(a.ContentBase64),
		})
	}
	return service.Post(ctx, threadID, post)
}

func (service *serviceThread) post(ctx context.Context, t *domainThread.Thread, request domainThread.NewPost) (domainThread.PostResult, error) {
	p := domainThread.Post{
		ThreadID:    t.ID,
		AuthorID:    request.AuthorID,
		Body:        request.Body,
		Origin:      request.Origin,
		MessageType: request.MessageType,
		ExternalID:  request.ExternalID,
		Attachments: request.Attachments,
	}
	if err := service.threads.CreatePost(ctx, &p); err != nil {
		return domainThread.PostResult{}, err
	}
	service.notify(*t, p)

	forward, err := service.OnThreadPost(ctx, *t, p)
	if err != nil {
		logrus.WithError(err).Errorf("[THREADS] post %s stored but not fully delivered to WhatsApp", p.ID)
	}
	return domainThread.PostResult{Post: p, Forward: forward}, nil
}

func (service *serviceThread) ListPosts(ctx context.Context, threadID string, limit int) ([]domainThread.Post, error) {
	if _, err := service.threads.GetByID(ctx, threadID); err != nil {
		return nil, err
	}
	return service.threads.ListPosts(ctx, threadID, limit)
}

func (service *serviceThread) notify(t domainThread.Thread, p domainThread.Post) {
	service.listenersMu.RLock()
	listeners := append([]domainThread.PostListener(nil), service.listeners...)
	service.listenersMu.RUnlock()

	for _, listener := range listeners {
		listener(t, p)
	}
}

// --- OUTBOUND ---

// OnThreadPost forwards operator comments on WhatsApp-linked threads. The
// first attachment carries the text as caption; without attachments the
// text goes out alone.
func (service *serviceThread) OnThreadPost(ctx context.Context, t domainThread.Thread, p domainThread.Post) (domainThread.ForwardResult, error) {
	switch {
	case !t.IsWhatsApp():
		return domainThread.ForwardResult{Skipped: "not_whatsapp"}, nil
	case p.MessageType == domainThread.MessageNotification:
		return domainThread.ForwardResult{Skipped: "notification"}, nil
	case p.Origin != domainThread.OriginOperator:
		return domainThread.ForwardResult{Skipped: "external_origin"}, nil
	}

	text := utils.StripMarkup(p.Body)
	if text == "" && len(p.Attachments) == 0 {
		return domainThread.ForwardResult{Skipped: "empty"}, nil
	}

	result := domainThread.ForwardResult{Forwarded: true}
	var errs []error

	if len(p.Attachments) > 0 {
		for i, a := range p.Attachments {
			caption := ""
			if i == 0 {
				caption = text
			}
			_, err := service.gateway.SendMedia(ctx, domainGateway.MediaRequest{
				Phone:    t.ExternalKey,
				Kind:     domainGateway.MediaKind(chatmedia.KindForMime(a.MimeType)),
				Base64:   a.ContentBase64,
				Caption:  caption,
				FileName: a.FileName,
				MimeType: a.MimeType,
			})
			if err != nil {
				errs = append(errs, err)
				result.Errors = append(result.Errors, err.Error())
				continue
			}
			result.MediaSent++
		}
		text = ""
	}

	if text != "" {
		if _, err := service.gateway.SendText(ctx, t.ExternalKey, text); err != nil {
			errs = append(errs, err)
			result.Errors = append(result.Errors, err.Error())
		} else {
			result.TextSent = true
		}
	}

	service.publish(ctx, domainEvents.TypeOutbound, domainEvents.OutboundEvent{
		ThreadID:  t.ID,
		PostID:    p.ID,
		Recipient: t.ExternalKey,
		TextSent:  result.TextSent,
		MediaSent: result.MediaSent,
		Errors:    result.Errors,
	})
	return result, errors.Join(errs...)
}

// --- DIRECT CHATS ---

// OpenDirectChat returns the direct thread for a contact, creating it with
// the contact and the operator as members.
func (service *serviceThread) OpenDirectChat(ctx context.Context, request domainThread.OpenChatRequest) (domainThread.Thread, error) {
	if err := validations.ValidateOpenChat(ctx, request); err != nil {
		return domainThread.Thread{}, err
	}

	partner, err := service.resolvePartner(ctx, request)
	if err != nil {
		return domainThread.Thread{}, err
	}
	if partner == nil {
		return domainThread.Thread{}, pkgError.ValidationError("No valid partner or phone number found to start WhatsApp chat.")
	}

	key := utils.DigitsOnly(partner.Number())
	if key == "" {
		return domainThread.Thread{}, pkgError.ValidationError("Partner has no mobile number.")
	}

	operator, err := service.operator(ctx)
	if err != nil {
		return domainThread.Thread{}, err
	}

	t, created, err := findOrCreateThread(ctx, service.threads, &domainThread.Thread{
		Kind:         domainThread.KindDirect,
		Name:         partner.Name + " (WhatsApp)",
		ExternalKey:  key,
		AvatarBase64: partner.ImageBase64,
	}, partner.ID, operator.ID)
	if err != nil {
		return domainThread.Thread{}, err
	}
	if !created {
		if _, err := service.threads.AddMember(ctx, t.ID, operator.ID); err != nil {
			return domainThread.Thread{}, err
		}
	}
	return *t, nil
}

func (service *serviceThread) resolvePartner(ctx context.Context, request domainThread.OpenChatRequest) (*domainContact.Contact, error) {
	if request.ContactID != "" {
		c, err := service.contacts.GetByID(ctx, request.ContactID)
		if errors.Is(err, domainContact.ErrContactNotFound) {
			return nil, pkgError.NotFoundError(fmt.Sprintf("contact %s not found", request.ContactID))
		}
		return c, err
	}

	phone := utils.CleanPhone(request.Phone)
	if phone == "" {
		return nil, nil
	}
	c, err := service.contacts.FindByPhone(ctx, phone)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, domainContact.ErrContactNotFound) {
		return nil, err
	}

	// Unknown numbers need a name to become a contact.
	name := strings.TrimSpace(request.Name)
	if name == "" {
		return nil, nil
	}
	c = &domainContact.Contact{Name: name, Mobile: phone}
	if err := service.contacts.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (service *serviceThread) operator(ctx context.Context) (*domainContact.Contact, error) {
	return service.contacts.EnsureSystemContact(ctx, domainContact.SystemKeyOperator, service.operatorName)
}

func (service *serviceThread) publish(ctx context.Context, eventType string, data any) {
	if service.publisher == nil {
		return
	}
	env := domainEvents.NewEnvelope(eventType, service.producer, data)
	if err := service.publisher.Publish(ctx, eventType, env); err != nil {
		logrus.WithError(err).Warnf("[EVENTS] failed to publish %s", eventType)
	}
}

// findOrCreateThread returns the thread bound to candidate.ExternalKey,
// creating candidate when none exists. A concurrent creation loses to the
// stored row.
func findOrCreateThread(ctx context.Context, repo domainThread.IThreadRepository, candidate *domainThread.Thread, memberIDs ...string) (*domainThread.Thread, bool, error) {
	existing, err := repo.FindByExternalKey(ctx, candidate.ExternalKey)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, domainThread.ErrThreadNotFound) {
		return nil, false, err
	}

	if err := repo.Create(ctx, candidate, memberIDs...); err != nil {
		if !errors.Is(err, domainThread.ErrDuplicateThread) {
			return nil, false, err
		}
		existing, err = repo.FindByExternalKey(ctx, candidate.ExternalKey)
		if err != nil {
			return nil, false, err
		}
		return existing, false, nil
	}
	return candidate, true, nil
}
