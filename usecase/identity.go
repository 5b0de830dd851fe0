package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	coreconfig "github.com/AzielCF/az-wabridge/core/config"
	domainCache "github.com/AzielCF/az-wabridge/domains/cache"
	domainContact "github.com/AzielCF/az-wabridge/domains/contact"
	domainGateway "github.com/AzielCF/az-wabridge/domains/gateway"
	"github.com/AzielCF/az-wabridge/pkg/chatmedia"
	"github.com/AzielCF/az-wabridge/pkg/utils"
	"github.com/sirupsen/logrus"
)

type serviceIdentity struct {
	contacts  domainContact.IContactRepository
	gateway   domainGateway.IGatewayClient
	cache     domainCache.KeyStore
	cacheTTL  time.Duration
	guestName string
}

// NewIdentityService resolves WhatsApp senders to directory contacts. store
// may be nil to disable the lookup cache.
func NewIdentityService(contacts domainContact.IContactRepository, gateway domainGateway.IGatewayClient, store domainCache.KeyStore, cfg coreconfig.BridgeConfig) domainContact.IIdentityResolver {
	guestName := strings.TrimSpace(cfg.GuestName)
	if guestName == "" {
		guestName = "WhatsApp Group Guest"
	}
	return &serviceIdentity{
		contacts:  contacts,
		gateway:   gateway,
		cache:     store,
		cacheTTL:  cfg.ContactTTL,
		guestName: guestName,
	}
}

func (service *serviceIdentity) Resolve(ctx context.Context, request domainContact.ResolveRequest) (domainContact.Resolution, error) {
	senderJID := request.SenderJID
	if senderJID == "" {
		senderJID = request.RemoteJID
	}
	digits := utils.BareNumber(senderJID)

	found, err := service.lookup(ctx, digits)
	if err != nil {
		return domainContact.Resolution{}, err
	}
	if found != nil {
		return domainContact.Resolution{Contact: found, JID: senderJID}, nil
	}

	if request.IsGroup {
		guest, err := service.contacts.EnsureSystemContact(ctx, domainContact.SystemKeyGroupGuest, service.guestName)
		if err != nil {
			return domainContact.Resolution{}, err
		}
		name := strings.TrimSpace(request.PushName)
		if name == "" {
			name = "+" + digits
		}
		return domainContact.Resolution{Contact: guest, JID: senderJID, Guest: true, SenderName: name}, nil
	}

	created, err := service.createDirect(ctx, digits, request)
	if err != nil {
		return domainContact.Resolution{}, err
	}
	return domainContact.Resolution{Contact: created, JID: senderJID}, nil
}

// lookup tries the cache, then the bare digits, then "+digits".
func (service *serviceIdentity) lookup(ctx context.Context, digits string) (*domainContact.Contact, error) {
	if digits == "" {
		return nil, nil
	}

	if id := service.cachedID(ctx, digits); id != "" {
		c, err := service.contacts.GetByID(ctx, id)
		if err == nil {
			return c, nil
		}
		if !errors.Is(err, domainContact.ErrContactNotFound) {
			return nil, err
		}
		service.forget(ctx, digits)
	}

	for _, candidate := range []string{digits, "+" + digits} {
		c, err := service.contacts.FindByPhone(ctx, candidate)
		if err == nil {
			service.remember(ctx, digits, c.ID)
			return c, nil
		}
		if !errors.Is(err, domainContact.ErrContactNotFound) {
			return nil, err
		}
	}
	return nil, nil
}

func (service *serviceIdentity) createDirect(ctx context.Context, digits string, request domainContact.ResolveRequest) (*domainContact.Contact, error) {
	name := "+" + digits
	if push := strings.TrimSpace(request.PushName); push != "" {
		name = push + " (WhatsApp)"
	}

	c := &domainContact.Contact{
		Name:   name,
		Phone:  "+" + digits,
		Mobile: "+" + digits,
	}
	if picture := service.gateway.FetchProfilePicture(ctx, request.RemoteJID); picture != "" {
		c.ImageBase64 = chatmedia.NormalizeIcon(picture)
	}

	if err := service.contacts.Create(ctx, c); err != nil {
		return nil, err
	}
	logrus.Infof("[IDENTITY] created contact %s for +%s", c.ID, digits)
	service.remember(ctx, digits, c.ID)
	return c, nil
}

func (service *serviceIdentity) cachedID(ctx context.Context, digits string) string {
	if service.cache == nil {
		return ""
	}
	id, ok, err := service.cache.Get(ctx, "contact:"+digits)
	if err != nil {
		logrus.WithError(err).Warn("[IDENTITY] contact cache read failed")
		return ""
	}
	if !ok {
		return ""
	}
	return id
}

func (service *serviceIdentity) remember(ctx context.Context, digits, id string) {
	if service.cache == nil || service.cacheTTL <= 0 {
		return
	}
	if err := service.cache.Set(ctx, "contact:"+digits, id, service.cacheTTL); err != nil {
		logrus.WithError(err).Warn("[IDENTITY] contact cache write failed")
	}
}

func (service *serviceIdentity) forget(ctx context.Context, digits string) {
	if service.cache == nil {
		return
	}
	_ = service.cache.Delete(ctx, "contact:"+digits)
}
