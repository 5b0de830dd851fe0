package usecase

import (
	"context"
	"errors"
	"fmt"

	domainGateway "github.com/AzielCF/az-wabridge/domains/gateway"
	domainGroup "github.com/AzielCF/az-wabridge/domains/group"
	domainThread "github.com/AzielCF/az-wabridge/domains/thread"
	"github.com/AzielCF/az-wabridge/pkg/chatmedia"
	pkgError "github.com/AzielCF/az-wabridge/pkg/error"
	"github.com/AzielCF/az-wabridge/validations"
	"github.com/sirupsen/logrus"
)

type serviceGroup struct {
	groups  domainGroup.IGroupRepository
	threads domainThread.IThreadRepository
	gateway domainGateway.IGatewayClient
}

func NewGroupService(groups domainGroup.IGroupRepository, threads domainThread.IThreadRepository, gateway domainGateway.IGatewayClient) domainGroup.IGroupUsecase {
	return &serviceGroup{
		groups:  groups,
		threads: threads,
		gateway: gateway,
	}
}

// Gate decides whether a group message may enter the system. The first
// message from an unknown group registers it as pending.
func (service *serviceGroup) Gate(ctx context.Context, jid string) (domainGroup.Group, domainGroup.GateOutcome, error) {
	existing, err := service.groups.GetByJID(ctx, jid)
	if err == nil {
		return *existing, gateFor(existing), nil
	}
	if !errors.Is(err, domainGroup.ErrGroupNotFound) {
		return domainGroup.Group{}, "", err
	}

	record := &domainGroup.Group{
		JID:        jid,
		Name:       fmt.Sprintf("WhatsApp Group (%s)", jid),
		State:      domainGroup.StatePending,
		IconBase64: service.fetchIcon(ctx, jid),
	}
	if err := service.groups.Create(ctx, record); err != nil {
		if !errors.Is(err, domainGroup.ErrDuplicateGroup) {
			return domainGroup.Group{}, "", err
		}
		// Registered concurrently by another message.
		existing, err = service.groups.GetByJID(ctx, jid)
		if err != nil {
			return domainGroup.Group{}, "", err
		}
		return *existing, gateFor(existing), nil
	}

	logrus.Infof("[GROUPS] new group %s registered as pending approval", jid)
	return *record, domainGroup.GatePending, nil
}

func gateFor(g *domainGroup.Group) domainGroup.GateOutcome {
	if g.State == domainGroup.StateAccepted {
		return domainGroup.GatePass
	}
	return domainGroup.GateBlocked
}

// Approve accepts the group and links it to a conversation thread.
func (service *serviceGroup) Approve(ctx context.Context, id string) (domainGroup.Group, error) {
	g, err := service.groups.GetByID(ctx, id)
	if err != nil {
		return domainGroup.Group{}, err
	}
	if g.State == domainGroup.StateRejected {
		return domainGroup.Group{}, pkgError.ValidationError(fmt.Sprintf("group %s was rejected and cannot be approved", g.JID))
	}

	g.State = domainGroup.StateAccepted
	if g.IconBase64 == "" {
		g.IconBase64 = service.fetchIcon(ctx, g.JID)
	}

	if g.ThreadID == "" {
		t, _, err := findOrCreateThread(ctx, service.threads, &domainThread.Thread{
			Kind:         domainThread.KindGroup,
			Name:         g.Name,
			ExternalKey:  g.JID,
			AvatarBase64: g.IconBase64,
		})
		if err != nil {
			return domainGroup.Group{}, err
		}
		if t.AvatarBase64 == "" && g.IconBase64 != "" {
			if err := service.threads.UpdateAvatar(ctx, t.ID, g.IconBase64); err != nil {
				logrus.WithError(err).Warnf("[GROUPS] failed to copy icon to thread %s", t.ID)
			}
		}
		g.ThreadID = t.ID
	}

	if err := service.groups.Update(ctx, g); err != nil {
		return domainGroup.Group{}, err
	}
	logrus.Infof("[GROUPS] group %s accepted, thread %s", g.JID, g.ThreadID)
	return *g, nil
}

// Reject moves pending groups to rejected and returns how many changed.
func (service *serviceGroup) Reject(ctx context.Context, ids []string) (int, error) {
	if err := validations.ValidateRejectGroups(ctx, domainGroup.RejectRequest{IDs: ids}); err != nil {
		return 0, err
	}
	n, err := service.groups.SetState(ctx, ids, domainGroup.StatePending, domainGroup.StateRejected)
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// Sync pulls the gateway's group list, registering new groups as pending
// and refreshing names and icons of known ones.
func (service *serviceGroup) Sync(ctx context.Context) (domainGroup.SyncReport, error) {
	remote := service.gateway.FetchAllGroups(ctx)
	report := domainGroup.SyncReport{Found: len(remote)}

	for _, rg := range remote {
		existing, err := service.groups.GetByJID(ctx, rg.JID)
		if err != nil && !errors.Is(err, domainGroup.ErrGroupNotFound) {
			return report, err
		}

		if existing == nil {
			record := &domainGroup.Group{
				JID:        rg.JID,
				Name:       rg.Subject,
				State:      domainGroup.StatePending,
				IconBase64: service.fetchIcon(ctx, rg.JID),
			}
			if err := service.groups.Create(ctx, record); err != nil {
				if errors.Is(err, domainGroup.ErrDuplicateGroup) {
					continue
				}
				return report, err
			}
			report.Created++
			if record.IconBase64 != "" {
				report.IconsFetched++
			}
			continue
		}

		changed := false
		if rg.Subject != domainGateway.UnknownGroupSubject && existing.Name != rg.Subject {
			existing.Name = rg.Subject
			report.Renamed++
			changed = true
		}
		if existing.IconBase64 == "" {
			if icon := service.fetchIcon(ctx, rg.JID); icon != "" {
				existing.IconBase64 = icon
				report.IconsFetched++
				changed = true
			}
		}
		if changed {
			if err := service.groups.Update(ctx, existing); err != nil {
				return report, err
			}
		}
	}

	report.Message = fmt.Sprintf("Sync Complete. Found %d groups. Created %d new pending groups.", report.Found, report.Created)
	logrus.Infof("[GROUPS] %s", report.Message)
	return report, nil
}

// FetchIcons refreshes the icon of each group and returns how many were updated.
func (service *serviceGroup) FetchIcons(ctx context.Context, ids []string) (int, error) {
	updated := 0
	for _, id := range ids {
		g, err := service.groups.GetByID(ctx, id)
		if err != nil {
			return updated, err
		}
		icon := service.fetchIcon(ctx, g.JID)
		if icon == "" {
			continue
		}
		g.IconBase64 = icon
		if err := service.groups.Update(ctx, g); err != nil {
			return updated, err
		}
		updated++
	}
	return updated, nil
}

func (service *serviceGroup) List(ctx context.Context, state domainGroup.State) ([]domainGroup.Group, error) {
	return service.groups.List(ctx, state)
}

func (service *serviceGroup) fetchIcon(ctx context.Context, jid string) string {
	return chatmedia.NormalizeIcon(service.gateway.FetchProfilePicture(ctx, jid))
}
