package chatstorage

import (
	"context"
	"time"

	"github.com/AzielCF/az-wabridge/domains/group"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type GroupGormRepository struct {
	db *gorm.DB
}

var _ group.IGroupRepository = (*GroupGormRepository)(nil)

func NewGroupGormRepository(db *gorm.DB) *GroupGormRepository {
	return &GroupGormRepository{db: db}
}

func (r *GroupGormRepository) InitSchema(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(&groupModel{})
}

func (r *GroupGormRepository) GetByID(ctx context.Context, id string) (*group.Group, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *GroupGormRepository) GetByJID(ctx context.Context, jid string) (*group.Group, error) {
	return r.first(ctx, "jid = ?", jid)
}

func (r *GroupGormRepository) first(ctx context.Context, query string, arg any) (*group.Group, error) {
	var m groupModel
	if err := r.db.WithContext(ctx).Where(query, arg).First(&m).Error; err != nil {
		if isNotFound(err) {
			return nil, group.ErrGroupNotFound
		}
		return nil, err
	}
	return fromGroupModel(m), nil
}

func (r *GroupGormRepository) List(ctx context.Context, state group.State) ([]group.Group, error) {
	q := r.db.WithContext(ctx).Order("created_at DESC")
	if state != "" {
		q = q.Where("state = ?", string(state))
	}

	var models []groupModel
	if err := q.Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]group.Group, 0, len(models))
	for _, m := range models {
		out = append(out, *fromGroupModel(m))
	}
	return out, nil
}

func (r *GroupGormRepository) Create(ctx context.Context, g *group.Group) error {
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	if g.State == "" {
		g.State = group.StatePending
	}
	now := time.Now().UTC()
	g.CreatedAt, g.UpdatedAt = now, now

	model := toGroupModel(g)
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		if isUniqueViolation(err) {
			return group.ErrDuplicateGroup
		}
		return err
	}
	return nil
}

func (r *GroupGormRepository) Update(ctx context.Context, g *group.Group) error {
	g.UpdatedAt = time.Now().UTC()
	model := toGroupModel(g)

	result := r.db.WithContext(ctx).Model(&groupModel{ID: g.ID}).
		Select("name", "state", "icon_base64", "thread_id", "updated_at").
		Updates(&model)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return group.ErrGroupNotFound
	}
	return nil
}

func (r *GroupGormRepository) SetState(ctx context.Context, ids []string, from, to group.State) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).Model(&groupModel{}).
		Where("id IN ? AND state = ?", ids, string(from)).
		Updates(map[string]any{"state": string(to), "updated_at": time.Now().UTC()})
	return result.RowsAffected, result.Error
}

func toGroupModel(g *group.Group) groupModel {
	return groupModel{
		ID:         g.ID,
		JID:        g.JID,
		Name:       g.Name,
		State:      string(g.State),
		IconBase64: g.IconBase64,
		ThreadID:   nullable(g.ThreadID),
		CreatedAt:  g.CreatedAt,
		UpdatedAt:  g.UpdatedAt,
	}
}

func fromGroupModel(m groupModel) *group.Group {
	return &group.Group{
		ID:         m.ID,
		JID:        m.JID,
		Name:       m.Name,
		State:      group.State(m.State),
		IconBase64: m.IconBase64,
		ThreadID:   deref(m.ThreadID),
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}
}
