package chatstorage

import (
	"context"
	"time"

	"github.com/AzielCF/az-wabridge/domains/thread"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const defaultPostLimit = 50

type ThreadGormRepository struct {
	db *gorm.DB
}

var _ thread.IThreadRepository = (*ThreadGormRepository)(nil)

func NewThreadGormRepository(db *gorm.DB) *ThreadGormRepository {
	return &ThreadGormRepository{db: db}
}

func (r *ThreadGormRepository) InitSchema(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(&threadModel{}, &memberModel{}, &postModel{}, &attachmentModel{})
}

func (r *ThreadGormRepository) GetByID(ctx context.Context, id string) (*thread.Thread, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *ThreadGormRepository) FindByExternalKey(ctx context.Context, key string) (*thread.Thread, error) {
	if key == "" {
		return nil, thread.ErrThreadNotFound
	}
	return r.first(ctx, "external_key = ?", key)
}

func (r *ThreadGormRepository) first(ctx context.Context, query string, arg any) (*thread.Thread, error) {
	var m threadModel
	if err := r.db.WithContext(ctx).Where(query, arg).First(&m).Error; err != nil {
		if isNotFound(err) {
			return nil, thread.ErrThreadNotFound
		}
		return nil, err
	}
	return fromThreadModel(m), nil
}

// Create inserts the thread and its initial members in one transaction.
func (r *ThreadGormRepository) Create(ctx context.Context, t *thread.Thread, memberIDs ...string) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	t.CreatedAt = now

	model := threadModel{
		ID:           t.ID,
		Kind:         string(t.Kind),
		Name:         t.Name,
		ExternalKey:  nullable(t.ExternalKey),
		AvatarBase64: t.AvatarBase64,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&model).Error; err != nil {
			return err
		}
		seen := make(map[string]struct{}, len(memberIDs))
		for _, contactID := range memberIDs {
			if contactID == "" {
				continue
			}
			if _, dup := seen[contactID]; dup {
				continue
			}
			seen[contactID] = struct{}{}
			member := memberModel{ID: uuid.NewString(), ThreadID: t.ID, ContactID: contactID, CreatedAt: now}
			if err := tx.Create(&member).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if isUniqueViolation(err) {
			return thread.ErrDuplicateThread
		}
		return err
	}
	return nil
}

func (r *ThreadGormRepository) UpdateAvatar(ctx context.Context, id, avatarBase64 string) error {
	result := r.db.WithContext(ctx).Model(&threadModel{}).Where("id = ?", id).Updates(map[string]any{
		"avatar_base64": avatarBase64,
		"updated_at":    time.Now().UTC(),
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return thread.ErrThreadNotFound
	}
	return nil
}

func (r *ThreadGormRepository) AddMember(ctx context.Context, threadID, contactID string) (bool, error) {
	member := memberModel{
		ID:        uuid.NewString(),
		ThreadID:  threadID,
		ContactID: contactID,
		CreatedAt: time.Now().UTC(),
	}
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "thread_id"}, {Name: "contact_id"}},
		DoNothing: true,
	}).Create(&member)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *ThreadGormRepository) ListMembers(ctx context.Context, threadID string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&memberModel{}).
		Where("thread_id = ?", threadID).
		Order("created_at ASC").
		Pluck("contact_id", &ids).Error
	return ids, err
}

// CreatePost stores the post with its attachments and bumps the thread's last activity.
func (r *ThreadGormRepository) CreatePost(ctx context.Context, p *thread.Post) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.MessageType == "" {
		p.MessageType = thread.MessageComment
	}
	now := time.Now().UTC()
	p.CreatedAt = now

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		post := postModel{
			ID:          p.ID,
			ThreadID:    p.ThreadID,
			AuthorID:    p.AuthorID,
			Body:        p.Body,
			Origin:      string(p.Origin),
			MessageType: string(p.MessageType),
			ExternalID:  p.ExternalID,
			CreatedAt:   now,
		}
		if err := tx.Create(&post).Error; err != nil {
			return err
		}

		for i := range p.Attachments {
			a := &p.Attachments[i]
			if a.ID == "" {
				a.ID = uuid.NewString()
			}
			model := attachmentModel{
				ID:            a.ID,
				PostID:        p.ID,
				FileName:      a.FileName,
				MimeType:      a.MimeType,
				Size:          a.Size,
				ContentBase64: a.ContentBase64,
				CreatedAt:     now,
			}
			if err := tx.Create(&model).Error; err != nil {
				return err
			}
		}

		result := tx.Model(&threadModel{}).Where("id = ?", p.ThreadID).Updates(map[string]any{
			"last_message_at": now,
			"updated_at":      now,
		})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return thread.ErrThreadNotFound
		}
		return nil
	})
}

// ListPosts returns the most recent posts in chronological order.
func (r *ThreadGormRepository) ListPosts(ctx context.Context, threadID string, limit int) ([]thread.Post, error) {
	if limit <= 0 {
		limit = defaultPostLimit
	}

	var posts []postModel
	err := r.db.WithContext(ctx).
		Where("thread_id = ?", threadID).
		Order("created_at DESC").Order("id DESC").
		Limit(limit).
		Find(&posts).Error
	if err != nil {
		return nil, err
	}
	if len(posts) == 0 {
		return []thread.Post{}, nil
	}

	ids := make([]string, len(posts))
	for i, p := range posts {
		ids[i] = p.ID
	}
	var attachments []attachmentModel
	if err := r.db.WithContext(ctx).Where("post_id IN ?", ids).Order("created_at ASC").Find(&attachments).Error; err != nil {
		return nil, err
	}
	byPost := make(map[string][]thread.Attachment, len(posts))
	for _, a := range attachments {
		byPost[a.PostID] = append(byPost[a.PostID], thread.Attachment{
			ID:            a.ID,
			FileName:      a.FileName,
			MimeType:      a.MimeType,
			Size:          a.Size,
			ContentBase64: a.ContentBase64,
		})
	}

	out := make([]thread.Post, len(posts))
	for i, m := range posts {
		out[len(posts)-1-i] = thread.Post{
			ID:          m.ID,
			ThreadID:    m.ThreadID,
			AuthorID:    m.AuthorID,
			Body:        m.Body,
			Origin:      thread.Origin(m.Origin),
			MessageType: thread.MessageType(m.MessageType),
			ExternalID:  m.ExternalID,
			Attachments: byPost[m.ID],
			CreatedAt:   m.CreatedAt,
		}
	}
	return out, nil
}

func fromThreadModel(m threadModel) *thread.Thread {
	return &thread.Thread{
		ID:            m.ID,
		Kind:          thread.Kind(m.Kind),
		Name:          m.Name,
		ExternalKey:   deref(m.ExternalKey),
		AvatarBase64:  m.AvatarBase64,
		LastMessageAt: m.LastMessageAt,
		CreatedAt:     m.CreatedAt,
	}
}
