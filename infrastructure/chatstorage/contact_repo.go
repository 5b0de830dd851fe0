package chatstorage

import (
	"context"
	"strings"
	"time"

	"github.com/AzielCF/az-wabridge/domains/contact"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ContactGormRepository struct {
	db *gorm.DB
}

var _ contact.IContactRepository = (*ContactGormRepository)(nil)

func NewContactGormRepository(db *gorm.DB) *ContactGormRepository {
	return &ContactGormRepository{db: db}
}

func (r *ContactGormRepository) InitSchema(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(&contactModel{})
}

func (r *ContactGormRepository) GetByID(ctx context.Context, id string) (*contact.Contact, error) {
	var m contactModel
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		if isNotFound(err) {
			return nil, contact.ErrContactNotFound
		}
		return nil, err
	}
	return fromContactModel(m), nil
}

func (r *ContactGormRepository) FindByPhone(ctx context.Context, phone string) (*contact.Contact, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return nil, contact.ErrContactNotFound
	}

	var m contactModel
	err := r.db.WithContext(ctx).
		Where("phone = ? OR mobile = ?", phone, phone).
		Order("created_at ASC").
		First(&m).Error
	if err != nil {
		if isNotFound(err) {
			return nil, contact.ErrContactNotFound
		}
		return nil, err
	}
	return fromContactModel(m), nil
}

func (r *ContactGormRepository) Create(ctx context.Context, c *contact.Contact) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	c.CreatedAt, c.UpdatedAt = now, now

	model := toContactModel(c)
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		if isUniqueViolation(err) {
			return contact.ErrDuplicateContact
		}
		return err
	}
	return nil
}

func (r *ContactGormRepository) UpdateImage(ctx context.Context, id, imageBase64 string) error {
	result := r.db.WithContext(ctx).Model(&contactModel{}).Where("id = ?", id).Updates(map[string]any{
		"image_base64": imageBase64,
		"updated_at":   time.Now().UTC(),
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return contact.ErrContactNotFound
	}
	return nil
}

// EnsureSystemContact returns the contact owning key, creating it on first use.
func (r *ContactGormRepository) EnsureSystemContact(ctx context.Context, key, name string) (*contact.Contact, error) {
	found, err := r.getBySystemKey(ctx, key)
	if err == nil {
		return found, nil
	}
	if err != contact.ErrContactNotFound {
		return nil, err
	}

	c := &contact.Contact{Name: name, SystemKey: key}
	if err := r.Create(ctx, c); err != nil {
		if err == contact.ErrDuplicateContact {
			return r.getBySystemKey(ctx, key)
		}
		return nil, err
	}
	return c, nil
}

func (r *ContactGormRepository) getBySystemKey(ctx context.Context, key string) (*contact.Contact, error) {
	var m contactModel
	if err := r.db.WithContext(ctx).First(&m, "system_key = ?", key).Error; err != nil {
		if isNotFound(err) {
			return nil, contact.ErrContactNotFound
		}
		return nil, err
	}
	return fromContactModel(m), nil
}

func toContactModel(c *contact.Contact) contactModel {
	return contactModel{
		ID:          c.ID,
		Name:        c.Name,
		Phone:       c.Phone,
		Mobile:      c.Mobile,
		ImageBase64: c.ImageBase64,
		SystemKey:   nullable(c.SystemKey),
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

func fromContactModel(m contactModel) *contact.Contact {
	return &contact.Contact{
		ID:          m.ID,
		Name:        m.Name,
		Phone:       m.Phone,
		Mobile:      m.Mobile,
		ImageBase64: m.ImageBase64,
		SystemKey:   deref(m.SystemKey),
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}
