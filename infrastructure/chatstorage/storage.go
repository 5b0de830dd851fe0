package chatstorage

import (
	"context"

	"gorm.io/gorm"
)

// Repositories groups the bridge's persistent stores over one connection.
type Repositories struct {
	Contacts *ContactGormRepository
	Groups   *GroupGormRepository
	Threads  *ThreadGormRepository
}

func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Contacts: NewContactGormRepository(db),
		Groups:   NewGroupGormRepository(db),
		Threads:  NewThreadGormRepository(db),
	}
}

// InitSchema migrates every table the bridge owns.
func (r *Repositories) InitSchema(ctx context.Context) error {
	if err := r.Contacts.InitSchema(ctx); err != nil {
		return err
	}
	if err := r.Groups.InitSchema(ctx); err != nil {
		return err
	}
	return r.Threads.InitSchema(ctx)
}
