package chatstorage

import "time"

// --- Persistence Models ---

type contactModel struct {
	ID          string  `gorm:"primaryKey"`
	Name        string  `gorm:"not null"`
	Phone       string  `gorm:"index:idx_contacts_phone"`
	Mobile      string  `gorm:"index:idx_contacts_mobile"`
	ImageBase64 string  `gorm:"type:text"`
	SystemKey   *string `gorm:"uniqueIndex:idx_contacts_system_key"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (contactModel) TableName() string {
	return "contacts"
}

type groupModel struct {
	ID         string  `gorm:"primaryKey"`
	JID        string  `gorm:"column:jid;uniqueIndex:idx_whatsapp_groups_jid;not null"`
	Name       string  `gorm:"not null"`
	State      string  `gorm:"index:idx_whatsapp_groups_state;not null;default:'pending'"`
	IconBase64 string  `gorm:"type:text"`
	ThreadID   *string `gorm:"index:idx_whatsapp_groups_thread"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (groupModel) TableName() string {
	return "whatsapp_groups"
}

type threadModel struct {
	ID            string  `gorm:"primaryKey"`
	Kind          string  `gorm:"not null"`
	Name          string  `gorm:"not null"`
	ExternalKey   *string `gorm:"uniqueIndex:idx_threads_external_key"`
	AvatarBase64  string  `gorm:"type:text"`
	LastMessageAt *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (threadModel) TableName() string {
	return "threads"
}

type memberModel struct {
	ID        string `gorm:"primaryKey"`
	ThreadID  string `gorm:"uniqueIndex:idx_thread_members_pair,priority:1;not null"`
	ContactID string `gorm:"uniqueIndex:idx_thread_members_pair,priority:2;not null"`
	CreatedAt time.Time
}

func (memberModel) TableName() string {
	return "thread_members"
}

type postModel struct {
	ID          string `gorm:"primaryKey"`
	ThreadID    string `gorm:"index:idx_thread_posts_thread;not null"`
	AuthorID    string `gorm:"index:idx_thread_posts_author"`
	Body        string `gorm:"type:text"`
	Origin      string `gorm:"not null"`
	MessageType string `gorm:"not null;default:'comment'"`
	ExternalID  string `gorm:"index:idx_thread_posts_external"`
	CreatedAt   time.Time
}

func (postModel) TableName() string {
	return "thread_posts"
}

type attachmentModel struct {
	ID            string `gorm:"primaryKey"`
	PostID        string `gorm:"index:idx_post_attachments_post;not null"`
	FileName      string `gorm:"not null"`
	MimeType      string
	Size          int64
	ContentBase64 string `gorm:"type:text"`
	CreatedAt     time.Time
}

func (attachmentModel) TableName() string {
	return "post_attachments"
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
