package secure

import "time"

// Message is one encrypted chat turn. Rows are immutable once written
// and live until the sweeper passes the chat retention horizon.
type Message struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	SessionID string    `gorm:"type:varchar(64);not null;index:idx_chat_session_created,priority:1" json:"-"`
	Role      string    `gorm:"type:varchar(16);not null" json:"role"`
	// Nullable: the empty plaintext encrypts to the nil sentinel.
	Content   []byte    `gorm:"type:blob" json:"-"`
	CreatedAt time.Time `gorm:"not null;index;index:idx_chat_session_created,priority:2" json:"created_at"`
}

func (Message) TableName() string { return "chat_sessions" }

// Usage is one admitted interaction, kept only for rate-limit counting
// and dropped after the log retention horizon. Never decrypted; it has
// no payload to decrypt.
type Usage struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement"`
	SessionID string    `gorm:"type:varchar(64);not null;index:idx_usage_session_created,priority:1"`
	CreatedAt time.Time `gorm:"not null;index;index:idx_usage_session_created,priority:2"`
}

func (Usage) TableName() string { return "usage_logs" }

// Lead is a captured business conversion. Contact details are
// encrypted like chat content, but leads are never swept.
type Lead struct {
	ID          string    `gorm:"primaryKey;size:26"` // ULID
	ContactInfo []byte    `gorm:"type:blob;not null"`
	Summary     []byte    `gorm:"type:blob"`
	CreatedAt   time.Time `gorm:"not null;index"`
}

func (Lead) TableName() string { return "leads" }

// Snapshot is the derived daily-quota view; never persisted.
type Snapshot struct {
	DailyLimit     int  `json:"daily_limit"`
	CurrentUsage   int  `json:"current_usage"`
	Remaining      int  `json:"remaining"`
	IsLimitReached bool `json:"is_limit_reached"`
}
