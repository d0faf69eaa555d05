package userdata

import (
	"time"

	"github.com/google/uuid"
)

// Preferences controls how digests are built for a user.
type Preferences struct {
	Language             string `json:"language"`
	MaxArticles          int    `json:"max_articles"`
	AutoTranslate        bool   `json:"auto_translate"`
	AutoSummarize        bool   `json:"auto_summarize"`
	MaxTranslationLength int    `json:"max_translation_length"`
}

// Settings holds presentation options echoed back to clients.
type Settings struct {
	Theme         string `json:"theme"`
	Notifications bool   `json:"notifications"`
}

// DefaultPreferences are applied when a profile is created lazily.
func DefaultPreferences() Preferences {
	return Preferences{
		Language:             "pl",
		MaxArticles:          6,
		AutoTranslate:        true,
		AutoSummarize:        true,
		MaxTranslationLength: 1000,
	}
}

// DefaultSettings are applied when a profile is created lazily.
func DefaultSettings() Settings {
	return Settings{Theme: "light", Notifications: true}
}

// Profile is the single per-identity record holding preferences.
type Profile struct {
	ID          string      `gorm:"column:id;primaryKey;size:190;not null" json:"id"`
	UserID      string      `gorm:"column:user_id;size:190;not null;uniqueIndex" json:"user_id"`
	Email       string      `gorm:"column:email;size:320" json:"email"`
	DisplayName string      `gorm:"column:display_name;size:320" json:"display_name"`
	AvatarURL   string      `gorm:"column:avatar_url;size:512" json:"avatar_url"`
	Preferences Preferences `gorm:"column:preferences;serializer:json" json:"preferences"`
	Settings    Settings    `gorm:"column:settings;serializer:json" json:"settings"`
	CreatedAt   time.Time   `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time   `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// TableName provides the explicit table binding for GORM.
func (Profile) TableName() string {
	return "profiles"
}

// FeedSubscription is one user-owned RSS subscription. Removal is a soft
// delete; the (user_id, rss_url) pair stays unique across active states.
type FeedSubscription struct {
	ID         string    `gorm:"column:id;primaryKey;size:190;not null" json:"id"`
	UserID     string    `gorm:"column:user_id;size:190;not null;uniqueIndex:idx_user_feeds_url,priority:1" json:"user_id"`
	RSSURL     string    `gorm:"column:rss_url;size:2048;not null;uniqueIndex:idx_user_feeds_url,priority:2" json:"rss_url"`
	CustomName string    `gorm:"column:custom_name;size:320" json:"custom_name"`
	Active     bool      `gorm:"column:active;not null;default:true" json:"active"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// TableName provides the explicit table binding for GORM.
func (FeedSubscription) TableName() string {
	return "user_feeds"
}

// ReadingHistoryEntry records one read article per user; repeats update
// the existing row instead of inserting a duplicate.
type ReadingHistoryEntry struct {
	ID         string    `gorm:"column:id;primaryKey;size:190;not null" json:"id"`
	UserID     string    `gorm:"column:user_id;size:190;not null;uniqueIndex:idx_history_user_url,priority:1" json:"user_id"`
	ArticleURL string    `gorm:"column:article_url;size:2048;not null;uniqueIndex:idx_history_user_url,priority:2" json:"article_url"`
	ReadAt     time.Time `gorm:"column:read_at;not null" json:"read_at"`
	Liked      bool      `gorm:"column:liked;not null;default:false" json:"liked"`
}

// TableName provides the explicit table binding for GORM.
func (ReadingHistoryEntry) TableName() string {
	return "reading_history"
}

// SavedSummary stores one generated summary; repeated summarization of
// the same article intentionally creates multiple rows.
type SavedSummary struct {
	ID           string    `gorm:"column:id;primaryKey;size:190;not null" json:"id"`
	UserID       string    `gorm:"column:user_id;size:190;not null;index" json:"user_id"`
	ArticleID    string    `gorm:"column:article_id;size:190" json:"article_id"`
	ArticleTitle string    `gorm:"column:article_title;size:512" json:"article_title"`
	ArticleURL   string    `gorm:"column:article_url;size:2048" json:"article_url"`
	Summary      string    `gorm:"column:summary;type:text;not null" json:"summary"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

// TableName provides the explicit table binding for GORM.
func (SavedSummary) TableName() string {
	return "user_summaries"
}

// IDProvider issues record identifiers.
type IDProvider interface {
	NewID() (string, error)
}

type uuidProvider struct{}

// NewUUIDProvider constructs an IDProvider that issues UUIDv7 identifiers.
func NewUUIDProvider() IDProvider {
	return &uuidProvider{}
}

func (p *uuidProvider) NewID() (string, error) {
	value, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return value.String(), nil
}
