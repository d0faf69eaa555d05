// Package userdata owns CRUD over profiles, feed subscriptions, reading
// history and saved summaries, always scoped to one identity.
package userdata

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/KamilMichalski0/news-summarizer/internal/apperr"
	"github.com/KamilMichalski0/news-summarizer/internal/identity"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	defaultHistoryLimit   = 50
	defaultSummariesLimit = 20
)

var (
	errMissingDatabase   = errors.New("userdata: database handle is required")
	errMissingIDProvider = errors.New("userdata: id provider is required")
	noOpLogger           = zap.NewNop()
)

// ServiceConfig describes the dependencies of the data service.
type ServiceConfig struct {
	Database   *gorm.DB
	Clock      func() time.Time
	IDProvider IDProvider
	Logger     *zap.Logger
}

// Service provides identity-scoped access to all persisted user records.
type Service struct {
	db         *gorm.DB
	clock      func() time.Time
	idProvider IDProvider
	logger     *zap.Logger
}

// NewService constructs the data service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, errMissingDatabase
	}
	if cfg.IDProvider == nil {
		return nil, errMissingIDProvider
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	return &Service{
		db:         cfg.Database,
		clock:      clock,
		idProvider: cfg.IDProvider,
		logger:     logger,
	}, nil
}

// GetProfile fetches the caller's profile, creating it lazily with default
// preferences when absent.
func (s *Service) GetProfile(ctx context.Context, ident identity.Identity) (Profile, error) {
	var profile Profile
	err := s.db.WithContext(ctx).Where("user_id = ?", ident.ID).Take(&profile).Error
	if err == nil {
		return profile, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logError("profile_fetch_failed", err, ident.ID)
		return Profile{}, apperr.Wrap(apperr.KindInternal, "failed to fetch user profile", err)
	}
	return s.createProfile(ctx, ident)
}

func (s *Service) createProfile(ctx context.Context, ident identity.Identity) (Profile, error) {
	id, err := s.idProvider.NewID()
	if err != nil {
		return Profile{}, apperr.Wrap(apperr.KindInternal, "failed to create user profile", err)
	}

	displayName := ident.DisplayName
	if displayName == "" {
		if at := strings.Index(ident.Email, "@"); at > 0 {
			displayName = ident.Email[:at]
		} else {
			displayName = "User"
		}
	}

	profile := Profile{
		ID:          id,
		UserID:      ident.ID,
		Email:       ident.Email,
		DisplayName: displayName,
		AvatarURL:   ident.AvatarURL,
		Preferences: DefaultPreferences(),
		Settings:    DefaultSettings(),
		CreatedAt:   s.clock().UTC(),
		UpdatedAt:   s.clock().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&profile).Error; err != nil {
		if isUniqueViolation(err) {
			// Lost a creation race; the winning row is authoritative.
			var existing Profile
			if takeErr := s.db.WithContext(ctx).Where("user_id = ?", ident.ID).Take(&existing).Error; takeErr == nil {
				return existing, nil
			}
		}
		s.logError("profile_create_failed", err, ident.ID)
		return Profile{}, apperr.Wrap(apperr.KindInternal, "failed to create user profile", err)
	}
	s.logger.Info("user profile created", zap.String("user_id", ident.ID))
	return profile, nil
}

// ProfileUpdate carries the allow-listed mutable profile fields; nil
// members are left untouched.
type ProfileUpdate struct {
	DisplayName *string
	Preferences *Preferences
	Settings    *Settings
}

func (u ProfileUpdate) empty() bool {
	return u.DisplayName == nil && u.Preferences == nil && u.Settings == nil
}

// UpdateProfile merges the allow-listed fields into the stored profile.
func (s *Service) UpdateProfile(ctx context.Context, userID string, update ProfileUpdate) (Profile, error) {
	if update.empty() {
		return Profile{}, apperr.New(apperr.KindValidation, "no valid fields to update")
	}

	var profile Profile
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).Take(&profile).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Profile{}, apperr.New(apperr.KindNotFound, "user profile not found")
	}
	if err != nil {
		s.logError("profile_fetch_failed", err, userID)
		return Profile{}, apperr.Wrap(apperr.KindInternal, "failed to update user profile", err)
	}

	if update.DisplayName != nil {
		profile.DisplayName = strings.TrimSpace(*update.DisplayName)
	}
	if update.Preferences != nil {
		profile.Preferences = *update.Preferences
	}
	if update.Settings != nil {
		profile.Settings = *update.Settings
	}
	profile.UpdatedAt = s.clock().UTC()

	if err := s.db.WithContext(ctx).Save(&profile).Error; err != nil {
		s.logError("profile_update_failed", err, userID)
		return Profile{}, apperr.Wrap(apperr.KindInternal, "failed to update user profile", err)
	}
	return profile, nil
}

// ListFeeds returns the caller's active subscriptions, newest first.
// A missing table degrades to an empty list.
func (s *Service) ListFeeds(ctx context.Context, userID string) ([]FeedSubscription, error) {
	var feeds []FeedSubscription
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND active = ?", userID, true).
		Order("created_at DESC").
		Find(&feeds).Error
	if err != nil {
		if isMissingTable(err) {
			s.logger.Warn("user_feeds table not found, returning empty data", zap.String("user_id", userID))
			return []FeedSubscription{}, nil
		}
		s.logError("feeds_list_failed", err, userID)
		return nil, apperr.Wrap(apperr.KindInternal, "failed to fetch RSS feeds", err)
	}
	return feeds, nil
}

// AddFeed creates a subscription. A URL already present for this user, in
// any active state, is rejected as a duplicate.
func (s *Service) AddFeed(ctx context.Context, userID, rssURL, customName string) (FeedSubscription, error) {
	rssURL = strings.TrimSpace(rssURL)
	if rssURL == "" {
		return FeedSubscription{}, apperr.New(apperr.KindValidation, "RSS URL is required")
	}

	var existing FeedSubscription
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND rss_url = ?", userID, rssURL).
		Take(&existing).Error
	if err == nil {
		return FeedSubscription{}, apperr.New(apperr.KindDuplicate, "RSS feed already exists for this user")
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logError("feed_lookup_failed", err, userID)
		return FeedSubscription{}, apperr.Wrap(apperr.KindInternal, "failed to add RSS feed", err)
	}

	if customName == "" {
		if parsed, parseErr := url.Parse(rssURL); parseErr == nil {
			customName = parsed.Hostname()
		}
	}

	id, err := s.idProvider.NewID()
	if err != nil {
		return FeedSubscription{}, apperr.Wrap(apperr.KindInternal, "failed to add RSS feed", err)
	}
	feed := FeedSubscription{
		ID:         id,
		UserID:     userID,
		RSSURL:     rssURL,
		CustomName: customName,
		Active:     true,
		CreatedAt:  s.clock().UTC(),
		UpdatedAt:  s.clock().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&feed).Error; err != nil {
		if isUniqueViolation(err) {
			return FeedSubscription{}, apperr.Wrap(apperr.KindDuplicate, "RSS feed already exists for this user", err)
		}
		s.logError("feed_add_failed", err, userID)
		return FeedSubscription{}, apperr.Wrap(apperr.KindInternal, "failed to add RSS feed", err)
	}

	s.logger.Info("user feed added", zap.String("user_id", userID), zap.String("rss_url", rssURL))
	return feed, nil
}

// RemoveFeed soft deletes a subscription. Removing an already-inactive
// feed succeeds without touching the row.
func (s *Service) RemoveFeed(ctx context.Context, userID, feedID string) (FeedSubscription, error) {
	var feed FeedSubscription
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND id = ?", userID, feedID).
		Take(&feed).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return FeedSubscription{}, apperr.New(apperr.KindNotFound, "RSS feed not found")
	}
	if err != nil {
		s.logError("feed_lookup_failed", err, userID)
		return FeedSubscription{}, apperr.Wrap(apperr.KindInternal, "failed to remove RSS feed", err)
	}

	if !feed.Active {
		return feed, nil
	}

	feed.Active = false
	feed.UpdatedAt = s.clock().UTC()
	if err := s.db.WithContext(ctx).Save(&feed).Error; err != nil {
		s.logError("feed_remove_failed", err, userID)
		return FeedSubscription{}, apperr.Wrap(apperr.KindInternal, "failed to remove RSS feed", err)
	}

	s.logger.Info("user feed removed", zap.String("user_id", userID), zap.String("feed_id", feedID))
	return feed, nil
}

// MarkRead upserts a reading-history row: a repeat read refreshes the
// timestamp and overwrites the liked flag.
func (s *Service) MarkRead(ctx context.Context, userID, articleURL string, liked bool) (ReadingHistoryEntry, error) {
	articleURL = strings.TrimSpace(articleURL)
	if articleURL == "" {
		return ReadingHistoryEntry{}, apperr.New(apperr.KindValidation, "article URL is required")
	}

	now := s.clock().UTC()
	var entry ReadingHistoryEntry
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND article_url = ?", userID, articleURL).
		Take(&entry).Error
	if err == nil {
		entry.ReadAt = now
		entry.Liked = liked
		if saveErr := s.db.WithContext(ctx).Save(&entry).Error; saveErr != nil {
			s.logError("history_update_failed", saveErr, userID)
			return ReadingHistoryEntry{}, apperr.Wrap(apperr.KindInternal, "failed to mark article as read", saveErr)
		}
		return entry, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logError("history_lookup_failed", err, userID)
		return ReadingHistoryEntry{}, apperr.Wrap(apperr.KindInternal, "failed to mark article as read", err)
	}

	id, err := s.idProvider.NewID()
	if err != nil {
		return ReadingHistoryEntry{}, apperr.Wrap(apperr.KindInternal, "failed to mark article as read", err)
	}
	entry = ReadingHistoryEntry{
		ID:         id,
		UserID:     userID,
		ArticleURL: articleURL,
		ReadAt:     now,
		Liked:      liked,
	}
	if err := s.db.WithContext(ctx).Create(&entry).Error; err != nil {
		s.logError("history_insert_failed", err, userID)
		return ReadingHistoryEntry{}, apperr.Wrap(apperr.KindInternal, "failed to mark article as read", err)
	}
	return entry, nil
}

// ListHistory returns reading history, newest first. A missing table
// degrades to an empty list.
func (s *Service) ListHistory(ctx context.Context, userID string, limit int) ([]ReadingHistoryEntry, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	var history []ReadingHistoryEntry
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("read_at DESC").
		Limit(limit).
		Find(&history).Error
	if err != nil {
		if isMissingTable(err) {
			s.logger.Warn("reading_history table not found, returning empty data", zap.String("user_id", userID))
			return []ReadingHistoryEntry{}, nil
		}
		s.logError("history_list_failed", err, userID)
		return nil, apperr.Wrap(apperr.KindInternal, "failed to fetch reading history", err)
	}
	return history, nil
}

// SaveSummary persists one generated summary. No uniqueness is enforced;
// summarizing the same article again stores a new row.
func (s *Service) SaveSummary(ctx context.Context, userID string, summary SavedSummary) (SavedSummary, error) {
	if strings.TrimSpace(summary.Summary) == "" {
		return SavedSummary{}, apperr.New(apperr.KindValidation, "summary text is required")
	}
	id, err := s.idProvider.NewID()
	if err != nil {
		return SavedSummary{}, apperr.Wrap(apperr.KindInternal, "failed to save summary", err)
	}
	summary.ID = id
	summary.UserID = userID
	summary.CreatedAt = s.clock().UTC()
	if err := s.db.WithContext(ctx).Create(&summary).Error; err != nil {
		s.logError("summary_insert_failed", err, userID)
		return SavedSummary{}, apperr.Wrap(apperr.KindInternal, "failed to save summary", err)
	}
	return summary, nil
}

// ListSummaries returns saved summaries, newest first. A missing table
// degrades to an empty list.
func (s *Service) ListSummaries(ctx context.Context, userID string, limit int) ([]SavedSummary, error) {
	if limit <= 0 {
		limit = defaultSummariesLimit
	}
	var summaries []SavedSummary
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&summaries).Error
	if err != nil {
		if isMissingTable(err) {
			s.logger.Warn("user_summaries table not found, returning empty data", zap.String("user_id", userID))
			return []SavedSummary{}, nil
		}
		s.logError("summaries_list_failed", err, userID)
		return nil, apperr.Wrap(apperr.KindInternal, "failed to fetch summaries", err)
	}
	return summaries, nil
}

// DeleteUserData removes every record owned by the identity, children
// before parents so referential constraints hold.
func (s *Service) DeleteUserData(ctx context.Context, userID string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).Delete(&SavedSummary{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", userID).Delete(&ReadingHistoryEntry{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", userID).Delete(&FeedSubscription{}).Error; err != nil {
			return err
		}
		return tx.Where("user_id = ?", userID).Delete(&Profile{}).Error
	})
	if err != nil {
		s.logError("user_data_delete_failed", err, userID)
		return apperr.Wrap(apperr.KindInternal, "failed to delete user data", err)
	}
	s.logger.Info("user data deleted", zap.String("user_id", userID))
	return nil
}

func (s *Service) logError(reason string, err error, userID string) {
	s.logger.Error("userdata service error",
		zap.String("reason", reason),
		zap.String("user_id", userID),
		zap.Error(err))
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func isMissingTable(err error) bool {
	return err != nil && strings.Contains(err.Error(), "no such table")
}
