package postgres

import (
	"SnapLink-Backend/internal/domain"
	"SnapLink-Backend/internal/repository"
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// PostgresStorage implements the Storage interface on top of GORM/PostgreSQL.
type PostgresStorage struct {
	db  *gorm.DB
	log *zap.Logger
}

// New creates a new PostgreSQL storage instance.
func New(db *gorm.DB, log *zap.Logger) *PostgresStorage {
	return &PostgresStorage{
		db:  db,
		log: log,
	}
}

// --- User Methods ---

func (s *PostgresStorage) CreateUser(ctx context.Context, user *domain.User) error {
	var count int64
	if err := s.db.WithContext(ctx).Model(&domain.User{}).Where("email = ?", user.Email).Count(&count).Error; err != nil {
		s.log.Error("failed to check email existence", zap.String("email", user.Email), zap.Error(err))
		return fmt.Errorf("failed to check email: %w", err)
	}
	if count > 0 {
		return repository.ErrDuplicateEmail
	}

	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		s.log.Error("failed to create user", zap.String("email", user.Email), zap.Error(err))
		return fmt.Errorf("failed to create user: %w", err)
	}

	s.log.Info("created new user", zap.Int64("user_id", user.ID))
	return nil
}

func (s *PostgresStorage) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	var user domain.User

	err := s.db.WithContext(ctx).Where("email = ? AND is_active = ?", email, true).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		s.log.Error("failed to get user by email", zap.String("email", email), zap.Error(err))
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return &user, nil
}

func (s *PostgresStorage) GetUserByID(ctx context.Context, id int64) (*domain.User, error) {
	var user domain.User

	err := s.db.WithContext(ctx).Where("id = ? AND is_active = ?", id, true).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		s.log.Error("failed to get user by id", zap.Int64("user_id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return &user, nil
}

func (s *PostgresStorage) TouchLastLogin(ctx context.Context, userID int64, at time.Time) error {
	err := s.db.WithContext(ctx).Model(&domain.User{}).
		Where("id = ?", userID).
		Update("last_login", at).Error
	if err != nil {
		s.log.Error("failed to update last login", zap.Int64("user_id", userID), zap.Error(err))
		return fmt.Errorf("failed to update last login: %w", err)
	}
	return nil
}

// --- URL Methods ---

// SaveURL persists a new link after re-checking the code/alias uniqueness
// invariant. A collision is rejected, never overwritten.
func (s *PostgresStorage) SaveURL(ctx context.Context, url *domain.URL) error {
	taken, err := s.CodeInUse(ctx, url.ShortCode)
	if err != nil {
		return err
	}
	if !taken && url.CustomAlias != nil {
		taken, err = s.CodeInUse(ctx, *url.CustomAlias)
		if err != nil {
			return err
		}
	}
	if taken {
		return repository.ErrCodeTaken
	}

	if err := s.db.WithContext(ctx).Create(url).Error; err != nil {
		s.log.Error("failed to save url", zap.String("short_code", url.ShortCode), zap.Error(err))
		return fmt.Errorf("failed to save url: %w", err)
	}

	s.log.Info("saved new url", zap.String("short_code", url.ShortCode), zap.Int64("id", url.ID))
	return nil
}

func (s *PostgresStorage) GetURLByCode(ctx context.Context, code string) (*domain.URL, error) {
	var url domain.URL

	err := s.db.WithContext(ctx).Where("short_code = ? OR custom_alias = ?", code, code).First(&url).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		s.log.Error("failed to get url by code", zap.String("code", code), zap.Error(err))
		return nil, fmt.Errorf("failed to get url: %w", err)
	}

	return &url, nil
}

func (s *PostgresStorage) GetURLByID(ctx context.Context, id int64) (*domain.URL, error) {
	var url domain.URL

	err := s.db.WithContext(ctx).First(&url, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		s.log.Error("failed to get url by id", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get url: %w", err)
	}

	return &url, nil
}

func (s *PostgresStorage) FindUserURLByOriginal(ctx context.Context, userID int64, originalURL string) (*domain.URL, error) {
	var url domain.URL

	err := s.db.WithContext(ctx).
		Where("user_id = ? AND original_url = ?", userID, originalURL).
		First(&url).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		s.log.Error("failed to find url by original", zap.Int64("user_id", userID), zap.Error(err))
		return nil, fmt.Errorf("failed to find url: %w", err)
	}

	return &url, nil
}

// CodeInUse checks the code against both identity columns: a custom alias may
// not shadow a generated code and vice versa.
func (s *PostgresStorage) CodeInUse(ctx context.Context, code string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&domain.URL{}).
		Where("short_code = ? OR custom_alias = ?", code, code).
		Count(&count).Error
	if err != nil {
		s.log.Error("failed to check code existence", zap.String("code", code), zap.Error(err))
		return false, fmt.Errorf("failed to check code: %w", err)
	}

	return count > 0, nil
}

func (s *PostgresStorage) ListUserURLs(ctx context.Context, userID int64, offset, limit int) ([]*domain.URL, int64, error) {
	var total int64
	if err := s.db.WithContext(ctx).Model(&domain.URL{}).Where("user_id = ?", userID).Count(&total).Error; err != nil {
		s.log.Error("failed to count user urls", zap.Int64("user_id", userID), zap.Error(err))
		return nil, 0, fmt.Errorf("failed to count user urls: %w", err)
	}

	q := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC")
	if limit > 0 {
		q = q.Offset(offset).Limit(limit)
	}

	var urls []*domain.URL
	if err := q.Find(&urls).Error; err != nil {
		s.log.Error("failed to list user urls", zap.Int64("user_id", userID), zap.Error(err))
		return nil, 0, fmt.Errorf("failed to list user urls: %w", err)
	}

	return urls, total, nil
}

// DeleteURL removes the link and its click events. Events go first so a crash
// in between cannot orphan them.
func (s *PostgresStorage) DeleteURL(ctx context.Context, id int64) error {
	if err := s.db.WithContext(ctx).Where("url_id = ?", id).Delete(&domain.Click{}).Error; err != nil {
		s.log.Error("failed to delete clicks", zap.Int64("url_id", id), zap.Error(err))
		return fmt.Errorf("failed to delete clicks: %w", err)
	}

	result := s.db.WithContext(ctx).Delete(&domain.URL{}, id)
	if result.Error != nil {
		s.log.Error("failed to delete url", zap.Int64("id", id), zap.Error(result.Error))
		return fmt.Errorf("failed to delete url: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return repository.ErrNotFound
	}

	s.log.Info("deleted url", zap.Int64("id", id))
	return nil
}

func (s *PostgresStorage) UpdateQRCode(ctx context.Context, id int64, dataURL string) error {
	result := s.db.WithContext(ctx).Model(&domain.URL{}).
		Where("id = ?", id).
		Update("qr_code", dataURL)
	if result.Error != nil {
		s.log.Error("failed to update qr code", zap.Int64("id", id), zap.Error(result.Error))
		return fmt.Errorf("failed to update qr code: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// IncrementClicks is a single atomic add issued to the database, not a
// read-modify-write in the application. No transaction ties it to SaveClick.
func (s *PostgresStorage) IncrementClicks(ctx context.Context, id int64, at time.Time) error {
	result := s.db.WithContext(ctx).Model(&domain.URL{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"clicks":       gorm.Expr("clicks + 1"),
			"last_clicked": at,
		})
	if result.Error != nil {
		s.log.Error("failed to increment clicks", zap.Int64("id", id), zap.Error(result.Error))
		return fmt.Errorf("failed to increment clicks: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// --- Click Methods ---

func (s *PostgresStorage) SaveClick(ctx context.Context, click *domain.Click) error {
	if err := s.db.WithContext(ctx).Create(click).Error; err != nil {
		s.log.Error("failed to save click", zap.Int64("url_id", click.URLID), zap.Error(err))
		return fmt.Errorf("failed to save click: %w", err)
	}
	return nil
}

func (s *PostgresStorage) ListClicks(ctx context.Context, urlID int64, since *time.Time) ([]*domain.Click, error) {
	var clicks []*domain.Click

	q := s.db.WithContext(ctx).Where("url_id = ?", urlID)
	if since != nil {
		q = q.Where("clicked_at >= ?", *since)
	}

	if err := q.Order("clicked_at DESC").Find(&clicks).Error; err != nil {
		s.log.Error("failed to list clicks", zap.Int64("url_id", urlID), zap.Error(err))
		return nil, fmt.Errorf("failed to list clicks: %w", err)
	}

	return clicks, nil
}

func (s *PostgresStorage) CountClicks(ctx context.Context, urlID int64, since *time.Time) (int64, error) {
	var count int64

	q := s.db.WithContext(ctx).Model(&domain.Click{}).Where("url_id = ?", urlID)
	if since != nil {
		q = q.Where("clicked_at >= ?", *since)
	}

	if err := q.Count(&count).Error; err != nil {
		s.log.Error("failed to count clicks", zap.Int64("url_id", urlID), zap.Error(err))
		return 0, fmt.Errorf("failed to count clicks: %w", err)
	}

	return count, nil
}

func (s *PostgresStorage) CountUniqueIPs(ctx context.Context, urlID int64, since *time.Time) (int64, error) {
	var count int64

	q := s.db.WithContext(ctx).Model(&domain.Click{}).Where("url_id = ?", urlID)
	if since != nil {
		q = q.Where("clicked_at >= ?", *since)
	}

	if err := q.Distinct("ip").Count(&count).Error; err != nil {
		s.log.Error("failed to count unique ips", zap.Int64("url_id", urlID), zap.Error(err))
		return 0, fmt.Errorf("failed to count unique ips: %w", err)
	}

	return count, nil
}

func (s *PostgresStorage) GroupClicks(ctx context.Context, urlID int64, dimension string, since *time.Time) (map[string]int64, error) {
	// Column names reach the SQL directly; only known dimensions pass.
	switch dimension {
	case repository.DimDevice, repository.DimBrowser, repository.DimOS, repository.DimCountry:
	default:
		return nil, fmt.Errorf("unknown dimension: %s", dimension)
	}

	var results []struct {
		Value string `gorm:"column:value"`
		Count int64  `gorm:"column:count"`
	}

	q := s.db.WithContext(ctx).
		Model(&domain.Click{}).
		Select(fmt.Sprintf("COALESCE(NULLIF(%s, ''), 'Unknown') as value, count(*) as count", dimension)).
		Where("url_id = ?", urlID)
	if since != nil {
		q = q.Where("clicked_at >= ?", *since)
	}

	if err := q.Group("value").Find(&results).Error; err != nil {
		s.log.Error("failed to group clicks",
			zap.Int64("url_id", urlID),
			zap.String("dimension", dimension),
			zap.Error(err))
		return nil, fmt.Errorf("failed to group clicks: %w", err)
	}

	grouped := make(map[string]int64, len(results))
	for _, r := range results {
		grouped[r.Value] = r.Count
	}

	return grouped, nil
}
