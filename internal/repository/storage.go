package repository

import (
	"SnapLink-Backend/internal/domain"
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound       = errors.New("record not found")
	ErrCodeTaken      = errors.New("short code or alias already taken")
	ErrDuplicateEmail = errors.New("email already registered")
)

// Dimension columns accepted by GroupClicks.
const (
	DimDevice  = "device"
	DimBrowser = "browser"
	DimOS      = "os"
	DimCountry = "country"
)

// Storage is the persistence boundary for all components. Implementations are
// constructed once at process start and injected; no package-level handles.
type Storage interface {
	// User methods
	CreateUser(ctx context.Context, user *domain.User) error
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	GetUserByID(ctx context.Context, id int64) (*domain.User, error)
	TouchLastLogin(ctx context.Context, userID int64, at time.Time) error

	// URL methods
	SaveURL(ctx context.Context, url *domain.URL) error
	// GetURLByCode matches against short code or custom alias with equal
	// priority. It does not filter on the active flag; dispositions are the
	// resolver's job.
	GetURLByCode(ctx context.Context, code string) (*domain.URL, error)
	GetURLByID(ctx context.Context, id int64) (*domain.URL, error)
	FindUserURLByOriginal(ctx context.Context, userID int64, originalURL string) (*domain.URL, error)
	CodeInUse(ctx context.Context, code string) (bool, error)
	// ListUserURLs returns a page of the user's links, newest first, plus the
	// total count. limit <= 0 returns everything.
	ListUserURLs(ctx context.Context, userID int64, offset, limit int) ([]*domain.URL, int64, error)
	// DeleteURL removes the link and all of its click events.
	DeleteURL(ctx context.Context, id int64) error
	UpdateQRCode(ctx context.Context, id int64, dataURL string) error
	// IncrementClicks issues a single atomic add on the click counter and
	// stamps last_clicked. It is independent of SaveClick; no transaction
	// spans the two.
	IncrementClicks(ctx context.Context, id int64, at time.Time) error

	// Click methods
	SaveClick(ctx context.Context, click *domain.Click) error
	ListClicks(ctx context.Context, urlID int64, since *time.Time) ([]*domain.Click, error)
	CountClicks(ctx context.Context, urlID int64, since *time.Time) (int64, error)
	CountUniqueIPs(ctx context.Context, urlID int64, since *time.Time) (int64, error)
	// GroupClicks returns counts grouped by one of the Dim* columns.
	GroupClicks(ctx context.Context, urlID int64, dimension string, since *time.Time) (map[string]int64, error)
}
