package memory

import (
	"SnapLink-Backend/internal/domain"
	"SnapLink-Backend/internal/repository"
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemStorage is an in-memory Storage implementation used for tests and
// storage-free local runs. All methods are safe for concurrent use.
type MemStorage struct {
	mu           sync.RWMutex
	urls         map[int64]*domain.URL
	clicks       map[int64][]*domain.Click
	usersByEmail map[string]*domain.User
	urlCounter   int64
	clickCounter int64
	userCounter  int64
}

func New() *MemStorage {
	return &MemStorage{
		urls:         make(map[int64]*domain.URL),
		clicks:       make(map[int64][]*domain.Click),
		usersByEmail: make(map[string]*domain.User),
	}
}

// --- User Methods ---

func (s *MemStorage) CreateUser(_ context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.usersByEmail[user.Email]; exists {
		return repository.ErrDuplicateEmail
	}

	s.userCounter++
	user.ID = s.userCounter
	user.CreatedAt = time.Now()
	s.usersByEmail[user.Email] = user
	return nil
}

func (s *MemStorage) GetUserByEmail(_ context.Context, email string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.usersByEmail[email]
	if !ok || !user.IsActive {
		return nil, repository.ErrNotFound
	}
	return user, nil
}

func (s *MemStorage) GetUserByID(_ context.Context, id int64) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, user := range s.usersByEmail {
		if user.ID == id && user.IsActive {
			return user, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *MemStorage) TouchLastLogin(_ context.Context, userID int64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, user := range s.usersByEmail {
		if user.ID == userID {
			user.LastLogin = &at
			return nil
		}
	}
	return repository.ErrNotFound
}

// --- URL Methods ---

func (s *MemStorage) SaveURL(_ context.Context, url *domain.URL) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.codeInUseLocked(url.ShortCode) {
		return repository.ErrCodeTaken
	}
	if url.CustomAlias != nil && s.codeInUseLocked(*url.CustomAlias) {
		return repository.ErrCodeTaken
	}

	s.urlCounter++
	url.ID = s.urlCounter
	if url.CreatedAt.IsZero() {
		url.CreatedAt = time.Now()
	}
	s.urls[url.ID] = url
	return nil
}

func (s *MemStorage) GetURLByCode(_ context.Context, code string) (*domain.URL, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, url := range s.urls {
		if url.ShortCode == code || (url.CustomAlias != nil && *url.CustomAlias == code) {
			return url, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *MemStorage) GetURLByID(_ context.Context, id int64) (*domain.URL, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	url, ok := s.urls[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return url, nil
}

func (s *MemStorage) FindUserURLByOriginal(_ context.Context, userID int64, originalURL string) (*domain.URL, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, url := range s.urls {
		if url.UserID != nil && *url.UserID == userID && url.OriginalURL == originalURL {
			return url, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *MemStorage) CodeInUse(_ context.Context, code string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.codeInUseLocked(code), nil
}

func (s *MemStorage) codeInUseLocked(code string) bool {
	for _, url := range s.urls {
		if url.ShortCode == code || (url.CustomAlias != nil && *url.CustomAlias == code) {
			return true
		}
	}
	return false
}

func (s *MemStorage) ListUserURLs(_ context.Context, userID int64, offset, limit int) ([]*domain.URL, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var urls []*domain.URL
	for _, url := range s.urls {
		if url.UserID != nil && *url.UserID == userID {
			urls = append(urls, url)
		}
	}

	sort.Slice(urls, func(i, j int) bool {
		return urls[i].CreatedAt.After(urls[j].CreatedAt)
	})

	total := int64(len(urls))
	if limit > 0 {
		if offset >= len(urls) {
			return nil, total, nil
		}
		end := offset + limit
		if end > len(urls) {
			end = len(urls)
		}
		urls = urls[offset:end]
	}

	return urls, total, nil
}

func (s *MemStorage) DeleteURL(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.urls[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.clicks, id)
	delete(s.urls, id)
	return nil
}

func (s *MemStorage) UpdateQRCode(_ context.Context, id int64, dataURL string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	url, ok := s.urls[id]
	if !ok {
		return repository.ErrNotFound
	}
	url.QRCode = &dataURL
	return nil
}

func (s *MemStorage) IncrementClicks(_ context.Context, id int64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	url, ok := s.urls[id]
	if !ok {
		return repository.ErrNotFound
	}
	url.Clicks++
	url.LastClicked = &at
	return nil
}

// --- Click Methods ---

func (s *MemStorage) SaveClick(_ context.Context, click *domain.Click) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.clickCounter++
	click.ID = s.clickCounter
	if click.ClickedAt.IsZero() {
		click.ClickedAt = time.Now()
	}
	s.clicks[click.URLID] = append(s.clicks[click.URLID], click)
	return nil
}

func (s *MemStorage) ListClicks(_ context.Context, urlID int64, since *time.Time) ([]*domain.Click, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.Click
	for _, click := range s.clicks[urlID] {
		if since == nil || !click.ClickedAt.Before(*since) {
			out = append(out, click)
		}
	}
	return out, nil
}

func (s *MemStorage) CountClicks(ctx context.Context, urlID int64, since *time.Time) (int64, error) {
	clicks, _ := s.ListClicks(ctx, urlID, since)
	return int64(len(clicks)), nil
}

func (s *MemStorage) CountUniqueIPs(ctx context.Context, urlID int64, since *time.Time) (int64, error) {
	clicks, _ := s.ListClicks(ctx, urlID, since)
	ips := make(map[string]struct{})
	for _, click := range clicks {
		ips[click.IP] = struct{}{}
	}
	return int64(len(ips)), nil
}

func (s *MemStorage) GroupClicks(ctx context.Context, urlID int64, dimension string, since *time.Time) (map[string]int64, error) {
	clicks, err := s.ListClicks(ctx, urlID, since)
	if err != nil {
		return nil, err
	}

	grouped := make(map[string]int64)
	for _, click := range clicks {
		var value string
		switch dimension {
		case repository.DimDevice:
			value = click.Device
		case repository.DimBrowser:
			value = click.Browser
		case repository.DimOS:
			value = click.OS
		case repository.DimCountry:
			value = click.Country
		default:
			return nil, fmt.Errorf("unknown dimension: %s", dimension)
		}
		if strings.TrimSpace(value) == "" {
			value = "Unknown"
		}
		grouped[value]++
	}
	return grouped, nil
}
