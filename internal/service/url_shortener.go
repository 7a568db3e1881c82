package service

import (
	"SnapLink-Backend/internal/config"
	"SnapLink-Backend/internal/domain"
	"SnapLink-Backend/internal/repository"
	"SnapLink-Backend/pkg/random"
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"
)

const maxRetries = 5

var (
	ErrInvalidURL    = errors.New("invalid url")
	ErrSuspiciousURL = errors.New("url appears to be suspicious")
	ErrCodeExhausted = errors.New("could not allocate a unique short code")
)

// suspiciousPatterns rejects nested shorteners and direct executable downloads.
var suspiciousPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)bit\.ly`),
	regexp.MustCompile(`(?i)tinyurl`),
	regexp.MustCompile(`(?i)short\.link`),
	regexp.MustCompile(`(?i)\.exe$`),
	regexp.MustCompile(`(?i)\.scr$`),
	regexp.MustCompile(`(?i)\.bat$`),
}

// CreateURLInput carries everything a creation request may supply.
type CreateURLInput struct {
	OriginalURL string
	CustomAlias string
	ExpiresAt   *time.Time
	Tags        []string
	Password    string
	// Nil for anonymous creation.
	UserID *int64
}

// CreateURLResult is the creation outcome returned to the handler.
type CreateURLResult struct {
	URL         *domain.URL
	ShortURL    string
	IsDuplicate bool
}

// URLShortenerService handles link creation: validation, code allocation,
// deduplication and the best-effort enrichment steps (QR code, AI analysis).
type URLShortenerService struct {
	storage  repository.Storage
	analyzer Analyzer
	config   *config.URLShortener
	log      *zap.Logger
}

func NewURLShortener(storage repository.Storage, analyzer Analyzer, cfg *config.URLShortener, log *zap.Logger) *URLShortenerService {
	return &URLShortenerService{
		storage:  storage,
		analyzer: analyzer,
		config:   cfg,
		log:      log,
	}
}

// Create validates the input, allocates a short code and persists the link.
//
// Signed-in creations are deduplicated by (owner, original URL): a repeat
// submission returns the existing record flagged as a duplicate instead of
// creating a new one. QR generation and AI analysis never fail a creation;
// their errors are logged and swallowed.
func (s *URLShortenerService) Create(ctx context.Context, in CreateURLInput) (*CreateURLResult, error) {
	if err := ValidateOriginalURL(in.OriginalURL); err != nil {
		return nil, err
	}

	if in.UserID != nil {
		existing, err := s.storage.FindUserURLByOriginal(ctx, *in.UserID, in.OriginalURL)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("failed to check for duplicate: %w", err)
		}
		if existing != nil {
			return &CreateURLResult{
				URL:         existing,
				ShortURL:    s.shortURL(existing.ShortCode),
				IsDuplicate: true,
			}, nil
		}
	}

	code, customAlias, err := s.allocateCode(ctx, in.CustomAlias)
	if err != nil {
		return nil, err
	}

	link := &domain.URL{
		ShortCode:   code,
		CustomAlias: customAlias,
		OriginalURL: in.OriginalURL,
		UserID:      in.UserID,
		IsActive:    true,
		ExpiresAt:   in.ExpiresAt,
		Tags:        in.Tags,
		RiskLevel:   domain.RiskLow,
	}
	if in.Password != "" {
		link.Password = &in.Password
	}

	shortURL := s.shortURL(code)

	// Best-effort enrichment. Neither step may fail the creation.
	if qr, err := GenerateQRCode(shortURL); err != nil {
		s.log.Warn("qr code generation failed", zap.String("short_code", code), zap.Error(err))
	} else {
		link.QRCode = &qr
	}

	if in.UserID != nil && s.analyzer != nil {
		report, err := s.analyzer.Analyze(ctx, in.OriginalURL)
		if err != nil {
			s.log.Warn("url analysis failed", zap.String("short_code", code), zap.Error(err))
		} else {
			link.AISuggestions = &report.Summary
			link.RiskLevel = report.RiskLevel
			link.IsAnalyzed = true
		}
	}

	if err := s.storage.SaveURL(ctx, link); err != nil {
		return nil, err
	}

	s.log.Info("created link",
		zap.String("short_code", code),
		zap.Bool("custom_alias", customAlias != nil),
		zap.Bool("anonymous", in.UserID == nil))

	return &CreateURLResult{URL: link, ShortURL: shortURL}, nil
}

// allocateCode validates a user-supplied alias or generates a fresh random
// code. Custom alias collisions are rejected outright; generated codes are
// retried up to maxRetries times before giving up.
func (s *URLShortenerService) allocateCode(ctx context.Context, customAlias string) (string, *string, error) {
	if customAlias != "" {
		taken, err := s.storage.CodeInUse(ctx, customAlias)
		if err != nil {
			return "", nil, fmt.Errorf("failed to check custom alias: %w", err)
		}
		if taken {
			return "", nil, repository.ErrCodeTaken
		}
		return customAlias, &customAlias, nil
	}

	for i := 0; i < maxRetries; i++ {
		code, err := random.NewRandomString(s.config.CodeLength)
		if err != nil {
			return "", nil, fmt.Errorf("failed to generate code: %w", err)
		}
		taken, err := s.storage.CodeInUse(ctx, code)
		if err != nil {
			return "", nil, fmt.Errorf("failed to check code: %w", err)
		}
		if !taken {
			return code, nil, nil
		}
	}

	return "", nil, ErrCodeExhausted
}

func (s *URLShortenerService) shortURL(code string) string {
	return strings.TrimSuffix(s.config.BaseURL, "/") + "/" + code
}

// ShortURLFor returns the public short URL for a code.
func (s *URLShortenerService) ShortURLFor(code string) string {
	return s.shortURL(code)
}

// ValidateOriginalURL checks that the destination is a well-formed http or
// https URL and not an obvious nested shortener or executable download.
func ValidateOriginalURL(raw string) error {
	if raw == "" {
		return ErrInvalidURL
	}

	u, err := url.Parse(raw)
	if err != nil {
		return ErrInvalidURL
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ErrInvalidURL
	}

	for _, pattern := range suspiciousPatterns {
		if pattern.MatchString(raw) {
			return ErrSuspiciousURL
		}
	}

	return nil
}
