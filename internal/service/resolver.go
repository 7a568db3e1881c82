package service

import (
	"SnapLink-Backend/internal/domain"
	"SnapLink-Backend/internal/repository"
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Disposition classifies the outcome of resolving a short code.
type Disposition int

const (
	DispositionRedirect Disposition = iota
	DispositionNotFound
	DispositionDisabled
	DispositionExpired
	DispositionPasswordRequired
	DispositionPasswordInvalid
)

func (d Disposition) String() string {
	switch d {
	case DispositionRedirect:
		return "redirect"
	case DispositionNotFound:
		return "not_found"
	case DispositionDisabled:
		return "disabled"
	case DispositionExpired:
		return "expired"
	case DispositionPasswordRequired:
		return "password_required"
	case DispositionPasswordInvalid:
		return "password_invalid"
	default:
		return "unknown"
	}
}

// Resolution is the result of one resolution attempt. URL is set for every
// disposition except NotFound so callers can record or log against the record.
type Resolution struct {
	Disposition Disposition
	URL         *domain.URL
}

// Resolver turns a short code (or custom alias) plus an optional password into
// a disposition. It performs no side effects; click recording is the caller's
// concern.
type Resolver struct {
	storage repository.Storage
	log     *zap.Logger
	now     func() time.Time
}

func NewResolver(storage repository.Storage, log *zap.Logger) *Resolver {
	return &Resolver{
		storage: storage,
		log:     log,
		now:     time.Now,
	}
}

// Resolve evaluates checks in a fixed order: existence, active flag,
// expiration, password. The active flag yields a distinct Disabled disposition;
// the public redirect surface folds it into not-found, the JSON surface
// reports it as 403.
func (r *Resolver) Resolve(ctx context.Context, code string, password string) (Resolution, error) {
	url, err := r.storage.GetURLByCode(ctx, code)
	if errors.Is(err, repository.ErrNotFound) {
		return Resolution{Disposition: DispositionNotFound}, nil
	}
	if err != nil {
		return Resolution{}, fmt.Errorf("failed to look up code: %w", err)
	}

	if !url.IsActive {
		r.log.Debug("resolved disabled link", zap.String("code", code))
		return Resolution{Disposition: DispositionDisabled, URL: url}, nil
	}

	if url.Expired(r.now()) {
		return Resolution{Disposition: DispositionExpired, URL: url}, nil
	}

	if url.Protected() {
		if password == "" {
			return Resolution{Disposition: DispositionPasswordRequired, URL: url}, nil
		}
		// Byte-exact comparison is the observed contract; see the model note
		// on plaintext storage.
		if password != *url.Password {
			return Resolution{Disposition: DispositionPasswordInvalid, URL: url}, nil
		}
	}

	return Resolution{Disposition: DispositionRedirect, URL: url}, nil
}
