package registry

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"parkalert/internal/bootstrap/logging"
	"parkalert/internal/domain/parking"
	"parkalert/internal/errs"
	"parkalert/internal/ports"
)

// ResolveOwner maps an identifier to its owner account. It is safe for
// anonymous callers and read-through cached.
func (s *Service) ResolveOwner(ctx context.Context, identifierHash string) (string, error) {
	if ctx == nil {
		return "", errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return "", errs.Wrap(err, "check context")
	}
	if s.repo == nil {
		return "", errors.New("registry repository is required")
	}

	hash, err := parking.NormalizeIdentifierHash(identifierHash)
	if err != nil {
		return "", err
	}

	logCtx := logging.WithAttrs(ctx, slog.String("component", "usecase.registry"))
	key := ports.OwnerCacheKey(hash)
	if s.cache != nil {
		owner, found, err := s.cache.Get(ctx, key)
		if err != nil {
			logging.Warn(logCtx, "owner cache read failed", slog.Any("err", errs.Loggable(err)))
		} else if found && owner != "" {
			return owner, nil
		}
	}

	identifier, err := s.repo.GetIdentifier(ctx, hash)
	if err != nil {
		return "", err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, identifier.OwnerAccountID, ownerCacheTTL); err != nil {
			logging.Warn(logCtx, "owner cache write failed", slog.Any("err", errs.Loggable(err)))
		}
	}
	return identifier.OwnerAccountID, nil
}

func (s *Service) Get(ctx context.Context, identifierHash string) (parking.Identifier, error) {
	if ctx == nil {
		return parking.Identifier{}, errors.New("context is required")
	}
	if s.repo == nil {
		return parking.Identifier{}, errors.New("registry repository is required")
	}
	hash, err := parking.NormalizeIdentifierHash(identifierHash)
	if err != nil {
		return parking.Identifier{}, err
	}
	return s.repo.GetIdentifier(ctx, hash)
}

func (s *Service) ListByOwner(ctx context.Context, ownerAccountID string) ([]parking.Identifier, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, errs.Wrap(err, "check context")
	}
	if s.repo == nil {
		return nil, errors.New("registry repository is required")
	}
	owner := strings.TrimSpace(ownerAccountID)
	if owner == "" {
		return nil, parking.ErrAccountIDRequired
	}
	return s.repo.ListIdentifiersByOwner(ctx, owner)
}
