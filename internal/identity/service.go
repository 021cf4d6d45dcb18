package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/congo-pay/walletledger/internal/logging"
	"github.com/congo-pay/walletledger/internal/storage"
	"github.com/congo-pay/walletledger/internal/wallet"
)

// Service manages the user lifecycle and the wallet each user owns.
type Service struct {
	units   storage.Manager
	repo    Repository
	wallets *wallet.Service
	logger  *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logging.Component(logger, "identity") }
}

// NewService creates a new identity service.
func NewService(units storage.Manager, repo Repository, wallets *wallet.Service, opts ...Option) *Service {
	s := &Service{units: units, repo: repo, wallets: wallets, logger: logging.Component(nil, "identity")}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates a user together with its zero-balance wallet.
func (s *Service) Register(ctx context.Context, name, email string) (User, error) {
	name, email = strings.TrimSpace(name), strings.ToLower(strings.TrimSpace(email))
	if name == "" || email == "" {
		return User{}, ErrInvalidUser
	}

	user := User{Name: name, Email: email}
	err := storage.Within(ctx, s.units, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, &user); err != nil {
			return err
		}
		if err := s.wallets.Provision(ctx, user.ID); err != nil {
			return fmt.Errorf("provision wallet: %w", err)
		}
		return nil
	})
	if err != nil {
		return User{}, err
	}
	return user, nil
}

// Get retrieves a user.
func (s *Service) Get(ctx context.Context, id int64) (User, error) {
	return s.repo.Get(ctx, id)
}

// Names resolves display names for the given ids. Unknown ids are omitted.
func (s *Service) Names(ctx context.Context, ids []int64) (map[int64]string, error) {
	users, err := s.repo.GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}
	names := make(map[int64]string, len(users))
	for id, user := range users {
		names[id] = user.Name
	}
	return names, nil
}

// Delete removes a user and its wallet. Transaction records are kept.
// The cached balance is dropped once the removal has committed.
func (s *Service) Delete(ctx context.Context, id int64) error {
	err := storage.Within(ctx, s.units, func(ctx context.Context) error {
		if err := s.wallets.Remove(ctx, id); err != nil && !errors.Is(err, wallet.ErrWalletNotFound) {
			return fmt.Errorf("remove wallet: %w", err)
		}
		return s.repo.Delete(ctx, id)
	})
	if err != nil {
		return err
	}
	if err := s.wallets.ForgetBalance(context.WithoutCancel(ctx), id); err != nil {
		s.logger.Warn("cache invalidation failed", slog.Int64("user_id", id), slog.Any("error", err))
	}
	return nil
}
