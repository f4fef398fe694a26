package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"algo-transfers/internal/builder"
	"algo-transfers/internal/domain"
	"algo-transfers/internal/errors"
)

// Account is the balance view served to clients. Amounts are in Algos.
type Account struct {
	Address    string          `json:"address"`
	Balance    decimal.Decimal `json:"balance"`
	MinBalance decimal.Decimal `json:"min_balance"`
	MicroAlgos uint64          `json:"micro_algos"`
	Round      uint64          `json:"round"`
	Status     string          `json:"status"`
}

// AccountService looks up balances on the node. Answers are cached per
// address for a short TTL and concurrent misses for the same address share
// one node call.
type AccountService struct {
	ledger  domain.LedgerClient
	cache   *ttlcache.Cache[string, domain.AccountInfo]
	sfGroup *singleflight.Group
	logger  *slog.Logger
}

func NewAccountService(ledger domain.LedgerClient, cacheTTL time.Duration, logger *slog.Logger) *AccountService {
	cache := ttlcache.New[string, domain.AccountInfo](
		ttlcache.WithTTL[string, domain.AccountInfo](cacheTTL),
		ttlcache.WithDisableTouchOnHit[string, domain.AccountInfo](),
	)
	return &AccountService{
		ledger:  ledger,
		cache:   cache,
		sfGroup: &singleflight.Group{},
		logger:  logger,
	}
}

// Start runs the cache's expiry loop and blocks until Stop is called.
func (s *AccountService) Start() {
	s.cache.Start()
}

func (s *AccountService) Stop() {
	s.cache.Stop()
}

func (s *AccountService) GetAccount(ctx context.Context, address string) (*Account, error) {
	if !builder.IsValidAddress(address) {
		return nil, errors.NewAppError(errors.InvalidAddress, "invalid account address")
	}

	v, err, _ := s.sfGroup.Do(address, func() (interface{}, error) {
		if item := s.cache.Get(address); item != nil {
			return item.Value(), nil
		}

		// The fetch is shared by every caller waiting on this key, so it must
		// not end with the first caller's context.
		info, err := s.ledger.AccountInfo(context.WithoutCancel(ctx), address)
		if err != nil {
			return nil, fmt.Errorf("fetching account %s: %w", address, err)
		}
		s.cache.Set(address, info, ttlcache.DefaultTTL)
		return info, nil
	})
	if err != nil {
		s.logger.Error("Failed to get account", "address", address, "error", err)
		return nil, errors.Wrap(errors.NetworkUnavailable, "failed to fetch account information", err)
	}

	info, ok := v.(domain.AccountInfo)
	if !ok {
		return nil, errors.NewAppErrorf(errors.InternalError, "invalid type assertion for account: got %T", v)
	}

	return &Account{
		Address:    address,
		Balance:    builder.FromBaseUnits(info.Amount),
		MinBalance: builder.FromBaseUnits(info.MinBalance),
		MicroAlgos: info.Amount,
		Round:      info.Round,
		Status:     info.Status,
	}, nil
}
