package service

//go:generate go run go.uber.org/mock/mockgen -source=./service.go -destination=./mocks/service_mock.go -package=mocks

import (
	"context"
	"errors"
	"fmt"

	"stayhub/config"
	"stayhub/infras/otel"
	"stayhub/internal/domains/reward/model/dto"
	"stayhub/internal/domains/reward/repository"
	"stayhub/shared"
	"stayhub/shared/cache"
	"stayhub/shared/constant"
	gDto "stayhub/shared/dto"
	"stayhub/shared/failure"

	"github.com/rs/zerolog/log"
)

const (
	cacheRewardBalance = "reward:balance"
	cacheRewardHistory = "reward:history"
)

type Reward interface {
	Award(ctx context.Context, req dto.AwardRequest) (dto.EntryResponse, error)
	Balance(ctx context.Context, hostID string) (dto.BalanceResponse, error)
	History(ctx context.Context, hostID string, params gDto.QueryParams) (dto.HistoryResponse, error)
}

type serviceImpl struct {
	repo  repository.Reward
	cfg   *config.Config
	cache cache.RedisCache
	otel  otel.Otel
}

func New(repo repository.Reward, cfg *config.Config, cache cache.RedisCache, otel otel.Otel) Reward {
	return &serviceImpl{
		repo:  repo,
		cfg:   cfg,
		cache: cache,
		otel:  otel,
	}
}

func (s *serviceImpl) Award(ctx context.Context, req dto.AwardRequest) (res dto.EntryResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Award")
	defer scope.End()
	defer scope.TraceIfError(&err)

	if req.Delta == 0 {
		return res, failure.BadRequestFromString("delta must not be zero")
	}

	actor, _ := ctx.Value(constant.ContextKeyUserID).(string)

	entry, err := s.repo.Append(ctx, req.ToModel(actor))
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrInsufficientBalance):
			return res, failure.Conflict("insufficient reward points")
		case errors.Is(err, repository.ErrDuplicateEntry):
			return res, failure.Conflict(err.Error())
		}

		log.Error().Err(err).Str("host", req.HostID).Msg("failed to append reward entry")

		return res, fmt.Errorf("failed to award points: %w", err)
	}

	go func() {
		c := context.WithoutCancel(ctx)

		if err := s.cache.Delete(c, shared.BuildCacheKey(cacheRewardBalance, req.HostID)); err != nil {
			log.Error().Err(err).Msg("failed to delete reward balance cache")
		}

		shared.InvalidateCaches(c, s.cache, shared.BuildCacheKey(cacheRewardHistory, req.HostID))
	}()

	res.FromModel(entry)

	return res, nil
}

func (s *serviceImpl) Balance(ctx context.Context, hostID string) (res dto.BalanceResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Balance")
	defer scope.End()
	defer scope.TraceIfError(&err)

	cacheKey := shared.BuildCacheKey(cacheRewardBalance, hostID)

	if err = s.cache.Get(ctx, cacheKey, &res); err == nil {
		log.Info().Str("cacheKey", cacheKey).Msg("cache hit for reward balance")

		return res, nil
	}

	balance, err := s.repo.Balance(ctx, hostID)
	if err != nil {
		log.Error().Err(err).Msg("failed to get reward balance")

		return res, failure.Unavailable("reward balance unavailable")
	}

	res = dto.BalanceResponse{HostID: hostID, Balance: balance}

	go func() {
		c := context.WithoutCancel(ctx)

		if err := s.cache.Save(c, cacheKey, res, s.cfg.Cache.TTL); err != nil {
			log.Error().Err(err).Msg("failed to save reward balance to cache")
		}
	}()

	return res, nil
}

func (s *serviceImpl) History(ctx context.Context, hostID string, params gDto.QueryParams) (res dto.HistoryResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".History")
	defer scope.End()
	defer scope.TraceIfError(&err)

	cacheKey := shared.BuildCacheKeyWithQuery(shared.BuildCacheKey(cacheRewardHistory, hostID), params)

	if err = s.cache.Get(ctx, cacheKey, &res); err == nil {
		log.Info().Str("cacheKey", cacheKey).Msg("cache hit for reward history")

		return res, nil
	}

	total, err := s.repo.CountHistory(ctx, hostID)
	if err != nil {
		log.Error().Err(err).Msg("failed to count reward entries")

		return res, failure.Unavailable("reward history unavailable")
	}

	entries, err := s.repo.History(ctx, hostID, params)
	if err != nil {
		log.Error().Err(err).Msg("failed to get reward entries")

		return res, failure.Unavailable("reward history unavailable")
	}

	res.FromModels(entries, total, params.Limit)

	go func() {
		c := context.WithoutCancel(ctx)

		if err := s.cache.Save(c, cacheKey, res, s.cfg.Cache.TTL); err != nil {
			log.Error().Err(err).Msg("failed to save reward history to cache")
		}
	}()

	return res, nil
}
