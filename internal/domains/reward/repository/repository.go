package repository

//go:generate go run go.uber.org/mock/mockgen -source=./repository.go -destination=../mocks/repository_mock.go -package=mocks

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"stayhub/infras/otel"
	"stayhub/infras/postgres"
	"stayhub/internal/domains/reward/model"
	"stayhub/shared/constant"
	gDto "stayhub/shared/dto"
	"stayhub/shared/logger"
	gRepo "stayhub/shared/repository"
	"stayhub/shared/timezone"

	"github.com/lib/pq"
)

var (
	ErrInsufficientBalance = errors.New("insufficient reward balance")
	ErrDuplicateEntry      = errors.New("reward entry already recorded")
)

// The row lock taken by the upsert serialises concurrent appends for one host.
const queryApplyDelta = `
	INSERT INTO reward_balances (host_id, balance, modified_at)
	VALUES ($1, $2, $3)
	ON CONFLICT (host_id) DO UPDATE
	SET balance = reward_balances.balance + EXCLUDED.balance, modified_at = EXCLUDED.modified_at
	RETURNING balance`

const queryBalance = `SELECT balance FROM reward_balances WHERE host_id = $1`

type Reward interface {
	Append(ctx context.Context, entry model.Entry) (model.Entry, error)
	Balance(ctx context.Context, hostID string) (int64, error)
	History(ctx context.Context, hostID string, params gDto.QueryParams) ([]model.Entry, error)
	CountHistory(ctx context.Context, hostID string) (int, error)
}

type repositoryImpl struct {
	gRepo.Repository[model.Entry]
	db   *postgres.Connection
	otel otel.Otel
}

func New(db *postgres.Connection, otel otel.Otel) Reward {
	return &repositoryImpl{
		Repository: gRepo.NewRepository[model.Entry](model.EntityName, model.TableName, model.FieldID, db, otel),
		db:         db,
		otel:       otel,
	}
}

// Append applies entry.Delta to the host balance and records the entry in one
// transaction. A resulting negative balance rolls everything back.
func (r *repositoryImpl) Append(ctx context.Context, entry model.Entry) (res model.Entry, err error) {
	ctx, scope := r.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".reward.Append")
	defer scope.End()
	defer scope.TraceIfError(&err)

	tx, err := r.db.Write.BeginTxx(ctx, nil)
	if err != nil {
		logger.ErrorWithStack(err)

		return res, fmt.Errorf("failed to begin transaction (%s): %w", model.EntityName, err)
	}

	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	scope.SetAttribute(constant.OtelQueryAttributeKey, queryApplyDelta)

	var balance int64
	if err = tx.QueryRowxContext(ctx, queryApplyDelta, entry.HostID, entry.Delta, timezone.Now()).Scan(&balance); err != nil {
		logger.ErrorWithStack(err)

		return res, fmt.Errorf("failed to apply reward delta: %w", err)
	}

	if balance < 0 {
		return res, ErrInsufficientBalance
	}

	entry.BalanceAfter = balance

	if err = r.InsertTx(ctx, tx, entry); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == constant.PqErrorCodeUniqueViolation {
			return res, ErrDuplicateEntry
		}

		return res, err //nolint:wrapcheck
	}

	if err = tx.Commit(); err != nil {
		logger.ErrorWithStack(err)

		return res, fmt.Errorf("failed to commit reward entry: %w", err)
	}

	committed = true

	return entry, nil
}

// Balance returns zero for hosts that have never been awarded.
func (r *repositoryImpl) Balance(ctx context.Context, hostID string) (balance int64, err error) {
	ctx, scope := r.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".reward.Balance")
	defer scope.End()
	defer scope.TraceIfError(&err)

	scope.SetAttribute(constant.OtelQueryAttributeKey, queryBalance)

	err = r.db.Read.QueryRowxContext(ctx, queryBalance, hostID).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}

	if err != nil {
		logger.ErrorWithStack(err)

		return 0, fmt.Errorf("failed to get reward balance: %w", err)
	}

	return balance, nil
}

func (r *repositoryImpl) History(ctx context.Context, hostID string, params gDto.QueryParams) ([]model.Entry, error) {
	params.SortBy = model.TableName + "." + constant.FieldCreatedAt
	params.SortDir = gDto.SortDirDesc

	return r.GetAll(ctx, params, byHost(hostID)) //nolint:wrapcheck
}

func (r *repositoryImpl) CountHistory(ctx context.Context, hostID string) (int, error) {
	return r.Count(ctx, byHost(hostID)) //nolint:wrapcheck
}

func byHost(hostID string) gDto.FilterGroup {
	return gDto.FilterGroup{
		Filters: []any{
			gDto.Filter{Field: model.FieldHostID, Value: hostID, Operator: gDto.FilterOperatorEq, Table: model.TableName},
		},
	}
}
