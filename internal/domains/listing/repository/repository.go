package repository

//go:generate go run go.uber.org/mock/mockgen -source=./repository.go -destination=../mocks/repository_mock.go -package=mocks

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"stayhub/infras/otel"
	"stayhub/infras/postgres"
	"stayhub/internal/domains/listing/model"
	"stayhub/shared/constant"
	gDto "stayhub/shared/dto"
	"stayhub/shared/logger"
	gRepo "stayhub/shared/repository"
	"stayhub/shared/timezone"
)

const (
	queryLockListingHost = `SELECT host_id FROM listings WHERE id = $1 FOR UPDATE`

	queryRecordCompletedBooking = `
	INSERT INTO completed_bookings (booking_id, listing_id, created_at)
	VALUES ($1, $2, $3)
	ON CONFLICT (booking_id) DO NOTHING`

	queryIncrementCompletedBookings = `
	UPDATE listings
	SET completed_bookings_count = completed_bookings_count + 1, modified_at = $2
	WHERE id = $1`
)

type Listing interface {
	Insert(ctx context.Context, model model.Listing) error
	Get(ctx context.Context, filter gDto.FilterGroup, columns ...string) (model.Listing, error)
	GetAll(ctx context.Context, params gDto.QueryParams, filter gDto.FilterGroup, columns ...string) ([]model.Listing, error)
	Count(ctx context.Context, filter gDto.FilterGroup) (int, error)
	Update(ctx context.Context, req map[string]any, filter gDto.FilterGroup) error
	GetVisible(ctx context.Context, kind string) ([]model.Listing, error)
	IncrementCompletedBookings(ctx context.Context, id, bookingID string) (hostID string, counted bool, err error)
}

type repositoryImpl struct {
	gRepo.Repository[model.Listing]
	db   *postgres.Connection
	otel otel.Otel
}

func New(db *postgres.Connection, otel otel.Otel) Listing {
	return &repositoryImpl{
		Repository: gRepo.NewRepository[model.Listing](model.EntityName, model.TableName, model.FieldID, db, otel),
		db:         db,
		otel:       otel,
	}
}

// GetVisible loads every published, non-archived listing of kind, newest first.
func (r *repositoryImpl) GetVisible(ctx context.Context, kind string) ([]model.Listing, error) {
	ctx, scope := r.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".listing.GetVisible")
	defer scope.End()

	filter := gDto.FilterGroup{
		Operator: gDto.FilterGroupOperatorAnd,
		Filters: []any{
			gDto.Filter{Field: model.FieldKind, Value: kind, Operator: gDto.FilterOperatorEq, Table: model.TableName},
			gDto.Filter{Field: model.FieldStatus, Value: model.StatusPublished, Operator: gDto.FilterOperatorEq, Table: model.TableName},
			gDto.Filter{Field: model.FieldArchived, Value: false, Operator: gDto.FilterOperatorEq, Table: model.TableName},
		},
	}

	params := gDto.QueryParams{
		SortBy:  model.TableName + "." + constant.FieldCreatedAt,
		SortDir: gDto.SortDirDesc,
	}

	return r.GetAll(ctx, params, filter) //nolint:wrapcheck
}

// IncrementCompletedBookings adds one to the counter of listing id unless
// bookingID was already recorded. hostID is empty when the listing does not
// exist; counted is false when the booking had been counted before.
func (r *repositoryImpl) IncrementCompletedBookings(ctx context.Context, id, bookingID string) (hostID string, counted bool, err error) {
	ctx, scope := r.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".listing.IncrementCompletedBookings")
	defer scope.End()
	defer scope.TraceIfError(&err)

	tx, err := r.db.Write.BeginTxx(ctx, nil)
	if err != nil {
		logger.ErrorWithStack(err)

		return constant.Empty, false, fmt.Errorf("failed to begin transaction (%s): %w", model.EntityName, err)
	}

	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	err = tx.QueryRowxContext(ctx, queryLockListingHost, id).Scan(&hostID)
	if errors.Is(err, sql.ErrNoRows) {
		return constant.Empty, false, nil
	}

	if err != nil {
		logger.ErrorWithStack(err)

		return constant.Empty, false, fmt.Errorf("failed to lock listing (%s): %w", model.EntityName, err)
	}

	now := timezone.Now()

	scope.SetAttribute(constant.OtelQueryAttributeKey, queryRecordCompletedBooking)

	result, err := tx.ExecContext(ctx, queryRecordCompletedBooking, bookingID, id, now)
	if err != nil {
		logger.ErrorWithStack(err)

		return constant.Empty, false, fmt.Errorf("failed to record completed booking (%s): %w", model.EntityName, err)
	}

	inserted, err := result.RowsAffected()
	if err != nil {
		return constant.Empty, false, fmt.Errorf("failed to read affected rows (%s): %w", model.EntityName, err)
	}

	if inserted > 0 {
		if _, err = tx.ExecContext(ctx, queryIncrementCompletedBookings, id, now); err != nil {
			logger.ErrorWithStack(err)

			return constant.Empty, false, fmt.Errorf("failed to increment completed bookings (%s): %w", model.EntityName, err)
		}
	}

	if err = tx.Commit(); err != nil {
		logger.ErrorWithStack(err)

		return constant.Empty, false, fmt.Errorf("failed to commit completed booking (%s): %w", model.EntityName, err)
	}

	committed = true

	return hostID, inserted > 0, nil
}
