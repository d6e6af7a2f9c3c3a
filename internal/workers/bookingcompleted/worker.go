package bookingcompleted

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"stayhub/config"
	"stayhub/infras/kafka"
	"stayhub/infras/otel"
	listingService "stayhub/internal/domains/listing/service"
	rewardModel "stayhub/internal/domains/reward/model"
	rewardDto "stayhub/internal/domains/reward/model/dto"
	rewardService "stayhub/internal/domains/reward/service"
	"stayhub/shared"
	"stayhub/shared/cache"
	"stayhub/shared/constant"
	"stayhub/shared/failure"
	"stayhub/shared/timezone"
	"stayhub/shared/validator"

	"github.com/rs/zerolog/log"
	kafkaGo "github.com/segmentio/kafka-go"
)

const (
	cacheProcessed     = "processed"
	actorName          = "booking-completed-worker"
	defaultPoints      = 10
	defaultDedupeTTL   = 7 * 24 * 60 * 60
	otelAttrEventID    = "event_id"
	otelAttrListingID  = "listing_id"
	otelAttrBookingID  = "booking_id"
	otelAttrHostID     = "host_id"
	otelAttrOffset     = "kafka.offset"
	otelAttrDuplicated = "duplicate"
)

// Event is published by the booking service when a stay or session ends.
type Event struct {
	EventID     string    `json:"event_id"     validate:"required"`
	BookingID   string    `json:"booking_id"   validate:"required"`
	ListingID   string    `json:"listing_id"   validate:"required"`
	CompletedAt time.Time `json:"completed_at"`
}

// receipt is cached once an event is fully handled. It only lets redeliveries
// skip the database; the counter and the ledger are idempotent on their own.
type receipt struct {
	HostID      string    `json:"host_id"`
	ProcessedAt time.Time `json:"processed_at"`
}

type Worker interface {
	Run(ctx context.Context) error
	Handle(ctx context.Context, msg kafkaGo.Message) error
}

type workerImpl struct {
	cfg      *config.Config
	kafka    kafka.Client
	cache    cache.RedisCache
	otel     otel.Otel
	listings listingService.Listing
	rewards  rewardService.Reward
}

func New(cfg *config.Config, kafka kafka.Client, cache cache.RedisCache, otel otel.Otel, listings listingService.Listing, rewards rewardService.Reward) Worker {
	return &workerImpl{
		cfg:      cfg,
		kafka:    kafka,
		cache:    cache,
		otel:     otel,
		listings: listings,
		rewards:  rewards,
	}
}

// Run consumes the booking-completed topic until ctx is cancelled.
func (w *workerImpl) Run(ctx context.Context) error {
	topic := w.cfg.Kafka.Topics.BookingCompleted

	log.Info().Str("topic", topic).Msg("booking completed worker started")

	if err := w.kafka.Consume(ctx, w.cfg.Kafka.ConsumerGroup, topic, w.Handle); err != nil {
		return fmt.Errorf("failed to consume %s: %w", topic, err)
	}

	log.Info().Str("topic", topic).Msg("booking completed worker stopped")

	return nil
}

func (w *workerImpl) Handle(ctx context.Context, msg kafkaGo.Message) (err error) {
	ctx, scope := w.otel.NewScope(ctx, constant.OtelWorkerScopeName, constant.OtelWorkerScopeName+".BookingCompleted")
	defer scope.End()
	defer scope.TraceIfError(&err)

	scope.SetAttribute(otelAttrOffset, msg.Offset)

	event, err := kafka.Decode[Event](msg)
	if err != nil {
		return kafka.Permanent(err)
	}

	if err = validator.ValidateStruct(&event); err != nil {
		log.Error().Err(err).Str("key", string(msg.Key)).Msg("invalid booking completed event")

		return kafka.Permanent(err)
	}

	scope.SetAttributes(map[string]any{
		otelAttrEventID:   event.EventID,
		otelAttrListingID: event.ListingID,
		otelAttrBookingID: event.BookingID,
	})

	key := shared.BuildCacheKey(cacheProcessed, event.EventID)

	if w.handled(ctx, key) {
		scope.SetAttribute(otelAttrDuplicated, true)
		log.Info().Str("event", event.EventID).Msg("booking completed event already handled")

		return nil
	}

	hostID, err := w.listings.RecordCompletedBooking(ctx, event.ListingID, event.BookingID)
	if err != nil {
		if failure.GetCode(err) == http.StatusNotFound {
			return kafka.Permanent(err)
		}

		return fmt.Errorf("failed to record completed booking: %w", err)
	}

	scope.SetAttribute(otelAttrHostID, hostID)

	if err = w.award(ctx, hostID, event.BookingID); err != nil {
		return err
	}

	if err := w.cache.Save(ctx, key, receipt{HostID: hostID, ProcessedAt: timezone.Now()}, w.dedupeTTL()); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("failed to save booking completed receipt")
	}

	log.Info().Str("event", event.EventID).Str("listing", event.ListingID).Str("host", hostID).Msg("booking completed event handled")

	return nil
}

// handled reports whether a receipt exists for key. Lookup errors fall
// through to the database path.
func (w *workerImpl) handled(ctx context.Context, key string) bool {
	var res receipt

	err := w.cache.Get(ctx, key, &res)
	if err == nil {
		return true
	}

	if !errors.Is(err, cache.Nil) {
		log.Warn().Err(err).Str("key", key).Msg("failed to read booking completed receipt")
	}

	return false
}

func (w *workerImpl) award(ctx context.Context, hostID, bookingID string) error {
	points := w.cfg.Reward.PointsPerCompletedBooking
	if points <= 0 {
		points = defaultPoints
	}

	actorCtx := context.WithValue(ctx, constant.ContextKeyUserID, actorName)

	_, err := w.rewards.Award(actorCtx, rewardDto.AwardRequest{
		HostID: hostID,
		Delta:  points,
		Reason: rewardModel.BookingCompletedReason(bookingID),
	})
	if err == nil {
		return nil
	}

	// The ledger rejects a second entry with the same booking reason.
	if failure.GetCode(err) == http.StatusConflict {
		log.Warn().Err(err).Str("booking", bookingID).Msg("reward already recorded for booking")

		return nil
	}

	return fmt.Errorf("failed to award booking points: %w", err)
}

func (w *workerImpl) dedupeTTL() int {
	if w.cfg.Reward.DedupeTTLSeconds > 0 {
		return w.cfg.Reward.DedupeTTLSeconds
	}

	return defaultDedupeTTL
}
