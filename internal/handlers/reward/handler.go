package reward

import (
	"net/http"
	"stayhub/infras/otel"
	"stayhub/internal/domains/reward/model/dto"
	"stayhub/internal/domains/reward/service"
	"stayhub/shared/constant"
	gDto "stayhub/shared/dto"
	"stayhub/shared/validator"
	"stayhub/transport/http/response"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

type Handler struct {
	service service.Reward
	otel    otel.Otel
}

func New(service service.Reward, otel otel.Otel) Handler {
	return Handler{
		service: service,
		otel:    otel,
	}
}

func (handler *Handler) Router(router chi.Router) {
	router.Route("/rewards", func(routerGroup chi.Router) {
		routerGroup.Get("/me", handler.GetMyBalance)
		routerGroup.Get("/me/entries", handler.GetMyEntries)
		routerGroup.Get("/{hostID}", handler.GetHostBalance)
		routerGroup.Get("/{hostID}/entries", handler.GetHostEntries)
		routerGroup.Post("/{hostID}/entries", handler.AwardPoints)
	})
}

// GetMyBalance returns the calling host's reward balance.
// @Summary Get my reward balance
// @Tags Reward
// @Produce json
// @Success 200 {object} response.Data[dto.BalanceResponse]
// @Failure 503 {object} response.Error
// @Router /v1/rewards/me [get]
// @Security BearerAuth
func (handler *Handler) GetMyBalance(writer http.ResponseWriter, request *http.Request) {
	user, _ := request.Context().Value(constant.ContextKeyUserID).(string)

	handler.balance(writer, request, user)
}

// GetHostBalance returns any host's reward balance.
// @Summary Get a host reward balance
// @Tags Reward
// @Produce json
// @Param hostID path string true "Host ID"
// @Success 200 {object} response.Data[dto.BalanceResponse]
// @Failure 503 {object} response.Error
// @Router /v1/rewards/{hostID} [get]
// @Security BearerAuth
func (handler *Handler) GetHostBalance(writer http.ResponseWriter, request *http.Request) {
	handler.balance(writer, request, chi.URLParam(request, constant.RequestParamHostID))
}

func (handler *Handler) balance(writer http.ResponseWriter, request *http.Request, hostID string) {
	ctx, scope := handler.otel.NewScope(request.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".GetBalance")
	defer scope.End()

	res, err := handler.service.Balance(ctx, hostID)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to get reward balance")

		response.WithError(writer, err)

		return
	}

	response.WithJSON(writer, http.StatusOK, res)
}

// GetMyEntries lists the calling host's ledger entries, newest first.
// @Summary Get my reward entries
// @Tags Reward
// @Produce json
// @Param pagination query gDto.QueryParams false "Pagination parameters"
// @Success 200 {object} response.Data[dto.HistoryResponse]
// @Failure 503 {object} response.Error
// @Router /v1/rewards/me/entries [get]
// @Security BearerAuth
func (handler *Handler) GetMyEntries(writer http.ResponseWriter, request *http.Request) {
	user, _ := request.Context().Value(constant.ContextKeyUserID).(string)

	handler.history(writer, request, user)
}

// GetHostEntries lists any host's ledger entries, newest first.
// @Summary Get host reward entries
// @Tags Reward
// @Produce json
// @Param hostID path string true "Host ID"
// @Param pagination query gDto.QueryParams false "Pagination parameters"
// @Success 200 {object} response.Data[dto.HistoryResponse]
// @Failure 503 {object} response.Error
// @Router /v1/rewards/{hostID}/entries [get]
// @Security BearerAuth
func (handler *Handler) GetHostEntries(writer http.ResponseWriter, request *http.Request) {
	handler.history(writer, request, chi.URLParam(request, constant.RequestParamHostID))
}

func (handler *Handler) history(writer http.ResponseWriter, request *http.Request, hostID string) {
	ctx, scope := handler.otel.NewScope(request.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".GetEntries")
	defer scope.End()

	queryParams := gDto.QueryParams{}
	queryParams.FromRequest(request, true)

	res, err := handler.service.History(ctx, hostID, queryParams)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to get reward entries")

		response.WithError(writer, err)

		return
	}

	response.WithJSON(writer, http.StatusOK, res)
}

// AwardPoints appends a ledger entry for a host. Negative deltas redeem points.
// @Summary Award or redeem reward points
// @Tags Reward
// @Accept json
// @Produce json
// @Param hostID path string true "Host ID"
// @Param request body dto.AwardRequest true "Ledger entry"
// @Success 201 {object} response.Data[dto.EntryResponse]
// @Failure 400 {object} response.Error
// @Failure 409 {object} response.Error
// @Router /v1/rewards/{hostID}/entries [post]
// @Security BearerAuth
func (handler *Handler) AwardPoints(writer http.ResponseWriter, request *http.Request) {
	ctx, scope := handler.otel.NewScope(request.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".AwardPoints")
	defer scope.End()

	req := dto.AwardRequest{HostID: chi.URLParam(request, constant.RequestParamHostID)}

	if err := validator.Validate(request.Body, &req); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to validate request")

		response.WithError(writer, err)

		return
	}

	res, err := handler.service.Award(ctx, req)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to award points")

		response.WithError(writer, err)

		return
	}

	user, _ := ctx.Value(constant.ContextKeyUserID).(string)
	scope.AddEvent("Reward entry appended by user " + user)

	response.WithJSON(writer, http.StatusCreated, res)
}
