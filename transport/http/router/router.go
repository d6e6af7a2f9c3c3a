package router

import (
	"net/http"

	"stayhub/internal/handlers/listing"
	"stayhub/internal/handlers/reward"
	"stayhub/shared/failure"
	"stayhub/transport/http/response"

	"github.com/go-chi/chi/v5"
)

const apiVersionPrefix = "/v1"

type DomainHandlers struct {
	Listing listing.Handler
	Reward  reward.Handler
}

type Router struct {
	DomainHandlers DomainHandlers
}

func New(domainHandlers DomainHandlers) Router {
	return Router{
		DomainHandlers: domainHandlers,
	}
}

// SetupRoutes mounts every domain under the versioned prefix and answers
// unmatched paths with the JSON error envelope.
func (r *Router) SetupRoutes(mux chi.Router) {
	mux.NotFound(func(writer http.ResponseWriter, request *http.Request) {
		response.WithError(writer, failure.NotFound("route not found: "+request.URL.Path))
	})
	mux.MethodNotAllowed(func(writer http.ResponseWriter, request *http.Request) {
		response.WithError(writer, failure.MethodNotAllowed(request.Method))
	})

	mux.Route(apiVersionPrefix, func(v1 chi.Router) {
		r.DomainHandlers.Listing.Router(v1)
		r.DomainHandlers.Reward.Router(v1)
	})
}
