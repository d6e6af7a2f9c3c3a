package handler

import (
	"net/http"
	"stayhub/config"
	"stayhub/di"
	"stayhub/shared/logger"
	"sync"

	httpTransport "stayhub/transport/http"
)

var (
	server *httpTransport.HTTP
	once   sync.Once
)

// Handler serves every request of a serverless deployment through one lazily built service.
func Handler(w http.ResponseWriter, r *http.Request) {
	once.Do(func() {
		cfg := config.Get()

		logger.InitLogger()

		logger.SetLogLevel(cfg)

		server = di.InitializeService()
	})

	r.RequestURI = r.URL.String()

	server.ServeHTTP(w, r)
}
