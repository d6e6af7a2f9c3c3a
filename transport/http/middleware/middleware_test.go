package middleware_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	"stayhub/config"
	"stayhub/infras/jwt"
	jwtMocks "stayhub/infras/jwt/mocks"
	otelMocks "stayhub/infras/otel/mocks"
	"stayhub/permissions"
	cacheMocks "stayhub/shared/cache/mocks"
	"stayhub/shared/constant"
	"stayhub/transport/http/middleware"
)

func echoUser(writer http.ResponseWriter, request *http.Request) {
	user, _ := request.Context().Value(constant.ContextKeyUserID).(string)

	writer.WriteHeader(http.StatusOK)
	_, _ = writer.Write([]byte(user))
}

func newAuthRouter(t *testing.T, cfg *config.Config) (http.Handler, *jwtMocks.MockJWT) {
	t.Helper()

	ctrl := gomock.NewController(t)
	jwtService := jwtMocks.NewMockJWT(ctrl)

	authRole := middleware.NewAuthRoleMiddleware(jwtService, otelMocks.NewOtel(), permissions.Get(), cfg)

	router := chi.NewRouter()
	router.Use(authRole.APIKey, authRole.Auth, authRole.RBAC)
	router.Get("/v1/listings/{id}", echoUser)
	router.Post("/v1/listings", echoUser)
	router.Post("/v1/rewards/{hostID}/entries", echoUser)

	return router, jwtService
}

func TestAuthAndRBAC(t *testing.T) {
	tests := []struct {
		name      string
		method    string
		path      string
		header    map[string]string
		setupMock func(j *jwtMocks.MockJWT)
		wantCode  int
		wantBody  string
	}{
		{
			name:     "public route anonymous",
			method:   http.MethodGet,
			path:     "/v1/listings/l-1",
			wantCode: http.StatusOK,
		},
		{
			name:   "public route identifies a valid caller",
			method: http.MethodGet,
			path:   "/v1/listings/l-1",
			header: map[string]string{"Authorization": "Bearer good"},
			setupMock: func(j *jwtMocks.MockJWT) {
				j.EXPECT().ValidateToken(gomock.Any(), "good", jwt.AccessToken).Return(&jwt.Claims{UserID: "host-1", Role: "host"}, nil)
			},
			wantCode: http.StatusOK,
			wantBody: "host-1",
		},
		{
			name:   "public route ignores a bad token",
			method: http.MethodGet,
			path:   "/v1/listings/l-1",
			header: map[string]string{"Authorization": "Bearer bad"},
			setupMock: func(j *jwtMocks.MockJWT) {
				j.EXPECT().ValidateToken(gomock.Any(), "bad", jwt.AccessToken).Return(nil, jwt.ErrInvalidToken)
			},
			wantCode: http.StatusOK,
		},
		{
			name:     "protected route without token",
			method:   http.MethodPost,
			path:     "/v1/listings",
			wantCode: http.StatusUnauthorized,
		},
		{
			name:   "protected route with expired token",
			method: http.MethodPost,
			path:   "/v1/listings",
			header: map[string]string{"Authorization": "Bearer old"},
			setupMock: func(j *jwtMocks.MockJWT) {
				j.EXPECT().ValidateToken(gomock.Any(), "old", jwt.AccessToken).Return(nil, jwt.ErrExpiredToken)
			},
			wantCode: http.StatusUnauthorized,
		},
		{
			name:   "guest cannot create listings",
			method: http.MethodPost,
			path:   "/v1/listings",
			header: map[string]string{"Authorization": "Bearer guest"},
			setupMock: func(j *jwtMocks.MockJWT) {
				j.EXPECT().ValidateToken(gomock.Any(), "guest", jwt.AccessToken).Return(&jwt.Claims{UserID: "g-1", Role: "guest"}, nil)
			},
			wantCode: http.StatusForbidden,
		},
		{
			name:   "host creates listings",
			method: http.MethodPost,
			path:   "/v1/listings",
			header: map[string]string{"Authorization": "Bearer host"},
			setupMock: func(j *jwtMocks.MockJWT) {
				j.EXPECT().ValidateToken(gomock.Any(), "host", jwt.AccessToken).Return(&jwt.Claims{UserID: "host-1", Role: "host"}, nil)
			},
			wantCode: http.StatusOK,
			wantBody: "host-1",
		},
		{
			name:   "host cannot award points",
			method: http.MethodPost,
			path:   "/v1/rewards/host-1/entries",
			header: map[string]string{"Authorization": "Bearer host"},
			setupMock: func(j *jwtMocks.MockJWT) {
				j.EXPECT().ValidateToken(gomock.Any(), "host", jwt.AccessToken).Return(&jwt.Claims{UserID: "host-1", Role: "host"}, nil)
			},
			wantCode: http.StatusForbidden,
		},
		{
			name:     "api key acts as admin",
			method:   http.MethodPost,
			path:     "/v1/rewards/host-1/entries",
			header:   map[string]string{"X-API-Key": "internal-secret"},
			wantCode: http.StatusOK,
		},
		{
			name:     "wrong api key",
			method:   http.MethodPost,
			path:     "/v1/rewards/host-1/entries",
			header:   map[string]string{"X-API-Key": "guess"},
			wantCode: http.StatusForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.Config{}
			cfg.App.APIKey = "internal-secret"

			router, jwtService := newAuthRouter(t, cfg)
			if tt.setupMock != nil {
				tt.setupMock(jwtService)
			}

			request := httptest.NewRequest(tt.method, tt.path, nil)
			for key, value := range tt.header {
				request.Header.Set(key, value)
			}

			recorder := httptest.NewRecorder()
			router.ServeHTTP(recorder, request)

			assert.Equal(t, tt.wantCode, recorder.Code)

			if tt.wantBody != "" {
				assert.Equal(t, tt.wantBody, recorder.Body.String())
			}
		})
	}
}

func TestRateLimit(t *testing.T) {
	tests := []struct {
		name      string
		setupMock func(c *cacheMocks.MockRedisCache)
		wantCode  int
		remaining string
	}{
		{
			name: "within window",
			setupMock: func(c *cacheMocks.MockRedisCache) {
				c.EXPECT().Increment(gomock.Any(), "limiter:10.0.0.7:monitor", 60).Return(int64(2), nil)
			},
			wantCode:  http.StatusOK,
			remaining: "1",
		},
		{
			name: "over the limit",
			setupMock: func(c *cacheMocks.MockRedisCache) {
				c.EXPECT().Increment(gomock.Any(), gomock.Any(), 60).Return(int64(4), nil)
			},
			wantCode:  http.StatusTooManyRequests,
			remaining: "0",
		},
		{
			name: "redis down fails open",
			setupMock: func(c *cacheMocks.MockRedisCache) {
				c.EXPECT().Increment(gomock.Any(), gomock.Any(), 60).Return(int64(0), errors.New("connection refused"))
			},
			wantCode: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			redisCache := cacheMocks.NewMockRedisCache(ctrl)
			tt.setupMock(redisCache)

			cfg := &config.Config{}
			cfg.App.RateLimiter.Enable = true
			cfg.App.RateLimiter.MaxRequests = 3
			cfg.App.RateLimiter.WindowSeconds = 60

			app := middleware.NewAppMiddleware(otelMocks.NewOtel(), cfg, redisCache)
			handler := app.RateLimit()(http.HandlerFunc(echoUser))

			request := httptest.NewRequest(http.MethodGet, "/v1/listings", nil)
			request.RemoteAddr = "10.0.0.7:51234"
			request.Header.Set("User-Agent", "monitor")

			recorder := httptest.NewRecorder()
			handler.ServeHTTP(recorder, request)

			assert.Equal(t, tt.wantCode, recorder.Code)
			assert.Equal(t, tt.remaining, recorder.Header().Get("X-RateLimit-Remaining"))
		})
	}
}

func TestRateLimitDisabled(t *testing.T) {
	ctrl := gomock.NewController(t)
	redisCache := cacheMocks.NewMockRedisCache(ctrl)

	app := middleware.NewAppMiddleware(otelMocks.NewOtel(), &config.Config{}, redisCache)

	recorder := httptest.NewRecorder()
	app.RateLimit()(http.HandlerFunc(echoUser)).ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/v1/listings", nil))

	assert.Equal(t, http.StatusOK, recorder.Code)
}

func TestTracingKeepsStatus(t *testing.T) {
	app := middleware.NewAppMiddleware(otelMocks.NewOtel(), &config.Config{}, nil)

	router := chi.NewRouter()
	router.Use(app.Tracing)
	router.Get("/v1/listings/{id}", func(writer http.ResponseWriter, _ *http.Request) {
		writer.WriteHeader(http.StatusServiceUnavailable)
	})

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/v1/listings/l-1", nil))

	assert.Equal(t, http.StatusServiceUnavailable, recorder.Code)
}

func TestAuthLetsUnknownRoutesFallThrough(t *testing.T) {
	router, _ := newAuthRouter(t, &config.Config{})

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/v1/nowhere", nil))

	assert.Equal(t, http.StatusNotFound, recorder.Code)
}
