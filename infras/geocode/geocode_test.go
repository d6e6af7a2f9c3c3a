package geocode_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"stayhub/config"
	"stayhub/infras/geocode"
	"stayhub/infras/otel/mocks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGeocoder(baseURL string) geocode.Geocoder {
	cfg := &config.Config{}
	cfg.External.Geocoder.BaseURL = baseURL
	cfg.External.Geocoder.UserAgent = "stayhub-test"

	return geocode.New(cfg, mocks.NewOtel())
}

func TestLookup(t *testing.T) {
	var gotQuery, gotAgent string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		gotAgent = r.Header.Get("User-Agent")

		assert.Equal(t, "/search", r.URL.Path)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"lat":"14.1153","lon":"120.9621","display_name":"Tagaytay, Cavite","address":{"state":"Cavite"}}]`))
	}))
	defer server.Close()

	loc, err := newGeocoder(server.URL).Lookup(context.Background(), " Tagaytay City ")
	require.NoError(t, err)

	assert.InDelta(t, 14.1153, loc.Latitude, 1e-9)
	assert.InDelta(t, 120.9621, loc.Longitude, 1e-9)
	assert.Equal(t, "Cavite", loc.Province)
	assert.Equal(t, "stayhub-test", gotAgent)
	assert.Contains(t, gotQuery, "q=Tagaytay+City")
	assert.Contains(t, gotQuery, "addressdetails=1")
	assert.Contains(t, gotQuery, "limit=1")
}

func TestLookup_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{name: "no results", status: http.StatusOK, body: `[]`, wantErr: geocode.ErrNotFound},
		{name: "server error", status: http.StatusBadGateway, body: `oops`, wantErr: geocode.ErrUnavailable},
		{name: "bad coordinates", status: http.StatusOK, body: `[{"lat":"north","lon":"1"}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := newGeocoder(server.URL).Lookup(context.Background(), "Nowhere")

			require.Error(t, err)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestLookup_EmptyAddress(t *testing.T) {
	_, err := newGeocoder("http://127.0.0.1:1").Lookup(context.Background(), "   ")

	assert.ErrorIs(t, err, geocode.ErrNotFound)
}
