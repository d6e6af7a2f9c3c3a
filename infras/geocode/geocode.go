package geocode

//go:generate go run go.uber.org/mock/mockgen -source=./geocode.go -destination=./mocks/geocode_mock.go -package=mocks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"stayhub/config"
	"stayhub/infras/otel"
	"stayhub/shared/constant"
	"strconv"
	"strings"
	"time"

	"github.com/google/go-querystring/query"
	"github.com/rs/zerolog/log"
)

const (
	defaultTimeout = 5 * time.Second
	searchPath     = "/search"
	otelAttrQuery  = "geocode.query"
)

var (
	ErrNotFound    = errors.New("address not found")
	ErrUnavailable = errors.New("geocoding service unavailable")
)

// Location is the best match for a free-text address.
type Location struct {
	Latitude    float64
	Longitude   float64
	Province    string
	DisplayName string
}

type Geocoder interface {
	Lookup(ctx context.Context, address string) (Location, error)
}

type searchParams struct {
	Query          string `url:"q"`
	Format         string `url:"format"`
	AddressDetails int    `url:"addressdetails"`
	Limit          int    `url:"limit"`
}

type place struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
	Address     struct {
		Province string `json:"province"`
		State    string `json:"state"`
		Region   string `json:"region"`
	} `json:"address"`
}

func (p place) province() string {
	for _, value := range []string{p.Address.Province, p.Address.State, p.Address.Region} {
		if value = strings.TrimSpace(value); value != constant.Empty {
			return value
		}
	}

	return constant.Empty
}

type client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	otel       otel.Otel
}

func New(cfg *config.Config, otel otel.Otel) Geocoder {
	timeout := defaultTimeout
	if seconds := cfg.External.Geocoder.TimeoutSeconds; seconds > 0 {
		timeout = time.Duration(seconds) * time.Second
	}

	return &client{
		baseURL:   strings.TrimSuffix(cfg.External.Geocoder.BaseURL, "/"),
		userAgent: cfg.External.Geocoder.UserAgent,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		otel: otel,
	}
}

func (c *client) Lookup(ctx context.Context, address string) (res Location, err error) {
	ctx, scope := c.otel.NewScope(ctx, constant.OtelGeocodeScopeName, constant.OtelGeocodeScopeName+".Lookup")
	defer scope.End()
	defer scope.TraceIfError(&err)

	address = strings.TrimSpace(address)
	scope.SetAttribute(otelAttrQuery, address)

	if address == constant.Empty || c.baseURL == constant.Empty {
		return res, ErrNotFound
	}

	values, err := query.Values(searchParams{Query: address, Format: "json", AddressDetails: 1, Limit: 1})
	if err != nil {
		return res, fmt.Errorf("failed to encode geocode query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+searchPath+"?"+values.Encode(), nil)
	if err != nil {
		return res, fmt.Errorf("failed to create geocode request: %w", err)
	}

	req.Header.Set(constant.RequestHeaderAccept, constant.ContentTypeJSON)

	if c.userAgent != constant.Empty {
		req.Header.Set(constant.RequestHeaderUserAgent, c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Error().Err(err).Str("address", address).Msg("geocode request failed")

		return res, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)

		return res, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var places []place
	if err = json.NewDecoder(resp.Body).Decode(&places); err != nil {
		return res, fmt.Errorf("failed to decode geocode response: %w", err)
	}

	if len(places) == 0 {
		return res, ErrNotFound
	}

	best := places[0]

	res.Latitude, err = strconv.ParseFloat(best.Lat, 64)
	if err != nil {
		return res, fmt.Errorf("invalid latitude %q: %w", best.Lat, err)
	}

	res.Longitude, err = strconv.ParseFloat(best.Lon, 64)
	if err != nil {
		return res, fmt.Errorf("invalid longitude %q: %w", best.Lon, err)
	}

	res.Province = best.province()
	res.DisplayName = best.DisplayName

	return res, nil
}
