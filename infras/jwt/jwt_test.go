package jwt_test

import (
	"context"
	"testing"
	"time"

	"stayhub/config"
	"stayhub/infras/jwt"
	"stayhub/infras/otel/mocks"

	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "listing-secret"

func sign(t *testing.T, claims jwt.Claims, key string) string {
	t.Helper()

	token, err := gojwt.NewWithClaims(gojwt.SigningMethodHS256, claims).SignedString([]byte(key))
	require.NoError(t, err)

	return token
}

func validClaims(expiresIn time.Duration) jwt.Claims {
	now := time.Now()

	return jwt.Claims{
		UserID:  "host-1",
		Email:   "host@example.com",
		Role:    "host",
		TokenID: "token-1",
		Type:    jwt.AccessToken,
		RegisteredClaims: gojwt.RegisteredClaims{
			Issuer:    "stayhub-auth",
			IssuedAt:  gojwt.NewNumericDate(now),
			ExpiresAt: gojwt.NewNumericDate(now.Add(expiresIn)),
		},
	}
}

func TestValidateToken(t *testing.T) {
	cfg := &config.Config{}
	cfg.JWT.AccessSecret = secret
	cfg.JWT.Issuer = "stayhub-auth"

	svc := jwt.New(cfg, mocks.NewOtel())

	refresh := validClaims(time.Hour)
	refresh.Type = jwt.RefreshToken

	otherIssuer := validClaims(time.Hour)
	otherIssuer.Issuer = "someone-else"

	tests := []struct {
		name    string
		token   string
		wantErr error
	}{
		{name: "valid token", token: sign(t, validClaims(time.Hour), secret)},
		{name: "expired token", token: sign(t, validClaims(-time.Hour), secret), wantErr: jwt.ErrExpiredToken},
		{name: "wrong secret", token: sign(t, validClaims(time.Hour), "other"), wantErr: jwt.ErrInvalidToken},
		{name: "wrong issuer", token: sign(t, otherIssuer, secret), wantErr: jwt.ErrInvalidToken},
		{name: "refresh token", token: sign(t, refresh, secret), wantErr: jwt.ErrInvalidClaim},
		{name: "garbage", token: "not-a-token", wantErr: jwt.ErrInvalidToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := svc.ValidateToken(context.Background(), tt.token, jwt.AccessToken)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, claims)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, "host-1", claims.UserID)
			assert.Equal(t, "host", claims.Role)
		})
	}
}

func TestExtractTokenFromHeader(t *testing.T) {
	token, err := jwt.ExtractTokenFromHeader("Bearer abc.def")
	require.NoError(t, err)
	assert.Equal(t, "abc.def", token)

	_, err = jwt.ExtractTokenFromHeader("")
	assert.Error(t, err)

	_, err = jwt.ExtractTokenFromHeader("Basic abc")
	assert.Error(t, err)
}
