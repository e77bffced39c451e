package handlers

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/oauth2"

	"github.com/rkechols/bulk-sms/internal/middleware"
	"github.com/rkechols/bulk-sms/internal/models"
)

const tokenLifetime = 24 * time.Hour

// AuthHandler issues the gateway's access tokens. If the OIDC_* variables are
// set, login redirects to the provider and Callback exchanges the code;
// otherwise Login issues an HMAC token directly.
type AuthHandler struct {
	provider   *oidc.Provider
	verifier   *oidc.IDTokenVerifier
	oauth2     *oauth2.Config
	oidcConfig bool
}

func NewAuthHandler() *AuthHandler {
	providerURL := os.Getenv("OIDC_PROVIDER_URL")
	clientID := os.Getenv("OIDC_CLIENT_ID")
	clientSecret := os.Getenv("OIDC_CLIENT_SECRET")
	redirectURL := os.Getenv("OIDC_REDIRECT_URI")

	if providerURL == "" || clientID == "" || clientSecret == "" || redirectURL == "" {
		return &AuthHandler{oidcConfig: false}
	}

	provider, err := oidc.NewProvider(context.Background(), providerURL)
	if err != nil {
		return &AuthHandler{oidcConfig: false}
	}

	return &AuthHandler{
		provider: provider,
		verifier: provider.Verifier(&oidc.Config{ClientID: clientID}),
		oauth2: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
			Endpoint:     provider.Endpoint(),
		},
		oidcConfig: true,
	}
}

func issueToken(email, name string) (string, error) {
	secret := []byte(os.Getenv("JWT_SECRET"))
	if len(secret) == 0 {
		return "", errors.New("JWT_SECRET is not set")
	}

	now := time.Now()
	claims := &middleware.Claims{
		Email: email,
		Name:  name,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenLifetime)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    "bulk-sms",
			Subject:   email,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid request", Message: err.Error(), Code: http.StatusBadRequest})
		return
	}

	if h.oidcConfig {
		state := "state-" + time.Now().Format("20060102150405")
		c.Redirect(http.StatusFound, h.oauth2.AuthCodeURL(state))
		return
	}

	tokenString, err := issueToken(req.Email, "")
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "token generation failed", Message: "JWT_SECRET is not set", Code: http.StatusInternalServerError})
		return
	}

	c.JSON(http.StatusOK, models.AuthResponse{
		AccessToken: tokenString,
		TokenType:   "Bearer",
		ExpiresIn:   int64(tokenLifetime.Seconds()),
	})
}

func (h *AuthHandler) Callback(c *gin.Context) {
	if !h.oidcConfig {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "oidc_not_configured", Message: "OIDC provider not configured", Code: http.StatusBadRequest})
		return
	}

	code := c.Query("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "missing code", Message: "missing code", Code: http.StatusBadRequest})
		return
	}

	ctx := c.Request.Context()
	oauth2Token, err := h.oauth2.Exchange(ctx, code)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "token_exchange_failed", Message: err.Error(), Code: http.StatusInternalServerError})
		return
	}

	idToken, ok := oauth2Token.Extra("id_token").(string)
	if !ok {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "id_token_missing", Message: "id_token missing", Code: http.StatusInternalServerError})
		return
	}

	token, err := h.verifier.Verify(ctx, idToken)
	if err != nil {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: "invalid_id_token", Message: err.Error(), Code: http.StatusUnauthorized})
		return
	}

	var claims struct {
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	if err := token.Claims(&claims); err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "invalid_id_token", Message: err.Error(), Code: http.StatusInternalServerError})
		return
	}

	tokenString, err := issueToken(claims.Email, claims.Name)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "token generation failed", Message: "JWT_SECRET is not set", Code: http.StatusInternalServerError})
		return
	}

	c.JSON(http.StatusOK, models.AuthResponse{
		AccessToken: tokenString,
		TokenType:   "Bearer",
		ExpiresIn:   int64(tokenLifetime.Seconds()),
	})
}
