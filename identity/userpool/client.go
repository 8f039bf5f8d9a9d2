// Package userpool implements identity.Provider against a hosted user pool.
// Password sign-in goes through the pool's native JSON challenge API; token
// refresh goes through the pool domain's OAuth2 token endpoint.
package userpool

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"

	"github.com/jaladseva/eseva-portal/identity"
	"github.com/jaladseva/eseva-portal/internal/utils"
)

const (
	targetInitiateAuth  = "AWSCognitoIdentityProviderService.InitiateAuth"
	targetGlobalSignOut = "AWSCognitoIdentityProviderService.GlobalSignOut"

	contentTypeAmzJSON = "application/x-amz-json-1.1"
)

// Config carries the pool coordinates. Endpoint is the native auth API;
// Domain is the hosted domain exposing /oauth2/token; Issuer, when set,
// enables ID-token verification against the pool's JWKS.
type Config struct {
	ClientID     string
	ClientSecret string
	Endpoint     string
	Domain       string
	Issuer       string
}

// Client is an identity.Provider backed by a hosted user pool.
type Client struct {
	config     Config
	httpClient *http.Client
	log        zerolog.Logger

	verifierOnce sync.Once
	verifier     *oidc.IDTokenVerifier
}

var _ identity.Provider = (*Client)(nil)

// ClientOption modifies a Client.
type ClientOption func(*Client)

// WithHTTPClient overrides the transport (primarily for testing).
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the client logger.
func WithLogger(log zerolog.Logger) ClientOption {
	return func(c *Client) { c.log = log }
}

// New validates the pool coordinates and returns a Client.
func New(cfg Config, options ...ClientOption) (*Client, error) {
	if cfg.ClientID == "" {
		return nil, errors.New("[userpool.New] ClientID is required")
	}
	if cfg.Endpoint == "" {
		return nil, errors.New("[userpool.New] Endpoint is required")
	}

	c := &Client{
		config:     cfg,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		log:        zerolog.Nop(),
	}
	for _, opt := range options {
		opt(c)
	}
	return c, nil
}

type initiateAuthRequest struct {
	AuthFlow       string            `json:"AuthFlow"`
	ClientID       string            `json:"ClientId"`
	AuthParameters map[string]string `json:"AuthParameters"`
}

type authenticationResult struct {
	AccessToken  string `json:"AccessToken"`
	IDToken      string `json:"IdToken"`
	RefreshToken string `json:"RefreshToken"`
	ExpiresIn    int64  `json:"ExpiresIn"`
	TokenType    string `json:"TokenType"`
}

type initiateAuthResponse struct {
	AuthenticationResult *authenticationResult `json:"AuthenticationResult"`
	ChallengeName        string                `json:"ChallengeName"`
}

type apiErrorResponse struct {
	Type    string `json:"__type"`
	Message string `json:"message"`
}

// Authenticate performs the USER_PASSWORD_AUTH flow. A NEW_PASSWORD_REQUIRED
// challenge is surfaced as a provider error with that code; the portal has
// no password-change flow of its own.
func (c *Client) Authenticate(ctx context.Context, username, password string) (*identity.ProviderSession, error) {
	params := map[string]string{
		"USERNAME": username,
		"PASSWORD": password,
	}
	if c.config.ClientSecret != "" {
		params["SECRET_HASH"] = secretHash(username, c.config.ClientID, c.config.ClientSecret)
	}

	var out initiateAuthResponse
	if err := c.call(ctx, targetInitiateAuth, initiateAuthRequest{
		AuthFlow:       "USER_PASSWORD_AUTH",
		ClientID:       c.config.ClientID,
		AuthParameters: params,
	}, &out); err != nil {
		return nil, err
	}

	if out.ChallengeName == "NEW_PASSWORD_REQUIRED" {
		return nil, &identity.ProviderError{
			Code:    identity.ErrCodeNewPasswordRequired,
			Message: "password change required",
		}
	}
	if out.AuthenticationResult == nil || out.AuthenticationResult.AccessToken == "" {
		return nil, &identity.ProviderError{
			Code:    "InvalidResponseException",
			Message: "authentication response carried no tokens",
		}
	}

	return c.sessionFromTokens(ctx, out.AuthenticationResult, "")
}

// Refresh exchanges the refresh token through the pool's OAuth2 token
// endpoint. The pool does not rotate refresh tokens on this grant; the
// returned session keeps the token that was exchanged.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*identity.ProviderSession, error) {
	if refreshToken == "" {
		return nil, &identity.ProviderError{Code: identity.ErrCodeInvalidToken, Message: "no refresh token"}
	}
	if c.config.Domain == "" {
		return nil, &identity.ProviderError{Code: "ConfigurationException", Message: "user pool domain not configured"}
	}

	conf := &oauth2.Config{
		ClientID:     c.config.ClientID,
		ClientSecret: c.config.ClientSecret,
		Endpoint: oauth2.Endpoint{
			TokenURL:  strings.TrimRight(c.config.Domain, "/") + "/oauth2/token",
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	source := conf.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})

	token, err := source.Token()
	if err != nil {
		return nil, refreshError(err)
	}

	result := &authenticationResult{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
	}
	if idToken, ok := token.Extra("id_token").(string); ok {
		result.IDToken = idToken
	}
	if !token.Expiry.IsZero() {
		result.ExpiresIn = int64(time.Until(token.Expiry).Seconds())
	}

	return c.sessionFromTokens(ctx, result, refreshToken)
}

// SignOut invalidates every token issued to the holder of accessToken.
func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	if accessToken == "" {
		return nil
	}
	return c.call(ctx, targetGlobalSignOut, map[string]string{"AccessToken": accessToken}, &struct{}{})
}

// call posts a native-API request and maps failures to provider errors.
func (c *Client) call(ctx context.Context, target string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return errors.Wrap(err, "[userpool.call] marshal")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.Endpoint, bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "[userpool.call] build request")
	}
	req.Header.Set("Content-Type", contentTypeAmzJSON)
	req.Header.Set("X-Amz-Target", target)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &identity.ProviderError{
			Code:    identity.ErrCodeNetwork,
			Message: "identity provider unreachable",
			Err:     err,
		}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &identity.ProviderError{Code: identity.ErrCodeNetwork, Message: "reading provider response", Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr apiErrorResponse
		_ = json.Unmarshal(data, &apiErr)
		code := exceptionName(apiErr.Type)
		if code == "" {
			code = "UnexpectedException"
		}
		c.log.Debug().Str("target", target).Str("code", code).Msg("user pool call rejected")
		return &identity.ProviderError{Code: code, Message: apiErr.Message}
	}

	if err := json.Unmarshal(data, out); err != nil {
		return errors.Wrap(err, "[userpool.call] decode response")
	}
	return nil
}

// sessionFromTokens flattens the token set into a ProviderSession. Username
// and email come from the ID token, groups from the access token, expiry
// from the access token's exp claim.
func (c *Client) sessionFromTokens(ctx context.Context, result *authenticationResult, priorRefreshToken string) (*identity.ProviderSession, error) {
	accessClaims, err := unverifiedClaims(result.AccessToken)
	if err != nil {
		return nil, &identity.ProviderError{Code: identity.ErrCodeInvalidToken, Message: "malformed access token", Err: err}
	}

	session := &identity.ProviderSession{
		AccessToken:  result.AccessToken,
		IDToken:      result.IDToken,
		RefreshToken: utils.FirstNonEmpty(result.RefreshToken, priorRefreshToken),
	}

	if groups, ok := accessClaims["cognito:groups"].([]any); ok {
		session.Groups = utils.ToStringSlice(groups)
	}

	if exp, ok := accessClaims["exp"].(float64); ok {
		session.ExpiresAt = time.Unix(int64(exp), 0)
	} else if result.ExpiresIn > 0 {
		session.ExpiresAt = time.Now().Add(time.Duration(result.ExpiresIn) * time.Second)
	}

	if result.IDToken != "" {
		if err := c.verifyIDToken(ctx, result.IDToken); err != nil {
			return nil, err
		}
		idClaims, err := unverifiedClaims(result.IDToken)
		if err != nil {
			return nil, &identity.ProviderError{Code: identity.ErrCodeInvalidToken, Message: "malformed id token", Err: err}
		}
		username, _ := idClaims["cognito:username"].(string)
		sub, _ := idClaims["sub"].(string)
		session.Username = utils.FirstNonEmpty(username, sub)
		session.Email, _ = idClaims["email"].(string)
	}

	if session.Username == "" {
		username, _ := accessClaims["username"].(string)
		sub, _ := accessClaims["sub"].(string)
		session.Username = utils.FirstNonEmpty(username, sub)
	}

	return session, nil
}

// verifyIDToken checks the ID token against the pool's JWKS when an issuer
// is configured. Claim extraction itself never trusts the signature; this
// gate is the only signature check in the portal.
func (c *Client) verifyIDToken(ctx context.Context, rawIDToken string) error {
	if c.config.Issuer == "" {
		return nil
	}

	c.verifierOnce.Do(func() {
		keySet := oidc.NewRemoteKeySet(context.Background(), strings.TrimRight(c.config.Issuer, "/")+"/.well-known/jwks.json")
		c.verifier = oidc.NewVerifier(c.config.Issuer, keySet, &oidc.Config{ClientID: c.config.ClientID})
	})

	if _, err := c.verifier.Verify(ctx, rawIDToken); err != nil {
		return &identity.ProviderError{Code: identity.ErrCodeInvalidToken, Message: "id token verification failed", Err: err}
	}
	return nil
}

func unverifiedClaims(rawToken string) (jwtlib.MapClaims, error) {
	token, _, err := jwtlib.NewParser().ParseUnverified(rawToken, jwtlib.MapClaims{})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(jwtlib.MapClaims)
	if !ok {
		return nil, errors.New("error extracting claims")
	}
	return claims, nil
}

// secretHash is HMAC-SHA256(username+clientID, clientSecret), base64 encoded,
// required by pools whose app client carries a secret.
func secretHash(username, clientID, clientSecret string) string {
	mac := hmac.New(sha256.New, []byte(clientSecret))
	mac.Write([]byte(username + clientID))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// refreshError maps oauth2 failures onto provider errors, keeping network
// failures distinguishable from token rejection.
func refreshError(err error) error {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		code := identity.ErrCodeInvalidToken
		if retrieveErr.ErrorCode != "" {
			code = retrieveErr.ErrorCode
		}
		return &identity.ProviderError{Code: code, Message: retrieveErr.ErrorDescription, Err: err}
	}
	return &identity.ProviderError{Code: identity.ErrCodeNetwork, Message: "token endpoint unreachable", Err: err}
}

// exceptionName trims the service prefix from a "__type" error value,
// e.g. "com.amazonaws...#NotAuthorizedException" -> "NotAuthorizedException".
func exceptionName(errType string) string {
	if i := strings.LastIndex(errType, "#"); i >= 0 {
		return errType[i+1:]
	}
	return errType
}
