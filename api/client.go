package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"aigent-client/config"
	apperrors "aigent-client/errors"
	"aigent-client/session"

	"go.uber.org/zap"
)

// Relative endpoint paths of the remote Aigents API.
const (
	loginPath       = "/api/v1/auth/token/"
	refreshPath     = "/api/v1/auth/token/refresh/"
	mePath          = "/api/v1/auth/me/"
	passwordPath    = "/api/v1/auth/password/change/"
	aigentListPath  = "/api/v1/aigents/list/"
	setActivePath   = "/api/v1/aigents/set_active/"
	sendMessagePath = "/api/v1/chat/send_message/"
	taskStatusPath  = "/api/v1/chat/task_status/"
	historyPath     = "/api/v1/chat/history/"
	calendarPath    = "/api/v1/calendar/events/"
)

// Client performs authenticated JSON calls against the remote API. On a 401
// it runs the token-refresh protocol once and retries the original request
// once; a failed refresh clears the session and fails with ErrAuthExpired.
type Client struct {
	baseURL    string
	store      session.Store
	httpClient *http.Client
	logger     *zap.Logger

	// onSessionExpired fires after a failed refresh, once the session has
	// been cleared. The web layer uses it to force the login page.
	onSessionExpired func()
}

func New(cfg *config.Config, store session.Store, logger *zap.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(cfg.APIBaseURL, "/"),
		store:      store,
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
		logger:     logger,
	}
}

// OnSessionExpired registers the forced-logout hook.
func (c *Client) OnSessionExpired(fn func()) {
	c.onSessionExpired = fn
}

// request performs one API call. A 204 is a successful null result. The
// returned raw message is nil only for empty or 204 responses.
func (c *Client) request(ctx context.Context, method, path string, body any) (json.RawMessage, error) {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, apperrors.WrapError(err, "marshal request body")
		}
	}

	resp, err := c.do(ctx, method, path, payload, c.store.Get().AccessToken)
	if err != nil {
		return nil, err
	}

	// Expired access token: refresh once and retry once. The refresh
	// endpoint itself is exempt so a rejected refresh can never recurse.
	if resp.StatusCode == http.StatusUnauthorized && path != refreshPath {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		if err := c.refreshAccessToken(ctx); err != nil {
			return nil, err
		}

		resp, err = c.do(ctx, method, path, payload, c.store.Get().AccessToken)
		if err != nil {
			return nil, err
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return nil, nil
	}

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		c.logger.Error("Failed to read response body", zap.String("path", path), zap.Error(err))
		return nil, apperrors.WrapError(apperrors.ErrNetwork, "read response")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, c.apiError(path, resp.StatusCode, bodyBytes)
	}

	if len(bodyBytes) == 0 {
		return nil, nil
	}
	return json.RawMessage(bodyBytes), nil
}

// do performs a single network round-trip with the given bearer token.
func (c *Client) do(ctx context.Context, method, path string, payload []byte, token string) (*http.Response, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, apperrors.WrapError(err, "create request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("Request transport failure", zap.String("method", method), zap.String("path", path), zap.Error(err))
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, apperrors.WrapErrorf(apperrors.ErrTimeout, "%s %s", method, path)
		}
		return nil, apperrors.WrapErrorf(apperrors.ErrNetwork, "%s %s", method, path)
	}
	return resp, nil
}

// refreshAccessToken runs the refresh protocol: exchange the stored refresh
// token for a new access token. Failure clears the session and reports
// ErrAuthExpired; there is no second attempt.
func (c *Client) refreshAccessToken(ctx context.Context) error {
	refresh := c.store.Get().RefreshToken
	if refresh == "" {
		return c.expireSession("no refresh token stored")
	}

	payload, err := json.Marshal(map[string]string{"refresh": refresh})
	if err != nil {
		return apperrors.WrapError(err, "marshal refresh request")
	}

	resp, err := c.do(ctx, http.MethodPost, refreshPath, payload, "")
	if err != nil {
		return c.expireSession("refresh request failed")
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil || resp.StatusCode != http.StatusOK {
		return c.expireSession(fmt.Sprintf("refresh rejected with status %d", resp.StatusCode))
	}

	var tokens struct {
		Access string `json:"access"`
	}
	if err := json.Unmarshal(bodyBytes, &tokens); err != nil || tokens.Access == "" {
		return c.expireSession("refresh response missing access token")
	}

	if err := c.store.SetAccess(tokens.Access); err != nil {
		c.logger.Warn("Failed to persist refreshed access token", zap.Error(err))
	}
	c.logger.Debug("Access token refreshed")
	return nil
}

func (c *Client) expireSession(reason string) error {
	c.logger.Warn("Session expired, forcing logout", zap.String("reason", reason))
	if err := c.store.Clear(); err != nil {
		c.logger.Warn("Failed to clear session store", zap.Error(err))
	}
	if c.onSessionExpired != nil {
		c.onSessionExpired()
	}
	return apperrors.ErrAuthExpired
}

// apiError maps a non-2xx response to an APIError, preferring the server's
// own error/detail field over a synthesized message.
func (c *Client) apiError(path string, status int, body []byte) error {
	detail := ""
	var payload struct {
		Error  string `json:"error"`
		Detail string `json:"detail"`
	}
	if len(body) > 0 && json.Unmarshal(body, &payload) == nil {
		if payload.Error != "" {
			detail = payload.Error
		} else if payload.Detail != "" {
			detail = payload.Detail
		}
	}
	c.logger.Warn("API call failed",
		zap.String("path", path),
		zap.Int("status", status),
		zap.String("detail", detail))
	return apperrors.NewAPIError(status, detail)
}
