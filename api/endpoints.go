package api

import (
	"context"
	"encoding/json"
	"net/http"

	apperrors "aigent-client/errors"
	"aigent-client/web/types"
)

// Login exchanges credentials for a token pair and stores it.
func (c *Client) Login(ctx context.Context, username, password string) error {
	raw, err := c.request(ctx, http.MethodPost, loginPath, map[string]string{
		"username": username,
		"password": password,
	})
	if err != nil {
		return err
	}
	var tokens struct {
		Access  string `json:"access"`
		Refresh string `json:"refresh"`
	}
	if err := json.Unmarshal(raw, &tokens); err != nil || tokens.Access == "" || tokens.Refresh == "" {
		return apperrors.WrapError(apperrors.ErrProtocol, "login response missing token pair")
	}
	return c.store.Set(tokens.Access, tokens.Refresh)
}

// Me fetches the current user's profile.
func (c *Client) Me(ctx context.Context) (types.User, error) {
	var user types.User
	raw, err := c.request(ctx, http.MethodGet, mePath, nil)
	if err != nil {
		return user, err
	}
	if err := json.Unmarshal(raw, &user); err != nil {
		return user, apperrors.WrapError(apperrors.ErrProtocol, "decode user profile")
	}
	return user, nil
}

// UpdateTimezone patches the user's timezone preference.
func (c *Client) UpdateTimezone(ctx context.Context, tz string) (types.User, error) {
	var user types.User
	raw, err := c.request(ctx, http.MethodPatch, mePath, map[string]string{"timezone": tz})
	if err != nil {
		return user, err
	}
	if err := json.Unmarshal(raw, &user); err != nil {
		return user, apperrors.WrapError(apperrors.ErrProtocol, "decode user profile")
	}
	return user, nil
}

// ChangePassword submits a password change for the logged-in user.
func (c *Client) ChangePassword(ctx context.Context, oldPassword, newPassword1, newPassword2 string) error {
	_, err := c.request(ctx, http.MethodPost, passwordPath, map[string]string{
		"old_password":  oldPassword,
		"new_password1": newPassword1,
		"new_password2": newPassword2,
	})
	return err
}

// ListAigents returns all configured personas; the server flags the active
// one.
func (c *Client) ListAigents(ctx context.Context) ([]types.Aigent, error) {
	raw, err := c.request(ctx, http.MethodGet, aigentListPath, nil)
	if err != nil {
		return nil, err
	}
	var aigents []types.Aigent
	if err := json.Unmarshal(raw, &aigents); err != nil {
		return nil, apperrors.WrapError(apperrors.ErrProtocol, "decode aigent list")
	}
	return aigents, nil
}

// SetActiveAigent switches the active persona server-side.
func (c *Client) SetActiveAigent(ctx context.Context, aigentID int) error {
	_, err := c.request(ctx, http.MethodPost, setActivePath, map[string]int{"aigent_id": aigentID})
	return err
}

// ChatHistory fetches the stored message log with the active aigent. The
// server stores aigent turns under the role "assistant"; they are
// normalized here so the renderer only ever sees the client's role set.
func (c *Client) ChatHistory(ctx context.Context) ([]types.ChatMessage, error) {
	raw, err := c.request(ctx, http.MethodGet, historyPath, nil)
	if err != nil {
		return nil, err
	}
	var payload struct {
		History []types.ChatMessage `json:"history"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, apperrors.WrapError(apperrors.ErrProtocol, "decode chat history")
	}
	for i := range payload.History {
		if payload.History[i].Role == "assistant" {
			payload.History[i].Role = types.RoleAigent
		}
		if payload.History[i].Status == "" {
			payload.History[i].Status = types.StatusNormal
		}
	}
	return payload.History, nil
}

// ClearHistory deletes the stored message log. The server answers 204.
func (c *Client) ClearHistory(ctx context.Context) error {
	_, err := c.request(ctx, http.MethodDelete, historyPath, nil)
	return err
}

// SendMessage submits a user message and returns the task handle. The work
// itself is asynchronous server-side; only the handle comes back here.
// A 2xx response without a task_id signals an incompatible server and is a
// protocol error, not something to poll for.
func (c *Client) SendMessage(ctx context.Context, message string) (types.TaskHandle, error) {
	var handle types.TaskHandle
	raw, err := c.request(ctx, http.MethodPost, sendMessagePath, map[string]string{"message": message})
	if err != nil {
		return handle, err
	}
	if err := json.Unmarshal(raw, &handle); err != nil {
		return handle, apperrors.WrapError(apperrors.ErrProtocol, "decode send response")
	}
	if handle.TaskID == "" {
		return handle, apperrors.WrapError(apperrors.ErrProtocol, "send response missing task_id")
	}
	return handle, nil
}

// TaskStatus polls one async task by id.
func (c *Client) TaskStatus(ctx context.Context, taskID string) (types.TaskStatus, error) {
	var status types.TaskStatus
	raw, err := c.request(ctx, http.MethodGet, taskStatusPath+taskID+"/", nil)
	if err != nil {
		return status, err
	}
	if err := json.Unmarshal(raw, &status); err != nil {
		return status, apperrors.WrapError(apperrors.ErrProtocol, "decode task status")
	}
	return status, nil
}

// CalendarEvents lists upcoming events for the user.
func (c *Client) CalendarEvents(ctx context.Context) ([]types.CalendarEvent, error) {
	raw, err := c.request(ctx, http.MethodGet, calendarPath, nil)
	if err != nil {
		return nil, err
	}
	var events []types.CalendarEvent
	if err := json.Unmarshal(raw, &events); err != nil {
		return nil, apperrors.WrapError(apperrors.ErrProtocol, "decode calendar events")
	}
	return events, nil
}
