package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"linkarbox/internal/domain"
)

// ErrUserNotFound is returned when no auth user has the given email
var ErrUserNotFound = errors.New("auth user not found")

// ErrUserExists is returned by CreateUser when the email is already registered
var ErrUserExists = fmt.Errorf("%w: an account with this email already exists", domain.ErrConflict)

// AdminClient provides access to the Supabase Admin API for user management.
// Client registration and the seed command create users through it.
type AdminClient struct {
	supabaseURL string
	serviceKey  string
	httpClient  *http.Client
}

// NewAdminClient creates a new Supabase Admin API client.
// Requires the service role key (SUPABASE_KEY) for elevated permissions.
func NewAdminClient(supabaseURL, serviceKey string) *AdminClient {
	return &AdminClient{
		supabaseURL: strings.TrimRight(supabaseURL, "/"),
		serviceKey:  serviceKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// CreateUserRequest is the payload for creating a new user
type CreateUserRequest struct {
	Email        string                 `json:"email"`
	Password     string                 `json:"password"`
	EmailConfirm bool                   `json:"email_confirm"`
	UserMetadata map[string]interface{} `json:"user_metadata,omitempty"`
}

// User is an auth user as returned by the admin API
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// ListUsersResponse is the response from listing users
type ListUsersResponse struct {
	Users []User `json:"users"`
}

func (c *AdminClient) do(ctx context.Context, method, path string, body interface{}) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.supabaseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("build %s %s: %w", method, path, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.serviceKey)
	req.Header.Set("apikey", c.serviceKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.httpClient.Do(req)
}

func statusError(op string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return fmt.Errorf("%s failed with status %d: %s", op, resp.StatusCode, string(body))
}

// CreateUser creates a confirmed user and returns its id. metadata is stored
// as user_metadata; the role key decides the Linkarbox role.
func (c *AdminClient) CreateUser(ctx context.Context, email, password string, metadata map[string]interface{}) (string, error) {
	resp, err := c.do(ctx, http.MethodPost, "/auth/v1/admin/users", CreateUserRequest{
		Email:        email,
		Password:     password,
		EmailConfirm: true,
		UserMetadata: metadata,
	})
	if err != nil {
		return "", fmt.Errorf("create user: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnprocessableEntity {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if isEmailTaken(body) {
			return "", ErrUserExists
		}
		return "", fmt.Errorf("create user failed with status %d: %s", resp.StatusCode, string(body))
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", statusError("create user", resp)
	}

	var user User
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return "", fmt.Errorf("decode create response: %w", err)
	}
	if user.ID == "" {
		return "", errors.New("create user: response has no id")
	}
	return user.ID, nil
}

// isEmailTaken matches both the current error code and the older message
func isEmailTaken(body []byte) bool {
	var apiErr struct {
		Code      string `json:"code"`
		ErrorCode string `json:"error_code"`
		Msg       string `json:"msg"`
	}
	_ = json.Unmarshal(body, &apiErr)
	if apiErr.Code == "email_exists" || apiErr.ErrorCode == "email_exists" {
		return true
	}
	return strings.Contains(strings.ToLower(apiErr.Msg), "already")
}

// FindUserIDByEmail searches the first page of users for email.
func (c *AdminClient) FindUserIDByEmail(ctx context.Context, email string) (string, error) {
	resp, err := c.do(ctx, http.MethodGet, "/auth/v1/admin/users", nil)
	if err != nil {
		return "", fmt.Errorf("list users: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", statusError("list users", resp)
	}

	var list ListUsersResponse
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return "", fmt.Errorf("decode list response: %w", err)
	}

	for _, user := range list.Users {
		if strings.EqualFold(user.Email, email) {
			return user.ID, nil
		}
	}
	return "", ErrUserNotFound
}

// DeleteUserByEmail finds a user by email and deletes them.
// Missing users are not an error.
func (c *AdminClient) DeleteUserByEmail(ctx context.Context, email string) error {
	userID, err := c.FindUserIDByEmail(ctx, email)
	if errors.Is(err, ErrUserNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	return c.DeleteUser(ctx, userID)
}

// DeleteUser removes the auth user with id. A user that is already gone
// is not an error.
func (c *AdminClient) DeleteUser(ctx context.Context, id string) error {
	resp, err := c.do(ctx, http.MethodDelete, "/auth/v1/admin/users/"+id, nil)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusNoContent, http.StatusNotFound:
		return nil
	}
	return statusError("delete user", resp)
}
