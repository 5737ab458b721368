// Package bridge defines the adapters to the external identity/group/model
// system. The launch and publish pipelines depend only on these interfaces;
// the HTTP client in this package is the production implementation.
package bridge

import (
	"context"
	"errors"
)

var (
	// ErrAlreadyExists is returned by create calls when the resource is
	// already there (duplicate email, existing membership). Callers treat it
	// as a signal to re-read, never as a failure to surface.
	ErrAlreadyExists = errors.New("bridge: already exists")
	ErrNotFound      = errors.New("bridge: not found")
)

type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

type Group struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Owner        string   `json:"owner"`
	ReadUserIDs  []string `json:"read_user_ids"`
	ReadGroupIDs []string `json:"read_group_ids"`
	WriteUserIDs []string `json:"write_user_ids"`
}

// Identity resolves and provisions external users and mints their sessions.
type Identity interface {
	// GetUserByEmail returns nil and ErrNotFound when no user has the email.
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	CreateUser(ctx context.Context, email, name, password, role string) (*User, error)
	GenerateToken(ctx context.Context, userID string) (string, error)
}

// AccessGroups manages the named identity sets that grant model read access.
type AccessGroups interface {
	CreateGroup(ctx context.Context, name, description, owner string) (string, error)
	// AddUserToGroup is idempotent: adding an existing member is a no-op.
	AddUserToGroup(ctx context.Context, groupID, userID string) error
	GetGroupByID(ctx context.Context, groupID string) (*Group, error)
	// DeleteGroup is used for saga compensation and optional unpublish
	// cleanup; best-effort.
	DeleteGroup(ctx context.Context, groupID string) error
}

// ModelRegistry binds an assistant's completion endpoint under a synthetic
// model id for external chat consumption.
type ModelRegistry interface {
	CreateModel(ctx context.Context, m Model) error
	DeleteModel(ctx context.Context, modelID string) error
}

type Model struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	BaseModelID string `json:"base_model_id"`
	Owner       string `json:"owner"`
	Description string `json:"description"`
}
