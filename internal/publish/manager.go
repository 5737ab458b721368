// Package publish orchestrates the publish/unpublish lifecycle: external
// group creation, model registration, credential rotation and the assistant
// row update, serialized per assistant.
package publish

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/lamb-project/lamb-lti/internal/apperr"
	"github.com/lamb-project/lamb-lti/internal/assistant"
	"github.com/lamb-project/lamb-lti/internal/bridge"
	"github.com/lamb-project/lamb-lti/internal/credentials"
	"github.com/lamb-project/lamb-lti/internal/lock"
	"github.com/lamb-project/lamb-lti/internal/obs"
)

// ModelID is the synthetic registry id an assistant is exposed under.
func ModelID(assistantID int64) string {
	return "lamb_assistant." + strconv.FormatInt(assistantID, 10)
}

// LtiConfig is the publish response payload. SharedSecret appears here and
// nowhere else: it is not persisted in any readable surface and is never
// returned again.
type LtiConfig struct {
	LaunchURL        string            `json:"launch_url"`
	ConsumerKey      string            `json:"consumer_key"`
	SharedSecret     string            `json:"shared_secret"`
	CustomParameters map[string]string `json:"custom_parameters"`
	XMLConfig        string            `json:"xml_config"`
}

type Result struct {
	LtiConfig LtiConfig
	GroupID   string
	ModelID   string
}

type Manager struct {
	Assistants  assistant.Store
	Credentials credentials.Store
	Groups      bridge.AccessGroups
	Models      bridge.ModelRegistry
	Locks       lock.Locker

	// LaunchURL is the public URL of the launch endpoint this deployment
	// serves, e.g. "https://lamb.example.com/simple_lti/launch".
	LaunchURL string
	// CompletionEndpoint is what the registered model points at.
	CompletionEndpoint string
	// CleanupOnUnpublish makes unpublish best-effort delete the external
	// group and model instead of leaving them for audit.
	CleanupOnUnpublish bool

	Now func() time.Time
}

const lockTTL = 30 * time.Second

func (m *Manager) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now()
}

// Publish exposes the assistant as an LTI tool. Every call rotates the
// shared secret, invalidating prior LMS tool configurations.
func (m *Manager) Publish(ctx context.Context, assistantID int64, callerID, groupName, consumerName string) (Result, error) {
	release, err := m.Locks.Acquire(ctx, lockKey(assistantID), lockTTL)
	if err != nil {
		return Result{}, apperr.Wrap(http.StatusServiceUnavailable, "busy", "publish already in progress", err)
	}
	defer release()

	a, err := m.Assistants.GetByID(ctx, assistantID)
	if err != nil {
		if errors.Is(err, assistant.ErrNotFound) {
			return Result{}, apperr.NotFound("assistant not found")
		}
		return Result{}, err
	}
	if a.Owner != callerID {
		return Result{}, apperr.Forbidden("only the owner can publish an assistant")
	}

	if groupName == "" {
		groupName = a.Name + " Group"
	}
	if consumerName == "" {
		consumerName = "assistant_" + strconv.FormatInt(assistantID, 10)
	}

	groupID, err := m.Groups.CreateGroup(ctx, groupName,
		fmt.Sprintf("LTI access group for assistant %d", assistantID), a.Owner)
	if err != nil {
		return Result{}, apperr.Upstream("group creation failed", err)
	}

	// The model id is deterministic, so a re-publish hits an existing
	// registration. That conflict means the model is already there.
	modelID := ModelID(assistantID)
	if err := m.Models.CreateModel(ctx, bridge.Model{
		ID:          modelID,
		Name:        a.Name,
		BaseModelID: m.CompletionEndpoint,
		Owner:       a.Owner,
		Description: a.Description,
	}); err != nil && !errors.Is(err, bridge.ErrAlreadyExists) {
		m.compensate(assistantID, groupID, "")
		return Result{}, apperr.Upstream("model registration failed", err)
	}

	cred, err := m.Credentials.Rotate(ctx, assistantID, consumerName)
	if err != nil {
		m.compensate(assistantID, groupID, modelID)
		return Result{}, apperr.Wrap(http.StatusInternalServerError, "credential_error", "credential rotation failed", err)
	}

	pub := assistant.Publication{
		Published:    true,
		PublishedAt:  m.now().Unix(),
		GroupID:      groupID,
		GroupName:    groupName,
		ConsumerName: consumerName,
	}
	if err := m.Assistants.UpdatePublication(ctx, assistantID, a.Version, pub); err != nil {
		m.compensate(assistantID, groupID, modelID)
		if errors.Is(err, assistant.ErrVersionConflict) {
			return Result{}, apperr.Wrap(http.StatusConflict, "conflict", "assistant changed concurrently", err)
		}
		return Result{}, err
	}

	xmlConfig, err := BuildCartridge(a.Name, a.Description, m.LaunchURL, strconv.FormatInt(assistantID, 10))
	if err != nil {
		return Result{}, err
	}

	obs.LogEvent("lti.published", map[string]any{
		"assistant_id": assistantID,
		"group_id":     groupID,
		"model_id":     modelID,
		"consumer_key": cred.ConsumerKey,
	})

	return Result{
		LtiConfig: LtiConfig{
			LaunchURL:        m.LaunchURL,
			ConsumerKey:      cred.ConsumerKey,
			SharedSecret:     cred.SharedSecret,
			CustomParameters: map[string]string{"assistant_id": strconv.FormatInt(assistantID, 10)},
			XMLConfig:        xmlConfig,
		},
		GroupID: groupID,
		ModelID: modelID,
	}, nil
}

// Unpublish clears the publication state. Repeated calls are a no-op
// success; external resources are only removed when CleanupOnUnpublish is
// set, and even then best-effort.
func (m *Manager) Unpublish(ctx context.Context, assistantID int64, callerID string) error {
	release, err := m.Locks.Acquire(ctx, lockKey(assistantID), lockTTL)
	if err != nil {
		return apperr.Wrap(http.StatusServiceUnavailable, "busy", "publish already in progress", err)
	}
	defer release()

	a, err := m.Assistants.GetByID(ctx, assistantID)
	if err != nil {
		if errors.Is(err, assistant.ErrNotFound) {
			return apperr.NotFound("assistant not found")
		}
		return err
	}
	if a.Owner != callerID {
		return apperr.Forbidden("only the owner can unpublish an assistant")
	}
	if !a.Published {
		return nil
	}

	if err := m.Assistants.UpdatePublication(ctx, assistantID, a.Version, assistant.Publication{}); err != nil {
		if errors.Is(err, assistant.ErrVersionConflict) {
			return apperr.Wrap(http.StatusConflict, "conflict", "assistant changed concurrently", err)
		}
		return err
	}

	if m.CleanupOnUnpublish {
		m.compensate(assistantID, a.GroupID, ModelID(assistantID))
	}

	obs.LogEvent("lti.unpublished", map[string]any{"assistant_id": assistantID})
	return nil
}

// Cartridge re-renders the IMS cartridge for an already published
// assistant, so the LMS-side configuration can be re-fetched without
// rotating the secret.
func (m *Manager) Cartridge(ctx context.Context, assistantID int64, callerID string) (string, error) {
	a, err := m.Assistants.GetByID(ctx, assistantID)
	if err != nil {
		if errors.Is(err, assistant.ErrNotFound) {
			return "", apperr.NotFound("assistant not found")
		}
		return "", err
	}
	if a.Owner != callerID {
		return "", apperr.Forbidden("only the owner can fetch the tool configuration")
	}
	if !a.Published {
		return "", apperr.NotFound("assistant is not published")
	}
	return BuildCartridge(a.Name, a.Description, m.LaunchURL, strconv.FormatInt(assistantID, 10))
}

// compensate best-effort deletes external resources created earlier in a
// failed publish (or left behind by unpublish cleanup). Failures are logged,
// never returned: the caller's error is already decided.
func (m *Manager) compensate(assistantID int64, groupID, modelID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if modelID != "" {
		if err := m.Models.DeleteModel(ctx, modelID); err != nil {
			obs.LogEvent("lti.compensate_failed", map[string]any{
				"assistant_id": assistantID, "model_id": modelID, "error": err.Error(),
			})
		}
	}
	if groupID != "" {
		if err := m.Groups.DeleteGroup(ctx, groupID); err != nil {
			obs.LogEvent("lti.compensate_failed", map[string]any{
				"assistant_id": assistantID, "group_id": groupID, "error": err.Error(),
			})
		}
	}
}

func lockKey(assistantID int64) string {
	return "assistant:" + strconv.FormatInt(assistantID, 10)
}
