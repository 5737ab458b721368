package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/lamb-project/lamb-lti/internal/apperr"
	auth "github.com/lamb-project/lamb-lti/internal/auth/middleware"
	"github.com/lamb-project/lamb-lti/internal/obs"
	"github.com/lamb-project/lamb-lti/internal/publish"
)

// PublishService is what the handlers need from the lifecycle manager.
type PublishService interface {
	Publish(ctx context.Context, assistantID int64, callerID, groupName, consumerName string) (publish.Result, error)
	Unpublish(ctx context.Context, assistantID int64, callerID string) error
}

type publishBody struct {
	GroupName    string `json:"group_name"`
	ConsumerName string `json:"oauth_consumer_name"`
}

// POST /assistant/{id}/publish
func PublishAssistantHandler(svc PublishService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, caller, err := assistantCaller(r)
		if err != nil {
			writeError(w, err)
			return
		}

		var body publishBody
		if r.Body != nil && r.ContentLength != 0 {
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				writeError(w, apperr.Invalid("bad json body"))
				return
			}
		}

		res, err := svc.Publish(r.Context(), id, caller, body.GroupName, body.ConsumerName)
		if err != nil {
			obs.PublishTotal.WithLabelValues("publish", apperr.CodeOf(err)).Inc()
			writeError(w, err)
			return
		}
		obs.PublishTotal.WithLabelValues("publish", "ok").Inc()

		writeJSON(w, http.StatusOK, map[string]any{
			"success":    true,
			"lti_config": res.LtiConfig,
			"group_id":   res.GroupID,
			"model_id":   res.ModelID,
		})
	}
}

// POST /assistant/{id}/unpublish
func UnpublishAssistantHandler(svc PublishService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, caller, err := assistantCaller(r)
		if err != nil {
			writeError(w, err)
			return
		}

		if err := svc.Unpublish(r.Context(), id, caller); err != nil {
			obs.PublishTotal.WithLabelValues("unpublish", apperr.CodeOf(err)).Inc()
			writeError(w, err)
			return
		}
		obs.PublishTotal.WithLabelValues("unpublish", "ok").Inc()
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	}
}

// CartridgeHandler re-serves the IMS cartridge XML for a published
// assistant. The shared secret is never part of the cartridge.
//
// GET /assistant/{id}/lti.xml
func CartridgeHandler(svc CartridgeService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, caller, err := assistantCaller(r)
		if err != nil {
			writeError(w, err)
			return
		}

		xmlConfig, err := svc.Cartridge(r.Context(), id, caller)
		if err != nil {
			writeError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/xml")
		_, _ = w.Write([]byte(xmlConfig))
	}
}

// CartridgeService regenerates the cartridge for an already published
// assistant.
type CartridgeService interface {
	Cartridge(ctx context.Context, assistantID int64, callerID string) (string, error)
}

func assistantCaller(r *http.Request) (int64, string, error) {
	caller := auth.SubjectFromContext(r.Context())
	if caller == "" {
		return 0, "", apperr.Unauthenticated("missing bearer")
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		return 0, "", apperr.NotFound("assistant not found")
	}
	return id, caller, nil
}
