// Package launch implements the inbound LTI launch pipeline: parameter
// check, signature validation, assistant resolution, learner provisioning,
// group membership, token issuance, audit, redirect. No mutation happens
// before the signature gate passes.
package launch

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/lamb-project/lamb-lti/internal/apperr"
	"github.com/lamb-project/lamb-lti/internal/assistant"
	"github.com/lamb-project/lamb-lti/internal/bridge"
	"github.com/lamb-project/lamb-lti/internal/credentials"
	"github.com/lamb-project/lamb-lti/internal/oauth1"
	"github.com/lamb-project/lamb-lti/internal/obs"
)

type Orchestrator struct {
	Assistants  assistant.Store
	Credentials credentials.Store
	Identity    bridge.Identity
	Groups      bridge.AccessGroups
	Ledger      Ledger

	// ChatBaseURL is where the authenticated learner is redirected,
	// e.g. "https://chat.example.com".
	ChatBaseURL string

	// LedgerTimeout bounds the fire-and-forget audit write.
	LedgerTimeout time.Duration
}

// Launch runs the full pipeline and returns the redirect URL. httpMethod and
// requestURL describe the inbound request as the LMS signed it (the deployed
// public launch URL, not a proxy-rewritten one).
func (o *Orchestrator) Launch(ctx context.Context, req Request, httpMethod, requestURL string) (string, error) {
	// Gate 1: required parameters.
	if req.Email == "" || req.AssistantID == "" {
		return "", apperr.Invalid("lis_person_contact_email_primary and custom_assistant_id are required")
	}

	// Gate 2: signature. Unknown consumer and bad signature are the same
	// failure from the outside.
	cred, err := o.Credentials.Get(ctx, req.ConsumerKey)
	if err != nil {
		if errors.Is(err, credentials.ErrUnknownConsumer) {
			return "", apperr.BadSignature()
		}
		return "", err
	}
	if !oauth1.Verify(httpMethod, requestURL, req.Params(), cred.SharedSecret) {
		return "", apperr.BadSignature()
	}

	// Gate 3: assistant must exist and be published; both failures look
	// identical so unpublished assistants cannot be enumerated.
	id, err := strconv.ParseInt(req.AssistantID, 10, 64)
	if err != nil {
		return "", apperr.NotFound("assistant not available")
	}
	a, err := o.Assistants.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, assistant.ErrNotFound) {
			return "", apperr.NotFound("assistant not available")
		}
		return "", err
	}
	if !a.Published || cred.AssistantID != a.ID {
		return "", apperr.NotFound("assistant not available")
	}

	// Gate 4: resolve or lazily create the learner. A concurrent first
	// launch may win the create; re-read on conflict.
	user, err := o.resolveUser(ctx, req)
	if err != nil {
		return "", err
	}

	// Gate 5: group membership, idempotent.
	if err := o.Groups.AddUserToGroup(ctx, a.GroupID, user.ID); err != nil &&
		!errors.Is(err, bridge.ErrAlreadyExists) {
		return "", apperr.Upstream("group membership failed", err)
	}

	// Gate 6: session token.
	token, err := o.Identity.GenerateToken(ctx, user.ID)
	if err != nil {
		return "", apperr.Upstream("token issuance failed", err)
	}

	// Audit is fire-and-forget on a detached context.
	o.appendLedger(ctx, Record{
		AssistantID:   a.ID,
		AssistantName: a.Name,
		GroupID:       a.GroupID,
		Owner:         a.Owner,
		UserEmail:     user.Email,
		UserName:      user.Name,
		Role:          req.Role(),
	})

	return fmt.Sprintf("%s/?token=%s&model=%s",
		strings.TrimRight(o.ChatBaseURL, "/"),
		url.QueryEscape(token),
		url.QueryEscape("lamb_assistant."+strconv.FormatInt(a.ID, 10))), nil
}

func (o *Orchestrator) resolveUser(ctx context.Context, req Request) (*bridge.User, error) {
	user, err := o.Identity.GetUserByEmail(ctx, req.Email)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, bridge.ErrNotFound) {
		return nil, apperr.Upstream("user lookup failed", err)
	}

	password, err := newPassword()
	if err != nil {
		return nil, err
	}
	user, err = o.Identity.CreateUser(ctx, req.Email, req.DisplayName(), password, "user")
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, bridge.ErrAlreadyExists) {
		return nil, apperr.Upstream("user creation failed", err)
	}

	// Lost the race: the identity already exists now.
	user, err = o.Identity.GetUserByEmail(ctx, req.Email)
	if err != nil {
		return nil, apperr.Upstream("user lookup after create conflict failed", err)
	}
	return user, nil
}

func (o *Orchestrator) appendLedger(ctx context.Context, rec Record) {
	if o.Ledger == nil {
		return
	}
	timeout := o.LedgerTimeout
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	detached := context.WithoutCancel(ctx)
	go func() {
		lctx, cancel := context.WithTimeout(detached, timeout)
		defer cancel()
		if err := o.Ledger.Append(lctx, rec); err != nil {
			obs.LogEvent("lti.ledger_append_failed", map[string]any{
				"assistant_id": rec.AssistantID,
				"user_email":   rec.UserEmail,
				"error":        err.Error(),
			})
		}
	}()
}

// newPassword mints the random, never-displayed password used when the
// bridge creates a learner lazily.
func newPassword() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
