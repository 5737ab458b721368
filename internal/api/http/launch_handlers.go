package http

import (
	"context"
	"net/http"
	"time"

	"github.com/lamb-project/lamb-lti/internal/apperr"
	"github.com/lamb-project/lamb-lti/internal/launch"
	"github.com/lamb-project/lamb-lti/internal/obs"
)

// Launcher is what the launch handler needs from the orchestrator.
type Launcher interface {
	Launch(ctx context.Context, req launch.Request, httpMethod, requestURL string) (string, error)
}

// LaunchHandler validates and executes an inbound LTI launch.
// launchURL is the deployed public URL the LMS signed against; proxies may
// rewrite r.URL, so the configured value is authoritative.
//
// POST /simple_lti/launch
func LaunchHandler(orc Launcher, launchURL string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		if err := r.ParseForm(); err != nil {
			obs.LaunchesTotal.WithLabelValues("invalid_request").Inc()
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}

		req := launch.ParseRequest(r.PostForm)
		redirect, err := orc.Launch(r.Context(), req, r.Method, launchURL)
		obs.LaunchDuration.Observe(time.Since(start).Seconds())
		if err != nil {
			obs.LaunchesTotal.WithLabelValues(apperr.CodeOf(err)).Inc()
			// Minimal detail: launch failures must not help enumeration.
			http.Error(w, apperr.MessageOf(err), apperr.StatusOf(err))
			return
		}
		obs.LaunchesTotal.WithLabelValues("redirected").Inc()

		http.Redirect(w, r, redirect, http.StatusFound)
	}
}
