// Package oauth1 implements the two-legged OAuth 1.0 HMAC-SHA1 request
// signing used by simple LTI launches. Only the consumer key/secret pair is
// involved; there is no token exchange, so the token-secret half of the
// signing key is always empty.
package oauth1

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/subtle"
	"encoding/base64"
	"net/url"
	"sort"
	"strings"
)

const SignatureMethodHMACSHA1 = "HMAC-SHA1"

// PercentEncode escapes s per RFC 3986: unreserved characters
// (ALPHA / DIGIT / "-" / "." / "_" / "~") pass through, everything else
// becomes %XX with uppercase hex.
func PercentEncode(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isUnreserved(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(upperHex[c>>4])
		b.WriteByte(upperHex[c&0x0f])
	}
	return b.String()
}

const upperHex = "0123456789ABCDEF"

func isUnreserved(c byte) bool {
	switch {
	case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9':
		return true
	case c == '-' || c == '.' || c == '_' || c == '~':
		return true
	}
	return false
}

// BaseString builds the OAuth 1.0 signature base string from the HTTP
// method, the request URL (query string and fragment are stripped; query
// parameters are NOT folded into the parameter set) and the request
// parameters minus oauth_signature.
func BaseString(method, requestURL string, params map[string]string) string {
	type pair struct{ k, v string }
	pairs := make([]pair, 0, len(params))
	for k, v := range params {
		if k == "oauth_signature" {
			continue
		}
		pairs = append(pairs, pair{PercentEncode(k), PercentEncode(v)})
	}
	// Sort by encoded key, then by encoded value for equal keys.
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].k != pairs[j].k {
			return pairs[i].k < pairs[j].k
		}
		return pairs[i].v < pairs[j].v
	})

	joined := make([]string, len(pairs))
	for i, p := range pairs {
		joined[i] = p.k + "=" + p.v
	}
	return strings.ToUpper(method) + "&" +
		PercentEncode(stripQuery(requestURL)) + "&" +
		PercentEncode(strings.Join(joined, "&"))
}

func stripQuery(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		// Fall back to a textual strip; a malformed URL will simply fail
		// verification downstream.
		if i := strings.IndexByte(raw, '?'); i >= 0 {
			return raw[:i]
		}
		return raw
	}
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}

// Sign computes the base64-encoded HMAC-SHA1 signature for the request.
// The signing key is percentEncode(consumerSecret) + "&" with an empty
// token secret (two-legged).
func Sign(method, requestURL string, params map[string]string, consumerSecret string) string {
	base := BaseString(method, requestURL, params)
	mac := hmac.New(sha1.New, []byte(PercentEncode(consumerSecret)+"&"))
	mac.Write([]byte(base))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// Verify checks the oauth_signature present in params against the signature
// recomputed from the remaining parameters. It rejects any signature method
// other than HMAC-SHA1 and compares in constant time. Verify has no side
// effects and must run before any provisioning step.
func Verify(method, requestURL string, params map[string]string, consumerSecret string) bool {
	if params["oauth_signature_method"] != SignatureMethodHMACSHA1 {
		return false
	}
	supplied := params["oauth_signature"]
	if supplied == "" {
		return false
	}
	expected := Sign(method, requestURL, params, consumerSecret)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(supplied)) == 1
}
