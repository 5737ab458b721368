package launch

import (
	"net/url"
	"strings"
)

// Request is the strongly-typed view of the raw LTI launch POST. The full
// parameter set is retained verbatim for signature verification; the typed
// fields are what the pipeline reads.
type Request struct {
	Email     string // lis_person_contact_email_primary
	NameFull  string // lis_person_name_full
	NameGiven string // lis_person_name_given
	Roles     string // roles, comma separated

	AssistantID     string // custom_assistant_id, as sent
	ConsumerKey     string // oauth_consumer_key
	SignatureMethod string // oauth_signature_method
	Signature       string // oauth_signature
	Timestamp       string // oauth_timestamp
	Nonce           string // oauth_nonce

	params map[string]string
}

// ParseRequest builds a Request from a parsed form body. Repeated keys keep
// their first value, matching what is signed.
func ParseRequest(form url.Values) Request {
	params := make(map[string]string, len(form))
	for k, vs := range form {
		if len(vs) > 0 {
			params[k] = vs[0]
		}
	}
	return Request{
		Email:           params["lis_person_contact_email_primary"],
		NameFull:        params["lis_person_name_full"],
		NameGiven:       params["lis_person_name_given"],
		Roles:           params["roles"],
		AssistantID:     params["custom_assistant_id"],
		ConsumerKey:     params["oauth_consumer_key"],
		SignatureMethod: params["oauth_signature_method"],
		Signature:       params["oauth_signature"],
		Timestamp:       params["oauth_timestamp"],
		Nonce:           params["oauth_nonce"],
		params:          params,
	}
}

// Params returns the full signed parameter set.
func (r Request) Params() map[string]string { return r.params }

// DisplayName resolves the learner's name: full name, then given name, then
// a generic fallback.
func (r Request) DisplayName() string {
	if s := strings.TrimSpace(r.NameFull); s != "" {
		return s
	}
	if s := strings.TrimSpace(r.NameGiven); s != "" {
		return s
	}
	return "Student"
}

// Role returns the first LMS role, or "Learner" when none was sent. Recorded
// in the launch ledger as-is.
func (r Request) Role() string {
	for _, part := range strings.Split(r.Roles, ",") {
		if s := strings.TrimSpace(part); s != "" {
			return s
		}
	}
	return "Learner"
}
