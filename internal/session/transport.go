package session

import "net/http"

// Transport is an http.RoundTripper that attaches the session token to
// every request it carries.
type Transport struct {
	// Session supplies the token. Required.
	Session *Manager

	// Base is the underlying transport. If nil, http.DefaultTransport is used.
	Base http.RoundTripper
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	return t.base().RoundTrip(t.Session.Attach(req))
}

func (t *Transport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}
