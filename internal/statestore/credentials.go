package statestore

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Credentials is the JSON blob that enables the remote document store.
//
//	{"url":"nats://nats.example:4222","user":"lob","password":"secret"}
type Credentials struct {
	URL       string `json:"url"`
	User      string `json:"user,omitempty"`
	Password  string `json:"password,omitempty"`
	Token     string `json:"token,omitempty"`
	CredsFile string `json:"creds_file,omitempty"`
	Name      string `json:"name,omitempty"`
}

// ParseCredentials decodes and validates a credential blob. Any problem is
// reported as ErrBackendUnavailable so the bootstrapper can fall back.
func ParseCredentials(blob []byte) (Credentials, error) {
	blob = bytes.TrimSpace(blob)
	if len(blob) == 0 {
		return Credentials{}, unavailable(string(KindRemote), errors.New("remote credentials are not configured")).Build()
	}

	var creds Credentials
	dec := json.NewDecoder(bytes.NewReader(blob))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&creds); err != nil {
		return Credentials{}, unavailable(string(KindRemote), fmt.Errorf("malformed remote credentials: %w", err)).Build()
	}
	if err := creds.Validate(); err != nil {
		return Credentials{}, unavailable(string(KindRemote), err).Build()
	}
	return creds, nil
}

// Validate checks the fields without contacting the server.
func (c Credentials) Validate() error {
	if strings.TrimSpace(c.URL) == "" {
		return errors.New("remote credentials: url is required")
	}
	for _, raw := range strings.Split(c.URL, ",") {
		u, err := url.Parse(strings.TrimSpace(raw))
		if err != nil || u.Host == "" {
			return fmt.Errorf("remote credentials: invalid url %q", raw)
		}
		switch u.Scheme {
		case "nats", "tls", "ws", "wss":
		default:
			return fmt.Errorf("remote credentials: unsupported url scheme %q", u.Scheme)
		}
	}
	if c.Token != "" && (c.User != "" || c.Password != "") {
		return errors.New("remote credentials: token and user/password are mutually exclusive")
	}
	if c.Password != "" && c.User == "" {
		return errors.New("remote credentials: password given without user")
	}
	return nil
}

// Redacted returns a copy safe for logging.
func (c Credentials) Redacted() Credentials {
	out := c
	if out.Password != "" {
		out.Password = "***"
	}
	if out.Token != "" {
		out.Token = "***"
	}
	return out
}
