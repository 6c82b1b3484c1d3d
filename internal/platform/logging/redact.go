package logging

import (
	"log/slog"
	"regexp"

	"github.com/m-mizutani/masq"
)

var (
	// credentialsInURL matches URLs and DSNs that embed a user and password,
	// such as an OTLP endpoint or a database connection string.
	credentialsInURL = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9+.-]*://[^/\s:@]+:[^/\s@]+@`)

	// authHeaderValue matches Authorization header values passed as OTLP
	// exporter headers.
	authHeaderValue = regexp.MustCompile(`(?i)^(bearer|basic)\s+\S+$`)
)

// DefaultRedactOptions returns the masq options applied to every log output.
// Quote text, storage keys and file paths are never secret; credentials
// that reach the config through the environment are.
func DefaultRedactOptions() []masq.Option {
	return []masq.Option{
		masq.WithFieldName("password"),
		masq.WithFieldName("token"),
		masq.WithFieldName("authorization"),
		masq.WithFieldName("dsn"),
		masq.WithFieldName("otlp_headers"),

		masq.WithFieldPrefix("secret"),
		masq.WithFieldPrefix("api_key"),

		masq.WithRegex(credentialsInURL),
		masq.WithRegex(authHeaderValue),
	}
}

// NewReplaceAttr creates a ReplaceAttr function for slog.HandlerOptions
// that redacts DefaultRedactOptions plus opts.
func NewReplaceAttr(opts ...masq.Option) func(groups []string, a slog.Attr) slog.Attr {
	return masq.New(append(DefaultRedactOptions(), opts...)...)
}
