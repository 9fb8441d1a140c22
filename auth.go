package sentry_sender

import (
	"strings"
)

const (
	// AuthHeader carries the credentials of a store request
	AuthHeader = "X-Sentry-Auth"

	// ClientName identifies this client in the auth header
	ClientName = "ACRA/5.0.0"

	protocolVersion = "4"
)

// BuildAuthHeader builds the X-Sentry-Auth value. Protocol version 4 sends the
// secret key in clear, so there is no timestamp or signature in the header.
//
//	Sentry sentry_version=4,sentry_client=<client>,sentry_key=<public>,sentry_secret=<secret>
func BuildAuthHeader(dsn *DSN) string {
	var header strings.Builder
	header.WriteString("Sentry sentry_version=")
	header.WriteString(protocolVersion)
	header.WriteString(",sentry_client=")
	header.WriteString(ClientName)
	header.WriteString(",sentry_key=")
	header.WriteString(dsn.PublicKey)
	header.WriteString(",sentry_secret=")
	header.WriteString(dsn.SecretKey)
	return header.String()
}
