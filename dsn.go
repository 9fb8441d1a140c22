package sentry_sender

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// PortUnset marks a DSN without an explicit port
const PortUnset = -1

// DSN represents a parsed Sentry DSN of the form
// {PROTOCOL}://{PUBLIC_KEY}:{SECRET_KEY}@{HOST}[:{PORT}]/{PATH}/{PROJECT_ID}
type DSN struct {
	Scheme    string
	PublicKey string
	SecretKey string
	Host      string
	Port      int
	Path      string
	ProjectID string
}

// ParseDSN parses a Sentry DSN string. An empty string yields ErrConfigurationAbsent.
func ParseDSN(dsnStr string) (*DSN, error) {
	if dsnStr == "" {
		return nil, ErrConfigurationAbsent
	}

	parsedURL, err := url.Parse(dsnStr)
	if err != nil {
		return nil, &DSNError{Kind: MalformedURL, Message: "the DSN is not a valid URL", Err: err}
	}

	if parsedURL.Scheme == "" || parsedURL.Hostname() == "" {
		return nil, &DSNError{Kind: MalformedURL, Message: "the DSN must contain a scheme and a host"}
	}

	// Project ID is whatever follows the last slash, the rest is the path prefix
	lastSlash := strings.LastIndex(parsedURL.Path, "/")
	if lastSlash < 0 {
		return nil, &DSNError{Kind: MalformedURL, Message: "the DSN path must contain a project ID"}
	}
	path := parsedURL.Path[:lastSlash]
	projectID := parsedURL.Path[lastSlash+1:]

	if parsedURL.User == nil {
		return nil, &DSNError{Kind: MalformedCredentials, Message: "the DSN must contain a public and a secret key"}
	}
	publicKey := parsedURL.User.Username()
	secretKey, ok := parsedURL.User.Password()
	if !ok || publicKey == "" {
		return nil, &DSNError{Kind: MalformedCredentials, Message: "the DSN user info must be {PUBLIC_KEY}:{SECRET_KEY}"}
	}

	port := PortUnset
	if parsedURL.Port() != "" {
		portNum, err := strconv.Atoi(parsedURL.Port())
		if err != nil {
			return nil, &DSNError{Kind: MalformedURL, Message: "the DSN port is invalid", Err: err}
		}
		port = portNum
	}

	return &DSN{
		Scheme:    parsedURL.Scheme,
		PublicKey: publicKey,
		SecretKey: secretKey,
		Host:      parsedURL.Hostname(),
		Port:      port,
		Path:      path,
		ProjectID: projectID,
	}, nil
}

// StoreURL returns the store API endpoint the report is POSTed to
func (d *DSN) StoreURL() (string, error) {
	var sb strings.Builder
	sb.WriteString(d.Scheme)
	sb.WriteString("://")
	sb.WriteString(d.bracketedHost())

	if d.Port != PortUnset && d.Port != 0 && d.Port != 80 {
		sb.WriteString(":")
		sb.WriteString(strconv.Itoa(d.Port))
	}

	sb.WriteString(d.Path)
	sb.WriteString("/api/")
	sb.WriteString(d.ProjectID)
	sb.WriteString("/store/")

	storeURL := sb.String()
	if _, err := url.ParseRequestURI(storeURL); err != nil {
		return "", &DSNError{Kind: MalformedURL, Message: fmt.Sprintf("the store URL %q is invalid", storeURL), Err: err}
	}

	return storeURL, nil
}

// String returns the DSN with the secret key redacted, safe for logs
func (d *DSN) String() string {
	u := url.URL{
		Scheme: d.Scheme,
		User:   url.UserPassword(d.PublicKey, "xxxxx"),
		Host:   d.bracketedHost(),
		Path:   d.Path + "/" + d.ProjectID,
	}
	if d.Port != PortUnset {
		u.Host = fmt.Sprintf("%s:%d", u.Host, d.Port)
	}
	return u.String()
}

// IPv6 literals lose their brackets in url.Hostname
func (d *DSN) bracketedHost() string {
	if strings.Contains(d.Host, ":") {
		return "[" + d.Host + "]"
	}
	return d.Host
}
