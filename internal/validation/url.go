package validation

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"syscall"
)

// ErrInvalidURL is wrapped by every rejection from URLValidator.
var ErrInvalidURL = errors.New("invalid feed URL")

// URLValidator checks feed URLs supplied by users before they are fetched
// or stored.
type URLValidator struct {
	// AllowPrivateHosts permits loopback, private and link-local targets
	AllowPrivateHosts bool
	// MaxLength is the maximum allowed URL length
	MaxLength int
}

// NewURLValidator creates a validator that blocks non-public hosts unless
// allowPrivateHosts is set.
func NewURLValidator(allowPrivateHosts bool) *URLValidator {
	return &URLValidator{
		AllowPrivateHosts: allowPrivateHosts,
		MaxLength:         2048,
	}
}

// Normalize trims input, requires an absolute http(s) URL and returns its
// canonical string form.
func (v *URLValidator) Normalize(input string) (string, error) {
	input = strings.TrimSpace(input)

	if input == "" {
		return "", fmt.Errorf("%w: URL cannot be empty", ErrInvalidURL)
	}
	if len(input) > v.MaxLength {
		return "", fmt.Errorf("%w: URL too long (max %d characters)", ErrInvalidURL, v.MaxLength)
	}
	if strings.ContainsAny(input, "<>\"'` ") {
		return "", fmt.Errorf("%w: URL contains invalid characters", ErrInvalidURL)
	}

	parsedURL, err := url.Parse(input)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}

	scheme := strings.ToLower(parsedURL.Scheme)
	if scheme != "http" && scheme != "https" {
		return "", fmt.Errorf("%w: URL must use http or https", ErrInvalidURL)
	}
	parsedURL.Scheme = scheme

	if parsedURL.Hostname() == "" {
		return "", fmt.Errorf("%w: URL must have a hostname", ErrInvalidURL)
	}
	parsedURL.Host = strings.ToLower(parsedURL.Host)

	if parsedURL.User != nil {
		return "", fmt.Errorf("%w: credentials in URL are not permitted", ErrInvalidURL)
	}

	if !v.AllowPrivateHosts {
		if err := checkPublicHost(parsedURL.Hostname()); err != nil {
			return "", err
		}
	}

	if strings.Contains(parsedURL.Path, "..") {
		return "", fmt.Errorf("%w: directory traversal patterns not allowed in URL path", ErrInvalidURL)
	}
	if q := strings.ToLower(parsedURL.RawQuery); strings.Contains(q, "<script") || strings.Contains(q, "javascript:") {
		return "", fmt.Errorf("%w: suspicious query parameters detected", ErrInvalidURL)
	}

	return parsedURL.String(), nil
}

func checkPublicHost(hostname string) error {
	if isLocalhost(hostname) {
		return fmt.Errorf("%w: localhost URLs are not permitted", ErrInvalidURL)
	}
	if isNumericHost(hostname) {
		return fmt.Errorf("%w: obfuscated numeric hostname", ErrInvalidURL)
	}
	if ip := net.ParseIP(hostname); ip != nil && isNonPublicIP(ip) {
		return fmt.Errorf("%w: private IP addresses are not permitted", ErrInvalidURL)
	}
	return nil
}

// PublicDialControl is a net.Dialer Control hook that refuses connections
// to loopback, private, link-local and other non-public addresses. It runs
// after DNS resolution, so it also stops hostnames (and redirects) that lead
// into internal networks, which Normalize cannot see.
func PublicDialControl(_, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	ip := net.ParseIP(host)
	if ip == nil || isNonPublicIP(ip) {
		return fmt.Errorf("%w: %s is not a public address", ErrInvalidURL, host)
	}
	return nil
}

func isLocalhost(hostname string) bool {
	hostname = strings.ToLower(strings.TrimSuffix(hostname, "."))
	return hostname == "localhost" || strings.HasSuffix(hostname, ".localhost")
}

func isNonPublicIP(ip net.IP) bool {
	return ip.IsLoopback() ||
		ip.IsPrivate() ||
		ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast() ||
		ip.IsUnspecified() ||
		ip.IsMulticast() ||
		ip.Equal(net.IPv4bcast)
}

// isNumericHost catches single-integer and hex hosts such as 2130706433 or
// 0x7f000001, which resolvers may treat as IPv4 addresses.
func isNumericHost(hostname string) bool {
	if strings.HasPrefix(strings.ToLower(hostname), "0x") {
		return true
	}
	_, err := strconv.ParseUint(hostname, 10, 64)
	return err == nil
}
