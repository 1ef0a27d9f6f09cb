package gotrue

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

const (
	// base64Prefix marks a base64url encoded cookie value.
	base64Prefix = "base64-"

	// maxChunkSize keeps every cookie below the 4KB browser limit together with its attributes.
	maxChunkSize = 3180
)

// Cookie is a framework independent cookie to set or delete.
// MaxAge < 0 deletes the cookie.
type Cookie struct {
	Name     string
	Value    string
	Path     string
	Domain   string
	MaxAge   int
	Secure   bool
	HTTPOnly bool
	SameSite string
}

// CookieOptions are the attributes applied to every session cookie.
type CookieOptions struct {
	Path     string
	Domain   string
	MaxAge   int
	Secure   bool
	HTTPOnly bool
	SameSite string
}

// CookieJar gives the Server access to request cookies and collects response cookies.
type CookieJar interface {
	// GetAll returns the cookies of the current request.
	GetAll() []Cookie
	// SetAll queues cookies for the response.
	SetAll(cookies []Cookie)
}

// DefaultStorageKey derives the cookie and storage key "sb-<ref>-auth-token"
// from the auth url, where ref is the first label of the host name.
func DefaultStorageKey(authURL string) string {
	ref := "local"

	if u, err := url.Parse(authURL); err == nil && u.Hostname() != "" {
		ref, _, _ = strings.Cut(u.Hostname(), ".")
	}

	return "sb-" + ref + "-auth-token"
}

// EncodeSession serializes a session into a cookie value.
func EncodeSession(s *Session) (string, error) {
	raw, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("encode session: %w", err)
	}

	return base64Prefix + base64.RawURLEncoding.EncodeToString(raw), nil
}

// DecodeSession parses a cookie value written by EncodeSession. Plain JSON
// values without the base64 prefix are accepted as well.
func DecodeSession(value string) (*Session, error) {
	raw := []byte(value)

	if encoded, ok := strings.CutPrefix(value, base64Prefix); ok {
		decoded, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(encoded, "="))
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformedCookie, err)
		}

		raw = decoded
	}

	session := new(Session)
	if err := json.Unmarshal(raw, session); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedCookie, err)
	}

	if session.AccessToken == "" {
		return nil, fmt.Errorf("%w: no access token", ErrMalformedCookie)
	}

	return session, nil
}

// chunkValue splits value into cookies named key, or key.0, key.1, ...
// when it does not fit into a single cookie.
func chunkValue(key, value string) []Cookie {
	if len(value) <= maxChunkSize {
		return []Cookie{{Name: key, Value: value}}
	}

	var chunks []Cookie

	for i := 0; len(value) > 0; i++ {
		n := min(maxChunkSize, len(value))
		chunks = append(chunks, Cookie{Name: key + "." + strconv.Itoa(i), Value: value[:n]})
		value = value[n:]
	}

	return chunks
}

// combineChunks rebuilds a value split by chunkValue.
func combineChunks(key string, cookies map[string]string) (string, bool) {
	if v, ok := cookies[key]; ok {
		return v, true
	}

	var b strings.Builder

	for i := 0; ; i++ {
		v, ok := cookies[key+"."+strconv.Itoa(i)]
		if !ok {
			return b.String(), i > 0
		}

		b.WriteString(v)
	}
}

// chunkNames returns the names of all cookies that belong to key, sorted.
func chunkNames(key string, cookies map[string]string) []string {
	var names []string

	for name := range cookies {
		if name == key {
			names = append(names, name)
			continue
		}

		if suffix, ok := strings.CutPrefix(name, key+"."); ok {
			if _, err := strconv.Atoi(suffix); err == nil {
				names = append(names, name)
			}
		}
	}

	sort.Strings(names)

	return names
}

func cookieMap(jar CookieJar) map[string]string {
	all := jar.GetAll()
	m := make(map[string]string, len(all))

	for _, c := range all {
		m[c.Name] = c.Value
	}

	return m
}

func (o CookieOptions) apply(c Cookie) Cookie {
	c.Path = o.Path
	c.Domain = o.Domain
	c.MaxAge = o.MaxAge
	c.Secure = o.Secure
	c.HTTPOnly = o.HTTPOnly
	c.SameSite = o.SameSite

	return c
}
