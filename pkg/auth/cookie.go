package auth

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"
)

// Cookie is one browser cookie as persisted in the session file. Keys the
// browser reports that are not modelled here (partitionKey, sourceScheme,
// ...) are kept in Extra and written back unchanged.
type Cookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path"`
	Expires  float64 `json:"expires"`
	HTTPOnly bool    `json:"httpOnly"`
	Secure   bool    `json:"secure"`
	SameSite string  `json:"sameSite,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`

	// present is set for decoded cookies and lists the modelled keys the
	// object carried; only those are written back.
	present map[string]bool
}

type cookieFields Cookie

var knownCookieKeys = []string{"name", "value", "domain", "path", "expires", "httpOnly", "secure", "sameSite"}

// UnmarshalJSON decodes the modelled fields and keeps every other key
func (c *Cookie) UnmarshalJSON(data []byte) error {
	var fields cookieFields
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	present := make(map[string]bool, len(knownCookieKeys))
	for _, k := range knownCookieKeys {
		if _, ok := raw[k]; ok {
			present[k] = true
			delete(raw, k)
		}
	}
	*c = Cookie(fields)
	c.present = present
	if len(raw) > 0 {
		c.Extra = raw
	}
	return nil
}

func (c Cookie) field(key string) interface{} {
	switch key {
	case "name":
		return c.Name
	case "value":
		return c.Value
	case "domain":
		return c.Domain
	case "path":
		return c.Path
	case "expires":
		return c.Expires
	case "httpOnly":
		return c.HTTPOnly
	case "secure":
		return c.Secure
	default:
		return c.SameSite
	}
}

// writes reports whether key belongs in the encoded object. Decoded cookies
// keep exactly their original keys; cookies built in code write every field
// except an empty sameSite.
func (c Cookie) writes(key string) bool {
	if c.present != nil {
		return c.present[key]
	}
	return key != "sameSite" || c.SameSite != ""
}

// MarshalJSON writes the modelled fields first, then the preserved keys
func (c Cookie) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	put := func(key string, value []byte) {
		if !first {
			buf.WriteByte(',')
		}
		first = false
		buf.WriteString(strconv.Quote(key))
		buf.WriteByte(':')
		buf.Write(value)
	}

	for _, k := range knownCookieKeys {
		if !c.writes(k) {
			continue
		}
		v, err := marshalNoEscape(c.field(k))
		if err != nil {
			return nil, err
		}
		put(k, v)
	}

	keys := make([]string, 0, len(c.Extra))
	for k := range c.Extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		put(k, c.Extra[k])
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func marshalNoEscape(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// EncodeCookies renders cookies as the session file does: a JSON array
// indented by two spaces, non-ASCII text left as is.
func EncodeCookies(cookies []Cookie) ([]byte, error) {
	if cookies == nil {
		cookies = []Cookie{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(cookies); err != nil {
		return nil, fmt.Errorf("failed to encode cookies: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// DecodeCookies parses a session document. Only the outer shape is checked.
func DecodeCookies(data []byte) ([]Cookie, error) {
	var cookies []Cookie
	if err := json.Unmarshal(data, &cookies); err != nil {
		return nil, fmt.Errorf("failed to decode cookies: %w", err)
	}
	return cookies, nil
}

// ExpiresAt converts the epoch-seconds expiry. Session cookies report false.
func (c Cookie) ExpiresAt() (time.Time, bool) {
	if c.Expires <= 0 {
		return time.Time{}, false
	}
	sec := int64(c.Expires)
	nsec := int64((c.Expires - float64(sec)) * 1e9)
	return time.Unix(sec, nsec), true
}

// EarliestExpiry returns the soonest expiry among persistent cookies
func EarliestExpiry(cookies []Cookie) (time.Time, bool) {
	var earliest time.Time
	found := false
	for _, c := range cookies {
		t, ok := c.ExpiresAt()
		if !ok {
			continue
		}
		if !found || t.Before(earliest) {
			earliest, found = t, true
		}
	}
	return earliest, found
}

// Sanitize returns a copy of cookies with values masked for display
func Sanitize(cookies []Cookie) []Cookie {
	out := make([]Cookie, len(cookies))
	for i, c := range cookies {
		c.Value = maskString(c.Value)
		c.Extra = nil
		out[i] = c
	}
	return out
}

// maskString masks all but the first 4 and last 4 characters of a string
func maskString(s string) string {
	r := []rune(s)
	if len(r) <= 8 {
		return "********"
	}
	return string(r[:4]) + "..." + string(r[len(r)-4:])
}
