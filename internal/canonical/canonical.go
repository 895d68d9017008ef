// Package canonical normalizes URLs into stable identity strings.
// Every list and cache lookup in phishguard compares URLs through this
// package, so two URLs refer to the same site iff their canonical forms
// are equal.
package canonical

import (
	"net/url"
	"sort"
	"strings"

	"golang.org/x/net/idna"
)

// defaultPorts maps schemes to their default port strings.
var defaultPorts = map[string]string{
	"http":  "80",
	"https": "443",
}

// Canonicalize applies deterministic transformations to a raw URL so that
// equivalent URLs produce identical strings. Transformations include
// defaulting or upgrading the scheme to https, lowercasing scheme and host, converting
// Unicode hosts to punycode, adding a www. prefix to bare second-level
// domains, removing default ports, defaulting an empty path to "/",
// sorting query parameters, and removing fragments.
//
// Canonicalize is total: malformed input yields the empty string, and the
// function is idempotent over its own outputs.
func Canonicalize(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}

	parsed, err := url.Parse(raw)
	if err != nil || parsed.Hostname() == "" {
		return ""
	}

	originalScheme := strings.ToLower(parsed.Scheme)
	scheme := originalScheme
	if scheme == "http" {
		scheme = "https"
	}
	host := canonicalHostname(parsed.Hostname())

	// Remove the port if it is the default for either the original or
	// the upgraded scheme.
	port := parsed.Port()
	for _, s := range []string{originalScheme, scheme} {
		if defaultPort, ok := defaultPorts[s]; ok && port == defaultPort {
			port = ""
			break
		}
	}

	netloc := host
	if port != "" {
		netloc = host + ":" + port
	}

	path := parsed.EscapedPath()
	if path == "" {
		path = "/"
	}

	var b strings.Builder
	b.WriteString(scheme)
	b.WriteString("://")
	b.WriteString(netloc)
	b.WriteString(path)
	if query := sortQuery(parsed.RawQuery); query != "" {
		b.WriteByte('?')
		b.WriteString(query)
	}
	return b.String()
}

// Host returns the canonical host of a URL ("www.example.com"), or the
// empty string when the URL is malformed. Host-scoped lookups such as the
// personal trust cache use this identity.
func Host(raw string) string {
	canon := Canonicalize(raw)
	if canon == "" {
		return ""
	}

	parsed, err := url.Parse(canon)
	if err != nil {
		return ""
	}
	return parsed.Hostname()
}

// Origin returns the canonical URL of a URL's host alone
// ("https://www.example.com/"). Host-level list entries (trust list
// origins) are compared through this form.
func Origin(raw string) string {
	return Canonicalize(Host(raw))
}

// canonicalHostname lowercases a hostname, converts it to its
// ASCII-compatible punycode form, and prefixes www. when the host is a
// bare second-level domain.
func canonicalHostname(hostname string) string {
	host := strings.ToLower(hostname)

	if ascii, err := idna.Lookup.ToASCII(host); err == nil {
		host = ascii
	}

	// A host with exactly one dot is a bare registrable domain.
	if strings.Count(host, ".") == 1 && !strings.HasPrefix(host, "www.") {
		host = "www." + host
	}

	return host
}

// sortQuery parses a raw query string into key/value pairs, preserving
// blank values, sorts the pairs lexicographically by key then value, and
// re-encodes them. Bare keys ("?flag") become blank-valued pairs.
func sortQuery(rawQuery string) string {
	if rawQuery == "" {
		return ""
	}

	type pair struct{ key, val string }
	var pairs []pair

	for _, part := range strings.Split(rawQuery, "&") {
		if part == "" {
			continue
		}
		key, val, _ := strings.Cut(part, "=")
		k, err := url.QueryUnescape(key)
		if err != nil {
			k = key
		}
		v, err := url.QueryUnescape(val)
		if err != nil {
			v = val
		}
		pairs = append(pairs, pair{key: k, val: v})
	}

	if len(pairs) == 0 {
		return ""
	}

	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].key != pairs[j].key {
			return pairs[i].key < pairs[j].key
		}
		return pairs[i].val < pairs[j].val
	})

	var b strings.Builder
	for i, p := range pairs {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(p.key))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(p.val))
	}
	return b.String()
}
