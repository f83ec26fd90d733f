package domain

import (
	"net"
	"strings"
)

// IdentitySet is the closed set of identities considered to belong to one
// customer after expansion through the funnel tool's user registry.
// Values are classified by format, never by provenance.
type IdentitySet struct {
	Emails []string `json:"emails"`
	IPv4s  []string `json:"ipv4s"`
	IPv6s  []string `json:"ipv6s"`
}

// IPs returns the combined v4+v6 addresses of the set.
func (s IdentitySet) IPs() []string {
	out := make([]string, 0, len(s.IPv4s)+len(s.IPv6s))
	out = append(out, s.IPv4s...)
	out = append(out, s.IPv6s...)
	return out
}

// Empty reports whether the set holds no identities at all.
func (s IdentitySet) Empty() bool {
	return len(s.Emails) == 0 && len(s.IPv4s) == 0 && len(s.IPv6s) == 0
}

// IsEmail reports whether v looks like an email address.
func IsEmail(v string) bool {
	at := strings.Index(v, "@")
	if at <= 0 || at == len(v)-1 {
		return false
	}
	domainPart := v[at+1:]
	return strings.Contains(domainPart, ".") && !strings.ContainsAny(v, " \t")
}

// IsIPv4 reports whether v is a dotted-quad IPv4 address.
func IsIPv4(v string) bool {
	ip := net.ParseIP(v)
	return ip != nil && ip.To4() != nil
}

// IsIPv6 reports whether v is an IPv6 address.
func IsIPv6(v string) bool {
	ip := net.ParseIP(v)
	return ip != nil && ip.To4() == nil && strings.Contains(v, ":")
}

// ClassifyIdentities partitions raw identity values into an IdentitySet by
// format predicates, deduplicating along the way. The seed emails are always
// included in the email subset even if absent from values.
func ClassifyIdentities(values []string, seedEmails ...string) IdentitySet {
	var set IdentitySet
	seen := make(map[string]bool, len(values)+len(seedEmails))

	add := func(v string) {
		if v == "" || seen[v] {
			return
		}
		seen[v] = true
		switch {
		case IsEmail(v):
			set.Emails = append(set.Emails, v)
		case IsIPv4(v):
			set.IPv4s = append(set.IPv4s, v)
		case IsIPv6(v):
			set.IPv6s = append(set.IPv6s, v)
		}
	}

	for _, v := range values {
		add(v)
	}
	for _, seed := range seedEmails {
		if seed != "" && !seen[seed] {
			seen[seed] = true
			set.Emails = append(set.Emails, seed)
		}
	}
	return set
}

// Dedup returns values with duplicates and empty strings removed,
// preserving first-occurrence order.
func Dedup(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
