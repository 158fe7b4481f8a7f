// Package parser derives task identifiers from work-management tool URLs.
//
// Matching is driven by a Policy: an ordered list of typed patterns. The
// first pattern that matches the URL path wins. Query strings and fragments
// never take part in matching since the tool uses fragments for in-page UI
// state.
package parser

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/pkg/errors"
)

// ResourceType names a kind of page that can be tracked.
type ResourceType string

const (
	ResourceProject       ResourceType = "projects"
	ResourceMessage       ResourceType = "messages"
	ResourceCard          ResourceType = "cards"
	ResourceTodo          ResourceType = "todos"
	ResourceTodoList      ResourceType = "todolists"
	ResourceDocument      ResourceType = "documents"
	ResourceScheduleEntry ResourceType = "schedule_entries"
	ResourceUpload        ResourceType = "uploads"

	// ResourceAny is reported by patterns that do not check the segment type.
	ResourceAny ResourceType = "*"
)

// Pattern matches one resource type followed by a digit run.
type Pattern struct {
	Type ResourceType
	re   *regexp.Regexp
}

// NewTypedPattern matches "/<type>/<digits>" as whole path segments.
func NewTypedPattern(t ResourceType) Pattern {
	return Pattern{
		Type: t,
		re:   regexp.MustCompile(`(?:^|/)` + regexp.QuoteMeta(string(t)) + `/(\d+)(?:/|$)`),
	}
}

func (p Pattern) match(path string) (string, bool) {
	m := p.re.FindStringSubmatch(path)
	if m == nil || m[1] == "" {
		return "", false
	}
	return m[1], true
}

// Policy is a versioned, ordered set of patterns.
type Policy struct {
	Version  string
	Patterns []Pattern
}

var (
	// PolicyV1 accepts the last path segment when it is numeric, whatever
	// precedes it. It yields false positives on comment anchors and other
	// incidental numeric segments and is kept for comparison only.
	PolicyV1 = Policy{
		Version: "v1",
		Patterns: []Pattern{
			{Type: ResourceAny, re: regexp.MustCompile(`(?:^|/)(\d+)$`)},
		},
	}

	// PolicyV2 requires the digit run to follow a known resource type.
	PolicyV2 = Policy{
		Version: "v2",
		Patterns: []Pattern{
			NewTypedPattern(ResourceProject),
			NewTypedPattern(ResourceMessage),
			NewTypedPattern(ResourceCard),
			NewTypedPattern(ResourceTodo),
			NewTypedPattern(ResourceTodoList),
			NewTypedPattern(ResourceDocument),
			NewTypedPattern(ResourceScheduleEntry),
			NewTypedPattern(ResourceUpload),
		},
	}

	DefaultPolicy = PolicyV2
)

// PolicyByVersion looks up a built-in policy.
func PolicyByVersion(version string) (Policy, error) {
	switch version {
	case "", PolicyV2.Version:
		return PolicyV2, nil
	case PolicyV1.Version:
		return PolicyV1, nil
	default:
		return Policy{}, errors.Errorf("unknown parser policy '%s'", version)
	}
}

// Types lists the resource types the policy recognizes.
func (p Policy) Types() []ResourceType {
	types := make([]ResourceType, 0, len(p.Patterns))
	for _, pat := range p.Patterns {
		types = append(types, pat.Type)
	}
	return types
}

// Match is a successful identifier extraction.
type Match struct {
	Type ResourceType
	ID   string
}

// Extract returns the identifier found in rawURL's path. It reports false on
// malformed input or when no pattern matches.
func (p Policy) Extract(rawURL string) (Match, bool) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return Match{}, false
	}

	path := strings.TrimSuffix(u.Path, "/")

	for _, pat := range p.Patterns {
		if id, ok := pat.match(path); ok {
			return Match{Type: pat.Type, ID: id}, true
		}
	}

	return Match{}, false
}

// ExtractID applies the default policy.
func ExtractID(rawURL string) (string, bool) {
	m, ok := DefaultPolicy.Extract(rawURL)
	if !ok {
		return "", false
	}
	return m.ID, true
}

// IsTaskPage reports whether rawURL belongs to host or one of its subdomains.
func IsTaskPage(rawURL string, host string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return false
	}
	h := strings.ToLower(u.Hostname())
	host = strings.ToLower(host)
	return h == host || strings.HasSuffix(h, "."+host)
}

// CanonicalURL strips the query and fragment, keeping origin and path.
func CanonicalURL(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", errors.Wrapf(err, "could not parse url '%s'", rawURL)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", errors.Errorf("url '%s' is not absolute", rawURL)
	}
	return u.Scheme + "://" + u.Host + u.EscapedPath(), nil
}

// SameLocation compares two URLs ignoring a trailing slash.
func SameLocation(a, b string) bool {
	return strings.TrimSuffix(a, "/") == strings.TrimSuffix(b, "/")
}

// CleanTitle removes the suffix the tool appends to page titles.
func CleanTitle(title, suffix string) string {
	if suffix != "" {
		title = strings.TrimSuffix(title, suffix)
	}
	return strings.TrimSpace(title)
}
