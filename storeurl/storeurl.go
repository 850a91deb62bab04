// Package storeurl parses the store-path URLs used to address a local
// directory store, a remote store reachable over SSH, or a remote store
// running inside a Docker container (spec.md §6).
package storeurl

import (
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/ebkalderon/deck/deckerr"
)

// Kind distinguishes the three store transports a StoreURL may address.
type Kind int

// Recognized Kind values.
const (
	KindLocal Kind = iota
	KindSSH
	KindDocker
)

// ContainerKind distinguishes whether a Docker store was addressed by
// container ID or by container name.
type ContainerKind int

// Recognized ContainerKind values.
const (
	ContainerID ContainerKind = iota
	ContainerName
)

// DockerContainer identifies the container a docker+ store URL targets.
type DockerContainer struct {
	Kind  ContainerKind
	Value string
}

// StoreURL is a parsed, canonicalized store address: `local+file://...`,
// `ssh+ssh://...`, or `docker+{unix,https,ssh}://...`.
type StoreURL struct {
	url       *url.URL
	kind      Kind
	container DockerContainer
}

// IsLocal reports whether this is a local directory store.
func (s *StoreURL) IsLocal() bool { return s.kind == KindLocal }

// IsSSH reports whether this is a remote SSH store.
func (s *StoreURL) IsSSH() bool { return s.kind == KindSSH }

// IsDocker reports whether this is a remote Docker store.
func (s *StoreURL) IsDocker() bool { return s.kind == KindDocker }

// Container returns the Docker container this StoreURL targets, if any.
func (s *StoreURL) Container() (DockerContainer, bool) {
	if s.kind != KindDocker {
		return DockerContainer{}, false
	}
	return s.container, true
}

// URL returns the canonicalized underlying URL.
func (s *StoreURL) URL() *url.URL { return s.url }

// String renders the canonicalized underlying URL.
func (s *StoreURL) String() string { return s.url.String() }

// MarshalText implements encoding.TextMarshaler.
func (s *StoreURL) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *StoreURL) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*s = *parsed
	return nil
}

// Parse parses a store-path URL of the form `prefix+url`, dispatching to
// ForLocal, ForSSH, or ForDocker based on the prefix and, for `local`, the
// inner URL's scheme.
func Parse(raw string) (*StoreURL, error) {
	prefix, rest, ok := strings.Cut(raw, "+")
	if !ok {
		return nil, invalid(raw, "expected store ID with the form `prefix+url`")
	}

	u, err := url.Parse(rest)
	if err != nil {
		return nil, invalid(raw, err.Error())
	}

	switch prefix {
	case "local":
		if u.Scheme != "file" {
			return nil, unsupportedScheme(raw, u.Scheme)
		}
		return ForLocal(u.Path)
	case "ssh":
		return forSSH(raw, u)
	case "docker":
		return forDocker(raw, u)
	default:
		return nil, invalid(raw, fmt.Sprintf("unsupported prefix `%s+`", prefix))
	}
}

// ForLocal builds a local store URL from a filesystem path. The path must
// be absolute; it is normalized to directory form (trailing slash).
func ForLocal(p string) (*StoreURL, error) {
	if !path.IsAbs(p) {
		return nil, invalid(p, "local store path must be absolute")
	}

	clean := path.Clean(p)
	if !strings.HasSuffix(clean, "/") {
		clean += "/"
	}

	return &StoreURL{
		url:  &url.URL{Scheme: "file", Path: clean},
		kind: KindLocal,
	}, nil
}

// ForSSH builds a remote SSH store URL, stripping any query or fragment.
func ForSSH(u *url.URL) (*StoreURL, error) {
	return forSSH(u.String(), u)
}

func forSSH(raw string, u *url.URL) (*StoreURL, error) {
	if u.Scheme != "ssh" {
		return nil, unsupportedScheme(raw, u.Scheme)
	}
	if u.Host == "" {
		return nil, &deckerr.InvalidStoreURL{Value: raw, Reason: "URL scheme requires a host"}
	}

	canonical := *u
	canonical.RawQuery = ""
	canonical.Fragment = ""
	canonical.RawFragment = ""

	return &StoreURL{url: &canonical, kind: KindSSH}, nil
}

// ForDocker builds a remote Docker store URL. The scheme must be one of
// unix, https, or ssh; https and ssh URLs need a host, while a unix URL
// names a socket path. The query string must carry `user=...` and a
// `container_id=...` or `container_name=...` pair: the first non-`user`
// query pair encountered decides, and any pairs after it are ignored.
func ForDocker(u *url.URL) (*StoreURL, error) {
	return forDocker(u.String(), u)
}

func forDocker(raw string, u *url.URL) (*StoreURL, error) {
	switch u.Scheme {
	case "unix", "https", "ssh":
	default:
		return nil, unsupportedScheme(raw, u.Scheme)
	}
	if u.Host == "" && u.Scheme != "unix" {
		return nil, &deckerr.InvalidStoreURL{Value: raw, Reason: "URL scheme requires a host"}
	}

	pairs, err := parseOrderedQuery(u.RawQuery)
	if err != nil {
		return nil, invalid(raw, err.Error())
	}

	user, ok := firstValue(pairs, "user")
	if !ok {
		return nil, &deckerr.InvalidStoreURL{Value: raw, Reason: "missing required query pair `?user=...`"}
	}

	k, v, ok := firstNonUser(pairs)
	if !ok {
		return nil, &deckerr.InvalidStoreURL{Value: raw, Reason: "Docker store ID missing a `?container_id=` or `?container_name=`"}
	}

	var container DockerContainer
	switch k {
	case "container_id":
		container = DockerContainer{Kind: ContainerID, Value: v}
	case "container_name":
		container = DockerContainer{Kind: ContainerName, Value: v}
	default:
		return nil, &deckerr.InvalidStoreURL{Value: raw, Reason: fmt.Sprintf("unknown query pair `?%s=%s`", k, v)}
	}

	canonical := *u
	canonical.Fragment = ""
	canonical.RawFragment = ""
	query := url.Values{}
	query.Set("user", user)
	query.Set(k, v)
	canonical.RawQuery = query.Encode()

	return &StoreURL{url: &canonical, kind: KindDocker, container: container}, nil
}

type queryPair struct {
	Key, Value string
}

// parseOrderedQuery parses a raw query string into ordered key/value pairs,
// preserving the original ordering that net/url.Values (a map) discards.
func parseOrderedQuery(raw string) ([]queryPair, error) {
	if raw == "" {
		return nil, nil
	}

	segments := strings.Split(raw, "&")
	pairs := make([]queryPair, 0, len(segments))
	for _, seg := range segments {
		if seg == "" {
			continue
		}
		k, v, _ := strings.Cut(seg, "=")
		key, err := url.QueryUnescape(k)
		if err != nil {
			return nil, err
		}
		val, err := url.QueryUnescape(v)
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, queryPair{Key: key, Value: val})
	}
	return pairs, nil
}

func firstValue(pairs []queryPair, key string) (string, bool) {
	for _, p := range pairs {
		if p.Key == key {
			return p.Value, true
		}
	}
	return "", false
}

func firstNonUser(pairs []queryPair) (key, value string, ok bool) {
	for _, p := range pairs {
		if p.Key != "user" {
			return p.Key, p.Value, true
		}
	}
	return "", "", false
}

func invalid(value, reason string) error {
	return &deckerr.InvalidStoreURL{Value: value, Reason: reason}
}

func unsupportedScheme(value, scheme string) error {
	return &deckerr.InvalidStoreURL{Value: value, Reason: fmt.Sprintf("unsupported URL scheme `%s://`", scheme)}
}
