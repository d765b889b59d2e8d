package rbac

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed guards.yaml
var defaultGuards []byte

// RouteGuards maps console route paths to their declared guards.
type RouteGuards struct {
	paths  []string
	guards map[string]RouteGuard
}

type guardFile struct {
	Routes []guardEntry `yaml:"routes"`
}

type guardEntry struct {
	Path        string   `yaml:"path"`
	Roles       []string `yaml:"roles"`
	Permissions []string `yaml:"permissions"`
}

// DefaultRouteGuards returns the embedded route catalog.
func DefaultRouteGuards() (*RouteGuards, error) {
	return ParseRouteGuards(bytes.NewReader(defaultGuards))
}

// LoadRouteGuards reads a route catalog from path, or the embedded one when
// path is empty.
func LoadRouteGuards(path string) (*RouteGuards, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultRouteGuards()
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("rbac: open route guards: %w", err)
	}
	defer f.Close()
	return ParseRouteGuards(f)
}

// ParseRouteGuards decodes a YAML route catalog. Every role and permission
// must belong to the closed sets.
func ParseRouteGuards(r io.Reader) (*RouteGuards, error) {
	var file guardFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("rbac: decode route guards: %w", err)
	}
	rg := &RouteGuards{guards: make(map[string]RouteGuard, len(file.Routes))}
	for _, entry := range file.Routes {
		path := normalizePath(entry.Path)
		if path == "" {
			return nil, errors.New("rbac: route guard path required")
		}
		if _, dup := rg.guards[path]; dup {
			return nil, fmt.Errorf("rbac: duplicate route guard %q", path)
		}
		guard := RouteGuard{}
		for _, raw := range entry.Roles {
			role, err := ParseRole(raw)
			if err != nil {
				return nil, fmt.Errorf("route %s: %w", path, err)
			}
			guard.RequiredRoles = append(guard.RequiredRoles, role)
		}
		for _, raw := range entry.Permissions {
			perm, err := ParsePermission(raw)
			if err != nil {
				return nil, fmt.Errorf("route %s: %w", path, err)
			}
			guard.RequiredPermissions = append(guard.RequiredPermissions, perm)
		}
		rg.guards[path] = guard
		rg.paths = append(rg.paths, path)
	}
	sort.Strings(rg.paths)
	return rg, nil
}

// Lookup returns the guard of the most specific declared route covering
// path. "/teams/7" falls back to "/teams".
func (rg *RouteGuards) Lookup(path string) (RouteGuard, bool) {
	if rg == nil {
		return RouteGuard{}, false
	}
	path = normalizePath(path)
	for path != "" {
		if guard, ok := rg.guards[path]; ok {
			return guard, true
		}
		idx := strings.LastIndex(path, "/")
		if idx <= 0 {
			break
		}
		path = path[:idx]
	}
	return RouteGuard{}, false
}

// Paths lists the declared routes in lexical order.
func (rg *RouteGuards) Paths() []string {
	if rg == nil {
		return nil
	}
	out := make([]string, len(rg.paths))
	copy(out, rg.paths)
	return out
}

func normalizePath(path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return ""
	}
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
	}
	return path
}
