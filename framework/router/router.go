package router

import (
	"errors"
	"fmt"
	"path"
	"regexp"
	"sort"
	"strings"
)

var dynamicSegmentNamePattern = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_]*$`)

var validIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]*$`)

type pathSegment struct {
	name    string
	isParam bool
}

type appRoute struct {
	id          string
	segments    []pathSegment
	staticCount int
	patternKey  string
}

type AppRouteMatch struct {
	// ID is the pattern the route was registered with.
	ID     string
	Params map[string]string
}

func (m AppRouteMatch) Param(name string) (string, bool) {
	if m.Params == nil {
		return "", false
	}

	value, ok := m.Params[name]
	return value, ok
}

// AppRouter matches request paths against patterns such as
// "/talent/[id]". Static segments win over parameters, so "/talent/live"
// is preferred to "/talent/[id]".
type AppRouter struct {
	routes []appRoute
}

func NewAppRouter(patterns []string) (*AppRouter, error) {
	if len(patterns) == 0 {
		return nil, errors.New("no route patterns given")
	}

	routes := make([]appRoute, 0, len(patterns))
	seenPattern := make(map[string]string)
	seenID := make(map[string]bool)

	for _, pattern := range patterns {
		route, err := parseAppRoute(pattern)
		if err != nil {
			return nil, err
		}
		if seenID[route.id] {
			continue
		}

		if existing, ok := seenPattern[route.patternKey]; ok {
			return nil, fmt.Errorf("route pattern conflict: %q and %q", existing, route.id)
		}
		seenPattern[route.patternKey] = route.id
		seenID[route.id] = true
		routes = append(routes, route)
	}

	sort.Slice(routes, func(i int, j int) bool {
		left := routes[i]
		right := routes[j]

		if left.staticCount != right.staticCount {
			return left.staticCount > right.staticCount
		}
		if len(left.segments) != len(right.segments) {
			return len(left.segments) > len(right.segments)
		}
		return left.id < right.id
	})

	return &AppRouter{routes: routes}, nil
}

func parseAppRoute(pattern string) (appRoute, error) {
	parts := splitPathSegments(pattern)

	segments := make([]pathSegment, 0, len(parts))
	patternParts := make([]string, 0, len(parts))
	staticCount := 0

	for _, part := range parts {
		name, isParam, err := parseWildcardSegment(part)
		if err != nil {
			return appRoute{}, fmt.Errorf("route %q: %w", pattern, err)
		}

		if isParam {
			segments = append(segments, pathSegment{name: name, isParam: true})
			patternParts = append(patternParts, ":")
			continue
		}

		segments = append(segments, pathSegment{name: part, isParam: false})
		patternParts = append(patternParts, part)
		staticCount++
	}

	return appRoute{
		id:          "/" + strings.Join(parts, "/"),
		segments:    segments,
		staticCount: staticCount,
		patternKey:  "/" + strings.Join(patternParts, "/"),
	}, nil
}

func parseWildcardSegment(segment string) (string, bool, error) {
	if strings.HasPrefix(segment, "[") || strings.HasSuffix(segment, "]") {
		if !strings.HasPrefix(segment, "[") || !strings.HasSuffix(segment, "]") {
			return "", false, fmt.Errorf("invalid wildcard segment %q", segment)
		}

		name := strings.TrimSpace(segment[1 : len(segment)-1])
		if !dynamicSegmentNamePattern.MatchString(name) {
			return "", false, fmt.Errorf("invalid wildcard name %q", name)
		}

		return name, true, nil
	}

	if strings.ContainsAny(segment, "[]") {
		return "", false, fmt.Errorf("invalid static segment %q", segment)
	}

	return "", false, nil
}

func (router *AppRouter) Match(requestPath string) (AppRouteMatch, bool) {
	requestSegments := splitPathSegments(requestPath)

	for _, route := range router.routes {
		if len(route.segments) != len(requestSegments) {
			continue
		}

		params := make(map[string]string, 2)
		matched := true

		for idx, segment := range route.segments {
			requestValue := requestSegments[idx]
			if segment.isParam {
				if !IsValidID(requestValue) {
					matched = false
					break
				}
				params[segment.name] = requestValue
				continue
			}
			if segment.name != requestValue {
				matched = false
				break
			}
		}

		if !matched {
			continue
		}

		if len(params) == 0 {
			return AppRouteMatch{ID: route.id}, true
		}
		return AppRouteMatch{ID: route.id, Params: params}, true
	}

	return AppRouteMatch{}, false
}

// Pattern normalises a route pattern to the form Match reports as ID.
func Pattern(pattern string) string {
	return "/" + strings.Join(splitPathSegments(pattern), "/")
}

// IsValidID reports whether value can be a path parameter: document ids
// and slugs, never dots or slashes.
func IsValidID(value string) bool {
	return validIDPattern.MatchString(value)
}

func splitPathSegments(raw string) []string {
	cleaned := path.Clean("/" + strings.TrimSpace(raw))
	if cleaned == "/" {
		return []string{}
	}

	trimmed := strings.Trim(cleaned, "/")
	if trimmed == "" {
		return []string{}
	}

	return strings.Split(trimmed, "/")
}
