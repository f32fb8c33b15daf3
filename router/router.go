// Package router implements the Path Router: compiling OpenAPI
// {name}-templated paths into an anchored regexp matcher and resolving
// an incoming request path + method to the matched OperationDescriptor
// and its captured path variables.
package router

import (
	"regexp"
	"sort"
	"strings"

	"github.com/ovp-io/openapi-validator-proxy/index"
	"github.com/ovp-io/openapi-validator-proxy/report"
	"github.com/ovp-io/openapi-validator-proxy/spec"
)

var paramSegmentPattern = regexp.MustCompile(`^\{(\w+)\}$`)

// MatchError is returned by Match when no operation could be resolved.
// Kind is always either report.PathNotFound or report.InvalidHTTPMethod.
type MatchError struct {
	Kind report.FailureKind
}

func (e *MatchError) Error() string { return string(e.Kind) }

// route is a single compiled (path-template, method) entry.
type route struct {
	descriptor *index.OperationDescriptor
	pattern    *regexp.Regexp
	paramNames []string
}

// Router resolves incoming requests to a compiled OperationDescriptor.
// It is built once from the Spec Index's output and is safe for
// concurrent read-only use thereafter.
type Router struct {
	routesByMethod map[spec.HTTPVerb][]*route
	upstreamPrefix string
}

// New compiles descriptors into a Router. upstreamPathPrefix is the
// path component of the upstream base URL (e.g. "/api/v1"); a trailing
// slash is normalized away so "http://host/api/v1" and
// "http://host/api/v1/" behave identically.
func New(descriptors []*index.OperationDescriptor, upstreamPathPrefix string) *Router {
	r := &Router{
		routesByMethod: make(map[spec.HTTPVerb][]*route),
		upstreamPrefix: strings.TrimSuffix(upstreamPathPrefix, "/"),
	}

	for _, d := range descriptors {
		pattern, names := compilePath(d.PathTemplate)
		r.routesByMethod[d.Method] = append(r.routesByMethod[d.Method], &route{
			descriptor: d,
			pattern:    pattern,
			paramNames: names,
		})
	}

	// Literal path segments must win over templated ones when both
	// match (e.g. "/pets/mine" over "/pets/{petId}"). Sorting routes
	// by ascending parameter count and matching in order achieves
	// that without needing a priority field per route.
	for method, routes := range r.routesByMethod {
		sorted := routes
		sort.SliceStable(sorted, func(i, j int) bool {
			return len(sorted[i].paramNames) < len(sorted[j].paramNames)
		})
		r.routesByMethod[method] = sorted
	}

	return r
}

// StripUpstreamPrefix removes the configured upstream path prefix from
// an incoming request path before route matching.
func (r *Router) StripUpstreamPrefix(path string) string {
	if r.upstreamPrefix == "" {
		return path
	}
	if strings.HasPrefix(path, r.upstreamPrefix) {
		stripped := strings.TrimPrefix(path, r.upstreamPrefix)
		if stripped == "" {
			return "/"
		}
		return stripped
	}
	return path
}

// PrependUpstreamPrefix re-adds the upstream path prefix before
// forwarding a request upstream.
func (r *Router) PrependUpstreamPrefix(path string) string {
	return r.upstreamPrefix + path
}

// Match resolves method and a (prefix-stripped) request path to an
// OperationDescriptor and its captured path variables. It returns a
// *MatchError with Kind PathNotFound when no template matches at all,
// or InvalidHTTPMethod when a template matches but not for this
// method.
func (r *Router) Match(method string, path string) (*index.OperationDescriptor, map[string]string, error) {
	normalized := strings.TrimSuffix(path, "/")
	if normalized == "" {
		normalized = "/"
	}

	if !r.anyTemplateMatches(normalized) {
		return nil, nil, &MatchError{Kind: report.PathNotFound}
	}

	routes := r.routesByMethod[spec.HTTPVerb(strings.ToUpper(method))]
	for _, rt := range routes {
		match := rt.pattern.FindStringSubmatch(normalized)
		if match == nil {
			continue
		}
		vars := make(map[string]string, len(rt.paramNames))
		for i, name := range rt.pattern.SubexpNames() {
			if i == 0 || name == "" {
				continue
			}
			vars[name] = match[i]
		}
		return rt.descriptor, vars, nil
	}

	return nil, nil, &MatchError{Kind: report.InvalidHTTPMethod}
}

func (r *Router) anyTemplateMatches(path string) bool {
	for _, routes := range r.routesByMethod {
		for _, rt := range routes {
			if rt.pattern.MatchString(path) {
				return true
			}
		}
	}
	return false
}

// compilePath compiles an OpenAPI path template such as
// "/pets/{petId}" into an anchored regexp plus the ordered list of
// parameter names it captures.
func compilePath(path spec.Path) (*regexp.Regexp, []string) {
	var paramNames []string
	pattern := `\A`
	segments := 0

	for _, segment := range strings.Split(string(path), "/") {
		if segment == "" {
			continue
		}
		segments++
		if m := paramSegmentPattern.FindStringSubmatch(segment); m != nil {
			pattern += `/(?P<` + m[1] + `>[^/]+)`
			paramNames = append(paramNames, m[1])
		} else {
			pattern += `/` + regexp.QuoteMeta(segment)
		}
	}

	if segments == 0 {
		pattern += `/`
	}

	return regexp.MustCompile(pattern + `\z`), paramNames
}
