package routes

import "net/http"

// Group organizes routes under a common prefix.
type Group struct {
	Prefix   string
	Routes   []Route
	Children []Group
}

// Register adds all routes from the given groups to the mux.
func Register(mux *http.ServeMux, groups ...Group) {
	for _, group := range groups {
		walk("", group, func(pattern string, route Route) {
			mux.HandleFunc(pattern, route.Handler)
		})
	}
}

// Patterns returns the ServeMux patterns the groups would register, in
// declaration order.
func Patterns(groups ...Group) []string {
	var patterns []string
	for _, group := range groups {
		walk("", group, func(pattern string, _ Route) {
			patterns = append(patterns, pattern)
		})
	}
	return patterns
}

func walk(parentPrefix string, group Group, fn func(pattern string, route Route)) {
	fullPrefix := parentPrefix + group.Prefix
	for _, route := range group.Routes {
		fn(route.muxPattern(fullPrefix), route)
	}
	for _, child := range group.Children {
		walk(fullPrefix, child, fn)
	}
}
