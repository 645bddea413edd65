// Package routes declares HTTP route groups and registers them on a ServeMux.
package routes

import "net/http"

// Route binds an HTTP method and pattern to a handler.
// Pattern is relative to the enclosing group prefix.
type Route struct {
	Method  string
	Pattern string
	Handler http.HandlerFunc
}

func (r Route) muxPattern(prefix string) string {
	return r.Method + " " + prefix + r.Pattern
}
