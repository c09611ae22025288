package server

import (
	"net/http"
	"slices"
)

// OriginChecker accepts requests without an Origin header (native mobile
// clients send none) and, when origins are configured, only those.
type OriginChecker struct {
	allowedOrigins []string
}

func NewOriginChecker(allowedOrigins []string) *OriginChecker {
	return &OriginChecker{
		allowedOrigins,
	}
}

func (c *OriginChecker) Check(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || len(c.allowedOrigins) == 0 {
		return true
	}

	return slices.Contains(c.allowedOrigins, origin)
}
