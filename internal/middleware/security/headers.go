// Package security hardens the API surface: response headers, CORS for
// the SPA origin, and client IP extraction behind trusted proxies.
package security

import "net/http"

// HeadersConfig controls the security and CORS headers the API sends.
type HeadersConfig struct {
	XFrameOptions       string
	XContentTypeOptions string
	ReferrerPolicy      string
	CrossOriginResource string

	// AllowedOrigin is the SPA origin allowed to call the API. "*"
	// allows any origin.
	AllowedOrigin string
}

func DefaultHeadersConfig() HeadersConfig {
	return HeadersConfig{
		XFrameOptions:       "DENY",
		XContentTypeOptions: "nosniff",
		ReferrerPolicy:      "strict-origin-when-cross-origin",
		CrossOriginResource: "same-site",
		AllowedOrigin:       "*",
	}
}

// Middleware applies the headers and answers CORS preflights.
func (c HeadersConfig) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Frame-Options", c.XFrameOptions)
		h.Set("X-Content-Type-Options", c.XContentTypeOptions)
		h.Set("Referrer-Policy", c.ReferrerPolicy)
		h.Set("Cross-Origin-Resource-Policy", c.CrossOriginResource)

		if c.AllowedOrigin != "" {
			h.Set("Access-Control-Allow-Origin", c.AllowedOrigin)
			h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			h.Set("Access-Control-Allow-Headers", "Content-Type")
			if c.AllowedOrigin != "*" {
				h.Set("Vary", "Origin")
			}
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
