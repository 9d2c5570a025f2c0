package middleware

import (
	"net/http"

	"github.com/unrolled/secure"
)

// secureOptions mirror the browser hardening defaults of the site. Resources
// may be embedded cross-origin so the frontend can load uploaded pictures
// from the API host. HSTS is only sent over TLS or behind a TLS proxy.
var secureOptions = secure.Options{
	CustomFrameOptionsValue: "SAMEORIGIN",
	ContentTypeNosniff:      true,
	ReferrerPolicy:          "no-referrer",
	CrossOriginOpenerPolicy: "same-origin",
	STSSeconds:              15552000,
	STSIncludeSubdomains:    true,
	SSLProxyHeaders:         map[string]string{"X-Forwarded-Proto": "https"},
}

var secureMiddleware = secure.New(secureOptions)

// SecureHeaders sets the common browser hardening headers on every response.
func SecureHeaders(next http.Handler) http.Handler {
	return secureMiddleware.Handler(extraHeaders(next))
}

// extraHeaders sets the remaining helmet-style headers secure has no option
// for.
func extraHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-DNS-Prefetch-Control", "off")
		h.Set("X-Download-Options", "noopen")
		h.Set("X-Permitted-Cross-Domain-Policies", "none")
		h.Set("Cross-Origin-Resource-Policy", "cross-origin")
		h.Set("Origin-Agent-Cluster", "?1")
		next.ServeHTTP(w, r)
	})
}
