package server

import (
	"net/http"

	"github.com/assistkit/connectd/internal/auth"
	"github.com/assistkit/connectd/internal/identity"
	"github.com/assistkit/connectd/internal/provider"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouterOptions carries everything the router needs beyond the flow itself.
type RouterOptions struct {
	LandingPage      string
	InternalAPIToken string
	Registry         *prometheus.Registry
}

// NewRouter builds the full route table. Every configured provider gets
// its own begin, callback, and logout path so the frontend can link to
// /authenticate-<provider> directly.
func NewRouter(connector *auth.Connector, correlator *identity.Correlator, providers *provider.Registry, opts RouterOptions) http.Handler {
	mux := http.NewServeMux()

	authHandlers := NewAuthHandlers(connector, correlator, providers, opts.LandingPage)
	for _, id := range providers.IDs() {
		mux.HandleFunc("GET /authenticate-"+id, authHandlers.BeginHandler(id))
		mux.HandleFunc("GET /authenticate-"+id+"/callback", authHandlers.CallbackHandler(id))
		mux.HandleFunc("GET /authenticate-"+id+"/logout", authHandlers.LogoutHandler(id))
	}
	mux.HandleFunc("GET /providers", authHandlers.ProvidersHandler)

	tokenHandlers := NewTokenHandlers(connector, opts.InternalAPIToken)
	mux.HandleFunc("GET /internal/token", tokenHandlers.TokenHandler)
	mux.HandleFunc("GET /internal/connections", tokenHandlers.ConnectionsHandler)

	if opts.Registry != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(opts.Registry, promhttp.HandlerOpts{}))
	}
	mux.Handle("GET /health", NewHealthHandler())

	return mux
}
