// Package api exposes the directory's HTTP surface: the compliance query
// endpoint, health, and read-only storefront proxies.
package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/aquareuse/directory-api/internal/jurisdiction"
	"github.com/aquareuse/directory-api/internal/model"
	"github.com/aquareuse/directory-api/internal/resolver"
	"github.com/aquareuse/directory-api/pkg/storefront"
)

// Options configures the HTTP server's middleware.
type Options struct {
	AllowedOrigins []string
	RateRPS        float64
	RateBurst      int
}

// Server holds the handler dependencies.
type Server struct {
	resolver *resolver.Resolver
	shop     storefront.Client
	log      *zap.Logger
	limiter  *rate.Limiter
}

// New builds the router. shop may be nil when the storefront integration is
// not configured; the proxy endpoints then return 503.
func New(res *resolver.Resolver, shop storefront.Client, opts Options) http.Handler {
	s := &Server{
		resolver: res,
		shop:     shop,
		log:      zap.L().Named("api"),
	}
	if opts.RateRPS > 0 {
		burst := opts.RateBurst
		if burst <= 0 {
			burst = int(opts.RateRPS)
		}
		s.limiter = rate.NewLimiter(rate.Limit(opts.RateRPS), burst)
	}

	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: originsOrDefault(opts.AllowedOrigins),
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))
	r.Use(s.logRequests)
	r.Use(s.rateLimit)
	r.Use(s.recoverer)

	r.Get("/health", s.handleHealth)
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/compliance", s.handleCompliance)
		r.Get("/products", s.handleProducts)
		r.Get("/products/{handle}/reviews", s.handleReviews)
	})

	return r
}

func originsOrDefault(origins []string) []string {
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCompliance(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	rt, err := model.ParseResourceType(q.Get("resource_type"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	req := resolver.Request{
		State:    strings.TrimSpace(q.Get("state")),
		County:   strings.TrimSpace(q.Get("county")),
		City:     strings.TrimSpace(q.Get("city")),
		Resource: rt,
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	out, err := s.resolver.Resolve(r.Context(), req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	warnings := []string{}
	if out.RegulationsFailed {
		warnings = append(warnings, "regulation data is temporarily unavailable; state defaults are assumed")
	}
	if out.IncentivesFailed {
		warnings = append(warnings, "incentive program data is temporarily unavailable")
	}

	resp := model.ComplianceResponse{
		Status: "success",
		Location: model.Location{
			State:  strings.ToUpper(req.State),
			County: jurisdiction.DisplayName(req.County),
			City:   jurisdiction.DisplayName(req.City),
		},
		ResourceType: rt,
		Compliance:   out.Compliance,
		PartialData:  len(warnings) > 0,
		DataWarnings: warnings,
		Timestamp:    time.Now().UTC(),
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleProducts(w http.ResponseWriter, r *http.Request) {
	if s.shop == nil {
		writeError(w, http.StatusServiceUnavailable, "storefront integration is not configured")
		return
	}

	products, err := s.shop.Products(r.Context(), 50)
	if err != nil {
		s.log.Error("storefront products fetch failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, "storefront upstream error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "success", "products": products})
}

func (s *Server) handleReviews(w http.ResponseWriter, r *http.Request) {
	if s.shop == nil {
		writeError(w, http.StatusServiceUnavailable, "storefront integration is not configured")
		return
	}

	handle := chi.URLParam(r, "handle")
	reviews, err := s.shop.Reviews(r.Context(), handle)
	if err != nil {
		s.log.Error("storefront reviews fetch failed", zap.String("handle", handle), zap.Error(err))
		writeError(w, http.StatusBadGateway, "storefront upstream error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "success", "reviews": reviews})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"status": "error", "message": msg})
}
