// Package httpmiddleware wires the standard middleware stack for the local
// dashboard bridge: security headers, CORS, logging, recovery and timeouts.
package httpmiddleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/unrolled/secure"

	"github.com/mwhitton/agentdash/pkg/logger"
)

// CORSConfig represents CORS configuration options
type CORSConfig struct {
	AllowedMethods   []string
	AllowedHeaders   []string
	AllowedOrigins   []string
	AllowCredentials bool
	MaxAge           int
}

// DefaultCORSConfig returns CORS settings suitable for a browser dashboard
// talking to the local bridge.
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Authorization"},
		AllowedOrigins:   []string{"http://localhost:*", "http://127.0.0.1:*"},
		AllowCredentials: false,
		MaxAge:           300,
	}
}

// CORS middleware configures Cross-Origin Resource Sharing
func CORS(config CORSConfig) func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedMethods:   config.AllowedMethods,
		AllowedHeaders:   config.AllowedHeaders,
		AllowedOrigins:   config.AllowedOrigins,
		AllowCredentials: config.AllowCredentials,
		MaxAge:           config.MaxAge,
	})
}

// Security middleware adds security headers
func Security(opts *secure.Options) func(http.Handler) http.Handler {
	var s *secure.Secure
	if opts == nil {
		s = secure.New(secure.Options{
			FrameDeny:          true,
			ContentTypeNosniff: true,
			BrowserXssFilter:   true,
		})
	} else {
		s = secure.New(*opts)
	}
	return s.Handler
}

// Config holds configuration for the bridge middleware stack.
type Config struct {
	Logger   logger.Logger   // Required when EnableLogging is set
	CORS     *CORSConfig     // CORS configuration
	Security *secure.Options // Security headers configuration
	Timeout  time.Duration   // Request timeout duration

	EnableLogging  bool
	EnableRecovery bool
	EnableCORS     bool
	EnableSecurity bool
	EnableRealIP   bool
	EnableTimeout  bool
}

// DefaultConfig returns the middleware configuration used by the bridge.
// Logging is disabled by default - set Logger and EnableLogging to enable.
func DefaultConfig() Config {
	corsConfig := DefaultCORSConfig()
	return Config{
		CORS:           &corsConfig,
		Timeout:        60 * time.Second,
		EnableLogging:  false,
		EnableRecovery: true,
		EnableCORS:     true,
		EnableSecurity: true,
		EnableRealIP:   true,
		EnableTimeout:  true,
	}
}

// ApplyToRouter applies the configured middleware to a chi router in
// execution order (first applied = outermost layer).
func ApplyToRouter(router chi.Router, config Config) {
	if config.EnableSecurity {
		router.Use(Security(config.Security))
	}
	if config.EnableRealIP {
		router.Use(middleware.RealIP)
	}
	if config.EnableLogging && config.Logger != nil {
		router.Use(config.Logger.HTTPMiddleware)
	}
	if config.EnableRecovery {
		recoveryConfig := DefaultRecoveryConfig()
		recoveryConfig.Logger = config.Logger
		router.Use(Recovery(recoveryConfig))
	}
	if config.EnableCORS && config.CORS != nil {
		router.Use(CORS(*config.CORS))
	}
	if config.EnableTimeout {
		router.Use(middleware.Timeout(config.Timeout))
	}
}
