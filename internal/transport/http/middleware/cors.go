package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// CORS answers cross-origin requests from the listed origins, with credentials.
// A "*" entry opens the API to every origin and turns credentials off. Requests
// from unlisted origins are refused with 403.
func CORS(allowedOrigins []string) gin.HandlerFunc {
	var (
		origins  []string
		allowAll bool
	)
	for _, o := range allowedOrigins {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		switch o {
		case "":
		case "*":
			allowAll = true
		default:
			origins = append(origins, o)
		}
	}

	cfg := cors.Config{
		AllowMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch,
			http.MethodDelete, http.MethodHead, http.MethodOptions,
		},
		AllowHeaders: []string{"*"},
		MaxAge:       10 * time.Minute,
	}
	switch {
	case allowAll:
		cfg.AllowAllOrigins = true
	case len(origins) > 0:
		cfg.AllowOrigins = origins
		cfg.AllowCredentials = true
	default:
		// no cross-origin callers configured
		return func(c *gin.Context) { c.Next() }
	}
	return cors.New(cfg)
}
