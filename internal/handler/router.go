/*
Package handler provides the HTTP handlers and routing setup for the ChatFlow server.

This file defines the main Router, applying necessary middleware like logging, CORS,
and IP-based rate limiting before delegating requests to specific handlers (API and WebSocket).
*/
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/rs/cors"
	"golang.org/x/time/rate"

	"chatflow/internal/pkg/auth/jwt"
	"chatflow/internal/pkg/limiter"
	"chatflow/internal/pkg/logx"
	"chatflow/internal/pkg/resp"
)

const (
	// UpgradeRate limits how often a single IP may open WebSocket connections.
	UpgradeRate  = 0.2
	UpgradeBurst = 5

	// APIRate limits the REST surface per IP, separately from the per-identity gate.
	APIRate  = 5
	APIBurst = 20

	// CreateRate keeps room creation slow per IP.
	CreateRate  = 0.05
	CreateBurst = 2
)

// Router sets up the main HTTP routing table (chi.Router) for the application.
// It initializes IP-based rate limiters, configures CORS, and applies global and per-route middleware.
func Router(deps *AppDeps) http.Handler {
	upgradeLimiter := limiter.NewIPRateLimiter(rate.Limit(UpgradeRate), UpgradeBurst)
	apiLimiter := limiter.NewIPRateLimiter(rate.Limit(APIRate), APIBurst)
	createLimiter := limiter.NewIPRateLimiter(rate.Limit(CreateRate), CreateBurst)

	r := chi.NewRouter()

	allowedOrigins := make(map[string]struct{})
	for _, origin := range deps.Config.AllowedOrigins {
		allowedOrigins[origin] = struct{}{}
	}

	var wsUpgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			if deps.Config.Environment == "development" {
				return true
			}

			origin := r.Header.Get("Origin")
			if _, ok := allowedOrigins[origin]; ok {
				return true
			}

			logx.Warn("WebSocket connection rejected: Origin not allowed.", "origin", origin)
			return false
		},
	}

	corsAllowedOrigins := []string{}
	if deps.Config.Environment == "development" {
		corsAllowedOrigins = []string{"*"}
	} else if len(deps.Config.AllowedOrigins) > 0 {
		corsAllowedOrigins = deps.Config.AllowedOrigins
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   corsAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{},
		AllowCredentials: true,
		MaxAge:           300,
	})
	r.Use(c.Handler)

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logx.RequestLogger())
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		data := map[string]string{
			"status":  "ok",
			"service": "ChatFlow Server",
		}
		resp.RespondSuccess(w, r, data)
	})

	r.Route("/api", func(api chi.Router) {
		api.Use(apiLimiter.Middleware)
		api.Use(jwt.IdentityExtractorMiddleware(deps.Config.JWTSecret))

		api.Get("/messages", HandleMessageHistory(deps))
		api.Get("/chats", HandleListChats(deps))

		api.Route("/ai", func(aiRoutes chi.Router) {
			aiRoutes.Post("/chat", HandleAIChat(deps))
			aiRoutes.Post("/translate", HandleTranslate(deps))
		})

		api.Post("/friends/add", HandleAddFriend(deps))

		api.Route("/user", func(userRoutes chi.Router) {
			userRoutes.Get("/profile", HandleGetProfile(deps))
			userRoutes.Post("/profile", HandleUpdateProfile(deps))
		})

		api.Post("/file/presign-upload", HandlePresignUploadURL(deps))
		api.Get("/file/presign-download", HandlePresignDownloadURL(deps))

		api.Post("/rooms/create", createLimiter.Middleware(HandleCreateRoom(deps)).ServeHTTP)
		api.Get("/rooms/{roomId}/presence", HandleRoomPresence(deps))
	})

	r.Get("/ws/{roomId}", HandleWebSocket(wsUpgrader, upgradeLimiter, deps))

	return r
}
