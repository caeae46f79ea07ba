package main

import (
	"context"
	"net/http"
	"time"

	gorilllaHandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"estateSocialAPI/handlers"
	"estateSocialAPI/internal/config"
	"estateSocialAPI/internal/realtime"
	"estateSocialAPI/internal/store"
	"estateSocialAPI/middleware"
	"estateSocialAPI/services"
)

// app holds the services behind the HTTP surface.
type app struct {
	cfg                  *config.Config
	verify               middleware.TokenVerifier
	ping                 func(ctx context.Context) error
	limiter              *middleware.RateLimiter
	hub                  *realtime.Hub
	dispatcher           *services.NotificationDispatcher
	userService          *services.UserService
	friendRequestService *services.FriendRequestService
	friendshipService    *services.FriendshipService
	notificationService  *services.NotificationService
}

func newApp(cfg *config.Config, st store.Store, hub *realtime.Hub, verify middleware.TokenVerifier, ping func(ctx context.Context) error) *app {
	dispatcher := services.NewNotificationDispatcher(st, hub, cfg.NotificationWorkers)
	notificationService := services.NewNotificationService(st, dispatcher)

	return &app{
		cfg:                  cfg,
		verify:               verify,
		ping:                 ping,
		limiter:              middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst),
		hub:                  hub,
		dispatcher:           dispatcher,
		userService:          services.NewUserService(st),
		friendRequestService: services.NewFriendRequestService(st, notificationService),
		friendshipService:    services.NewFriendshipService(st),
		notificationService:  notificationService,
	}
}

func (a *app) routes() http.Handler {
	userHandler := handlers.NewUserHandler(a.userService)
	friendRequestHandler := handlers.NewFriendRequestHandler(a.friendRequestService)
	friendshipHandler := handlers.NewFriendshipHandler(a.friendshipService)
	notificationHandler := handlers.NewNotificationHandler(a.notificationService)
	realtimeHandler := handlers.NewRealtimeHandler(a.hub)
	webhookHandler := handlers.NewWebhookHandler(a.userService, a.cfg.ClerkWebhookSecret)

	authenticate := middleware.Authenticate(a.verify)
	resolveUser := middleware.ResolveUser(a.userService)

	r := mux.NewRouter()

	// The websocket stays outside the rate limiter and request metrics; it
	// authenticates with ?token= since browsers cannot set headers on it.
	r.Handle("/api/v1/ws", authenticate(resolveUser(http.HandlerFunc(realtimeHandler.Connect)))).Methods("GET")

	standardRouter := r.PathPrefix("/").Subrouter()
	standardRouter.Use(a.limiter.Middleware)
	standardRouter.Use(middleware.MonitorMiddleware)

	standardRouter.Handle("/metrics", middleware.BasicAuthMiddleware(a.cfg.MetricsUser, a.cfg.MetricsPass)(promhttp.Handler()))
	standardRouter.PathPrefix("/debug/pprof/").Handler(middleware.PprofSecurityMiddleware(a.cfg.PprofSecret)(http.DefaultServeMux))

	standardRouter.HandleFunc("/health", a.health).Methods("GET")
	standardRouter.HandleFunc("/webhooks/clerk", webhookHandler.HandleClerkWebhook).Methods("POST")

	// -------------------------------------------------------------------------
	// PROTECTED ROUTES (REQUIRE AUTH HEADER)
	// -------------------------------------------------------------------------
	protected := standardRouter.PathPrefix("/api/v1").Subrouter()
	protected.Use(authenticate, resolveUser)

	protected.HandleFunc("/user", userHandler.GetProfile).Methods("GET")
	protected.HandleFunc("/users/search", userHandler.SearchUsers).Methods("GET")
	protected.HandleFunc("/users/{id}", userHandler.GetUserProfile).Methods("GET")

	// Fixed segments are registered before /{id} so they are not captured.
	protected.HandleFunc("/friend-requests", friendRequestHandler.ListFriendRequests).Methods("GET")
	protected.HandleFunc("/friend-requests", friendRequestHandler.CreateFriendRequest).Methods("POST")
	protected.HandleFunc("/friend-requests/pending", friendRequestHandler.ListPending).Methods("GET")
	protected.HandleFunc("/friend-requests/sent", friendRequestHandler.ListSent).Methods("GET")
	protected.HandleFunc("/friend-requests/{id}", friendRequestHandler.GetFriendRequest).Methods("GET")
	protected.HandleFunc("/friend-requests/{id}", friendRequestHandler.UpdateFriendRequest).Methods("PUT")
	protected.HandleFunc("/friend-requests/{id}", friendRequestHandler.DeleteFriendRequest).Methods("DELETE")

	protected.HandleFunc("/friends", friendshipHandler.ListFriends).Methods("GET")
	protected.HandleFunc("/friends", friendshipHandler.CreateFriendship).Methods("POST")
	protected.HandleFunc("/friends/status/{userId}", friendshipHandler.CheckStatus).Methods("GET")
	protected.HandleFunc("/friends/{id}", friendshipHandler.GetFriend).Methods("GET")
	protected.HandleFunc("/friends/{id}", friendshipHandler.RemoveFriend).Methods("DELETE")

	protected.HandleFunc("/notifications/register-device", notificationHandler.RegisterDevice).Methods("POST")
	protected.HandleFunc("/notifications/devices/{token}", notificationHandler.UnregisterDevice).Methods("DELETE")

	corsHandler := gorilllaHandlers.CORS(
		gorilllaHandlers.AllowedOrigins(a.cfg.CORSAllowedOrigins),
		gorilllaHandlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		gorilllaHandlers.AllowedHeaders([]string{"Content-Type", "Authorization", "X-Pprof-Secret"}),
		gorilllaHandlers.ExposedHeaders([]string{"Content-Length"}),
		gorilllaHandlers.AllowCredentials(),
	)

	return corsHandler(r)
}

func (a *app) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	w.Header().Set("Content-Type", "application/json")
	if err := a.ping(ctx); err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"status": "unhealthy", "error": "database connection failed"}`))
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status": "healthy", "service": "estate-social-api"}`))
}
