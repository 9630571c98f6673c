package main

import (
	"log"
	"net/http"

	"pos-saas/internal/audit"
	"pos-saas/internal/config"
	handler "pos-saas/internal/handler/http"
	"pos-saas/internal/handler/ws"
	"pos-saas/internal/middleware"
	"pos-saas/internal/pkg/database"
	"pos-saas/internal/pkg/jwt"
	"pos-saas/internal/predictorcache"
	"pos-saas/internal/store"
	"pos-saas/internal/store/memstore"
	"pos-saas/internal/store/postgres"
	"pos-saas/internal/trust"
	"pos-saas/internal/verifier"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	var st store.Store
	var auditWriter audit.Writer

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Printf("⚠️ Warning: Failed to connect to database: %v. Continuing in-memory (stub mode).", err)
		st = memstore.New()
		auditWriter = audit.NoopWriter{}
	} else {
		defer db.Close()
		pgStore := postgres.New(db)
		st = pgStore
		auditWriter = postgres.NewAuditWriter(pgStore)
	}

	tokenService, err := jwt.NewTokenService(cfg.JWTSecret, cfg.JWTExpiry)
	if err != nil {
		log.Fatalf("Failed to create token service: %v", err)
	}

	auditLogger := audit.NewLogger(auditWriter, 50)
	auditLogger.Start()
	defer auditLogger.Stop()

	cache := predictorcache.New(st)
	engine := trust.New(st, cache, cfg.Engine)
	engine.SetAuditor(auditLogger)
	v := verifier.New(st, engine)

	hub := ws.NewHub()
	wsHandler := ws.NewHandler(v, hub)

	authHandler := handler.NewAuthHandler(st, tokenService)
	behaviorHandler := handler.NewBehaviorHandler(st)
	trustHandler := handler.NewTrustHandler(st, v, wsHandler)
	securityHandler := handler.NewSecurityHandler(st, auditLogger)
	sessionHandler := handler.NewSessionHandler(st)
	mlHandler := handler.NewMLHandler(st, cache)
	healthHandler := handler.NewHealthHandler(db, cache)

	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", healthHandler.Health)

	mux.HandleFunc("POST /auth/register", authHandler.Register)
	mux.HandleFunc("POST /auth/login", authHandler.Login)
	mux.HandleFunc("POST /auth/logout", authHandler.Logout)
	mux.Handle("GET /auth/me", middleware.AuthMiddleware(tokenService)(http.HandlerFunc(authHandler.Me)))

	mux.HandleFunc("POST /behavior/keystroke", behaviorHandler.Keystroke)
	mux.HandleFunc("POST /behavior/mouse", behaviorHandler.Mouse)

	mux.HandleFunc("POST /trust/score", trustHandler.Score)
	mux.HandleFunc("GET /api/trust/history/{session_id}", trustHandler.History)

	mux.HandleFunc("POST /security/action", securityHandler.Action)

	mux.HandleFunc("GET /session/{sid}", sessionHandler.Get)
	mux.HandleFunc("PUT /session/activity", sessionHandler.Activity)

	mux.HandleFunc("GET /ml/model/status/{uid}", mlHandler.Status)
	mux.HandleFunc("POST /ml/model/train/{uid}", mlHandler.Train)

	mux.HandleFunc("GET /ws/{sessionToken}", wsHandler.Serve)

	handlerChain := middleware.CORSMiddleware(mux)

	log.Printf("🚀 Trust engine listening on %s", cfg.ServerAddr)
	if err := http.ListenAndServe(cfg.ServerAddr, handlerChain); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
