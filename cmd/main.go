package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/mux"

	apichat "github.com/yashwanth8634/CampusXChange-Backend/internal/api/chat"
	"github.com/yashwanth8634/CampusXChange-Backend/internal/auth"
	"github.com/yashwanth8634/CampusXChange-Backend/internal/chat"
	"github.com/yashwanth8634/CampusXChange-Backend/internal/config"
	"github.com/yashwanth8634/CampusXChange-Backend/internal/middleware"
	"github.com/yashwanth8634/CampusXChange-Backend/internal/models"
	"github.com/yashwanth8634/CampusXChange-Backend/internal/storage"
	"github.com/yashwanth8634/CampusXChange-Backend/internal/storage/memory"
	"github.com/yashwanth8634/CampusXChange-Backend/internal/storage/postgres"
	"github.com/yashwanth8634/CampusXChange-Backend/internal/storage/valkey"
	"github.com/yashwanth8634/CampusXChange-Backend/internal/ws"
)

const presenceTTL = 2 * time.Minute

// seedDevData gives the in-memory backend a couple of verified users and a
// listing so tokens minted against these ids work out of the box. The user
// and listing tables are owned by other subsystems in production.
func seedDevData(users *memory.UserStore, listings *memory.ListingStore) {
	users.Add(&models.User{ID: "dev-buyer", Name: "Dev Buyer", Mobile: "1000000001", Verified: true})
	users.Add(&models.User{ID: "dev-seller", Name: "Dev Seller", Mobile: "1000000002", Verified: true})
	listings.Add(&models.Listing{ID: "dev-listing", Title: "Sample textbook", Price: 450, Status: "available", SellerID: "dev-seller"})
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))

	var (
		conversations storage.ConversationStore
		messages      storage.MessageStore
		users         storage.UserStore
		listings      storage.ListingStore
	)
	if cfg.DatabaseURL != "" {
		db, err := postgres.Open(cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to connect to postgres", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		conversations = postgres.NewConversationStore(db)
		messages = postgres.NewMessageStore(db)
		users = postgres.NewUserStore(db)
		listings = postgres.NewListingStore(db)
		logger.Info("using postgres storage")
	} else {
		conversations = memory.NewConversationStore()
		messages = memory.NewMessageStore()
		userStore := memory.NewUserStore()
		listingStore := memory.NewListingStore()
		seedDevData(userStore, listingStore)
		users = userStore
		listings = listingStore
		logger.Warn("DATABASE_URL not set, using in-memory storage with seeded dev data")
	}

	directory := chat.NewDirectory(conversations, listings, logger)
	ledger := chat.NewLedger(messages, cfg.MessageMaxLength, logger)
	service := chat.NewService(directory, ledger, users, listings, logger)

	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.AuthTokenDuration)
	authn := auth.NewMiddleware(tokens, users, logger)

	hub := ws.NewHub(logger)
	service.AttachBroadcaster(hub)

	var presenceMarker ws.PresenceMarker
	if cfg.ValkeyAddress != "" {
		presence, err := valkey.NewPresenceStore(cfg.ValkeyAddress, presenceTTL, logger)
		if err != nil {
			logger.Error("failed to connect to valkey", "error", err)
			os.Exit(1)
		}
		defer presence.Close()
		go presence.RefreshLoop(context.Background(), hub.OnlineUsers, presenceTTL/2)
		service.AttachPresence(presence)
		presenceMarker = presence
		logger.Info("using valkey presence", "address", cfg.ValkeyAddress)
	} else {
		service.AttachPresence(hub)
	}

	gateway := ws.NewGateway(hub, authn, service, presenceMarker, cfg.ConnectionBufferSize, logger)
	handler := apichat.NewHandler(service, cfg.DefaultPageSize, logger)

	r := mux.NewRouter()
	r.Use(mux.MiddlewareFunc(middleware.CORS(cfg.AllowedOrigin)))
	apichat.RegisterRoutes(r, handler, authn.Require, logger)
	r.HandleFunc("/ws/chat", gateway.ServeWS)
	r.HandleFunc("/api/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"success":   true,
			"message":   "CampusXChange API is running",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	}).Methods(http.MethodGet)

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	logger.Info("server started", "addr", addr)
	if err := http.ListenAndServe(addr, r); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
}
