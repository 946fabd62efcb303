package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/bwmarrin/discordgo"
	"github.com/go-chi/chi/v5"
	"github.com/ms-slunicko/rotation-api/internal/auth"
	"github.com/ms-slunicko/rotation-api/internal/config"
	"github.com/ms-slunicko/rotation-api/internal/database"
	"github.com/ms-slunicko/rotation-api/internal/handlers"
	"github.com/ms-slunicko/rotation-api/internal/notifier"
	"github.com/ms-slunicko/rotation-api/internal/rotation"
)

func main() {
	// Load Configuration
	cfg := config.LoadConfig()

	// Connect to Database
	db := database.Connect(cfg)

	// Discord session for parent notifications
	var parentNotifier notifier.Notifier
	if cfg.DiscordBotToken != "" {
		session, err := discordgo.New("Bot " + cfg.DiscordBotToken)
		if err != nil {
			log.Printf("Discord notifier not initialized: %v", err)
		} else {
			parentNotifier = notifier.NewDiscordNotifier(session, cfg.DiscordNotificationsChannelID)
		}
	}

	// Reallocation engine; runs for one date are serialized through locks
	engine := rotation.NewEngine(db, parentNotifier)
	locks := rotation.NewDateLocks()

	// Initialize Handlers
	authHandler := auth.NewAuthHandler(cfg, db)
	childrenHandler := handlers.NewChildrenHandler(db, authHandler, cfg.Groups)
	scheduleHandler := handlers.NewScheduleHandler(db, engine, locks, authHandler, cfg.Groups)
	attendanceHandler := handlers.NewAttendanceHandler(db, engine, locks, authHandler)
	activityHandler := handlers.NewActivityHandler(db, authHandler)
	apiKeyHandler := handlers.NewAPIKeyHandler(db, authHandler)

	// Initialize Router
	r := chi.NewRouter()

	// Register Routes
	handlers.RegisterRoutes(r, authHandler, childrenHandler, scheduleHandler, attendanceHandler, activityHandler, apiKeyHandler)

	// Start Server
	log.Printf("Starting server on port %s", cfg.Port)
	if err := http.ListenAndServe(fmt.Sprintf(":%s", cfg.Port), r); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
