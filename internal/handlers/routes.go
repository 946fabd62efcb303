package handlers

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/ms-slunicko/rotation-api/internal/auth"
)

func RegisterRoutes(
	r *chi.Mux,
	authHandler *auth.AuthHandler,
	childrenHandler *ChildrenHandler,
	scheduleHandler *ScheduleHandler,
	attendanceHandler *AttendanceHandler,
	activityHandler *ActivityHandler,
	apiKeyHandler *APIKeyHandler,
) {
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(authHandler.SessionRefresh)

	// Initialize Huma API
	config := huma.DefaultConfig("Daycare Rotation API", "1.0.0")
	config.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"cookieAuth": {
			Type: "apiKey",
			In:   "cookie",
			Name: "auth_token",
		},
	}
	api := humachi.New(r, config)

	withAuth := func(o *huma.Operation) {
		o.Security = []map[string][]string{{"cookieAuth": {}}}
	}

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	// Auth routes
	r.Get("/auth/discord/login", authHandler.HandleLogin)
	r.Get("/auth/discord/callback", authHandler.HandleCallback)

	huma.Get(api, "/me", authHandler.HandleMe, withAuth)

	// Children and guardians (staff)
	huma.Post(api, "/children", childrenHandler.HandleCreateChild, withAuth)
	huma.Get(api, "/children", childrenHandler.HandleListChildren, withAuth)
	huma.Delete(api, "/children/{id}", childrenHandler.HandleDeleteChild, withAuth)
	huma.Post(api, "/children/{id}/guardians", childrenHandler.HandleAddGuardian, withAuth)

	// Daily rotation schedule
	huma.Put(api, "/schedule/{date}", scheduleHandler.HandleUpsertSchedule, withAuth)
	huma.Get(api, "/schedule/{date}", scheduleHandler.HandleGetSchedule, withAuth)

	// Attendance actions
	huma.Post(api, "/attendance/{date}/give-up", attendanceHandler.HandleGiveUp, withAuth)
	huma.Post(api, "/attendance/{date}/waiting-list", attendanceHandler.HandleJoinWaitingList, withAuth)
	huma.Delete(api, "/attendance/{date}/{childId}", attendanceHandler.HandleCancelWaiting, withAuth)

	// Audit trail (staff)
	huma.Get(api, "/activity", activityHandler.HandleListActivity, withAuth)

	// API keys (staff automation)
	huma.Post(api, "/api-keys", apiKeyHandler.HandleCreate, withAuth)
	huma.Get(api, "/api-keys", apiKeyHandler.HandleList, withAuth)
	huma.Delete(api, "/api-keys/{id}", apiKeyHandler.HandleDelete, withAuth)
}
