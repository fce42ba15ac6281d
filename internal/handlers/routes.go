package handlers

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// Router bundles the handlers mounted by NewRouter
type Router struct {
	Middleware     *Middleware
	Auth           *AuthHandler
	Family         *FamilyHandler
	Tasks          *TaskHandler
	SuggestedTasks *SuggestedTaskHandler
	Legacy         *LegacyHandler
	Callable       *CallableHandler
	AllowedOrigins []string
	Log            *logrus.Entry
}

// NewRouter registers every route and wraps the mux in the middleware chain
func NewRouter(rt Router) http.Handler {
	mw := rt.Middleware
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.Handle("GET /metrics", promhttp.Handler())

	// Auth routes
	mux.HandleFunc("POST /api/auth/signup", mw.RateLimit(rt.Auth.SignUp))
	mux.HandleFunc("POST /api/auth/login", mw.RateLimit(rt.Auth.Login))
	mux.HandleFunc("POST /api/auth/logout", mw.RequireAuth(rt.Auth.Logout))
	mux.HandleFunc("GET /api/auth/me", mw.RequireAuth(rt.Auth.Me))
	mux.HandleFunc("PUT /api/auth/profile", mw.RequireAuth(rt.Auth.UpdateProfile))
	mux.HandleFunc("PUT /api/auth/password", mw.RequireAuth(rt.Auth.ChangePassword))
	mux.HandleFunc("GET /auth/{provider}/start", rt.Auth.StartOAuth)
	mux.HandleFunc("GET /auth/{provider}/callback", rt.Auth.OAuthCallback)

	// Family routes
	mux.HandleFunc("GET /api/family", mw.RequireAuth(rt.Family.GetFamily))
	mux.HandleFunc("GET /api/family/members", mw.RequireAuth(rt.Family.Members))
	mux.HandleFunc("PUT /api/family/code", mw.RequireAuth(rt.Family.ChangeCode))
	mux.HandleFunc("PUT /api/family/notifications", mw.RequireAuth(rt.Family.UpdateNotifications))

	// Task routes
	mux.HandleFunc("GET /api/tasks", mw.RequireAuth(rt.Tasks.List))
	mux.HandleFunc("POST /api/tasks", mw.RequireAuth(rt.Tasks.Create))
	mux.HandleFunc("GET /api/tasks/{id}", mw.RequireAuth(rt.Tasks.Get))
	mux.HandleFunc("PATCH /api/tasks/{id}", mw.RequireAuth(rt.Tasks.Update))
	mux.HandleFunc("DELETE /api/tasks/{id}", mw.RequireAuth(rt.Tasks.Delete))
	mux.HandleFunc("POST /api/tasks/{id}/complete", mw.RequireAuth(rt.Tasks.Complete))

	// Suggested task routes
	mux.HandleFunc("GET /api/suggested-tasks", mw.RequireAuth(rt.SuggestedTasks.List))
	mux.HandleFunc("POST /api/suggested-tasks", mw.RequireAuth(rt.SuggestedTasks.Create))
	mux.HandleFunc("POST /api/suggested-tasks/{id}/promote", mw.RequireAuth(rt.SuggestedTasks.Promote))

	// Legacy HTTP functions
	mux.HandleFunc("GET /getFamilyTasks", mw.RequireAuth(rt.Legacy.GetFamilyTasks))
	mux.HandleFunc("POST /addTask", mw.RequireAuth(rt.Legacy.AddTask))
	mux.HandleFunc("POST /updateTaskStatus", mw.RequireAuth(rt.Legacy.UpdateTaskStatus))
	mux.HandleFunc("GET /getSuggestedTasks", mw.RequireAuth(rt.Legacy.GetSuggestedTasks))

	// Callable procedures authenticate themselves so failures use the callable envelope
	mux.HandleFunc("POST /callable/{name}", rt.Callable.Serve)

	// Metrics sits directly on the mux so it sees the matched pattern
	var handler http.Handler = Metrics(mux)
	handler = mw.Logging(handler)
	handler = RequestID(rt.Log)(handler)
	handler = CORS(rt.AllowedOrigins)(handler)
	return SecurityHeaders(handler)
}
