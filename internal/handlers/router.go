package handlers

import (
	"net/http"

	"github.com/ahsanfayaz52/noteboard/internal/auth"
	"github.com/ahsanfayaz52/noteboard/internal/metrics"
	"github.com/ahsanfayaz52/noteboard/internal/middleware"
	"github.com/ahsanfayaz52/noteboard/internal/notelist"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type Deps struct {
	Sessions *auth.Manager
	// Accounts serves sign-up and confirmation; those routes are left out
	// when it is nil.
	Accounts auth.Registrar
	Notes    *notelist.Registry
	Limiter  *middleware.Limiter
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer
	Logger   *zap.Logger
}

func NewRouter(d Deps) *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.Recovery(d.Logger))
	r.Use(middleware.AccessLog(d.Logger, d.Metrics))

	r.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/login", http.StatusFound)
	}).Methods(http.MethodGet)

	login := LoginHandler(d.Sessions, d.Notes, d.Metrics, d.Logger)
	r.Handle("/login", login).Methods(http.MethodGet)
	r.Handle("/login", middleware.RateLimiter(d.Limiter)(login)).Methods(http.MethodPost)

	if d.Accounts != nil {
		register := RegisterHandler(d.Accounts, d.Logger)
		r.Handle("/register", register).Methods(http.MethodGet)
		r.Handle("/register", middleware.RateLimiter(d.Limiter)(register)).Methods(http.MethodPost)
		confirm := ConfirmHandler(d.Accounts, d.Logger)
		r.Handle("/confirm", confirm).Methods(http.MethodGet)
		r.Handle("/confirm", middleware.RateLimiter(d.Limiter)(confirm)).Methods(http.MethodPost)
		r.Handle("/confirm/resend", middleware.RateLimiter(d.Limiter)(ResendCodeHandler(d.Accounts, d.Logger))).Methods(http.MethodPost)
	}

	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte("ok"))
	}).Methods(http.MethodGet)
	if d.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}

	// Authenticated routes
	s := r.PathPrefix("/").Subrouter()
	s.Use(auth.SessionGate(d.Sessions, d.Logger))

	s.HandleFunc("/logout", LogoutHandler(d.Sessions, d.Notes, d.Logger)).Methods(http.MethodGet, http.MethodPost)
	s.HandleFunc("/dashboard", DashboardHandler(d.Notes, d.Logger)).Methods(http.MethodGet)
	s.HandleFunc("/notes", CreateNoteHandler(d.Notes, d.Logger)).Methods(http.MethodPost)
	s.HandleFunc("/notes/more", LoadMoreHandler(d.Notes, d.Logger)).Methods(http.MethodPost)
	deleteNote := DeleteNoteHandler(d.Notes, d.Logger)
	s.HandleFunc("/notes/delete", deleteNote).Methods(http.MethodPost)
	s.HandleFunc("/notes/delete/{id}", deleteNote).Methods(http.MethodPost)

	return r
}
