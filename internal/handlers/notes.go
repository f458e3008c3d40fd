package handlers

import (
	"net/http"

	"github.com/ahsanfayaz52/noteboard/internal/auth"
	"github.com/ahsanfayaz52/noteboard/internal/logger"
	"github.com/ahsanfayaz52/noteboard/internal/models"
	"github.com/ahsanfayaz52/noteboard/internal/notelist"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	msgLoadFailed   = "Your notes could not be loaded. Please try again."
	msgCreateFailed = "The note could not be created. Please try again."
	msgDeleteFailed = "The note could not be deleted. Please try again."
	msgMoreFailed   = "More notes could not be loaded. Please try again."
)

func renderDashboard(w http.ResponseWriter, log *zap.Logger, sess *models.Session, ctrl *notelist.Controller, status int, banner string) {
	v := ctrl.View()
	render(w, log, "dashboard", status, dashboardData{
		Username: sess.Username,
		Notes:    v.Notes,
		HasMore:  v.HasMore,
		Draft:    v.Draft,
		Error:    banner,
	})
}

// apiFailure logs a remote call failure and shows the dashboard as it was,
// with a banner.
func apiFailure(w http.ResponseWriter, log *zap.Logger, sess *models.Session, ctrl *notelist.Controller, op string, err error, banner string) {
	log.Error("notes api call failed",
		zap.String(logger.FieldOperation, op),
		zap.String(logger.FieldSessionID, sess.ID),
		zap.Error(err))
	renderDashboard(w, log, sess, ctrl, http.StatusBadGateway, banner)
}

// mutationFailure picks the banner for a failed create or delete. When the
// mutation landed and only the reload failed, the user is told the list is
// stale rather than asked to repeat the mutation.
func mutationFailure(w http.ResponseWriter, log *zap.Logger, sess *models.Session, ctrl *notelist.Controller, op string, err error, banner string) {
	if errors.Is(err, notelist.ErrResyncFailed) {
		apiFailure(w, log, sess, ctrl, "listNotes", err, msgLoadFailed)
		return
	}
	apiFailure(w, log, sess, ctrl, op, err, banner)
}

func DashboardHandler(notes *notelist.Registry, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := auth.SessionFromContext(r.Context())
		ctrl := notes.Mount(sess.ID)

		if !ctrl.Loaded() {
			if err := ctrl.LoadFirstPage(r.Context()); err != nil {
				apiFailure(w, log, sess, ctrl, "listNotes", err, msgLoadFailed)
				return
			}
		}
		renderDashboard(w, log, sess, ctrl, http.StatusOK, "")
	}
}

func CreateNoteHandler(notes *notelist.Registry, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := auth.SessionFromContext(r.Context())
		ctrl := notes.Mount(sess.ID)

		err := ctrl.Create(r.Context(), r.FormValue("name"))
		if err != nil && !errors.Is(err, notelist.ErrEmptyName) {
			mutationFailure(w, log, sess, ctrl, "createNotes", err, msgCreateFailed)
			return
		}
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
	}
}

func LoadMoreHandler(notes *notelist.Registry, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := auth.SessionFromContext(r.Context())
		ctrl := notes.Mount(sess.ID)

		if err := ctrl.LoadNextPage(r.Context()); err != nil {
			apiFailure(w, log, sess, ctrl, "listNotes", err, msgMoreFailed)
			return
		}
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
	}
}

func DeleteNoteHandler(notes *notelist.Registry, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := auth.SessionFromContext(r.Context())
		ctrl := notes.Mount(sess.ID)

		id, ok := mux.Vars(r)["id"]
		if !ok {
			id = r.FormValue("id")
		}
		if id == "" {
			http.Error(w, "Missing note id", http.StatusBadRequest)
			return
		}
		if err := ctrl.Delete(r.Context(), id); err != nil {
			mutationFailure(w, log, sess, ctrl, "deleteNotes", err, msgDeleteFailed)
			return
		}
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
	}
}
