package handlers

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/ahsanfayaz52/noteboard/internal/auth"
	"github.com/ahsanfayaz52/noteboard/internal/logger"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Login page notices, keyed by the notice query parameter.
var loginNotices = map[string]string{
	"registered": "Account created. You can sign in now.",
	"confirmed":  "Account confirmed. You can sign in now.",
}

// accountFailure maps a sign-up or confirmation error to what the user is
// told and the response status.
func accountFailure(err error) (msg string, status int) {
	switch {
	case errors.Is(err, auth.ErrUsernameExists):
		return "That username is already taken.", http.StatusConflict
	case errors.Is(err, auth.ErrInvalidPassword):
		return "That password does not meet the account requirements.", http.StatusBadRequest
	case errors.Is(err, auth.ErrInvalidSignUp):
		return "Check the username and email address and try again.", http.StatusBadRequest
	case errors.Is(err, auth.ErrCodeMismatch):
		return "That confirmation code is not correct.", http.StatusBadRequest
	case errors.Is(err, auth.ErrCodeExpired):
		return "That confirmation code has expired. Request a new one.", http.StatusBadRequest
	case errors.Is(err, auth.ErrInvalidCredentials):
		return "This account cannot be confirmed.", http.StatusBadRequest
	case errors.Is(err, auth.ErrTooManyRequests):
		return "Too many attempts, please wait and try again.", http.StatusTooManyRequests
	}
	return "Registration is unavailable right now, please try again later.", http.StatusBadGateway
}

func confirmURL(username string) string {
	return "/confirm?" + url.Values{"username": {username}}.Encode()
}

func RegisterHandler(accounts auth.Registrar, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			render(w, log, "register", http.StatusOK, registerData{})
			return
		}

		data := registerData{
			Username: strings.TrimSpace(r.FormValue("username")),
			Email:    strings.TrimSpace(r.FormValue("email")),
		}
		password := r.FormValue("password")

		switch {
		case data.Username == "" || data.Email == "" || password == "":
			data.Error = "Username, email and password are required."
		case password != r.FormValue("confirm"):
			data.Error = "Passwords do not match."
		}
		if data.Error != "" {
			render(w, log, "register", http.StatusBadRequest, data)
			return
		}

		confirmed, err := accounts.SignUp(r.Context(), data.Username, data.Email, password)
		if err != nil {
			msg, status := accountFailure(err)
			if status == http.StatusBadGateway {
				log.Error("sign up", zap.String(logger.FieldUsername, data.Username), zap.Error(err))
			} else {
				log.Info("sign up rejected", zap.String(logger.FieldUsername, data.Username), zap.Error(err))
			}
			data.Error = msg
			render(w, log, "register", status, data)
			return
		}
		log.Info("user signed up", zap.String(logger.FieldUsername, data.Username), zap.Bool("confirmed", confirmed))

		if confirmed {
			http.Redirect(w, r, "/login?notice=registered", http.StatusSeeOther)
			return
		}
		http.Redirect(w, r, confirmURL(data.Username), http.StatusSeeOther)
	}
}

func ConfirmHandler(accounts auth.Registrar, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			render(w, log, "confirm", http.StatusOK, confirmData{Username: r.URL.Query().Get("username")})
			return
		}

		data := confirmData{Username: strings.TrimSpace(r.FormValue("username"))}
		code := strings.TrimSpace(r.FormValue("code"))
		if data.Username == "" || code == "" {
			data.Error = "Username and confirmation code are required."
			render(w, log, "confirm", http.StatusBadRequest, data)
			return
		}

		if err := accounts.ConfirmSignUp(r.Context(), data.Username, code); err != nil {
			msg, status := accountFailure(err)
			if status == http.StatusBadGateway {
				log.Error("confirm sign up", zap.String(logger.FieldUsername, data.Username), zap.Error(err))
			}
			data.Error = msg
			render(w, log, "confirm", status, data)
			return
		}
		log.Info("user confirmed", zap.String(logger.FieldUsername, data.Username))

		http.Redirect(w, r, "/login?notice=confirmed", http.StatusSeeOther)
	}
}

// ResendCodeHandler asks the provider to send a fresh confirmation code.
func ResendCodeHandler(accounts auth.Registrar, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data := confirmData{Username: strings.TrimSpace(r.FormValue("username"))}
		if data.Username == "" {
			data.Error = "Enter your username to get a new code."
			render(w, log, "confirm", http.StatusBadRequest, data)
			return
		}

		if err := accounts.ResendConfirmationCode(r.Context(), data.Username); err != nil {
			msg, status := accountFailure(err)
			if status == http.StatusBadGateway {
				log.Error("resend confirmation code", zap.String(logger.FieldUsername, data.Username), zap.Error(err))
			}
			data.Error = msg
			render(w, log, "confirm", status, data)
			return
		}

		data.Notice = "A new confirmation code has been sent."
		render(w, log, "confirm", http.StatusOK, data)
	}
}
