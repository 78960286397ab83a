package auth

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/mind-engage/studycoach/internal/platform/apierr"
	"github.com/mind-engage/studycoach/internal/platform/httpx"
	"github.com/mind-engage/studycoach/internal/platform/logger"
	"github.com/mind-engage/studycoach/internal/rbac"
)

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	UserID      string `json:"user_id"`
	Username    string `json:"username"`
	Role        string `json:"role"`
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginHandler handles POST /auth/login {"username": "...", "password": "..."}.
func LoginHandler(a *AuthService, users *Users, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if err := httpx.DecodeJSON(w, r, &req); err != nil {
			apierr.Write(w, err)
			return
		}
		usr, err := users.Authenticate(r.Context(), req.Username, req.Password)
		if errors.Is(err, ErrInvalidCredentials) {
			log.Info("login rejected", "username", req.Username)
			apierr.Write(w, apierr.New(http.StatusUnauthorized, "invalid_credentials", err))
			return
		}
		if err != nil {
			log.Error("login failed", "error", err.Error())
			apierr.Write(w, err)
			return
		}
		writeToken(w, a, usr)
	}
}

func writeToken(w http.ResponseWriter, a *AuthService, usr User) {
	tok, err := a.IssueJWT(usr.ID, usr.Role)
	if err != nil {
		apierr.Write(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, tokenResponse{AccessToken: tok, UserID: usr.ID, Username: usr.Username, Role: usr.Role})
}

const guestCookie = "sc_guest_id"

// GuestLoginHandler handles POST /auth/guest. It signs a browser in as a
// throwaway student, reusing the guest identity remembered in a cookie.
func GuestLoginHandler(a *AuthService, users *Users) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if c, err := r.Cookie(guestCookie); err == nil && c.Value != "" {
			if usr, err := users.Get(ctx, c.Value); err == nil && usr.Role == rbac.RoleStudent && usr.ID == c.Value {
				setGuestCookie(w, usr.ID)
				writeToken(w, a, usr)
				return
			}
		}

		sfx := strconv.FormatInt(time.Now().UnixNano(), 36)
		usr, err := users.Upsert(ctx, "guest-"+sfx, "guest-"+sfx[len(sfx)-6:], rbac.RoleStudent, "")
		if err != nil {
			apierr.Write(w, err)
			return
		}
		setGuestCookie(w, usr.ID)
		writeToken(w, a, usr)
	}
}

func setGuestCookie(w http.ResponseWriter, id string) {
	http.SetCookie(w, &http.Cookie{
		Name:     guestCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(30 * 24 * time.Hour),
	})
}
