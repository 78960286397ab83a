package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"

	"github.com/mind-engage/studycoach/internal/platform/apierr"
	"github.com/mind-engage/studycoach/internal/platform/logger"
	"github.com/mind-engage/studycoach/internal/rbac"
)

const (
	stateCookie        = "sc_oauth_state"
	redirectCookie     = "sc_post_auth_redirect"
	googleTokenInfoURL = "https://oauth2.googleapis.com/tokeninfo"
)

type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	AllowedHD    string // e.g. asu.edu
	PublicURL    string

	// overridable in tests
	Endpoint     oauth2.Endpoint
	TokenInfoURL string
}

// GoogleSSO signs users in with their Google (university) account.
type GoogleSSO struct {
	oauth      *oauth2.Config
	cfg        GoogleConfig
	auth       *AuthService
	users      *Users
	log        *logger.Logger
	httpClient *http.Client
}

func NewGoogleSSO(cfg GoogleConfig, a *AuthService, users *Users, log *logger.Logger) *GoogleSSO {
	if cfg.Endpoint.AuthURL == "" {
		cfg.Endpoint = endpoints.Google
	}
	if cfg.TokenInfoURL == "" {
		cfg.TokenInfoURL = googleTokenInfoURL
	}
	return &GoogleSSO{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     cfg.Endpoint,
		},
		cfg:        cfg,
		auth:       a,
		users:      users,
		log:        log.With("service", "GoogleSSO"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// sameOrigin reports whether target stays on PublicURL or localhost.
func (g *GoogleSSO) sameOrigin(target string) bool {
	u, err := url.Parse(target)
	if err != nil {
		return false
	}
	if u.Host == "" {
		return strings.HasPrefix(u.Path, "/") && !strings.HasPrefix(u.Path, "//")
	}
	if strings.HasPrefix(u.Hostname(), "localhost") {
		return true
	}
	base, err := url.Parse(g.cfg.PublicURL)
	return err == nil && base.Host != "" && u.Scheme == base.Scheme && u.Host == base.Host
}

func (g *GoogleSSO) home() string {
	if g.cfg.PublicURL == "" {
		return "/"
	}
	return strings.TrimRight(g.cfg.PublicURL, "/") + "/"
}

func shortCookie(name, value string, maxAge time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(maxAge.Seconds()),
	}
}

// LoginHandler handles GET /auth/google/login?redirect=... by redirecting to Google.
func (g *GoogleSSO) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		next := r.URL.Query().Get("redirect")
		if next == "" {
			next = g.home()
		}
		if !g.sameOrigin(next) {
			apierr.Write(w, apierr.BadRequest("bad_redirect", errors.New("redirect must stay on this site")))
			return
		}

		buf := make([]byte, 16)
		if _, err := rand.Read(buf); err != nil {
			apierr.Write(w, err)
			return
		}
		state := hex.EncodeToString(buf)
		http.SetCookie(w, shortCookie(stateCookie, state, 10*time.Minute))
		http.SetCookie(w, shortCookie(redirectCookie, url.QueryEscape(next), 10*time.Minute))

		opts := []oauth2.AuthCodeOption{oauth2.AccessTypeOnline}
		if g.cfg.AllowedHD != "" {
			opts = append(opts, oauth2.SetAuthURLParam("hd", g.cfg.AllowedHD))
		}
		http.Redirect(w, r, g.oauth.AuthCodeURL(state, opts...), http.StatusFound)
	}
}

type tokenInfo struct {
	Iss           string `json:"iss"`
	Aud           string `json:"aud"`
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified string `json:"email_verified"`
	Hd            string `json:"hd"`
}

func (g *GoogleSSO) verify(ctx context.Context, idToken string) (tokenInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.cfg.TokenInfoURL+"?id_token="+url.QueryEscape(idToken), nil)
	if err != nil {
		return tokenInfo{}, err
	}
	resp, err := g.httpClient.Do(req)
	if err != nil {
		return tokenInfo{}, fmt.Errorf("tokeninfo: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return tokenInfo{}, fmt.Errorf("tokeninfo: status %d", resp.StatusCode)
	}
	var ti tokenInfo
	if err := json.NewDecoder(resp.Body).Decode(&ti); err != nil {
		return tokenInfo{}, fmt.Errorf("tokeninfo: %w", err)
	}
	switch {
	case ti.Aud != g.cfg.ClientID:
		return tokenInfo{}, errors.New("invalid audience")
	case ti.Iss != "accounts.google.com" && ti.Iss != "https://accounts.google.com":
		return tokenInfo{}, errors.New("invalid issuer")
	case ti.EmailVerified != "true":
		return tokenInfo{}, errors.New("email not verified")
	case g.cfg.AllowedHD != "" && !strings.EqualFold(ti.Hd, g.cfg.AllowedHD):
		return tokenInfo{}, errors.New("unauthorized domain")
	}
	return ti, nil
}

// CallbackHandler handles GET /auth/google/callback: it exchanges the code,
// verifies the id_token, upserts the user, and redirects back to the app
// with the access token in a cookie and the query string.
func (g *GoogleSSO) CallbackHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		q := r.URL.Query()
		c, err := r.Cookie(stateCookie)
		if err != nil || c.Value == "" || q.Get("state") != c.Value {
			apierr.Write(w, apierr.BadRequest("bad_state", errors.New("state mismatch")))
			return
		}
		code := q.Get("code")
		if code == "" {
			apierr.Write(w, apierr.BadRequest("missing_code", errors.New("missing code")))
			return
		}

		ctx = context.WithValue(ctx, oauth2.HTTPClient, g.httpClient)
		tok, err := g.oauth.Exchange(ctx, code)
		if err != nil {
			g.log.Warn("google code exchange failed", "error", err.Error())
			apierr.Write(w, apierr.New(http.StatusBadGateway, "token_exchange_failed", err))
			return
		}
		idToken, _ := tok.Extra("id_token").(string)
		if idToken == "" {
			apierr.Write(w, apierr.New(http.StatusBadGateway, "missing_id_token", errors.New("no id_token in token response")))
			return
		}
		ti, err := g.verify(ctx, idToken)
		if err != nil {
			g.log.Warn("google id token rejected", "error", err.Error())
			apierr.Write(w, apierr.New(http.StatusUnauthorized, "invalid_id_token", err))
			return
		}

		// existing users keep their id and role; new ones are students
		usr, err := g.users.Get(ctx, ti.Email)
		if errors.Is(err, ErrUserNotFound) {
			usr, err = g.users.Upsert(ctx, "google|"+ti.Sub, ti.Email, rbac.RoleStudent, "")
		}
		if err != nil {
			apierr.Write(w, err)
			return
		}
		access, err := g.auth.IssueJWT(usr.ID, usr.Role)
		if err != nil {
			apierr.Write(w, err)
			return
		}
		http.SetCookie(w, shortCookie(AccessCookie, access, g.auth.ttl))

		target := g.home()
		if rc, err := r.Cookie(redirectCookie); err == nil {
			if raw, _ := url.QueryUnescape(rc.Value); raw != "" && g.sameOrigin(raw) {
				target = raw
			}
		}
		http.SetCookie(w, shortCookie(stateCookie, "", -time.Second))
		http.SetCookie(w, shortCookie(redirectCookie, "", -time.Second))

		u, _ := url.Parse(target)
		vals := u.Query()
		vals.Set("access_token", access)
		u.RawQuery = vals.Encode()
		http.Redirect(w, r, u.String(), http.StatusFound)
	}
}
