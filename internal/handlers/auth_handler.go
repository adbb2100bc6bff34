// File: internal/handlers/auth_handler.go
package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/ksamadi/omnichat/internal/domain"
	"github.com/ksamadi/omnichat/internal/middleware"
	"github.com/ksamadi/omnichat/internal/repository/user"
	"github.com/ksamadi/omnichat/internal/services/chat"
)

const tokenTTL = 7 * 24 * time.Hour

// AuthHandler serves the login boundary: register, login, logout.
type AuthHandler struct {
	userRepo  user.UserRepository
	groups    *chat.GroupService
	jwtSecret string
	secure    bool
	logger    chat.Logger
}

func NewAuthHandler(userRepo user.UserRepository, groups *chat.GroupService, jwtSecret string, secure bool, logger chat.Logger) *AuthHandler {
	return &AuthHandler{
		userRepo:  userRepo,
		groups:    groups,
		jwtSecret: jwtSecret,
		secure:    secure,
		logger:    logger,
	}
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (c *credentials) validate() string {
	c.Username = strings.TrimSpace(c.Username)
	if len(c.Username) < 3 {
		return "username must be at least 3 characters"
	}
	if len(c.Password) < 8 {
		return "password must be at least 8 characters"
	}
	return ""
}

// Register handles POST /register. A first conversation is created so
// the user always has one.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var creds credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if msg := creds.validate(); msg != "" {
		writeError(w, msg, http.StatusBadRequest)
		return
	}

	if _, err := h.userRepo.FindByUsername(r.Context(), creds.Username); err == nil {
		writeError(w, "Username already taken", http.StatusConflict)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(creds.Password), bcrypt.DefaultCost)
	if err != nil {
		writeError(w, "Could not create account", http.StatusInternalServerError)
		return
	}

	created, err := h.userRepo.Create(r.Context(), &domain.User{
		Username:     creds.Username,
		PasswordHash: string(hash),
	})
	if err != nil {
		writeError(w, "Could not create account", http.StatusInternalServerError)
		return
	}

	if _, err := h.groups.CreateGroup(r.Context(), created.ID, "", true); err != nil {
		h.logger.Warn("failed to create initial chat group", "user_id", created.ID, "error", err.Error())
	}

	h.logger.Info("user registered", "user_id", created.ID)
	h.issueSession(w, created.ID)
	writeJSON(w, http.StatusCreated, created)
}

// Login handles POST /login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var creds credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	account, err := h.userRepo.FindByUsername(r.Context(), strings.TrimSpace(creds.Username))
	if err != nil {
		writeError(w, "Invalid username or password", http.StatusUnauthorized)
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(creds.Password)); err != nil {
		writeError(w, "Invalid username or password", http.StatusUnauthorized)
		return
	}

	h.logger.Info("user logged in", "user_id", account.ID)
	h.issueSession(w, account.ID)
	writeJSON(w, http.StatusOK, account)
}

// Logout handles POST /logout.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     "auth_token",
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}

func (h *AuthHandler) issueSession(w http.ResponseWriter, userID uint) {
	token, err := middleware.IssueToken(userID, h.jwtSecret, tokenTTL)
	if err != nil {
		h.logger.Error("failed to issue token", "user_id", userID, "error", err.Error())
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     "auth_token",
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(tokenTTL),
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
}
