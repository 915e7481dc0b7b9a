package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/example/apparel-commerce/internal/auth"
	"github.com/example/apparel-commerce/internal/domain/user"
	"github.com/example/apparel-commerce/internal/infrastructure/store"
)

// AuthHandlers handles registration and login.
type AuthHandlers struct {
	store      store.StoreInterface
	jwtService *auth.JWTService
	log        zerolog.Logger
}

func NewAuthHandlers(st store.StoreInterface, jwtService *auth.JWTService, log zerolog.Logger) *AuthHandlers {
	return &AuthHandlers{
		store:      st,
		jwtService: jwtService,
		log:        log,
	}
}

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse carries the user plus a bearer token for non-browser clients;
// browsers get the same token as an HttpOnly cookie.
type AuthResponse struct {
	User  UserResponse `json:"user"`
	Token string       `json:"token"`
}

type UserResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

func (h *AuthHandlers) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Email == "" || req.Name == "" {
		respondError(w, http.StatusBadRequest, "email and name are required")
		return
	}

	if existing, err := h.store.GetUserByEmail(r.Context(), req.Email); err != nil && !errors.Is(err, user.ErrUserNotFound) {
		respondDomainError(w, err)
		return
	} else if existing != nil {
		respondError(w, http.StatusConflict, user.ErrEmailTaken.Error())
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	newUser := &user.User{
		ID:           uuid.New().String(),
		Email:        req.Email,
		Name:         req.Name,
		PasswordHash: hash,
		Role:         "customer",
		CreatedAt:    time.Now(),
	}
	if err := h.store.CreateUser(r.Context(), newUser); err != nil {
		if errors.Is(err, user.ErrEmailTaken) {
			respondError(w, http.StatusConflict, err.Error())
			return
		}
		h.log.Error().Err(err).Str("email", req.Email).Msg("user creation failed")
		respondDomainError(w, err)
		return
	}

	token := h.issueSession(w, r, newUser)
	respondJSON(w, http.StatusCreated, AuthResponse{User: toUserResponse(newUser), Token: token})
}

func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	u, err := h.store.GetUserByEmail(r.Context(), req.Email)
	if errors.Is(err, user.ErrUserNotFound) {
		respondError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}
	if err != nil {
		respondDomainError(w, err)
		return
	}

	if !auth.CheckPassword(req.Password, u.PasswordHash) {
		respondError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}

	token := h.issueSession(w, r, u)
	respondJSON(w, http.StatusOK, AuthResponse{User: toUserResponse(u), Token: token})
}

func (h *AuthHandlers) issueSession(w http.ResponseWriter, r *http.Request, u *user.User) string {
	token, expiry, err := h.jwtService.GenerateToken(u.ID, u.Email, u.Role)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", u.ID).Msg("token generation failed")
		return ""
	}

	http.SetCookie(w, &http.Cookie{
		Name:     "access_token",
		Value:    token,
		Path:     "/",
		Expires:  expiry,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteStrictMode,
	})
	return token
}

func toUserResponse(u *user.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
	}
}
