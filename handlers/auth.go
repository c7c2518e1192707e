package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/golang-jwt/jwt/v5"

	"github.com/anu100405/REUNITE/models"
	"github.com/anu100405/REUNITE/repository"
)

type AuthHandler struct {
	Users      repository.UserRepository
	JWTSecret  []byte
	Expiration time.Duration
}

func NewAuthHandler(users repository.UserRepository, secret string, expiration time.Duration) *AuthHandler {
	return &AuthHandler{Users: users, JWTSecret: []byte(secret), Expiration: expiration}
}

type RegisterPayload struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Phone    string `json:"phone"`
}

func (p RegisterPayload) validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Username, validation.Required, validation.Length(3, 80)),
		validation.Field(&p.Email, validation.Required, validation.Length(3, 120)),
		validation.Field(&p.Password, validation.Required, validation.Length(6, 128)),
	)
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var payload RegisterPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body: " + err.Error()})
		return
	}
	if err := payload.validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	if _, err := h.Users.GetByUsername(payload.Username); err == nil {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "Username already taken"})
		return
	}
	if _, err := h.Users.GetByEmail(payload.Email); err == nil {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "Email already registered"})
		return
	}

	user := &models.User{
		Username: payload.Username,
		Email:    payload.Email,
		Phone:    payload.Phone,
	}
	if err := user.SetPassword(payload.Password); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to hash password"})
		return
	}
	if err := h.Users.Create(user); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to create user"})
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "User registered successfully",
		"user":    serializeReporter(user),
	})
}

type LoginPayload struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token     string            `json:"token"`
	User      *reporterResponse `json:"user"`
	ExpiresAt time.Time         `json:"expires_at"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var payload LoginPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		return
	}

	user, err := h.Users.GetByUsername(payload.Username)
	if err != nil || !user.CheckPassword(payload.Password) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Invalid username or password"})
		return
	}

	expirationTime := time.Now().Add(h.Expiration)
	claims := &jwt.RegisteredClaims{
		Subject:   fmt.Sprint(user.ID),
		ExpiresAt: jwt.NewNumericDate(expirationTime),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		Issuer:    "reunite",
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(h.JWTSecret)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to generate token"})
		return
	}

	writeJSON(w, http.StatusOK, LoginResponse{
		Token:     tokenString,
		User:      serializeReporter(user),
		ExpiresAt: expirationTime,
	})
}

// CurrentUser returns the authenticated reporter. It must sit behind
// AuthMiddleware.
func (h *AuthHandler) CurrentUser(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Could not retrieve user from context"})
		return
	}
	writeJSON(w, http.StatusOK, serializeReporter(user))
}

// parseBearerToken extracts and verifies the JWT from an Authorization
// header, returning the user ID it was issued for.
func parseBearerToken(authHeader string, secret []byte) (uint, error) {
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return 0, fmt.Errorf("authorization header format must be Bearer {token}")
	}

	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(parts[1], claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return 0, err
	}
	if !token.Valid {
		return 0, fmt.Errorf("invalid token")
	}

	var userID uint
	if _, err := fmt.Sscan(claims.Subject, &userID); err != nil {
		return 0, fmt.Errorf("invalid user ID in token subject %q", claims.Subject)
	}
	return userID, nil
}
