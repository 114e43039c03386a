package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/identikit/apiserver/internal/apperr"
	"github.com/identikit/apiserver/internal/services"
	"github.com/identikit/apiserver/types"
)

// AuthHandler provides the signup and login endpoints.
type AuthHandler struct {
	auth    *services.AuthService
	respond *Responder
}

func NewAuthHandler(auth *services.AuthService, respond *Responder) *AuthHandler {
	return &AuthHandler{auth: auth, respond: respond}
}

type SignupRequest struct {
	First    string `json:"first"`
	Last     string `json:"last"`
	Phone    string `json:"phone"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

// authPayload is a user plus the freshly issued session token. The password
// hash is excluded by the User type itself.
type authPayload struct {
	types.User
	AccessToken string `json:"accessToken"`
}

// Signup registers a new account and returns it with a session token.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respond.Error(w, r, apperr.Validation("Invalid request body", nil))
		return
	}

	fe := fieldErrors{}
	fe.requireMin("first", req.First, minNameLength)
	fe.requireMin("last", req.Last, minNameLength)
	fe.requireMin("phone", req.Phone, minPhoneLength)
	fe.requireMin("username", req.Username, minUsernameLength)
	fe.requireEmail("email", req.Email)
	fe.requireMin("password", req.Password, minPasswordLength)
	if err := fe.err(); err != nil {
		h.respond.Error(w, r, err)
		return
	}

	user, accessToken, err := h.auth.Signup(r.Context(), services.SignupInput{
		FirstName: strings.TrimSpace(req.First),
		LastName:  strings.TrimSpace(req.Last),
		Phone:     strings.TrimSpace(req.Phone),
		Username:  strings.TrimSpace(req.Username),
		Email:     strings.TrimSpace(req.Email),
		Password:  req.Password,
	})
	if err != nil {
		h.respond.Error(w, r, err)
		return
	}

	h.respond.Success(w, http.StatusCreated, "Signup successful", authPayload{
		User:        user,
		AccessToken: accessToken,
	})
}

// Login authenticates by username or email and returns a session token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respond.Error(w, r, apperr.Validation("Invalid request body", nil))
		return
	}

	fe := fieldErrors{}
	fe.requireMin("identifier", req.Identifier, minIdentifierLength)
	fe.requireMin("password", req.Password, minPasswordLength)
	if err := fe.err(); err != nil {
		h.respond.Error(w, r, err)
		return
	}

	user, accessToken, err := h.auth.Login(r.Context(), strings.TrimSpace(req.Identifier), req.Password)
	if err != nil {
		h.respond.Error(w, r, err)
		return
	}

	h.respond.Success(w, http.StatusOK, "Login successful", authPayload{
		User:        user,
		AccessToken: accessToken,
	})
}
