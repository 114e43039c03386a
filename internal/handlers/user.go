package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/identikit/apiserver/internal/apperr"
	"github.com/identikit/apiserver/internal/services"
)

// maxAvatarBytes caps avatar uploads.
const maxAvatarBytes = 2 << 20

// UserHandler provides the authenticated profile endpoints.
type UserHandler struct {
	users   *services.UserService
	respond *Responder
}

func NewUserHandler(users *services.UserService, respond *Responder) *UserHandler {
	return &UserHandler{users: users, respond: respond}
}

// UpdateProfileRequest carries any subset of updatable fields. Absent and
// empty fields are left untouched.
type UpdateProfileRequest struct {
	First    *string `json:"first"`
	Last     *string `json:"last"`
	Phone    *string `json:"phone"`
	Username *string `json:"username"`
	Email    *string `json:"email"`
	Password *string `json:"password"`
}

// Profile returns the authenticated user's account.
func (h *UserHandler) Profile(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		h.respond.Error(w, r, apperr.Auth("Authentication required"))
		return
	}

	profile, err := h.users.Profile(r.Context(), user.ID)
	if err != nil {
		h.respond.Error(w, r, err)
		return
	}

	h.respond.Success(w, http.StatusOK, "User profile details has been fetched", profile)
}

// UpdateProfile applies a partial update to the authenticated user.
func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		h.respond.Error(w, r, apperr.Auth("Authentication required"))
		return
	}

	var req UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respond.Error(w, r, apperr.Validation("Invalid request body", nil))
		return
	}

	fe := fieldErrors{}
	fe.optionalMin("first", req.First, minNameLength)
	fe.optionalMin("last", req.Last, minNameLength)
	fe.optionalMin("phone", req.Phone, minPhoneLength)
	fe.optionalMin("username", req.Username, minUsernameLength)
	fe.optionalEmail("email", req.Email)
	fe.optionalMin("password", req.Password, minPasswordLength)
	if err := fe.err(); err != nil {
		h.respond.Error(w, r, err)
		return
	}

	input := services.UpdateInput{
		FirstName: presentField(req.First),
		LastName:  presentField(req.Last),
		Phone:     presentField(req.Phone),
		Username:  presentField(req.Username),
		Email:     presentField(req.Email),
	}
	// Passwords are taken verbatim; whitespace is significant.
	if req.Password != nil && *req.Password != "" {
		input.Password = req.Password
	}

	updated, err := h.users.UpdateProfile(r.Context(), user.ID, input)
	if err != nil {
		h.respond.Error(w, r, err)
		return
	}

	h.respond.Success(w, http.StatusOK, "User has been updated successfully", updated)
}

// UploadAvatar stores the request body as the authenticated user's avatar.
func (h *UserHandler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		h.respond.Error(w, r, apperr.Auth("Authentication required"))
		return
	}

	body := http.MaxBytesReader(w, r.Body, maxAvatarBytes)
	defer func() {
		_ = body.Close()
	}()

	contentType := r.Header.Get("Content-Type")
	if contentType == "" || !strings.HasPrefix(contentType, "image/") {
		h.respond.Error(w, r, apperr.Validation("Avatar must be an image", nil))
		return
	}

	key, err := h.users.UploadAvatar(r.Context(), user.ID, body, r.ContentLength, contentType)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.respond.Error(w, r, apperr.Validation("Avatar exceeds the size limit", nil))
			return
		}
		h.respond.Error(w, r, err)
		return
	}

	h.respond.Success(w, http.StatusOK, "Avatar has been updated successfully", map[string]string{
		"key": key,
	})
}

// DeleteAvatar removes the authenticated user's stored avatar.
func (h *UserHandler) DeleteAvatar(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		h.respond.Error(w, r, apperr.Auth("Authentication required"))
		return
	}

	if err := h.users.DeleteAvatar(r.Context(), user.ID); err != nil {
		h.respond.Error(w, r, err)
		return
	}

	h.respond.Success(w, http.StatusOK, "Avatar has been removed successfully", nil)
}

// Avatar streams the authenticated user's stored avatar.
func (h *UserHandler) Avatar(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		h.respond.Error(w, r, apperr.Auth("Authentication required"))
		return
	}

	reader, err := h.users.Avatar(r.Context(), user.ID)
	if err != nil {
		h.respond.Error(w, r, err)
		return
	}
	defer func() {
		_ = reader.Close()
	}()

	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, reader)
}

func presentField(value *string) *string {
	if value == nil || strings.TrimSpace(*value) == "" {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	return &trimmed
}
