// internal/app/features/profile/profile.go
package profile

import (
	"context"
	"errors"
	"net/http"

	shared "github.com/ipt-ti2/iptgram/internal/app/features/shared/views"
	userstore "github.com/ipt-ti2/iptgram/internal/app/store/users"
	"github.com/ipt-ti2/iptgram/internal/app/system/auth"
	"github.com/ipt-ti2/iptgram/internal/app/system/identity"
	"github.com/ipt-ti2/iptgram/internal/app/system/timeouts"
	"github.com/ipt-ti2/iptgram/internal/app/system/viewdata"
	"github.com/ipt-ti2/iptgram/internal/domain/models"
	"go.uber.org/zap"
)

// profileData is the view model for the profile page.
type profileData struct {
	viewdata.BaseVM

	UserName    string
	FullName    string
	Email       string
	MemberSince string

	Error   string
	Success string
}

// ServeProfile renders the signed-in user's profile (Profile/Index).
func (h *Handler) ServeProfile(w http.ResponseWriter, r *http.Request) {
	user, ok := h.loadUser(w, r)
	if !ok {
		return
	}
	data := h.newProfileData(r, user)
	if r.URL.Query().Get("success") == "password" {
		data.Success = "Password changed successfully."
	}
	shared.RenderStatus(w, r, "profile", http.StatusOK, data)
}

// HandleChangePassword processes the password form (POST Profile/Password).
// The security stamp rotates, so every other cookie for this user stops
// working; the current browser gets a fresh cookie.
func (h *Handler) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}
	user, ok := h.loadUser(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form data.", http.StatusBadRequest)
		return
	}

	current := r.FormValue("current_password")
	next := r.FormValue("new_password")
	confirm := r.FormValue("confirm_password")

	if next != confirm {
		h.renderError(w, r, user, "New passwords do not match.")
		return
	}
	if next == current {
		h.renderError(w, r, user, "New password cannot be the same as your current password.")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	err := h.SignIn.Users.ChangePassword(ctx, user, current, next)
	var pwErr *identity.PasswordError
	switch {
	case errors.Is(err, identity.ErrInvalidCredentials):
		h.renderError(w, r, user, "Current password is incorrect.")
		return
	case errors.As(err, &pwErr):
		h.renderError(w, r, user, pwErr.Error())
		return
	case err != nil:
		h.Log.Error("change password failed", zap.String("user_id", user.ID), zap.Error(err))
		http.Error(w, "Failed to update password.", http.StatusInternalServerError)
		return
	}

	if err := h.SignIn.Sessions.SignIn(w, r, identity.ToSessionUser(user), false); err != nil {
		h.Log.Error("refresh sign-in after password change", zap.Error(err))
	}
	h.Log.Info("password changed", zap.String("user_id", user.ID))
	http.Redirect(w, r, "/Profile?success=password", http.StatusSeeOther)
}

func (h *Handler) loadUser(w http.ResponseWriter, r *http.Request) (*models.User, bool) {
	su, ok := auth.CurrentUser(r)
	if !ok {
		h.SignIn.Sessions.Challenge(w, r)
		return nil, false
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	user, err := h.SignIn.Users.FindByID(ctx, su.ID)
	if errors.Is(err, userstore.ErrNotFound) {
		h.SignIn.Sessions.Challenge(w, r)
		return nil, false
	}
	if err != nil {
		h.Log.Error("load profile user", zap.String("user_id", su.ID), zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return nil, false
	}
	return user, true
}

func (h *Handler) newProfileData(r *http.Request, user *models.User) profileData {
	return profileData{
		BaseVM:      viewdata.NewBaseVM(r, h.Site, "Profile"),
		UserName:    user.UserName,
		FullName:    user.Name,
		Email:       user.Email,
		MemberSince: user.CreatedAt.Format("2006-01-02"),
	}
}

// renderError re-renders the profile page with an error message.
func (h *Handler) renderError(w http.ResponseWriter, r *http.Request, user *models.User, msg string) {
	data := h.newProfileData(r, user)
	data.Error = msg
	shared.RenderStatus(w, r, "profile", http.StatusUnprocessableEntity, data)
}
