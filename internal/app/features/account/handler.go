// internal/app/features/account/handler.go
package account

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"

	userstore "github.com/ipt-ti2/iptgram/internal/app/store/users"
	"github.com/ipt-ti2/iptgram/internal/app/system/auth"
	"github.com/ipt-ti2/iptgram/internal/app/system/identity"
	"github.com/ipt-ti2/iptgram/internal/app/system/inputval"
	"github.com/ipt-ti2/iptgram/internal/app/system/metrics"
	"github.com/ipt-ti2/iptgram/internal/app/system/navigation"
	"github.com/ipt-ti2/iptgram/internal/app/system/ratelimit"
	"github.com/ipt-ti2/iptgram/internal/app/system/timeouts"
	"github.com/ipt-ti2/iptgram/internal/domain/models"
	"go.uber.org/zap"
)

// maxBodyBytes caps login and register payloads.
const maxBodyBytes = 64 << 10

// Handler serves the JSON account API under /api/account.
type Handler struct {
	SignIn  *identity.SignInManager
	Limiter *ratelimit.LoginLimiter // nil disables throttling
	Metrics *metrics.Metrics        // nil disables counting
	Log     *zap.Logger
}

func NewHandler(signIn *identity.SignInManager, limiter *ratelimit.LoginLimiter, m *metrics.Metrics, logger *zap.Logger) *Handler {
	return &Handler{
		SignIn:  signIn,
		Limiter: limiter,
		Metrics: m,
		Log:     logger,
	}
}

/*─────────────────────────────────────────────────────────────────────────────*
| Payloads                                                                    |
*─────────────────────────────────────────────────────────────────────────────*/

type loginRequest struct {
	UserName   string `json:"username" validate:"required,max=256" label:"User name"`
	Password   string `json:"password" validate:"required" label:"Password"`
	RememberMe bool   `json:"remember_me"`
}

type registerRequest struct {
	UserName string `json:"username" validate:"required,max=64,username" label:"User name"`
	Email    string `json:"email" validate:"omitempty,max=256,email" label:"Email"`
	Name     string `json:"name" validate:"max=128" label:"Name"`
	Password string `json:"password" validate:"required" label:"Password"`
}

type userResponse struct {
	ID       string `json:"id"`
	UserName string `json:"username"`
	Name     string `json:"name,omitempty"`
	Email    string `json:"email,omitempty"`
}

type statusResponse struct {
	Authenticated bool          `json:"authenticated"`
	User          *userResponse `json:"user,omitempty"`
	LoginPath     string        `json:"login_path,omitempty"`
	ReturnURL     string        `json:"return_url,omitempty"`
}

type errorResponse struct {
	Errors []inputval.FieldError `json:"errors"`
}

func fromSession(u *auth.SessionUser) *userResponse {
	return &userResponse{ID: u.ID, UserName: u.UserName, Name: u.Name, Email: u.Email}
}

func fromModel(u *models.User) *userResponse {
	return &userResponse{ID: u.ID, UserName: u.UserName, Name: u.Name, Email: u.Email}
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /api/account/login – current sign-in state                              |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeLoginStatus(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{
		LoginPath: h.SignIn.Sessions.Policy().LoginPath,
		ReturnURL: navigation.ReturnURL(r, ""),
	}
	if u, ok := auth.CurrentUser(r); ok {
		resp.Authenticated = true
		resp.User = fromSession(u)
	}
	writeJSON(w, http.StatusOK, resp)
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /api/account/login                                                     |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeBody(r, &req, func(get func(string) string) {
		req.UserName = get("username")
		req.Password = get("password")
		req.RememberMe, _ = strconv.ParseBool(get("remember_me"))
	}); err != nil {
		h.Log.Debug("login: bad body", zap.Error(err))
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if res := inputval.Validate(req); res.HasErrors() {
		writeJSON(w, http.StatusBadRequest, errorResponse{Errors: res.Errors})
		return
	}

	if h.Limiter != nil && !h.Limiter.Check(r, req.UserName) {
		h.Log.Warn("login throttled", zap.String("user_name", req.UserName))
		h.countSignIn("throttled")
		w.WriteHeader(http.StatusTooManyRequests)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "password sign-in")
	defer cancel()

	u, err := h.SignIn.PasswordSignIn(w, r.WithContext(ctx), req.UserName, req.Password, req.RememberMe)
	switch {
	case errors.Is(err, identity.ErrInvalidCredentials):
		h.countSignIn("failure")
		w.WriteHeader(http.StatusUnauthorized)
		return
	case err != nil:
		h.Log.Error("login failed", zap.Error(err))
		h.countSignIn("error")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	if h.Limiter != nil {
		h.Limiter.ResetUser(req.UserName)
	}
	h.countSignIn("success")

	// A browser form post that came from a challenge goes back where it started.
	if isForm(r) {
		if ret := navigation.ReturnURL(r, ""); ret != "" {
			http.Redirect(w, r, ret, http.StatusSeeOther)
			return
		}
	}
	writeJSON(w, http.StatusOK, statusResponse{Authenticated: true, User: fromModel(u)})
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET|POST /api/account/logout                                                |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.SignIn.SignOut(w, r); err != nil {
		h.Log.Error("logout: clear cookie", zap.Error(err))
	}
	// The layout's logout button is a plain form post; send the browser
	// back to a page instead of showing JSON.
	if isForm(r) {
		http.Redirect(w, r, navigation.ReturnURL(r, "/"), http.StatusSeeOther)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Authenticated: false})
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /api/account/me (signed-in only)                                        |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeMe(w http.ResponseWriter, r *http.Request) {
	u, ok := auth.CurrentUser(r)
	if !ok {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	writeJSON(w, http.StatusOK, fromSession(u))
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /api/account/register                                                  |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeBody(r, &req, func(get func(string) string) {
		req.UserName = get("username")
		req.Email = get("email")
		req.Name = get("name")
		req.Password = get("password")
	}); err != nil {
		h.Log.Debug("register: bad body", zap.Error(err))
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if res := inputval.Validate(req); res.HasErrors() {
		writeJSON(w, http.StatusBadRequest, errorResponse{Errors: res.Errors})
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "register")
	defer cancel()

	u, err := h.SignIn.Users.Create(ctx, models.User{
		UserName: req.UserName,
		Email:    req.Email,
		Name:     req.Name,
	}, req.Password)

	var pwErr *identity.PasswordError
	switch {
	case errors.As(err, &pwErr):
		resp := errorResponse{}
		for _, v := range pwErr.Violations {
			resp.Errors = append(resp.Errors, inputval.FieldError{Field: "password", Message: v.Error()})
		}
		writeJSON(w, http.StatusBadRequest, resp)
		return
	case errors.Is(err, userstore.ErrDuplicateUserName):
		writeJSON(w, http.StatusConflict, errorResponse{Errors: []inputval.FieldError{
			{Field: "username", Message: "User name is already taken."},
		}})
		return
	case err != nil:
		h.Log.Error("register failed", zap.Error(err))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	if h.Metrics != nil {
		h.Metrics.Registrations.Inc()
	}
	h.Log.Info("user registered", zap.String("user_id", u.ID), zap.String("user_name", u.UserName))

	if err := h.SignIn.Sessions.SignIn(w, r, identity.ToSessionUser(&u), false); err != nil {
		h.Log.Error("register: sign-in", zap.Error(err))
	}
	writeJSON(w, http.StatusCreated, fromModel(&u))
}

/*─────────────────────────────────────────────────────────────────────────────*
| helpers                                                                     |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) countSignIn(result string) {
	if h.Metrics != nil {
		h.Metrics.SignIns.WithLabelValues(result).Inc()
	}
}

func isForm(r *http.Request) bool {
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return ct == "application/x-www-form-urlencoded" || ct == "multipart/form-data"
}

// decodeBody reads JSON into dst, or calls fromForm for form posts.
func decodeBody(r *http.Request, dst any, fromForm func(get func(string) string)) error {
	if isForm(r) {
		r.Body = http.MaxBytesReader(nil, r.Body, maxBodyBytes)
		if err := r.ParseForm(); err != nil {
			return err
		}
		fromForm(r.PostFormValue)
		return nil
	}
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
