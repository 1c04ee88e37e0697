// internal/app/features/profile/handler.go
package profile

import (
	"github.com/ipt-ti2/iptgram/internal/app/system/identity"
	"github.com/ipt-ti2/iptgram/internal/app/system/viewdata"
	"go.uber.org/zap"
)

// Handler owns all user profile handlers.
type Handler struct {
	SignIn *identity.SignInManager
	Site   viewdata.Site
	Log    *zap.Logger
}

// NewHandler constructs a profile Handler.
func NewHandler(signIn *identity.SignInManager, site viewdata.Site, logger *zap.Logger) *Handler {
	return &Handler{
		SignIn: signIn,
		Site:   site,
		Log:    logger,
	}
}
