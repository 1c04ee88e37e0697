// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"

	"github.com/dalemusser/waffle/config"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/go-chi/chi/v5"
	accountfeature "github.com/ipt-ti2/iptgram/internal/app/features/account"
	errorsfeature "github.com/ipt-ti2/iptgram/internal/app/features/errors"
	healthfeature "github.com/ipt-ti2/iptgram/internal/app/features/health"
	homefeature "github.com/ipt-ti2/iptgram/internal/app/features/home"
	profilefeature "github.com/ipt-ti2/iptgram/internal/app/features/profile"
	"github.com/ipt-ti2/iptgram/internal/app/system/auth"
	"github.com/ipt-ti2/iptgram/internal/app/system/identity"
	"github.com/ipt-ti2/iptgram/internal/app/system/middleware"
	"github.com/ipt-ti2/iptgram/internal/app/system/mvc"
	"github.com/ipt-ti2/iptgram/internal/app/system/ratelimit"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup and
// the seed (Startup) have completed. The pipeline stages wrap the router in
// a fixed order, outermost first:
//
//  1. request metrics
//  2. panic recovery (developer exception page in dev)
//  3. CORS
//  4. authentication (session user loaded into the context)
//  5. static files from the web root
//  6. routing: /api/account, /health, /metrics, then the convention router
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	policy, err := appCfg.cookiePolicy()
	if err != nil {
		return nil, err
	}

	sessionMgr, err := auth.NewSessionManager(appCfg.SessionKey, policy, logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return nil, err
	}

	// Feature packages register their template sets in init; compile them
	// once here.
	eng := templates.New(coreCfg.Env == "dev")
	if err := eng.Boot(logger); err != nil {
		logger.Error("template engine boot failed", zap.Error(err))
		return nil, err
	}
	templates.UseEngine(eng, logger)

	users := newUserManager(appCfg, deps, logger)

	// LoadSessionUser re-reads the user on each request so a password change
	// (new security stamp) signs out other cookies immediately.
	sessionMgr.SetUserFetcher(identity.Fetcher{Users: users})
	signIn := identity.NewSignInManager(users, sessionMgr, logger)

	limiter := ratelimit.NewLoginLimiterWithConfig(
		appCfg.LoginIPLimit, appCfg.LoginIPWindow,
		appCfg.LoginUserLimit, appCfg.LoginUserWindow,
	)
	// Sweeps idle buckets until Shutdown.
	workers.Go(limiter.Run)

	errHandler := errorsfeature.NewHandler(coreCfg.Env == "dev", policy, logger)
	site := appCfg.site(policy)

	// Convention routes: {controller=Home}/{action=Index}/{id?}
	conv := mvc.NewRouter(mvc.MustParseTemplate(mvc.DefaultTemplate), logger)
	homefeature.Register(conv, homefeature.NewHandler(site, appCfg.Options.WelcomeHTML, logger))
	profilefeature.Register(conv, profilefeature.NewHandler(signIn, site, logger), sessionMgr)
	conv.NotFound(http.HandlerFunc(errHandler.NotFound))

	r := chi.NewRouter()

	// Account API
	accountHandler := accountfeature.NewHandler(signIn, limiter, deps.Metrics, logger)
	r.Mount("/api/account", accountfeature.Routes(accountHandler, sessionMgr))
	mountCustomAuthPaths(r, policy, accountHandler)

	// Health check endpoint for load balancers and orchestrators
	healthHandler := healthfeature.NewHandler(deps, string(deps.Backend), logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	if deps.Metrics != nil {
		r.Handle("/metrics", deps.Metrics.Handler())
	}

	// Everything else goes through the convention router.
	r.Handle("/*", conv)
	r.NotFound(errHandler.NotFound)

	var h http.Handler = r
	h = middleware.StaticFiles(appCfg.WebRoot)(h)
	h = sessionMgr.LoadSessionUser(h)
	h = middleware.CORS(appCfg.corsOptions())(h)
	h = errHandler.Recover(h)
	if deps.Metrics != nil {
		h = deps.Metrics.Middleware(h)
	}

	logger.Info("handler built",
		zap.String("backend", string(deps.Backend)),
		zap.String("login_path", policy.LoginPath),
		zap.String("web_root", appCfg.WebRoot),
		zap.Strings("routes", conv.Routes()),
	)
	return h, nil
}

// mountCustomAuthPaths serves login and logout at the configured paths when
// they are not the defaults already under /api/account.
func mountCustomAuthPaths(r chi.Router, policy auth.CookiePolicy, h *accountfeature.Handler) {
	def := auth.DefaultCookiePolicy()
	if policy.LoginPath != def.LoginPath {
		r.Get(policy.LoginPath, h.ServeLoginStatus)
		r.Post(policy.LoginPath, h.HandleLogin)
	}
	if policy.LogoutPath != def.LogoutPath {
		r.Get(policy.LogoutPath, h.HandleLogout)
		r.Post(policy.LogoutPath, h.HandleLogout)
	}
}
