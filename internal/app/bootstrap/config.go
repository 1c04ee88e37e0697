// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"strings"
	"time"

	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/ipt-ti2/iptgram/internal/app/system/auth"
	"github.com/ipt-ti2/iptgram/internal/app/system/dbbackend"
	"github.com/ipt-ti2/iptgram/internal/app/system/identity"
	"github.com/ipt-ti2/iptgram/internal/app/system/middleware"
	"github.com/ipt-ti2/iptgram/internal/app/system/timeouts"
	"github.com/ipt-ti2/iptgram/internal/app/system/viewdata"
	"go.uber.org/zap"
)

// appConfigKeys defines the configuration keys for IPTGram.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: db_backend, default_connection, etc.
//   - Environment variables: IPTGRAM_DB_BACKEND, IPTGRAM_DEFAULT_CONNECTION, etc.
//   - Command-line flags: --db_backend, --default_connection, etc.
var appConfigKeys = []config.AppKey{
	{Name: "db_backend", Default: "sqlite", Desc: "Persistence backend: sqlserver, mysql, sqlite or mongo"},
	{Name: "default_connection", Default: "file:iptgram.db?_pragma=foreign_keys(1)", Desc: "Connection string (DSN for SQL backends, URI for mongo)"},
	{Name: "mongo_database", Default: "iptgram", Desc: "MongoDB database name (mongo backend only)"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size"},
	{Name: "mongo_min_pool_size", Default: 0, Desc: "MongoDB min connection pool size"},

	// Authentication cookie
	{Name: "session_key", Default: "dev-only-change-me-please-0123456789ABCDEF", Desc: "Session signing key (must be strong in production)"},
	{Name: "session_name", Default: "iptgram-session", Desc: "Authentication cookie name"},
	{Name: "session_domain", Default: "", Desc: "Authentication cookie domain (blank means current host)"},
	{Name: "session_max_age", Default: "336h", Desc: "Lifetime of a persistent (remember me) cookie"},
	{Name: "login_path", Default: "/api/account/login", Desc: "Where unauthenticated page requests are redirected"},
	{Name: "logout_path", Default: "/api/account/logout", Desc: "Sign-out endpoint"},
	{Name: "api_prefix", Default: "/api", Desc: "Paths under this prefix get 401 instead of a login redirect"},
	{Name: "cookie_http_only", Default: true, Desc: "Hide the authentication cookie from scripts"},
	{Name: "cookie_secure_policy", Default: "none", Desc: "Secure flag: none, always or same_as_request"},
	{Name: "cookie_same_site", Default: "none", Desc: "SameSite mode: none, lax or strict"},

	// CORS. WAFFLE core owns the plain cors_* flags, so these carry the app
	// prefix.
	{Name: "iptgram_cors_allowed_origins", Default: "*", Desc: "Comma-separated origins allowed by CORS ('*' for any)"},
	{Name: "iptgram_cors_max_age", Default: 300, Desc: "Seconds a CORS preflight may be cached"},

	// Password policy
	{Name: "password_required_length", Default: 6, Desc: "Minimum password length"},
	{Name: "password_required_unique_chars", Default: 1, Desc: "Minimum number of distinct characters"},
	{Name: "password_require_digit", Default: false, Desc: "Require a digit"},
	{Name: "password_require_lowercase", Default: false, Desc: "Require a lowercase letter"},
	{Name: "password_require_uppercase", Default: false, Desc: "Require an uppercase letter"},
	{Name: "password_require_non_alphanumeric", Default: false, Desc: "Require a non-alphanumeric character"},

	// Login throttling
	{Name: "login_ip_limit", Default: 10, Desc: "Login attempts allowed per client IP per window"},
	{Name: "login_ip_window", Default: "1m", Desc: "Window for login_ip_limit"},
	{Name: "login_user_limit", Default: 5, Desc: "Login attempts allowed per user name per window"},
	{Name: "login_user_window", Default: "5m", Desc: "Window for login_user_limit"},

	// Static files
	{Name: "web_root", Default: "wwwroot", Desc: "Directory served as static files"},

	// Store timeouts
	{Name: "timeout_ping", Default: "2s", Desc: "Timeout for health pings"},
	{Name: "timeout_short", Default: "5s", Desc: "Timeout for single-row reads"},
	{Name: "timeout_medium", Default: "10s", Desc: "Timeout for writes"},
	{Name: "timeout_long", Default: "30s", Desc: "Timeout for multi-step operations"},

	// IPTGram section
	{Name: "iptgram_site_name", Default: "IPTGram", Desc: "Site name shown in page titles"},
	{Name: "iptgram_welcome_html", Default: "<p>Partilha as tuas fotografias com a comunidade do IPT.</p>", Desc: "Welcome text on the home page (HTML is sanitised)"},
	{Name: "iptgram_images_path", Default: "/images", Desc: "URL prefix for user images"},
	{Name: "iptgram_seed_admin_user_name", Default: "admin", Desc: "User name of the seeded administrator"},
	{Name: "iptgram_seed_admin_email", Default: "admin@iptgram.local", Desc: "Email of the seeded administrator"},
	{Name: "iptgram_seed_admin_password", Default: "", Desc: "Password of the seeded administrator (blank skips the admin)"},
	{Name: "iptgram_seed_demo_users", Default: false, Desc: "Seed a few demo accounts"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig handles:
//   - Loading from .env files
//   - Loading from config.yaml/json/toml files
//   - Reading environment variables (WAFFLE_* for core, IPTGRAM_* for app)
//   - Parsing command-line flags
//   - Merging with precedence: flags > env > files > defaults
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "IPTGRAM", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		DBBackend:         appValues.String("db_backend"),
		DefaultConnection: appValues.String("default_connection"),
		MongoDatabase:     appValues.String("mongo_database"),
		MongoMaxPoolSize:  uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize:  uint64(appValues.Int("mongo_min_pool_size")),

		SessionKey:         appValues.String("session_key"),
		SessionName:        appValues.String("session_name"),
		SessionDomain:      appValues.String("session_domain"),
		SessionMaxAge:      appValues.Duration("session_max_age", 14*24*time.Hour),
		LoginPath:          appValues.String("login_path"),
		LogoutPath:         appValues.String("logout_path"),
		APIPrefix:          appValues.String("api_prefix"),
		CookieHTTPOnly:     appValues.Bool("cookie_http_only"),
		CookieSecurePolicy: appValues.String("cookie_secure_policy"),
		CookieSameSite:     appValues.String("cookie_same_site"),

		CORSAllowedOrigins: splitList(appValues.String("iptgram_cors_allowed_origins")),
		CORSMaxAge:         appValues.Int("iptgram_cors_max_age"),

		PasswordRequiredLength:      appValues.Int("password_required_length"),
		PasswordRequiredUniqueChars: appValues.Int("password_required_unique_chars"),
		PasswordRequireDigit:        appValues.Bool("password_require_digit"),
		PasswordRequireLowercase:    appValues.Bool("password_require_lowercase"),
		PasswordRequireUppercase:    appValues.Bool("password_require_uppercase"),
		PasswordRequireNonAlnum:     appValues.Bool("password_require_non_alphanumeric"),

		LoginIPLimit:    appValues.Int("login_ip_limit"),
		LoginIPWindow:   appValues.Duration("login_ip_window", time.Minute),
		LoginUserLimit:  appValues.Int("login_user_limit"),
		LoginUserWindow: appValues.Duration("login_user_window", 5*time.Minute),

		WebRoot: appValues.String("web_root"),

		TimeoutPing:   appValues.Duration("timeout_ping", timeouts.DefaultPing),
		TimeoutShort:  appValues.Duration("timeout_short", timeouts.DefaultShort),
		TimeoutMedium: appValues.Duration("timeout_medium", timeouts.DefaultMedium),
		TimeoutLong:   appValues.Duration("timeout_long", timeouts.DefaultLong),

		Options: AppOptions{
			SiteName:          appValues.String("iptgram_site_name"),
			WelcomeHTML:       appValues.String("iptgram_welcome_html"),
			ImagesPath:        appValues.String("iptgram_images_path"),
			SeedAdminUserName: appValues.String("iptgram_seed_admin_user_name"),
			SeedAdminEmail:    appValues.String("iptgram_seed_admin_email"),
			SeedAdminPassword: appValues.String("iptgram_seed_admin_password"),
			SeedDemoUsers:     appValues.Bool("iptgram_seed_demo_users"),
		},
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig performs app-specific config validation.
//
// Return nil to accept the loaded config, or an error to abort startup.
// An unknown backend or cookie setting aborts here, before any connection is
// attempted. In prod the permissive cookie and CORS posture is allowed but
// logged, one warning per relaxed setting.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	kind, err := dbbackend.ParseKind(appCfg.DBBackend)
	if err != nil {
		logger.Error("invalid db_backend", zap.Error(err))
		return err
	}
	if strings.TrimSpace(appCfg.DefaultConnection) == "" {
		return fmt.Errorf("default_connection is required for backend %s", kind)
	}
	if kind == dbbackend.Mongo {
		if err := wafflemongo.ValidateURI(appCfg.DefaultConnection); err != nil {
			logger.Error("invalid MongoDB URI", zap.Error(err))
			return fmt.Errorf("invalid MongoDB URI: %w", err)
		}
		if appCfg.MongoDatabase == "" {
			return fmt.Errorf("mongo_database is required for backend %s", kind)
		}
	}

	policy, err := appCfg.cookiePolicy()
	if err != nil {
		return err
	}
	if !strings.HasPrefix(policy.LoginPath, "/") || !strings.HasPrefix(policy.LogoutPath, "/") {
		return fmt.Errorf("login_path and logout_path must be absolute paths")
	}
	if appCfg.PasswordRequiredLength < 0 || appCfg.PasswordRequiredUniqueChars < 0 {
		return fmt.Errorf("password length settings must not be negative")
	}

	if coreCfg.Env == "prod" {
		for _, w := range policy.Permissive() {
			logger.Warn("permissive authentication setting in prod", zap.String("setting", w))
		}
		if cors := appCfg.corsOptions(); cors.AllowsAnyOrigin() && cors.AllowCredentials {
			logger.Warn("permissive authentication setting in prod",
				zap.String("setting", "CORS admits any origin with credentials"))
		}
	}
	return nil
}

// backend returns the validated backend kind.
func (c AppConfig) backend() (dbbackend.Kind, error) {
	return dbbackend.ParseKind(c.DBBackend)
}

// cookiePolicy assembles the authentication cookie policy.
func (c AppConfig) cookiePolicy() (auth.CookiePolicy, error) {
	secure, err := auth.ParseSecurePolicy(c.CookieSecurePolicy)
	if err != nil {
		return auth.CookiePolicy{}, err
	}
	sameSite, err := auth.ParseSameSite(c.CookieSameSite)
	if err != nil {
		return auth.CookiePolicy{}, err
	}

	p := auth.DefaultCookiePolicy()
	p.Domain = c.SessionDomain
	p.HTTPOnly = c.CookieHTTPOnly
	p.SecurePolicy = secure
	p.SameSite = sameSite
	if c.SessionName != "" {
		p.Name = c.SessionName
	}
	if c.SessionMaxAge > 0 {
		p.MaxAge = c.SessionMaxAge
	}
	if c.LoginPath != "" {
		p.LoginPath = c.LoginPath
	}
	if c.LogoutPath != "" {
		p.LogoutPath = c.LogoutPath
	}
	if c.APIPrefix != "" {
		p.APIPrefix = c.APIPrefix
	}
	return p, nil
}

func (c AppConfig) passwordOptions() identity.PasswordOptions {
	return identity.PasswordOptions{
		RequiredLength:         c.PasswordRequiredLength,
		RequiredUniqueChars:    c.PasswordRequiredUniqueChars,
		RequireDigit:           c.PasswordRequireDigit,
		RequireLowercase:       c.PasswordRequireLowercase,
		RequireUppercase:       c.PasswordRequireUppercase,
		RequireNonAlphanumeric: c.PasswordRequireNonAlnum,
	}
}

func (c AppConfig) corsOptions() middleware.CORSOptions {
	o := middleware.DefaultCORSOptions()
	o.AllowedOrigins = c.CORSAllowedOrigins
	if c.CORSMaxAge > 0 {
		o.MaxAge = c.CORSMaxAge
	}
	return o
}

func (c AppConfig) timeoutConfig() timeouts.Config {
	return timeouts.Config{
		Ping:   c.TimeoutPing,
		Short:  c.TimeoutShort,
		Medium: c.TimeoutMedium,
		Long:   c.TimeoutLong,
	}
}

func (c AppConfig) site(policy auth.CookiePolicy) viewdata.Site {
	return viewdata.Site{
		Name:       c.Options.SiteName,
		ImagesPath: c.Options.ImagesPath,
		LoginPath:  policy.LoginPath,
		LogoutPath: policy.LogoutPath,
	}
}

// splitList splits a comma-separated config value, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
