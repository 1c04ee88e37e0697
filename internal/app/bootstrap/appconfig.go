// internal/app/bootstrap/appconfig.go
package bootstrap

import (
	"time"
)

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables (IPTGRAM_*), configuration
// files, or command-line flags (loaded in LoadConfig). WAFFLE's CoreConfig
// owns the framework-level settings: ports, TLS, log level and the env name.
//
// Values are kept as loaded; ValidateConfig checks the ones that must parse
// (backend, cookie policy) and BuildHandler converts them again with the same
// helpers, so a config that validates always builds.
type AppConfig struct {
	// Persistence
	DBBackend         string // sqlserver | mysql | sqlite | mongo
	DefaultConnection string // DSN for SQL backends, URI for mongo
	MongoDatabase     string // database name when DBBackend is mongo
	MongoMaxPoolSize  uint64
	MongoMinPoolSize  uint64

	// Authentication cookie
	SessionKey         string // secret for signing the cookie (≥32 chars in production)
	SessionName        string
	SessionDomain      string // blank means current host
	SessionMaxAge      time.Duration
	LoginPath          string
	LogoutPath         string
	APIPrefix          string
	CookieHTTPOnly     bool
	CookieSecurePolicy string // none | always | same_as_request
	CookieSameSite     string // none | lax | strict

	// CORS
	CORSAllowedOrigins []string // empty or "*" admits every origin
	CORSMaxAge         int

	// Password policy
	PasswordRequiredLength      int
	PasswordRequiredUniqueChars int
	PasswordRequireDigit        bool
	PasswordRequireLowercase    bool
	PasswordRequireUppercase    bool
	PasswordRequireNonAlnum     bool

	// Login throttling
	LoginIPLimit    int
	LoginIPWindow   time.Duration
	LoginUserLimit  int
	LoginUserWindow time.Duration

	// Static files
	WebRoot string

	// Store timeouts
	TimeoutPing   time.Duration
	TimeoutShort  time.Duration
	TimeoutMedium time.Duration
	TimeoutLong   time.Duration

	// Options is the IPTGram section (iptgram_* keys).
	Options AppOptions
}

// AppOptions is the application's own options section: what the site calls
// itself and which accounts the startup seed guarantees.
type AppOptions struct {
	SiteName    string
	WelcomeHTML string // sanitised before rendering
	ImagesPath  string

	SeedAdminUserName string
	SeedAdminEmail    string
	SeedAdminPassword string // admin is not seeded when empty
	SeedDemoUsers     bool
}
