package config // package config loads application configuration from environment variables

import (
	"log"     // log is used to report configuration errors and halt execution
	"os"      // os provides access to environment variables
	"strconv" // strconv converts strings to other types
)

// YandexConfig groups everything needed to talk to the Yandex OAuth
// provider: application credentials plus the three provider endpoints.
// The endpoint URLs default to the public Yandex OAuth service but can
// be overridden, which is how the OAuth flow is pointed at a local test
// server in unit tests.
type YandexConfig struct {
	ClientID     string // OAuth application client id
	ClientSecret string // OAuth application client secret
	RedirectURI  string // callback URL registered with the provider
	AuthorizeURL string // provider authorization page
	TokenURL     string // endpoint exchanging a code for an access token
	UserInfoURL  string // endpoint returning the user's profile
}

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  The types reflect how the values are used in
// the application: strings for identifiers and secrets, ints for durations
// and costs.  A single Config is built at startup and handed to every
// component at construction time; nothing reads ambient env state later.
type Config struct {
	Env            string       // application environment (e.g. "dev", "prod")
	Port           string       // HTTP port to listen on
	DBUser         string       // database username
	DBPass         string       // database password (optional)
	DBHost         string       // database host address
	DBPort         string       // database port number
	DBName         string       // database name
	JWTSecret      string       // secret used to sign JWTs
	AccessTTLMin   int          // access token time-to-live in minutes
	RefreshTTLDays int          // refresh token time-to-live in days
	BcryptCost     int          // bcrypt cost for password hashing
	StoragePath    string       // directory where uploaded audio files are written
	Yandex         YandexConfig // OAuth provider settings
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.
func Load() Config {
	return Config{
		Env:            must("APP_ENV"),                   // environment (dev/test/prod)
		Port:           must("APP_PORT"),                  // port to bind the HTTP server
		DBUser:         must("DB_USER"),                   // database user
		DBPass:         os.Getenv("DB_PASS"),              // database password (empty allowed)
		DBHost:         must("DB_HOST"),                   // database host
		DBPort:         must("DB_PORT"),                   // database port
		DBName:         must("DB_NAME"),                   // database name
		JWTSecret:      must("JWT_SECRET"),                // secret used for signing JWTs
		AccessTTLMin:   mustInt("ACCESS_TOKEN_TTL_MIN"),   // TTL for access tokens in minutes
		RefreshTTLDays: mustInt("REFRESH_TOKEN_TTL_DAYS"), // TTL for refresh tokens in days
		BcryptCost:     mustInt("BCRYPT_COST"),            // bcrypt cost factor
		StoragePath:    getenv("AUDIO_STORAGE_PATH", "audio_storage"),
		Yandex: YandexConfig{
			ClientID:     must("YANDEX_CLIENT_ID"),     // OAuth client id
			ClientSecret: must("YANDEX_CLIENT_SECRET"), // OAuth client secret
			RedirectURI:  must("YANDEX_REDIRECT_URI"),  // registered callback URL
			AuthorizeURL: getenv("YANDEX_AUTHORIZE_URL", "https://oauth.yandex.ru/authorize"),
			TokenURL:     getenv("YANDEX_TOKEN_URL", "https://oauth.yandex.ru/token"),
			UserInfoURL:  getenv("YANDEX_USERINFO_URL", "https://login.yandex.ru/info"),
		},
	}
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// mustInt is like must() but converts the retrieved string into an integer.
// If conversion fails, the application logs a fatal error and exits.
func mustInt(key string) int {
	s := must(key)
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}

// getenv returns the value of an optional environment variable or the
// provided default when the variable is unset or empty.
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
