package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration required by the dialer process.
// All values must come from env (or env-file loaded by the process runner).
// No business logic should depend on raw environment variables.
type Config struct {
	App    AppConfig
	DB     DBConfig
	Redis  RedisConfig
	AMI    AMIConfig
	Dialer DialerConfig
}

type AppConfig struct {
	Env  string
	Port int
}

type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string

	// SSLMode is kept explicit; production must set it.
	// Accepts: disable, require, verify-ca, verify-full
	SSLMode string
}

type RedisConfig struct {
	Host string
	Port int
}

// AMIConfig describes the Asterisk Manager Interface control port.
type AMIConfig struct {
	Host     string
	Port     int
	Username string
	Secret   string

	// ReadTimeout bounds every socket read, including the login exchange.
	ReadTimeout time.Duration
}

// DialerConfig tunes the predictive dialing loop.
type DialerConfig struct {
	// TrunkPrefix is prepended to the contact phone to form the outbound
	// channel, e.g. "SIP/trunk/".
	TrunkPrefix string

	// Context is the dialplan context calls are originated into.
	Context string

	// PacingRatio multiplies the idle agent count to size the contact
	// batch pulled each iteration. Must be >= 1.
	PacingRatio int

	// IterationSleep is the pause between scheduling iterations.
	IterationSleep time.Duration

	// PollInterval is the delay between call-monitoring status polls.
	PollInterval time.Duration

	// MaxPolls bounds monitoring; a call still active after MaxPolls
	// polls is finalized as failed.
	MaxPolls int

	// MaxIterations bounds a single campaign run.
	MaxIterations int

	// OriginateTimeout is the PBX-side answer timeout for an originate.
	OriginateTimeout time.Duration

	// CallerIDName is the display name sent with outbound caller IDs.
	CallerIDName string

	// MaxActiveCalls caps concurrent in-flight calls per campaign when
	// > 0 and Redis is available. 0 disables the cap.
	MaxActiveCalls int

	// CountryCode is the default dialing code used to normalize
	// imported phone numbers, without the leading "+".
	CountryCode string
}

func Load() (Config, error) {
	c := Config{}
	var parseErrs []error

	c.App.Env = strings.TrimSpace(os.Getenv("APP_ENV"))
	{
		n, err := mustInt("APP_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.App.Port = n
	}

	c.DB.Host = strings.TrimSpace(os.Getenv("DB_HOST"))
	{
		n, err := mustInt("DB_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.DB.Port = n
	}
	c.DB.User = strings.TrimSpace(os.Getenv("DB_USER"))
	c.DB.Password = os.Getenv("DB_PASSWORD")
	c.DB.Name = strings.TrimSpace(os.Getenv("DB_NAME"))
	c.DB.SSLMode = strings.TrimSpace(os.Getenv("DB_SSLMODE"))

	c.Redis.Host = strings.TrimSpace(os.Getenv("REDIS_HOST"))
	{
		n, err := mustInt("REDIS_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.Redis.Port = n
	}

	c.AMI.Host = strings.TrimSpace(os.Getenv("AMI_HOST"))
	{
		n, err := mustInt("AMI_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.AMI.Port = n
	}
	c.AMI.Username = strings.TrimSpace(os.Getenv("AMI_USERNAME"))
	c.AMI.Secret = os.Getenv("AMI_SECRET")
	c.AMI.ReadTimeout = mustDuration("AMI_READ_TIMEOUT")

	c.Dialer.TrunkPrefix = strings.TrimSpace(os.Getenv("DIALER_TRUNK_PREFIX"))
	c.Dialer.Context = strings.TrimSpace(os.Getenv("DIALER_CONTEXT"))
	c.Dialer.PacingRatio = optInt("DIALER_PACING_RATIO")
	c.Dialer.IterationSleep = mustDuration("DIALER_ITERATION_SLEEP")
	c.Dialer.PollInterval = mustDuration("DIALER_POLL_INTERVAL")
	c.Dialer.MaxPolls = optInt("DIALER_MAX_POLLS")
	c.Dialer.MaxIterations = optInt("DIALER_MAX_ITERATIONS")
	c.Dialer.OriginateTimeout = mustDuration("DIALER_ORIGINATE_TIMEOUT")
	c.Dialer.CallerIDName = strings.TrimSpace(os.Getenv("DIALER_CALLERID_NAME"))
	c.Dialer.MaxActiveCalls = optInt("DIALER_MAX_ACTIVE_CALLS")
	c.Dialer.CountryCode = strings.TrimSpace(os.Getenv("DIALER_COUNTRY_CODE"))

	if err := joinErrors(parseErrs); err != nil {
		return Config{}, err
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c *Config) Validate() error {
	var errs []error

	if c.App.Env == "" {
		errs = append(errs, errors.New("APP_ENV is required"))
	} else if !isValidEnv(c.App.Env) {
		errs = append(errs, fmt.Errorf("APP_ENV must be one of local, dev, staging, production, got %q", c.App.Env))
	}
	if c.App.Port <= 0 || c.App.Port > 65535 {
		errs = append(errs, fmt.Errorf("APP_PORT must be a valid port, got %d", c.App.Port))
	}

	if c.DB.Host == "" {
		errs = append(errs, errors.New("DB_HOST is required"))
	}
	if c.DB.Port <= 0 || c.DB.Port > 65535 {
		errs = append(errs, fmt.Errorf("DB_PORT must be a valid port, got %d", c.DB.Port))
	}
	if c.DB.User == "" {
		errs = append(errs, errors.New("DB_USER is required"))
	}
	if c.DB.Name == "" {
		errs = append(errs, errors.New("DB_NAME is required"))
	}
	if strings.TrimSpace(c.DB.SSLMode) == "" {
		if c.IsProduction() {
			errs = append(errs, errors.New("DB_SSLMODE is required in production"))
		} else {
			// Local-friendly default; production must be explicit.
			c.DB.SSLMode = "disable"
		}
	}
	if c.DB.SSLMode != "" && !isValidSSLMode(c.DB.SSLMode) {
		errs = append(errs, fmt.Errorf("DB_SSLMODE must be one of disable, require, verify-ca, verify-full, got %q", c.DB.SSLMode))
	}

	if c.Redis.Host == "" {
		errs = append(errs, errors.New("REDIS_HOST is required"))
	}
	if c.Redis.Port <= 0 || c.Redis.Port > 65535 {
		errs = append(errs, fmt.Errorf("REDIS_PORT must be a valid port, got %d", c.Redis.Port))
	}

	if c.AMI.Host == "" {
		errs = append(errs, errors.New("AMI_HOST is required"))
	}
	if c.AMI.Port <= 0 || c.AMI.Port > 65535 {
		errs = append(errs, fmt.Errorf("AMI_PORT must be a valid port, got %d", c.AMI.Port))
	}
	if c.AMI.Username == "" {
		errs = append(errs, errors.New("AMI_USERNAME is required"))
	}
	if c.AMI.Secret == "" {
		errs = append(errs, errors.New("AMI_SECRET is required"))
	}
	if c.AMI.ReadTimeout <= 0 {
		c.AMI.ReadTimeout = 10 * time.Second
	}

	if c.Dialer.TrunkPrefix == "" {
		c.Dialer.TrunkPrefix = "SIP/trunk/"
	}
	if c.Dialer.Context == "" {
		c.Dialer.Context = "predictive-dialer"
	}
	if c.Dialer.PacingRatio <= 0 {
		// Pull twice as many contacts as idle agents by default.
		c.Dialer.PacingRatio = 2
	}
	if c.Dialer.IterationSleep <= 0 {
		c.Dialer.IterationSleep = 5 * time.Second
	}
	if c.Dialer.PollInterval <= 0 {
		c.Dialer.PollInterval = 10 * time.Second
	}
	if c.Dialer.MaxPolls <= 0 {
		c.Dialer.MaxPolls = 30
	}
	if c.Dialer.MaxIterations <= 0 {
		c.Dialer.MaxIterations = 1000
	}
	if c.Dialer.OriginateTimeout <= 0 {
		c.Dialer.OriginateTimeout = 30 * time.Second
	}
	if c.Dialer.CallerIDName == "" {
		c.Dialer.CallerIDName = "Predictive Dialer"
	}
	if c.Dialer.MaxActiveCalls < 0 {
		errs = append(errs, fmt.Errorf("DIALER_MAX_ACTIVE_CALLS must be >= 0, got %d", c.Dialer.MaxActiveCalls))
	}
	if c.Dialer.CountryCode == "" {
		c.Dialer.CountryCode = "62"
	}

	return joinErrors(errs)
}

func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}

func (c *Config) HTTPAddr() string {
	return fmt.Sprintf(":%d", c.App.Port)
}

func (c *Config) PostgresDSN() string {
	// Avoid logging this string; it contains secrets.
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host,
		c.DB.Port,
		c.DB.User,
		c.DB.Password,
		c.DB.Name,
		c.DB.SSLMode,
	)
}

func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

func (c *Config) AMIAddr() string {
	return fmt.Sprintf("%s:%d", c.AMI.Host, c.AMI.Port)
}

func mustInt(key string) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, fmt.Errorf("%s is required", key)
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, v)
	}
	return n, nil
}

// optInt reads an optional integer env var; zero means unset and leaves
// the default to Validate().
func optInt(key string) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}

func mustDuration(key string) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0
	}
	return d
}

func appendParseErr(errs []error, n int, err error) (int, []error) {
	if err != nil {
		errs = append(errs, err)
	}
	return n, errs
}

func isValidEnv(v string) bool {
	switch v {
	case "local", "dev", "staging", "production":
		return true
	default:
		return false
	}
}

func isValidSSLMode(v string) bool {
	switch v {
	case "disable", "require", "verify-ca", "verify-full":
		return true
	default:
		return false
	}
}

func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}
	var b strings.Builder
	b.WriteString("config errors:\n")
	for _, e := range errs {
		b.WriteString("- ")
		b.WriteString(e.Error())
		b.WriteString("\n")
	}
	return errors.New(strings.TrimSpace(b.String()))
}
