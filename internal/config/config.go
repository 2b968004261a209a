package config

import (
	"crypto/sha256"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gobwas/glob"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	watchErrors "github.com/bashhack/gitwatcher/internal/errors"
	"github.com/bashhack/gitwatcher/internal/logger"
)

const (
	// DefaultPattern matches the files committed when no pattern is configured.
	DefaultPattern = "*.md"

	// DefaultQuietInterval is how long the event stream must be idle before a
	// debounced commit attempt fires.
	DefaultQuietInterval = 2 * time.Second

	// DefaultHealthCheckInterval is the period of the event supervisor's
	// liveness, staleness and backstop checks.
	DefaultHealthCheckInterval = 30 * time.Second

	// DefaultStaleAfter is the age after which a pending event forces a commit.
	DefaultStaleAfter = 60 * time.Second

	// DefaultPollInterval is the tick of the polling strategy.
	DefaultPollInterval = 10 * time.Second

	// DefaultMaxRestarts bounds consecutive event source restarts.
	DefaultMaxRestarts = 10

	DefaultGitTimeout    = 30 * time.Second
	DefaultPushTimeout   = 120 * time.Second
	DefaultNotifyTimeout = 15 * time.Second

	// DefaultChunkSize is the largest notification body sent in one message.
	DefaultChunkSize = 4000

	// MinChunkSize leaves room for the "Diff chunk i/N" header.
	MinChunkSize = 64

	DefaultAPIBaseURL    = "https://api.telegram.org"
	DefaultCommitPrefix  = "Auto-commit"
	DefaultIdentityName  = "Git Watcher"
	DefaultIdentityEmail = "gitwatcher@local"
	DefaultLogLevel      = "info"

	// configDirName is the per-user directory holding config.yaml or config.json.
	configDirName = ".git_watcher"
)

// Config holds all gitwatcher settings.
// Values are layered: defaults, then the config file, then the environment,
// then command-line flags. Finalize validates the result.
type Config struct {
	// Watch target

	// WatchedDir is the root of the git working tree to watch.
	// Defaults to the user's home directory.
	WatchedDir string `yaml:"watched_dir"`

	// Patterns are filename globs matched against root-level paths.
	Patterns []string `yaml:"patterns"`

	// Notification

	BotToken   string `yaml:"bot_token"`
	ChatID     string `yaml:"chat_id"`
	APIBaseURL string `yaml:"api_base_url"`

	// NoNotify disables notifications and the credential requirement.
	NoNotify bool `yaml:"no_notify"`

	// Strategy and timing

	// UsePolling selects the polling strategy instead of filesystem events.
	UsePolling bool `yaml:"use_polling"`

	QuietInterval       time.Duration `yaml:"quiet_interval"`
	HealthCheckInterval time.Duration `yaml:"health_check_interval"`
	StaleAfter          time.Duration `yaml:"stale_after"`
	PollInterval        time.Duration `yaml:"poll_interval"`
	MaxRestarts         int           `yaml:"max_restarts"`

	GitTimeout    time.Duration `yaml:"git_timeout"`
	PushTimeout   time.Duration `yaml:"push_timeout"`
	NotifyTimeout time.Duration `yaml:"notify_timeout"`

	ChunkSize int `yaml:"chunk_size"`

	// Commits

	CommitPrefix  string `yaml:"commit_prefix"`
	IdentityName  string `yaml:"identity_name"`
	IdentityEmail string `yaml:"identity_email"`

	// Output

	LogLevel string `yaml:"log_level"`
	LogFile  string `yaml:"log_file"`
	Verbose  bool   `yaml:"verbose"`

	// ConfigFile is the file that was loaded, if any.
	ConfigFile string `yaml:"-"`

	// VersionInfo contains version, commit, and build date information.
	VersionInfo VersionInfo `yaml:"-"`

	// flags receives command-line values before they are layered on top.
	flags  *Config
	invert func(*pflag.Flag) bool
}

// VersionInfo contains build-time version metadata.
type VersionInfo struct {
	Version string
	Commit  string
	Date    string
}

// New creates a new Config with default values
func New() *Config {
	return &Config{
		Patterns:            []string{DefaultPattern},
		APIBaseURL:          DefaultAPIBaseURL,
		UsePolling:          true,
		QuietInterval:       DefaultQuietInterval,
		HealthCheckInterval: DefaultHealthCheckInterval,
		StaleAfter:          DefaultStaleAfter,
		PollInterval:        DefaultPollInterval,
		MaxRestarts:         DefaultMaxRestarts,
		GitTimeout:          DefaultGitTimeout,
		PushTimeout:         DefaultPushTimeout,
		NotifyTimeout:       DefaultNotifyTimeout,
		ChunkSize:           DefaultChunkSize,
		CommitPrefix:        DefaultCommitPrefix,
		IdentityName:        DefaultIdentityName,
		IdentityEmail:       DefaultIdentityEmail,
		LogLevel:            DefaultLogLevel,
		Verbose:             true,
		VersionInfo: VersionInfo{
			Version: "dev",
			Commit:  "unknown",
			Date:    "unknown",
		},
	}
}

// SetupFlags registers command-line flags. Parsed values are held aside and
// only override file and environment values for flags the user actually set.
func (c *Config) SetupFlags(fs *pflag.FlagSet) {
	f := New()
	c.flags = f

	var quiet, events bool

	fs.StringVar(&f.ConfigFile, "config", "", "Path to a YAML or JSON config file (default: ~/.git_watcher/config.yaml)")
	fs.StringVarP(&f.WatchedDir, "dir", "d", f.WatchedDir, "Git working tree to watch (default: home directory)")
	fs.StringSliceVarP(&f.Patterns, "pattern", "p", f.Patterns, "Root-level filename pattern to commit (repeatable)")
	fs.StringVar(&f.BotToken, "bot-token", "", "Telegram bot token")
	fs.StringVar(&f.ChatID, "chat-id", "", "Telegram chat ID")
	fs.StringVar(&f.APIBaseURL, "api-url", f.APIBaseURL, "Base URL of the Telegram Bot API")
	fs.BoolVar(&f.NoNotify, "no-notify", f.NoNotify, "Do not send diff notifications")
	fs.BoolVar(&f.UsePolling, "poll", f.UsePolling, "Use the polling strategy")
	fs.BoolVar(&events, "events", false, "Use filesystem events instead of polling")
	fs.DurationVar(&f.QuietInterval, "quiet-interval", f.QuietInterval, "Idle time after the last change before committing")
	fs.DurationVar(&f.HealthCheckInterval, "health-interval", f.HealthCheckInterval, "Interval between event watcher health checks")
	fs.DurationVar(&f.StaleAfter, "stale-after", f.StaleAfter, "Force a commit when a change has been pending this long")
	fs.DurationVar(&f.PollInterval, "poll-interval", f.PollInterval, "Interval between polls")
	fs.IntVar(&f.MaxRestarts, "max-restarts", f.MaxRestarts, "Consecutive event watcher restarts before giving up")
	fs.DurationVar(&f.GitTimeout, "git-timeout", f.GitTimeout, "Timeout for local git commands")
	fs.DurationVar(&f.PushTimeout, "push-timeout", f.PushTimeout, "Timeout for git push")
	fs.DurationVar(&f.NotifyTimeout, "notify-timeout", f.NotifyTimeout, "Timeout for each notification request")
	fs.IntVar(&f.ChunkSize, "chunk-size", f.ChunkSize, "Maximum characters per notification message")
	fs.StringVar(&f.CommitPrefix, "prefix", f.CommitPrefix, "Commit message prefix")
	fs.StringVar(&f.LogLevel, "log-level", f.LogLevel, "Log level: debug, info, warn, error")
	fs.StringVar(&f.LogFile, "log-file", "", "Path to log file (default: ~/.local/share/gitwatcher/logs/gitwatcher-{hash}.log)")
	fs.BoolVarP(&quiet, "quiet", "q", false, "Hide informational messages")

	// Inverted flags resolve against the parsed bool when they are applied.
	c.invert = func(fl *pflag.Flag) bool {
		switch fl.Name {
		case "events":
			c.UsePolling = !events
		case "quiet":
			c.Verbose = !quiet
		default:
			return false
		}
		return true
	}
}

// Load layers the config file, the environment and any flags that were set
// on top of the current values. fs may be nil.
func (c *Config) Load(fs *pflag.FlagSet) error {
	path, explicit := c.configPath(fs)
	if path != "" {
		if err := c.LoadFile(path, explicit); err != nil {
			return err
		}
	}

	c.LoadFromEnvironment()

	if fs != nil && c.flags != nil {
		fs.Visit(c.applyFlag)
	}
	return nil
}

func (c *Config) configPath(fs *pflag.FlagSet) (string, bool) {
	if fs != nil && fs.Changed("config") && c.flags != nil {
		return c.flags.ConfigFile, true
	}
	if p, ok := os.LookupEnv("GIT_WATCHER_CONFIG"); ok && p != "" {
		return p, true
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", false
	}
	for _, name := range []string{"config.yaml", "config.yml", "config.json"} {
		p := filepath.Join(home, configDirName, name)
		if _, err := os.Stat(p); err == nil {
			return p, false
		}
	}
	return "", false
}

// LoadFile reads a YAML or JSON config file. A missing file is only an error
// when it was explicitly requested.
func (c *Config) LoadFile(path string, explicit bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return nil
		}
		return invalid("config", path, watchErrors.Wrap(err, "cannot read config file"))
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return invalid("config", path, watchErrors.Wrap(err, "cannot parse config file"))
	}
	c.ConfigFile = path
	return nil
}

// LoadFromEnvironment updates config from environment variables
func (c *Config) LoadFromEnvironment() {
	c.WatchedDir = getEnvString("GIT_WATCHER_WATCHED_DIR", c.WatchedDir)
	c.BotToken = getEnvString("GIT_WATCHER_BOT_TOKEN", c.BotToken)
	c.ChatID = getEnvString("GIT_WATCHER_CHAT_ID", c.ChatID)
	c.APIBaseURL = getEnvString("GIT_WATCHER_API_URL", c.APIBaseURL)
	c.NoNotify = getEnvBool("GIT_WATCHER_NO_NOTIFY", c.NoNotify)
	c.Patterns = getEnvList("GIT_WATCHER_PATTERNS", c.Patterns)
	c.UsePolling = getEnvBool("USE_POLLING", c.UsePolling)
	c.QuietInterval = getEnvDuration("GIT_WATCHER_QUIET_INTERVAL", c.QuietInterval)
	c.HealthCheckInterval = getEnvDuration("GIT_WATCHER_HEALTH_INTERVAL", c.HealthCheckInterval)
	c.StaleAfter = getEnvDuration("GIT_WATCHER_STALE_AFTER", c.StaleAfter)
	c.PollInterval = getEnvDuration("GIT_WATCHER_POLL_INTERVAL", c.PollInterval)
	c.MaxRestarts = getEnvInt("GIT_WATCHER_MAX_RESTARTS", c.MaxRestarts)
	c.CommitPrefix = getEnvString("GIT_WATCHER_COMMIT_PREFIX", c.CommitPrefix)
	c.LogLevel = getEnvString("GIT_WATCHER_LOG_LEVEL", c.LogLevel)
	c.LogFile = getEnvString("GIT_WATCHER_LOG_FILE", c.LogFile)
	c.Verbose = getEnvBool("VERBOSE", c.Verbose)
}

// applyFlag copies one explicitly set flag from the parsed values.
func (c *Config) applyFlag(fl *pflag.Flag) {
	if c.invert != nil && c.invert(fl) {
		return
	}

	f := c.flags
	switch fl.Name {
	case "dir":
		c.WatchedDir = f.WatchedDir
	case "pattern":
		c.Patterns = f.Patterns
	case "bot-token":
		c.BotToken = f.BotToken
	case "chat-id":
		c.ChatID = f.ChatID
	case "api-url":
		c.APIBaseURL = f.APIBaseURL
	case "no-notify":
		c.NoNotify = f.NoNotify
	case "poll":
		c.UsePolling = f.UsePolling
	case "quiet-interval":
		c.QuietInterval = f.QuietInterval
	case "health-interval":
		c.HealthCheckInterval = f.HealthCheckInterval
	case "stale-after":
		c.StaleAfter = f.StaleAfter
	case "poll-interval":
		c.PollInterval = f.PollInterval
	case "max-restarts":
		c.MaxRestarts = f.MaxRestarts
	case "git-timeout":
		c.GitTimeout = f.GitTimeout
	case "push-timeout":
		c.PushTimeout = f.PushTimeout
	case "notify-timeout":
		c.NotifyTimeout = f.NotifyTimeout
	case "chunk-size":
		c.ChunkSize = f.ChunkSize
	case "prefix":
		c.CommitPrefix = f.CommitPrefix
	case "log-level":
		c.LogLevel = f.LogLevel
	case "log-file":
		c.LogFile = f.LogFile
	}
}

// Finalize validates and finalizes the configuration
func (c *Config) Finalize() error {
	if err := c.resolveWatchedDir(); err != nil {
		return err
	}

	durations := []struct {
		name  string
		value time.Duration
	}{
		{"quiet_interval", c.QuietInterval},
		{"health_check_interval", c.HealthCheckInterval},
		{"stale_after", c.StaleAfter},
		{"poll_interval", c.PollInterval},
		{"git_timeout", c.GitTimeout},
		{"push_timeout", c.PushTimeout},
		{"notify_timeout", c.NotifyTimeout},
	}
	for _, d := range durations {
		if d.value <= 0 {
			return invalid(d.name, d.value, fmt.Errorf("must be greater than 0"))
		}
	}

	if c.MaxRestarts < 0 {
		return invalid("max_restarts", c.MaxRestarts, fmt.Errorf("cannot be negative"))
	}
	if c.ChunkSize < MinChunkSize {
		return invalid("chunk_size", c.ChunkSize, fmt.Errorf("must be at least %d", MinChunkSize))
	}

	if err := c.validatePatterns(); err != nil {
		return err
	}

	if strings.TrimSpace(c.CommitPrefix) == "" {
		return invalid("commit_prefix", nil, fmt.Errorf("must not be empty"))
	}
	if strings.TrimSpace(c.IdentityName) == "" || strings.TrimSpace(c.IdentityEmail) == "" {
		return invalid("identity", nil, fmt.Errorf("fallback name and email must not be empty"))
	}

	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		return invalid("log_level", c.LogLevel, err)
	}

	if !c.NoNotify {
		if c.BotToken == "" {
			return invalid("bot_token", nil, watchErrors.ErrMissingCredentials)
		}
		if c.ChatID == "" {
			return invalid("chat_id", nil, watchErrors.ErrMissingCredentials)
		}
		u, err := url.Parse(c.APIBaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return invalid("api_base_url", c.APIBaseURL, fmt.Errorf("must be an absolute URL"))
		}
		c.APIBaseURL = strings.TrimRight(c.APIBaseURL, "/")
	}

	if c.LogFile == "" {
		c.LogFile = defaultLogFile(c.WatchedDir)
	}
	if err := os.MkdirAll(filepath.Dir(c.LogFile), 0o700); err != nil {
		return invalid("log_file", c.LogFile, watchErrors.Wrap(err, "cannot create log directory"))
	}

	return nil
}

func (c *Config) resolveWatchedDir() error {
	if c.WatchedDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return invalid("watched_dir", "", watchErrors.Wrap(err, "failed to determine home directory"))
		}
		c.WatchedDir = home
	}

	if strings.HasPrefix(c.WatchedDir, "~"+string(filepath.Separator)) {
		if home, err := os.UserHomeDir(); err == nil {
			c.WatchedDir = filepath.Join(home, c.WatchedDir[2:])
		}
	}

	abs, err := filepath.Abs(c.WatchedDir)
	if err != nil {
		return invalid("watched_dir", c.WatchedDir, watchErrors.Wrap(err, "failed to resolve absolute path"))
	}
	c.WatchedDir = abs

	info, err := os.Stat(abs)
	if err != nil || !info.IsDir() {
		return invalid("watched_dir", abs, watchErrors.ErrWatchPathMissing)
	}
	return nil
}

func (c *Config) validatePatterns() error {
	cleaned := make([]string, 0, len(c.Patterns))
	for _, p := range c.Patterns {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if strings.ContainsRune(p, '/') {
			return invalid("patterns", p, fmt.Errorf("patterns match root-level names and cannot contain '/'"))
		}
		if _, err := glob.Compile(p, '/'); err != nil {
			return invalid("patterns", p, err)
		}
		cleaned = append(cleaned, p)
	}
	if len(cleaned) == 0 {
		return invalid("patterns", nil, fmt.Errorf("at least one pattern is required"))
	}
	c.Patterns = cleaned
	return nil
}

// invalid builds a ConfigError that matches ErrInvalidConfiguration and cause.
func invalid(param string, value interface{}, cause error) error {
	return watchErrors.NewConfigError(param, value,
		watchErrors.Errorf("%w: %w", watchErrors.ErrInvalidConfiguration, cause))
}

// defaultLogFile follows the XDG base directory layout.
func defaultLogFile(watchedDir string) string {
	logDir := os.Getenv("XDG_DATA_HOME")
	if logDir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			logDir = filepath.Join(home, ".local", "share")
		} else {
			logDir = os.TempDir()
		}
	}

	hash := sha256.Sum256([]byte(watchedDir))
	return filepath.Join(logDir, "gitwatcher", "logs", fmt.Sprintf("gitwatcher-%x.log", hash[:8]))
}

// getEnvString returns an environment variable string or a default value
func getEnvString(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvInt returns an environment variable as int or a default value
func getEnvInt(key string, defaultValue int) int {
	if valueStr, exists := os.LookupEnv(key); exists {
		if value, err := strconv.Atoi(valueStr); err == nil {
			return value
		}
	}
	return defaultValue
}

// getEnvDuration accepts Go duration strings or a bare number of seconds.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	if d, err := time.ParseDuration(valueStr); err == nil {
		return d
	}
	if secs, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return time.Duration(secs * float64(time.Second))
	}
	return defaultValue
}

// getEnvBool returns an environment variable as bool or a default value
func getEnvBool(key string, defaultValue bool) bool {
	if valueStr, exists := os.LookupEnv(key); exists {
		switch strings.ToLower(strings.TrimSpace(valueStr)) {
		case "true", "1", "yes":
			return true
		case "false", "0", "no":
			return false
		}
	}
	return defaultValue
}

// getEnvList splits a comma separated variable, ignoring empty items.
func getEnvList(key string, defaultValue []string) []string {
	valueStr, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(valueStr, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
