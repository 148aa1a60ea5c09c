package tribune

import (
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/nasermirzaei89/env"
	"github.com/nasermirzaei89/tribune/db/sqlstore"
	"github.com/nasermirzaei89/tribune/discuss"
	"github.com/nasermirzaei89/tribune/editwindow"
	"github.com/nasermirzaei89/tribune/ratings"
)

const defaultDSN = "file::memory:?cache=shared"

type Config struct {
	DBDialect  sqlstore.Dialect
	DBDSN      string
	EditWindow editwindow.Config
	Ratings    ratings.Config
	Discuss    discuss.Config
}

func DefaultConfig() Config {
	return Config{
		DBDialect:  sqlstore.DialectSQLite,
		DBDSN:      defaultDSN,
		EditWindow: editwindow.DefaultConfig(),
		Ratings:    ratings.DefaultConfig(),
		Discuss:    discuss.DefaultConfig(),
	}
}

type InvalidConfigError struct {
	Key   string
	Value string
	Err   error
}

func (err InvalidConfigError) Error() string {
	if err.Err != nil {
		return fmt.Sprintf("invalid value %q for %s: %s", err.Value, err.Key, err.Err)
	}

	return fmt.Sprintf("invalid value %q for %s", err.Value, err.Key)
}

func (err InvalidConfigError) Unwrap() error {
	return err.Err
}

// LoadConfig reads the configuration from the environment on top of DefaultConfig.
func LoadConfig() (Config, error) {
	cfg := DefaultConfig()

	cfg.DBDialect = sqlstore.Dialect(env.GetString("DB_DIALECT", string(cfg.DBDialect)))
	if !cfg.DBDialect.IsValid() {
		return Config{}, &InvalidConfigError{Key: "DB_DIALECT", Value: string(cfg.DBDialect)}
	}

	cfg.DBDSN = env.GetString("DB_DSN", cfg.DBDSN)

	postWindow, err := getMinutes("POSTS_EDITABLE_WINDOW_MINUTES", cfg.EditWindow.PostWindow)
	if err != nil {
		return Config{}, err
	}

	commentWindow, err := getMinutes("COMMENTS_EDITABLE_WINDOW_MINUTES", cfg.EditWindow.CommentWindow)
	if err != nil {
		return Config{}, err
	}

	cfg.EditWindow = editwindow.Config{PostWindow: postWindow, CommentWindow: commentWindow}

	multiplierStr := env.GetString("COMMENT_RATING_MULTIPLIER", "")
	if multiplierStr != "" {
		multiplier, err := strconv.ParseFloat(multiplierStr, 64)
		if err != nil {
			return Config{}, &InvalidConfigError{Key: "COMMENT_RATING_MULTIPLIER", Value: multiplierStr, Err: err}
		}

		_, err = ratings.NewLedger(multiplier)
		if err != nil {
			return Config{}, &InvalidConfigError{Key: "COMMENT_RATING_MULTIPLIER", Value: multiplierStr, Err: err}
		}

		cfg.Ratings.CommentMultiplier = multiplier
	}

	cfg.Ratings.RepeatPolicy = ratings.RepeatPolicy(env.GetString("VOTE_REPEAT_POLICY", string(cfg.Ratings.RepeatPolicy)))
	if !cfg.Ratings.RepeatPolicy.IsValid() {
		return Config{}, &InvalidConfigError{Key: "VOTE_REPEAT_POLICY", Value: string(cfg.Ratings.RepeatPolicy)}
	}

	cfg.Ratings.AllowSelfVote = env.GetBool("VOTE_ALLOW_SELF", cfg.Ratings.AllowSelfVote)

	depthStr := env.GetString("COMMENTS_TREE_DEFAULT_LEVEL", "")
	if depthStr != "" {
		depth, err := strconv.Atoi(depthStr)
		if err != nil || depth < 0 {
			return Config{}, &InvalidConfigError{Key: "COMMENTS_TREE_DEFAULT_LEVEL", Value: depthStr, Err: err}
		}

		cfg.Discuss.DefaultDepth = depth
	}

	return cfg, nil
}

func getMinutes(key string, def time.Duration) (time.Duration, error) {
	value := env.GetString(key, "")
	if value == "" {
		return def, nil
	}

	minutes, err := strconv.Atoi(value)
	if err != nil || minutes < 0 {
		return 0, &InvalidConfigError{Key: key, Value: value, Err: err}
	}

	return time.Duration(minutes) * time.Minute, nil
}

func GetLogLevelFromEnv() slog.Level {
	levelStr := env.GetString("LOG_LEVEL", "info")
	switch levelStr {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		slog.Warn("unknown log level, defaulting to info", "level", levelStr)

		return slog.LevelInfo
	}
}
