package internal

import (
	"fmt"
	"strings"
	"time"

	env "github.com/Netflix/go-env"
	"github.com/go-playground/validator/v10"
)

type Config struct {
	Host     string `env:"HOST,default=0.0.0.0"`
	Port     int    `env:"PORT,default=3000" validate:"min=1,max=65535"`
	LogLevel string `env:"LOG_LEVEL,default=INFO" validate:"oneof=DEBUG INFO WARN ERROR debug info warn error"`

	DiscordClientID     string        `env:"DISCORD_CLIENT_ID"`
	DiscordClientSecret string        `env:"DISCORD_CLIENT_SECRET"`
	DiscordRedirectURI  string        `env:"DISCORD_REDIRECT_URI,default=http://localhost:3000/identity/callback" validate:"url"`
	ClientAppURL        string        `env:"CLIENT_APP_URL,default=http://localhost:8080" validate:"url"`
	DiscordAuthURL      string        `env:"DISCORD_AUTH_URL,default=https://discord.com/oauth2/authorize" validate:"url"`
	DiscordTokenURL     string        `env:"DISCORD_TOKEN_URL,default=https://discord.com/api/oauth2/token" validate:"url"`
	DiscordUserURL      string        `env:"DISCORD_USER_URL,default=https://discord.com/api/users/@me" validate:"url"`
	UpstreamTimeout     time.Duration `env:"UPSTREAM_TIMEOUT,default=10s" validate:"gt=0"`

	StoreBackend   string `env:"STORE_BACKEND,default=badger" validate:"oneof=badger file"`
	BadgerFilepath string `env:"BADGER_FILEPATH,default=./data/badger"`
	DataDir        string `env:"DATA_DIR,default=./data"`

	AllowedOrigins  string `env:"ALLOWED_ORIGINS,default=*"`
	StateSecret     string `env:"STATE_SECRET"`
	StrictAddresses bool   `env:"STRICT_ADDRESSES,default=false"`

	RelayMode            string  `env:"RELAY_MODE,default=validated" validate:"oneof=validated verbatim"`
	RelayRate            float64 `env:"RELAY_RATE,default=5" validate:"gt=0"`
	RelayBurst           int     `env:"RELAY_BURST,default=10" validate:"min=1"`
	ConnectionBufferSize int     `env:"CONNECTION_BUFFER_SIZE,default=256" validate:"min=1"`
	MaxFrameSize         int64   `env:"MAX_FRAME_SIZE,default=65536" validate:"min=512"`

	MaxContentLength     int    `env:"MAX_CONTENT_LENGTH,default=2000" validate:"min=1"`
	MaxUserLength        int    `env:"MAX_USER_LENGTH,default=128" validate:"min=1"`
	ModerationWordsPath  string `env:"MODERATION_WORDS_PATH"`
	CharacterReplacement string `env:"CHARACTER_REPLACEMENT,default=*"`
	SearchLimit          int    `env:"SEARCH_LIMIT,default=20" validate:"min=1"`

	StatsInterval   time.Duration `env:"STATS_INTERVAL,default=15s" validate:"gt=0"`
	RestartInterval time.Duration `env:"RESTART_INTERVAL,default=200ms" validate:"gt=0"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT,default=10s" validate:"gt=0"`
}

// LoadConfig reads the environment and validates the result.
func LoadConfig() (Config, error) {
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return Config{}, fmt.Errorf("reading environment: %w", err)
	}
	if err := validator.New().Struct(config); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	if _, err := CharacterRune(config.CharacterReplacement); err != nil {
		return Config{}, err
	}
	return config, nil
}

// Origins splits ALLOWED_ORIGINS on commas.
func (c Config) Origins() []string {
	var origins []string
	for _, origin := range strings.Split(c.AllowedOrigins, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}

// OAuthConfigured reports whether a Discord application is set up.
func (c Config) OAuthConfigured() bool {
	return c.DiscordClientID != "" && c.DiscordClientSecret != ""
}

func CharacterRune(str string) (rune, error) {
	r := []rune(str)
	if len(r) != 1 {
		return 0, fmt.Errorf(
			"CHARACTER_REPLACEMENT must be a single character, got %q",
			str,
		)
	}
	return r[0], nil
}
