package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/JDRadatti/oldmaid/internal/oldmaid"
)

// EnvPrefix is prepended to every environment override, e.g.
// OLDMAID_SERVER_ADDRESS.
const EnvPrefix = "OLDMAID"

// Config is the full server configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Game     GameConfig     `mapstructure:"game"`
	Cards    CardsConfig    `mapstructure:"cards"`
	Rooms    RoomsConfig    `mapstructure:"rooms"`
	NATS     NATSConfig     `mapstructure:"nats"`
	Database DatabaseConfig `mapstructure:"database"`
}

type ServerConfig struct {
	Address string `mapstructure:"address"`
	// SendBuffer is the number of outbound messages queued per connection
	// before new ones are dropped.
	SendBuffer    int `mapstructure:"sendBuffer"`
	CommandBuffer int `mapstructure:"commandBuffer"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type GameConfig struct {
	MinPlayers int         `mapstructure:"minPlayers"`
	MaxPlayers int         `mapstructure:"maxPlayers"`
	HandSize   int         `mapstructure:"handSize"`
	Rules      RulesConfig `mapstructure:"rules"`
}

type RulesConfig struct {
	NextPlayerOnly bool `mapstructure:"nextPlayerOnly"`
}

type CardsConfig struct {
	Nationalities []string `mapstructure:"nationalities"`
	// Aliases maps legacy card names to canonical ones, on top of the
	// built-in table.
	Aliases map[string]string `mapstructure:"aliases"`
}

type RoomsConfig struct {
	CleanupInterval time.Duration `mapstructure:"cleanupInterval"`
	EndedTTL        time.Duration `mapstructure:"endedTTL"`
}

// NATSConfig enables lifecycle publishing when URL is set.
type NATSConfig struct {
	URL string `mapstructure:"url"`
}

// DatabaseConfig enables the PostgreSQL result archive when URL is set.
type DatabaseConfig struct {
	URL string `mapstructure:"url"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.sendBuffer", 64)
	v.SetDefault("server.commandBuffer", 64)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	def := oldmaid.DefaultSettings()
	v.SetDefault("game.minPlayers", def.MinPlayers)
	v.SetDefault("game.maxPlayers", def.MaxPlayers)
	v.SetDefault("game.handSize", def.HandSize)
	v.SetDefault("game.rules.nextPlayerOnly", false)

	v.SetDefault("cards.nationalities", oldmaid.DefaultNationalities)
	v.SetDefault("cards.aliases", map[string]string{})

	v.SetDefault("rooms.cleanupInterval", 10*time.Second)
	v.SetDefault("rooms.endedTTL", 5*time.Minute)

	v.SetDefault("nats.url", "")
	v.SetDefault("database.url", "")
}

// Load reads the configuration. A .env file in the working directory is
// loaded into the environment first, then path is read if it exists, then
// OLDMAID_ environment variables override both.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
		} else if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("stat config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	// Comma separated lists from the environment arrive as one element.
	if len(cfg.Cards.Nationalities) == 1 && strings.Contains(cfg.Cards.Nationalities[0], ",") {
		cfg.Cards.Nationalities = strings.Split(cfg.Cards.Nationalities[0], ",")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that a game can actually be dealt with these settings.
func (c *Config) Validate() error {
	g := c.Game
	switch {
	case g.MinPlayers < 2:
		return configError("game.minPlayers must be at least 2, got %d", g.MinPlayers)
	case g.MaxPlayers < g.MinPlayers:
		return configError("game.maxPlayers (%d) is below game.minPlayers (%d)", g.MaxPlayers, g.MinPlayers)
	case g.HandSize < 1:
		return configError("game.handSize must be at least 1, got %d", g.HandSize)
	case len(c.Cards.Nationalities) == 0:
		return configError("cards.nationalities is empty")
	}
	if deck := 2*len(c.Cards.Nationalities) + 1; deck < g.MaxPlayers*g.HandSize {
		return configError("deck of %d cards cannot deal %d cards to %d players",
			deck, g.HandSize, g.MaxPlayers)
	}
	if c.Server.SendBuffer < 1 || c.Server.CommandBuffer < 1 {
		return configError("server buffers must be positive")
	}
	if c.Rooms.CleanupInterval <= 0 {
		return configError("rooms.cleanupInterval must be positive")
	}
	if _, err := oldmaid.BuildDeck(c.Cards.Nationalities, c.Aliases()); err != nil {
		return err
	}
	return c.Settings().Validate()
}

func configError(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{oldmaid.ErrConfig}, args...)...)
}

// Aliases returns the card name alias table with configured extensions.
func (c *Config) Aliases() oldmaid.Aliases {
	return oldmaid.NewAliases(c.Cards.Aliases)
}

// Settings converts the game section into engine settings.
func (c *Config) Settings() oldmaid.Settings {
	nats := make([]string, len(c.Cards.Nationalities))
	copy(nats, c.Cards.Nationalities)
	return oldmaid.Settings{
		MinPlayers:    c.Game.MinPlayers,
		MaxPlayers:    c.Game.MaxPlayers,
		HandSize:      c.Game.HandSize,
		Nationalities: nats,
		Aliases:       c.Aliases(),
		Rules:         oldmaid.Rules{oldmaid.RuleNextPlayerOnly: c.Game.Rules.NextPlayerOnly},
	}
}
