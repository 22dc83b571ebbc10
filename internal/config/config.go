package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"   validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Auth     AuthConfig     `mapstructure:"auth"     validate:"required"`
	Realtime RealtimeConfig `mapstructure:"realtime" validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required,url"`
}

// AuthConfig contains all authentication and authorization settings.
type AuthConfig struct {
	// JWTSecret signs access and refresh tokens. Rotating it invalidates
	// every outstanding token.
	JWTSecret string `mapstructure:"jwt_secret" validate:"required,min=32"`

	// TokenLifetimeMinutes is the validity period of access tokens.
	TokenLifetimeMinutes int `mapstructure:"token_lifetime_minutes" validate:"required,gt=0"`

	// RefreshTokenLifetimeMinutes is the validity period of refresh tokens.
	// Defaults to one week.
	RefreshTokenLifetimeMinutes int `mapstructure:"refresh_token_lifetime_minutes" validate:"required,gt=0"`

	// BcryptCost is the work factor for password hashing.
	BcryptCost int `mapstructure:"bcrypt_cost" validate:"required,gte=4,lte=31"`
}

// RealtimeConfig contains the settings of the realtime fan-out layer.
type RealtimeConfig struct {
	// ChannelKey is the public key identifier embedded in channel
	// authorization grants.
	ChannelKey string `mapstructure:"channel_key" validate:"required"`

	// ChannelSecret signs channel authorization grants. Like JWTSecret it
	// must be long enough to resist brute force.
	ChannelSecret string `mapstructure:"channel_secret" validate:"required,min=32"`

	// RedisURL, when set, enables the cross-instance event bridge.
	// Leave empty for single-instance deployments.
	RedisURL string `mapstructure:"redis_url" validate:"omitempty,url"`

	// EventChannel is the Redis pub/sub channel the bridge publishes on.
	EventChannel string `mapstructure:"event_channel" validate:"required"`
}
