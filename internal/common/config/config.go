// internal/common/config/config.go
package config

import "time"

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig           `mapstructure:"app"`
	Logging       LoggingConfig       `mapstructure:"logging"`
	Backend       BackendConfig       `mapstructure:"backend"`
	Verify        VerifyConfig        `mapstructure:"verify"`
	Chat          ChatConfig          `mapstructure:"chat"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Review        ReviewConfig        `mapstructure:"review"`
	Decision      DecisionConfig      `mapstructure:"decision"`
	Validation    ValidationConfig    `mapstructure:"validation"`
	Identity      IdentityCacheConfig `mapstructure:"identity"`
	Notifications NotificationConfig  `mapstructure:"notifications"`
	Metrics       MetricsConfig       `mapstructure:"metrics"`
}

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// BackendConfig holds the community backend API endpoint plus the
// client-credentials exchange used by every call against it.
type BackendConfig struct {
	BaseURL          string `mapstructure:"base_url"`
	TokenURL         string `mapstructure:"token_url"`
	ClientID         string `mapstructure:"client_id"`
	ClientSecret     string `mapstructure:"client_secret"`
	TokenSkewSeconds int    `mapstructure:"token_skew_seconds"`
	Timeout          int    `mapstructure:"timeout"` // milliseconds
}

// VerifyConfig points at the external identity-proofing service.
type VerifyConfig struct {
	BaseURL string `mapstructure:"base_url"`
	Timeout int    `mapstructure:"timeout"` // milliseconds
}

// ChatConfig holds the chat-platform REST endpoint and bot identity.
type ChatConfig struct {
	BaseURL  string `mapstructure:"base_url"`
	BotToken string `mapstructure:"bot_token"`
	GuildID  string `mapstructure:"guild_id"`
	Timeout  int    `mapstructure:"timeout"` // milliseconds
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// ReviewConfig drives the submission hand-off into the review channel.
type ReviewConfig struct {
	ChannelID     string `mapstructure:"channel_id"`
	ApproveEmoji  string `mapstructure:"approve_emoji"`
	RejectEmoji   string `mapstructure:"reject_emoji"`
	ReactionDelay int    `mapstructure:"reaction_delay"` // milliseconds
}

// DecisionConfig drives the accept/reject side-effect fan-out.
type DecisionConfig struct {
	StorageChannelID  string `mapstructure:"storage_channel_id"`
	AnnounceChannelID string `mapstructure:"announce_channel_id"`
	MemberRoleID      string `mapstructure:"member_role_id"`
	DMDelay           int    `mapstructure:"dm_delay"` // milliseconds
}

// ValidationConfig is handed to every section validator as a typed struct;
// no field is ever looked up by name at runtime.
type ValidationConfig struct {
	MaxAnswerLength int         `mapstructure:"max_answer_length"`
	MinAnswerLength int         `mapstructure:"min_answer_length"`
	MinAge          int         `mapstructure:"min_age"`
	MaxAge          int         `mapstructure:"max_age"`
	MaxErrors       int         `mapstructure:"max_errors"`
	Image           ImageConfig `mapstructure:"image"`
}

type ImageConfig struct {
	MinCount     int      `mapstructure:"min_count"`
	MaxCount     int      `mapstructure:"max_count"`
	MaxBytes     int64    `mapstructure:"max_bytes"`
	AllowedTypes []string `mapstructure:"allowed_types"`
}

// IdentityCacheConfig controls the verified-but-not-yet-linked memo.
type IdentityCacheConfig struct {
	TTLMinutes int `mapstructure:"ttl_minutes"`
}

type NotificationConfig struct {
	Workers   int       `mapstructure:"workers"`
	QueueSize int       `mapstructure:"queue_size"`
	AWS       AWSConfig `mapstructure:"aws"`
}

type AWSConfig struct {
	Region string `mapstructure:"region"`
	SES    struct {
		Enabled   bool     `mapstructure:"enabled"`
		FromEmail string   `mapstructure:"from_email"`
		StaffList []string `mapstructure:"staff_list"`
	} `mapstructure:"ses"`
	SNS struct {
		Enabled  bool   `mapstructure:"enabled"`
		TopicARN string `mapstructure:"topic_arn"`
	} `mapstructure:"sns"`
}

type MetricsConfig struct {
	Address string `mapstructure:"address"`
}

// GetDuration converts milliseconds from config to time.Duration
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}
