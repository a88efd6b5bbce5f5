package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/serviteq/fieldops-backend/internal/errs"
)

type Config struct {
	ProjectID       string
	Region          string
	LogLevel        string
	VertexModel     string
	ModelStateless  bool
	AgentMode       string
	AgentWebhookURL string
	WebhookTimeout  time.Duration
	ChatTTL         time.Duration
	ChatHistory     int
	MaxToolRounds   int
}

const (
	ModeModel   = "model"
	ModeWebhook = "webhook"
)

func New() (*Config, error) {
	// Local development only; in Cloud Run the env is already populated.
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("LOGLEVEL", "info")
	v.SetDefault("VERTEXMODEL", "gemini-2.0-flash")
	v.SetDefault("MODELSTATELESS", false)
	v.SetDefault("AGENTMODE", ModeModel)
	v.SetDefault("WEBHOOKTIMEOUT", "30s")
	v.SetDefault("CHATTTL", "720h")
	v.SetDefault("CHATHISTORY", 20)
	v.SetDefault("MAXTOOLROUNDS", 10)

	cfg := &Config{
		ProjectID:       v.GetString("PROJECTID"),
		Region:          v.GetString("REGION"),
		LogLevel:        v.GetString("LOGLEVEL"),
		VertexModel:     v.GetString("VERTEXMODEL"),
		ModelStateless:  v.GetBool("MODELSTATELESS"),
		AgentMode:       v.GetString("AGENTMODE"),
		AgentWebhookURL: v.GetString("AGENTWEBHOOKURL"),
		WebhookTimeout:  v.GetDuration("WEBHOOKTIMEOUT"),
		ChatTTL:         v.GetDuration("CHATTTL"),
		ChatHistory:     v.GetInt("CHATHISTORY"),
		MaxToolRounds:   v.GetInt("MAXTOOLROUNDS"),
	}

	if cfg.ProjectID == "" {
		return nil, errs.NewValidationError("PROJECTID is required")
	}
	if cfg.AgentMode != ModeModel && cfg.AgentMode != ModeWebhook {
		return nil, errs.NewValidationError("AGENTMODE must be 'model' or 'webhook'")
	}
	if cfg.AgentMode == ModeWebhook && cfg.AgentWebhookURL == "" {
		return nil, errs.NewValidationError("AGENTWEBHOOKURL is required when AGENTMODE is 'webhook'")
	}

	return cfg, nil
}
