package llm

import (
	"fmt"
	"strings"
	"time"

	contractx "github.com/tanpawarit/vehicle-ai-concierge/agent/contract"
	openrouterx "github.com/tanpawarit/vehicle-ai-concierge/pkg/openrouter"
)

// Role names a model consumer so each can be pointed at its own model.
type Role string

const (
	RoleRouter        Role = "router"
	RoleSearchRewrite Role = "search_rewrite"
	RoleParts         Role = "parts"
	RoleLead          Role = "lead"
	RoleStarter       Role = "starter"
)

type Config struct {
	BaseURL            string        `envconfig:"BASE_URL" split_words:"true" default:"https://openrouter.ai/api/v1"`
	APIKey             string        `envconfig:"API_KEY" split_words:"true" required:"true"`
	Model              string        `envconfig:"MODEL" split_words:"true" required:"true"`
	MaxCompletionToken int           `envconfig:"MAX_COMPLETION_TOKEN" split_words:"true" default:"2000"`
	Temperature        float32       `envconfig:"TEMPERATURE" split_words:"true" default:"0.3"`
	Timeout            time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"30s"`
	SiteURL            string        `envconfig:"SITE_URL" split_words:"true"`
	SiteName           string        `envconfig:"SITE_NAME" split_words:"true"`

	RouterModel        string  `envconfig:"ROUTER_MODEL" split_words:"true"`
	PartsModel         string  `envconfig:"PARTS_MODEL" split_words:"true"`
	LeadModel          string  `envconfig:"LEAD_MODEL" split_words:"true"`
	StarterModel       string  `envconfig:"STARTER_MODEL" split_words:"true"`
	RouterTemperature  float32 `envconfig:"ROUTER_TEMPERATURE" split_words:"true" default:"0"`
	StarterTemperature float32 `envconfig:"STARTER_TEMPERATURE" split_words:"true" default:"0.8"`
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return fmt.Errorf("%w: openrouter api key is required", contractx.ErrValidation)
	}
	if strings.TrimSpace(c.Model) == "" {
		return fmt.Errorf("%w: default model is required", contractx.ErrValidation)
	}
	return nil
}

func (c Config) OpenRouterFor(role Role) openrouterx.Config {
	modelName := strings.TrimSpace(c.Model)
	temp := c.Temperature

	override := func(m string) {
		if v := strings.TrimSpace(m); v != "" {
			modelName = v
		}
	}

	switch role {
	case RoleRouter:
		override(c.RouterModel)
		temp = c.RouterTemperature
	case RoleSearchRewrite:
		override(c.RouterModel)
		temp = c.RouterTemperature
	case RoleParts:
		override(c.PartsModel)
	case RoleLead:
		override(c.LeadModel)
	case RoleStarter:
		override(c.StarterModel)
		temp = c.StarterTemperature
	}

	maxCompletionToken := c.MaxCompletionToken
	return openrouterx.Config{
		BaseURL:            strings.TrimSpace(c.BaseURL),
		APIKey:             strings.TrimSpace(c.APIKey),
		Model:              modelName,
		MaxCompletionToken: &maxCompletionToken,
		Temperature:        temp,
		Timeout:            c.Timeout,
		SiteURL:            strings.TrimSpace(c.SiteURL),
		SiteName:           strings.TrimSpace(c.SiteName),
	}
}
