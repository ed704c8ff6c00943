package common

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
)

// Secrets holds the environment-sourced portal credentials. These never pass
// through config files; they are read once at process entry and handed to the
// components that need them.
type Secrets struct {
	PortalDomain  string `envconfig:"PORTAL_DOMAIN" validate:"required"`
	LoginID       string `envconfig:"LOGIN_ID" validate:"required"`
	LoginPassword string `envconfig:"LOGIN_PASSWORD" validate:"required"`
}

// LoadSecrets reads secrets from MENUFEED_-prefixed environment variables and
// validates that all of them are present.
func LoadSecrets() (*Secrets, error) {
	var s Secrets
	if err := envconfig.Process("menufeed", &s); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	if err := validator.New().Struct(&s); err != nil {
		return nil, fmt.Errorf("missing required environment configuration: %w", err)
	}

	return &s, nil
}

// MenuURL returns the absolute URL of the portal's menu page.
func (s *Secrets) MenuURL(menuPath string) string {
	return "https://" + s.PortalDomain + menuPath
}
