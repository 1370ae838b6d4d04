package config

import (
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// YAMLConfig represents the structure of the config.yaml file.
// It carries the mapping from identity provider claims to local roles.
type YAMLConfig struct {
	RoleMapping RoleMappingConfig `yaml:"role_mapping"`
}

// RoleMappingConfig maps OIDC claim values onto application roles.
type RoleMappingConfig struct {
	Claim       string            `yaml:"claim"`        // OIDC claim name (e.g., "groups", "roles")
	Mappings    map[string]string `yaml:"mappings"`     // Claim value -> role
	AdminEmails []string          `yaml:"admin_emails"` // Always granted admin
	DefaultRole string            `yaml:"default_role"`
}

// LoadYAMLConfig loads the YAML configuration file.
// Path is determined by CONFIG_FILE env var, defaulting to "config.yaml".
// Returns nil without error if the config file doesn't exist.
func LoadYAMLConfig() (*YAMLConfig, error) {
	return loadYAMLConfig(getEnv("CONFIG_FILE", "config.yaml"))
}

func loadYAMLConfig(path string) (*YAMLConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Config file is optional
			return nil, nil
		}
		return nil, err
	}

	var cfg YAMLConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	// Set defaults
	if cfg.RoleMapping.Claim == "" {
		cfg.RoleMapping.Claim = "groups"
	}
	if cfg.RoleMapping.DefaultRole == "" {
		cfg.RoleMapping.DefaultRole = "user"
	}

	return &cfg, nil
}

// RoleClaim returns the claim holding role values, or "" when unset.
func (c *YAMLConfig) RoleClaim() string {
	if c == nil {
		return ""
	}
	return c.RoleMapping.Claim
}

// ResolveRole returns the role for a user given their email and the values of
// the role claim. Admin emails win, then the first mapped claim value granting
// admin, then any mapped value, then the default role. An empty result means
// the stored role should be kept.
func (c *YAMLConfig) ResolveRole(email string, claimValues []string) string {
	if c == nil {
		return ""
	}
	for _, e := range c.RoleMapping.AdminEmails {
		if email != "" && strings.EqualFold(e, email) {
			return "admin"
		}
	}

	resolved := ""
	for _, v := range claimValues {
		role, ok := c.RoleMapping.Mappings[v]
		if !ok {
			continue
		}
		if role == "admin" {
			return role
		}
		resolved = role
	}
	if resolved != "" {
		return resolved
	}
	if len(c.RoleMapping.Mappings) == 0 && len(c.RoleMapping.AdminEmails) > 0 {
		// Admins are managed by email only; leave manual role changes alone.
		return ""
	}
	return c.RoleMapping.DefaultRole
}
