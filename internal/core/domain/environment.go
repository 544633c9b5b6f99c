package domain

import "strings"

// Environment names the deployment the process runs in.
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvStaging     Environment = "staging"
	EnvProduction  Environment = "production"
)

// ParseEnvironment maps a config value to an Environment, defaulting to
// development for unknown input.
func ParseEnvironment(s string) Environment {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "production", "prod":
		return EnvProduction
	case "staging", "stage":
		return EnvStaging
	default:
		return EnvDevelopment
	}
}

// IsProduction reports whether errors should be forwarded to monitoring.
func (e Environment) IsProduction() bool {
	return e == EnvProduction
}
