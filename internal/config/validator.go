package config

import (
	"fmt"
	"os/exec"
	"strings"

	"github.com/sirupsen/logrus"
)

var validTransports = map[string]bool{
	"http":            true,
	"stdio":           true,
	"streamable-http": true,
}

// Validator handles all validation logic for the server configuration
type Validator struct {
	// Configuration to validate
	config *ConfigData
	// Errors discovered during validation
	errors []string
	// Non-fatal findings
	warnings []string
	// lookPath is exec.LookPath, replaceable in tests
	lookPath func(string) (string, error)
}

// NewValidator creates a new validator instance
func NewValidator(cfg *ConfigData) *Validator {
	return &Validator{
		config:   cfg,
		errors:   make([]string, 0),
		lookPath: exec.LookPath,
	}
}

// isCliInstalled checks if a CLI tool is installed and available in the system PATH
func (v *Validator) isCliInstalled(cliName string) bool {
	_, err := v.lookPath(cliName)
	return err == nil
}

// validateCli only warns: az is needed by the cli_* Standard tools and
// nothing else.
func (v *Validator) validateCli() {
	if !v.isCliInstalled("az") {
		v.warnings = append(v.warnings, "az is not installed or not found in PATH; cli_* Standard tools will report failures")
	}
}

// validateServer checks transport, port and log level
func (v *Validator) validateServer() bool {
	valid := true

	if !validTransports[v.config.Transport] {
		v.errors = append(v.errors, fmt.Sprintf("invalid transport %q (expected http, stdio or streamable-http)", v.config.Transport))
		valid = false
	}

	if v.config.Transport != "stdio" && (v.config.Port <= 0 || v.config.Port > 65535) {
		v.errors = append(v.errors, fmt.Sprintf("invalid port %d", v.config.Port))
		valid = false
	}

	if _, err := logrus.ParseLevel(strings.ToLower(v.config.LogLevel)); err != nil {
		v.errors = append(v.errors, fmt.Sprintf("invalid log level %q", v.config.LogLevel))
		valid = false
	}

	if v.config.Timeout <= 0 {
		v.errors = append(v.errors, "timeout must be positive")
		valid = false
	}

	if v.config.KuduTimeout <= 0 {
		v.errors = append(v.errors, "kudu timeout must be positive")
		valid = false
	}

	return valid
}

// validateAuth checks authentication configuration compatibility
func (v *Validator) validateAuth() bool {
	if v.config.Auth == nil {
		return true
	}
	if err := v.config.Auth.ValidateConfig(); err != nil {
		v.errors = append(v.errors, err.Error())
		return false
	}
	return true
}

// Validate runs all validation checks
func (v *Validator) Validate() bool {
	validServer := v.validateServer()
	validAuth := v.validateAuth()
	v.validateCli()

	return validServer && validAuth
}

// GetErrors returns all errors found during validation
func (v *Validator) GetErrors() []string {
	return v.errors
}

// GetWarnings returns the non-fatal findings
func (v *Validator) GetWarnings() []string {
	return v.warnings
}

// PrintErrors prints all validation errors to stdout
func (v *Validator) PrintErrors() {
	for _, err := range v.errors {
		fmt.Println(err)
	}
}
