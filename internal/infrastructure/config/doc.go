// Package config handles loading and validating Gatekeeper Core configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with environment variables (GATEKEEPER_*)
//   - Validation of required fields
//   - Default value handling
//
// Security Considerations:
//   - Sensitive values (passwords, tokens) should be set via environment variables
//   - The config file should have restricted permissions (0600)
//   - An empty JWT secret leaves the HTTP API unauthenticated
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Site.Name)
package config
