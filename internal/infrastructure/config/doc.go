// Package config handles loading and validating dictd configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with environment variables (DICTD_*)
//   - Validation of required fields
//   - Default value handling
//
// Security Considerations:
//   - Secrets (JWT secret, MQTT password, InfluxDB token) should be set via
//     environment variables
//   - security.userlevels holds Argon2id hashes, never plaintext passwords
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Device.Name)
package config
