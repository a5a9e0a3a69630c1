// Package config loads the bridge configuration from YAML and the
// environment.
//
// Load starts from Default, overlays the YAML file, then applies
// GRAYLOGIC_* environment variables and validates the result. Secrets
// (MQTT password, InfluxDB token, JWT secret) belong in the environment
// rather than the file:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    return err
//	}
//	port := cfg.Protocols.Firecracker.Port
package config
