// Package config handles loading and validating microdb configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with environment variables (MICRODB_*)
//   - Validation of values
//   - Default value handling
//   - The connection register mapping short names to connection strings
//
// Security Considerations:
//   - Connection strings and tokens may carry credentials; prefer
//     environment variables for them
//   - The register file is written with 0600 permissions in a 0700 directory
//
// Usage:
//
//	cfg, err := config.Load("microdb.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	reg, err := config.LoadRegister(cfg.Registry.Path)
//	conn, err := reg.Resolve(cfg.Database.Name)
package config
