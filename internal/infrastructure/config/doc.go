// Package config handles loading and validating addrslips configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with ADDRSLIPS_* environment variables
//   - Validation of store tuning and logging settings
//   - Default value handling
//
// Usage:
//
//	cfg, err := config.LoadOptional("addrslips.yaml")
//	if err != nil {
//	    return err
//	}
//	fmt.Println(cfg.Store.PoolSize)
package config
