// Package config provides ruleset management for the Kalaha game server.
//
// The config package handles:
//   - Loading rulesets from JSON and YAML files
//   - Ruleset validation through the engine
//   - Default ruleset selection
//   - Ruleset discovery and listing
//
// Configuration Format:
//
// Rulesets live in the configs directory, one file per ruleset. The file
// name without extension is the config ID used to create sessions. Each
// ruleset defines:
//   - name and description
//   - starting_stones per pit (1 to 24, 0 means the default of 6)
//   - default player names
//   - message templates for turns, captures, extra turns and the result
//
// Usage:
//
//	manager, err := config.NewManager("configs")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	quick, err := manager.LoadConfig("quick")
//	defaultConfig := manager.GetDefault()
//	configs, err := manager.ListConfigs()
//
// The default ruleset is "classic" when present, otherwise the first valid
// file, otherwise the built-in engine default.
package config
