// Package config provides simple, local-first configuration for
// Presage.
//
// All configuration lives in a single JSON file inside the project's
// .presage/ directory:
//
//	.presage/
//	└── config.json
//
// The config.json file contains flat key-value settings:
//
//	{
//	  "theme": "dracula",
//	  "workers": 4,
//	  "debounce_min_ms": 50,
//	  "debounce_max_ms": 1000,
//	  "prediction_enabled": true
//	}
//
// Design Philosophy:
//
// - Local-first: Everything lives in the project directory
// - Simple: Single JSON file, no complex hierarchies
// - Smart defaults: Works out of the box
//
// Example usage:
//
//	manager := config.NewManager("/path/to/project")
//	if err := manager.Load(); err != nil {
//		log.Fatal(err)
//	}
//
//	cfg := manager.Get()
//	fmt.Println("Theme:", cfg.Theme)
//
//	// Update a setting
//	manager.Set("theme", "dark")
package config
