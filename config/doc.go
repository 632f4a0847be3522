// Package config loads the kska application configuration.
//
// A Loader starts from Defaults, merges one or more file layers (JSON, or YAML
// when the extension is .yaml/.yml) with last-wins semantics, then applies
// environment overrides:
//
//	loader := config.NewLoader()
//	loader.AddLayer("configs/kska.yaml")
//	loader.AddLayer("configs/production.json")
//	loader.EnableValidation(true)
//
//	cfg, err := loader.Load()
//
// # Environment Variable Overrides
//
//	KSKA_APPLICATION_ID, KSKA_INSTANCE_ID
//	KSKA_NATS_URLS (comma-separated), KSKA_NATS_USERNAME, KSKA_NATS_PASSWORD, KSKA_NATS_TOKEN
//	KSKA_HTTP_PORT, KSKA_HTTP_IP_PATH, KSKA_METRICS_ENABLED
//	KSKA_SOURCE_FILES (comma-separated, appended)
//
// # Sources
//
// Sources are flat maps of ks.* keys. They can be written inline under
// "sources" or kept in Java-style .properties files listed under
// "source_files"; relative file paths resolve against the directory of the
// layer that names them. SourceProperties returns both, inline first.
//
// Durations accept Go duration strings ("2s", "500ms") or nanoseconds.
// File reads are bounded in size, JSON nesting depth is limited and relative
// paths may not escape the working directory.
package config
