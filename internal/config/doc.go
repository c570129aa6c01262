// Package config provides configuration management for gwguard.
//
// Configuration is expressed as YAML and loaded with Load or
// LoadFromReader. Values may reference environment variables using
// ${VAR} or ${VAR:-default} syntax; $$ escapes a literal dollar sign.
// Omitted fields fall back to the defaults from DefaultConfig, and
// Validate rejects configurations the service cannot run with.
//
// Example:
//
//	server:
//	  port: 8080
//	  trustedProxies:
//	    - 10.0.0.0/8
//	redis:
//	  address: ${REDIS_ADDR:-localhost:6379}
//	  password: ${REDIS_PASSWORD:-}
//	admission:
//	  table: status_list
//	  gate:
//	    enabled: true
//
// The Watcher provides hot reload: it watches the config file's
// directory, debounces rapid write events, revalidates, and hands the
// new Config to a callback. Invalid updates are reported through the
// error callback and the previous configuration stays active.
package config
