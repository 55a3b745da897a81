// Package log provides secure logging functionality with automatic sanitization
// of sensitive information, built on top of the standard slog package.
//
// Build commands often receive registry and deploy credentials through their
// environment, and the development server sees request headers. The
// SecureHandler masks those values before they reach the terminal or a CI log:
//   - HTTP headers (Authorization, Cookie, Set-Cookie, X-Api-Key)
//   - Environment variables whose names mention tokens, secrets or passwords
//   - Values that look like credentials (JWTs, bearer tokens, GitHub and npm tokens)
//
// Even in verbose mode, sensitive values are masked.
//
// # Usage
//
//	logger := log.NewSecureLogger(os.Stderr, true) // verbose=true
//	logger.Debug("build environment", log.EnvGroup("env", map[string]string{
//	    "GITHUB_TOKEN": "ghp_...", // logged as ***REDACTED***
//	    "SWIFT_SDK":    "wasm32-unknown-wasi",
//	}))
//	slog.SetDefault(logger)
package log
