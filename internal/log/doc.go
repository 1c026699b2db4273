// Package log builds the slog loggers used by crosslink.
//
// Every logger returned by this package wraps its output handler in a
// SecureHandler. The handler masks attributes that may carry credentials
// before they reach the output:
//   - attributes whose key names a secret (authorization, api_key, token)
//   - values that look like bearer tokens, JWTs or OpenAI API keys
//   - credential query parameters inside logged URLs
//
// Cache keys are 32 character hex digests and are logged as they are.
//
// # Usage
//
//	logger := log.New(os.Stderr, log.Options{Verbose: true})
//	slog.SetDefault(logger)
//	logger.Debug("classifying page", "url", u, "key", cache.Key(u))
package log
