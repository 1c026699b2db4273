package log

import (
	"net/url"
	"regexp"
	"strings"
)

// MaskValue replaces sensitive values.
const MaskValue = "***REDACTED***"

// sensitiveKeys are attribute keys whose values are always masked.
var sensitiveKeys = map[string]bool{
	"authorization":       true,
	"proxy-authorization": true,
	"cookie":              true,
	"set-cookie":          true,
	"x-api-key":           true,
	"api_key":             true,
	"apikey":              true,
	"api-key":             true,
	"openai_api_key":      true,
	"access_token":        true,
	"refresh_token":       true,
	"secret_key":          true,
	"session":             true,
	"session_id":          true,
	"sid":                 true,
}

// sensitiveKeywords mask any key containing them.
// A bare "key" is absent on purpose: cache keys are logged under it.
var sensitiveKeywords = []string{
	"password", "passwd", "secret", "token", "auth", "credential", "private",
}

// sensitivePatterns match values that are secrets regardless of key.
var sensitivePatterns = []*regexp.Regexp{
	// JWT
	regexp.MustCompile(`^eyJ[A-Za-z0-9_-]*\.eyJ[A-Za-z0-9_-]*\.[A-Za-z0-9_-]*$`),
	// Authorization header values
	regexp.MustCompile(`(?i)^bearer\s+.+`),
	regexp.MustCompile(`(?i)^basic\s+[A-Za-z0-9+/=]+$`),
	// OpenAI style keys: sk-..., sk-proj-...
	regexp.MustCompile(`^sk-[A-Za-z0-9_-]{16,}$`),
	// AWS access keys
	regexp.MustCompile(`^AKIA[0-9A-Z]{16}$`),
	// PEM private keys
	regexp.MustCompile(`(?i)-----BEGIN.*(PRIVATE|SECRET).*KEY-----`),
}

// embeddedKey finds OpenAI keys inside longer strings such as error messages.
var embeddedKey = regexp.MustCompile(`sk-[A-Za-z0-9_-]{16,}`)

// sensitiveQueryParams are masked inside URL values.
var sensitiveQueryParams = []string{"key", "api_key", "apikey", "token", "access_token", "signature", "sig"}

func isSensitiveKey(key string) bool {
	k := strings.ToLower(key)
	if sensitiveKeys[k] {
		return true
	}
	for _, keyword := range sensitiveKeywords {
		if strings.Contains(k, keyword) {
			return true
		}
	}
	return false
}

func isSensitiveValue(value string) bool {
	for _, pattern := range sensitivePatterns {
		if pattern.MatchString(value) {
			return true
		}
	}
	return false
}

// maskString returns value with embedded secrets replaced.
// The second result reports whether anything changed.
func maskString(value string) (string, bool) {
	if isSensitiveValue(value) {
		return MaskValue, true
	}

	out := embeddedKey.ReplaceAllString(value, MaskValue)
	if masked, ok := maskURL(out); ok {
		return masked, true
	}
	return out, out != value
}

// maskURL masks credential query parameters of an absolute URL.
func maskURL(value string) (string, bool) {
	if !strings.Contains(value, "?") || !strings.Contains(value, "://") {
		return value, false
	}
	u, err := url.Parse(value)
	if err != nil || u.RawQuery == "" {
		return value, false
	}

	q := u.Query()
	changed := false
	for _, name := range sensitiveQueryParams {
		if q.Has(name) {
			q.Set(name, "REDACTED")
			changed = true
		}
	}
	if !changed {
		return value, false
	}
	u.RawQuery = q.Encode()
	return u.String(), true
}
