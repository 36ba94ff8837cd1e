package logger

import "regexp"

// SensitiveDataPatterns match credentials that must never reach log output.
// The first capture group is preserved so the log still shows what was redacted.
var SensitiveDataPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(bearer\s+)([A-Za-z0-9\-._~+/]+=*)`),
	regexp.MustCompile(`(?i)(x-goog-api-key[\s:=]+)([^;,\s"]{5,})`),
	regexp.MustCompile(`(?i)((api|access|auth|token|secret|key|passw(or)?d)[0-9a-z\-_.]*["']?[\s:=]+["']?)([^;,\s"']{5,})`),
	regexp.MustCompile(`()(xai-[A-Za-z0-9]{16,})`),
	regexp.MustCompile(`()(AIza[0-9A-Za-z_\-]{20,})`),
}

// RedactSensitiveData replaces credentials in input with "[REDACTED]"
func RedactSensitiveData(input string) string {
	if input == "" {
		return input
	}
	for _, pattern := range SensitiveDataPatterns {
		input = pattern.ReplaceAllString(input, "${1}[REDACTED]")
	}
	return input
}
