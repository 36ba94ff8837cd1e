package gemini

import (
	"regexp"
	"strconv"
)

func mustRegexp(expr string) *regexp.Regexp {
	return regexp.MustCompile(expr)
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
