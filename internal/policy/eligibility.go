// internal/policy/eligibility.go
package policy

import (
	"regexp"
	"sync"

	"github.com/unclebandit/dialer-campaign-backend/internal/model"
)

var (
	patternsMu sync.RWMutex
	patterns   = map[string]*regexp.Regexp{}
)

// IsAuthorized applies the account whitelist then blacklist to a phone number.
// A number matching both lists is authorized. Patterns that do not compile are ignored.
func IsAuthorized(phone string, settings *model.AccountSettings) bool {
	if settings == nil {
		return true
	}
	if re := compile(settings.Whitelist); re != nil && re.MatchString(phone) {
		return true
	}
	if re := compile(settings.Blacklist); re != nil && re.MatchString(phone) {
		return false
	}
	return true
}

// ValidPattern reports whether a whitelist/blacklist expression compiles.
func ValidPattern(expr string) bool {
	if expr == "" {
		return true
	}
	_, err := regexp.Compile(expr)
	return err == nil
}

func compile(expr string) *regexp.Regexp {
	if expr == "" {
		return nil
	}
	patternsMu.RLock()
	re, ok := patterns[expr]
	patternsMu.RUnlock()
	if ok {
		return re
	}

	re, err := regexp.Compile(expr)
	if err != nil {
		re = nil
	}
	patternsMu.Lock()
	patterns[expr] = re
	patternsMu.Unlock()
	return re
}
