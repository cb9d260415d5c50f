package service

import (
	"strconv"
	"strings"

	"github.com/unclebandit/dialer-campaign-backend/internal/model"
)

// RenderTemplate replaces {key} placeholders with values from data. Unknown placeholders are left as-is.
// Substituted values are never rescanned.
func RenderTemplate(template string, data map[string]string) string {
	if !strings.Contains(template, "{") {
		return template
	}
	var b strings.Builder
	b.Grow(len(template))
	rest := template
	for {
		start := strings.IndexByte(rest, '{')
		if start < 0 {
			break
		}
		end := strings.IndexByte(rest[start+1:], '}')
		if end < 0 {
			break
		}
		end += start + 1
		if v, ok := data[rest[start+1:end]]; ok {
			b.WriteString(rest[:start])
			b.WriteString(v)
			rest = rest[end+1:]
			continue
		}
		b.WriteString(rest[:start+1])
		rest = rest[start+1:]
	}
	b.WriteString(rest)
	return b.String()
}

// dialVars is what answer_url and extra_data may reference: the contact's additional vars
// plus {contact}, {subscriber_id} and {campaign_id}.
func dialVars(c model.DispatchCandidate) map[string]string {
	vars := make(map[string]string, len(c.AdditionalVars)+3)
	for k, v := range c.AdditionalVars {
		vars[k] = v
	}
	vars["contact"] = c.Subscriber.DuplicateContact
	vars["subscriber_id"] = strconv.Itoa(c.Subscriber.ID)
	vars["campaign_id"] = strconv.Itoa(c.Subscriber.CampaignID)
	return vars
}
