package rails

import (
	"fmt"
	"regexp"
	"strings"
)

// Entity types recognised by the sensitive data flows.
const (
	EntityEmail      = "EMAIL"
	EntityPhone      = "PHONE"
	EntitySSN        = "SSN"
	EntityCreditCard = "CC"
	EntityIPAddress  = "IP"
)

type piiPattern struct {
	entity  string
	pattern *regexp.Regexp
}

// piiPatterns lists detectors in application order. Card numbers run before
// phone numbers so a card is never partially masked as a phone.
var piiPatterns = []piiPattern{
	{entity: EntityEmail, pattern: regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)},
	{entity: EntityCreditCard, pattern: regexp.MustCompile(`\b\d{4}[\s\-]?\d{4}[\s\-]?\d{4}[\s\-]?\d{4}\b`)},
	{entity: EntitySSN, pattern: regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`)},
	{entity: EntityPhone, pattern: regexp.MustCompile(`(?:\+1[\s.\-]?)?(?:\(\d{3}\)|\b\d{3})[\s.\-]?\d{3}[\s.\-]?\d{4}\b`)},
	{entity: EntityIPAddress, pattern: regexp.MustCompile(`\b(?:(?:25[0-5]|2[0-4][0-9]|[01]?[0-9][0-9]?)\.){3}(?:25[0-5]|2[0-4][0-9]|[01]?[0-9][0-9]?)\b`)},
}

// piiPatternsFor returns the detectors for entities, keeping application
// order. An empty list selects every detector.
func piiPatternsFor(entities []string) ([]piiPattern, error) {
	if len(entities) == 0 {
		return piiPatterns, nil
	}
	wanted := map[string]struct{}{}
	for _, e := range entities {
		e = strings.ToUpper(strings.TrimSpace(e))
		known := false
		for _, p := range piiPatterns {
			if p.entity == e {
				known = true
				break
			}
		}
		if !known {
			return nil, fmt.Errorf("unknown sensitive data entity %q", e)
		}
		wanted[e] = struct{}{}
	}
	out := make([]piiPattern, 0, len(wanted))
	for _, p := range piiPatterns {
		if _, ok := wanted[p.entity]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

// maskPII replaces every match with <ENTITY> and reports which entities were found.
func maskPII(text string, patterns []piiPattern) (string, []string) {
	var found []string
	for _, p := range patterns {
		if !p.pattern.MatchString(text) {
			continue
		}
		found = append(found, p.entity)
		text = p.pattern.ReplaceAllString(text, "<"+p.entity+">")
	}
	return text, found
}
