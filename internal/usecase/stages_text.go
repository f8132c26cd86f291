package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"SentinelAI/internal/domain"
	"SentinelAI/internal/provider"
)

// llmSummaryStage produces a bounded operator summary via the routed
// provider, degrading to a truncation of the raw text when no provider
// is available.
func llmSummaryStage(deps StageDeps) Stage {
	maxChars := deps.Config.SummaryMaxChars
	return Stage{
		Name:     "llm_summary",
		Critical: false,
		Run: func(ctx context.Context, ec *domain.EnrichmentContext) error {
			prompt := fmt.Sprintf(
				"Summarize this security alert in at most two sentences for an operations analyst.\n\nTitle: %s\n\n%s",
				ec.Alert.Title, truncate(ec.Alert.Body, 4000))

			text, err := deps.complete(ctx, provider.TaskEnrichment, prompt)
			if errors.Is(err, domain.ErrNoProviderAvailable) {
				ec.Summary = fallbackSummary(ec.Alert, maxChars)
				ec.SummaryFallback = true
				return nil
			}
			if err != nil {
				return err
			}

			text = strings.TrimSpace(text)
			if text == "" {
				return fmt.Errorf("provider returned empty summary")
			}
			ec.Summary = truncate(text, maxChars)
			return nil
		},
		Default: func(ec *domain.EnrichmentContext) {
			ec.Summary = fallbackSummary(ec.Alert, maxChars)
			ec.SummaryFallback = true
		},
	}
}

func fallbackSummary(alert domain.Alert, maxChars int) string {
	text := strings.TrimSpace(alert.Title)
	if body := strings.TrimSpace(alert.Body); body != "" {
		text += ": " + body
	}
	return truncate(text, maxChars)
}

// categoryRules map lexicon hits onto alert categories; first match in
// order wins, so more specific categories sit higher.
var categoryRules = []struct {
	category string
	keywords []string
}{
	{"terrorism", []string{"terror", "terrorism", "bomb", "bombing", "hostage", "ied"}},
	{"cyber", []string{"cyberattack", "ransomware", "malware", "breach", "phishing", "ddos"}},
	{"crime", []string{"shooting", "murder", "kidnapping", "robbery", "gunfire", "assault"}},
	{"civil_unrest", []string{"riot", "protest", "unrest", "strike", "curfew", "demonstration"}},
	{"natural_disaster", []string{"earthquake", "flood", "hurricane", "wildfire", "storm", "tsunami"}},
	{"health", []string{"outbreak", "epidemic", "pandemic", "contamination", "quarantine"}},
}

// categoryStage assigns one category from the keyword rules; alerts with
// no match land in "general" so the category is never empty.
func categoryStage(deps StageDeps) Stage {
	return Stage{
		Name:     "category",
		Critical: false,
		Run: func(ctx context.Context, ec *domain.EnrichmentContext) error {
			tokens := map[string]bool{}
			for _, t := range tokenize(ec.Alert.Title + " " + ec.Alert.Body) {
				tokens[t] = true
			}
			for _, rule := range categoryRules {
				for _, kw := range rule.keywords {
					if tokens[kw] {
						ec.Category = rule.category
						return nil
					}
				}
			}
			ec.Category = "general"
			return nil
		},
		Default: func(ec *domain.EnrichmentContext) {
			ec.Category = "general"
		},
	}
}

// sportsKeywords trigger the sports/entertainment content filter.
var sportsKeywords = map[string]bool{
	"football":     true,
	"soccer":       true,
	"basketball":   true,
	"baseball":     true,
	"stadium":      true,
	"match":        true,
	"team":         true,
	"championship": true,
	"league":       true,
	"tournament":   true,
	"player":       true,
	"coach":        true,
	"season":       true,
	"wins":         true,
	"concert":      true,
	"festival":     true,
	"celebrity":    true,
	"premiere":     true,
}

// securityContextTerms suppress a sports keyword hit when they appear
// within the configured token window, so "football stadium evacuated
// after bomb threat" is never filtered away.
var securityContextTerms = map[string]bool{
	"security":   true,
	"bomb":       true,
	"threat":     true,
	"attack":     true,
	"evacuated":  true,
	"evacuation": true,
	"shooting":   true,
	"explosion":  true,
	"riot":       true,
	"stampede":   true,
	"police":     true,
}

// contentFilterStage marks pure sports/entertainment items as filtered
// using keyword-threshold matching with a security-context override.
func contentFilterStage(deps StageDeps) Stage {
	threshold := deps.Config.ContentFilter.KeywordThreshold
	window := deps.Config.ContentFilter.SecurityWindow
	return Stage{
		Name:     "content_filter",
		Critical: false,
		Run: func(ctx context.Context, ec *domain.EnrichmentContext) error {
			filtered, reason := shouldFilter(ec.Alert.Title+" "+ec.Alert.Body, threshold, window)
			ec.Filtered = filtered
			ec.FilterReason = reason
			return nil
		},
		Default: func(ec *domain.EnrichmentContext) {
			ec.Filtered = false
			ec.FilterReason = ""
		},
	}
}

// shouldFilter counts sports keyword hits, discarding any hit that has a
// security-context term within the token window on either side.
func shouldFilter(text string, threshold, window int) (bool, string) {
	if threshold <= 0 {
		threshold = 2
	}
	if window <= 0 {
		window = 12
	}

	tokens := tokenize(text)
	hits := 0
	for i, token := range tokens {
		if !sportsKeywords[token] {
			continue
		}
		if securityNearby(tokens, i, window) {
			// Legitimate security alert in a sports setting.
			return false, ""
		}
		hits++
	}
	if hits >= threshold {
		return true, fmt.Sprintf("sports/entertainment content (%d keyword hits)", hits)
	}
	return false, ""
}

func securityNearby(tokens []string, idx, window int) bool {
	lo := idx - window
	if lo < 0 {
		lo = 0
	}
	hi := idx + window
	if hi >= len(tokens) {
		hi = len(tokens) - 1
	}
	for i := lo; i <= hi; i++ {
		if securityContextTerms[tokens[i]] {
			return true
		}
	}
	return false
}

// domainRules map categories and extra keywords onto threat domains.
var domainRules = []struct {
	domain   string
	category string
	keywords []string
}{
	{"physical_security", "terrorism", []string{"bomb", "shooting", "attack", "hostage"}},
	{"cybersecurity", "cyber", []string{"ransomware", "malware", "breach", "ddos"}},
	{"public_safety", "crime", []string{"riot", "stampede", "evacuated", "curfew"}},
	{"infrastructure", "", []string{"power", "grid", "pipeline", "outage", "airport", "railway"}},
	{"public_health", "health", []string{"outbreak", "epidemic", "quarantine"}},
	{"geopolitical", "civil_unrest", []string{"sanctions", "border", "military", "coup"}},
}

// domainDetectionStage derives the set of threat domains an alert touches.
func domainDetectionStage(deps StageDeps) Stage {
	return Stage{
		Name:     "domain_detection",
		Critical: false,
		Run: func(ctx context.Context, ec *domain.EnrichmentContext) error {
			tokens := map[string]bool{}
			for _, t := range tokenize(ec.Alert.Title + " " + ec.Alert.Body) {
				tokens[t] = true
			}

			var domains []string
			for _, rule := range domainRules {
				matched := rule.category != "" && rule.category == ec.Category
				if !matched {
					for _, kw := range rule.keywords {
						if tokens[kw] {
							matched = true
							break
						}
					}
				}
				if matched {
					domains = append(domains, rule.domain)
				}
			}
			if len(domains) == 0 {
				domains = []string{"general"}
			}
			ec.Domains = domains
			return nil
		},
		Default: func(ec *domain.EnrichmentContext) {
			ec.Domains = []string{"general"}
		},
	}
}
