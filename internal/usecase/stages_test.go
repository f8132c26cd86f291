package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SentinelAI/internal/domain"
)

func TestShouldFilter(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		text string
		want bool
	}{
		{"pure sports is filtered", "local team wins championship", true},
		{"security context suppresses filter", "football stadium evacuated after bomb threat", false},
		{"single hit below threshold", "the team announced a new policy", false},
		{"security news untouched", "police respond to shooting near parliament", false},
		{"entertainment is filtered", "concert festival lineup announced for the season", true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, reason := shouldFilter(tc.text, 2, 12)
			assert.Equal(t, tc.want, got)
			if tc.want {
				assert.NotEmpty(t, reason)
			} else {
				assert.Empty(t, reason)
			}
		})
	}
}

func TestShouldFilterZeroConfigFallsBackToDefaults(t *testing.T) {
	t.Parallel()

	got, _ := shouldFilter("local team wins championship", 0, 0)
	assert.True(t, got)
}

func TestSplitLocation(t *testing.T) {
	t.Parallel()

	cases := []struct {
		raw     string
		city    string
		country string
		ok      bool
	}{
		{"Paris, FR", "Paris", "FR", true},
		{"  Lagos ,  Nigeria ", "Lagos", "Nigeria", true},
		{"Germany", "", "Germany", true},
		{"", "", "", false},
		{" , ", "", "", false},
	}

	for _, tc := range cases {
		city, country, ok := splitLocation(tc.raw)
		assert.Equal(t, tc.ok, ok, "raw %q", tc.raw)
		assert.Equal(t, tc.city, city, "raw %q", tc.raw)
		assert.Equal(t, tc.country, country, "raw %q", tc.raw)
	}
}

func TestLocationStageCachesLiveResults(t *testing.T) {
	t.Parallel()

	geocoder := &fakeGeocoder{lat: 6.4541, lon: 3.3947, found: true}
	cache := newMemCache()
	stage := locationStage(StageDeps{Cache: cache, Geocoder: geocoder})

	alert := testAlert()
	alert.Location = "Lagos, NG"

	run := func() *domain.EnrichmentContext {
		ec := domain.NewEnrichmentContext(alert)
		require.NoError(t, stage.Run(context.Background(), ec))
		return ec
	}

	first := run()
	assert.InDelta(t, 0.8, first.LocationConfidence, 1e-9, "live geocode confidence")
	assert.Equal(t, 1, geocoder.calls)

	second := run()
	assert.InDelta(t, 0.9, second.LocationConfidence, 1e-9, "cache hit confidence")
	assert.Equal(t, 1, geocoder.calls, "second run must be served from cache")
	assert.InDelta(t, 6.4541, second.Latitude, 1e-9)
}

func TestLocationStageUnknownPlace(t *testing.T) {
	t.Parallel()

	stage := locationStage(StageDeps{Geocoder: &fakeGeocoder{found: false}})
	ec := domain.NewEnrichmentContext(testAlert())

	require.NoError(t, stage.Run(context.Background(), ec))
	assert.InDelta(t, 0.2, ec.LocationConfidence, 1e-9)
	assert.Zero(t, ec.Latitude)
}

func TestLocationStageNoGeocoderConfigured(t *testing.T) {
	t.Parallel()

	stage := locationStage(StageDeps{})
	ec := domain.NewEnrichmentContext(testAlert())

	require.NoError(t, stage.Run(context.Background(), ec))
	assert.Equal(t, "Paris", ec.City)
	assert.Equal(t, "FR", ec.Country)
	assert.InDelta(t, 0.3, ec.LocationConfidence, 1e-9)
}

func TestCategoryStage(t *testing.T) {
	t.Parallel()

	cases := []struct {
		text string
		want string
	}{
		{"bomb found near embassy", "terrorism"},
		{"ransomware hits hospital network", "cyber"},
		{"shooting reported downtown", "crime"},
		{"riot breaks out after verdict", "civil_unrest"},
		{"earthquake strikes coastal region", "natural_disaster"},
		{"cholera outbreak spreads", "health"},
		{"municipal budget approved", "general"},
	}

	stage := categoryStage(StageDeps{})
	for _, tc := range cases {
		alert := testAlert()
		alert.Title = tc.text
		alert.Body = ""
		ec := domain.NewEnrichmentContext(alert)
		require.NoError(t, stage.Run(context.Background(), ec))
		assert.Equal(t, tc.want, ec.Category, "text %q", tc.text)
	}
}

func TestBaselineMetricsDropsZeroRows(t *testing.T) {
	t.Parallel()

	repo := &fakeRepo{baseline: map[string]int{"terrorism": 3, "cyber": 0, "crime": 1}}
	stage := baselineMetricsStage(StageDeps{Repository: repo})

	ec := domain.NewEnrichmentContext(testAlert())
	ec.Country = "FR"
	require.NoError(t, stage.Run(context.Background(), ec))

	assert.Equal(t, map[string]int{"terrorism": 3, "crime": 1}, ec.Baseline)
}

func TestBaselineMetricsAllZeroMeansNoBaseline(t *testing.T) {
	t.Parallel()

	repo := &fakeRepo{baseline: map[string]int{"cyber": 0}}
	stage := baselineMetricsStage(StageDeps{Repository: repo})

	ec := domain.NewEnrichmentContext(testAlert())
	ec.Country = "FR"
	require.NoError(t, stage.Run(context.Background(), ec))

	assert.Nil(t, ec.Baseline)
}

func TestParseScore(t *testing.T) {
	t.Parallel()

	got, err := parseScore("The threat rating is 75 out of 100.")
	require.NoError(t, err)
	assert.InDelta(t, 75, got, 1e-9)

	got, err = parseScore("0.42")
	require.NoError(t, err)
	assert.InDelta(t, 0.42, got, 1e-9)

	_, err = parseScore("I cannot assess this")
	assert.Error(t, err)
}

func TestKeywordThreatScore(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 0.9, keywordThreatScore(domain.Alert{Title: "bomb threat at station"}), 1e-9)
	assert.InDelta(t, 0.4, keywordThreatScore(domain.Alert{Title: "protest planned downtown"}), 1e-9)
	assert.InDelta(t, 0.1, keywordThreatScore(domain.Alert{Title: "city council meets"}), 1e-9, "floor when nothing matches")
}

func TestTruncateCutsOnWordBoundary(t *testing.T) {
	t.Parallel()

	got := truncate("alpha beta gamma delta", 16)
	assert.Equal(t, "alpha beta…", got)

	assert.Equal(t, "short", truncate("short", 80))
	assert.Equal(t, "unbounded", truncate("unbounded", 0))
}

func TestDomainDetectionStage(t *testing.T) {
	t.Parallel()

	stage := domainDetectionStage(StageDeps{})

	alert := testAlert()
	alert.Title = "bomb attack disrupts airport power grid"
	alert.Body = ""
	ec := domain.NewEnrichmentContext(alert)
	ec.Category = "terrorism"
	require.NoError(t, stage.Run(context.Background(), ec))
	assert.Equal(t, []string{"physical_security", "infrastructure"}, ec.Domains)

	alert.Title = "quarterly earnings release"
	ec = domain.NewEnrichmentContext(alert)
	require.NoError(t, stage.Run(context.Background(), ec))
	assert.Equal(t, []string{"general"}, ec.Domains, "no match defaults to general")
}
