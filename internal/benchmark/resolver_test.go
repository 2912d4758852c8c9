package benchmark

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/radiusdt/mediaplan/internal/currency"
	"github.com/radiusdt/mediaplan/internal/geo"
	"github.com/radiusdt/mediaplan/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRecorder struct {
	keys  []string
	tiers []string
}

func (f *fakeRecorder) RecordBenchmarkResolution(channelKey, tier string) {
	f.keys = append(f.keys, channelKey)
	f.tiers = append(f.tiers, tier)
}

func newTestResolver(t *testing.T) *Resolver {
	t.Helper()
	set := DefaultSet()
	require.NoError(t, set.Validate())
	return NewResolver(set, currency.DefaultTable(), nil)
}

func TestResolveComposesMultipliers(t *testing.T) {
	r := newTestResolver(t)

	res := r.Resolve(Query{
		Channel:  "Facebook",
		Vertical: models.VerticalGaming,
		Geo:      "US",
		Platform: models.PlatformAndroid,
		Currency: "USD",
	})
	assert.Equal(t, "facebook", res.ChannelKey)
	assert.Equal(t, 2.7, res.CTR)
	assert.Equal(t, 3.9, res.CRInstall)
	assert.Equal(t, 2.9, res.CPI)
	assert.Equal(t, geo.TierCountry, res.GeoTier)
	assert.False(t, res.NoImpressionData)
}

func TestResolveFinanceCPIFactor(t *testing.T) {
	r := newTestResolver(t)

	q := Query{Channel: "facebook", Geo: "US", Platform: models.PlatformAndroid, Currency: "USD"}

	q.Vertical = models.VerticalOther
	assert.Equal(t, 5.9, r.Resolve(q).CPI)

	q.Vertical = models.VerticalFinance
	assert.Equal(t, 9.2, r.Resolve(q).CPI)
}

func TestResolvePlatform(t *testing.T) {
	r := newTestResolver(t)

	q := Query{Channel: "facebook", Vertical: models.VerticalOther, Geo: "US", Currency: "USD"}

	q.Platform = models.PlatformIOS
	ios := r.Resolve(q)
	assert.Equal(t, 1.88, ios.CTR)
	assert.InDelta(t, 2.55, ios.CRInstall, 0.011)
	assert.Equal(t, 14.7, ios.CPI)

	q.Platform = models.PlatformAndroid
	android := r.Resolve(q)
	q.Platform = "AppGallery"
	assert.Equal(t, android, r.Resolve(q), "unknown platforms fall back to Android")
}

func TestResolveUnknownVerticalUsesOther(t *testing.T) {
	r := newTestResolver(t)

	q := Query{Channel: "unity", Vertical: models.VerticalOther, Geo: "DE", Platform: models.PlatformAndroid}
	want := r.Resolve(q)
	q.Vertical = "crypto"
	assert.Equal(t, want, r.Resolve(q))
}

func TestResolveCurrency(t *testing.T) {
	r := newTestResolver(t)

	q := Query{Channel: "Xiaomi", Vertical: models.VerticalOther, Geo: "US", Platform: models.PlatformAndroid}

	q.Currency = "USD"
	usd := r.Resolve(q)
	assert.Equal(t, 2.4, usd.CPI)
	assert.Equal(t, 1.2, usd.CTR)
	assert.Equal(t, 2.5, usd.CRInstall)

	q.Currency = "RUB"
	rub := r.Resolve(q)
	assert.Equal(t, 225.6, rub.CPI)
	assert.Equal(t, usd.CTR, rub.CTR, "ratios are currency independent")

	q.Currency = "XYZ"
	assert.Equal(t, usd.CPI, r.Resolve(q).CPI, "unsupported currency counts as USD")
}

func TestChannelMatching(t *testing.T) {
	r := newTestResolver(t)

	tests := []struct {
		text string
		want string
	}{
		{"Xiaomi", "xiaomi"},
		{"  Xiaomi CoDev ", "xiaomi"},
		{"Google Ads UAC", "google"},
		{"TikTok for Business", "tiktok"},
		{"Appnext", "appnext"},
		{"X (Twitter)", "twitter"},
		{"Some Network", DefaultChannelKey},
		{"", DefaultChannelKey},
	}
	for _, tt := range tests {
		key, _ := r.Channel(tt.text)
		assert.Equal(t, tt.want, key, "Channel(%q)", tt.text)
	}

	_, m := r.Channel("Some Network")
	assert.Equal(t, DefaultSet().Default, m)
}

func TestGeoTiersFlowIntoResolution(t *testing.T) {
	r := newTestResolver(t)

	q := Query{Channel: "unity", Vertical: models.VerticalOther, Platform: models.PlatformAndroid}

	q.Geo = ""
	assert.Equal(t, geo.TierNeutral, r.Resolve(q).GeoTier)
	q.Geo = "KZ"
	assert.Equal(t, geo.TierRegion, r.Resolve(q).GeoTier)
	q.Geo = "KI"
	assert.Equal(t, geo.TierRest, r.Resolve(q).GeoTier)

	q.Geo = ""
	neutral := r.Resolve(q)
	q.Geo = "US"
	assert.Equal(t, neutral.CTR, r.Resolve(q).CTR, "unset GEO behaves like the reference market")
}

func TestIsNoImpression(t *testing.T) {
	r := newTestResolver(t)

	assert.True(t, r.IsNoImpression("xiaomi_codev", "Xiaomi CoDev"))
	assert.True(t, r.IsNoImpression("", "xiaomi codev"))
	assert.False(t, r.IsNoImpression("xiaomi", "Xiaomi"))
	assert.False(t, r.IsNoImpression("", ""))

	res := r.Resolve(Query{Channel: "Xiaomi CoDev"})
	assert.True(t, res.NoImpressionData)
}

func TestResolveRecordsMetrics(t *testing.T) {
	rec := &fakeRecorder{}
	r := NewResolver(DefaultSet(), currency.DefaultTable(), rec)

	r.Resolve(Query{Channel: "vk", Geo: "RU"})
	r.Resolve(Query{Channel: "unknown"})

	assert.Equal(t, []string{"vk", DefaultChannelKey}, rec.keys)
	assert.Equal(t, []string{string(geo.TierCountry), string(geo.TierNeutral)}, rec.tiers)
}

func TestSubstitutedSet(t *testing.T) {
	set := Set{
		Channels: []ChannelBenchmark{
			{Key: "acme", Multiplier: models.Multiplier{CTR: 2, CRInstall: 4, CPI: 1}},
		},
		Default:   models.Multiplier{CTR: 1, CRInstall: 1, CPI: 1},
		Verticals: map[models.Vertical]models.Multiplier{models.VerticalOther: models.Neutral},
		Platforms: map[models.Platform]models.Multiplier{models.PlatformAndroid: models.Neutral},
		Geo: geo.Tables{
			Regions: map[string]models.Multiplier{geo.RegionRest: {CTR: 0.5, CRInstall: 0.5, CPI: 0.5}},
		},
		CPIFactor:        1,
		FinanceCPIFactor: 1,
	}
	require.NoError(t, set.Validate())
	r := NewResolver(set, currency.DefaultTable(), nil)

	res := r.Resolve(Query{Channel: "ACME Ads", Geo: "FR"})
	assert.Equal(t, "acme", res.ChannelKey)
	assert.Equal(t, 1.0, res.CTR)
	assert.Equal(t, 2.0, res.CRInstall)
	assert.Equal(t, 0.5, res.CPI)
	assert.Equal(t, geo.TierRest, res.GeoTier)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "benchmarks.yaml")
	data := `
channels:
  - key: acme
    ctr: 2
    cr_install: 4
    cpi: 3
cpi_factor: 1
no_impression_channels: [acme_direct]
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	set, err := LoadFile(path)
	require.NoError(t, err)
	require.Len(t, set.Channels, 1)
	assert.Equal(t, "acme", set.Channels[0].Key)
	assert.Equal(t, 4.0, set.Channels[0].CRInstall)
	assert.Equal(t, 1.0, set.CPIFactor)
	assert.Equal(t, 1.47, set.FinanceCPIFactor, "missing sections keep built-in values")
	assert.Equal(t, DefaultSet().Verticals, set.Verticals)

	r := NewResolver(set, currency.DefaultTable(), nil)
	res := r.Resolve(Query{Channel: "acme", Vertical: models.VerticalOther, Geo: "US"})
	assert.Equal(t, 3.0, res.CPI)
	assert.True(t, r.IsNoImpression("acme_direct", ""))
}

func TestLoadFileErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadFile(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	dup := filepath.Join(dir, "dup.yaml")
	require.NoError(t, os.WriteFile(dup, []byte("channels:\n  - key: a\n  - key: a\n"), 0o644))
	_, err = LoadFile(dup)
	assert.ErrorIs(t, err, ErrInvalidSet)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("channels: [\n"), 0o644))
	_, err = LoadFile(bad)
	assert.Error(t, err)
}

func TestDefaultSetValid(t *testing.T) {
	set := DefaultSet()
	require.NoError(t, set.Validate())

	set.Channels = append(set.Channels, ChannelBenchmark{Key: DefaultChannelKey})
	assert.ErrorIs(t, set.Validate(), ErrInvalidSet)

	set = DefaultSet()
	delete(set.Verticals, models.VerticalOther)
	assert.ErrorIs(t, set.Validate(), ErrInvalidSet)
}
