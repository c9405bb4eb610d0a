// Package config holds the injected configuration struct referenced by
// the Design Notes' "globals for console, logger, config" rearchitecture:
// every tunable the original source kept as a process-wide singleton is a
// field here instead, passed explicitly to the components that need it.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// TitlePolicy is the renamer's preferred-title policy.
type TitlePolicy string

const (
	TitlePolicyEnglish   TitlePolicy = "english"
	TitlePolicyRomanized TitlePolicy = "romanized"
	TitlePolicyNative    TitlePolicy = "native"
	TitlePolicyFolder    TitlePolicy = "folder"
)

// Config is the single configuration struct threaded through the core.
type Config struct {
	// LibraryRoot is the absolute path to the four-level manga hierarchy.
	LibraryRoot string `env:"VIBEMANGA_LIBRARY_ROOT"`

	// WorkerPoolSize bounds the scanner's and deduper's fixed-size
	// parallel worker pools. Zero means "use runtime.GOMAXPROCS(0)".
	WorkerPoolSize int `env:"VIBEMANGA_WORKER_POOL_SIZE" envDefault:"0"`

	// CacheMaxAge controls how long a fast cache snapshot may be reused
	// without re-validating every volume's (size, mtime).
	CacheMaxAge time.Duration `env:"VIBEMANGA_CACHE_MAX_AGE" envDefault:"3000s"`

	// FuzzyThreshold is the minimum Jaccard/LCS score the matcher accepts
	// as a fuzzy match.
	FuzzyThreshold float64 `env:"VIBEMANGA_FUZZY_THRESHOLD" envDefault:"0.90"`

	// FuzzyRefineThreshold is the LCS-ratio score a candidate pair must
	// clear for that refined score to replace the coarser Jaccard score
	// (word-level Jaccard under-counts titles that differ only by a
	// dropped decorative connector token).
	FuzzyRefineThreshold float64 `env:"VIBEMANGA_FUZZY_REFINE_THRESHOLD" envDefault:"0.80"`

	// UndersizedVolumeBytes is the threshold below which a Manga-typed
	// parse with a volume range becomes Undersized.
	UndersizedVolumeBytes int64 `env:"VIBEMANGA_UNDERSIZED_VOLUME_BYTES" envDefault:"36700160"`

	// UndersizedChapterBytes is the threshold below which a Manga-typed
	// parse with only a chapter range becomes Undersized.
	UndersizedChapterBytes int64 `env:"VIBEMANGA_UNDERSIZED_CHAPTER_BYTES" envDefault:"4194304"`

	// MaxRangeSpan is the largest accepted (high - low) for a parsed
	// volume/chapter range.
	MaxRangeSpan int `env:"VIBEMANGA_MAX_RANGE_SPAN" envDefault:"200"`

	// YearWindowLow/YearWindowHigh bound the integers elided as years.
	YearWindowLow  int `env:"VIBEMANGA_YEAR_WINDOW_LOW" envDefault:"1900"`
	YearWindowHigh int `env:"VIBEMANGA_YEAR_WINDOW_HIGH" envDefault:"2150"`

	// NoisePhrases is the release-noise vocabulary stripped during
	// parsing. Each phrase is matched literally (regexp.QuoteMeta'd); a
	// release-version tag immediately following one ("Complete Edition
	// v2") is swallowed along with it, since that v\d+ names a scan
	// revision, not a volume. Fixed data, not code, per Design Notes'
	// open question.
	NoisePhrases []string `env:"-"`

	// NoiseRegexPatterns is release-noise vocabulary that is itself a
	// regular expression rather than a literal phrase (season markers).
	// Compiled verbatim, not quoted.
	NoiseRegexPatterns []string `env:"-"`

	// ProtectedTokens is the list of numeral-bearing title shibboleths
	// masked before number extraction.
	ProtectedTokens []string `env:"-"`

	// TitlePreference is the renamer's preferred title source.
	TitlePreference TitlePolicy `env:"VIBEMANGA_TITLE_PREFERENCE" envDefault:"english"`
}

// Default constructs a Config with the defaults named in spec §9, mirroring
// the teacher's DefaultClientOptions/DefaultDownloadOptions constructors.
func Default() Config {
	return Config{
		WorkerPoolSize:         0,
		CacheMaxAge:            3000 * time.Second,
		FuzzyThreshold:         0.90,
		FuzzyRefineThreshold:   0.80,
		UndersizedVolumeBytes:  35 * 1024 * 1024,
		UndersizedChapterBytes: 4 * 1024 * 1024,
		MaxRangeSpan:           200,
		YearWindowLow:          1900,
		YearWindowHigh:         2150,
		NoisePhrases: []string{
			"complete edition",
			"special issue",
			"official",
			"digital",
			"colored",
		},
		NoiseRegexPatterns: []string{
			`season\s+\d+`,
		},
		ProtectedTokens: []string{
			"kaiju no. 8",
		},
		TitlePreference: TitlePolicyEnglish,
	}
}

// Load reads a Config from the environment, seeding it with Default()
// first so unset fields keep their spec-mandated defaults.
func Load() (Config, error) {
	cfg := Default()
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: failed to parse environment variables: %w", err)
	}
	return cfg, nil
}
