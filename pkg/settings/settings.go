// Package settings loads the tunables of the photo stack.
package settings

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"k8s.io/klog/v2"

	"github.com/tstromberg/albumstack/pkg/decode"
	"github.com/tstromberg/albumstack/pkg/imgcache"
	"github.com/tstromberg/albumstack/pkg/stack"
	"github.com/tstromberg/albumstack/pkg/transition"
)

// EnvPrefix prefixes environment overrides, e.g. ALBUMSTACK_CACHE_SIZE.
const EnvPrefix = "ALBUMSTACK"

// Settings are the resolved tunables.
type Settings struct {
	CacheSize int
	Stale     stack.StalePolicy
	Failure   stack.FailurePolicy

	Enter time.Duration
	Exit  time.Duration

	ThumbSize    int
	SwatchWidth  int
	SwatchHeight int

	// SwatchDelay is how long the built-in album takes to decode a full image.
	SwatchDelay time.Duration
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("cache.size", imgcache.DefaultSize)
	v.SetDefault("swap.stale", stack.SkipStale.String())
	v.SetDefault("swap.failure", stack.ReportFailures.String())
	v.SetDefault("transition.enter", transition.DefaultEnter)
	v.SetDefault("transition.exit", transition.DefaultExit)
	v.SetDefault("thumbnail.size", decode.DefaultThumbSize)
	v.SetDefault("swatch.width", decode.DefaultSwatchWidth)
	v.SetDefault("swatch.height", decode.DefaultSwatchHeight)
	v.SetDefault("swatch.delay", time.Duration(0))
}

// Load resolves settings. Environment variables win over the file at path, which wins over defaults.
// An empty path skips the file.
func Load(path string) (*Settings, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		klog.Infof("using config file: %s", v.ConfigFileUsed())
	}

	return decodeSettings(v)
}

func decodeSettings(v *viper.Viper) (*Settings, error) {
	stale, err := stack.ParseStalePolicy(v.GetString("swap.stale"))
	if err != nil {
		return nil, fmt.Errorf("swap.stale: %w", err)
	}
	failure, err := stack.ParseFailurePolicy(v.GetString("swap.failure"))
	if err != nil {
		return nil, fmt.Errorf("swap.failure: %w", err)
	}

	s := &Settings{
		CacheSize:    v.GetInt("cache.size"),
		Stale:        stale,
		Failure:      failure,
		Enter:        v.GetDuration("transition.enter"),
		Exit:         v.GetDuration("transition.exit"),
		ThumbSize:    v.GetInt("thumbnail.size"),
		SwatchWidth:  v.GetInt("swatch.width"),
		SwatchHeight: v.GetInt("swatch.height"),
		SwatchDelay:  v.GetDuration("swatch.delay"),
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate reports settings that cannot be used.
func (s *Settings) Validate() error {
	var errs []error
	if s.CacheSize <= 0 {
		errs = append(errs, fmt.Errorf("cache.size must be positive, got %d", s.CacheSize))
	}
	if s.Enter <= 0 {
		errs = append(errs, fmt.Errorf("transition.enter must be positive, got %s", s.Enter))
	}
	if s.Exit <= 0 {
		errs = append(errs, fmt.Errorf("transition.exit must be positive, got %s", s.Exit))
	}
	if s.ThumbSize <= 0 {
		errs = append(errs, fmt.Errorf("thumbnail.size must be positive, got %d", s.ThumbSize))
	}
	if s.SwatchWidth <= 0 || s.SwatchHeight <= 0 {
		errs = append(errs, fmt.Errorf("swatch size must be positive, got %dx%d", s.SwatchWidth, s.SwatchHeight))
	}
	if s.SwatchDelay < 0 {
		errs = append(errs, fmt.Errorf("swatch.delay must not be negative, got %s", s.SwatchDelay))
	}
	return errors.Join(errs...)
}

// Timer returns the transition animator for these settings.
func (s *Settings) Timer() transition.Timer {
	return transition.Timer{Enter: s.Enter, Exit: s.Exit}
}
