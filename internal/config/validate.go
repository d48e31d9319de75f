// SPDX-License-Identifier: MIT
package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"specvis/internal/analysis"
	applog "specvis/internal/log"
	"specvis/pkg/bitint"

	"github.com/go-playground/validator/v10"
)

// validate is the shared validator instance. Field names in messages follow
// the YAML keys.
var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("yaml"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
}

// Validate checks field ranges and the relations between fields. All
// problems are reported together.
func (c *Config) Validate() error {
	var errs []error

	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		for _, e := range verrs {
			errs = append(errs, fmt.Errorf("%s %s", fieldPath(e), formatValidationMessage(e)))
		}
	}

	errs = append(errs, c.crossFieldErrors()...)
	return errors.Join(errs...)
}

func (c *Config) crossFieldErrors() []error {
	var errs []error
	a := &c.Analysis

	if c.LogLevel != "" {
		if _, ok := applog.ParseLevel(c.LogLevel); !ok {
			errs = append(errs, fmt.Errorf("log_level '%s' is not one of debug, info, warn, error, fatal", c.LogLevel))
		}
	}
	if c.Loop && c.Input == "" {
		errs = append(errs, errors.New("loop requires an input file"))
	}
	if _, err := analysis.ParseWindowFunc(a.Window); err != nil {
		errs = append(errs, fmt.Errorf("analysis.window: %w", err))
	}
	if a.MaxFreq <= a.MinFreq {
		errs = append(errs, fmt.Errorf("analysis.max_freq (%.1f) must be greater than analysis.min_freq (%.1f)", a.MaxFreq, a.MinFreq))
	}
	if c.Audio.SampleRate > 0 && a.MaxFreq > c.Audio.SampleRate/2 {
		errs = append(errs, fmt.Errorf("analysis.max_freq (%.1f) must not exceed half of audio.sample_rate (%.0f)", a.MaxFreq, c.Audio.SampleRate))
	}
	if a.MaxDB <= a.MinDB {
		errs = append(errs, fmt.Errorf("analysis.max_db (%.1f) must be greater than analysis.min_db (%.1f)", a.MaxDB, a.MinDB))
	}
	if a.FrameSize > a.FFTSize {
		errs = append(errs, fmt.Errorf("analysis.frame_size (%d) must not exceed analysis.fft_size (%d)", a.FrameSize, a.FFTSize))
	}
	if !bitint.IsPowerOfTwo(a.FFTSize) {
		errs = append(errs, fmt.Errorf("analysis.fft_size (%d) must be a power of 2, e.g. %d", a.FFTSize, bitint.NextPowerOfTwo(a.FFTSize)))
	}
	if !bitint.IsPowerOfTwo(c.Audio.RingCapacity) {
		errs = append(errs, fmt.Errorf("audio.ring_capacity (%d) must be a power of 2, e.g. %d", c.Audio.RingCapacity, bitint.NextPowerOfTwo(c.Audio.RingCapacity)))
	}
	if c.Audio.RingCapacity < a.FrameSize {
		errs = append(errs, fmt.Errorf("audio.ring_capacity (%d) must hold at least one frame (%d)", c.Audio.RingCapacity, a.FrameSize))
	}
	return errs
}

// fieldPath drops the root struct name from the namespace.
func fieldPath(e validator.FieldError) string {
	ns := e.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}

// formatValidationMessage creates a human-readable message from a validator error.
func formatValidationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "max":
		return fmt.Sprintf("must be at most %s characters", e.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", e.Param())
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", e.Param())
	case "lte":
		return fmt.Sprintf("must be less than or equal to %s", e.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", e.Param())
	default:
		return fmt.Sprintf("failed validation '%s'", e.Tag())
	}
}
