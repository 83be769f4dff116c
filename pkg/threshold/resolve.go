package threshold

import (
	"errors"
	"math"
)

// Resolve merges the four layers into one Set. For each required name the
// first layer that specifies it wins: inline, then fileLevel, then app, then
// defaults. Any layer may be nil.
//
// A required name with no value in any layer, or an effective value that is
// negative or NaN, yields a *ConfigError. With a complete defaults layer the
// missing case cannot happen, so callers treat the error as fatal.
func Resolve(inline, fileLevel, app, defaults Layer) (Set, error) {
	layers := []struct {
		values Layer
		source Source
	}{
		{inline, SourceInline},
		{fileLevel, SourceFile},
		{app, SourceSettings},
		{defaults, SourceDefaults},
	}

	set := Set{
		values:  make(map[Name]float64, len(names)),
		sources: make(map[Name]Source, len(names)),
	}

	var errs []error
	for _, n := range names {
		found := false
		for _, l := range layers {
			v, ok := l.values[n]
			if !ok {
				continue
			}
			if err := validate(n, v); err != nil {
				errs = append(errs, err)
			}
			set.values[n] = v
			set.sources[n] = l.source
			found = true
			break
		}
		if !found {
			errs = append(errs, &ConfigError{Name: n, Reason: "no value in any layer, defaults are incomplete"})
		}
	}

	if len(errs) > 0 {
		return Set{}, errors.Join(errs...)
	}
	return set, nil
}

// MustResolve is Resolve for callers that treat configuration errors as
// programming errors.
func MustResolve(inline, fileLevel, app, defaults Layer) Set {
	set, err := Resolve(inline, fileLevel, app, defaults)
	if err != nil {
		panic(err)
	}
	return set
}

func validate(n Name, v float64) error {
	switch {
	case math.IsNaN(v):
		return &ConfigError{Name: n, Reason: "value is not a number"}
	case v < 0:
		return &ConfigError{Name: n, Reason: "value must not be negative"}
	default:
		return nil
	}
}
