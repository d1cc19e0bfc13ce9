package aitask

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cast"
)

// ErrInvalidParameters is returned when a task's parameters cannot be used.
var ErrInvalidParameters = errors.New("invalid task parameters")

func requiredString(params map[string]any, key string) (string, error) {
	raw, ok := params[key]
	if !ok {
		return "", fmt.Errorf("%w: %s is required", ErrInvalidParameters, key)
	}
	s, err := cast.ToStringE(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrInvalidParameters, key, err)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("%w: %s must not be empty", ErrInvalidParameters, key)
	}
	return s, nil
}

func optionalString(params map[string]any, key, fallback string) string {
	s := strings.TrimSpace(cast.ToString(params[key]))
	if s == "" {
		return fallback
	}
	return s
}

func nonNegativeFloat(params map[string]any, key string) (float64, error) {
	raw, ok := params[key]
	if !ok || raw == nil {
		return 0, nil
	}
	f, err := cast.ToFloat64E(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrInvalidParameters, key, err)
	}
	if f < 0 {
		return 0, fmt.Errorf("%w: %s must not be negative", ErrInvalidParameters, key)
	}
	return f, nil
}

func positiveInt(params map[string]any, key string, fallback int) (int, error) {
	raw, ok := params[key]
	if !ok || raw == nil {
		return fallback, nil
	}
	n, err := cast.ToIntE(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrInvalidParameters, key, err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("%w: %s must be positive", ErrInvalidParameters, key)
	}
	return n, nil
}
