// Typed access to a single config section
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package config

import (
	"strconv"
	"strings"
	"sync"

	"slicer-go-migration/pkg/errors"
)

// Section provides access to a config section with access tracking.
type Section struct {
	name    string
	options map[string]string

	// Access tracking
	mu       sync.RWMutex
	accessed map[string]struct{}
}

// newSection creates a new Section.
func newSection(name string, options map[string]string) *Section {
	opts := make(map[string]string, len(options))
	for k, v := range options {
		opts[strings.ToLower(k)] = v
	}
	return &Section{
		name:     name,
		options:  opts,
		accessed: make(map[string]struct{}),
	}
}

// GetName returns the section name.
func (s *Section) GetName() string {
	return s.name
}

func (s *Section) markAccessed(option string) {
	s.mu.Lock()
	s.accessed[strings.ToLower(option)] = struct{}{}
	s.mu.Unlock()
}

// GetUnusedOptions returns a list of options that were not accessed.
func (s *Section) GetUnusedOptions() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []string
	for opt := range s.options {
		if _, ok := s.accessed[opt]; !ok {
			result = append(result, opt)
		}
	}
	return result
}

// HasOption checks if an option exists in this section.
func (s *Section) HasOption(option string) bool {
	_, ok := s.options[strings.ToLower(option)]
	return ok
}

// set stores a raw option value (used by the autosave write-back).
func (s *Section) set(option, value string) {
	s.options[strings.ToLower(option)] = value
}

// Get returns a string option value.
// If a fallback is provided and the option doesn't exist, returns the fallback.
func (s *Section) Get(option string, fallback ...string) (string, error) {
	key := strings.ToLower(option)
	if v, ok := s.options[key]; ok {
		s.markAccessed(option)
		return v, nil
	}
	if len(fallback) > 0 {
		s.markAccessed(option)
		return fallback[0], nil
	}
	return "", errors.ConfigOptionError(s.name, option)
}

// GetInt returns an integer option value.
func (s *Section) GetInt(option string, fallback ...int) (int, error) {
	key := strings.ToLower(option)
	if v, ok := s.options[key]; ok {
		s.markAccessed(option)
		i, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, errors.ConfigValidationError(s.name, option, "must be an integer")
		}
		return i, nil
	}
	if len(fallback) > 0 {
		s.markAccessed(option)
		return fallback[0], nil
	}
	return 0, errors.ConfigOptionError(s.name, option)
}

// GetFloat returns a float option value.
func (s *Section) GetFloat(option string, fallback ...float64) (float64, error) {
	key := strings.ToLower(option)
	if v, ok := s.options[key]; ok {
		s.markAccessed(option)
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, errors.ConfigValidationError(s.name, option, "must be a number")
		}
		return f, nil
	}
	if len(fallback) > 0 {
		s.markAccessed(option)
		return fallback[0], nil
	}
	return 0, errors.ConfigOptionError(s.name, option)
}

// GetBool returns a boolean option value.
func (s *Section) GetBool(option string, fallback ...bool) (bool, error) {
	key := strings.ToLower(option)
	if v, ok := s.options[key]; ok {
		s.markAccessed(option)
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "yes", "on", "1":
			return true, nil
		case "false", "no", "off", "0":
			return false, nil
		}
		return false, errors.ConfigValidationError(s.name, option, "must be a boolean")
	}
	if len(fallback) > 0 {
		s.markAccessed(option)
		return fallback[0], nil
	}
	return false, errors.ConfigOptionError(s.name, option)
}

// GetChoice returns a string option value restricted to the given choices.
func (s *Section) GetChoice(option string, choices []string, fallback ...string) (string, error) {
	v, err := s.Get(option, fallback...)
	if err != nil {
		return "", err
	}
	for _, c := range choices {
		if v == c {
			return v, nil
		}
	}
	return "", errors.ConfigValidationError(s.name, option,
		"must be one of "+strings.Join(choices, ", "))
}

// GetList returns a comma-separated list of strings.
func (s *Section) GetList(option string, fallback ...[]string) ([]string, error) {
	key := strings.ToLower(option)
	v, ok := s.options[key]
	if !ok {
		if len(fallback) > 0 {
			s.markAccessed(option)
			return fallback[0], nil
		}
		return nil, errors.ConfigOptionError(s.name, option)
	}
	s.markAccessed(option)
	if strings.TrimSpace(v) == "" {
		return nil, nil
	}
	parts := strings.Split(v, ",")
	result := make([]string, len(parts))
	for i, p := range parts {
		result[i] = strings.TrimSpace(p)
	}
	return result, nil
}

// GetFloatList returns a comma-separated list of floats.
func (s *Section) GetFloatList(option string, fallback ...[]float64) ([]float64, error) {
	parts, err := s.GetList(option)
	if err != nil {
		if len(fallback) > 0 {
			s.markAccessed(option)
			return fallback[0], nil
		}
		return nil, err
	}
	result := make([]float64, len(parts))
	for i, p := range parts {
		f, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return nil, errors.ConfigValidationError(s.name, option, "must be a list of numbers")
		}
		result[i] = f
	}
	return result, nil
}

// GetIntList returns a comma-separated list of integers.
func (s *Section) GetIntList(option string, fallback ...[]int) ([]int, error) {
	parts, err := s.GetList(option)
	if err != nil {
		if len(fallback) > 0 {
			s.markAccessed(option)
			return fallback[0], nil
		}
		return nil, err
	}
	result := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, errors.ConfigValidationError(s.name, option, "must be a list of integers")
		}
		result[i] = n
	}
	return result, nil
}

// GetBoolList returns a comma-separated list of booleans (0/1/true/false).
func (s *Section) GetBoolList(option string, fallback ...[]bool) ([]bool, error) {
	parts, err := s.GetList(option)
	if err != nil {
		if len(fallback) > 0 {
			s.markAccessed(option)
			return fallback[0], nil
		}
		return nil, err
	}
	result := make([]bool, len(parts))
	for i, p := range parts {
		switch strings.ToLower(p) {
		case "true", "yes", "on", "1":
			result[i] = true
		case "false", "no", "off", "0":
			result[i] = false
		default:
			return nil, errors.ConfigValidationError(s.name, option, "must be a list of booleans")
		}
	}
	return result, nil
}
