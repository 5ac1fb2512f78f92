// Print configuration file access for the slicer Go migration
//
// Parses INI-style printer/filament profiles. Lines starting with "#*#" are
// auto-generated autosave config (e.g. the persisted filament map) and are
// parsed as regular options.
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package config

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
)

// Config provides access to a configuration file with access tracking.
type Config struct {
	mu       sync.RWMutex
	sections map[string]*Section
	order    []string // Maintains section order
}

// New creates a new empty Config.
func New() *Config {
	return &Config{
		sections: make(map[string]*Section),
	}
}

// Load reads a configuration file and returns a Config.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: unable to open %s: %w", path, err)
	}
	defer f.Close()

	c := New()
	if err := c.parse(f.Name(), bufio.NewScanner(f)); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadString parses a configuration from a string (primarily for tests).
func LoadString(data string) (*Config, error) {
	c := New()
	if err := c.parse("<string>", bufio.NewScanner(strings.NewReader(data))); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) parse(name string, scanner *bufio.Scanner) error {
	var currentSection string
	currentOptions := make(map[string]string)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		// Autosave lines ("#*# option = value") are stripped of the marker
		// and parsed like regular config so a saved filament map round-trips.
		if strings.HasPrefix(line, "#*#") {
			line = strings.TrimSpace(line[3:])
			// Skip the SAVE_CONFIG banner lines
			if line == "" || strings.HasPrefix(line, "<") || strings.HasPrefix(line, "DO NOT EDIT") {
				continue
			}
		} else if idx := strings.IndexByte(line, '#'); idx >= 0 {
			line = strings.TrimSpace(line[:idx])
			if line == "" {
				continue
			}
		}

		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			if currentSection != "" {
				c.addSection(currentSection, currentOptions)
				currentOptions = make(map[string]string)
			}
			currentSection = strings.TrimSpace(line[1 : len(line)-1])
			if currentSection == "" {
				return fmt.Errorf("config: empty section header at line %d in %s", lineNum, name)
			}
			continue
		}

		sep := strings.IndexAny(line, "=:")
		if sep < 0 {
			return fmt.Errorf("config: malformed line %d in %s: %q", lineNum, name, line)
		}
		if currentSection == "" {
			return fmt.Errorf("config: option outside of section at line %d in %s", lineNum, name)
		}
		key := strings.TrimSpace(line[:sep])
		value := strings.TrimSpace(line[sep+1:])
		currentOptions[key] = value
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("config: read %s: %w", name, err)
	}
	if currentSection != "" {
		c.addSection(currentSection, currentOptions)
	}
	return nil
}

// addSection adds or merges a section. A later section with the same name
// (e.g. an autosave block) overrides options of the earlier one.
func (c *Config) addSection(name string, options map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.sections[name]; ok {
		for k, v := range options {
			existing.options[strings.ToLower(k)] = v
		}
		return
	}
	c.sections[name] = newSection(name, options)
	c.order = append(c.order, name)
}

// HasSection checks whether a section exists.
func (c *Config) HasSection(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.sections[name]
	return ok
}

// Section returns the named section, or nil if it does not exist.
func (c *Config) Section(name string) *Section {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sections[name]
}

// SectionNames returns the section names in file order.
func (c *Config) SectionNames() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, len(c.order))
	copy(names, c.order)
	return names
}

// UnusedOptions returns all options that were never accessed, sorted,
// qualified as "section.option".
func (c *Config) UnusedOptions() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var result []string
	for _, name := range c.order {
		for _, opt := range c.sections[name].GetUnusedOptions() {
			result = append(result, name+"."+opt)
		}
	}
	sort.Strings(result)
	return result
}
