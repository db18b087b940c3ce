// Copyright 2024 Ross Light
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//		 https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

// Package config loads the linkresolve command's YAML configuration file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
	"zombiezen.com/go/linkresolve"
)

// Config is the top-level configuration file structure.
type Config struct {
	// MaxNesting is the maximum number of pending bracket openers.
	// Zero uses the library default.
	MaxNesting int `yaml:"max_nesting"`
	// References are link reference definitions available to every document.
	// Definitions inside a document take precedence.
	References map[string]Reference `yaml:"references"`
}

// Reference is a predefined link reference definition.
type Reference struct {
	URI   string  `yaml:"uri"`
	Title *string `yaml:"title,omitempty"`
}

// Load reads and validates the configuration file at path.
// References to environment variables like ${HOME} are expanded.
// Variables defined in a .env file next to the configuration file
// are also available, but never override the process environment.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	dotenv, err := readDotEnv(filepath.Join(filepath.Dir(path), ".env"))
	if err != nil {
		return nil, err
	}
	cfg, err := parse(data, dotenv)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes and validates configuration file content.
// Environment variables in the content are expanded.
func Parse(data []byte) (*Config, error) {
	return parse(data, nil)
}

func parse(data []byte, dotenv map[string]string) (*Config, error) {
	expanded := os.Expand(string(data), func(name string) string {
		if v, ok := os.LookupEnv(name); ok {
			return v
		}
		return dotenv[name]
	})
	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// readDotEnv returns the variables in a .env file.
// A missing file has no variables.
func readDotEnv(path string) (map[string]string, error) {
	env, err := godotenv.Read(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read environment file: %w", err)
	}
	return env, nil
}

// Validate reports the first problem with the configuration, if any.
func (cfg *Config) Validate() error {
	if cfg.MaxNesting < 0 {
		return fmt.Errorf("max_nesting must not be negative (got %d)", cfg.MaxNesting)
	}
	seen := make(map[string]string, len(cfg.References))
	for name := range cfg.References {
		normalized := linkresolve.NormalizeReferenceName(name)
		if normalized == "" {
			return fmt.Errorf("reference %q: name is blank", name)
		}
		if prev, dup := seen[normalized]; dup {
			return fmt.Errorf("references %q and %q have the same normalized name", prev, name)
		}
		seen[normalized] = name
	}
	return nil
}

// ReferenceMap returns the configured references
// with names, URIs, and titles normalized
// the same way as definitions in a document.
func (cfg *Config) ReferenceMap() linkresolve.ReferenceMap {
	m := make(linkresolve.ReferenceMap, len(cfg.References))
	for name, ref := range cfg.References {
		def := linkresolve.LinkDefinition{
			Destination: linkresolve.NormalizeURI(ref.URI),
		}
		if ref.Title != nil {
			def.Title = linkresolve.NormalizeTitle(*ref.Title)
			def.TitlePresent = true
		}
		m.Define(linkresolve.NormalizeReferenceName(name), def)
	}
	return m
}

// Options returns the resolution options the configuration describes.
func (cfg *Config) Options() *linkresolve.Options {
	return &linkresolve.Options{
		MaxNesting: cfg.MaxNesting,
		Predefined: cfg.ReferenceMap(),
	}
}
