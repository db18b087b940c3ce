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

package main

import (
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"
)

// WatchCmd resolves files again whenever they change.
type WatchCmd struct {
	Format   string        `name:"format" short:"f" enum:"events,json" default:"events" help:"Output format: events or json"`
	Debounce time.Duration `name:"debounce" default:"100ms" help:"Time to wait for further changes before resolving"`
	Files    []string      `arg:"" required:"" help:"Markdown files to watch"`
}

func (cmd *WatchCmd) Run(e *env) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	// Directories are watched instead of files
	// so that editors that replace files on save are noticed.
	targets := make(map[string]string)
	dirs := make(map[string]struct{})
	for _, name := range cmd.Files {
		abs, err := filepath.Abs(name)
		if err != nil {
			return fmt.Errorf("failed to resolve path: %w", err)
		}
		targets[abs] = name
		dir := filepath.Dir(abs)
		if _, ok := dirs[dir]; ok {
			continue
		}
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("failed to watch directory %s: %w", dir, err)
		}
		dirs[dir] = struct{}{}
	}
	e.logger.Info("Watching files", "files", len(targets), "directories", len(dirs))

	for _, name := range cmd.Files {
		cmd.refresh(e, name)
	}

	pending := make(map[string]struct{})
	var fire <-chan time.Time
	for {
		select {
		case <-e.ctx.Done():
			e.logger.Info("Stopping file watcher")
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			name, ok := targets[filepath.Clean(event.Name)]
			if !ok {
				continue
			}
			switch {
			case event.Op&fsnotify.Remove == fsnotify.Remove:
				e.logger.Warn("File removed", "file", name)
			case event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0:
				e.logger.Debug("File change detected", "file", name, "op", event.Op.String())
				pending[name] = struct{}{}
				if fire == nil {
					fire = time.After(cmd.Debounce)
				}
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			e.logger.Error("File watcher error", "error", err)
		case <-fire:
			fire = nil
			names := make([]string, 0, len(pending))
			for name := range pending {
				names = append(names, name)
			}
			sort.Strings(names)
			clear(pending)
			for _, name := range names {
				cmd.refresh(e, name)
			}
		}
	}
}

// refresh resolves a file and prints the result.
// Failures are logged so that watching continues.
func (cmd *WatchCmd) refresh(e *env, name string) {
	doc, err := loadDocument(e, name)
	if err != nil {
		e.logger.Error("Failed to resolve file", "file", name, "error", err)
		return
	}
	if err := writeDocuments(e.stdout, cmd.Format, []*document{doc}); err != nil {
		e.logger.Error("Failed to write output", "file", name, "error", err)
	}
}
