// Copyright (C) 2026 The Corestream Authors.
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadWorkerConfigOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "worker.yaml")
	yamlContent := "bufferPoolSize: 64\nnumWorkerThreads: 2\nreconnectBackoffMax: 30s\n"
	if err := os.WriteFile(path, []byte(yamlContent), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	cfg, err := LoadWorkerConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.BufferPoolSize != 64 {
		t.Fatalf("expected override 64, got %d", cfg.BufferPoolSize)
	}
	if cfg.NumWorkerThreads != 2 {
		t.Fatalf("expected override 2, got %d", cfg.NumWorkerThreads)
	}
	if cfg.ReconnectBackoffMax != 30*time.Second {
		t.Fatalf("expected 30s, got %v", cfg.ReconnectBackoffMax)
	}
	// unspecified fields keep their default value.
	if cfg.BufferSizeBytes != DefaultWorkerConfig().BufferSizeBytes {
		t.Fatalf("expected default buffer size to survive partial override")
	}
}

func TestLoadQueryCompilerConfigOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "qc.yaml")
	if err := os.WriteFile(path, []byte("useNativeBackend: true\n"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	cfg, err := LoadQueryCompilerConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !cfg.UseNativeBackend {
		t.Fatal("expected useNativeBackend override to take effect")
	}
}

func TestLoadWorkerConfigMissingFile(t *testing.T) {
	if _, err := LoadWorkerConfig("/nonexistent/path.yaml"); err == nil {
		t.Fatal("expected error for missing file")
	}
}
