// Package locales provides the message bundle loaders: the bundles embedded in
// the binary and directory-backed overrides.
package locales

import (
	"context"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/avatarctic/services-marketplace/go/internal/core/ports"
)

//go:embed bundles/*.json
var embedded embed.FS

// Supported lists the locales shipped with the binary.
var Supported = []string{"en", "pt", "es"}

// Embedded returns a loader per shipped locale.
func Embedded() map[string]ports.BundleLoader {
	loaders := make(map[string]ports.BundleLoader, len(Supported))
	for _, locale := range Supported {
		path := "bundles/" + locale + ".json"
		loaders[locale] = func(ctx context.Context) ([]byte, error) {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			return embedded.ReadFile(path)
		}
	}
	return loaders
}

// FromDir returns loaders for every <locale>.json file in dir. Files are read
// on each load so edits are picked up on the next locale switch.
func FromDir(dir string) (map[string]ports.BundleLoader, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("glob locale bundles: %w", err)
	}
	loaders := make(map[string]ports.BundleLoader, len(paths))
	for _, path := range paths {
		locale := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		loaders[locale] = func(ctx context.Context) ([]byte, error) {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			return os.ReadFile(path)
		}
	}
	return loaders, nil
}

// Merge overlays the loaders of overrides on base.
func Merge(base, overrides map[string]ports.BundleLoader) map[string]ports.BundleLoader {
	out := make(map[string]ports.BundleLoader, len(base)+len(overrides))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range overrides {
		out[k] = v
	}
	return out
}
