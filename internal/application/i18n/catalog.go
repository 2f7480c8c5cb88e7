// Package i18n loads locale message bundles with a fallback to the default
// locale and keeps the active bundle for the session.
package i18n

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/text/language"

	"github.com/avatarctic/services-marketplace/go/internal/core/ports"
)

var ErrUnsupportedDefault = errors.New("i18n: default locale has no loader")

// Catalog resolves locales against a fixed supported set and loads their
// bundles. Successful loads are cached for the session.
type Catalog struct {
	defaultLocale string
	loaders       map[string]ports.BundleLoader
	supported     []string
	matcher       language.Matcher
	logger        *logrus.Logger

	mu      sync.RWMutex
	bundles map[string]*Bundle
	active  *Bundle
}

// NewCatalog validates the locale→loader mapping. Every locale must be a
// well-formed language tag and the default must have a loader.
func NewCatalog(defaultLocale string, loaders map[string]ports.BundleLoader, logger *logrus.Logger) (*Catalog, error) {
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}
	defaultLocale = strings.TrimSpace(defaultLocale)
	if _, ok := loaders[defaultLocale]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDefault, defaultLocale)
	}

	supported := make([]string, 0, len(loaders))
	for locale, loader := range loaders {
		if loader == nil {
			return nil, fmt.Errorf("i18n: nil loader for %q", locale)
		}
		if _, err := language.Parse(locale); err != nil {
			return nil, fmt.Errorf("i18n: invalid locale %q: %w", locale, err)
		}
		if locale != defaultLocale {
			supported = append(supported, locale)
		}
	}
	sort.Strings(supported)
	// the matcher falls back to its first tag
	supported = append([]string{defaultLocale}, supported...)

	tags := make([]language.Tag, len(supported))
	for i, locale := range supported {
		tags[i] = language.MustParse(locale)
	}

	return &Catalog{
		defaultLocale: defaultLocale,
		loaders:       loaders,
		supported:     supported,
		matcher:       language.NewMatcher(tags),
		logger:        logger,
		bundles:       make(map[string]*Bundle),
	}, nil
}

// DefaultLocale returns the fallback locale.
func (c *Catalog) DefaultLocale() string { return c.defaultLocale }

// Supported lists the supported locales, default first.
func (c *Catalog) Supported() []string {
	out := make([]string, len(c.supported))
	copy(out, c.supported)
	return out
}

// Resolve maps locale onto the supported set. Regional variants resolve to
// their base language; unparseable or other languages resolve to the default.
func (c *Catalog) Resolve(locale string) string {
	locale = strings.TrimSpace(locale)
	if locale == "" {
		return c.defaultLocale
	}
	if _, ok := c.loaders[locale]; ok {
		return locale
	}
	tag, err := language.Parse(locale)
	if err != nil {
		return c.defaultLocale
	}
	_, idx, confidence := c.matcher.Match(tag)
	if confidence == language.No || idx < 0 || idx >= len(c.supported) {
		return c.defaultLocale
	}
	// only regional variants of a supported language are accepted; a
	// neighbouring language (gl -> es) falls back to the default
	requested, _ := tag.Base()
	matched, _ := language.Make(c.supported[idx]).Base()
	if requested != matched {
		return c.defaultLocale
	}
	return c.supported[idx]
}

// Load returns the bundle for locale. An unsupported locale is replaced by the
// default before loading; a failed or malformed load falls back to the
// default bundle. Only a failure of the default itself is returned.
func (c *Catalog) Load(ctx context.Context, locale string) (*Bundle, error) {
	resolved := c.Resolve(locale)
	if resolved != locale {
		c.logger.WithFields(logrus.Fields{"requested": locale, "locale": resolved}).Debug("i18n: locale substituted")
	}

	b, err := c.load(ctx, resolved)
	if err == nil {
		return b, nil
	}
	c.logger.WithFields(logrus.Fields{"locale": resolved, "fallback": c.defaultLocale}).WithError(err).Warn("i18n: bundle load failed, falling back")

	b, err = c.load(ctx, c.defaultLocale)
	if err != nil {
		c.logger.WithField("locale", c.defaultLocale).WithError(err).Error("i18n: default bundle unusable")
		return nil, fmt.Errorf("i18n: load default bundle: %w", err)
	}
	return b, nil
}

// Use loads locale and makes its bundle the active one. The previous bundle is
// replaced wholesale.
func (c *Catalog) Use(ctx context.Context, locale string) (*Bundle, error) {
	b, err := c.Load(ctx, locale)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	prev := c.active
	c.active = b
	c.mu.Unlock()

	if prev == nil || prev.Locale() != b.Locale() {
		c.logger.WithFields(logrus.Fields{"requested": locale, "locale": b.Locale()}).Info("i18n: active locale switched")
	}
	return b, nil
}

// Locale returns the locale of the active bundle, or the default before Use.
func (c *Catalog) Locale() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.active == nil {
		return c.defaultLocale
	}
	return c.active.Locale()
}

// T resolves key in the active bundle. Missing keys resolve to the key.
func (c *Catalog) T(key string) string {
	c.mu.RLock()
	active := c.active
	c.mu.RUnlock()
	if v, ok := active.Lookup(key); ok {
		return v
	}
	return key
}

func (c *Catalog) load(ctx context.Context, locale string) (*Bundle, error) {
	c.mu.RLock()
	cached, ok := c.bundles[locale]
	c.mu.RUnlock()
	if ok {
		return cached, nil
	}

	data, err := c.loaders[locale](ctx)
	if err != nil {
		return nil, fmt.Errorf("load bundle %s: %w", locale, err)
	}
	b, err := ParseBundle(locale, data)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if existing, ok := c.bundles[locale]; ok {
		b = existing
	} else {
		c.bundles[locale] = b
	}
	c.mu.Unlock()
	c.logger.WithFields(logrus.Fields{"locale": locale, "messages": b.Len()}).Debug("i18n: bundle loaded")
	return b, nil
}
