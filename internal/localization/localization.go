// Package localization provides functionality for internationalization (i18n).
// It loads translation strings from JSON catalogs and provides a simple way to get
// localized strings for different languages.
package localization

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"sync"
)

//go:embed locales/*.json
var embedded embed.FS

// Localizer manages the translations for the application.
// It holds a map of languages, each with its own map of translation keys and values.
type Localizer struct {
	translations map[string]map[string]string
	fallback     string
	mu           sync.RWMutex
}

// NewLocalizer creates a Localizer from the catalogs compiled into the binary.
// fallback is the language used when a reporter's language has no catalog or key.
func NewLocalizer(fallback string) (*Localizer, error) {
	return NewLocalizerFS(embedded, "locales", fallback)
}

// NewLocalizerFS loads every "<lang>.json" file in dir of fsys.
func NewLocalizerFS(fsys fs.FS, dir, fallback string) (*Localizer, error) {
	l := &Localizer{
		translations: make(map[string]map[string]string),
		fallback:     fallback,
	}

	files, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read localization directory: %w", err)
	}

	for _, file := range files {
		if file.IsDir() || !strings.HasSuffix(file.Name(), ".json") {
			continue
		}

		lang := strings.TrimSuffix(file.Name(), ".json")
		data, err := fs.ReadFile(fsys, path.Join(dir, file.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read localization file %s: %w", file.Name(), err)
		}

		var translations map[string]string
		if err := json.Unmarshal(data, &translations); err != nil {
			return nil, fmt.Errorf("failed to parse localization file %s: %w", file.Name(), err)
		}

		l.translations[lang] = translations
	}

	if _, ok := l.translations[fallback]; !ok {
		return nil, fmt.Errorf("no catalog for fallback language %q", fallback)
	}
	return l, nil
}

// GetString returns the localized string for a given key and language.
// If the language or the key is not found, the fallback language is tried,
// and finally the key itself is returned.
func (l *Localizer) GetString(lang, key string) string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if langTranslations, ok := l.translations[lang]; ok {
		if value, ok := langTranslations[key]; ok {
			return value
		}
	}

	if fallbackTranslations, ok := l.translations[l.fallback]; ok {
		if value, ok := fallbackTranslations[key]; ok {
			return value
		}
	}

	return key
}

// Format looks up key and applies fmt.Sprintf with args.
func (l *Localizer) Format(lang, key string, args ...any) string {
	return fmt.Sprintf(l.GetString(lang, key), args...)
}

// Matches reports whether text equals the translation of key in any loaded language.
func (l *Localizer) Matches(key, text string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()

	for _, translations := range l.translations {
		if value, ok := translations[key]; ok && value == text {
			return true
		}
	}
	return false
}

// Resolve returns the language to use for a client language code.
func (l *Localizer) Resolve(lang string) string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if _, ok := l.translations[lang]; ok {
		return lang
	}
	return l.fallback
}

// Languages lists the loaded language codes in sorted order.
func (l *Localizer) Languages() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	langs := make([]string, 0, len(l.translations))
	for lang := range l.translations {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	return langs
}

// Keys returns the keys of a language catalog, sorted.
func (l *Localizer) Keys(lang string) []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	keys := make([]string, 0, len(l.translations[lang]))
	for k := range l.translations[lang] {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
