package compliance

import (
	"context"
	"strings"
)

// TranslationService exposes locale-aware translation for labels and
// messages. Implementations may interpolate params.
type TranslationService interface {
	Translate(ctx context.Context, key, locale string, args map[string]any) (string, error)
}

// ResolveLocalizedValue selects the best translation for locale and falls
// back to fallback. Keys match case-insensitively and `es-mx` falls back to
// `es` when present.
func ResolveLocalizedValue(values map[string]string, locale, fallback string) string {
	if len(values) == 0 {
		return fallback
	}
	for _, candidate := range localeCandidates(locale) {
		for key, value := range values {
			if strings.EqualFold(key, candidate) && value != "" {
				return value
			}
		}
	}
	return fallback
}

// MapTranslator is an in-memory TranslationService keyed by locale then key.
type MapTranslator map[string]map[string]string

// Translate implements TranslationService.
func (m MapTranslator) Translate(_ context.Context, key, locale string, _ map[string]any) (string, error) {
	for _, candidate := range localeCandidates(locale) {
		for loc, entries := range m {
			if !strings.EqualFold(loc, candidate) {
				continue
			}
			if value := entries[key]; value != "" {
				return value, nil
			}
		}
	}
	return "", nil
}

func localeCandidates(locale string) []string {
	locale = normalizeLocale(locale)
	if locale == "" {
		return []string{"default"}
	}
	candidates := []string{locale}
	if idx := strings.Index(locale, "-"); idx > 0 {
		candidates = append(candidates, locale[:idx])
	}
	return append(candidates, "default")
}

func normalizeLocale(locale string) string {
	return strings.TrimSpace(strings.ToLower(locale))
}

func translateOrFallback(ctx context.Context, svc TranslationService, key, locale, fallback string, params map[string]any) string {
	if svc != nil {
		if translated, err := svc.Translate(ctx, key, locale, params); err == nil && translated != "" {
			return translated
		}
	}
	if fallback != "" {
		return fallback
	}
	return key
}
