package translation

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"video-dubber/internal/logger"
	"video-dubber/internal/metrics"
	"video-dubber/models"
)

// Fallback tries the primary backend and, on any error, the secondary one.
// Only when both fail does it return an error, wrapping models.ErrTranslation.
type Fallback struct {
	primary   Translator
	secondary Translator
	log       zerolog.Logger
}

func NewFallback(primary, secondary Translator) *Fallback {
	return &Fallback{
		primary:   primary,
		secondary: secondary,
		log:       logger.WithComponent("translation"),
	}
}

func (f *Fallback) Name() string {
	return f.primary.Name() + "+" + f.secondary.Name()
}

func (f *Fallback) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	out, primaryErr := f.primary.Translate(ctx, text, sourceLang, targetLang)
	if primaryErr == nil {
		return out, nil
	}
	if ctx.Err() != nil {
		return "", fmt.Errorf("%w: %s: %w", models.ErrTranslation, f.primary.Name(), ctx.Err())
	}

	log := logger.WithContext(ctx, f.log)
	log.Warn().
		Err(primaryErr).
		Str(logger.FieldProvider, f.primary.Name()).
		Str(logger.FieldEvent, "translation.fallback").
		Msgf("primary translator failed, trying %s", f.secondary.Name())

	out, secondaryErr := f.secondary.Translate(ctx, text, sourceLang, targetLang)
	if secondaryErr != nil {
		return "", fmt.Errorf("%w: %s: %v; %s: %v", models.ErrTranslation,
			f.primary.Name(), primaryErr, f.secondary.Name(), secondaryErr)
	}
	metrics.IncTranslationFallback(f.secondary.Name())
	return out, nil
}
