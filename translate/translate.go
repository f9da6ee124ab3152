package translate

import (
	"context"
	"strings"

	"github.com/apex/log"

	"crop-advisor-service/config"
	"crop-advisor-service/llm"
	"crop-advisor-service/metrics"
)

// Translator re-renders diagnosis text in a selected language. Failures never
// propagate: the caller always gets usable text back.
type Translator struct {
	client   llm.Client
	baseLang string
}

// NewTranslator creates a translator over an LLM client.
func NewTranslator(client llm.Client) *Translator {
	return &Translator{client: client, baseLang: config.DefaultLanguage}
}

// Translate returns text rendered in the target language. The base language
// and empty text are served without an external call; on any provider error
// the original text is returned unchanged.
func (t *Translator) Translate(ctx context.Context, text, langCode string) string {
	langCode = strings.ToLower(strings.TrimSpace(langCode))
	if text == "" || langCode == "" || langCode == t.baseLang {
		return text
	}

	translated, err := t.client.TranslateText(ctx, text, config.LanguageName(langCode))
	if err != nil {
		metrics.TranslateFallbackTotal.Inc()
		log.WithError(err).Warnf("Translation to %s failed, falling back to original text", langCode)
		return text
	}
	if translated == "" {
		return text
	}
	return translated
}

// TranslatePair translates the condition and recommendation concurrently.
// The two calls are independent; each falls back on its own failure.
func (t *Translator) TranslatePair(ctx context.Context, condition, recommendation, langCode string) (string, string) {
	conditionCh := make(chan string, 1)
	go func() {
		conditionCh <- t.Translate(ctx, condition, langCode)
	}()

	translatedRecommendation := t.Translate(ctx, recommendation, langCode)
	return <-conditionCh, translatedRecommendation
}
