// Package services wraps LLM calls behind task-specific contracts.
package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/stockdesk/ai-proxy/internal/ai/router"
	"github.com/stockdesk/ai-proxy/internal/jsonx"
	"github.com/stockdesk/ai-proxy/internal/orders"
)

const (
	// MaxPromptInputLength is the maximum block length sent to a model, in runes.
	MaxPromptInputLength = 5000
)

// Generator produces a completion for a system and user prompt.
type Generator interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

var (
	// ErrBadCandidate is returned when the model answer is not an order object.
	ErrBadCandidate = errors.New("model answer is not an order object")

	// injectionPatterns neutralize text that tries to steer the model.
	injectionPatterns = []struct {
		pattern     *regexp.Regexp
		replacement string
	}{
		{regexp.MustCompile(`(?i)(ignore|forget|disregard)\s+(all|previous|the|above|all\s+previous)\s+(instructions?|commands?|directives?|rules?|constraints?)`), "[REDACTED INSTRUCTION OVERRIDE]"},
		{regexp.MustCompile(`(?i)(you are|act as|pretend to be|roleplay as)\s+(a\s+)?(admin|administrator|root|developer|owner|system)`), "[REDACTED ROLE CHANGE]"},
		{regexp.MustCompile(`(?i)(show|reveal|print|dump)\s+(your|the|system)\s+(prompt|instructions?|rules?)`), "[REDACTED PROMPT LEAKAGE]"},
	}

	consecutiveNewlines = regexp.MustCompile(`\n{3,}`)
	excessWhitespace    = regexp.MustCompile(`[ \t]{5,}`)
)

const orderSystemPrompt = `أنت مساعد يستخرج بيانات طلب شحن واحد من رسالة واتساب مصرية.
أعد كائن JSON واحد فقط بدون أي شرح وبدون علامات كود.
المفاتيح المسموحة فقط:
name, phone, phones, governorate, address, model, models, color, colors, count, price, discount, shipping, cod_total, notes
القواعد:
- لا تخترع قيمة غير موجودة في الرسالة. إذا لم تجد نصًا اجعله "".
- إذا لم تجد رقمًا (count, price, discount, shipping, cod_total) اجعله null ولا تكتب "" أو 0.
- phones قائمة بكل أرقام الموبايل المذكورة، و phone أولها.
- model مثل "iPhone 15 Pro Max"، و models قائمة بموديل لكل جهاز عند تعدد الأجهزة.
- color بالعربي (اسود، ابيض، ازرق، كحلي، سلفر، دهبي، تيتانيوم)، و colors لون لكل جهاز.
- count عدد الأجهزة كرقم، و price سعر الجهاز الواحد، و cod_total المبلغ المطلوب تحصيله.
- notes أي ملاحظات تخص الاستلام أو المعاينة.`

// OrderExtractorConfig tunes an OrderExtractor.
type OrderExtractorConfig struct {
	// Timeout bounds a single model call.
	Timeout time.Duration
	// RatePerSec and Burst shape outbound model calls.
	RatePerSec float64
	Burst      int
	// MemoSize is the number of block answers remembered.
	MemoSize int
}

// DefaultOrderExtractorConfig returns the defaults used by the service.
func DefaultOrderExtractorConfig() OrderExtractorConfig {
	return OrderExtractorConfig{
		Timeout:    20 * time.Second,
		RatePerSec: 3,
		Burst:      5,
		MemoSize:   512,
	}
}

// OrderExtractor asks a model for an order candidate per block. It implements
// orders.CandidateSource.
type OrderExtractor struct {
	gen     Generator
	config  OrderExtractorConfig
	limiter *rate.Limiter
	memo    *lru.Cache[string, orders.RawFields]
	logger  *zap.Logger
}

var _ orders.CandidateSource = (*OrderExtractor)(nil)

// NewOrderExtractor creates an extractor backed by gen.
func NewOrderExtractor(cfg OrderExtractorConfig, gen Generator, logger *zap.Logger) (*OrderExtractor, error) {
	if gen == nil {
		return nil, errors.New("generator is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	def := DefaultOrderExtractorConfig()
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = def.RatePerSec
	}
	if cfg.Burst < 1 {
		cfg.Burst = def.Burst
	}
	if cfg.MemoSize < 1 {
		cfg.MemoSize = def.MemoSize
	}

	memo, err := lru.New[string, orders.RawFields](cfg.MemoSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create memo: %w", err)
	}

	return &OrderExtractor{
		gen:     gen,
		config:  cfg,
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.Burst),
		memo:    memo,
		logger:  logger.Named("order_extractor"),
	}, nil
}

// Candidate returns the model's reading of block, or nil when the model
// found nothing.
func (e *OrderExtractor) Candidate(ctx context.Context, block string) (*orders.RawFields, error) {
	input := sanitizePromptInput(block)
	if input == "" {
		return nil, nil
	}

	key := blockKey(input)
	if cached, ok := e.memo.Get(key); ok {
		return &cached, nil
	}

	if err := e.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	callCtx, cancel := context.WithTimeout(ctx, e.config.Timeout)
	defer cancel()

	start := time.Now()
	answer, err := e.gen.Complete(callCtx, orderSystemPrompt, buildOrderPrompt(input))
	if err != nil {
		return nil, fmt.Errorf("order extraction failed: %w", err)
	}

	raw, err := parseCandidate(answer)
	if err != nil {
		e.logger.Debug("unusable model answer",
			zap.String("answer", truncateString(answer, 200)),
			zap.Error(err))
		return nil, err
	}

	e.logger.Debug("order candidate",
		zap.Duration("elapsed", time.Since(start)),
		zap.Bool("empty", raw == nil))
	if raw == nil {
		return nil, nil
	}
	e.memo.Add(key, *raw)
	return raw, nil
}

func buildOrderPrompt(block string) string {
	var b strings.Builder
	b.WriteString("استخرج بيانات الطلب من الرسالة التالية:\n<<<\n")
	b.WriteString(block)
	b.WriteString("\n>>>")
	return b.String()
}

// parseCandidate reads a JSON object, or the first element of a JSON array,
// out of a model answer.
func parseCandidate(answer string) (*orders.RawFields, error) {
	data, err := router.ExtractJSON(answer)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadCandidate, err)
	}

	var raw orders.RawFields
	if data[0] == '[' {
		var list []orders.RawFields
		if err := jsonx.Unmarshal(data, &list); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrBadCandidate, err)
		}
		if len(list) == 0 {
			return nil, nil
		}
		raw = list[0]
	} else if err := jsonx.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadCandidate, err)
	}

	dropBlankNumbers(&raw)
	if raw.IsEmpty() {
		return nil, nil
	}
	return &raw, nil
}

// dropBlankNumbers clears numeric fields the model answered with an empty
// string, so they do not override the rule extractor. An explicit 0 stays.
func dropBlankNumbers(raw *orders.RawFields) {
	for _, f := range []**orders.FlexString{&raw.Count, &raw.Price, &raw.Discount, &raw.Shipping, &raw.CODTotal} {
		if *f != nil && strings.TrimSpace((*f).String()) == "" {
			*f = nil
		}
	}
}

// sanitizePromptInput cleans a block before it is placed inside a prompt.
func sanitizePromptInput(text string) string {
	if text == "" {
		return ""
	}

	if utf8.RuneCountInString(text) > MaxPromptInputLength {
		text = string([]rune(text)[:MaxPromptInputLength])
	}

	// Remove null bytes and control characters (except newlines and tabs)
	var sanitized strings.Builder
	for _, ch := range text {
		if ch == '\n' || ch == '\t' || (ch >= 32 && ch != 127) {
			sanitized.WriteRune(ch)
		}
	}
	text = sanitized.String()

	for _, p := range injectionPatterns {
		text = p.pattern.ReplaceAllString(text, p.replacement)
	}

	// The block is fenced with <<< >>>; fences inside it would end it early.
	text = strings.ReplaceAll(text, "```", "")
	text = strings.ReplaceAll(text, "<<<", "")
	text = strings.ReplaceAll(text, ">>>", "")

	text = consecutiveNewlines.ReplaceAllString(text, "\n\n")
	text = excessWhitespace.ReplaceAllString(text, "    ")

	return strings.TrimSpace(text)
}

func blockKey(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

func truncateString(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	return string([]rune(s)[:maxLen]) + "..."
}
