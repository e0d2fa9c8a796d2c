package policy

import (
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/uran124/avito-relay/internal/config"
)

// Policy holds the operator-editable conversation rules: the knowledge
// base block the model answers from, lead-capture hints, the reply
// denylist and the texts used when generation fails or gets filtered.
type Policy struct {
	KnowledgeBase      string            `yaml:"knowledge_base"`
	HandoffHints       map[string]string `yaml:"handoff_hints"`
	ClosingInstruction string            `yaml:"closing_instruction"`
	FallbackReply      string            `yaml:"fallback_reply"`
	Denylist           []string          `yaml:"denylist"`
	DenyReplacement    string            `yaml:"deny_replacement"`
	HandoffMarkers     []string          `yaml:"handoff_markers"`
}

// Default returns the built-in rules used when no policy file is present.
func Default() Policy {
	return Policy{
		KnowledgeBase: "Ты — менеджер цветочного магазина. Отвечай дружелюбно и по делу.\n" +
			"Продаём импортные розы премиум-качества. Не называй страну происхождения и сорт.\n" +
			"Не упоминай сторонние мессенджеры и не давай ссылки.",
		HandoffHints: map[string]string{
			config.LeadModeSoft:     "Если человек готов оформить: попроси имя и удобное время, чтобы менеджер подтвердил здесь в чате. Телефон не проси.",
			config.LeadModeAskPhone: "Если человек готов оформить: попроси имя и номер телефона в одном сообщении. Но не упоминай сторонние мессенджеры и не давай ссылки.",
		},
		ClosingInstruction: "Пиши 1–3 коротких предложения. В конце — один вопрос, чтобы продвинуть к заказу.",
		FallbackReply:      "Подскажите, пожалуйста: сколько роз нужно и на какую дату/время?",
		Denylist: []string{
			"эквадор", "ecuador",
			"кения", "kenya",
			"колумб", "colomb",
			"сорт", "variety", "cultivar",
		},
		DenyReplacement: "Роза импортная, премиум-качества (не Россия и не Китай). Подскажите: сколько роз нужно и на какую дату/время?",
		HandoffMarkers:  []string{"имя", "удобн", "телефон"},
	}
}

// Load reads the YAML policy file, filling any omitted field from the
// defaults. A missing file is not an error: the defaults apply as-is.
func Load(path string) (Policy, error) {
	p := Default()

	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		log.Info().Str("path", path).Msg("policy file not found, using built-in defaults")
		return p, nil
	}
	if err != nil {
		return Policy{}, fmt.Errorf("read policy file: %w", err)
	}

	var loaded Policy
	if err := yaml.Unmarshal(raw, &loaded); err != nil {
		return Policy{}, fmt.Errorf("parse policy file: %w", err)
	}

	if loaded.KnowledgeBase != "" {
		p.KnowledgeBase = loaded.KnowledgeBase
	}
	for mode, hint := range loaded.HandoffHints {
		p.HandoffHints[mode] = hint
	}
	if loaded.ClosingInstruction != "" {
		p.ClosingInstruction = loaded.ClosingInstruction
	}
	if loaded.FallbackReply != "" {
		p.FallbackReply = loaded.FallbackReply
	}
	if len(loaded.Denylist) > 0 {
		p.Denylist = loaded.Denylist
	}
	if loaded.DenyReplacement != "" {
		p.DenyReplacement = loaded.DenyReplacement
	}
	if len(loaded.HandoffMarkers) > 0 {
		p.HandoffMarkers = loaded.HandoffMarkers
	}
	return p, nil
}

// Hint returns the lead-capture instruction for the configured mode.
func (p Policy) Hint(mode string) string {
	if hint, ok := p.HandoffHints[mode]; ok {
		return hint
	}
	return p.HandoffHints[config.LeadModeSoft]
}

// Filter replaces a reply that mentions any denylisted term. The match is
// case-insensitive substring, so stems catch inflected forms.
func (p Policy) Filter(reply string) (string, bool) {
	low := strings.ToLower(reply)
	for _, term := range p.Denylist {
		if term != "" && strings.Contains(low, strings.ToLower(term)) {
			return p.DenyReplacement, true
		}
	}
	return reply, false
}

// IsHandoff reports whether the reply asks the customer for contact
// details, which is the signal to alert the operator.
func (p Policy) IsHandoff(reply string) bool {
	low := strings.ToLower(reply)
	for _, marker := range p.HandoffMarkers {
		if marker != "" && strings.Contains(low, strings.ToLower(marker)) {
			return true
		}
	}
	return false
}
