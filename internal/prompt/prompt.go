package prompt

import (
	"strings"

	"github.com/uran124/avito-relay/internal/model"
	"github.com/uran124/avito-relay/internal/policy"
)

// Build assembles the single instructions string for one completion call:
// knowledge base, the bounded dialog context as "ROLE: text" lines (newest
// last), the lead-capture hint for the configured mode, and the closing
// style instruction. The new inbound text travels separately as the user
// input, never inside the instructions.
func Build(p policy.Policy, history []model.HistoryEntry, leadMode string) string {
	var b strings.Builder
	b.WriteString(p.KnowledgeBase)
	b.WriteString("\n\n")
	b.WriteString("Контекст диалога (последние сообщения):\n")
	for _, entry := range history {
		if entry.Text == "" {
			continue
		}
		b.WriteString(strings.ToUpper(string(entry.Role)))
		b.WriteString(": ")
		b.WriteString(entry.Text)
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(p.Hint(leadMode))
	b.WriteString("\n")
	b.WriteString(p.ClosingInstruction)
	b.WriteString("\n")
	return b.String()
}
