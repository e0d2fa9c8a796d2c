package service

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/uran124/avito-relay/internal/audit"
	"github.com/uran124/avito-relay/internal/config"
	"github.com/uran124/avito-relay/internal/llm"
	"github.com/uran124/avito-relay/internal/model"
	"github.com/uran124/avito-relay/internal/notify"
	"github.com/uran124/avito-relay/internal/policy"
	"github.com/uran124/avito-relay/internal/prompt"
	"github.com/uran124/avito-relay/internal/store"
)

// InboundEvent is one parsed webhook delivery.
type InboundEvent struct {
	ChatID     string
	Text       string
	RawPayload json.RawMessage
}

// Result is what the synchronous webhook reply carries back.
type Result struct {
	ChatID    string
	ReplyText string
	Phone     *string
}

// Pipeline runs one inbound message through persistence, generation,
// filtering and the operator alert decision. All degradations happen
// inside: a returned error means the request itself was unusable, not
// that some upstream wobbled.
type Pipeline struct {
	primary      store.ConversationStore
	fallback     store.ConversationStore
	llm          llm.Client
	notify       *notify.Engine
	policy       policy.Policy
	leadMode     string
	historyLimit int
}

type PipelineOptions struct {
	Primary      store.ConversationStore
	Fallback     store.ConversationStore
	LLM          llm.Client
	Notify       *notify.Engine
	Policy       policy.Policy
	LeadMode     string
	HistoryLimit int
}

func NewPipeline(opts PipelineOptions) *Pipeline {
	limit := opts.HistoryLimit
	if limit < 1 || limit > config.MaxHistoryLimit {
		limit = config.FallbackHistoryCap
	}
	return &Pipeline{
		primary:      opts.Primary,
		fallback:     opts.Fallback,
		llm:          opts.LLM,
		notify:       opts.Notify,
		policy:       opts.Policy,
		leadMode:     opts.LeadMode,
		historyLimit: limit,
	}
}

// ProcessEvent handles one delivery end to end. The reply is always
// non-empty: generation failures and filtered replies degrade to the
// policy's fixed texts.
func (p *Pipeline) ProcessEvent(ctx context.Context, event InboundEvent) (*Result, error) {
	backend := store.NewFailover(p.primary, p.fallback)

	conv, err := backend.GetOrCreate(ctx, event.ChatID)
	if err != nil {
		return nil, err
	}
	collected := conv.Collected.Clone()

	if err := backend.AppendMessage(ctx, conv, model.RoleUser, event.Text); err != nil {
		return nil, err
	}

	// Merge in-memory, then replace wholesale: collected is never
	// re-derived from stored history.
	if phone := DetectPhone(event.Text); phone != "" {
		collected["phone"] = phone
		if err := backend.UpdateCollected(ctx, conv, collected); err != nil {
			return nil, err
		}
	}

	history, err := backend.RecentHistory(ctx, conv, p.historyLimit)
	if err != nil {
		return nil, err
	}

	instructions := prompt.Build(p.policy, history, p.leadMode)

	reply, err := p.llm.Complete(ctx, instructions, event.Text)
	if err != nil {
		log.Error().Err(err).Str("chat_id", event.ChatID).Str("provider", p.llm.Name()).
			Msg("completion failed, using fallback reply")
		reply = p.policy.FallbackReply
	}
	if reply == "" {
		reply = p.policy.FallbackReply
	}

	if filtered, hit := p.policy.Filter(reply); hit {
		log.Warn().Str("chat_id", event.ChatID).Msg("reply hit denylist, replaced")
		reply = filtered
	}

	if err := backend.AppendMessage(ctx, conv, model.RoleAssistant, reply); err != nil {
		log.Error().Err(err).Str("chat_id", event.ChatID).Msg("failed to store assistant reply")
	}

	var phone *string
	if v, ok := collected["phone"]; ok && v != "" {
		phone = &v
	}

	if p.notify.ShouldNotify(reply) {
		p.notify.Notify(ctx, notify.Alert{
			ChatID: event.ChatID,
			In:     event.Text,
			Out:    reply,
			Phone:  collected["phone"],
		})
		p.captureLead(ctx, backend, conv, event, reply, collected, phone)
	}

	return &Result{ChatID: event.ChatID, ReplyText: reply, Phone: phone}, nil
}

// captureLead inserts the lead row on the primary backend only. Failures
// are logged and never affect the customer reply.
func (p *Pipeline) captureLead(
	ctx context.Context,
	backend *store.Failover,
	conv *model.Conversation,
	event InboundEvent,
	reply string,
	collected model.Collected,
	phone *string,
) {
	if backend.UsingFallback() {
		log.Debug().Str("chat_id", event.ChatID).Msg("lead capture skipped on file sessions")
		return
	}

	err := backend.InsertLead(ctx, model.CreateLeadParams{
		ConversationID: conv.ID,
		ChatID:         event.ChatID,
		Phone:          phone,
		Payload: model.LeadPayload{
			In:         event.Text,
			Out:        reply,
			Collected:  collected,
			RawPayload: event.RawPayload,
		},
		Status: model.LeadStatusHandoff,
	})
	if err != nil {
		log.Error().Err(err).Str("chat_id", event.ChatID).Msg("lead insert failed")
		return
	}
	audit.Log(audit.Event{Type: audit.EventLeadCreated, ChatID: event.ChatID})
}
