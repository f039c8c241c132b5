// Package compact keeps a conversation's token footprint inside an LLM's
// context window by summarizing older turns once a usage threshold is
// crossed, and normalizes a conversation's role/visibility invariants
// independently of compaction.
package compact

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// Role identifies a message's sender.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// PartType identifies the kind of content a ContentPart carries.
type PartType string

const (
	PartText         PartType = "text"
	PartImage        PartType = "image"
	PartToolRequest  PartType = "tool_request"
	PartToolResponse PartType = "tool_response"
	PartThinking     PartType = "thinking"
)

// ContentPart is one ordered piece of a Message's content.
type ContentPart struct {
	Type PartType

	// Text holds the text for PartText/PartThinking, or an image
	// reference/caption for PartImage.
	Text string

	// ToolCallID links a PartToolRequest to its PartToolResponse.
	ToolCallID string
}

// Message is one turn in a Conversation.
type Message struct {
	ID      string
	Role    Role
	Content []ContentPart

	// AgentVisible controls whether this message is sent to the LLM.
	// UserVisible controls whether it is shown to a human observer.
	AgentVisible bool
	UserVisible  bool
}

// HasTextOnly reports whether m contains at least one text part and no
// tool request/response parts.
func (m Message) HasTextOnly() bool {
	hasText := false
	for _, c := range m.Content {
		switch c.Type {
		case PartText:
			hasText = true
		case PartToolRequest, PartToolResponse:
			return false
		}
	}
	return hasText
}

// ConcatText joins every text part of m with newlines.
func (m Message) ConcatText() string {
	var out string
	for _, c := range m.Content {
		if c.Type != PartText {
			continue
		}
		if out != "" {
			out += "\n"
		}
		out += c.Text
	}
	return out
}

// EffectiveRole returns m.Role, except a user message whose content is
// entirely tool responses is treated as RoleTool for adjacency checks.
func (m Message) EffectiveRole() Role {
	if m.Role != RoleUser || len(m.Content) == 0 {
		return m.Role
	}
	for _, c := range m.Content {
		if c.Type != PartToolResponse {
			return m.Role
		}
	}
	return RoleTool
}

// Conversation is an ordered sequence of Messages.
type Conversation []Message

// TokenCounter estimates the token footprint of a conversation. A nil
// TokenCounter passed to NewCompactor falls back to the string-length
// heuristic in FallbackTokenCounter.
type TokenCounter interface {
	CountTokens(messages []Message) int
}

// FallbackTokenCounter estimates tokens as total content byte length / 4,
// the conventional rough ratio when no provider-specific tokenizer is
// available.
type FallbackTokenCounter struct{}

// CountTokens implements TokenCounter.
func (FallbackTokenCounter) CountTokens(messages []Message) int {
	chars := 0
	for _, m := range messages {
		for _, c := range m.Content {
			chars += len(c.Text)
		}
	}
	return chars / 4
}

// Usage reports token accounting for a single provider call.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// Provider summarizes a conversation via an external LLM call. systemPrompt
// carries the rendered summarization instructions; userPrompt is the
// trailing user turn asking for the summary.
type Provider interface {
	Summarize(ctx context.Context, systemPrompt, userPrompt string) (Message, Usage, error)
}

// DefaultCompactionThreshold is the usage ratio above which compaction
// triggers, matching the reference implementation's default.
const DefaultCompactionThreshold = 0.8

// ErrContextStillExceeded is returned by DoCompact when even removing every
// tool-response message leaves the summarization request over budget.
var ErrContextStillExceeded = fmt.Errorf("compact: context limit exceeded even after removing all tool responses")

// Compactor holds a Provider, an optional TokenCounter (falls back to
// FallbackTokenCounter), and a logger.
type Compactor struct {
	Provider Provider
	Counter  TokenCounter
	Logger   zerolog.Logger
}

// NewCompactor constructs a Compactor. counter may be nil.
func NewCompactor(provider Provider, counter TokenCounter, logger zerolog.Logger) *Compactor {
	if counter == nil {
		counter = FallbackTokenCounter{}
	}
	return &Compactor{Provider: provider, Counter: counter, Logger: logger}
}

// NeedsCompaction reports whether conversation's agent-visible token usage
// exceeds threshold (DefaultCompactionThreshold if threshold is outside
// (0,1)) of contextWindow.
// sessionTotalTokens, if > 0, is used instead of re-estimating from text.
func (c *Compactor) NeedsCompaction(conversation Conversation, contextWindow int, sessionTotalTokens int, threshold float64) bool {
	if threshold <= 0 || threshold >= 1 {
		threshold = DefaultCompactionThreshold
	}

	var current int
	if sessionTotalTokens > 0 {
		current = sessionTotalTokens
	} else {
		current = c.Counter.CountTokens(agentVisible(conversation))
	}

	if contextWindow <= 0 {
		return false
	}
	ratio := float64(current) / float64(contextWindow)
	needs := ratio > threshold

	c.Logger.Debug().
		Int("tokens", current).
		Int("window", contextWindow).
		Float64("ratio", ratio).
		Float64("threshold", threshold).
		Bool("needs_compaction", needs).
		Msg("compaction check")

	return needs
}

func agentVisible(conversation Conversation) []Message {
	out := make([]Message, 0, len(conversation))
	for _, m := range conversation {
		if m.AgentVisible {
			out = append(out, m)
		}
	}
	return out
}
