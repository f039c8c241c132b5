package compact

import (
	"context"
	"fmt"
	"strings"
)

const summarizationSystemPrompt = "Summarize the conversation so far, preserving the key facts, decisions, and outstanding work. Be concise."

const conversationContinuationText = "The conversation above was summarized to save space. Continue from the summary."

const toolLoopContinuationText = "The conversation above was summarized to save space, including an in-progress tool exchange. Pick up where the tool exchange left off."

const manualCompactContinuationText = "The conversation above was summarized at your request. Continue from the summary."

// DoCompact summarizes messages by asking c.Provider for a summary,
// progressively dropping tool-response messages from the middle outward
// (FilterToolResponses) and retrying if the provider reports the request
// still exceeds its context window. It returns the summary message and the
// provider's usage for the call that succeeded.
func (c *Compactor) DoCompact(ctx context.Context, messages []Message) (Message, Usage, error) {
	var lastErr error
	for _, pct := range removalPercents {
		filtered := FilterToolResponses(Conversation(messages), pct)
		prompt := renderTranscript(filtered)

		summary, usage, err := c.Provider.Summarize(ctx, summarizationSystemPrompt, prompt)
		if err == nil {
			return summary, usage, nil
		}
		lastErr = err
		if !isContextLengthError(err) {
			return Message{}, Usage{}, err
		}
		c.Logger.Debug().
			Int("remove_percent", pct).
			Err(err).
			Msg("compaction retry after context length error")
	}
	return Message{}, Usage{}, fmt.Errorf("%w: %v", ErrContextStillExceeded, lastErr)
}

func isContextLengthError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "ContextLengthExceeded")
}

func renderTranscript(messages []Message) string {
	var b strings.Builder
	for _, m := range messages {
		fmt.Fprintf(&b, "[%s]: %s\n", m.Role, m.ConcatText())
	}
	return b.String()
}

// CompactMessages replaces conversation's older turns with a single
// provider-generated summary, leaving the most recent plain user message (if
// any) live for the next turn. When manualCompact is true, the most-recent
// preservation step is skipped and the manual continuation template is used.
func (c *Compactor) CompactMessages(ctx context.Context, conversation Conversation, manualCompact bool) (Conversation, Usage, error) {
	var preserved *Message
	preservedIdx := -1
	if !manualCompact {
		preservedIdx = findPreservedMessage(conversation)
		if preservedIdx >= 0 {
			m := conversation[preservedIdx]
			preserved = &m
		}
	}

	summary, usage, err := c.DoCompact(ctx, agentVisible(conversation))
	if err != nil {
		return nil, Usage{}, err
	}

	out := make(Conversation, 0, len(conversation)+3)
	for i, m := range conversation {
		m.AgentVisible = false
		if i == preservedIdx {
			m.UserVisible = false
		}
		out = append(out, m)
	}

	summary.Role = RoleUser
	summary.AgentVisible = true
	summary.UserVisible = false
	out = append(out, summary)

	continuationText := toolLoopContinuationText
	switch {
	case manualCompact:
		continuationText = manualCompactContinuationText
	case preservedIdx >= 0 && preservedIdx == len(conversation)-1:
		continuationText = conversationContinuationText
	}
	out = append(out, Message{
		Role:         RoleAssistant,
		Content:      []ContentPart{{Type: PartText, Text: continuationText}},
		AgentVisible: true,
		UserVisible:  false,
	})

	if preserved != nil {
		out = append(out, Message{
			Role:         RoleUser,
			Content:      preserved.Content,
			AgentVisible: true,
			UserVisible:  true,
		})
	}

	return out, usage, nil
}

// findPreservedMessage scans backward for the most recent agent-visible,
// text-only user message, returning its index or -1 if none exists.
func findPreservedMessage(conversation Conversation) int {
	for i := len(conversation) - 1; i >= 0; i-- {
		m := conversation[i]
		if !m.AgentVisible || m.Role != RoleUser {
			continue
		}
		if m.HasTextOnly() {
			return i
		}
	}
	return -1
}
