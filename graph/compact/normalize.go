package compact

// Normalize runs the fixer pipeline over conversation's agent-visible
// subset, then reintegrates the invisible messages at their original
// positions. It returns the repaired conversation plus a human-readable
// issue string per correction made, for diagnostics.
func Normalize(conversation Conversation) (Conversation, []string) {
	visible, shadow := splitByVisibility(conversation)

	var issues []string
	fixers := []func(Conversation) (Conversation, []string){
		mergeAdjacentText,
		trimTrailingWhitespace,
		dropEmptyMessages,
		fixToolCallingRoles,
		dropOrphanToolMessages,
		mergeConsecutiveSameRole,
		trimLeadingTrailingAssistant,
	}
	for _, fix := range fixers {
		var fixIssues []string
		visible, fixIssues = fix(visible)
		issues = append(issues, fixIssues...)
	}

	if len(visible) == 0 {
		visible = Conversation{{
			Role:         RoleUser,
			Content:      []ContentPart{{Type: PartText, Text: "Hello"}},
			AgentVisible: true,
			UserVisible:  true,
		}}
		issues = append(issues, "conversation was empty after normalization; inserted placeholder message")
	}

	return reintegrateShadow(visible, shadow), issues
}

// shadowMessage records an invisible message's original position so it can
// be spliced back in after the visible subset is normalized.
type shadowMessage struct {
	afterIndex int // index into the ORIGINAL visible slice this followed, -1 for "before all"
	message    Message
}

func splitByVisibility(conversation Conversation) (Conversation, []shadowMessage) {
	var visible Conversation
	var shadow []shadowMessage
	lastVisible := -1
	for _, m := range conversation {
		if m.AgentVisible {
			visible = append(visible, m)
			lastVisible++
			continue
		}
		shadow = append(shadow, shadowMessage{afterIndex: lastVisible, message: m})
	}
	return visible, shadow
}

func reintegrateShadow(visible Conversation, shadow []shadowMessage) Conversation {
	if len(shadow) == 0 {
		return visible
	}
	out := make(Conversation, 0, len(visible)+len(shadow))
	for i := -1; i < len(visible); i++ {
		for _, s := range shadow {
			if s.afterIndex == i {
				out = append(out, s.message)
			}
		}
		if i >= 0 {
			out = append(out, visible[i])
		}
	}
	// Shadow messages anchored past the end of the (possibly shorter)
	// normalized visible slice follow the last visible message.
	for _, s := range shadow {
		if s.afterIndex >= len(visible) {
			out = append(out, s.message)
		}
	}
	return out
}

// mergeAdjacentText joins consecutive text parts within assistant messages.
func mergeAdjacentText(messages Conversation) (Conversation, []string) {
	out := make(Conversation, 0, len(messages))
	var issues []string
	for _, m := range messages {
		if m.Role != RoleAssistant {
			out = append(out, m)
			continue
		}
		merged := make([]ContentPart, 0, len(m.Content))
		for _, c := range m.Content {
			if n := len(merged); n > 0 && merged[n-1].Type == PartText && c.Type == PartText {
				merged[n-1].Text += c.Text
				issues = append(issues, "merged adjacent text parts in message "+m.ID)
				continue
			}
			merged = append(merged, c)
		}
		m.Content = merged
		out = append(out, m)
	}
	return out, issues
}

// trimTrailingWhitespace trims trailing whitespace from assistant text parts.
func trimTrailingWhitespace(messages Conversation) (Conversation, []string) {
	var issues []string
	for i := range messages {
		if messages[i].Role != RoleAssistant {
			continue
		}
		for j := range messages[i].Content {
			if messages[i].Content[j].Type != PartText {
				continue
			}
			trimmed := trimRight(messages[i].Content[j].Text)
			if trimmed != messages[i].Content[j].Text {
				issues = append(issues, "trimmed trailing whitespace in message "+messages[i].ID)
				messages[i].Content[j].Text = trimmed
			}
		}
	}
	return messages, issues
}

func trimRight(s string) string {
	end := len(s)
	for end > 0 {
		c := s[end-1]
		if c != ' ' && c != '\t' && c != '\n' && c != '\r' {
			break
		}
		end--
	}
	return s[:end]
}

func dropEmptyMessages(messages Conversation) (Conversation, []string) {
	out := make(Conversation, 0, len(messages))
	var issues []string
	for _, m := range messages {
		if len(m.Content) == 0 {
			issues = append(issues, "dropped empty message "+m.ID)
			continue
		}
		out = append(out, m)
	}
	return out, issues
}

// fixToolCallingRoles strips content that violates role conventions: tool
// requests and thinking blocks found on a user message, and tool responses
// found on an assistant message. These arise from provider-side replay
// quirks rather than genuine conversation structure, so the content is
// dropped rather than the whole message.
func fixToolCallingRoles(messages Conversation) (Conversation, []string) {
	var issues []string
	out := make(Conversation, 0, len(messages))
	for _, m := range messages {
		kept := make([]ContentPart, 0, len(m.Content))
		for _, c := range m.Content {
			switch {
			case m.Role == RoleUser && (c.Type == PartToolRequest || c.Type == PartThinking):
				issues = append(issues, "dropped "+string(c.Type)+" found on user message "+m.ID)
				continue
			case m.Role == RoleAssistant && c.Type == PartToolResponse:
				issues = append(issues, "dropped tool response found on assistant message "+m.ID)
				continue
			}
			kept = append(kept, c)
		}
		m.Content = kept
		out = append(out, m)
	}
	return out, issues
}

// dropOrphanToolMessages removes PartToolResponse parts with no matching
// PartToolRequest earlier in the conversation, and PartToolRequest parts
// with no matching response later, keeping tool exchanges well-formed.
func dropOrphanToolMessages(messages Conversation) (Conversation, []string) {
	var issues []string

	// answered holds request ids that have a response after the request.
	seen := make(map[string]bool)
	answered := make(map[string]bool)
	for _, m := range messages {
		for _, c := range m.Content {
			switch c.Type {
			case PartToolRequest:
				seen[c.ToolCallID] = true
			case PartToolResponse:
				if seen[c.ToolCallID] {
					answered[c.ToolCallID] = true
				}
			}
		}
	}

	requested := make(map[string]bool)
	out := make(Conversation, 0, len(messages))
	for _, m := range messages {
		kept := make([]ContentPart, 0, len(m.Content))
		for _, c := range m.Content {
			switch c.Type {
			case PartToolResponse:
				if !requested[c.ToolCallID] {
					issues = append(issues, "dropped orphan tool response "+c.ToolCallID)
					continue
				}
			case PartToolRequest:
				requested[c.ToolCallID] = true
				if !answered[c.ToolCallID] {
					issues = append(issues, "dropped unanswered tool request "+c.ToolCallID)
					continue
				}
			}
			kept = append(kept, c)
		}
		wasNonEmpty := len(m.Content) > 0
		m.Content = kept
		switch {
		case len(kept) > 0:
			out = append(out, m)
		case wasNonEmpty:
			issues = append(issues, "dropped message "+m.ID+" left empty by orphan tool removal")
		}
	}
	return out, issues
}

func mergeConsecutiveSameRole(messages Conversation) (Conversation, []string) {
	if len(messages) == 0 {
		return messages, nil
	}
	var issues []string
	out := Conversation{messages[0]}
	for _, m := range messages[1:] {
		last := &out[len(out)-1]
		if last.EffectiveRole() == m.EffectiveRole() {
			last.Content = append(last.Content, m.Content...)
			issues = append(issues, "merged consecutive "+string(m.Role)+" messages")
			continue
		}
		out = append(out, m)
	}
	return out, issues
}

func trimLeadingTrailingAssistant(messages Conversation) (Conversation, []string) {
	var issues []string
	start := 0
	for start < len(messages) && messages[start].EffectiveRole() == RoleAssistant {
		issues = append(issues, "trimmed leading assistant message "+messages[start].ID)
		start++
	}
	end := len(messages)
	for end > start && messages[end-1].EffectiveRole() == RoleAssistant {
		issues = append(issues, "trimmed trailing assistant message "+messages[end-1].ID)
		end--
	}
	return messages[start:end], issues
}
