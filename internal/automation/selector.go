package automation

import (
	"context"
	"math/rand/v2"
	"regexp"
	"strings"

	"social-automator-api/internal/ai"
	"social-automator-api/internal/domain"

	"go.uber.org/zap"
)

// defaultReply is used when AI generation fails; dispatch must not stall
// on the generator.
const defaultReply = "Thanks for reaching out! We'll get back to you shortly."

var placeholderPattern = regexp.MustCompile(`\{\{\s*([a-zA-Z0-9_]+)\s*\}\}`)

// Plan is the response plan for one matched comment. A zero action plan
// (no reply, no DM) is a valid outcome.
type Plan struct {
	ReplyText      string
	SendReply      bool
	DMText         string
	SendDM         bool
	UnresolvedVars []string
}

// Selector builds response plans from trigger configuration.
type Selector struct {
	gen ai.Generator
	log *zap.Logger
}

// NewSelector creates a Selector. gen may be nil when no AI generator is
// configured; AI triggers then use the deterministic default.
func NewSelector(gen ai.Generator, log *zap.Logger) *Selector {
	return &Selector{gen: gen, log: log}
}

// SelectResponse builds the plan for one comment and its primary trigger.
func (s *Selector) SelectResponse(ctx context.Context, comment domain.Comment, trig domain.KeywordTrigger) Plan {
	var plan Plan

	if trig.SendCommentReply {
		if trig.UseAI {
			plan.ReplyText = s.generateReply(ctx, comment, trig)
			plan.SendReply = true
		} else if text, ok := pickVariation(trig.CommentVariations); ok {
			plan.ReplyText = text
			plan.SendReply = true
		}
		// No usable variation and no AI: the reply action is omitted.
	}

	if trig.SendDM && trig.DMTemplate != nil && strings.TrimSpace(*trig.DMTemplate) != "" {
		text, unresolved := substitute(*trig.DMTemplate, dmVariables(comment, trig))
		plan.DMText = text
		plan.SendDM = true
		plan.UnresolvedVars = unresolved
	}

	return plan
}

func (s *Selector) generateReply(ctx context.Context, comment domain.Comment, trig domain.KeywordTrigger) string {
	if s.gen == nil {
		return defaultReply
	}

	text, err := s.gen.Generate(ctx, comment.CommentText, trig.Keyword)
	if err != nil {
		s.log.Warn("AI generation failed, using default reply",
			zap.Int64("trigger_id", trig.ID),
			zap.Error(err))
		return defaultReply
	}
	return text
}

// pickVariation returns a uniformly random non-empty variation.
func pickVariation(variations []string) (string, bool) {
	var usable []string
	for _, v := range variations {
		if strings.TrimSpace(v) != "" {
			usable = append(usable, v)
		}
	}
	if len(usable) == 0 {
		return "", false
	}
	return usable[rand.IntN(len(usable))], true
}

// dmVariables merges the trigger's configured variables with the built-in
// ones derived from the comment. Configured values win.
func dmVariables(comment domain.Comment, trig domain.KeywordTrigger) map[string]string {
	vars := map[string]string{
		"username": comment.CommenterUsername,
		"keyword":  trig.Keyword,
		"comment":  comment.CommentText,
	}
	for k, v := range trig.DMVariables {
		vars[k] = v
	}
	return vars
}

// substitute replaces {{var}} placeholders. Unresolved placeholders stay
// verbatim in the output and are reported back.
func substitute(template string, vars map[string]string) (string, []string) {
	var unresolved []string

	result := placeholderPattern.ReplaceAllStringFunc(template, func(match string) string {
		name := placeholderPattern.FindStringSubmatch(match)[1]
		if value, ok := vars[name]; ok {
			return value
		}
		unresolved = append(unresolved, name)
		return match
	})

	return result, unresolved
}
