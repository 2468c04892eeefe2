// Package prompts holds the fixed instruction sets of each pipeline stage
// and the renderers that embed run parameters and prior stage output.
package prompts

import (
	"fmt"
	"strings"

	"github.com/charlescolbourne36-create/joyful-bites-dashboard/internal/domain"
)

// Prompt represents the system prompt + the content to send as "user".
type Prompt struct {
	System string
	User   string
}

const feedbackInstructions = `I'm showing you a marketing creative/advertisement for Joyful Bites. Please carefully look at the image and evaluate it from your perspective.

Campaign facts:
- Product: %s
- Price: %s
- Campaign goal: %s
- Channel: %s

Provide:

1. **Visual Reaction** (What catches your eye? What's your first impression of the image?)
2. **What Works Visually** (Colors, layout, food presentation, people/scenarios shown)
3. **What Doesn't Work** (Visual issues, concerns, or turn-offs)
4. **Copy/Message Evaluation** (If there's text in the image, does it resonate?)
5. **Score** (1-10, where 10 = "I'd definitely order based on this ad")
6. **Recommendation** (DEPLOY / OPTIMIZE / DO NOT DEPLOY)

Please respond in your authentic voice, considering your budget, preferences, motivations, and what you actually SEE in the image.`

const TranslationSystemPrompt = `You are a Creative Translation agent for a QSR marketing team.

You receive raw, in-character feedback from a simulated customer persona about one ad creative. Your job is to turn it into creative direction a designer can act on.

Rules:
- First decide which case applies and say so on the first line:
  "CREATIVE FITS SEGMENT" or "CREATIVE IS MISALIGNED".
- If it fits: list concrete optimizations (copy edits, emphasis, crop, color) that keep the existing layout.
- If it is misaligned: explain the rejection in one paragraph and describe what a segment-specific creative would need instead.
- The product, price, campaign goal and channel are FIXED. Never propose changing them.
- Be specific. Quote the persona where it supports a point.`

const translationTemplate = `FIXED PARAMETERS (cannot change):
- Product: %s
- Price: %s
- Campaign goal: %s
- Channel: %s

PERSONA FEEDBACK:
%s`

const SynthesisSystemPrompt = `You are a Synthesis agent. Convert creative direction into ONE JSON object and nothing else. No prose, no markdown.

Schema:
{
  "detailed_scores": {
    "visual_appeal": {"score": 1-10, "notes": "..."},
    "message_clarity": {"score": 1-10, "notes": "..."},
    "price_perception": {"score": 1-10, "notes": "..."},
    "channel_fit": {"score": 1-10, "notes": "..."}
  },
  "segment_fit_assessment": {
    "fit_score": <integer 1-10>,
    "deployment_recommendation": "DEPLOY" | "OPTIMIZE" | "DO_NOT_DEPLOY",
    "reasoning": "..."
  },
  "prioritized_changes": [{"priority": 1, "change": "...", "rationale": "..."}],
  "optimized_copy": {"headline": "...", "subheadline": "...", "body": "...", "cta": "..."},
  "production_notes": {"better_alternative": "...", "notes": "..."},
  "persona_commentary": "one or two sentences in the persona's voice"
}

Score bands: 8-10 DEPLOY, 5-7 OPTIMIZE, 1-4 DO_NOT_DEPLOY. The recommendation MUST match the band of fit_score.`

const synthesisTemplate = `CREATIVE DIRECTION:
%s

Return the JSON object now.`

const FormatterSystemPrompt = `You are a Production Brief formatter. You receive a persona synthesis JSON and must return ONE JSON object with a "production_brief" key and nothing else.

{
  "production_brief": {
    "decision": "DEPLOY" | "OPTIMIZE" | "DO_NOT_DEPLOY",
    "final_copy": {"headline": "...", "subheadline": "...", "body": "...", "cta": "..."},
    "layout_lock": {"layout": true, "imagery": true, "logo": true},
    "palette_constraints": ["..."],
    "execution_constraints": ["..."]
  }
}

Rules:
- The layout is LOCKED unless fit_score < 5. Never propose moving, adding or removing visual elements.
- Text edits are restricted to text fields that already exist in the creative.
- Always emit the production_brief object. If the decision is DO_NOT_DEPLOY, empty every final_copy field and emit exactly one execution constraint: "Do not produce this creative for this segment."`

const formatterTemplate = `TARGET PERSONA: %s
FIT SCORE: %d
RECOMMENDATION: %s

SYNTHESIS JSON:
%s`

// Feedback builds the stage-1 prompt: persona profile as system context and
// the evaluation request embedding the campaign parameters.
func Feedback(p domain.Persona, params domain.Parameters) Prompt {
	return Prompt{
		System: p.Profile,
		User:   fmt.Sprintf(feedbackInstructions, orNA(params.Product), orNA(params.Price), orNA(params.Goal), orNA(params.Channel)),
	}
}

// Translation builds the stage-2 prompt from stage-1 output.
func Translation(feedback string, params domain.Parameters) Prompt {
	return Prompt{
		System: TranslationSystemPrompt,
		User:   fmt.Sprintf(translationTemplate, orNA(params.Product), orNA(params.Price), orNA(params.Goal), orNA(params.Channel), feedback),
	}
}

// Synthesis builds the stage-3 prompt from stage-2 output.
func Synthesis(direction string) Prompt {
	return Prompt{
		System: SynthesisSystemPrompt,
		User:   fmt.Sprintf(synthesisTemplate, direction),
	}
}

// Formatter builds the stage-4 prompt for a viable persona.
func Formatter(req domain.FormatRequest) Prompt {
	rec := string(req.Recommendation)
	if rec == "" {
		rec = string(domain.BandRecommendation(req.FitScore))
	}
	return Prompt{
		System: FormatterSystemPrompt,
		User:   fmt.Sprintf(formatterTemplate, req.Persona, req.FitScore, rec, req.BriefJSON),
	}
}

// Chat builds the persona chat prompt from the conversation context.
func Chat(p domain.Persona, userMessage string, ctx domain.ConversationContext) Prompt {
	var historyParts []string
	for _, m := range ctx.History {
		role := "customer researcher"
		if m.Author == domain.RoleAgent {
			role = string(p.Name)
		}
		historyParts = append(historyParts, role+": "+m.Text)
	}

	historyText := strings.Join(historyParts, "\n")

	var userContent strings.Builder
	if historyText != "" {
		userContent.WriteString("Conversation so far:\n")
		userContent.WriteString(historyText)
		userContent.WriteString("\n\n")
	}
	userContent.WriteString("New question:\n")
	userContent.WriteString(userMessage)

	return Prompt{
		System: p.Profile,
		User:   userContent.String(),
	}
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "(not specified)"
	}
	return s
}
