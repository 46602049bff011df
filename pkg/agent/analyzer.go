package agent

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/harun/labreport/internal/metrics"
	"github.com/rs/zerolog"
)

// Persona is the fixed description the provider is configured with.
const Persona = "You are a helpful medical assistant that explains lab test reports and terms in simple language. Never give diagnoses or medication advice."

// Instructions is the fixed instruction set appended to the persona.
var Instructions = []string{
	"When a user asks about a medical term, explain it simply.",
	"If lab values are given (e.g., Hemoglobin 9.2 g/dL), explain what the normal range is and if it's high/low.",
	"Be reassuring and educational. Suggest consulting a doctor for accurate health evaluation.",
	"Avoid giving prescriptions or critical decisions.",
	"If the user pastes an entire report, break down each test and explain its meaning and status.",
	"Always explain in a simple language.",
	"Use bullet points and clear formatting for better readability.",
}

const (
	fallbackEmpty = "I apologize, but I couldn't generate a response. Please try rephrasing your question."
	fallbackError = "I'm sorry, but I encountered an error while processing your question. Please try again."
)

// Analyzer is the report Q&A adapter. It builds the composite prompt,
// forwards it to the provider and drains the streamed fragments into one
// answer string. Provider failures never propagate to the HTTP layer; they
// are downgraded to a fixed fallback answer.
type Analyzer struct {
	provider Provider
	model    string
	system   string
	logger   zerolog.Logger
	metrics  *metrics.Metrics
}

// NewAnalyzer creates an analyzer over the given provider. metrics may be
// nil.
func NewAnalyzer(provider Provider, model string, logger zerolog.Logger, m *metrics.Metrics) *Analyzer {
	var sb strings.Builder
	sb.WriteString(Persona)
	sb.WriteString("\n\nInstructions:\n")
	for _, inst := range Instructions {
		sb.WriteString("- ")
		sb.WriteString(inst)
		sb.WriteByte('\n')
	}
	sb.WriteString("\nFormat responses as markdown.")

	return &Analyzer{
		provider: provider,
		model:    model,
		system:   sb.String(),
		logger:   logger.With().Str("component", "analyzer").Logger(),
		metrics:  m,
	}
}

// BuildPrompt embeds the full report text and the literal question into the
// composite prompt sent to the provider.
func BuildPrompt(reportText, question string) string {
	return fmt.Sprintf(`Here is a medical lab report:

%s

User's question: %s

Please analyze this lab report and answer the user's question. Remember to:
- Explain medical terms in simple language
- Mention normal ranges when discussing lab values
- Be reassuring and educational
- Always recommend consulting with a healthcare provider
- Never provide specific medical diagnoses or treatment recommendations`, reportText, question)
}

// Answer returns the full answer for a question about the report. It always
// returns a non-empty string.
func (a *Analyzer) Answer(ctx context.Context, reportText, question string) string {
	start := time.Now()

	stream, err := a.provider.Stream(ctx, Request{
		Model:  a.model,
		System: a.system,
		Prompt: BuildPrompt(reportText, question),
	})
	if err != nil {
		a.logger.Error().Err(err).Str("provider", a.provider.Name()).Msg("Agent call failed")
		a.observe(start, false)
		return fallbackError
	}

	var sb strings.Builder
	for {
		frag, err := stream.Recv()
		if err == io.EOF {
			break
		}
		if err != nil {
			a.logger.Error().Err(err).Str("provider", a.provider.Name()).Msg("Agent stream failed")
			a.observe(start, false)
			return fallbackError
		}
		sb.WriteString(frag)
	}

	a.observe(start, true)

	answer := sb.String()
	if strings.TrimSpace(answer) == "" {
		return fallbackEmpty
	}
	return answer
}

func (a *Analyzer) observe(start time.Time, success bool) {
	if a.metrics == nil {
		return
	}
	a.metrics.ObserveAgentCall(a.provider.Name(), time.Since(start), success)
}
