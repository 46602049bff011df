package agent

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStream yields a fixed fragment sequence, optionally ending in an error.
type fakeStream struct {
	fragments []string
	err       error
	pos       int
}

func (s *fakeStream) Recv() (string, error) {
	if s.pos < len(s.fragments) {
		frag := s.fragments[s.pos]
		s.pos++
		return frag, nil
	}
	if s.err != nil {
		return "", s.err
	}
	return "", io.EOF
}

type fakeProvider struct {
	fragments []string
	streamErr error
	openErr   error
	lastReq   Request
}

func (p *fakeProvider) Stream(_ context.Context, req Request) (Stream, error) {
	p.lastReq = req
	if p.openErr != nil {
		return nil, p.openErr
	}
	return &fakeStream{fragments: p.fragments, err: p.streamErr}, nil
}

func (p *fakeProvider) Name() string {
	return "fake"
}

func newTestAnalyzer(p Provider) *Analyzer {
	return NewAnalyzer(p, "test-model", zerolog.Nop(), nil)
}

func TestAnswerAccumulatesFragments(t *testing.T) {
	provider := &fakeProvider{fragments: []string{"Hemoglobin ", "is ", "low."}}
	analyzer := newTestAnalyzer(provider)

	answer := analyzer.Answer(context.Background(), "report text", "what about hemoglobin?")
	assert.Equal(t, "Hemoglobin is low.", answer)
}

func TestAnswerEmbedsReportAndQuestion(t *testing.T) {
	provider := &fakeProvider{fragments: []string{"ok"}}
	analyzer := newTestAnalyzer(provider)

	analyzer.Answer(context.Background(), "Hemoglobin 9.2 g/dL", "is this normal?")

	assert.Contains(t, provider.lastReq.Prompt, "Hemoglobin 9.2 g/dL")
	assert.Contains(t, provider.lastReq.Prompt, "User's question: is this normal?")
	assert.Contains(t, provider.lastReq.Prompt, "consulting with a healthcare provider")
	assert.Contains(t, provider.lastReq.System, Persona)
	assert.Equal(t, "test-model", provider.lastReq.Model)
}

func TestAnswerWhitespaceOnlyFallsBack(t *testing.T) {
	provider := &fakeProvider{fragments: []string{"  ", "\n\t"}}
	analyzer := newTestAnalyzer(provider)

	answer := analyzer.Answer(context.Background(), "report", "question")
	assert.Equal(t, fallbackEmpty, answer)
}

func TestAnswerNoFragmentsFallsBack(t *testing.T) {
	provider := &fakeProvider{}
	analyzer := newTestAnalyzer(provider)

	answer := analyzer.Answer(context.Background(), "report", "question")
	assert.Equal(t, fallbackEmpty, answer)
}

func TestAnswerOpenErrorFallsBack(t *testing.T) {
	provider := &fakeProvider{openErr: errors.New("quota exhausted")}
	analyzer := newTestAnalyzer(provider)

	answer := analyzer.Answer(context.Background(), "report", "question")
	assert.Equal(t, fallbackError, answer)
}

func TestAnswerMidStreamErrorFallsBack(t *testing.T) {
	provider := &fakeProvider{
		fragments: []string{"partial "},
		streamErr: errors.New("connection reset"),
	}
	analyzer := newTestAnalyzer(provider)

	answer := analyzer.Answer(context.Background(), "report", "question")
	assert.Equal(t, fallbackError, answer)
}

func TestBuildPrompt(t *testing.T) {
	prompt := BuildPrompt("WBC 11.2", "what does WBC mean?")

	assert.Contains(t, prompt, "Here is a medical lab report:")
	assert.Contains(t, prompt, "WBC 11.2")
	assert.Contains(t, prompt, "User's question: what does WBC mean?")
	require.Contains(t, prompt, "Never provide specific medical diagnoses")
}

func TestSystemPromptCarriesInstructions(t *testing.T) {
	provider := &fakeProvider{fragments: []string{"ok"}}
	analyzer := newTestAnalyzer(provider)
	analyzer.Answer(context.Background(), "r", "q")

	for _, inst := range Instructions {
		assert.Contains(t, provider.lastReq.System, inst)
	}
}
