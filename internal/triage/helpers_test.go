package triage

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// scriptedClient replays canned replies (or errors) in call order and records
// every request it sees.
type scriptedClient struct {
	mu       sync.Mutex
	replies  []scriptedReply
	requests []LLMRequest
}

type scriptedReply struct {
	text string
	err  error
}

func (c *scriptedClient) push(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.replies = append(c.replies, scriptedReply{text: text})
}

func (c *scriptedClient) pushErr(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.replies = append(c.replies, scriptedReply{err: err})
}

func (c *scriptedClient) Complete(ctx context.Context, req LLMRequest) (LLMResponse, error) {
	if err := ctx.Err(); err != nil {
		return LLMResponse{}, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.requests = append(c.requests, req)
	if len(c.replies) == 0 {
		return LLMResponse{}, fmt.Errorf("scripted client: no reply queued")
	}
	reply := c.replies[0]
	c.replies = c.replies[1:]
	if reply.err != nil {
		return LLMResponse{}, reply.err
	}
	return LLMResponse{Text: reply.text}, nil
}

// staticClient answers every request with the same reply. Safe for concurrent
// use by multiple agents.
type staticClient struct {
	text string
	err  error
}

func (c *staticClient) Complete(ctx context.Context, _ LLMRequest) (LLMResponse, error) {
	if err := ctx.Err(); err != nil {
		return LLMResponse{}, err
	}
	if c.err != nil {
		return LLMResponse{}, c.err
	}
	return LLMResponse{Text: c.text}, nil
}

func opinionJSON(esi int, confidence float64, justification string) string {
	return fmt.Sprintf(`{
		"esi_level": %d,
		"confidence": %v,
		"justification": %q,
		"differential_diagnoses": [{"condition": "acute coronary syndrome", "rationale": "chest pain with exertion"}],
		"recommended_actions": ["obtain 12-lead ECG"]
	}`, esi, confidence, justification)
}

func testTranscript(t *testing.T) Transcript {
	t.Helper()
	transcript, err := ParseTranscript("Patient: I have crushing chest pain in my chest.\nNurse: HR: 112, BP: 150/90. When did it start?\nPatient: About an hour ago.")
	require.NoError(t, err)
	return transcript
}

func testRole(id string) AgentRole {
	template := id
	if _, ok := roleTemplates[id]; !ok {
		template = "triage_nurse"
	}
	return AgentRole{ID: id, Specialty: "Emergency Medicine", TemplateName: template, Model: "gpt-4o-mini"}
}

func caseWithRound(t *testing.T, opinions []Opinion, verdict Verdict) *Case {
	t.Helper()
	kase, err := NewCase(testTranscript(t))
	require.NoError(t, err)

	round := Round{Number: 1, Opinions: opinions, Verdict: verdict}
	round.AgreementRatio = modalAgreement(round.Successful())
	require.NoError(t, kase.AppendRound(round))
	return kase
}
