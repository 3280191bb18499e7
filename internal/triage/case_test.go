package triage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCaseRejectsEmptyTranscript(t *testing.T) {
	_, err := NewCase(Transcript{})
	assert.ErrorIs(t, err, ErrEmptyTranscript)
}

func TestNewCaseExtractsClinicalData(t *testing.T) {
	kase, err := NewCase(testTranscript(t))
	require.NoError(t, err)
	assert.NotEmpty(t, kase.ID)
	assert.False(t, kase.CreatedAt.IsZero())
	assert.Equal(t, 112, kase.Clinical.Vitals.HeartRate)
	assert.Contains(t, kase.Clinical.ChiefComplaint, "crushing chest pain")
}

func TestFinalizeRequiresARound(t *testing.T) {
	kase, err := NewCase(testTranscript(t))
	require.NoError(t, err)
	assert.ErrorIs(t, kase.Finalize(Consensus{FinalESI: 3}), ErrInvalidCaseState)
}

func TestFinalizeIsOnce(t *testing.T) {
	kase, err := NewCase(testTranscript(t))
	require.NoError(t, err)
	require.NoError(t, kase.AppendRound(Round{Number: 1, Verdict: VerdictReached}))

	require.NoError(t, kase.Finalize(Consensus{FinalESI: 2}))
	assert.True(t, kase.Finalized())
	assert.ErrorIs(t, kase.Finalize(Consensus{FinalESI: 3}), ErrAlreadyFinalized)
	// The committed consensus is untouched by the rejected second attempt.
	assert.Equal(t, 2, kase.Consensus.FinalESI)
}

func TestAppendRoundAfterFinalize(t *testing.T) {
	kase, err := NewCase(testTranscript(t))
	require.NoError(t, err)
	require.NoError(t, kase.AppendRound(Round{Number: 1, Verdict: VerdictReached}))
	require.NoError(t, kase.Finalize(Consensus{FinalESI: 2}))

	assert.ErrorIs(t, kase.AppendRound(Round{Number: 2}), ErrAlreadyFinalized)
}

func TestLastRound(t *testing.T) {
	kase, err := NewCase(testTranscript(t))
	require.NoError(t, err)

	_, ok := kase.LastRound()
	assert.False(t, ok)

	require.NoError(t, kase.AppendRound(Round{Number: 1}))
	require.NoError(t, kase.AppendRound(Round{Number: 2}))
	last, ok := kase.LastRound()
	require.True(t, ok)
	assert.Equal(t, 2, last.Number)
}

func TestRoundSuccessfulFiltersFailures(t *testing.T) {
	round := Round{Opinions: []Opinion{
		{RoleID: "a", ESI: 2},
		{RoleID: "b", Failed: true, Err: "timeout"},
		{RoleID: "c", ESI: 3},
	}}
	successful := round.Successful()
	require.Len(t, successful, 2)
	assert.Equal(t, "a", successful[0].RoleID)
	assert.Equal(t, "c", successful[1].RoleID)
}
