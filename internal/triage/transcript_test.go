package triage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTranscriptTagsSpeakers(t *testing.T) {
	raw := "Nurse: What brings you in today?\nPatient: My chest hurts.\nIt started an hour ago.\nNURSE: Any shortness of breath?"
	transcript, err := ParseTranscript(raw)
	require.NoError(t, err)
	require.Len(t, transcript.Utterances, 3)

	assert.Equal(t, SpeakerNurse, transcript.Utterances[0].Speaker)
	assert.Equal(t, "What brings you in today?", transcript.Utterances[0].Text)
	// Untagged continuation folds into the previous utterance.
	assert.Equal(t, SpeakerPatient, transcript.Utterances[1].Speaker)
	assert.Equal(t, "My chest hurts. It started an hour ago.", transcript.Utterances[1].Text)
	// Tag matching is case-insensitive.
	assert.Equal(t, SpeakerNurse, transcript.Utterances[2].Speaker)
}

func TestParseTranscriptLeadingUntaggedIsPatient(t *testing.T) {
	transcript, err := ParseTranscript("I fell off a ladder and my ankle is swollen.")
	require.NoError(t, err)
	require.Len(t, transcript.Utterances, 1)
	assert.Equal(t, SpeakerPatient, transcript.Utterances[0].Speaker)
}

func TestParseTranscriptEmpty(t *testing.T) {
	_, err := ParseTranscript("   \n\t ")
	assert.ErrorIs(t, err, ErrEmptyTranscript)
}

func TestTranscriptTextRendersTaggedLines(t *testing.T) {
	transcript, err := ParseTranscript("Nurse: Hello.\nPatient: Hi.")
	require.NoError(t, err)
	assert.Equal(t, "Nurse: Hello.\nPatient: Hi.", transcript.Text())
}

func TestExtractClinicalDataVitals(t *testing.T) {
	raw := "Patient: I'm a 67 year old man with chest pain, about 8/10 pain.\n" +
		"Nurse: HR: 112, BP: 150/90, temp: 38.2, RR: 22, O2: 94."
	transcript, err := ParseTranscript(raw)
	require.NoError(t, err)

	data := ExtractClinicalData(transcript)
	assert.Equal(t, 67, data.Age)
	assert.Equal(t, 112, data.Vitals.HeartRate)
	assert.Equal(t, "150/90", data.Vitals.BloodPressure)
	assert.Equal(t, 38.2, data.Vitals.Temperature)
	assert.Equal(t, 22, data.Vitals.RespiratoryRate)
	assert.Equal(t, 94, data.Vitals.OxygenSaturation)
	assert.Equal(t, 8, data.Vitals.PainScore)
}

func TestExtractClinicalDataSymptomsAndComplaint(t *testing.T) {
	raw := "Nurse: What happened?\nPatient: I have a bad cough and some nausea with a fever."
	transcript, err := ParseTranscript(raw)
	require.NoError(t, err)

	data := ExtractClinicalData(transcript)
	assert.Equal(t, []string{"gastrointestinal", "general", "respiratory"}, data.Symptoms)
	assert.Equal(t, "I have a bad cough and some nausea with a fever.", data.ChiefComplaint)
}

func TestExtractClinicalDataIgnoresImplausiblePainScore(t *testing.T) {
	transcript, err := ParseTranscript("Patient: the pain started 45 minutes ago")
	require.NoError(t, err)

	data := ExtractClinicalData(transcript)
	assert.Zero(t, data.Vitals.PainScore)
}
