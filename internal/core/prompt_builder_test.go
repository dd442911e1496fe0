package core

import (
	"errors"
	"strings"
	"testing"

	"clinic-chatbot/internal/store"

	"github.com/stretchr/testify/assert"
)

type fakeDirectory struct {
	doctors []store.Doctor
	err     error
}

func (f *fakeDirectory) ListAvailableDoctors() ([]store.Doctor, error) {
	return f.doctors, f.err
}

var testPromptTexts = PromptTexts{
	Policy:    "You are a medical assistant.",
	Directive: "Here is the doctor table:",
	Fallback:  "If no data matches, suggest a specialty.",
}

func TestBuildSystemPromptWithDoctors(t *testing.T) {
	dir := &fakeDirectory{doctors: []store.Doctor{
		{Name: "Richard James", Speciality: "General physician", Degree: "MBBS", Experience: "4 Years", Fees: 50, AddressLine1: "17th Cross, Richmond"},
		{Name: "Emily Larson", Speciality: "Gynecologist", Degree: "MBBS", Experience: "3 Years", Fees: 60, AddressLine1: ""},
	}}
	b := NewPromptBuilder(dir, testPromptTexts)

	prompt := b.BuildSystemPrompt()

	assert.True(t, strings.HasPrefix(prompt, testPromptTexts.Policy))
	assert.Contains(t, prompt, testPromptTexts.Directive)
	assert.Contains(t, prompt, "- Dr. Richard James: Speciality: General physician, Degree: MBBS, Experience: 4 Years, Fees: 50, Location: 17th Cross, Richmond")
	assert.Contains(t, prompt, "Location: N/A") // missing address falls back
	assert.True(t, strings.HasSuffix(prompt, testPromptTexts.Fallback))
}

func TestBuildSystemPromptEmptyDirectory(t *testing.T) {
	b := NewPromptBuilder(&fakeDirectory{}, testPromptTexts)

	prompt := b.BuildSystemPrompt()

	assert.Contains(t, prompt, "No doctor data available.")
	assert.NotContains(t, prompt, "- Dr.")
	assert.Contains(t, prompt, testPromptTexts.Fallback)
}

func TestBuildSystemPromptDirectoryError(t *testing.T) {
	b := NewPromptBuilder(&fakeDirectory{err: errors.New("db closed")}, testPromptTexts)

	prompt := b.BuildSystemPrompt()

	assert.Contains(t, prompt, "Error retrieving doctor data.")
	assert.NotContains(t, prompt, "- Dr.")
}
