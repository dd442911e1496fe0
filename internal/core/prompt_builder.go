package core

import (
	"fmt"
	"log"
	"strings"

	"clinic-chatbot/internal/store"
)

// Placeholder lines used when the doctor directory cannot contribute to the
// prompt. The builder never fails: the model just gets less to work with.
const (
	noDoctorDataText    = "No doctor data available."
	doctorDataErrorText = "Error retrieving doctor data."
)

// PromptTexts holds the configurable pieces of the system prompt. They are
// injected from config rather than hard-coded so they can be tested and
// versioned independently.
type PromptTexts struct {
	Policy    string
	Directive string
	Fallback  string
}

// DoctorLister is the read-only view of the doctor directory the prompt
// builder needs.
type DoctorLister interface {
	ListAvailableDoctors() ([]store.Doctor, error)
}

// PromptBuilder assembles the system instruction for a new conversation:
// fixed policy text, a directive sentence, one bullet line per available
// doctor, and a fallback instruction. The directory snapshot is fetched
// fresh on every call, so the doctor list is current at conversation start
// but frozen for the conversation's lifetime.
type PromptBuilder struct {
	directory DoctorLister
	texts     PromptTexts
}

func NewPromptBuilder(directory DoctorLister, texts PromptTexts) *PromptBuilder {
	return &PromptBuilder{
		directory: directory,
		texts:     texts,
	}
}

func (b *PromptBuilder) BuildSystemPrompt() string {
	parts := []string{
		b.texts.Policy,
		b.texts.Directive,
		b.doctorsSnapshot(),
		b.texts.Fallback,
	}
	return strings.Join(parts, "\n")
}

func (b *PromptBuilder) doctorsSnapshot() string {
	doctors, err := b.directory.ListAvailableDoctors()
	if err != nil {
		log.Printf("Error retrieving doctors for prompt: %v", err)
		return doctorDataErrorText
	}
	if len(doctors) == 0 {
		return noDoctorDataText
	}

	lines := make([]string, 0, len(doctors))
	for _, doc := range doctors {
		location := doc.AddressLine1
		if location == "" {
			location = "N/A"
		}
		lines = append(lines, fmt.Sprintf(
			"- Dr. %s: Speciality: %s, Degree: %s, Experience: %s, Fees: %d, Location: %s",
			doc.Name, doc.Speciality, doc.Degree, doc.Experience, doc.Fees, location,
		))
	}
	return strings.Join(lines, "\n")
}
