package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Default prompt texts. They mirror the production values but every one of
// them can be overridden through the environment so the prompt can be tuned
// and versioned without a code change.
const (
	defaultPolicyText = "You are a medical AI assistant that provides initial medical advice. " +
		"Identify the patient's symptoms, recommend relevant medical specialties, and assess the urgency of the situation. " +
		"You should only answer questions related to medical topics. If a question is unrelated to medical matters " +
		"(for example, \"how large is the moon\"), kindly respond that you only provide medical advice."

	defaultDirectiveText = "In addition, advise the patient on where to go and which type of doctor to consult " +
		"based on the available doctor database. Here is a sample doctor table:"

	defaultFallbackText = "If you cannot find relevant data in the database, simply advise the patient on which " +
		"type of doctor (specialty) would be appropriate for their symptoms."

	defaultSummarizeInstruction = "Generate a concise, descriptive title (5-10 words) summarizing the following " +
		"medical conversation. Provide only the title."
)

type Config struct {
	OpenAIAPIKey string
	ChatModel    string
	DatabaseURL  string
	HTTPPort     string
	LogLevel     string
	JWTSecret    string

	// Prompt configuration for the prompt builder and summarizer.
	PolicyText           string
	DirectiveText        string
	FallbackText         string
	SummarizeInstruction string
}

var AppConfig Config

func LoadConfig() {
	err := godotenv.Load() // Load .env file if it exists
	if err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	AppConfig = Config{
		OpenAIAPIKey: getEnv("OPENAI_API_KEY", ""),
		ChatModel:    getEnv("OPENAI_CHAT_MODEL", "gpt-3.5-turbo"),
		DatabaseURL:  getEnv("DATABASE_URL", "clinic_chatbot.db"),
		HTTPPort:     getEnv("HTTP_PORT", "8080"),
		LogLevel:     getEnv("LOG_LEVEL", "INFO"),
		JWTSecret:    getEnv("JWT_SECRET", ""),

		PolicyText:           getEnv("PROMPT_POLICY_TEXT", defaultPolicyText),
		DirectiveText:        getEnv("PROMPT_DIRECTIVE_TEXT", defaultDirectiveText),
		FallbackText:         getEnv("PROMPT_FALLBACK_TEXT", defaultFallbackText),
		SummarizeInstruction: getEnv("PROMPT_SUMMARIZE_INSTRUCTION", defaultSummarizeInstruction),
	}

	if AppConfig.OpenAIAPIKey == "" {
		log.Fatal("OPENAI_API_KEY environment variable is required")
	}

	if AppConfig.JWTSecret == "" {
		log.Fatal("JWT_SECRET environment variable is required")
	}
}

func getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}
