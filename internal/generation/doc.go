// Package generation provides the interface for interacting with external
// AI/LLM services for content generation. It abstracts the details of LLM API
// integration (Gemini), allowing marketing tasks to draft copy and index
// knowledge documents without coupling to a specific provider.
package generation
