// Package gemini provides an implementation of the generation.Generator interface
// backed by Google's Gemini API.
//
// This package is an infrastructure adapter in the hexagonal architecture. It hides
// the genai client behind a small interface, retries transient failures with
// exponential backoff and jitter, and translates API responses into the errors
// defined by the generation package.
package gemini
