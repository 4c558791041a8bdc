// Package language normalizes the language hints passed to speech
// recognition providers and renders them for display.
package language
