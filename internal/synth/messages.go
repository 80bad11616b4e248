// Package synth turns retrieved hymn excerpts into a single answer.
package synth

import (
	"fmt"

	"github.com/Aman-CERP/choralmind/internal/hymn"
)

// User-facing messages shared by every front end.
const (
	// WelcomeMessage greets a new interactive session.
	WelcomeMessage = "Hello, I'm ChoralMind! 🎶\nI can help you find hymns in English or Yoruba. Please choose a language:"

	// SelectLanguageMessage is shown when a search arrives before a language is chosen.
	SelectLanguageMessage = "Please select a language first."

	// EmptyQueryMessage is shown when a search is submitted without text.
	EmptyQueryMessage = "Please enter a line from the hymn to search."

	// ApologyMessage replaces a failed synthesis.
	ApologyMessage = "Sorry, something went wrong while generating the hymn response."
)

// NoMatchMessage is returned when retrieval found nothing in lang.
func NoMatchMessage(lang hymn.Language) string {
	return fmt.Sprintf("No matching hymns found in %s. Try another line.", lang.DisplayName())
}

// LanguageSelectedMessage confirms a language choice.
func LanguageSelectedMessage(lang hymn.Language) string {
	return fmt.Sprintf("Selected %s. Enter a line from the hymn to search:", lang.DisplayName())
}
