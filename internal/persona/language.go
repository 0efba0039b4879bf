package persona

import "strings"

// Lang identifies the response language, detected from the question
// itself. Answers mirror the question's language; nothing is translated.
type Lang string

const (
	LangEnglish Lang = "en"
	LangSpanish Lang = "es"
)

// spanishMarkers are tokens that identify a Spanish question with high
// confidence. Inverted punctuation and accented function words do not
// occur in English; the plain function words are common enough to carry
// the rest.
var spanishMarkers = []string{
	"¿", "¡",
	"á", "é", "í", "ó", "ú", "ñ",
	" qué ", " cómo ", " cuál ", " cuánto ", " cuándo ", " dónde ", " quién ",
	" eres ", " tienes ", " puedes ", " hablas ",
	" tu ", " tus ", " usted ",
	"hola", "cuentame", "dime ", "hablame",
}

// DetectLanguage returns the language of a question. Defaults to English
// when no Spanish marker is present; the corpus and its audience are
// bilingual en/es only.
func DetectLanguage(question string) Lang {
	// Pad so word-boundary markers can match at the edges.
	q := " " + strings.ToLower(strings.TrimSpace(question)) + " "
	for _, marker := range spanishMarkers {
		if strings.Contains(q, marker) {
			return LangSpanish
		}
	}
	return LangEnglish
}
