package detector

import (
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/pemistahl/lingua-go"
)

// minTextLength is the shortest text worth classifying.
const minTextLength = 20

// Language is the detected language of a page.
type Language struct {
	Code       string  `json:"code" yaml:"code"` // ISO-639-1, lowercase; empty when unknown
	Name       string  `json:"name" yaml:"name"`
	Confidence float64 `json:"confidence" yaml:"confidence"`
}

// Unknown reports whether no language could be determined.
func (l Language) Unknown() bool {
	return l.Code == ""
}

// languages event listings are commonly published in.
var languages = []lingua.Language{
	lingua.English,
	lingua.Spanish,
	lingua.French,
	lingua.German,
	lingua.Italian,
	lingua.Portuguese,
	lingua.Dutch,
	lingua.Swedish,
	lingua.Polish,
	lingua.Japanese,
	lingua.Chinese,
	lingua.Korean,
}

var (
	buildOnce sync.Once
	detector  lingua.LanguageDetector
)

func getDetector() lingua.LanguageDetector {
	buildOnce.Do(func() {
		detector = lingua.NewLanguageDetectorBuilder().
			FromLanguages(languages...).
			WithMinimumRelativeDistance(0.1).
			Build()
	})
	return detector
}

// DetectLanguage tags text with its most likely language.
func DetectLanguage(text string) Language {
	text = strings.TrimSpace(text)
	if utf8.RuneCountInString(text) < minTextLength {
		return Language{}
	}

	d := getDetector()
	lang, ok := d.DetectLanguageOf(text)
	if !ok {
		return Language{}
	}

	result := Language{
		Code: strings.ToLower(lang.IsoCode639_1().String()),
		Name: strings.ToLower(lang.String()),
	}
	for _, cv := range d.ComputeLanguageConfidenceValues(text) {
		if cv.Language() == lang {
			result.Confidence = cv.Value()
			break
		}
	}
	return result
}
