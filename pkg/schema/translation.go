package schema

// Translation is the per-language text of a routine, node or item.
type Translation struct {
	Language    string `json:"language"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
}

// PickTranslation returns the translation for the first preferred
// language present, falling back to the first translation available.
func PickTranslation(translations []Translation, languages []string) Translation {
	for _, lang := range languages {
		for _, t := range translations {
			if t.Language == lang {
				return t
			}
		}
	}
	if len(translations) > 0 {
		return translations[0]
	}
	return Translation{}
}
