package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"path"

	"gopkg.in/yaml.v3"
)

//go:embed locales
var LocalesFS embed.FS

const DefaultLanguage = "en"

type Translator struct {
	translations map[string]string
	aboutText    string
}

// New loads langCode from the embedded locales, falling back to English when the
// language is not shipped.
func New(langCode string) (*Translator, error) {
	t, err := NewTranslator(LocalesFS, langCode)
	if err != nil && langCode != DefaultLanguage {
		return NewTranslator(LocalesFS, DefaultLanguage)
	}
	return t, err
}

// NewTranslator reads locales/<lang>.yaml and locales/about-<lang>.txt from fsys.
func NewTranslator(fsys fs.FS, langCode string) (*Translator, error) {
	filePath := path.Join("locales", fmt.Sprintf("%s.yaml", langCode))
	data, err := fs.ReadFile(fsys, filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read translation file %s: %w", filePath, err)
	}
	t, err := newTranslatorFromBytes(data)
	if err != nil {
		return nil, err
	}

	aboutPath := path.Join("locales", fmt.Sprintf("about-%s.txt", langCode))
	aboutBytes, err := fs.ReadFile(fsys, aboutPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read about file %s: %w", aboutPath, err)
	}
	t.aboutText = string(aboutBytes)
	return t, nil
}

func newTranslatorFromBytes(data []byte) (*Translator, error) {
	var translations map[string]string
	if err := yaml.Unmarshal(data, &translations); err != nil {
		return nil, fmt.Errorf("failed to parse translation file: %w", err)
	}
	return &Translator{translations: translations}, nil
}

// T returns the translation for key, formatted with args. Unknown keys come back as-is.
func (t *Translator) T(key string, args ...interface{}) string {
	format, ok := t.translations[key]
	if !ok {
		return key
	}
	if len(args) > 0 {
		return fmt.Sprintf(format, args...)
	}
	return format
}

// About is the long-form text of the about screen.
func (t *Translator) About() string {
	return t.aboutText
}
