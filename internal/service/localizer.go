package service

import (
	"embed"
	"fmt"
	"path"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

//go:embed locales/*.toml
var localeFS embed.FS

const localesDir = "locales"

type Localizer struct {
	bundle    *i18n.Bundle
	localizer *i18n.Localizer
	lang      language.Tag
}

// NewLocalizer loads every embedded locale. Messages missing in lang fall
// back to English.
func NewLocalizer(lang string) (*Localizer, error) {
	tag, err := language.Parse(lang)
	if err != nil {
		return nil, fmt.Errorf("invalid interface language %q: %w", lang, err)
	}

	bundle := i18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("toml", toml.Unmarshal)

	files, err := localeFS.ReadDir(localesDir)
	if err != nil {
		return nil, err
	}

	for _, file := range files {
		if file.IsDir() || !strings.HasSuffix(file.Name(), ".toml") {
			continue
		}

		data, err := localeFS.ReadFile(path.Join(localesDir, file.Name()))
		if err != nil {
			return nil, err
		}

		if _, err := bundle.ParseMessageFileBytes(data, file.Name()); err != nil {
			return nil, fmt.Errorf("locale %s: %w", file.Name(), err)
		}
	}

	return &Localizer{
		bundle:    bundle,
		localizer: i18n.NewLocalizer(bundle, tag.String(), language.English.String()),
		lang:      tag,
	}, nil
}

func (s *Localizer) Language() language.Tag {
	return s.lang
}

// Localize returns messageID itself when no translation exists.
func (s *Localizer) Localize(messageID string, data map[string]any) string {
	msg, err := s.localizer.Localize(&i18n.LocalizeConfig{
		MessageID:    messageID,
		TemplateData: data,
	})
	if err != nil {
		return messageID
	}
	return msg
}

func (s *Localizer) LocalizeCount(messageID string, count int, data map[string]any) string {
	if data == nil {
		data = map[string]any{}
	}
	data["Count"] = count
	msg, err := s.localizer.Localize(&i18n.LocalizeConfig{
		MessageID:    messageID,
		TemplateData: data,
		PluralCount:  count,
	})
	if err != nil {
		return messageID
	}
	return msg
}
