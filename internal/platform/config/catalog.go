package config

import (
	"fmt"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/jsamuelsen/daily-quote-service/internal/domain"
)

// catalogFile is the layout of a quote catalog file:
//
//	quotes:
//	  - "Start where you are."
//	  - "Small steps every day."
type catalogFile struct {
	Quotes []string `koanf:"quotes" validate:"required,min=1,dive,required"`
}

// LoadCatalog reads quote texts from a YAML catalog file.
// An empty path returns nil, meaning "use the built-in catalog".
func LoadCatalog(path string) ([]string, error) {
	if path == "" {
		return nil, nil
	}

	k := koanf.New(".")

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("loading catalog %q: %w", path, err)
	}

	var cf catalogFile

	if err := k.Unmarshal("", &cf); err != nil {
		return nil, fmt.Errorf("unmarshalling catalog %q: %w", path, err)
	}

	if err := validate.Struct(cf); err != nil {
		return nil, fmt.Errorf("catalog %q: %w", path, formatValidationErrors(err))
	}

	return cf.Quotes, nil
}

// Catalog builds the quote catalog: the catalog file when set, otherwise
// the built-in quotes, numbered by the configured day convention.
func (q QuoteConfig) Catalog() (*domain.Catalog, error) {
	conv := domain.DayOneBased
	if q.ZeroBasedDay {
		conv = domain.DayZeroBased
	}

	quotes, err := LoadCatalog(q.CatalogFile)
	if err != nil {
		return nil, err
	}

	if quotes == nil {
		return domain.DefaultCatalog(domain.WithDayConvention(conv)), nil
	}

	catalog, err := domain.NewCatalog(quotes, domain.WithDayConvention(conv))
	if err != nil {
		return nil, fmt.Errorf("catalog %q: %w", q.CatalogFile, err)
	}

	return catalog, nil
}
