package manifest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/dgallion1/docsplit/internal/docerr"
	"github.com/dgallion1/docsplit/internal/ranges"
)

// Config is a decoded page-range configuration.
type Config struct {
	Documents ranges.Set `json:"documents"`
}

// wire types keep numeric fields as pointers so missing keys are detectable.
type wireConfig struct {
	Documents []wireDocument `json:"documents"`
}

type wireDocument struct {
	Category   *string `json:"category"`
	StartPage  *int    `json:"start_page"`
	EndPage    *int    `json:"end_page"`
	Confidence *int    `json:"confidence"`
	Incomplete *bool   `json:"incomplete"`
	Template   *bool   `json:"template"`
}

// Decode parses a configuration. Malformed JSON, unknown fields and missing
// start_page, end_page or confidence are InvalidConfiguration errors.
func Decode(r io.Reader) (*Config, error) {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()

	var w wireConfig
	if err := dec.Decode(&w); err != nil {
		return nil, docerr.Wrap(docerr.KindInvalidConfiguration, "decode", err, "malformed configuration")
	}
	if dec.More() {
		return nil, docerr.New(docerr.KindInvalidConfiguration, "decode", "unexpected data after configuration object")
	}

	cfg := &Config{Documents: make(ranges.Set, 0, len(w.Documents))}
	for i, d := range w.Documents {
		var missing []string
		if d.StartPage == nil {
			missing = append(missing, "start_page")
		}
		if d.EndPage == nil {
			missing = append(missing, "end_page")
		}
		if d.Confidence == nil {
			missing = append(missing, "confidence")
		}
		if len(missing) > 0 {
			return nil, docerr.New(docerr.KindInvalidConfiguration, "decode",
				"document %d: missing required field(s) %v", i+1, missing)
		}
		decl := ranges.Declaration{
			StartPage:  *d.StartPage,
			EndPage:    *d.EndPage,
			Confidence: *d.Confidence,
			Incomplete: d.Incomplete,
			Template:   d.Template,
		}
		if d.Category != nil {
			decl.Category = *d.Category
		}
		cfg.Documents = append(cfg.Documents, decl)
	}
	return cfg, nil
}

// DecodeBytes is Decode over an in-memory document.
func DecodeBytes(data []byte) (*Config, error) {
	return Decode(bytes.NewReader(data))
}

// Load reads and decodes the configuration file at path. A missing or
// unreadable file is an IOFailure.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, docerr.Wrap(docerr.KindIOFailure, "load config", err, "configuration file does not exist: %s", path)
		}
		return nil, docerr.Wrap(docerr.KindIOFailure, "load config", err, "cannot read configuration file: %s", path)
	}
	cfg, err := DecodeBytes(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// RequireDocuments rejects an empty configuration. Splitting needs at least
// one declaration; counting does not.
func (c *Config) RequireDocuments() error {
	return ranges.RequireNonEmpty(c.Documents)
}
