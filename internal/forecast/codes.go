package forecast

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// builtinCodes translates destination, currency and supplier codes from the
// process log's vocabulary to the one the forecast document uses. Values not
// present here pass through untranslated.
var builtinCodes = map[string]string{
	"Immobilized": "Imobilizado",
	"Resale":      "Revenda",
	"Production":  "Produção",
	"Supplies":    "Insumo",
	"SKF":         "China",
	"Dólar":       "USD",
	"Euro":        "EUR",
}

// CodeMap translates source codes to document codes.
type CodeMap map[string]string

// LoadCodeMap returns the built-in translation table, optionally merged with
// pairs from a YAML file of the form `Source: Target`. File pairs win over
// built-ins.
func LoadCodeMap(path string) (CodeMap, error) {
	m := make(CodeMap, len(builtinCodes))
	for k, v := range builtinCodes {
		m[k] = v
	}

	if path == "" {
		return m, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read code map %s: %w", path, err)
	}

	var overrides map[string]string
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return nil, fmt.Errorf("parse code map %s: %w", path, err)
	}
	for k, v := range overrides {
		m[k] = v
	}

	return m, nil
}

// Translate maps a source code to its document form, falling back to the raw
// value when no translation exists.
func (m CodeMap) Translate(code string) string {
	if translated, ok := m[code]; ok {
		return translated
	}
	return code
}
