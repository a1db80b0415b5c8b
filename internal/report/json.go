package report

import (
	"encoding/json"
	"io"

	"github.com/temirov/ksi/internal/catalog"
)

const jsonIndentConstant = "  "

// WriteJSON writes the whole tree as two-space indented JSON.
func WriteJSON(writer io.Writer, tree catalog.Data) error {
	encoder := json.NewEncoder(writer)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", jsonIndentConstant)
	return encoder.Encode(tree)
}
