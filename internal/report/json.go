package report

import (
	"io"

	"github.com/goccy/go-json"

	"github.com/JonMunkholm/datacheck/internal/runner"
)

// JSON writes rep as indented JSON followed by a newline.
func JSON(w io.Writer, rep *runner.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rep)
}
