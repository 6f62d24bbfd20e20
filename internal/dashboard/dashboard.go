// Package dashboard provides the HTML page served at the root route
package dashboard

import (
	_ "embed"
	"os"
	"sync"

	"codeberg.org/mutker/pcmonitor/internal/logger"
)

//go:embed builtin.html
var builtin []byte

// Page serves a dashboard file from disk, read on every request so edits
// show up without a restart. When the file cannot be read the built-in
// page is served instead.
type Page struct {
	path   string
	logger logger.Logger
	warned sync.Once
}

func New(path string, log logger.Logger) *Page {
	if log == nil {
		log = logger.New("dashboard")
	}
	return &Page{path: path, logger: log}
}

func (p *Page) Dashboard() []byte {
	if p.path == "" {
		return builtin
	}

	data, err := os.ReadFile(p.path)
	if err != nil {
		p.warned.Do(func() {
			p.logger.Warn().Err(err).Str("path", p.path).Msg("Dashboard file unavailable, using built-in page")
		})
		return builtin
	}

	return data
}

// Builtin returns the embedded fallback page
func Builtin() []byte {
	return builtin
}
