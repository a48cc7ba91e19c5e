package templates

import (
	"embed"
	"html/template"
	"io"
	"sync"
)

//go:embed *.html
var templateFiles embed.FS

// FragmentsName is the template set holding card, state and browse partials
const FragmentsName = "fragments"

// standalonePages carry their own "layout" and skip the shared page shell
var standalonePages = map[string]bool{"admin": true}

// TemplateManager manages HTML templates
type TemplateManager struct {
	templates map[string]*template.Template
	mutex     sync.RWMutex
}

// NewTemplateManager creates a new template manager
func NewTemplateManager() *TemplateManager {
	return &TemplateManager{
		templates: make(map[string]*template.Template),
	}
}

// LoadTemplate loads a template set by name, caching it for future use.
// Pages are parsed together with fragments.html and, unless standalone,
// layout.html.
func (tm *TemplateManager) LoadTemplate(name string) (*template.Template, error) {
	tm.mutex.RLock()
	tmpl, exists := tm.templates[name]
	tm.mutex.RUnlock()

	if exists {
		return tmpl, nil
	}

	tm.mutex.Lock()
	defer tm.mutex.Unlock()

	// Double-check after acquiring write lock
	if tmpl, exists := tm.templates[name]; exists {
		return tmpl, nil
	}

	files := []string{FragmentsName + ".html"}
	switch {
	case name == FragmentsName:
	case standalonePages[name]:
		files = append(files, name+".html")
	default:
		files = append(files, "layout.html", name+".html")
	}

	tmpl, err := template.New(name).ParseFS(templateFiles, files...)
	if err != nil {
		return nil, err
	}

	tm.templates[name] = tmpl
	return tmpl, nil
}

// GetTemplate gets a cached template or loads it if not cached
func (tm *TemplateManager) GetTemplate(name string) (*template.Template, error) {
	return tm.LoadTemplate(name)
}

// RenderPage executes the layout of the named page
func (tm *TemplateManager) RenderPage(w io.Writer, name string, data any) error {
	tmpl, err := tm.GetTemplate(name)
	if err != nil {
		return err
	}
	return tmpl.ExecuteTemplate(w, "layout", data)
}

// Global template manager instance
var globalTemplateManager = NewTemplateManager()

// GetTemplate is a convenience function to get templates from the global manager
func GetTemplate(name string) (*template.Template, error) {
	return globalTemplateManager.GetTemplate(name)
}

// RenderPage renders a page through the global manager
func RenderPage(w io.Writer, name string, data any) error {
	return globalTemplateManager.RenderPage(w, name, data)
}
