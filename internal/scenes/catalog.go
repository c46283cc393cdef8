package scenes

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"productscene/internal/domain"
)

// Placeholder is the single substitution slot every prompt template carries.
const Placeholder = "{product_description}"

// DefaultDescription is substituted when the caller gives no product description.
const DefaultDescription = "the product"

//go:embed catalog.yaml
var embeddedCatalog []byte

// Template describes one staged scene the generator can place a product into.
type Template struct {
	ID             string `yaml:"id" json:"id"`
	Name           string `yaml:"name" json:"name"`
	Description    string `yaml:"description" json:"description"`
	PromptTemplate string `yaml:"prompt_template" json:"prompt_template"`
}

// Prompt fills the template with the product description.
func (t Template) Prompt(description string) string {
	description = strings.TrimSpace(description)
	if description == "" {
		description = DefaultDescription
	}
	return strings.ReplaceAll(t.PromptTemplate, Placeholder, description)
}

// ComposePrompt returns custom when set, otherwise the filled template.
func (t Template) ComposePrompt(description, custom string) string {
	if custom = strings.TrimSpace(custom); custom != "" {
		return custom
	}
	return t.Prompt(description)
}

// Catalog is an immutable, ordered set of scene templates.
type Catalog struct {
	order []string
	byID  map[string]Template
}

type catalogFile struct {
	Scenes []Template `yaml:"scenes"`
}

var loadDefault = sync.OnceValues(func() (*Catalog, error) {
	return Load(bytes.NewReader(embeddedCatalog))
})

// Default returns the built-in catalog.
func Default() *Catalog {
	c, err := loadDefault()
	if err != nil {
		panic(fmt.Sprintf("scenes: embedded catalog: %v", err))
	}
	return c
}

// Open reads a catalog from path, or returns the built-in one when path is empty.
func Open(path string) (*Catalog, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return Default(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("scenes: open catalog: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Load parses and validates a YAML catalog.
func Load(r io.Reader) (*Catalog, error) {
	var file catalogFile
	if err := yaml.NewDecoder(r).Decode(&file); err != nil {
		return nil, fmt.Errorf("scenes: decode catalog: %w", err)
	}
	if len(file.Scenes) == 0 {
		return nil, domain.InputErrorf("scenes: catalog is empty")
	}
	c := &Catalog{byID: make(map[string]Template, len(file.Scenes))}
	for i, tpl := range file.Scenes {
		tpl.ID = strings.TrimSpace(tpl.ID)
		tpl.Name = strings.TrimSpace(tpl.Name)
		tpl.Description = strings.TrimSpace(tpl.Description)
		tpl.PromptTemplate = strings.TrimSpace(tpl.PromptTemplate)
		switch {
		case tpl.ID == "":
			return nil, domain.InputErrorf("scenes: entry %d has no id", i)
		case tpl.Name == "":
			return nil, domain.InputErrorf("scenes: %s has no name", tpl.ID)
		case !strings.Contains(tpl.PromptTemplate, Placeholder):
			return nil, domain.InputErrorf("scenes: %s template lacks %s", tpl.ID, Placeholder)
		}
		if _, dup := c.byID[tpl.ID]; dup {
			return nil, domain.InputErrorf("scenes: duplicate id %s", tpl.ID)
		}
		c.byID[tpl.ID] = tpl
		c.order = append(c.order, tpl.ID)
	}
	return c, nil
}

// Get looks a scene up by id.
func (c *Catalog) Get(id string) (Template, error) {
	tpl, ok := c.byID[strings.TrimSpace(id)]
	if !ok {
		return Template{}, domain.InputErrorf("unknown scene preset %q", id)
	}
	return tpl, nil
}

// IDs returns scene ids in catalog order.
func (c *Catalog) IDs() []string {
	return append([]string(nil), c.order...)
}

// List returns every template in catalog order.
func (c *Catalog) List() []Template {
	out := make([]Template, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.byID[id])
	}
	return out
}
