package domain

// DocumentVersion is the schema version stamped on every generated document.
const DocumentVersion = "0.4"

// Element types used in the page tree.
const (
	ElTypeSection = "section"
	ElTypeColumn  = "column"
	ElTypeWidget  = "widget"
)

// Document is the page envelope handed back to callers.
type Document struct {
	Version string    `json:"version"`
	Title   string    `json:"title"`
	Type    string    `json:"type"`
	Content []Section `json:"content"`
}

// Section is a top-level container in the page tree.
type Section struct {
	ID       string   `json:"id"`
	ElType   string   `json:"elType"`
	Elements []Column `json:"elements"`
}

// Column holds the widgets of a section.
type Column struct {
	ID       string       `json:"id"`
	ElType   string       `json:"elType"`
	Elements []WidgetNode `json:"elements"`
}

// WidgetNode is one typed leaf of the page tree. Settings are opaque.
type WidgetNode struct {
	ID         string         `json:"id"`
	ElType     string         `json:"elType"`
	WidgetType string         `json:"widgetType"`
	Settings   map[string]any `json:"settings"`
}

// Widgets returns every widget of the document in tree order.
func (d *Document) Widgets() []WidgetNode {
	var out []WidgetNode
	for _, section := range d.Content {
		for _, column := range section.Elements {
			out = append(out, column.Elements...)
		}
	}
	return out
}

// WidgetDescriptor is one entry of the `widgets` array produced by the model.
type WidgetDescriptor struct {
	WidgetType string         `json:"widgetType"`
	Settings   map[string]any `json:"settings"`
}

// GeneratedPage is the JSON object the model is asked to produce.
type GeneratedPage struct {
	Title   string              `json:"title,omitempty"`
	Widgets *[]WidgetDescriptor `json:"widgets"`
}
