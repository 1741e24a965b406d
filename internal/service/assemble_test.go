package service

import (
	"errors"
	"testing"

	"github.com/xiaot623/gogo/pagegen/internal/domain"
)

type fixedIDs struct {
	ids  []string
	next int
}

func (f *fixedIDs) NewID() string {
	id := f.ids[f.next%len(f.ids)]
	f.next++
	return id
}

func TestAssembleTreeOrder(t *testing.T) {
	a := NewAssembler(&fixedIDs{ids: []string{"s1", "c1", "w1", "w2"}})

	doc, err := a.Assemble("Landing", []domain.WidgetDescriptor{
		{WidgetType: "heading", Settings: map[string]any{"title": "Hi"}},
		{WidgetType: "spacer"},
	})
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}
	if doc.Version != domain.DocumentVersion || doc.Type != "page" || doc.Title != "Landing" {
		t.Fatalf("unexpected envelope: %+v", doc)
	}
	if len(doc.Content) != 1 || len(doc.Content[0].Elements) != 1 {
		t.Fatalf("expected one section with one column, got %+v", doc.Content)
	}

	section := doc.Content[0]
	column := section.Elements[0]
	if section.ID != "s1" || section.ElType != domain.ElTypeSection || column.ID != "c1" || column.ElType != domain.ElTypeColumn {
		t.Fatalf("unexpected containers: section=%+v column=%+v", section, column)
	}

	widgets := doc.Widgets()
	if len(widgets) != 2 || widgets[0].ID != "w1" || widgets[1].ID != "w2" {
		t.Fatalf("unexpected widgets: %+v", widgets)
	}
	if widgets[0].WidgetType != "heading" || widgets[0].Settings["title"] != "Hi" || widgets[0].ElType != domain.ElTypeWidget {
		t.Fatalf("unexpected first widget: %+v", widgets[0])
	}
	if widgets[1].Settings == nil || len(widgets[1].Settings) != 0 {
		t.Fatalf("expected empty settings, got %#v", widgets[1].Settings)
	}
}

func TestAssembleIDsUniqueUnderCollisions(t *testing.T) {
	a := NewAssembler(&fixedIDs{ids: []string{"dup"}})

	descriptors := make([]domain.WidgetDescriptor, 20)
	for i := range descriptors {
		descriptors[i] = domain.WidgetDescriptor{WidgetType: "text-editor"}
	}
	doc, err := a.Assemble("", descriptors)
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}

	seen := map[string]bool{doc.Content[0].ID: true}
	if seen[doc.Content[0].Elements[0].ID] {
		t.Fatalf("column id repeats section id")
	}
	seen[doc.Content[0].Elements[0].ID] = true
	for _, w := range doc.Widgets() {
		if w.ID == "" || seen[w.ID] {
			t.Fatalf("duplicate or empty id %q", w.ID)
		}
		seen[w.ID] = true
	}
}

func TestAssembleUUIDIDs(t *testing.T) {
	doc, err := NewAssembler(nil).Assemble("", []domain.WidgetDescriptor{{WidgetType: "heading"}})
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}
	if doc.Title != "Generated Page" {
		t.Fatalf("expected default title, got %q", doc.Title)
	}
	for _, id := range []string{doc.Content[0].ID, doc.Content[0].Elements[0].ID, doc.Widgets()[0].ID} {
		if len(id) != 8 {
			t.Fatalf("expected 8-char id, got %q", id)
		}
	}
}

func TestAssembleEmptyWidgets(t *testing.T) {
	doc, err := NewAssembler(nil).Assemble("Empty", []domain.WidgetDescriptor{})
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}
	if doc.Content[0].Elements[0].Elements == nil || len(doc.Widgets()) != 0 {
		t.Fatalf("expected empty widget list, got %+v", doc.Content[0].Elements[0].Elements)
	}
}

func TestAssembleRejectsMissingWidgetType(t *testing.T) {
	_, err := NewAssembler(nil).Assemble("", []domain.WidgetDescriptor{
		{WidgetType: "heading"},
		{Settings: map[string]any{"title": "orphan"}},
	})
	var parseErr *domain.ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected ParseError, got %v", err)
	}
}
