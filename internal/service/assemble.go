package service

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/xiaot623/gogo/pagegen/internal/domain"
)

const (
	defaultTitle  = "Generated Page"
	documentType  = "page"
	maxIDAttempts = 8
)

// IDGenerator produces element identifiers.
type IDGenerator interface {
	NewID() string
}

// UUIDGenerator derives 8-hex ids from random UUIDs.
type UUIDGenerator struct{}

func (UUIDGenerator) NewID() string {
	return uuid.New().String()[:8]
}

// Assembler wraps widget descriptors into a page document.
type Assembler struct {
	ids IDGenerator
}

// NewAssembler creates an assembler. A nil generator uses UUIDGenerator.
func NewAssembler(ids IDGenerator) *Assembler {
	if ids == nil {
		ids = UUIDGenerator{}
	}
	return &Assembler{ids: ids}
}

// Assemble builds a one-section, one-column document holding widgets in
// input order. Ids are assigned in tree order and are unique within the document.
func (a *Assembler) Assemble(title string, widgets []domain.WidgetDescriptor) (*domain.Document, error) {
	for i, w := range widgets {
		if strings.TrimSpace(w.WidgetType) == "" {
			return nil, &domain.ParseError{Err: fmt.Errorf("widget %d has no widgetType", i)}
		}
	}

	used := make(map[string]struct{}, len(widgets)+2)
	next := func() string {
		for attempt := 0; ; attempt++ {
			id := a.ids.NewID()
			if attempt >= maxIDAttempts {
				id = fmt.Sprintf("%s%d", id, len(used)+attempt)
			}
			if _, dup := used[id]; id != "" && !dup {
				used[id] = struct{}{}
				return id
			}
		}
	}

	section := domain.Section{ID: next(), ElType: domain.ElTypeSection}
	column := domain.Column{ID: next(), ElType: domain.ElTypeColumn, Elements: make([]domain.WidgetNode, 0, len(widgets))}
	for _, w := range widgets {
		settings := w.Settings
		if settings == nil {
			settings = map[string]any{}
		}
		column.Elements = append(column.Elements, domain.WidgetNode{
			ID:         next(),
			ElType:     domain.ElTypeWidget,
			WidgetType: w.WidgetType,
			Settings:   settings,
		})
	}
	section.Elements = []domain.Column{column}

	if strings.TrimSpace(title) == "" {
		title = defaultTitle
	}
	return &domain.Document{
		Version: domain.DocumentVersion,
		Title:   title,
		Type:    documentType,
		Content: []domain.Section{section},
	}, nil
}
