package ui

import (
	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/trainx/internal/models"
)

var _ list.Item = modelItem{}

// modelItem wraps [models.ModelType] to implement [list.Item].
type modelItem struct {
	model models.ModelType
}

func (i modelItem) FilterValue() string { return string(i.model) }
func (i modelItem) Title() string       { return i.model.Label() }
func (i modelItem) Description() string { return string(i.model) }

func modelItems() []list.Item {
	types := models.ModelTypes()
	items := make([]list.Item, len(types))
	for i, m := range types {
		items[i] = modelItem{model: m}
	}
	return items
}
