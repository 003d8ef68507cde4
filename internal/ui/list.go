package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/spotx/internal/formatter"
)

var (
	_ list.Item = rowItem{}
)

// rowItem wraps [formatter.Row] to implement [list.Item].
type rowItem struct {
	section string
	row     formatter.Row
}

func (i rowItem) FilterValue() string { return i.row.Name + " " + i.row.Artists }
func (i rowItem) Title() string       { return i.row.Name }
func (i rowItem) Description() string {
	parts := []string{}
	for _, s := range []string{i.row.Artists, i.row.Album, formatter.FormatDuration(i.row.Duration)} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	if len(parts) == 0 {
		return i.section
	}
	return i.section + " • " + strings.Join(parts, " • ")
}

// listItems flattens every section of l into list items, in order.
func listItems(l *formatter.Listing) []list.Item {
	items := make([]list.Item, 0, l.Count())
	for _, s := range l.Sections {
		for _, row := range s.Rows {
			items = append(items, rowItem{section: s.Heading, row: row})
		}
	}
	return items
}
