package catalog

import (
	"context"

	"github.com/DoyleJ11/fearless-draft/internal/engine"
)

type Item struct {
	ID   engine.ItemID `json:"id" yaml:"id"`
	Name string        `json:"name" yaml:"name"`
	Tags []string      `json:"tags,omitempty" yaml:"tags"`
}

// None is the empty-slot sentinel and always the first listed item.
var None = Item{ID: engine.NoneItem, Name: "None"}

type Provider interface {
	ListItems(ctx context.Context) ([]Item, error)
}

// Static serves a fixed list.
type Static struct {
	items []Item
}

func NewStatic(items ...Item) *Static {
	out := []Item{None}
	for _, it := range items {
		if it.ID == "" || it.ID == engine.NoneItem {
			continue
		}
		out = append(out, it)
	}
	return &Static{items: out}
}

func (s *Static) ListItems(context.Context) ([]Item, error) {
	return append([]Item(nil), s.items...), nil
}

// Index answers membership questions for the lobby. NONE is not a member.
type Index struct {
	byID map[engine.ItemID]Item
}

func NewIndex(items []Item) *Index {
	idx := &Index{byID: make(map[engine.ItemID]Item, len(items))}
	for _, it := range items {
		if it.ID == engine.NoneItem {
			continue
		}
		idx.byID[it.ID] = it
	}
	return idx
}

func (i *Index) Has(id engine.ItemID) bool {
	_, ok := i.byID[id]
	return ok
}

func (i *Index) Get(id engine.ItemID) (Item, bool) {
	it, ok := i.byID[id]
	return it, ok
}

func (i *Index) Len() int { return len(i.byID) }
