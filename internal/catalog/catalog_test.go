package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/fearless-draft/internal/engine"
)

const championJSON = `{"data":{
	"Jinx":{"id":"Jinx","key":"222","name":"Jinx","tags":["Marksman"]},
	"Aatrox":{"id":"Aatrox","key":"266","name":"Aatrox","tags":["Fighter","Tank"]},
	"Ahri":{"id":"Ahri","key":"103","name":"Ahri","tags":["Mage","Assassin"]}
}}`

func TestStatic_NoneFirst(t *testing.T) {
	s := NewStatic(Item{ID: "Ahri", Name: "Ahri"}, None, Item{ID: "Jinx", Name: "Jinx"})
	items, err := s.ListItems(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, None, items[0])

	idx := NewIndex(items)
	assert.True(t, idx.Has("Jinx"))
	assert.False(t, idx.Has(engine.NoneItem))
	assert.Equal(t, 2, idx.Len())
}

func TestDDragon_ListItems(t *testing.T) {
	var champCalls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/versions.json":
			_, _ = w.Write([]byte(`["15.1.1","15.0.1"]`))
		case "/cdn/15.1.1/data/en_US/champion.json":
			champCalls.Add(1)
			_, _ = w.Write([]byte(championJSON))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	d := NewDDragon(srv.URL, nil)
	items, err := d.ListItems(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 4)
	assert.Equal(t, None, items[0])
	assert.Equal(t, engine.ItemID("Aatrox"), items[1].ID)
	assert.Equal(t, engine.ItemID("Jinx"), items[3].ID)
	assert.Equal(t, []string{"Mage", "Assassin"}, items[2].Tags)

	_, err = d.ListItems(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), champCalls.Load(), "second call should hit the cache")
}

func TestDDragon_FallbackVersion(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/cdn/"+FallbackVersion+"/data/en_US/champion.json" {
			_, _ = w.Write([]byte(championJSON))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	d := NewDDragon(srv.URL, nil)
	assert.Equal(t, FallbackVersion, d.Version(context.Background()))
	items, err := d.ListItems(context.Background())
	require.NoError(t, err)
	assert.Len(t, items, 4)
}

func TestDDragon_ErrorWithoutCache(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewDDragon(srv.URL, nil).ListItems(context.Background())
	require.Error(t, err)
}
