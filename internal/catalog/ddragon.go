package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/fearless-draft/internal/engine"
)

const (
	DefaultDDragonURL = "https://ddragon.leagueoflegends.com"
	FallbackVersion   = "14.21.1"
)

type ddragonChampion struct {
	ID   string   `json:"id"`
	Key  string   `json:"key"`
	Name string   `json:"name"`
	Tags []string `json:"tags"`
}

type ddragonResponse struct {
	Data map[string]ddragonChampion `json:"data"`
}

// DDragon lists champions from Riot's Data Dragon, cached per game version.
type DDragon struct {
	baseURL string
	client  *http.Client
	log     *zap.Logger

	mu      sync.RWMutex
	version string
	items   []Item
}

func NewDDragon(baseURL string, logger *zap.Logger) *DDragon {
	if baseURL == "" {
		baseURL = DefaultDDragonURL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DDragon{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
		log:     logger,
	}
}

// Version returns the newest game version, or FallbackVersion when the
// version list cannot be fetched.
func (d *DDragon) Version(ctx context.Context) string {
	var versions []string
	if err := d.getJSON(ctx, d.baseURL+"/api/versions.json", &versions); err != nil || len(versions) == 0 {
		d.log.Warn("ddragon version lookup failed, using fallback", zap.String("fallback", FallbackVersion), zap.Error(err))
		return FallbackVersion
	}
	return versions[0]
}

func (d *DDragon) ListItems(ctx context.Context) ([]Item, error) {
	version := d.Version(ctx)

	d.mu.RLock()
	if d.version == version && d.items != nil {
		items := append([]Item(nil), d.items...)
		d.mu.RUnlock()
		return items, nil
	}
	d.mu.RUnlock()

	var resp ddragonResponse
	url := fmt.Sprintf("%s/cdn/%s/data/en_US/champion.json", d.baseURL, version)
	if err := d.getJSON(ctx, url, &resp); err != nil {
		d.mu.RLock()
		defer d.mu.RUnlock()
		if d.items != nil {
			d.log.Warn("ddragon champion fetch failed, serving cached list", zap.String("cached_version", d.version), zap.Error(err))
			return append([]Item(nil), d.items...), nil
		}
		return nil, fmt.Errorf("fetch champions %s: %w", version, err)
	}

	items := make([]Item, 0, len(resp.Data)+1)
	for _, c := range resp.Data {
		items = append(items, Item{ID: engine.ItemID(c.ID), Name: c.Name, Tags: c.Tags})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	items = append([]Item{None}, items...)

	d.mu.Lock()
	d.version = version
	d.items = items
	d.mu.Unlock()

	d.log.Info("loaded champion catalog", zap.String("version", version), zap.Int("count", len(items)-1))
	return append([]Item(nil), items...), nil
}

func (d *DDragon) getJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("data dragon returned status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
