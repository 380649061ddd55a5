package transfer

import "context"

// HubSource resolves candidate transfer stations for an origin and
// destination pair.
type HubSource interface {
	HubsFor(ctx context.Context, from, to string) ([]string, error)
}

type routePair struct {
	from string
	to   string
}

// curatedHubs maps well-travelled corridors to their known transfer
// stations, in preference order.
var curatedHubs = map[routePair][]string{
	{"Chengdu", "Shanghai"}:   {"Wuhan", "Zhengzhou", "Nanjing"},
	{"Beijing", "Guangzhou"}:  {"Zhengzhou", "Wuhan", "Changsha"},
	{"Xi'an", "Shanghai"}:     {"Zhengzhou", "Hefei"},
	{"Beijing", "Chengdu"}:    {"Zhengzhou", "Xi'an"},
	{"Guangzhou", "Beijing"}:  {"Wuhan", "Zhengzhou"},
	{"Shanghai", "Chengdu"}:   {"Wuhan", "Chongqing"},
	{"Shenzhen", "Beijing"}:   {"Changsha", "Wuhan", "Zhengzhou"},
	{"Chongqing", "Shanghai"}: {"Wuhan", "Hefei"},
	{"Hangzhou", "Chengdu"}:   {"Wuhan", "Chongqing"},
	{"Chengdu", "Hangzhou"}:   {"Chongqing", "Wuhan"},
}

// MajorHubs lists the national rail hubs used as fallback transfer
// candidates when a corridor has no curated entry.
var MajorHubs = []string{
	"Beijing", "Shanghai", "Guangzhou", "Shenzhen", "Hangzhou", "Nanjing", "Wuhan",
	"Zhengzhou", "Xi'an", "Chengdu", "Chongqing", "Changsha", "Hefei", "Jinan",
	"Tianjin", "Shenyang", "Harbin", "Taiyuan", "Lanzhou", "Nanchang", "Kunming",
	"Fuzhou", "Xiamen", "Ningbo", "Qingdao", "Dalian", "Guiyang",
}

// fallbackHubCount caps the number of fallback hubs tried per query.
const fallbackHubCount = 5

// StaticHubSource serves the curated corridor table with the major-hub
// fallback. It is the source of last resort when no database is
// configured.
type StaticHubSource struct{}

func (StaticHubSource) HubsFor(_ context.Context, from, to string) ([]string, error) {
	if hubs, ok := curatedHubs[routePair{from, to}]; ok {
		out := make([]string, len(hubs))
		copy(out, hubs)
		return out, nil
	}

	out := make([]string, 0, fallbackHubCount)
	for _, hub := range MajorHubs[:fallbackHubCount] {
		if hub == from || hub == to {
			continue
		}
		out = append(out, hub)
	}
	return out, nil
}
