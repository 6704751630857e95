package conf

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Layout 看板布局定义（卡片顺序、标签页编排与大屏子集）
type Layout struct {
	Cards []CardSpec `yaml:"cards"`
	Tabs  []TabSpec  `yaml:"tabs"`
	TV    TVSpec     `yaml:"tv"`
}

// CardSpec 指标卡定义
type CardSpec struct {
	ID      string  `yaml:"id"`
	Title   string  `yaml:"title"`
	Unit    string  `yaml:"unit"`
	Target  float64 `yaml:"target"`
	Inverse bool    `yaml:"inverse"` // 数值越低越好（如 AHT）
	OnTV    bool    `yaml:"on_tv"`
}

// TabSpec 桌面版标签页定义
type TabSpec struct {
	Name   string   `yaml:"name"`
	Cards  []string `yaml:"cards"`
	Charts []string `yaml:"charts"`
}

// TVSpec 大屏版定义
type TVSpec struct {
	Title        string   `yaml:"title"`
	Charts       []string `yaml:"charts"`
	ShowQueueBar bool     `yaml:"show_queue_bar"`
}

// LoadLayout 从 YAML 文件加载布局，路径为空时使用内置布局
func LoadLayout(path string) (*Layout, error) {
	if path == "" {
		return DefaultLayout(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read layout file %s: %w", path, err)
	}

	var layout Layout
	if err := yaml.Unmarshal(data, &layout); err != nil {
		return nil, fmt.Errorf("parse layout: %w", err)
	}

	if err := layout.Validate(); err != nil {
		return nil, err
	}
	return &layout, nil
}

// Validate 校验布局定义
func (l *Layout) Validate() error {
	if len(l.Cards) == 0 {
		return fmt.Errorf("layout has no cards")
	}
	seen := make(map[string]bool, len(l.Cards))
	for _, c := range l.Cards {
		if c.ID == "" {
			return fmt.Errorf("card with empty id")
		}
		if seen[c.ID] {
			return fmt.Errorf("duplicate card id %q", c.ID)
		}
		seen[c.ID] = true
	}
	for _, tab := range l.Tabs {
		for _, id := range tab.Cards {
			if !seen[id] {
				return fmt.Errorf("tab %q references unknown card %q", tab.Name, id)
			}
		}
	}
	return nil
}

// TVCards 大屏展示的卡片子集（保持声明顺序）
func (l *Layout) TVCards() []CardSpec {
	cards := make([]CardSpec, 0, len(l.Cards))
	for _, c := range l.Cards {
		if c.OnTV {
			cards = append(cards, c)
		}
	}
	return cards
}

// Card 按 ID 查找卡片定义
func (l *Layout) Card(id string) (CardSpec, bool) {
	for _, c := range l.Cards {
		if c.ID == id {
			return c, true
		}
	}
	return CardSpec{}, false
}

// DefaultLayout 内置布局
func DefaultLayout() *Layout {
	return &Layout{
		Cards: []CardSpec{
			{ID: "active_calls", Title: "Active Calls", Unit: "calls", OnTV: true},
			{ID: "queue_size", Title: "Queue", Unit: "calls", Inverse: true, OnTV: true},
			{ID: "calls_today", Title: "Calls Today", Unit: "calls", OnTV: true},
			{ID: "capacity", Title: "Agent Capacity", Unit: "percent", OnTV: true},
			{ID: "avg_wait", Title: "Avg Wait", Unit: "seconds", Inverse: true, OnTV: true},
			{ID: "containment_rate", Title: "Containment Rate", Unit: "percent", Target: 70, OnTV: true},
			{ID: "fcr", Title: "First Call Resolution", Unit: "percent", Target: 70},
			{ID: "aht", Title: "Avg Handle Time", Unit: "minutes", Target: 8, Inverse: true},
			{ID: "cost_savings", Title: "Cost Savings", Unit: "currency", OnTV: true},
		},
		Tabs: []TabSpec{
			{
				Name:   "Live Operations",
				Cards:  []string{"active_calls", "queue_size", "calls_today", "capacity", "avg_wait"},
				Charts: []string{"hourly_volume", "languages", "intents"},
			},
			{
				Name:   "Performance KPIs",
				Cards:  []string{"containment_rate", "fcr", "aht", "cost_savings"},
				Charts: []string{"daily_trend", "resolutions", "aht_gauge"},
			},
		},
		TV: TVSpec{
			Title:        "Voice Agent Operations",
			Charts:       []string{"hourly_volume"},
			ShowQueueBar: true,
		},
	}
}
