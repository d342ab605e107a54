package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// PrintType is the visual variant of a card printing
type PrintType string

const (
	PrintTypeNormal      PrintType = "normal"
	PrintTypeBorderless  PrintType = "borderless"
	PrintTypeShowcase    PrintType = "showcase"
	PrintTypeExtendedArt PrintType = "extended-art"
	PrintTypeRetro       PrintType = "retro"
	PrintTypeEtched      PrintType = "etched"
)

// PrintTypes lists every known print type in reporting order
var PrintTypes = []PrintType{
	PrintTypeNormal,
	PrintTypeBorderless,
	PrintTypeShowcase,
	PrintTypeExtendedArt,
	PrintTypeRetro,
	PrintTypeEtched,
}

// Valid reports whether p is one of the known print types
func (p PrintType) Valid() bool {
	for _, known := range PrintTypes {
		if p == known {
			return true
		}
	}
	return false
}

// Finish is whether a specific copy is foil or not
type Finish string

const (
	FinishFoil    Finish = "foil"
	FinishNonfoil Finish = "nonfoil"
)

// FinishOf maps a parsed foil flag to a Finish. Unknown is treated as nonfoil.
func FinishOf(foil *bool) Finish {
	if foil != nil && *foil {
		return FinishFoil
	}
	return FinishNonfoil
}

// MatchSource records which strategy resolved a collection row
type MatchSource string

const (
	MatchSourceNone          MatchSource = "none"
	MatchSourceSupplementary MatchSource = "supplementary"
	MatchSourceProductIndex  MatchSource = "product-index"
)

// PriceWindow is a price guide averaging window
type PriceWindow string

const (
	WindowAvg   PriceWindow = "avg"
	WindowLow   PriceWindow = "low"
	WindowTrend PriceWindow = "trend"
	WindowAvg1  PriceWindow = "avg1"
	WindowAvg7  PriceWindow = "avg7"
	WindowAvg30 PriceWindow = "avg30"
)

// PriceWindows lists every supported window
var PriceWindows = []PriceWindow{WindowAvg, WindowLow, WindowTrend, WindowAvg1, WindowAvg7, WindowAvg30}

// Product is a catalogue entry keyed by its catalog identifier.
// Name, SetName and Number are stored normalized for matching.
type Product struct {
	ID      string `json:"id" validate:"required"`
	Name    string `json:"name" validate:"required"`
	SetName string `json:"set_name,omitempty"`
	Number  string `json:"number,omitempty"`
	Foil    *bool  `json:"foil,omitempty"`
}

// PriceEntry holds the price observations for one catalog identifier
type PriceEntry struct {
	ID      string                          `json:"id" validate:"required"`
	Nonfoil map[PriceWindow]decimal.Decimal `json:"nonfoil"`
	Foil    map[PriceWindow]decimal.Decimal `json:"foil"`
}

// NewPriceEntry creates an empty price entry
func NewPriceEntry(id string) *PriceEntry {
	return &PriceEntry{
		ID:      id,
		Nonfoil: make(map[PriceWindow]decimal.Decimal),
		Foil:    make(map[PriceWindow]decimal.Decimal),
	}
}

// Price selects the value for a window and finish.
// Foil lookups fall back to the nonfoil value when the guide has no foil observation.
func (p *PriceEntry) Price(window PriceWindow, finish Finish) (decimal.Decimal, bool) {
	if p == nil {
		return decimal.Zero, false
	}
	if finish == FinishFoil {
		if v, ok := p.Foil[window]; ok {
			return v, true
		}
	}
	v, ok := p.Nonfoil[window]
	return v, ok
}

// PrintInfo is a compact supplementary identification record (Scryfall card object)
type PrintInfo struct {
	ScryfallID   string   `json:"id"`
	CardmarketID string   `json:"cardmarket_id,omitempty"`
	Name         string   `json:"name"`
	SetCode      string   `json:"set"`
	SetName      string   `json:"set_name,omitempty"`
	CollectorNo  string   `json:"collector_number"`
	Lang         string   `json:"lang,omitempty"`
	FrameEffects []string `json:"frame_effects,omitempty"`
	PromoTypes   []string `json:"promo_types,omitempty"`
	BorderColor  string   `json:"border_color,omitempty"`
	FullArt      bool     `json:"full_art"`
	Textless     bool     `json:"textless"`
	Finishes     []string `json:"finishes,omitempty"`
}

// PrintType classifies the printing. Textless cards are normal; other promo markers are ignored.
func (c *PrintInfo) PrintType() PrintType {
	if c == nil {
		return PrintTypeNormal
	}
	if c.Textless {
		return PrintTypeNormal
	}
	switch {
	case has(c.FrameEffects, "showcase") || has(c.PromoTypes, "showcase"):
		return PrintTypeShowcase
	case has(c.FrameEffects, "extendedart") || has(c.PromoTypes, "extendedart"):
		return PrintTypeExtendedArt
	case has(c.FrameEffects, "borderless") || has(c.PromoTypes, "borderless") ||
		c.BorderColor == "borderless" || c.FullArt:
		return PrintTypeBorderless
	case has(c.FrameEffects, "retro"):
		return PrintTypeRetro
	case has(c.Finishes, "etched"):
		return PrintTypeEtched
	}
	return PrintTypeNormal
}

func has(values []string, want string) bool {
	for _, v := range values {
		if strings.TrimSpace(v) == want {
			return true
		}
	}
	return false
}

// Enrichment is the derived data for one collection row.
// An unresolved row has Resolved false and renders three empty fields.
type Enrichment struct {
	Resolved  bool        `json:"resolved"`
	Price     string      `json:"price,omitempty"`
	PrintType PrintType   `json:"print_type,omitempty"`
	Finish    Finish      `json:"finish,omitempty"`
	ProductID string      `json:"product_id,omitempty"`
	MatchedBy MatchSource `json:"matched_by"`
}

// Fields returns the price, print type and finish cells for the output row
func (e Enrichment) Fields() (price, printType, finish string) {
	if !e.Resolved {
		return "", "", ""
	}
	return e.Price, string(e.PrintType), string(e.Finish)
}
