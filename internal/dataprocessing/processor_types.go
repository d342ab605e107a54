package dataprocessing

import (
	"pricefill/pkg/contracts/domain"
)

// Column aliases recognised in a collection export
var (
	CollectionNameColumns    = []string{"Name", "name", "Card", "card"}
	CollectionSetColumns     = []string{"Set name", "Set", "Edition", "set", "setName"}
	CollectionSetCodeColumns = []string{"Set code", "Set Code", "set code", "set_code", "setCode"}
	CollectionNumberColumns  = []string{"Collector number", "Number", "collectorNumber", "Card Number", "collector_number"}
	CollectionFoilColumns    = []string{"Foil", "foil", "IsFoil", "isFoil"}
	CollectionScryfallColumn = []string{"Scryfall ID", "Scryfall Id", "scryfall_id", "scryfallId"}
	CollectionLangColumns    = []string{"Language", "language", "Lang", "lang"}
	CollectionQtyColumns     = []string{"Quantity", "quantity", "Qty", "Count"}
)

// Options configures enrichment behavior
type Options struct {
	// Window is the price guide averaging window written to the price column
	Window domain.PriceWindow

	// AddProductID appends the matched catalog id as an extra column
	AddProductID bool

	// UseSupplementary enables the print index lookup when one is loaded
	UseSupplementary bool
}

// DefaultOptions returns default enrichment options
func DefaultOptions() Options {
	return Options{
		Window:           domain.WindowAvg7,
		UseSupplementary: true,
	}
}

// CollectionColumns holds the resolved collection headers; empty means absent
type CollectionColumns struct {
	Name       string
	Set        string
	SetCode    string
	Number     string
	Foil       string
	ScryfallID string
	Lang       string
	Quantity   string
}

// ResolveCollectionColumns maps a collection table's headers onto the columns matching uses
func ResolveCollectionColumns(table *domain.Table) CollectionColumns {
	return CollectionColumns{
		Name:       table.Column(CollectionNameColumns...),
		Set:        table.Column(CollectionSetColumns...),
		SetCode:    table.Column(CollectionSetCodeColumns...),
		Number:     table.Column(CollectionNumberColumns...),
		Foil:       table.Column(CollectionFoilColumns...),
		ScryfallID: table.Column(CollectionScryfallColumn...),
		Lang:       table.Column(CollectionLangColumns...),
		Quantity:   table.Column(CollectionQtyColumns...),
	}
}

// SupportsSupplementary reports whether rows can be looked up in the print index
func (c CollectionColumns) SupportsSupplementary() bool {
	return c.ScryfallID != "" || (c.SetCode != "" && c.Number != "")
}
