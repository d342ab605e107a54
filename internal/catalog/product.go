package catalog

import (
	"log/slog"

	apperrors "pricefill/internal/errors"
	"pricefill/pkg/contracts/domain"
)

// Column aliases recognised in product catalogues and price guides
var (
	IDColumns          = []string{"idProduct", "productId", "id", "Product ID", "ProductId"}
	ProductNameColumns = []string{"Name", "name", "Product Name", "productName"}
	ProductSetColumns  = []string{"Expansion", "expansion", "Expansion Name", "Set", "Edition", "ExpansionName", "NameExpansion", "setName"}
	NumberColumns      = []string{"Number", "Collector Number", "collectorNumber", "Card Number", "collector_number"}
	ProductFoilColumns = []string{"IsFoil", "Foil", "isFoil", "foil"}
)

// foilState is the foil component of a ProductKey
type foilState int8

const (
	foilUnknown foilState = iota
	foilYes
	foilNo
)

func foilStateOf(foil *bool) foilState {
	switch {
	case foil == nil:
		return foilUnknown
	case *foil:
		return foilYes
	default:
		return foilNo
	}
}

// ProductKey identifies a printing by normalized name, set name, collector number and foil state.
// Set and number are empty for the less specific keys.
type ProductKey struct {
	Name   string
	Set    string
	Number string
	Foil   foilState
}

// ProductIndex maps product keys to catalog ids
type ProductIndex struct {
	ByID    map[string]domain.Product
	keys    map[ProductKey][]string
	Skipped int
}

// BuildProductIndex indexes a product catalogue. The table must carry an id and a name column;
// rows without an id are skipped. Products with an unknown foil flag are reachable from
// foil, nonfoil and unknown lookups.
func BuildProductIndex(table *domain.Table, logger *slog.Logger) (*ProductIndex, error) {
	if logger == nil {
		logger = slog.Default()
	}

	idCol := table.Column(IDColumns...)
	nameCol := table.Column(ProductNameColumns...)
	if idCol == "" || nameCol == "" {
		return nil, apperrors.NewValidationError("product catalogue data must include product id and name columns").
			WithContext("source", table.Source).
			WithContext("headers", table.Headers)
	}
	setCol := table.Column(ProductSetColumns...)
	numCol := table.Column(NumberColumns...)
	foilCol := table.Column(ProductFoilColumns...)

	index := &ProductIndex{
		ByID: make(map[string]domain.Product, table.Len()),
		keys: make(map[ProductKey][]string, table.Len()),
	}

	for i, row := range table.Rows {
		id := domain.Value(row, idCol)
		if id == "" {
			index.Skipped++
			logger.Debug("Skipping product without id", slog.String("source", table.Source), slog.Int("row", i+1))
			continue
		}

		product := domain.Product{
			ID:      id,
			Name:    domain.NormalizeName(row[nameCol]),
			SetName: domain.NormalizeName(domain.Value(row, setCol)),
			Number:  domain.NormalizeNumber(domain.Value(row, numCol)),
		}
		if foilCol != "" {
			product.Foil = domain.ParseFoil(row[foilCol])
		}
		index.ByID[id] = product

		key := ProductKey{Name: product.Name, Set: product.SetName, Number: product.Number}
		if product.Foil == nil {
			for _, state := range []foilState{foilUnknown, foilYes, foilNo} {
				key.Foil = state
				index.keys[key] = append(index.keys[key], id)
			}
		} else {
			key.Foil = foilStateOf(product.Foil)
			index.keys[key] = append(index.keys[key], id)
		}
	}

	logger.Info("Product index built",
		slog.String("source", table.Source),
		slog.Int("products", len(index.ByID)),
		slog.Int("keys", len(index.keys)),
		slog.Int("skipped", index.Skipped))

	return index, nil
}

// Len returns the number of distinct products
func (ix *ProductIndex) Len() int {
	if ix == nil {
		return 0
	}
	return len(ix.ByID)
}

// CandidateKeys lists lookup keys from most to least specific. Inputs are normalized here.
// An unknown foil flag also tries the foil and nonfoil variants of each key.
func CandidateKeys(name, setName, number string, foil *bool) []ProductKey {
	name = domain.NormalizeName(name)
	setName = domain.NormalizeName(setName)
	number = domain.NormalizeNumber(number)
	state := foilStateOf(foil)

	var keys []ProductKey
	add := func(set, num string) {
		keys = append(keys, ProductKey{Name: name, Set: set, Number: num, Foil: state})
		if state == foilUnknown {
			keys = append(keys,
				ProductKey{Name: name, Set: set, Number: num, Foil: foilYes},
				ProductKey{Name: name, Set: set, Number: num, Foil: foilNo})
		}
	}

	if name == "" {
		return nil
	}
	if setName != "" && number != "" {
		add(setName, number)
	}
	if setName != "" {
		add(setName, "")
	}
	add("", "")
	return keys
}

// Match returns the product ids of the first candidate key present in the index,
// in catalogue order
func (ix *ProductIndex) Match(name, setName, number string, foil *bool) []string {
	if ix == nil {
		return nil
	}
	for _, key := range CandidateKeys(name, setName, number, foil) {
		if ids, ok := ix.keys[key]; ok {
			return ids
		}
	}
	return nil
}
