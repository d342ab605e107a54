// Package catalog builds the in-memory reference indices a run joins against:
// the product index and price map from Cardmarket data, and the optional print
// index from a Scryfall bulk-data dump.
//
// Catalog ids are the join key between products and prices. All lookups are
// exact key lookups on normalized values; the first match wins.
package catalog
