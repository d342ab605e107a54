package operations

import (
	"time"
)

// Pipeline step identifiers
const (
	StepIDLoad   = "load"
	StepIDIndex  = "index"
	StepIDEnrich = "enrich"
	StepIDExport = "export"
)

// Pipeline step names
const (
	StepNameLoad   = "Load Inputs"
	StepNameIndex  = "Build Reference Indices"
	StepNameEnrich = "Enrich Collection"
	StepNameExport = "Export Results"
)

// Context keys for operation state
const (
	ContextKeyCollection   = "collection"
	ContextKeyProducts     = "products"
	ContextKeyPrices       = "prices"
	ContextKeyPrintIndex   = "print_index"
	ContextKeyProductIndex = "product_index"
	ContextKeyPriceMap     = "price_map"
	ContextKeyEnriched     = "enriched"
	ContextKeySummary      = "summary"
	ContextKeyOutputs      = "outputs"
)

// Default timeouts
const (
	DefaultStepTimeout = 10 * time.Minute
)

// OperationRequest starts one run. Parameters are copied into the state's config map.
type OperationRequest struct {
	ID         string                 `json:"id,omitempty"`
	Parameters map[string]interface{} `json:"parameters,omitempty"`
}

// OperationResponse describes a finished run
type OperationResponse struct {
	ID       string                `json:"id"`
	Status   OperationStatus       `json:"status"`
	Duration time.Duration         `json:"duration"`
	Steps    map[string]*StepState `json:"steps"`
	Error    string                `json:"error,omitempty"`
}
