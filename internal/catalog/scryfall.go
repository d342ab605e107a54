package catalog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"

	apperrors "pricefill/internal/errors"
	"pricefill/pkg/contracts/domain"
)

// scryfallCard is the subset of a Scryfall card object the print index keeps
type scryfallCard struct {
	ID              string      `json:"id"`
	CardmarketID    json.Number `json:"cardmarket_id"`
	Name            string      `json:"name"`
	Set             string      `json:"set"`
	SetName         string      `json:"set_name"`
	CollectorNumber string      `json:"collector_number"`
	Lang            string      `json:"lang"`
	FrameEffects    []string    `json:"frame_effects"`
	PromoTypes      []string    `json:"promo_types"`
	BorderColor     string      `json:"border_color"`
	FullArt         bool        `json:"full_art"`
	Textless        bool        `json:"textless"`
	Finishes        []string    `json:"finishes"`
}

func (c scryfallCard) toPrintInfo() *domain.PrintInfo {
	return &domain.PrintInfo{
		ScryfallID:   c.ID,
		CardmarketID: c.CardmarketID.String(),
		Name:         c.Name,
		SetCode:      strings.ToLower(c.Set),
		SetName:      c.SetName,
		CollectorNo:  c.CollectorNumber,
		Lang:         strings.ToLower(c.Lang),
		FrameEffects: c.FrameEffects,
		PromoTypes:   c.PromoTypes,
		BorderColor:  c.BorderColor,
		FullArt:      c.FullArt,
		Textless:     c.Textless,
		Finishes:     c.Finishes,
	}
}

type printKey struct {
	set    string
	number string
	lang   string
}

// PrintIndex is the supplementary lookup built from a Scryfall bulk-data file
type PrintIndex struct {
	byID      map[string]*domain.PrintInfo
	byNumber  map[printKey]*domain.PrintInfo
	byLang    map[printKey]*domain.PrintInfo
	Skipped   int
	totalRead int
}

// NewPrintIndex returns an empty index
func NewPrintIndex() *PrintIndex {
	return &PrintIndex{
		byID:     make(map[string]*domain.PrintInfo),
		byNumber: make(map[printKey]*domain.PrintInfo),
		byLang:   make(map[printKey]*domain.PrintInfo),
	}
}

// LoadPrintIndex reads a Scryfall bulk-data JSON array (optionally gzip-compressed).
// An empty path or a missing file yields an empty index.
func LoadPrintIndex(path string, logger *slog.Logger) (*PrintIndex, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if path == "" {
		return NewPrintIndex(), nil
	}

	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Warn("Supplementary dataset not found, continuing without it", slog.String("path", path))
			return NewPrintIndex(), nil
		}
		return nil, apperrors.NewStorageError("failed to open supplementary dataset", err).WithContext("path", path)
	}
	defer file.Close()

	var r io.Reader = file
	if strings.HasSuffix(strings.ToLower(path), ".gz") {
		gz, err := gzip.NewReader(file)
		if err != nil {
			return nil, apperrors.NewParsingError("failed to decompress supplementary dataset", err).WithContext("path", path)
		}
		defer gz.Close()
		r = gz
	}

	index, err := ReadPrintIndex(r, logger)
	if err != nil {
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			appErr.WithContext("path", path)
		}
		return nil, err
	}

	logger.Info("Supplementary index built",
		slog.String("path", path),
		slog.Int("cards", len(index.byID)),
		slog.Int("skipped", index.Skipped))
	return index, nil
}

// ReadPrintIndex streams card objects from a JSON array. Non-object elements and cards
// that do not decode are skipped. A document that is not an array yields an empty index.
func ReadPrintIndex(r io.Reader, logger *slog.Logger) (*PrintIndex, error) {
	if logger == nil {
		logger = slog.Default()
	}

	index := NewPrintIndex()
	dec := json.NewDecoder(r)

	tok, err := dec.Token()
	if err == io.EOF {
		return index, nil
	}
	if err != nil {
		return nil, apperrors.NewParsingError("invalid supplementary dataset", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '[' {
		logger.Warn("Supplementary dataset is not a JSON array, ignoring it")
		return index, nil
	}

	for dec.More() {
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, apperrors.NewParsingError(fmt.Sprintf("invalid supplementary dataset at element %d", index.totalRead+1), err)
		}
		index.totalRead++

		if !bytes.HasPrefix(bytes.TrimSpace(raw), []byte("{")) {
			index.Skipped++
			continue
		}
		var card scryfallCard
		if err := json.Unmarshal(raw, &card); err != nil {
			index.Skipped++
			logger.Debug("Skipping malformed card object", slog.Int("element", index.totalRead), slog.String("error", err.Error()))
			continue
		}
		index.Add(card.toPrintInfo())
	}

	if _, err := dec.Token(); err != nil {
		return nil, apperrors.NewParsingError("invalid supplementary dataset", err)
	}
	return index, nil
}

// Add indexes one printing by id, (set, number, lang) and (set, number).
// English printings keep the language-less key once they own it.
func (ix *PrintIndex) Add(info *domain.PrintInfo) {
	if info == nil {
		return
	}
	if info.ScryfallID != "" {
		ix.byID[info.ScryfallID] = info
	}
	if info.SetCode == "" || info.CollectorNo == "" {
		return
	}

	key := printKey{set: strings.ToLower(info.SetCode), number: info.CollectorNo}
	if existing, ok := ix.byNumber[key]; !ok || existing.Lang != "en" || info.Lang == "en" {
		ix.byNumber[key] = info
	}
	if info.Lang != "" {
		key.lang = strings.ToLower(info.Lang)
		ix.byLang[key] = info
	}
}

// Lookup resolves a printing by Scryfall id first, then by set code and collector number
// (with the language when given, then without). Set codes compare case-insensitively.
func (ix *PrintIndex) Lookup(scryfallID, setCode, number, lang string) (*domain.PrintInfo, bool) {
	if ix == nil {
		return nil, false
	}
	if scryfallID = strings.TrimSpace(scryfallID); scryfallID != "" {
		if info, ok := ix.byID[scryfallID]; ok {
			return info, true
		}
	}

	setCode = strings.ToLower(strings.TrimSpace(setCode))
	number = strings.TrimSpace(number)
	if setCode == "" || number == "" {
		return nil, false
	}

	key := printKey{set: setCode, number: number}
	if lang = strings.ToLower(strings.TrimSpace(lang)); lang != "" {
		key.lang = lang
		if info, ok := ix.byLang[key]; ok {
			return info, true
		}
		key.lang = ""
	}
	info, ok := ix.byNumber[key]
	return info, ok
}

// Len returns the number of printings indexed by id
func (ix *PrintIndex) Len() int {
	if ix == nil {
		return 0
	}
	return len(ix.byID)
}
