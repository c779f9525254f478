package universe

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"SurgeScreener/internal/model"
)

// SymbolColumn is the one column every universe file must carry.
const SymbolColumn = "symbol"

var ErrNoSymbolColumn = errors.New("universe has no symbol column")

// Universe is the ticker list read from CSV. Every column besides symbol is
// kept as metadata so output can be joined back to it.
type Universe struct {
	Header  []string
	Records [][]string
	symbol  int
}

// Load reads a universe CSV file.
func Load(path string) (*Universe, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open universe: %w", err)
	}
	defer f.Close()
	u, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parse universe %s: %w", path, err)
	}
	log.Info().Str("path", path).Int("tickers", len(u.Records)).Msg("universe loaded")
	return u, nil
}

// Parse reads a universe from CSV. Rows with an empty symbol are skipped.
func Parse(r io.Reader) (*Universe, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, ErrNoSymbolColumn
	}
	if err != nil {
		return nil, err
	}
	header[0] = strings.TrimPrefix(header[0], "\ufeff")

	u := &Universe{Header: header, symbol: -1}
	for i, h := range header {
		if strings.EqualFold(strings.TrimSpace(h), SymbolColumn) {
			u.symbol = i
			break
		}
	}
	if u.symbol < 0 {
		return nil, ErrNoSymbolColumn
	}

	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if u.symbol >= len(rec) || strings.TrimSpace(rec[u.symbol]) == "" {
			continue
		}
		rec[u.symbol] = strings.TrimSpace(rec[u.symbol])
		u.Records = append(u.Records, rec)
	}
	return u, nil
}

// Tickers returns the symbols in file order.
func (u *Universe) Tickers() []model.Ticker {
	out := make([]model.Ticker, len(u.Records))
	for i, rec := range u.Records {
		out[i] = model.Ticker(rec[u.symbol])
	}
	return out
}

// Column returns the value of the named column for ticker, if present.
func (u *Universe) Column(ticker model.Ticker, name string) (string, bool) {
	col := -1
	for i, h := range u.Header {
		if strings.EqualFold(h, name) {
			col = i
			break
		}
	}
	if col < 0 {
		return "", false
	}
	for _, rec := range u.Records {
		if rec[u.symbol] == string(ticker) && col < len(rec) {
			return rec[col], true
		}
	}
	return "", false
}

// Filter returns the universe rows whose symbol is in result, in universe
// order. Each symbol appears once even if the universe repeats it.
func (u *Universe) Filter(result model.ScreenResult) [][]string {
	var out [][]string
	seen := make(map[string]bool)
	for _, rec := range u.Records {
		sym := rec[u.symbol]
		if _, ok := result[model.Ticker(sym)]; !ok || seen[sym] {
			continue
		}
		seen[sym] = true
		out = append(out, rec)
	}
	return out
}

// WriteFiltered writes the universe rows of every retained ticker to path,
// replacing any previous output.
func WriteFiltered(path string, u *Universe, result model.ScreenResult) error {
	rows := u.Filter(result)
	if err := WriteCSV(path, u.Header, rows); err != nil {
		return err
	}
	log.Info().Str("path", path).Int("records", len(rows)).Msg("filtered universe written")
	return nil
}

// WriteCSV truncates path and writes header plus records.
func WriteCSV(path string, header []string, records [][]string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for i, rec := range records {
		if err := w.Write(rec); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}
	w.Flush()
	return w.Error()
}

// SortedTickers returns the result keys sorted, for stable reporting.
func SortedTickers(result model.ScreenResult) []string {
	out := make([]string, 0, len(result))
	for t := range result {
		out = append(out, string(t))
	}
	sort.Strings(out)
	return out
}
