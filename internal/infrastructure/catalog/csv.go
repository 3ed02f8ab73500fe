// Package catalog lee el catálogo inicial de artículos desde CSV (exportación de planilla).
package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/jhoicas/labstock/internal/domain/barcode"
	"github.com/jhoicas/labstock/internal/domain/entity"
)

// Prefijo de los códigos generados para artículos sin código: LAB-00001, LAB-00002, ...
const generatedPrefix = "LAB-"

// Columnas esperadas (la primera fila es el encabezado).
var header = []string{"id", "name", "unit", "barcode", "min_level", "price", "stock"}

// Entry artículo a dar de alta con su saldo inicial.
type Entry struct {
	Item         entity.Item
	OpeningStock int64
}

// Read parsea el CSV. charset "ISO-8859-1"/"latin1" decodifica exportaciones de planillas antiguas;
// cualquier otro valor se trata como UTF-8. Todo artículo queda con código de barras: las filas
// sin código reciben el siguiente LAB-NNNNN libre.
func Read(r io.Reader, charset string) ([]Entry, error) {
	switch strings.ToLower(charset) {
	case "iso-8859-1", "iso8859-1", "latin1":
		r = transform.NewReader(r, charmap.ISO8859_1.NewDecoder())
	}
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.Comment = '#'

	first, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("leer encabezado: %w", err)
	}
	if len(first) < len(header) || !strings.EqualFold(strings.TrimPrefix(first[0], "\ufeff"), header[0]) {
		return nil, fmt.Errorf("encabezado inválido: se esperaba %s", strings.Join(header, ","))
	}

	var out []Entry
	seen := make(map[string]bool)
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("línea %d: %w", line, err)
		}
		e, err := parseRecord(rec)
		if err != nil {
			return nil, fmt.Errorf("línea %d: %w", line, err)
		}
		if seen[e.Item.ID] {
			return nil, fmt.Errorf("línea %d: id duplicado %q", line, e.Item.ID)
		}
		seen[e.Item.ID] = true
		out = append(out, e)
	}
	if err := assignBarcodes(out); err != nil {
		return nil, err
	}
	return out, nil
}

func assignBarcodes(entries []Entry) error {
	used := make(map[string]string)
	last := 0
	for _, e := range entries {
		if e.Item.Barcode == nil {
			continue
		}
		code := *e.Item.Barcode
		if other, ok := used[code]; ok {
			return fmt.Errorf("código %q repetido en %q y %q", code, other, e.Item.ID)
		}
		used[code] = e.Item.ID
		if n, ok := generatedNumber(code); ok && n > last {
			last = n
		}
	}
	for i := range entries {
		if entries[i].Item.Barcode != nil {
			continue
		}
		var code string
		for {
			last++
			code = fmt.Sprintf("%s%05d", generatedPrefix, last)
			if _, taken := used[code]; !taken {
				break
			}
		}
		used[code] = entries[i].Item.ID
		entries[i].Item.Barcode = &code
	}
	return nil
}

// generatedNumber extrae N de "LAB-NNNNN".
func generatedNumber(code string) (int, bool) {
	rest, ok := strings.CutPrefix(code, generatedPrefix)
	if !ok || len(rest) != 5 {
		return 0, false
	}
	n, err := strconv.Atoi(rest)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

func parseRecord(rec []string) (Entry, error) {
	for i := range rec {
		rec[i] = strings.TrimSpace(rec[i])
	}
	if rec[0] == "" || rec[1] == "" {
		return Entry{}, errors.New("id y nombre son obligatorios")
	}
	item := entity.Item{ID: rec[0], Name: rec[1], Unit: rec[2], Active: true, Price: decimal.Zero}

	if rec[3] != "" {
		code, err := barcode.Normalize(rec[3])
		if err != nil {
			return Entry{}, fmt.Errorf("código %q: %w", rec[3], err)
		}
		item.Barcode = &code
	}
	min, err := parseNonNegative(rec[4])
	if err != nil {
		return Entry{}, fmt.Errorf("min_level: %w", err)
	}
	item.MinLevel = min
	if rec[5] != "" {
		price, err := decimal.NewFromString(strings.ReplaceAll(rec[5], ",", "."))
		if err != nil || price.IsNegative() {
			return Entry{}, fmt.Errorf("precio inválido %q", rec[5])
		}
		item.Price = price
	}
	opening, err := parseNonNegative(rec[6])
	if err != nil {
		return Entry{}, fmt.Errorf("stock: %w", err)
	}
	return Entry{Item: item, OpeningStock: opening}, nil
}

func parseNonNegative(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("entero no negativo inválido %q", s)
	}
	return n, nil
}
