// Package export renders list items as CSV for spreadsheets, formatting
// numbers, dates and booleans for a locale.
package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"reflect"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// Column is one exported column. Header is a message key translated through
// the table's catalog; Value extracts the raw cell value.
type Column[T any] struct {
	Header string
	Value  func(T) any
}

// Cents is an amount in hundredths of the currency unit. It is rendered with
// two decimals.
type Cents int64

// Table describes an export: its columns and the locale cells are formatted
// for.
type Table[T any] struct {
	Columns []Column[T]
	Locale  language.Tag
	// BOM prefixes the output with a UTF-8 byte order mark so that
	// spreadsheet programs detect the encoding.
	BOM bool
}

// Encode renders items, in the order given, as CSV.
func (t Table[T]) Encode(items []T) ([]byte, error) {
	var buf bytes.Buffer
	if err := t.Write(&buf, items); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Write streams items as CSV to w. Locales that use a decimal comma get ";"
// as the field separator.
func (t Table[T]) Write(w io.Writer, items []T) error {
	f := NewFormatter(t.Locale)
	if t.BOM {
		if _, err := io.WriteString(w, "\ufeff"); err != nil {
			return fmt.Errorf("writing bom: %w", err)
		}
	}
	cw := csv.NewWriter(w)
	cw.Comma = f.Separator()

	header := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		header[i] = f.Header(c.Header)
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	record := make([]string, len(t.Columns))
	for n, it := range items {
		for i, c := range t.Columns {
			record[i] = f.Format(c.Value(it))
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("writing row %d: %w", n+1, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flushing csv: %w", err)
	}
	return nil
}

// Formatter formats cell values for one locale.
type Formatter struct {
	tag     language.Tag
	printer *message.Printer
}

// NewFormatter returns a formatter for tag using the built-in catalog.
func NewFormatter(tag language.Tag) *Formatter {
	return &Formatter{tag: tag, printer: message.NewPrinter(tag, message.Catalog(messages))}
}

// Header translates a column header key. Unknown keys are returned as is.
func (f *Formatter) Header(key string) string {
	return f.printer.Sprintf(key)
}

// Separator is the CSV field separator conventional for the locale.
func (f *Formatter) Separator() rune {
	if strings.Contains(f.printer.Sprintf("%.1f", 1.5), ",") {
		return ';'
	}
	return ','
}

// Format renders v as a cell: nil and zero times are empty, numbers use the
// locale's grouping and decimal separators, times use the locale's date
// layout and booleans a localized yes or no.
func (f *Formatter) Format(v any) string {
	if v == nil {
		return ""
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return ""
		}
		rv = rv.Elem()
	}
	v = rv.Interface()

	switch x := v.(type) {
	case string:
		return x
	case bool:
		if x {
			return f.printer.Sprintf("yes")
		}
		return f.printer.Sprintf("no")
	case time.Time:
		if x.IsZero() {
			return ""
		}
		return x.Format(f.dateLayout(x))
	case Cents:
		return f.printer.Sprintf("%.2f", float64(x)/100)
	case fmt.Stringer:
		return x.String()
	}

	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return f.printer.Sprintf("%d", rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return f.printer.Sprintf("%d", rv.Uint())
	case reflect.Float32, reflect.Float64:
		return f.printer.Sprintf("%.2f", rv.Float())
	case reflect.String:
		return rv.String()
	}
	return fmt.Sprint(v)
}

// dateLayout is month-first for US English and day-first elsewhere, with the
// time of day when t is not midnight.
func (f *Formatter) dateLayout(t time.Time) string {
	layout := "02/01/2006"
	if region, _ := f.tag.Region(); region.String() == "US" {
		layout = "01/02/2006"
	}
	if t.Hour() != 0 || t.Minute() != 0 || t.Second() != 0 {
		layout += " 15:04"
	}
	return layout
}

// Filename returns "<base>-YYYY-MM-DD.csv" for the export date.
func Filename(base string, at time.Time) string {
	base = strings.TrimSpace(base)
	if base == "" {
		base = "export"
	}
	return fmt.Sprintf("%s-%s.csv", base, at.Format("2006-01-02"))
}

var messages = func() catalog.Catalog {
	b := catalog.NewBuilder(catalog.Fallback(language.English))
	set := func(tag language.Tag, pairs ...string) {
		for i := 0; i+1 < len(pairs); i += 2 {
			_ = b.SetString(tag, pairs[i], pairs[i+1])
		}
	}
	set(language.English,
		"yes", "Yes",
		"no", "No",
	)
	set(language.Portuguese,
		"yes", "Sim",
		"no", "Não",
		"name", "Razão social",
		"trade_name", "Nome fantasia",
		"cnpj", "CNPJ",
		"cnae", "CNAE",
		"tax_regime", "Regime tributário",
		"active", "Ativo",
		"email", "E-mail",
		"monthly_fee", "Honorário mensal (R$)",
		"created_at", "Cadastrado em",
		"last_filing_at", "Última entrega",
	)
	set(language.English,
		"name", "Legal name",
		"trade_name", "Trade name",
		"cnpj", "CNPJ",
		"cnae", "CNAE",
		"tax_regime", "Tax regime",
		"active", "Active",
		"email", "Email",
		"monthly_fee", "Monthly fee",
		"created_at", "Created",
		"last_filing_at", "Last filing",
	)
	return b
}()
