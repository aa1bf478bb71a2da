/*
Package importer turns HR spreadsheets exported as CSV into ledger entries.

PURPOSE:
  Bulk-loads residual balances and vacation history. The importer never
  trusts the day counts in the file: every row goes through
  ledger.BuildEntry, so SCHEDULED and DEDUCTION rows are re-derived by the
  business-day calculator. Only INITIAL_BALANCE rows take their number from
  the file.

PIPELINE:
  Parse    -> []RawRecord  (column mapping, no interpretation)
  Validate -> []Row        (kind, dates and numbers interpreted, errors collected)
  Plan     -> ledger.ImportBatch (collaborators resolved, entries built)

FILE FORMAT:
  UTF-8, optional BOM. Delimiter is ';' when the header line contains one,
  otherwise ','. Headers are matched by keyword, ignoring case and accents,
  so "Data de início", "data de inicio" and "INICIO" all map to the start date.

SEE ALSO:
  - template.go: the downloadable template
  - ledger/service.go: Service.Import commits a plan atomically
*/
package importer

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	// ErrEmptyFile means the file has no data rows after the header.
	ErrEmptyFile = errors.New("file is empty or has no data rows")

	// ErrMissingNameColumn means no header matched the collaborator name.
	ErrMissingNameColumn = errors.New("could not find the collaborator name column")
)

// RawRecord is one data row exactly as found in the file, mapped to
// logical columns. Absent columns are "" (numeric hints default to "0").
// Line is the row's position in the file after blank lines are dropped,
// counting the header as line 1.
type RawRecord struct {
	Line             int    `json:"line"`
	Name             string `json:"name"`
	Title            string `json:"title"`
	SubUnit          string `json:"sub_unit"`
	State            string `json:"state"`
	Kind             string `json:"kind"`
	Start            string `json:"start_date"`
	End              string `json:"end_date"`
	CalendarDaysHint string `json:"calendar_days"`
	BusinessDaysHint string `json:"business_days"`
	ManualDaysHint   string `json:"initial_balance"`
	Note             string `json:"note"`
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

type column int

const (
	colName column = iota
	colTitle
	colSubUnit
	colState
	colKind
	colStart
	colEnd
	colCalendarDays
	colBusinessDays
	colNote
	colManualDays
	numColumns
)

// headerKeywords are matched as substrings of the folded header. The first
// header that matches any keyword wins.
var headerKeywords = [numColumns][]string{
	colName:         {"nome", "colaborador", "funcionario", "name"},
	colTitle:        {"funcao", "cargo", "title"},
	colSubUnit:      {"unidade", "depto", "departamento", "unit"},
	colState:        {"estado", "uf", "state"},
	colKind:         {"tipo", "solicitacao", "kind", "type"},
	colStart:        {"inicio", "start"},
	colEnd:          {"fim", "final", "end_date", "end date"},
	colCalendarDays: {"corridos", "calendar"},
	colBusinessDays: {"uteis", "business"},
	colNote:         {"observacao", "obs", "note"},
	colManualDays:   {"saldo inicial", "inicial", "saldo", "initial"},
}

// Parse reads a CSV export and maps its columns.
func Parse(r io.Reader) ([]RawRecord, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	data = bytes.TrimPrefix(data, utf8BOM)

	header, _, _ := bytes.Cut(data, []byte("\n"))
	cr := csv.NewReader(bytes.NewReader(data))
	cr.Comma = ','
	if bytes.ContainsRune(header, ';') {
		cr.Comma = ';'
	}
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	lines, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	lines = dropBlank(lines)
	if len(lines) < 2 {
		return nil, ErrEmptyFile
	}

	idx := mapColumns(lines[0])
	if idx[colName] < 0 {
		return nil, ErrMissingNameColumn
	}

	records := make([]RawRecord, 0, len(lines)-1)
	for i, cols := range lines[1:] {
		get := func(c column, def string) string {
			if j := idx[c]; j >= 0 && j < len(cols) {
				if v := strings.TrimSpace(cols[j]); v != "" {
					return v
				}
			}
			return def
		}
		records = append(records, RawRecord{
			Line:             i + 2,
			Name:             get(colName, ""),
			Title:            get(colTitle, ""),
			SubUnit:          get(colSubUnit, ""),
			State:            get(colState, ""),
			Kind:             get(colKind, ""),
			Start:            get(colStart, ""),
			End:              get(colEnd, ""),
			CalendarDaysHint: get(colCalendarDays, "0"),
			BusinessDaysHint: get(colBusinessDays, "0"),
			ManualDaysHint:   get(colManualDays, "0"),
			Note:             get(colNote, ""),
		})
	}
	return records, nil
}

func mapColumns(header []string) [numColumns]int {
	folded := make([]string, len(header))
	for i, h := range header {
		folded[i] = fold(h)
	}

	var idx [numColumns]int
	for c := range idx {
		idx[c] = -1
		for i, h := range folded {
			if matchesAny(h, headerKeywords[c]) {
				idx[c] = i
				break
			}
		}
	}
	return idx
}

func matchesAny(header string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(header, k) {
			return true
		}
	}
	return false
}

// fold lowercases and strips accents and quotes: "Função" -> "funcao".
func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(strings.Trim(strings.TrimSpace(out), `"`))
}

func dropBlank(lines [][]string) [][]string {
	out := lines[:0]
	for _, cols := range lines {
		blank := true
		for _, c := range cols {
			if strings.TrimSpace(c) != "" {
				blank = false
				break
			}
		}
		if !blank {
			out = append(out, cols)
		}
	}
	return out
}
