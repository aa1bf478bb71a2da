package importer

import (
	"strings"

	"github.com/opsdesk/vacation-ledger/calendar"
	"github.com/opsdesk/vacation-ledger/ledger"
)

// Placeholder for collaborator fields the file left blank.
const notInformed = "Não informada"

// DefaultState is used for new collaborators whose row has no state.
const DefaultState = "SP"

// RowResult is the outcome of one row after planning.
type RowResult struct {
	Line           int         `json:"line"`
	Name           string      `json:"name"`
	Kind           ledger.Kind `json:"kind,omitempty"`
	Imported       bool        `json:"imported"`
	EntryID        string      `json:"entry_id,omitempty"`
	CollaboratorID string      `json:"collaborator_id,omitempty"`
	Errors         []string    `json:"errors,omitempty"`
}

// Plan turns validated rows into a ledger.ImportBatch. Build is safe to call
// more than once (dry run, then commit); Results always reflects the last call.
type Plan struct {
	Rows    []Row
	Today   calendar.Date
	NewID   func() string
	Results []RowResult
}

func NewPlan(rows []Row, today calendar.Date, newID func() string) *Plan {
	return &Plan{Rows: rows, Today: today, NewID: newID}
}

// Build resolves collaborators by case-insensitive name, creating missing
// ones, and builds each entry through ledger.BuildEntry. A new collaborator
// is only created when at least one of its rows produces an entry.
func (p *Plan) Build(snap ledger.Snapshot) (ledger.ImportBatch, error) {
	var batch ledger.ImportBatch
	p.Results = make([]RowResult, 0, len(p.Rows))

	byName := make(map[string]ledger.Collaborator, len(snap.Collaborators))
	for _, c := range snap.Collaborators {
		key := nameKey(c.Name)
		if _, dup := byName[key]; !dup {
			byName[key] = c
		}
	}

	for _, row := range p.Rows {
		res := RowResult{Line: row.Line, Name: strings.TrimSpace(row.Name), Kind: row.Kind}
		if !row.Valid() {
			res.Errors = row.Errors
			p.reject(&batch, res)
			continue
		}

		collab, known := byName[nameKey(row.Name)]
		if !known {
			collab = p.newCollaborator(row)
			if err := collab.Validate(); err != nil {
				res.Errors = []string{err.Error()}
				p.reject(&batch, res)
				continue
			}
		}

		entry, err := ledger.BuildEntry(p.NewID(), ledger.EntryInput{
			CollaboratorID: collab.ID,
			Kind:           row.Kind,
			Start:          row.StartDate,
			End:            row.EndDate,
			Jurisdiction:   collab.Jurisdiction(),
			ManualDays:     row.ManualDays,
			Note:           row.Note,
		}, snap.Holidays, p.Today)
		if err != nil {
			res.Errors = []string{err.Error()}
			p.reject(&batch, res)
			continue
		}

		if !known {
			byName[nameKey(collab.Name)] = collab
			batch.NewCollaborators = append(batch.NewCollaborators, collab)
		}
		batch.Entries = append(batch.Entries, entry)

		res.Imported = true
		res.EntryID = entry.ID
		res.CollaboratorID = collab.ID
		p.Results = append(p.Results, res)
	}
	return batch, nil
}

func (p *Plan) reject(batch *ledger.ImportBatch, res RowResult) {
	batch.Rejected++
	p.Results = append(p.Results, res)
}

func (p *Plan) newCollaborator(row Row) ledger.Collaborator {
	return ledger.Collaborator{
		ID:      p.NewID(),
		Name:    strings.TrimSpace(row.Name),
		Title:   orDefault(row.Title, notInformed),
		SubUnit: orDefault(row.SubUnit, notInformed),
		State:   stateCode(row.State),
	}.Normalize()
}

// Full state names, folded, as HR exports spell them.
var stateNames = map[string]string{
	"acre": "AC", "alagoas": "AL", "amapa": "AP", "amazonas": "AM",
	"bahia": "BA", "ceara": "CE", "distrito federal": "DF", "espirito santo": "ES",
	"goias": "GO", "maranhao": "MA", "mato grosso": "MT", "mato grosso do sul": "MS",
	"minas gerais": "MG", "para": "PA", "paraiba": "PB", "parana": "PR",
	"pernambuco": "PE", "piaui": "PI", "rio de janeiro": "RJ", "rio grande do norte": "RN",
	"rio grande do sul": "RS", "rondonia": "RO", "roraima": "RR", "santa catarina": "SC",
	"sao paulo": "SP", "sergipe": "SE", "tocantins": "TO",
}

// stateCode maps a state cell to a two-letter code: blank gives DefaultState,
// a full name gives its code, anything else is folded and cut to two letters.
func stateCode(s string) string {
	folded := strings.Join(strings.Fields(fold(s)), " ")
	if folded == "" {
		return DefaultState
	}
	if code, ok := stateNames[folded]; ok {
		return code
	}
	if r := []rune(folded); len(r) > 2 {
		folded = string(r[:2])
	}
	return strings.ToUpper(folded)
}

// Imported counts rows that produced an entry in the last Build.
func (p *Plan) Imported() int {
	n := 0
	for _, r := range p.Results {
		if r.Imported {
			n++
		}
	}
	return n
}

func nameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func orDefault(s, def string) string {
	if s = strings.TrimSpace(s); s != "" {
		return s
	}
	return def
}
