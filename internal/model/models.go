// Package model defines the shared data structures of the sync pipeline.
package model

// FetchParams identifies what a snapshot was fetched for. The triple is
// the cache fingerprint: a snapshot built for different employers, a
// different area or a different salary filter is never reused.
// JSON tags match the on-disk `_metadata` envelope.
type FetchParams struct {
	Employers  map[string]int `json:"company_id_dict"` // display name → hh.ru employer id
	Area       int            `json:"area"`
	OnlySalary int            `json:"salary"` // 1 — only postings with a salary block
}

// Equal reports exact structural equality of the fingerprint triple.
// The employer map compares order-independently.
func (p FetchParams) Equal(other FetchParams) bool {
	if p.Area != other.Area || p.OnlySalary != other.OnlySalary {
		return false
	}
	if len(p.Employers) != len(other.Employers) {
		return false
	}
	for name, id := range p.Employers {
		got, ok := other.Employers[name]
		if !ok || got != id {
			return false
		}
	}
	return true
}

// Salary is the optional salary block of a raw vacancy. Either bound
// may be absent.
type Salary struct {
	From     *int   `json:"from"`
	To       *int   `json:"to"`
	Currency string `json:"currency"`
}

// Employer is the employer reference embedded in a raw vacancy.
// hh.ru serialises the id as a string.
type Employer struct {
	ID string `json:"id"`
}

// Vacancy mirrors a single raw hh.ru posting as fetched. Only the
// fields the pipeline consumes are decoded; everything else is dropped
// at the wire.
type Vacancy struct {
	Name         string   `json:"name"`
	AlternateURL string   `json:"alternate_url"`
	Employer     Employer `json:"employer"`
	Salary       *Salary  `json:"salary"`
}

// Snapshot is the in-memory form of the two-part on-disk unit: the raw
// vacancies plus the parameters that produced them. Readers reject a
// snapshot missing either half.
type Snapshot struct {
	Vacancies []Vacancy
	Meta      FetchParams
}

// VacancyView is the row shape returned by all listing queries.
type VacancyView struct {
	Company    string
	Title      string
	SalaryFrom *int
	SalaryTo   *int
	Currency   string
	URL        string
}

// CompanyCount pairs an employer name with its stored vacancy count.
type CompanyCount struct {
	Name           string
	VacanciesCount int
}
