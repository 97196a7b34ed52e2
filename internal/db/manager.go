package db

import (
	"context"
	"math"
	"strconv"

	"github.com/jackc/pgx/v5/pgxpool"

	"hhsync/internal/model"
	"hhsync/pkg/logging"
)

// Manager is the sole writer to relational storage. It owns the schema
// lifecycle (drop-and-recreate on every load) and answers the
// aggregate and search queries. Query-level failures are logged and
// absorbed: callers get an empty result, never an error.
type Manager struct {
	pool     *pgxpool.Pool
	currency string // only vacancies in this currency are stored
	log      *logging.Logger
}

// NewManager returns a Manager over an established pool.
func NewManager(pool *pgxpool.Pool, currency string, log *logging.Logger) *Manager {
	return &Manager{pool: pool, currency: currency, log: log}
}

// Close releases the underlying pool.
func (m *Manager) Close() {
	m.pool.Close()
}

// CreateSchema drops and recreates the employers and vacancies tables.
// Every load starts from an empty schema.
func (m *Manager) CreateSchema(ctx context.Context) error {
	stmts := []string{
		`DROP TABLE IF EXISTS vacancies`,
		`DROP TABLE IF EXISTS employers CASCADE`,
		`CREATE TABLE employers (
			employer_id SERIAL PRIMARY KEY,
			hh_id INTEGER UNIQUE NOT NULL,
			name VARCHAR(255) NOT NULL
		)`,
		`CREATE TABLE vacancies (
			vacancy_id SERIAL PRIMARY KEY,
			employer_id INTEGER REFERENCES employers(employer_id),
			title VARCHAR(255) NOT NULL,
			salary_from INTEGER,
			salary_to INTEGER,
			currency VARCHAR(10),
			url VARCHAR(512) UNIQUE
		)`,
	}

	for _, stmt := range stmts {
		if _, err := m.pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}

	m.log.Info("schema recreated")
	return nil
}

// Load materialises a snapshot into storage: one employer row per
// configured employer (insert skipped on hh_id conflict) and one
// vacancy row per storable raw vacancy (insert skipped on url
// conflict). Row-level conflicts never abort the load.
func (m *Manager) Load(ctx context.Context, snap *model.Snapshot) error {
	for name, hhID := range snap.Meta.Employers {
		_, err := m.pool.Exec(ctx,
			`INSERT INTO employers (hh_id, name) VALUES ($1, $2) ON CONFLICT (hh_id) DO NOTHING`,
			hhID, name,
		)
		if err != nil {
			return err
		}
	}

	var inserted, skipped int
	for _, vac := range snap.Vacancies {
		if !m.storable(vac) {
			skipped++
			continue
		}

		hhID, err := strconv.Atoi(vac.Employer.ID)
		if err != nil {
			m.log.Warn("vacancy with malformed employer id skipped", "url", vac.AlternateURL, "employer_id", vac.Employer.ID)
			skipped++
			continue
		}

		tag, err := m.pool.Exec(ctx,
			`INSERT INTO vacancies (employer_id, title, salary_from, salary_to, currency, url)
			 VALUES (
			   (SELECT employer_id FROM employers WHERE hh_id = $1),
			   $2, $3, $4, $5, $6
			 ) ON CONFLICT (url) DO NOTHING`,
			hhID, vac.Name, vac.Salary.From, vac.Salary.To, vac.Salary.Currency, vac.AlternateURL,
		)
		if err != nil {
			return err
		}
		if tag.RowsAffected() > 0 {
			inserted++
		}
	}

	m.log.Info("snapshot loaded into storage", "inserted", inserted, "skipped", skipped)
	return nil
}

// storable reports whether a raw vacancy survives normalization:
// vacancies without a salary block or in a foreign currency are
// discarded at load time.
func (m *Manager) storable(vac model.Vacancy) bool {
	return vac.Salary != nil && vac.Salary.Currency == m.currency
}

// CompaniesAndCounts returns every employer with its vacancy count,
// busiest first. Counts may be zero.
func (m *Manager) CompaniesAndCounts(ctx context.Context) []model.CompanyCount {
	rows, err := m.pool.Query(ctx, `
		SELECT e.name, COUNT(v.vacancy_id) AS vacancies_count
		FROM employers e
		LEFT JOIN vacancies v ON e.employer_id = v.employer_id
		GROUP BY e.name
		ORDER BY vacancies_count DESC`)
	if err != nil {
		m.log.Error("companies query failed", "err", err)
		return nil
	}
	defer rows.Close()

	counts := make([]model.CompanyCount, 0)
	for rows.Next() {
		var c model.CompanyCount
		if err := rows.Scan(&c.Name, &c.VacanciesCount); err != nil {
			m.log.Error("companies scan failed", "err", err)
			return nil
		}
		counts = append(counts, c)
	}
	if err := rows.Err(); err != nil {
		m.log.Error("companies rows failed", "err", err)
		return nil
	}
	return counts
}

// AllVacancies returns every stored vacancy with its company, ordered
// by company name and then by descending midpoint salary.
func (m *Manager) AllVacancies(ctx context.Context) []model.VacancyView {
	return m.queryViews(ctx, `
		SELECT e.name AS company, v.title, v.salary_from, v.salary_to, v.currency, v.url
		FROM vacancies v
		JOIN employers e ON v.employer_id = e.employer_id
		ORDER BY e.name, (v.salary_from + v.salary_to)/2 DESC`)
}

// AverageSalary returns the mean midpoint salary over vacancies with
// both bounds present, rounded to 2 decimal places. Zero when no row
// qualifies.
func (m *Manager) AverageSalary(ctx context.Context) float64 {
	var avg *float64
	err := m.pool.QueryRow(ctx, `
		SELECT AVG((salary_from + salary_to)/2) AS avg_salary
		FROM vacancies
		WHERE salary_from IS NOT NULL AND salary_to IS NOT NULL`).Scan(&avg)
	if err != nil {
		m.log.Error("average salary query failed", "err", err)
		return 0
	}
	if avg == nil {
		return 0
	}
	return round2(*avg)
}

// AboveAverage returns vacancies whose midpoint salary exceeds the
// average, highest first. The average is computed fresh in a subquery.
func (m *Manager) AboveAverage(ctx context.Context) []model.VacancyView {
	return m.queryViews(ctx, `
		SELECT e.name AS company, v.title, v.salary_from, v.salary_to, v.currency, v.url
		FROM vacancies v
		JOIN employers e ON v.employer_id = e.employer_id
		WHERE (v.salary_from + v.salary_to)/2 > (
			SELECT AVG((salary_from + salary_to)/2)
			FROM vacancies
			WHERE salary_from IS NOT NULL AND salary_to IS NOT NULL
		)
		ORDER BY (v.salary_from + v.salary_to)/2 DESC`)
}

// SearchByKeyword returns vacancies whose title contains the keyword,
// case-insensitively, highest midpoint salary first. An empty keyword
// returns the full listing instead.
func (m *Manager) SearchByKeyword(ctx context.Context, keyword string) []model.VacancyView {
	if keyword == "" {
		return m.AllVacancies(ctx)
	}
	return m.queryViews(ctx, `
		SELECT e.name AS company, v.title, v.salary_from, v.salary_to, v.currency, v.url
		FROM vacancies v
		JOIN employers e ON v.employer_id = e.employer_id
		WHERE v.title ILIKE $1
		ORDER BY (v.salary_from + v.salary_to)/2 DESC`,
		"%"+keyword+"%")
}

func (m *Manager) queryViews(ctx context.Context, query string, args ...any) []model.VacancyView {
	rows, err := m.pool.Query(ctx, query, args...)
	if err != nil {
		m.log.Error("vacancy query failed", "err", err)
		return nil
	}
	defer rows.Close()

	views := make([]model.VacancyView, 0)
	for rows.Next() {
		var v model.VacancyView
		if err := rows.Scan(&v.Company, &v.Title, &v.SalaryFrom, &v.SalaryTo, &v.Currency, &v.URL); err != nil {
			m.log.Error("vacancy scan failed", "err", err)
			return nil
		}
		views = append(views, v)
	}
	if err := rows.Err(); err != nil {
		m.log.Error("vacancy rows failed", "err", err)
		return nil
	}
	return views
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
