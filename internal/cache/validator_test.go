package cache_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"hhsync/internal/cache"
	"hhsync/internal/model"
	"hhsync/pkg/logging"
)

const validEnvelope = `[
    {
        "data": [
            {
                "name": "Backend Dev",
                "alternate_url": "https://hh.ru/vacancy/1",
                "employer": {"id": "1740"},
                "salary": {"from": 200000, "to": 300000, "currency": "RUR"}
            }
        ]
    },
    {
        "_metadata": {
            "company_id_dict": {"Яндекс": 1740, "Сбер": 3529},
            "area": 113,
            "salary": 1
        }
    }
]`

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "all_vacancies.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func params() *model.FetchParams {
	return &model.FetchParams{
		Employers:  map[string]int{"Сбер": 3529, "Яндекс": 1740},
		Area:       113,
		OnlySalary: 1,
	}
}

func newValidator() *cache.Validator {
	return cache.NewValidator(logging.Nop())
}

// ── Existence and age ──────────────────────────────────────────────────────

func TestFresh_MissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "all_vacancies.json")
	if newValidator().Fresh(path, params(), 1) {
		t.Error("Fresh() = true for a missing file, want false")
	}
}

func TestFresh_ValidRecentFile(t *testing.T) {
	path := writeFile(t, validEnvelope)
	if !newValidator().Fresh(path, params(), 1) {
		t.Error("Fresh() = false for a valid recent snapshot, want true")
	}
}

func TestFresh_ExpiredFile(t *testing.T) {
	path := writeFile(t, validEnvelope)
	old := time.Now().Add(-2 * time.Hour)
	if err := os.Chtimes(path, old, old); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
	if newValidator().Fresh(path, params(), 1) {
		t.Error("Fresh() = true for a 2h-old snapshot with max age 1h, want false")
	}
}

func TestFresh_AgeJustUnderThreshold(t *testing.T) {
	path := writeFile(t, validEnvelope)
	old := time.Now().Add(-59 * time.Minute)
	if err := os.Chtimes(path, old, old); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
	if !newValidator().Fresh(path, params(), 1) {
		t.Error("Fresh() = false for a 59m-old snapshot with max age 1h, want true")
	}
}

// ── Envelope shape ─────────────────────────────────────────────────────────

func TestFresh_MalformedJSON(t *testing.T) {
	path := writeFile(t, `{"definitely": "not an envelope`)
	if newValidator().Fresh(path, params(), 1) {
		t.Error("Fresh() = true for malformed JSON, want false")
	}
}

func TestFresh_NotAnArray(t *testing.T) {
	path := writeFile(t, `{"data": [], "_metadata": {}}`)
	if newValidator().Fresh(path, params(), 1) {
		t.Error("Fresh() = true for a non-array file, want false")
	}
}

func TestFresh_EmptyDataHalf(t *testing.T) {
	path := writeFile(t, `[
        {"data": []},
        {"_metadata": {"company_id_dict": {"Яндекс": 1740, "Сбер": 3529}, "area": 113, "salary": 1}}
    ]`)
	if newValidator().Fresh(path, params(), 1) {
		t.Error("Fresh() = true with no vacancies in the data half, want false")
	}
}

func TestFresh_MissingMetadataHalf(t *testing.T) {
	path := writeFile(t, `[
        {"data": [{"name": "Backend Dev"}]},
        {"something_else": true}
    ]`)
	if newValidator().Fresh(path, params(), 1) {
		t.Error("Fresh() = true with no metadata half, want false")
	}
}

// ── Fingerprint matching ───────────────────────────────────────────────────

func TestFresh_NilExpectedSkipsFingerprint(t *testing.T) {
	path := writeFile(t, validEnvelope)
	if !newValidator().Fresh(path, nil, 1) {
		t.Error("Fresh() = false with nil expected params, want true")
	}
}

func TestFresh_AreaMismatch(t *testing.T) {
	path := writeFile(t, validEnvelope)
	p := params()
	p.Area = 1
	if newValidator().Fresh(path, p, 1) {
		t.Error("Fresh() = true for a different area, want false")
	}
}

func TestFresh_SalaryFilterMismatch(t *testing.T) {
	path := writeFile(t, validEnvelope)
	p := params()
	p.OnlySalary = 0
	if newValidator().Fresh(path, p, 1) {
		t.Error("Fresh() = true for a different salary filter, want false")
	}
}

func TestFresh_EmployerSetMismatch(t *testing.T) {
	path := writeFile(t, validEnvelope)
	p := params()
	p.Employers = map[string]int{"Яндекс": 1740}
	if newValidator().Fresh(path, p, 1) {
		t.Error("Fresh() = true for a different employer set, want false")
	}
}

func TestFresh_EmployerIDMismatch(t *testing.T) {
	path := writeFile(t, validEnvelope)
	p := params()
	p.Employers = map[string]int{"Яндекс": 1740, "Сбер": 9999}
	if newValidator().Fresh(path, p, 1) {
		t.Error("Fresh() = true for a changed employer id, want false")
	}
}
