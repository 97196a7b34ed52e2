package snapshot_test

import (
	"errors"
	"os"
	"testing"

	"hhsync/internal/model"
	"hhsync/internal/snapshot"
	"hhsync/pkg/logging"
)

func intp(v int) *int { return &v }

func sampleSnapshot() *model.Snapshot {
	return &model.Snapshot{
		Vacancies: []model.Vacancy{
			{
				Name:         "Backend Dev",
				AlternateURL: "https://hh.ru/vacancy/1",
				Employer:     model.Employer{ID: "1740"},
				Salary:       &model.Salary{From: intp(200000), To: intp(300000), Currency: "RUR"},
			},
			{
				Name:         "Intern",
				AlternateURL: "https://hh.ru/vacancy/2",
				Employer:     model.Employer{ID: "3529"},
				Salary:       nil,
			},
		},
		Meta: model.FetchParams{
			Employers:  map[string]int{"Яндекс": 1740, "Сбер": 3529},
			Area:       113,
			OnlySalary: 1,
		},
	}
}

func TestWriteRead_RoundTrip(t *testing.T) {
	store := snapshot.New(t.TempDir(), logging.Nop())

	if err := store.Write(sampleSnapshot()); err != nil {
		t.Fatalf("Write() error: %v", err)
	}

	got, err := store.Read()
	if err != nil {
		t.Fatalf("Read() error: %v", err)
	}

	if len(got.Vacancies) != 2 {
		t.Fatalf("Read() returned %d vacancies, want 2", len(got.Vacancies))
	}
	if got.Vacancies[0].Name != "Backend Dev" || got.Vacancies[1].Name != "Intern" {
		t.Errorf("vacancy order not preserved: %q, %q", got.Vacancies[0].Name, got.Vacancies[1].Name)
	}
	if got.Vacancies[1].Salary != nil {
		t.Error("nil salary block not preserved through the round trip")
	}
	if s := got.Vacancies[0].Salary; s == nil || *s.From != 200000 || *s.To != 300000 || s.Currency != "RUR" {
		t.Errorf("salary block mangled: %+v", s)
	}
	if !got.Meta.Equal(sampleSnapshot().Meta) {
		t.Errorf("metadata mangled: %+v", got.Meta)
	}
}

func TestWrite_Overwrites(t *testing.T) {
	store := snapshot.New(t.TempDir(), logging.Nop())

	if err := store.Write(sampleSnapshot()); err != nil {
		t.Fatalf("first Write() error: %v", err)
	}

	smaller := sampleSnapshot()
	smaller.Vacancies = smaller.Vacancies[:1]
	if err := store.Write(smaller); err != nil {
		t.Fatalf("second Write() error: %v", err)
	}

	got, err := store.Read()
	if err != nil {
		t.Fatalf("Read() error: %v", err)
	}
	if len(got.Vacancies) != 1 {
		t.Errorf("Read() returned %d vacancies after overwrite, want 1", len(got.Vacancies))
	}
}

func TestRead_MissingFile(t *testing.T) {
	store := snapshot.New(t.TempDir(), logging.Nop())
	if _, err := store.Read(); err == nil {
		t.Error("Read() on a missing file returned nil error")
	}
}

func TestRead_CorruptContent(t *testing.T) {
	for name, content := range map[string]string{
		"not json":     `hello`,
		"not an array": `{"data": []}`,
		"one element":  `[{"data": []}]`,
		"bad halves":   `[42, 43]`,
	} {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			store := snapshot.New(dir, logging.Nop())
			if err := os.WriteFile(store.Path(), []byte(content), 0o644); err != nil {
				t.Fatalf("write fixture: %v", err)
			}

			_, err := store.Read()
			if !errors.Is(err, snapshot.ErrCorruptSnapshot) {
				t.Errorf("Read() error = %v, want ErrCorruptSnapshot", err)
			}
		})
	}
}
