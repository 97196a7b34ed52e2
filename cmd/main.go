// hhsync — on-demand batch synchronization of hh.ru vacancies for a
// fixed employer set: fetch (or reuse a fresh snapshot), load into
// PostgreSQL, answer aggregate and search queries.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/google/uuid"

	"hhsync/internal/cache"
	"hhsync/internal/config"
	"hhsync/internal/db"
	"hhsync/internal/model"
	"hhsync/internal/scraper"
	"hhsync/internal/snapshot"
	"hhsync/pkg/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\nCheck the environment and try again.\n", err)
		os.Exit(1)
	}

	log := logging.New(cfg.LogLevel).With("run_id", uuid.NewString())
	defer func() { _ = log.Sync() }()

	ctx := context.Background()
	in := bufio.NewReader(os.Stdin)

	fmt.Println("Welcome! hhsync collects hh.ru vacancies for:")
	fmt.Println(strings.Join(employerNames(cfg.Employers), ", "))
	keyword := prompt(in, "Keyword to search vacancy titles (Enter for the full listing): ")

	store := snapshot.New(cfg.DataDir, log)
	validator := cache.NewValidator(log)
	params := cfg.FetchParams()

	fresh := validator.Fresh(store.Path(), &params, cfg.CacheExpireHours)
	refresh := !fresh
	if fresh {
		answer := prompt(in, fmt.Sprintf(
			"Found a data file younger than %dh.\nEnter — reuse it, anything else + Enter — refresh: ",
			cfg.CacheExpireHours))
		refresh = answer != ""
	}

	var snap *model.Snapshot
	var fetcher scraper.Client = scraper.NewHHFetcher(
		cfg.APIBaseURL, cfg.UserAgent, cfg.PerPage, cfg.DefaultCurrency, store, log)

	if refresh {
		log.Info("refreshing snapshot")
		snap, err = fetcher.Fetch(ctx, params, cfg.Pages)
		if err != nil {
			log.Error("fetch failed", "err", err)
			fmt.Fprintln(os.Stderr, "Could not fetch data from hh.ru. Check the connection and try again.")
			os.Exit(1)
		}
	} else {
		snap, err = store.Read()
		if err != nil {
			log.Error("snapshot read failed", "err", err)
			fmt.Fprintln(os.Stderr, "The data file is unreadable. Run the program again to refetch.")
			os.Exit(1)
		}
	}

	dbURL, err := db.EnsureDatabase(ctx, cfg.DatabaseURL, cfg.DatabaseName)
	if err != nil {
		log.Error("ensure database failed", "err", err)
		fmt.Fprintln(os.Stderr, "Could not prepare the database. Check DATABASE_URL and try again.")
		os.Exit(1)
	}

	pool, err := db.Connect(ctx, dbURL)
	if err != nil {
		log.Error("database connect failed", "err", err)
		fmt.Fprintln(os.Stderr, "Could not connect to the database. Check DATABASE_URL and try again.")
		os.Exit(1)
	}
	manager := db.NewManager(pool, cfg.DefaultCurrency, log)
	defer manager.Close()

	if err := manager.CreateSchema(ctx); err != nil {
		log.Error("schema creation failed", "err", err)
		os.Exit(1)
	}
	if err := manager.Load(ctx, snap); err != nil {
		log.Error("load failed", "err", err)
		os.Exit(1)
	}

	fmt.Println("\nCompanies and vacancy counts:")
	for _, c := range manager.CompaniesAndCounts(ctx) {
		fmt.Printf("%s: %d vacancies\n", c.Name, c.VacanciesCount)
	}

	fmt.Println("\nAverage salary:")
	fmt.Println(manager.AverageSalary(ctx))

	fmt.Println("\nVacancies above the average salary:")
	printVacancies(manager.AboveAverage(ctx))

	if keyword == "" {
		fmt.Println("\nAll vacancies:")
	} else {
		fmt.Printf("\nVacancies matching %q:\n", keyword)
	}
	printVacancies(manager.SearchByKeyword(ctx, keyword))
}

func prompt(in *bufio.Reader, text string) string {
	fmt.Print(text)
	line, _ := in.ReadString('\n')
	return strings.TrimSpace(line)
}

func employerNames(employers map[string]int) []string {
	names := make([]string, 0, len(employers))
	for name := range employers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func printVacancies(views []model.VacancyView) {
	for _, v := range views {
		fmt.Printf("Company: %s\nTitle: %s\nSalary: %s-%s %s\nURL: %s\n\n",
			v.Company, v.Title, formatBound(v.SalaryFrom), formatBound(v.SalaryTo), v.Currency, v.URL)
	}
}

func formatBound(v *int) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprint(*v)
}
