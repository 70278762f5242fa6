// Command validate checks saved EONET category responses and, optionally, an
// exported workbook. It verifies that every event normalizes, that retained
// rows fall inside the target month, and that the workbook holds exactly the
// retained rows in order.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -responses-dir internal/pipeline/testdata \
//	  -month 2017-10 \
//	  -workbook reports/EONET_data_2017-10.xlsx
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/couchcryptid/eonet-report/internal/domain"
	"github.com/xuri/excelize/v2"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	responsesDir := flag.String("responses-dir", "", "directory containing category_<id>.json responses")
	month := flag.String("month", "", "target month as YYYY-MM")
	categories := flag.String("categories", strings.Join(domain.DefaultCategories, ","), "comma-separated category ids")
	workbook := flag.String("workbook", "", "optional exported workbook to compare against")
	flag.Parse()

	if *responsesDir == "" || *month == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(*responsesDir, *month, strings.Split(*categories, ","), *workbook); code != 0 {
		os.Exit(code)
	}
}

func run(responsesDir, month string, categories []string, workbookPath string) int {
	fmt.Println("=== EONET Report Validation ===")
	fmt.Println()

	if err := domain.ValidateMonth(month); err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		return 1
	}

	responses, err := loadResponses(responsesDir, categories)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load responses: %v\n", err)
		return 1
	}

	res, err := domain.Normalize(responses, month, domain.NormalizeOptions{Policy: domain.SkipOnError})
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: normalize: %v\n", err)
		return 1
	}

	phases := []*phase{
		validateStructure(res),
		validateMonth(responses, month),
		validateLegacyFilter(responses, month, res.Rows),
	}
	if workbookPath != "" {
		phases = append(phases, validateWorkbook(workbookPath, month, res.Rows))
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Events: %d scanned, %d rejected, %d retained for %s\n",
		res.Scanned, len(res.Rejected), len(res.Rows), month)

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// ── Data loading ──

func loadResponses(dir string, categories []string) ([]domain.Response, error) {
	out := make([]domain.Response, 0, len(categories))
	for _, id := range categories {
		id = strings.TrimSpace(id)
		resp, err := loadResponse(filepath.Join(dir, "category_"+id+".json"), id)
		if err != nil {
			return nil, err
		}
		out = append(out, resp)
	}
	return out, nil
}

func loadResponse(path, categoryID string) (domain.Response, error) {
	f, err := os.Open(path)
	if err != nil {
		return domain.Response{}, err
	}
	defer f.Close()
	return domain.DecodeResponse(categoryID, f)
}

// ── Phase 1: every event flattens ──

func validateStructure(res domain.NormalizeResult) *phase {
	p := &phase{name: "Phase 1: Event structure"}
	for _, rej := range res.Rejected {
		p.errorf("%v", rej)
	}
	return p
}

// ── Phase 2: retained rows are in the target month ──

// validateMonth checks each category response on its own. An event filed
// under several categories appears once in every feed it belongs to, so
// duplicates only count within one response.
func validateMonth(responses []domain.Response, month string) *phase {
	p := &phase{name: "Phase 2: Target month"}
	for _, resp := range responses {
		res, err := domain.Normalize([]domain.Response{resp}, month, domain.NormalizeOptions{Policy: domain.SkipOnError})
		if err != nil {
			p.errorf("category %s: normalize: %v", resp.CategoryID, err)
			continue
		}

		seen := make(map[string]bool, len(res.Rows))
		for i, r := range res.Rows {
			if !domain.ExactMonth(r, month) {
				p.errorf("category %s row %d (%s): date %q outside %s", resp.CategoryID, i, r.EventID, r.Date, month)
			}
			if seen[r.EventID] {
				p.errorf("category %s row %d: duplicate event %s", resp.CategoryID, i, r.EventID)
			}
			seen[r.EventID] = true
		}
	}
	return p
}

// ── Phase 3: legacy substring filter agrees with the exact filter ──

func validateLegacyFilter(responses []domain.Response, month string, exact []domain.Row) *phase {
	p := &phase{name: "Phase 3: Legacy filter parity"}
	legacy, err := domain.Normalize(responses, month, domain.NormalizeOptions{
		Filter: domain.SubstringMonth,
		Policy: domain.SkipOnError,
	})
	if err != nil {
		p.errorf("normalize with substring filter: %v", err)
		return p
	}
	if len(legacy.Rows) != len(exact) {
		p.errorf("substring filter retains %d rows, exact filter %d", len(legacy.Rows), len(exact))
	}
	return p
}

// ── Phase 4: workbook matches the retained rows ──

func validateWorkbook(path, month string, rows []domain.Row) *phase {
	p := &phase{name: "Phase 4: Workbook contents"}

	if base := filepath.Base(path); base != domain.ReportFilename(month) {
		p.errorf("workbook name %q, want %q", base, domain.ReportFilename(month))
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		p.errorf("open workbook: %v", err)
		return p
	}
	defer f.Close()

	if sheets := f.GetSheetList(); len(sheets) != 1 || sheets[0] != domain.ReportSheet {
		p.errorf("sheets %v, want [%s]", sheets, domain.ReportSheet)
		return p
	}

	got, err := f.GetRows(domain.ReportSheet)
	if err != nil {
		p.errorf("read sheet: %v", err)
		return p
	}
	if len(got) == 0 {
		p.errorf("sheet is empty")
		return p
	}
	if strings.Join(got[0], ",") != strings.Join(domain.Columns, ",") {
		p.errorf("header %v, want %v", got[0], domain.Columns)
	}
	if len(got)-1 != len(rows) {
		p.errorf("workbook has %d rows, want %d", len(got)-1, len(rows))
		return p
	}

	for i, r := range rows {
		compareRow(p, i, r, got[i+1])
	}
	return p
}

func compareRow(p *phase, i int, want domain.Row, got []string) {
	cell := func(col int) string {
		if col < len(got) {
			return got[col]
		}
		return ""
	}
	if cell(0) != want.EventID {
		p.errorf("row %d: event_id %q, want %q", i, cell(0), want.EventID)
	}
	if cell(5) != strconv.FormatInt(want.CategoryID, 10) {
		p.errorf("row %d (%s): category_id %q, want %d", i, want.EventID, cell(5), want.CategoryID)
	}
	if !strings.HasPrefix(cell(9), want.Date[:min(len(want.Date), 10)]) {
		p.errorf("row %d (%s): date %q does not match %q", i, want.EventID, cell(9), want.Date)
	}
	if strings.ContainsAny(cell(9), "TZ") {
		p.errorf("row %d (%s): date %q not cleaned for display", i, want.EventID, cell(9))
	}
	if want.Closed == nil && cell(4) != "" {
		p.errorf("row %d (%s): closed %q, want empty", i, want.EventID, cell(4))
	}
	if cell(11) != want.Coordinates {
		p.errorf("row %d (%s): coordinates %q, want %q", i, want.EventID, cell(11), want.Coordinates)
	}
}
