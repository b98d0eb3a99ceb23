package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"fintrack/internal/core"
	applog "fintrack/internal/log"
	"fintrack/internal/query"
	"fintrack/internal/services"
	"fintrack/internal/storage"
)

type testEnv struct {
	srv  *Server
	repo *storage.CSVRepository
	path string
}

func newTestEnv(t *testing.T, rateLimit int) *testEnv {
	t.Helper()
	path := filepath.Join(t.TempDir(), "transactions.csv")
	repo := storage.NewCSVRepository(path)
	now := func() time.Time { return time.Date(2024, 3, 9, 10, 0, 0, 0, time.UTC) }
	svc := services.NewTransactionService(repo, nil, services.WithClock(now))

	srv := NewServer(Options{
		Addr:               ":0",
		RateLimitPerMinute: rateLimit,
		Logger:             applog.New(applog.Config{Output: io.Discard}),
		Ready: func(ctx context.Context) error {
			_, err := repo.ReadAll(ctx)
			return err
		},
	}, svc, query.NewEngine(repo))
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return &testEnv{srv: srv, repo: repo, path: path}
}

func (e *testEnv) do(t *testing.T, method, target string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req := httptest.NewRequest(method, target, body)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	rr := httptest.NewRecorder()
	e.srv.Handler.ServeHTTP(rr, req)
	return rr
}

func (e *testEnv) seed(t *testing.T, content string) {
	t.Helper()
	if err := os.WriteFile(e.path, []byte(content), 0644); err != nil {
		t.Fatalf("seed: %v", err)
	}
}

func decode(t *testing.T, rr *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rr.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
}

func notification(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var triggers map[string]map[string]any
	if err := json.Unmarshal([]byte(rr.Header().Get("HX-Trigger")), &triggers); err != nil {
		t.Fatalf("HX-Trigger %q: %v", rr.Header().Get("HX-Trigger"), err)
	}
	n, ok := triggers["show-notification"]
	if !ok {
		t.Fatalf("no show-notification trigger in %v", triggers)
	}
	return n
}

func TestHealthAndReady(t *testing.T) {
	env := newTestEnv(t, 0)

	for _, path := range []string{"/", "/healthz", "/readyz"} {
		rr := env.do(t, http.MethodGet, path, nil)
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d", path, rr.Code)
		}
		if rr.Header().Get("X-Request-ID") == "" {
			t.Errorf("%s missing X-Request-ID", path)
		}
		if rr.Header().Get("X-Content-Type-Options") != "nosniff" {
			t.Errorf("%s missing security headers", path)
		}
	}

	if rr := env.do(t, http.MethodGet, "/nope", nil); rr.Code != http.StatusNotFound {
		t.Errorf("unknown path status=%d", rr.Code)
	}
}

func TestReadyFailsWhenFileUnreadable(t *testing.T) {
	srv := NewServer(Options{
		Logger: applog.New(applog.Config{Output: io.Discard}),
		Ready:  func(context.Context) error { return errors.New("disk gone") },
	}, nil, nil)
	defer srv.Shutdown(context.Background())

	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status=%d, want 503", rr.Code)
	}
}

func TestAddTransaction(t *testing.T) {
	env := newTestEnv(t, 0)

	rr := env.do(t, http.MethodPost, "/add", url.Values{
		"type": {"income"}, "category": {"Salary"}, "amount": {"2000"},
		"payment_method": {"Bank"}, "description": {"January"},
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body)
	}
	var tx core.Transaction
	decode(t, rr, &tx)
	if tx.ID != "1" || tx.Date != "2024-03-09" || tx.Type != core.Income || tx.Amount != 2000 {
		t.Errorf("unexpected transaction %+v", tx)
	}
	if n := notification(t, rr); n["type"] != "success" || n["message"] != "Transaction added" {
		t.Errorf("notification = %v", n)
	}

	rows, err := env.repo.ReadAll(context.Background())
	if err != nil || len(rows) != 1 {
		t.Fatalf("rows=%v err=%v", rows, err)
	}
}

func TestAddTransactionJSON(t *testing.T) {
	env := newTestEnv(t, 0)

	req := httptest.NewRequest(http.MethodPost, "/add",
		strings.NewReader(`{"date":"2024-01-05","type":"Expense","category":"Food","amount":12.5}`))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	env.srv.Handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body)
	}
	var tx core.Transaction
	decode(t, rr, &tx)
	if tx.Amount != 12.5 || tx.Category != "Food" {
		t.Errorf("unexpected transaction %+v", tx)
	}
}

func TestAddTransactionValidation(t *testing.T) {
	tests := []struct {
		name    string
		form    url.Values
		field   string
		message string
	}{
		{"bad date", url.Values{"date": {"05/01/2024"}, "type": {"Income"}, "amount": {"1"}}, "date", "Invalid date format. Use YYYY-MM-DD"},
		{"bad type", url.Values{"type": {"Transfer"}, "amount": {"1"}}, "type", "Type must be 'Income' or 'Expense'"},
		{"bad amount", url.Values{"type": {"Expense"}, "amount": {"abc"}}, "amount", "Invalid amount"},
		{"empty amount", url.Values{"type": {"Expense"}, "amount": {""}}, "amount", "Invalid amount"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, 0)
			rr := env.do(t, http.MethodPost, "/add", tt.form)
			if rr.Code != http.StatusUnprocessableEntity {
				t.Fatalf("status=%d, want 422", rr.Code)
			}
			var body errorBody
			decode(t, rr, &body)
			if body.Field != tt.field || body.Error != tt.message {
				t.Errorf("body = %+v", body)
			}
			if n := notification(t, rr); n["type"] != "error" {
				t.Errorf("notification = %v", n)
			}
			rows, _ := env.repo.ReadAll(context.Background())
			if len(rows) != 0 {
				t.Errorf("invalid input written: %v", rows)
			}
		})
	}
}

func TestAddTransactionWithoutAmount(t *testing.T) {
	env := newTestEnv(t, 0)

	rr := env.do(t, http.MethodPost, "/add", url.Values{"type": {"expense"}, "category": {"Food"}})
	if rr.Code != http.StatusCreated {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body)
	}
	var tx core.Transaction
	decode(t, rr, &tx)
	if tx.Amount != 0 || tx.Type != core.Expense {
		t.Errorf("unexpected transaction %+v", tx)
	}

	rows, _ := env.repo.ReadAll(context.Background())
	if len(rows) != 1 || rows[0][core.ColAmount] != "0" {
		t.Errorf("rows = %v", rows)
	}
}

func TestAddRequiresPOST(t *testing.T) {
	env := newTestEnv(t, 0)
	if rr := env.do(t, http.MethodGet, "/add", nil); rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status=%d, want 405", rr.Code)
	}
}

func TestListTransactions(t *testing.T) {
	env := newTestEnv(t, 0)

	rr := env.do(t, http.MethodGet, "/api/transactions", nil)
	if rr.Code != http.StatusOK || strings.TrimSpace(rr.Body.String()) != "[]" {
		t.Fatalf("empty list: status=%d body=%q", rr.Code, rr.Body)
	}

	env.seed(t, "ID,Date,Type,Category,Amount,PaymentMethod,Description\n"+
		"1,2024-01-05,Income,Salary,2000,Bank,Jan\n"+
		"2,2024-01-06,Expense,Food,12.5,Card,\n")
	rr = env.do(t, http.MethodGet, "/api/transactions", nil)
	var txs []core.Transaction
	decode(t, rr, &txs)
	if len(txs) != 2 || txs[1].Amount != 12.5 || txs[0].PaymentMethod != "Bank" {
		t.Errorf("unexpected list %+v", txs)
	}

	env.seed(t, "ID,Date,Type,Category,Amount,PaymentMethod,Description\n1,2024-01-05,Income,Salary,lots,Bank,Jan\n")
	if rr := env.do(t, http.MethodGet, "/api/transactions", nil); rr.Code != http.StatusInternalServerError {
		t.Errorf("malformed file status=%d, want 500", rr.Code)
	}
}

func TestUpdateTransaction(t *testing.T) {
	env := newTestEnv(t, 0)
	env.seed(t, "ID,Date,Type,Category,Amount,PaymentMethod,Description\n"+
		"1,2024-01-05,Income,Salary,2000,Bank,Jan\n")

	rr := env.do(t, http.MethodPost, "/update/1", url.Values{"amount": {"2100"}, "description": {"Raise"}})
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body)
	}
	var res updateResponse
	decode(t, rr, &res)
	if res.Row[core.ColAmount] != "2100" || res.Row[core.ColDescription] != "Raise" || len(res.Warnings) != 0 {
		t.Errorf("unexpected result %+v", res)
	}
	if n := notification(t, rr); n["message"] != "Transaction updated" {
		t.Errorf("notification = %v", n)
	}

	rr = env.do(t, http.MethodPost, "/update/1", url.Values{"date": {"tomorrow"}})
	decode(t, rr, &res)
	if rr.Code != http.StatusOK || len(res.Warnings) != 1 || res.Row[core.ColDate] != "2024-01-05" {
		t.Errorf("status=%d result=%+v", rr.Code, res)
	}
	if n := notification(t, rr); n["type"] != "warning" || n["message"] != services.WarnInvalidDate {
		t.Errorf("notification = %v", n)
	}
}

func TestUpdateUnknownID(t *testing.T) {
	env := newTestEnv(t, 0)
	content := "ID,Date,Type,Category,Amount,PaymentMethod,Description\n1,2024-01-05,Income,Salary,2000,Bank,Jan\n"
	env.seed(t, content)

	for _, target := range []string{"/update/9", "/update/abc", "/update/01", "/update/+1"} {
		rr := env.do(t, http.MethodPost, target, url.Values{"amount": {"1"}})
		if rr.Code != http.StatusNotFound {
			t.Fatalf("%s status=%d, want 404", target, rr.Code)
		}
		var body errorBody
		decode(t, rr, &body)
		if body.Error != "Transaction not found" {
			t.Errorf("%s body = %+v", target, body)
		}
	}

	got, _ := os.ReadFile(env.path)
	if string(got) != content {
		t.Errorf("file changed:\n%s", got)
	}
}

func TestDeleteTransaction(t *testing.T) {
	env := newTestEnv(t, 0)
	env.seed(t, "ID,Date,Type,Category,Amount,PaymentMethod,Description\n"+
		"1,2024-01-05,Income,Salary,2000,Bank,Jan\n"+
		"2,2024-01-06,Expense,Food,12.5,Card,\n")

	rr := env.do(t, http.MethodPost, "/delete/1", nil)
	var res deleteResponse
	decode(t, rr, &res)
	if rr.Code != http.StatusOK || !res.Removed || res.ID != "1" {
		t.Fatalf("status=%d result=%+v", rr.Code, res)
	}
	if n := notification(t, rr); n["message"] != "Transaction deleted" {
		t.Errorf("notification = %v", n)
	}

	rr = env.do(t, http.MethodPost, "/delete/1", nil)
	decode(t, rr, &res)
	if rr.Code != http.StatusOK || res.Removed {
		t.Errorf("second delete status=%d result=%+v", rr.Code, res)
	}

	rr = env.do(t, http.MethodPost, "/delete/xyz", nil)
	decode(t, rr, &res)
	if rr.Code != http.StatusOK || res.Removed || res.ID != "xyz" {
		t.Errorf("non-numeric delete status=%d result=%+v", rr.Code, res)
	}

	rows, _ := env.repo.ReadAll(context.Background())
	if len(rows) != 1 || rows[0][core.ColID] != "2" {
		t.Errorf("remaining rows = %v", rows)
	}
}

func TestDeleteMatchesIDText(t *testing.T) {
	env := newTestEnv(t, 0)
	content := "ID,Date,Type,Category,Amount,PaymentMethod,Description\n5,2024-01-05,Income,Salary,2000,Bank,Jan\n"
	env.seed(t, content)

	for _, target := range []string{"/delete/05", "/delete/+5", "/delete/%205"} {
		rr := env.do(t, http.MethodPost, target, nil)
		var res deleteResponse
		decode(t, rr, &res)
		if rr.Code != http.StatusOK || res.Removed {
			t.Errorf("%s status=%d result=%+v", target, rr.Code, res)
		}
	}

	got, _ := os.ReadFile(env.path)
	if string(got) != content {
		t.Errorf("file changed:\n%s", got)
	}
}

func TestSummary(t *testing.T) {
	env := newTestEnv(t, 0)
	env.seed(t, "ID,Date,Type,Category,Amount,PaymentMethod,Description\n"+
		"1,2024-01-05,Income,Salary,2000,Bank,Jan\n"+
		"2,2024-01-06,Expense,Food,12.5,Card,\n"+
		"3,2024-01-07,Expense,Rent,800,Bank,\n"+
		"4,2024-01-08,Expense,Food,bad,Card,\n")

	rr := env.do(t, http.MethodGet, "/summary", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	var res summaryResponse
	decode(t, rr, &res)
	if res.TotalIncome != 2000 || res.TotalExpense != 812.5 || res.Balance != 1187.5 {
		t.Errorf("totals = %+v", res.Summary)
	}
	if len(res.Categories) != 2 || res.Categories[0].Name != "Rent" {
		t.Errorf("categories = %+v", res.Categories)
	}
	if len(res.Skipped) != 1 {
		t.Errorf("skipped = %+v", res.Skipped)
	}
}

func TestSearch(t *testing.T) {
	env := newTestEnv(t, 0)
	env.seed(t, "ID,Date,Type,Category,Amount,PaymentMethod,Description\n"+
		"1,2024-01-05,Income,Salary,2000,Bank,Jan\n"+
		"2,2024-01-06,Expense,Food,12.5,Card,\n"+
		"3,2024-01-06,Expense,food,40,Cash,\n")

	tests := []struct {
		name   string
		method string
		target string
		form   url.Values
		status int
		want   []string
	}{
		{"empty GET", http.MethodGet, "/search", nil, http.StatusOK, nil},
		{"by date", http.MethodPost, "/search", url.Values{"mode": {"date"}, "date_search": {"2024-01-06"}}, http.StatusOK, []string{"2", "3"}},
		{"by category query", http.MethodGet, "/search?mode=category&category_search=FOOD", nil, http.StatusOK, []string{"2", "3"}},
		{"by amount", http.MethodPost, "/search", url.Values{"mode": {"amount"}, "min_amt": {"10"}, "max_amt": {"50"}}, http.StatusOK, []string{"2", "3"}},
		{"absent max is zero", http.MethodPost, "/search", url.Values{"mode": {"amount"}, "min_amt": {"0"}}, http.StatusOK, nil},
		{"blank max rejected", http.MethodPost, "/search", url.Values{"mode": {"amount"}, "min_amt": {"0"}, "max_amt": {""}}, http.StatusUnprocessableEntity, nil},
		{"unknown mode", http.MethodPost, "/search", url.Values{"mode": {"weekday"}}, http.StatusUnprocessableEntity, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := env.do(t, tt.method, tt.target, tt.form)
			if rr.Code != tt.status {
				t.Fatalf("status=%d, want %d: %s", rr.Code, tt.status, rr.Body)
			}
			if tt.status != http.StatusOK {
				return
			}
			var res searchResponse
			decode(t, rr, &res)
			if len(res.Results) != len(tt.want) {
				t.Fatalf("results = %v, want ids %v", res.Results, tt.want)
			}
			for i, id := range tt.want {
				if res.Results[i][core.ColID] != id {
					t.Errorf("result %d id = %s, want %s", i, res.Results[i][core.ColID], id)
				}
			}
		})
	}
}

func TestExport(t *testing.T) {
	env := newTestEnv(t, 0)
	env.seed(t, "ID,Date,Type,Category,Amount,PaymentMethod,Description\n"+
		"1,2024-01-05,Income,Salary,2000,Bank,Jan\n")

	rr := env.do(t, http.MethodGet, "/export.xlsx", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body)
	}
	if !strings.Contains(rr.Header().Get("Content-Disposition"), "transactions.xlsx") {
		t.Errorf("Content-Disposition = %q", rr.Header().Get("Content-Disposition"))
	}

	f, err := excelize.OpenReader(rr.Body)
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()
	v, err := f.GetCellValue("Transactions", "D2")
	if err != nil || v != "Salary" {
		t.Errorf("D2 = %q, %v", v, err)
	}
}

func TestRateLimitOnlyAppliesToPOST(t *testing.T) {
	env := newTestEnv(t, 2)
	form := url.Values{"type": {"Expense"}, "amount": {"1"}}

	for i := 0; i < 2; i++ {
		if rr := env.do(t, http.MethodPost, "/add", form); rr.Code != http.StatusCreated {
			t.Fatalf("request %d status=%d", i+1, rr.Code)
		}
	}
	rr := env.do(t, http.MethodPost, "/add", form)
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("status=%d, want 429", rr.Code)
	}
	if rr.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After")
	}

	if rr := env.do(t, http.MethodGet, "/summary", nil); rr.Code != http.StatusOK {
		t.Errorf("GET limited: %d", rr.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	env := newTestEnv(t, 0)
	req := httptest.NewRequest(http.MethodOptions, "/add", nil)
	req.Header.Set("Origin", "http://example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rr := httptest.NewRecorder()
	env.srv.Handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("status=%d, want 204", rr.Code)
	}
	if rr.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Errorf("Allow-Origin = %q", rr.Header().Get("Access-Control-Allow-Origin"))
	}
}
