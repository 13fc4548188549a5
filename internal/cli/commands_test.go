package cli

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/evcraddock/prospector/internal/auth"
	"github.com/evcraddock/prospector/internal/company"
	"github.com/evcraddock/prospector/internal/db"
	"github.com/evcraddock/prospector/internal/web"
)

const seedCSV = `REGION,DEPARTEMENT,SIZE,SECTEUR_D_ACTIVITE,INDUSTRIE,NOM,CREATION,VILLE,SITE_INTERNET,LINKEDIN_URL,COMMENTAIRES,LON,LAT
Bretagne,Finistère,10-49,Industrie,Agroalimentaire,Breizh Conserves,1998,Quimper,https://conserves.bzh,,,-4.102,47.996
Bretagne,Finistère,10-49,Services,Conseil,Iroise Conseil,2012,Brest,,,,,
Normandie,Manche,1-9,Industrie,Agroalimentaire,Breizh Conserves,2005,Cherbourg,,,,"-1,616","49,639"
`

// isolate points HOME and the secrets file at a temp dir and returns a
// database path inside it.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("PROSPECTOR_SECRETS", filepath.Join(home, "missing-secrets.yaml"))
	for _, k := range []string{"PROSPECTOR_DB", "PROSPECTOR_DRIVER", "PROSPECTOR_TABLE", "PROSPECTOR_SNOWFLAKE_ACCOUNT"} {
		t.Setenv(k, "")
	}
	return filepath.Join(home, "prospector.db")
}

// seedDB imports seedCSV through the import command.
func seedDB(t *testing.T, dbPath string) {
	t.Helper()
	csvPath := filepath.Join(t.TempDir(), "seed.csv")
	if err := os.WriteFile(csvPath, []byte(seedCSV), 0o600); err != nil {
		t.Fatalf("write seed: %v", err)
	}
	if _, err := executeCommand("import", csvPath, "--db", dbPath); err != nil {
		t.Fatalf("import: %v", err)
	}
}

func TestImportAndExport(t *testing.T) {
	dbPath := isolate(t)
	seedDB(t, dbPath)

	out := filepath.Join(t.TempDir(), "entreprises.csv")
	_, err := executeCommand("export", "--db", dbPath,
		"--region", "Bretagne", "--department", "Finistère", "--size", "10-49", "--sector", "Services",
		"-o", out)
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	want := "NOM,CREATION,VILLE,SITE_INTERNET,LINKEDIN_URL,COMMENTAIRES\nIroise Conseil,2012,Brest,,,\n"
	if string(data) != want {
		t.Errorf("export = %q, want %q", data, want)
	}
}

func TestImportDecimalComma(t *testing.T) {
	dbPath := isolate(t)
	seedDB(t, dbPath)

	d, err := db.Open(dbPath)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer closeDB(d)

	matches, err := company.NewRepository(d, "COMPANIES").Get(context.Background(), "Breizh Conserves", "Cherbourg")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(matches) != 1 || matches[0].Lat == nil || *matches[0].Lat != 49.639 {
		t.Errorf("matches = %+v", matches)
	}
}

func TestImportRejectsBadFile(t *testing.T) {
	dbPath := isolate(t)
	csvPath := filepath.Join(t.TempDir(), "bad.csv")
	if err := os.WriteFile(csvPath, []byte("NOM,COULEUR\nA,bleu\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	if _, err := executeCommand("import", csvPath, "--db", dbPath); err == nil {
		t.Fatal("expected error for unknown column")
	}
}

func TestSearchRequiresCompleteFilter(t *testing.T) {
	dbPath := isolate(t)
	seedDB(t, dbPath)

	_, err := executeCommand("search", "--db", dbPath, "--region", "Bretagne", "--department", "Finistère", "--size", "10-49")
	if !errors.Is(err, company.ErrIncompleteFilter) {
		t.Errorf("err = %v, want ErrIncompleteFilter", err)
	}
}

func TestSearchAndMapSucceed(t *testing.T) {
	dbPath := isolate(t)
	seedDB(t, dbPath)

	args := []string{"--db", dbPath, "--region", "Bretagne", "--department", "Finistère", "--size", "10-49", "--sector", "Industrie"}
	for _, cmd := range []string{"search", "map"} {
		if _, err := executeCommand(append([]string{cmd}, args...)...); err != nil {
			t.Errorf("%s: %v", cmd, err)
		}
	}
}

func TestMapRemoteUsesMapEndpoint(t *testing.T) {
	dbPath := isolate(t)
	seedDB(t, dbPath)

	d, err := db.Open(dbPath)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer closeDB(d)

	srv, err := web.NewServer(company.NewRepository(d, "COMPANIES"), auth.NewAPIKeyStore(d), nil)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}

	var mu sync.Mutex
	var paths []string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		paths = append(paths, r.URL.Path)
		mu.Unlock()
		srv.ServeHTTP(w, r)
	}))
	defer ts.Close()

	t.Setenv("PROSPECTOR_SERVER_URL", ts.URL)

	_, err = executeCommand("map", "--remote",
		"--region", "Bretagne", "--department", "Finistère", "--size", "10-49", "--sector", "Industrie")
	if err != nil {
		t.Fatalf("map: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(paths) != 1 || paths[0] != "/api/map" {
		t.Errorf("requested paths = %v, want [/api/map]", paths)
	}
}

func TestFilterFlagsValidation(t *testing.T) {
	tests := []struct {
		name string
		ff   filterFlags
	}{
		{"department without region", filterFlags{department: "Finistère"}},
		{"size without department", filterFlags{region: "Bretagne", sizes: []string{"1-9"}}},
		{"sector without size", filterFlags{region: "Bretagne", department: "Finistère", sector: "Industrie"}},
		{"industry without sector", filterFlags{region: "Bretagne", department: "Finistère", sizes: []string{"1-9"}, industry: "Naval"}},
		{"inverted years", filterFlags{minYear: 2010, maxYear: 2000}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.ff.filter(); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestFilterFlagsBuildFilter(t *testing.T) {
	ff := filterFlags{
		region:     "Bretagne",
		department: "Finistère",
		sizes:      []string{"1-9", "", "10-49"},
		sector:     "Industrie",
		minYear:    1990,
	}

	f, err := ff.searchFilter()
	if err != nil {
		t.Fatalf("filter: %v", err)
	}
	if len(f.Sizes) != 2 {
		t.Errorf("sizes = %v, want blanks dropped", f.Sizes)
	}
	if f.MinYear == nil || *f.MinYear != 1990 {
		t.Errorf("min year = %v", f.MinYear)
	}
	if f.MaxYear != nil {
		t.Errorf("max year = %v, want nil", *f.MaxYear)
	}
}

func TestOptionsArgs(t *testing.T) {
	dbPath := isolate(t)
	seedDB(t, dbPath)

	tests := []struct {
		name    string
		args    []string
		wantErr bool
	}{
		{"no kind", []string{"options"}, true},
		{"unknown kind", []string{"options", "colors"}, true},
		{"regions", []string{"options", "regions"}, false},
		{"departments need region", []string{"options", "departments"}, true},
		{"departments", []string{"options", "departments", "--region", "Bretagne"}, false},
		{"sectors need sizes", []string{"options", "sectors", "--region", "Bretagne", "--department", "Finistère"}, true},
		{"years", []string{"options", "years"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := executeCommand(append(tt.args, "--db", dbPath)...)
			if (err != nil) != tt.wantErr {
				t.Errorf("err = %v, wantErr = %v", err, tt.wantErr)
			}
		})
	}
}

func TestKeysLifecycle(t *testing.T) {
	dbPath := isolate(t)

	if _, err := executeCommand("keys", "create", "laptop", "--db", dbPath); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := executeCommand("keys", "list", "--db", dbPath); err != nil {
		t.Fatalf("list: %v", err)
	}

	d, err := db.Open(dbPath)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	keys, err := auth.NewAPIKeyStore(d).List()
	closeDB(d)
	if err != nil {
		t.Fatalf("list store: %v", err)
	}
	if len(keys) != 1 || keys[0].Name != "laptop" {
		t.Fatalf("keys = %+v", keys)
	}

	if _, err := executeCommand("keys", "delete", "abc", "--db", dbPath); err == nil {
		t.Error("expected error for non-numeric id")
	}
	if _, err := executeCommand("keys", "delete", "1", "--db", dbPath); err != nil {
		t.Errorf("delete: %v", err)
	}
}

func TestCommentThroughServer(t *testing.T) {
	dbPath := isolate(t)
	seedDB(t, dbPath)

	d, err := db.Open(dbPath)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer closeDB(d)

	repo := company.NewRepository(d, "COMPANIES")
	keys := auth.NewAPIKeyStore(d)
	rawKey, _, err := keys.Create("cli")
	if err != nil {
		t.Fatalf("create key: %v", err)
	}
	srv, err := web.NewServer(repo, keys, nil)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	ts := httptest.NewServer(srv)
	defer ts.Close()

	t.Setenv("PROSPECTOR_SERVER_URL", ts.URL)
	t.Setenv("PROSPECTOR_API_KEY", rawKey)

	if _, err := executeCommand("comment", "Iroise", "Conseil", "--city", "Brest"); err == nil {
		t.Error("expected not found: the name is the first argument only")
	}
	if _, err := executeCommand("comment", "Iroise Conseil", "À", "rappeler"); err != nil {
		t.Fatalf("comment: %v", err)
	}
	if _, err := executeCommand("comment", "Breizh Conserves", "x"); err == nil {
		t.Error("expected ambiguity error without --city")
	}
	if _, err := executeCommand("comment", "Breizh Conserves", "Client", "--city", "Quimper"); err != nil {
		t.Fatalf("comment with city: %v", err)
	}

	matches, err := repo.Get(context.Background(), "Iroise Conseil", "")
	if err != nil || len(matches) != 1 {
		t.Fatalf("get: %v %+v", err, matches)
	}
	if matches[0].CommentText() != "À rappeler" {
		t.Errorf("comment = %q, want %q", matches[0].CommentText(), "À rappeler")
	}
}

func TestCommentRequiresNameAndText(t *testing.T) {
	for _, args := range [][]string{{"comment"}, {"comment", "Iroise Conseil"}} {
		if _, err := executeCommand(args...); err == nil {
			t.Errorf("%v: expected error", args)
		}
	}
}

func TestAskRequiresQuestion(t *testing.T) {
	if _, err := executeCommand("ask"); err == nil {
		t.Fatal("expected error without a question")
	}
}

func TestRenderMarkdownPlain(t *testing.T) {
	if got := renderMarkdown("**Quatre** entreprises", true); got != "**Quatre** entreprises\n" {
		t.Errorf("plain = %q", got)
	}
	if got := renderMarkdown("", false); got != "\n" {
		t.Errorf("empty = %q", got)
	}
}
