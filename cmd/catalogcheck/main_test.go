package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"storefront/internal/adapters/catalogfile"
)

func runCheck(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeCatalog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestCatalogCheck_Embedded(t *testing.T) {
	out, err := runCheck(t)
	if err != nil {
		t.Fatalf("embedded catalog failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "(embedded)") {
		t.Errorf("output = %q", out)
	}
}

func TestCatalogCheck_FileCopyOfEmbedded(t *testing.T) {
	path := writeCatalog(t, string(catalogfile.Embedded()))
	if out, err := runCheck(t, "--quiet", path); err != nil || out != "" {
		t.Errorf("quiet run: err=%v out=%q", err, out)
	}
}

func TestCatalogCheck_Failures(t *testing.T) {
	cases := map[string]string{
		"unknown field": "products:\n  - id: x\n    colour: red\n",
		"missing category": `categories: []
products:
  - id: p1
    slug: a
    name: A
    price: 10
    category: Nada
    category_slug: nada
`,
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			out, err := runCheck(t, writeCatalog(t, content))
			if err == nil {
				t.Fatalf("expected failure, output:\n%s", out)
			}
			if !strings.HasPrefix(out, "FAIL") {
				t.Errorf("output = %q", out)
			}
		})
	}
}

func TestCatalogCheck_MissingFile(t *testing.T) {
	out, err := runCheck(t, filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil || !strings.Contains(out, "FAIL") {
		t.Errorf("err=%v out=%q", err, out)
	}
}
