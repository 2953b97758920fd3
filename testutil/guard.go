// Package testutil provides helpers that keep package boundaries honest: the
// domain stays free of adapters, and the transport layers reach storage,
// blobs and brokers only through the service.
package testutil

import (
	"go/parser"
	"go/token"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

// AssertNoTransitiveDependency runs `go list -deps` over pattern and fails
// when any listed package satisfies forbidden.
func AssertNoTransitiveDependency(t testing.TB, pattern string, forbidden func(path string) bool, reason string) {
	t.Helper()
	out, err := goListDeps(pattern)
	if err != nil {
		t.Fatalf("go list failed: %v\n%s", err, string(out))
	}
	failIfViolations(t, "transitive dependency", reason, matchLines(string(out), forbidden))
}

// AssertNoDirectImports parses the non-test .go files in dir and fails when
// an import path satisfies forbidden. Build tags are not evaluated.
func AssertNoDirectImports(t testing.TB, dir string, forbidden func(importPath string) bool, reason string) {
	t.Helper()
	viols, err := directImportViolations(dir, forbidden)
	if err != nil {
		t.Fatalf("scan %s: %v", dir, err)
	}
	failIfViolations(t, "direct import", reason, viols)
}

// InternalImportForbidden matches any path below an internal/ tree.
func InternalImportForbidden(path string) bool {
	return strings.Contains(path, "/internal/")
}

// InfraImportForbidden matches the concrete storage, blob and event adapters.
func InfraImportForbidden(path string) bool {
	return strings.Contains(path, "/internal/infra/")
}

// adapterModules are third-party stacks that belong to adapters or the
// outer surfaces, never to the domain.
var adapterModules = []string{
	"github.com/gin-gonic/",
	"github.com/gin-contrib/",
	"github.com/mark3labs/mcp-go",
	"github.com/redis/go-redis",
	"github.com/aws/aws-sdk-go-v2",
	"github.com/jackc/pgx",
	"modernc.org/sqlite",
	"github.com/prometheus/",
	"go.opentelemetry.io/otel/sdk",
	"go.uber.org/zap",
}

// AdapterModuleForbidden matches imports of transport, driver or telemetry
// SDK modules.
func AdapterModuleForbidden(path string) bool {
	for _, prefix := range adapterModules {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// Any combines predicates; the result matches when one of them does.
func Any(preds ...func(string) bool) func(string) bool {
	return func(path string) bool {
		for _, p := range preds {
			if p(path) {
				return true
			}
		}
		return false
	}
}

var goListDeps = func(pattern string) ([]byte, error) {
	return exec.Command("go", "list", "-deps", pattern).CombinedOutput()
}

func matchLines(out string, forbidden func(string) bool) []string {
	var viols []string
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line != "" && forbidden(line) {
			viols = append(viols, line)
		}
	}
	return viols
}

func directImportViolations(dir string, forbidden func(importPath string) bool) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	fset := token.NewFileSet()
	var viols []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".go") || strings.HasSuffix(name, "_test.go") {
			continue
		}
		file, err := parser.ParseFile(fset, filepath.Join(dir, name), nil, parser.ImportsOnly)
		if err != nil {
			return nil, err
		}
		for _, imp := range file.Imports {
			ip := strings.Trim(imp.Path.Value, "\"")
			if forbidden(ip) {
				viols = append(viols, ip+" (in "+name+")")
			}
		}
	}
	return viols, nil
}

type fatalLogger interface {
	Fatalf(format string, args ...any)
}

func failIfViolations(t fatalLogger, kind, reason string, viols []string) {
	if len(viols) > 0 {
		t.Fatalf("forbidden %s detected (%s):\n%s", kind, reason, strings.Join(viols, "\n"))
	}
}
