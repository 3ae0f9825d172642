package cli

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const minimalSpecYAML = "" +
	"openapi: 3.0.0\n" +
	"info:\n" +
	"  title: Test API\n" +
	"  version: '1.0.0'\n" +
	"paths:\n" +
	"  /hello:\n" +
	"    get:\n" +
	"      operationId: sayHello\n" +
	"      summary: Hello\n" +
	"      responses:\n" +
	"        '200':\n" +
	"          description: ok\n" +
	"          content:\n" +
	"            text/plain:\n" +
	"              schema: {type: string}\n"

func writeMinimalSpec(t *testing.T, body string) (dir, path string) {
	t.Helper()
	dir = t.TempDir()
	path = filepath.Join(dir, "spec.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write spec: %v", err)
	}
	return dir, path
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&stdout)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.Execute()
	return stdout.String(), err
}

func TestGeneratePipeline_DryRun_Go(t *testing.T) {
	dir, specPath := writeMinimalSpec(t, minimalSpecYAML)
	outDir := filepath.Join(dir, "out-go")

	out, err := runCLI(t, "generate", "--input", specPath, "--out", outDir, "--dry-run")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.Contains(out, "Planned writes to") || !strings.Contains(out, "- service.gen.go") {
		t.Fatalf("expected dry-run plan output, got: %s", out)
	}
	// Dry-run should not create the directory
	if _, err := os.Stat(outDir); err == nil {
		t.Fatalf("expected no writes on dry-run")
	}
}

func TestGeneratePipeline_WriteAndCheck(t *testing.T) {
	dir, specPath := writeMinimalSpec(t, minimalSpecYAML)
	outDir := filepath.Join(dir, "hello")

	out, err := runCLI(t, "generate", "--input", specPath, "--out", outDir)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !strings.Contains(out, "Wrote 3 files") {
		t.Fatalf("unexpected output: %s", out)
	}
	service, err := os.ReadFile(filepath.Join(outDir, "service.gen.go"))
	if err != nil {
		t.Fatalf("read service: %v", err)
	}
	if !strings.Contains(string(service), "SayHello(ctx context.Context) (string, error)") {
		t.Fatalf("unexpected service:\n%s", service)
	}

	if out, err = runCLI(t, "generate", "--input", specPath, "--out", outDir, "--check"); err != nil {
		t.Fatalf("check: %v", err)
	}
	if !strings.Contains(out, "is up to date") {
		t.Fatalf("unexpected check output: %s", out)
	}

	if err := os.WriteFile(filepath.Join(outDir, "types.gen.go"), []byte("// Code generated by oasgen. DO NOT EDIT.\n"), 0o600); err != nil {
		t.Fatalf("tamper: %v", err)
	}
	_, err = runCLI(t, "generate", "--input", specPath, "--out", outDir, "--check")
	if !errors.Is(err, ErrUsage) || !strings.Contains(err.Error(), "types.gen.go") {
		t.Fatalf("expected stale usage error, got %v", err)
	}
}

func TestGeneratePipeline_Description(t *testing.T) {
	dir, specPath := writeMinimalSpec(t, minimalSpecYAML)

	if _, err := runCLI(t, "generate", "--input", specPath, "--out", dir, "--format", "yaml"); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "test_api.artifacts.yaml")); err != nil {
		t.Fatalf("expected description file: %v", err)
	}
}

func TestGeneratePipeline_SpecErrorIsUsageError(t *testing.T) {
	_, specPath := writeMinimalSpec(t, strings.Replace(minimalSpecYAML, "      operationId: sayHello\n", "", 1))

	_, err := runCLI(t, "generate", "--input", specPath, "--dry-run")
	if !errors.Is(err, ErrUsage) {
		t.Fatalf("expected usage error, got %v", err)
	}
	for _, want := range []string{"MissingOperationId", "Pointer: #/paths/~1hello/get"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("error %q does not mention %q", err, want)
		}
	}
}

func TestGeneratePipeline_LogFile(t *testing.T) {
	dir, specPath := writeMinimalSpec(t, minimalSpecYAML)
	logPath := filepath.Join(dir, "oasgen.log")

	if _, err := runCLI(t, "--log-file", logPath, "generate", "--input", specPath, "--out", filepath.Join(dir, "api"), "--dry-run"); err != nil {
		t.Fatalf("execute: %v", err)
	}
	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), `"msg":"built artifacts"`) {
		t.Fatalf("expected debug entries in log file, got: %s", data)
	}
}
