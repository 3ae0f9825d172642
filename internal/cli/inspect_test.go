package cli

import (
	"errors"
	"strings"
	"testing"
)

func TestInspect_DumpsArtifactSet(t *testing.T) {
	_, specPath := writeMinimalSpec(t, minimalSpecYAML)

	out, err := runCLI(t, "inspect", "--input", specPath)
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	for _, want := range []string{"artifact.Set", `Title: (string) (len=8) "Test API"`, `"SayHello"`, `"GET /hello"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("inspect output missing %q:\n%s", want, out)
		}
	}
}

func TestInspect_RequiresInput(t *testing.T) {
	t.Parallel()
	_, err := runCLI(t, "inspect")
	if !errors.Is(err, ErrUsage) {
		t.Fatalf("expected usage error, got %v", err)
	}
}

func TestInspect_BadScope(t *testing.T) {
	t.Parallel()
	_, specPath := writeMinimalSpec(t, minimalSpecYAML)
	_, err := runCLI(t, "inspect", "--input", specPath, "--ref-scope", "nowhere")
	if !errors.Is(err, ErrUsage) {
		t.Fatalf("expected usage error, got %v", err)
	}
}
