package goemitter

import (
	"context"
	"errors"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/mark3labs/oasgen/internal/artifact"
	"github.com/mark3labs/oasgen/internal/shape"
	"github.com/mark3labs/oasgen/internal/typemap"
)

func ref(t typemap.TypeRef) *typemap.TypeRef { return &t }

func minimalSet() *artifact.Set {
	text := typemap.TypeRef{Kind: typemap.Text}
	widget := typemap.Named("Widget")
	widgets := typemap.SequenceOf(widget)
	tagged := typemap.TypeRef{Kind: typemap.Union, Name: "ListWidgetsResponse"}
	body := typemap.TypeRef{Kind: typemap.Union, Name: "CreateWidgetBody"}

	variants := []shape.Variant{
		{Name: "Result_200", Code: "200", Type: ref(widgets)},
		{Name: "Result_4XX", Code: "4XX", Type: ref(text)},
		{Name: "Result_default", Code: "default"},
	}
	list := artifact.Method{
		Name: "ListWidgets", OperationID: "listWidgets", Summary: "List widgets.",
		Params: []shape.ParamBinding{
			{Name: "limit", Var: "limit", Location: "query", Kind: shape.QueryValueBinding, Type: typemap.TypeRef{Kind: typemap.Int64}},
			{Name: "since", Var: "since", Location: "query", Kind: shape.QueryValueBinding, Type: typemap.TypeRef{Kind: typemap.Timestamp}, Required: true},
			{Name: "X-Trace", Var: "xTrace", Location: "header", Kind: shape.HeaderBinding, Type: text},
		},
		Result: shape.ResultShape{Kind: shape.Tagged, Type: ref(tagged), Variants: variants},
	}
	get := artifact.Method{
		Name: "GetWidget", OperationID: "getWidget", Deprecated: true,
		Params: []shape.ParamBinding{
			{Name: "widget-id", Var: "widgetId", Location: "path", Kind: shape.PathBinding, Type: typemap.TypeRef{Kind: typemap.Int64}, Required: true},
		},
		Result: shape.ResultShape{Kind: shape.Single, Type: ref(widget)},
	}
	create := artifact.Method{
		Name: "CreateWidget", OperationID: "createWidget",
		Body: &shape.BodyPlan{
			Var: "body", Type: body, Required: true,
			Groups: []shape.BodyGroup{
				{Type: widget, Candidates: []shape.Candidate{{MediaType: "application/json", Type: widget}, {MediaType: "application/yaml", Type: widget}}},
				{Type: text, Candidates: []shape.Candidate{{MediaType: "text/plain", Type: text}}},
			},
		},
		Result: shape.ResultShape{Kind: shape.NoValue},
	}
	return &artifact.Set{
		Title: "Widget Store",
		Types: []*typemap.Decl{
			{Name: "Node", Fields: []typemap.Field{{Name: "next", Type: typemap.Named("Node"), Required: true}}},
			{Name: "Widget", Description: "Widget is a part.", Fields: []typemap.Field{
				{Name: "id", Type: typemap.TypeRef{Kind: typemap.Int64}, Required: true},
				{Name: "name", Type: text, Description: "Display name."},
				{Name: "tags", Type: typemap.SequenceOf(text)},
				{Name: "made-at", Type: typemap.TypeRef{Kind: typemap.Timestamp}},
				{Name: "root", Type: typemap.Named("Node")},
			}},
		},
		Unions: []shape.Union{
			{Name: "ListWidgetsResponse", Kind: shape.TaggedUnion, Variants: variants},
			{Name: "CreateWidgetBody", Kind: shape.SumUnion, Cases: []typemap.TypeRef{widget, text}},
		},
		Interface: artifact.Interface{Name: "WidgetStore", Methods: []artifact.Method{list, get, create}},
		Routes: []artifact.Route{
			{Method: "GET", Path: "/widgets", Pattern: "GET /widgets", Handler: "ListWidgets"},
			{Method: "GET", Path: "/widgets/{widget-id}", Pattern: "GET /widgets/{widgetId}", Handler: "GetWidget"},
			{Method: "POST", Path: "/widgets", Pattern: "POST /widgets", Handler: "CreateWidget"},
		},
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}

var blanks = regexp.MustCompile(`[ \t]+`)

// assertContains compares with runs of blanks collapsed, since gofmt aligns
// struct fields into columns.
func assertContains(t *testing.T, name, src string, wants ...string) {
	t.Helper()
	got := blanks.ReplaceAllString(src, " ")
	for _, want := range wants {
		if !strings.Contains(got, blanks.ReplaceAllString(want, " ")) {
			t.Fatalf("%s missing %q:\n%s", name, want, src)
		}
	}
}

func TestEmit_DryRun_Plan(t *testing.T) {
	t.Parallel()
	dir := filepath.Join(t.TempDir(), "widgetapi")

	res, err := Emit(context.Background(), minimalSet(), Options{OutDir: dir, DryRun: true})
	if err != nil {
		t.Fatalf("emit: %v", err)
	}
	if res.Package != "widgetapi" {
		t.Fatalf("package = %q, want widgetapi", res.Package)
	}
	want := []string{"router.gen.go", "service.gen.go", "types.gen.go"}
	if len(res.Planned) != len(want) {
		t.Fatalf("planned %d files, want %d", len(res.Planned), len(want))
	}
	for i, p := range want {
		if res.Planned[i].RelPath != p {
			t.Fatalf("planned[%d] = %s, want %s", i, res.Planned[i].RelPath, p)
		}
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Fatalf("expected no files written on dry-run")
	}
}

func TestEmit_WriteAndContents(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	if _, err := Emit(context.Background(), minimalSet(), Options{OutDir: dir, Package: "store"}); err != nil {
		t.Fatalf("emit: %v", err)
	}

	fset := token.NewFileSet()
	for _, name := range []string{"types.gen.go", "service.gen.go", "router.gen.go"} {
		src := readFile(t, filepath.Join(dir, name))
		if !strings.HasPrefix(src, generatedMarker) {
			t.Fatalf("%s missing generated marker", name)
		}
		if _, err := parser.ParseFile(fset, name, src, parser.ParseComments); err != nil {
			t.Fatalf("%s does not parse: %v\n%s", name, err, src)
		}
	}

	types := readFile(t, filepath.Join(dir, "types.gen.go"))
	assertContains(t, "types.gen.go", types,
		"package store",
		`"time"`,
		"// Widget is a part.\ntype Widget struct {",
		"Id int64 `json:\"id\" yaml:\"id\"`",
		"// Display name.",
		"Name *string `json:\"name,omitempty\" yaml:\"name,omitempty\"`",
		"Tags []string `json:\"tags,omitempty\" yaml:\"tags,omitempty\"`",
		"MadeAt *time.Time",
		"Next *Node `json:\"next\" yaml:\"next\"`",
		"type ListWidgetsResponse interface {",
		"type ListWidgetsResponseResult200 struct {\n\tValue []Widget\n}",
		"func (ListWidgetsResponseResult4Xx) StatusCode() int { return 400 }",
		"func (ListWidgetsResponseResultDefault) StatusCode() int { return 0 }",
		"func (ListWidgetsResponseResultDefault) Payload() any { return nil }",
		"type CreateWidgetBodyWidget struct {",
		"type CreateWidgetBodyText struct {\n\tValue string\n}",
		"func (CreateWidgetBodyText) isCreateWidgetBody() {}",
	)
	if strings.Contains(types, "func (CreateWidgetBodyText) StatusCode()") {
		t.Fatalf("sum cases must not carry status codes")
	}

	service := readFile(t, filepath.Join(dir, "service.gen.go"))
	assertContains(t, "service.gen.go", service,
		"type WidgetStore interface {",
		"ListWidgets(ctx context.Context, limit *int64, since time.Time, xTrace *string) (ListWidgetsResponse, error)",
		"// Deprecated: getWidget is marked deprecated.",
		"GetWidget(ctx context.Context, widgetId int64) (Widget, error)",
		"CreateWidget(ctx context.Context, body CreateWidgetBody) error",
	)

	router := readFile(t, filepath.Join(dir, "router.gen.go"))
	assertContains(t, "router.gen.go", router,
		`oasrt "github.com/mark3labs/oasgen/pkg/oasrt"`,
		"func NewWidgetStoreRouter(svc WidgetStore, opts ...oasrt.RouterOption) *oasrt.Router {",
		`rt.Handle("GET /widgets/{widgetId}"`,
		`oasrt.Path(r, "widgetId", &widgetId)`,
		`oasrt.Query(r, "since", true, &since)`,
		`oasrt.Header(r, "X-Trace", false, &xTrace)`,
		"return svc.ListWidgets(ctx, limit, since, xTrace)",
		"return nil, oasrt.MissingBody()",
		`oasrt.DecodeBody[Widget](ct, data, "application/json", "application/yaml")`,
		"body = CreateWidgetBodyText{Value: v}",
		"return nil, svc.CreateWidget(ctx, body)",
	)
}

func TestEmit_RefusesHandWrittenFiles(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "types.gen.go"), []byte("package x\n"), 0o600); err != nil {
		t.Fatalf("prewrite: %v", err)
	}
	if _, err := Emit(context.Background(), minimalSet(), Options{OutDir: dir}); err == nil {
		t.Fatalf("expected error when replacing a hand-written file without force")
	}
	if _, err := Emit(context.Background(), minimalSet(), Options{OutDir: dir, Force: true}); err != nil {
		t.Fatalf("emit with force: %v", err)
	}
	// Regenerating over generated output needs no force.
	if _, err := Emit(context.Background(), minimalSet(), Options{OutDir: dir}); err != nil {
		t.Fatalf("regenerate: %v", err)
	}
}

func TestEmit_Check(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	res, err := Emit(context.Background(), minimalSet(), Options{OutDir: dir, Check: true})
	if !errors.Is(err, ErrStale) || len(res.Stale) != 3 {
		t.Fatalf("expected all files stale before generation, got %v", err)
	}
	if _, err := Emit(context.Background(), minimalSet(), Options{OutDir: dir}); err != nil {
		t.Fatalf("emit: %v", err)
	}
	if _, err := Emit(context.Background(), minimalSet(), Options{OutDir: dir, Check: true}); err != nil {
		t.Fatalf("check after generation: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "service.gen.go"), []byte(generatedMarker+"\n"), 0o600); err != nil {
		t.Fatalf("tamper: %v", err)
	}
	res, err = Emit(context.Background(), minimalSet(), Options{OutDir: dir, Check: true})
	if !errors.Is(err, ErrStale) || len(res.Stale) != 1 || res.Stale[0] != "service.gen.go" {
		t.Fatalf("expected service.gen.go stale, got %v %+v", err, res)
	}
}

func TestEmit_InvalidPackage(t *testing.T) {
	t.Parallel()
	if _, err := Emit(context.Background(), minimalSet(), Options{OutDir: t.TempDir(), Package: "not-valid"}); err == nil {
		t.Fatalf("expected invalid package error")
	}
}

func TestStatusCode(t *testing.T) {
	t.Parallel()
	for code, want := range map[string]int{"200": 200, "404": 404, "2XX": 200, "5xx": 500, "default": 0} {
		if got := statusCode(code); got != want {
			t.Fatalf("statusCode(%q) = %d, want %d", code, got, want)
		}
	}
}
