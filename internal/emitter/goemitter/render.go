package goemitter

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/mark3labs/oasgen/internal/artifact"
	"github.com/mark3labs/oasgen/internal/naming"
	"github.com/mark3labs/oasgen/internal/shape"
	"github.com/mark3labs/oasgen/internal/typemap"
)

// Template data. Doc fields hold complete comment lines, ready to print.

type typesData struct {
	Package string
	Imports []string
	Runtime string
	Records []recordView
	Unions  []unionView
}

type recordView struct {
	Name   string
	Doc    string
	Fields []fieldView
}

type fieldView struct {
	Name string
	Type string
	Tag  string
	Doc  string
}

type unionView struct {
	Name   string
	Doc    string
	Tagged bool
	Cases  []caseView
}

type caseView struct {
	Name  string
	Union string
	Type  string
	Code  int
}

type serviceData struct {
	Package string
	Imports []string
	Runtime string
	Name    string
	Doc     string
	Methods []methodView
}

type methodView struct {
	Name    string
	Doc     string
	Args    []argView
	Returns string
}

type argView struct {
	Name string
	Type string
}

type routerData struct {
	Package string
	Imports []string
	Runtime string
	Service string
	Routes  []routeView
}

type routeView struct {
	Pattern string
	Body    string
}

// goType renders t as a Go type expression.
func goType(t typemap.TypeRef) string {
	switch t.Kind {
	case typemap.Text:
		return "string"
	case typemap.Timestamp:
		return "time.Time"
	case typemap.Int64:
		return "int64"
	case typemap.Float64:
		return "float64"
	case typemap.Bool:
		return "bool"
	case typemap.Bytes:
		return "[]byte"
	case typemap.Sequence:
		if t.Elem == nil {
			return "[]string"
		}
		return "[]" + goType(*t.Elem)
	default:
		return t.Name
	}
}

// nilable reports whether the Go rendering of t already has a zero value
// distinct from any payload, so optional values need no pointer.
func nilable(t typemap.TypeRef) bool {
	return t.Kind == typemap.Sequence || t.Kind == typemap.Bytes || t.Kind == typemap.Union
}

func optionalType(t typemap.TypeRef, required bool) string {
	if required || nilable(t) {
		return goType(t)
	}
	return "*" + goType(t)
}

// caseSuffix names a union case after its type.
func caseSuffix(t typemap.TypeRef) string {
	switch t.Kind {
	case typemap.Record, typemap.Union:
		return t.Name
	case typemap.Sequence:
		if t.Elem == nil {
			return "TextList"
		}
		return caseSuffix(*t.Elem) + "List"
	default:
		return naming.Pascal(string(t.Kind))
	}
}

// statusCode maps a response code to the value StatusCode returns: "2XX"
// becomes 200 and "default" becomes 0.
func statusCode(code string) int {
	if n, err := strconv.Atoi(code); err == nil {
		return n
	}
	if len(code) == 3 && strings.EqualFold(code[1:], "XX") && code[0] >= '1' && code[0] <= '5' {
		return int(code[0]-'0') * 100
	}
	return 0
}

func docLines(indent, text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	var b strings.Builder
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, " \t\r")
		if line == "" {
			b.WriteString(indent + "//\n")
			continue
		}
		b.WriteString(indent + "// " + line + "\n")
	}
	return b.String()
}

func importsFor(code string, extra ...string) []string {
	imports := slices.Clone(extra)
	if strings.Contains(code, "time.Time") {
		imports = append(imports, "time")
	}
	slices.Sort(imports)
	return slices.Compact(imports)
}

func buildTypes(pkg string, set *artifact.Set) typesData {
	data := typesData{Package: pkg}
	indirect := recursiveFields(set.Types)
	var code strings.Builder
	for _, d := range set.Types {
		rv := recordView{Name: d.Name, Doc: docLines("", d.Description)}
		used := map[string]int{}
		for _, f := range d.Fields {
			name := naming.Pascal(f.Name)
			if name == "" {
				name = "Field"
			}
			if n := used[name]; n > 0 {
				used[name]++
				name = fmt.Sprintf("%s%d", name, n+1)
			} else {
				used[name] = 1
			}
			typ := optionalType(f.Type, f.Required)
			if f.Required && indirect[d.Name+"."+f.Name] {
				typ = "*" + typ
			}
			tag := f.Name
			if !f.Required {
				tag += ",omitempty"
			}
			rv.Fields = append(rv.Fields, fieldView{
				Name: name,
				Type: typ,
				Tag:  fmt.Sprintf("`json:%q yaml:%q`", tag, tag),
				Doc:  docLines("\t", f.Description),
			})
			code.WriteString(typ + "\n")
		}
		data.Records = append(data.Records, rv)
	}
	for _, u := range set.Unions {
		uv := unionView{Name: u.Name, Tagged: u.Kind == shape.TaggedUnion}
		if uv.Tagged {
			uv.Doc = fmt.Sprintf("// %s is one response of %s per status code.\n", u.Name, strings.TrimSuffix(u.Name, "Response"))
			for _, v := range u.Variants {
				c := caseView{Name: naming.Append(u.Name, v.Name), Union: u.Name, Code: statusCode(v.Code)}
				if v.Type != nil {
					c.Type = goType(*v.Type)
				}
				uv.Cases = append(uv.Cases, c)
				code.WriteString(c.Type + "\n")
			}
		} else {
			names := make([]string, 0, len(u.Cases))
			for _, t := range u.Cases {
				c := caseView{Name: u.Name + caseSuffix(t), Union: u.Name, Type: goType(t)}
				uv.Cases = append(uv.Cases, c)
				names = append(names, c.Type)
				code.WriteString(c.Type + "\n")
			}
			uv.Doc = fmt.Sprintf("// %s holds one of: %s.\n", u.Name, strings.Join(names, ", "))
		}
		data.Unions = append(data.Unions, uv)
	}
	data.Imports = importsFor(code.String())
	return data
}

// recursiveFields finds required record fields that lead back to their own
// record. Such fields are rendered as pointers to keep the type finite.
func recursiveFields(decls []*typemap.Decl) map[string]bool {
	edges := map[string][]typemap.Field{}
	for _, d := range decls {
		for _, f := range d.Fields {
			if f.Required && f.Type.Kind == typemap.Record {
				edges[d.Name] = append(edges[d.Name], f)
			}
		}
	}
	reaches := func(from, to string) bool {
		seen := map[string]bool{}
		stack := []string{from}
		for len(stack) > 0 {
			n := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if n == to {
				return true
			}
			if seen[n] {
				continue
			}
			seen[n] = true
			for _, f := range edges[n] {
				stack = append(stack, f.Type.Name)
			}
		}
		return false
	}
	out := map[string]bool{}
	for from, fields := range edges {
		for _, f := range fields {
			if reaches(f.Type.Name, from) {
				out[from+"."+f.Name] = true
			}
		}
	}
	return out
}

func buildService(pkg string, set *artifact.Set) serviceData {
	iface := set.Interface
	data := serviceData{
		Package: pkg,
		Name:    iface.Name,
		Doc:     fmt.Sprintf("// %s is implemented by the server of %s.\n", iface.Name, strings.TrimSpace(set.Title)),
	}
	var code strings.Builder
	for _, m := range set.Interface.Methods {
		mv := methodView{Name: m.Name, Doc: methodDoc(m)}
		for _, p := range m.Params {
			a := argView{Name: p.Var, Type: paramType(p)}
			mv.Args = append(mv.Args, a)
			code.WriteString(a.Type + "\n")
		}
		if m.Body != nil {
			a := argView{Name: m.Body.Var, Type: optionalType(m.Body.Type, m.Body.Required)}
			mv.Args = append(mv.Args, a)
			code.WriteString(a.Type + "\n")
		}
		mv.Returns = "error"
		if m.Result.Kind != shape.NoValue && m.Result.Type != nil {
			mv.Returns = fmt.Sprintf("(%s, error)", goType(*m.Result.Type))
			code.WriteString(mv.Returns + "\n")
		}
		data.Methods = append(data.Methods, mv)
	}
	var extra []string
	if len(data.Methods) > 0 {
		extra = append(extra, "context")
	}
	data.Imports = importsFor(code.String(), extra...)
	return data
}

func methodDoc(m artifact.Method) string {
	text := m.Summary
	if m.Description != "" {
		if text != "" {
			text += "\n\n"
		}
		text += m.Description
	}
	if m.Deprecated {
		if text != "" {
			text += "\n\n"
		}
		text += "Deprecated: " + m.OperationID + " is marked deprecated."
	}
	return docLines("\t", text)
}

func paramType(p shape.ParamBinding) string {
	if p.Kind == shape.QueryStructBinding {
		return goType(p.Type)
	}
	return optionalType(p.Type, p.Required)
}

func buildRouter(pkg, runtime string, set *artifact.Set) routerData {
	data := routerData{Package: pkg, Runtime: runtime, Service: set.Interface.Name}
	var code strings.Builder
	for _, route := range set.Routes {
		m, ok := set.Method(route.Handler)
		if !ok {
			continue
		}
		body := handlerBody(m)
		data.Routes = append(data.Routes, routeView{Pattern: route.Pattern, Body: body})
		code.WriteString(body)
	}
	var extra []string
	if len(data.Routes) > 0 {
		extra = append(extra, "context", "net/http")
	}
	data.Imports = importsFor(code.String(), extra...)
	return data
}

// handlerBody renders the statements of one route handler: bind every
// parameter, bind the body, call the service.
func handlerBody(m artifact.Method) string {
	var b strings.Builder
	args := []string{"ctx"}
	for _, p := range m.Params {
		fmt.Fprintf(&b, "var %s %s\n", p.Var, paramType(p))
		switch p.Kind {
		case shape.PathBinding:
			fmt.Fprintf(&b, "if err := oasrt.Path(r, %q, &%s); err != nil {\nreturn nil, err\n}\n", p.Var, p.Var)
		case shape.QueryStructBinding:
			fmt.Fprintf(&b, "if err := oasrt.QueryStruct(r, &%s); err != nil {\nreturn nil, err\n}\n", p.Var)
		case shape.QueryValueBinding:
			fmt.Fprintf(&b, "if err := oasrt.Query(r, %q, %t, &%s); err != nil {\nreturn nil, err\n}\n", p.Name, p.Required, p.Var)
		case shape.HeaderBinding:
			fmt.Fprintf(&b, "if err := oasrt.Header(r, %q, %t, &%s); err != nil {\nreturn nil, err\n}\n", p.Name, p.Required, p.Var)
		case shape.CookieBinding:
			fmt.Fprintf(&b, "if err := oasrt.Cookie(r, %q, %t, &%s); err != nil {\nreturn nil, err\n}\n", p.Name, p.Required, p.Var)
		}
		args = append(args, p.Var)
	}
	if m.Body != nil {
		writeBodyBinding(&b, m.Body)
		args = append(args, m.Body.Var)
	}
	call := fmt.Sprintf("svc.%s(%s)", m.Name, strings.Join(args, ", "))
	if m.Result.Kind == shape.NoValue {
		fmt.Fprintf(&b, "return nil, %s\n", call)
	} else {
		fmt.Fprintf(&b, "return %s\n", call)
	}
	return b.String()
}

func writeBodyBinding(b *strings.Builder, body *shape.BodyPlan) {
	b.WriteString("data, err := oasrt.ReadBody(r)\nif err != nil {\nreturn nil, err\n}\n")
	if body.Required {
		b.WriteString("if len(data) == 0 {\nreturn nil, oasrt.MissingBody()\n}\n")
	}
	b.WriteString("ct := r.Header.Get(\"Content-Type\")\n")
	fmt.Fprintf(b, "var %s %s\n", body.Var, optionalType(body.Type, body.Required))
	b.WriteString("if len(data) > 0 {\n")
	if len(body.Groups) == 1 {
		g := body.Groups[0]
		fmt.Fprintf(b, "v, err := oasrt.DecodeBody[%s](ct, data, %s)\nif err != nil {\nreturn nil, err\n}\n",
			goType(g.Type), quoteMediaTypes(g.Candidates))
		if body.Required || nilable(body.Type) {
			fmt.Fprintf(b, "%s = v\n", body.Var)
		} else {
			fmt.Fprintf(b, "%s = &v\n", body.Var)
		}
		b.WriteString("}\n")
		return
	}
	b.WriteString("if err := oasrt.FirstOf(\n")
	for _, g := range body.Groups {
		fmt.Fprintf(b, "func() error {\nv, err := oasrt.DecodeBody[%s](ct, data, %s)\nif err == nil {\n%s = %s%s{Value: v}\n}\nreturn err\n},\n",
			goType(g.Type), quoteMediaTypes(g.Candidates), body.Var, body.Type.Name, caseSuffix(g.Type))
	}
	b.WriteString("); err != nil {\nreturn nil, err\n}\n}\n")
}

func quoteMediaTypes(cs []shape.Candidate) string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = strconv.Quote(c.MediaType)
	}
	return strings.Join(out, ", ")
}
