package content

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Diagnostic is a non-fatal problem found while reading content.
type Diagnostic struct {
	Offset  int
	Message string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("offset %d: %s", d.Offset, d.Message)
}

// Elements whose end tag may be omitted; never reported as unclosed.
var optionalEnd = map[atom.Atom]bool{
	atom.Html: true, atom.Head: true, atom.Body: true,
	atom.P: true, atom.Li: true, atom.Dt: true, atom.Dd: true,
	atom.Option: true, atom.Optgroup: true, atom.Rt: true, atom.Rp: true,
	atom.Tr: true, atom.Td: true, atom.Th: true,
	atom.Thead: true, atom.Tbody: true, atom.Tfoot: true, atom.Colgroup: true,
}

var voidElements = map[atom.Atom]bool{
	atom.Area: true, atom.Base: true, atom.Br: true, atom.Col: true,
	atom.Embed: true, atom.Hr: true, atom.Img: true, atom.Input: true,
	atom.Link: true, atom.Meta: true, atom.Source: true, atom.Track: true,
	atom.Wbr: true,
}

// ParseLenient builds a document tree from possibly malformed HTML. Parsing
// never fails; structural problems are returned as diagnostics.
func ParseLenient(src string) (*html.Node, []Diagnostic) {
	diags := lint(src)
	doc, err := html.Parse(strings.NewReader(src))
	if err != nil {
		diags = append(diags, Diagnostic{Message: "parse: " + err.Error()})
		doc, _ = html.Parse(strings.NewReader(""))
	}
	return doc, diags
}

type openTag struct {
	name   string
	a      atom.Atom
	offset int
}

func lint(src string) []Diagnostic {
	var diags []Diagnostic
	var stack []openTag

	z := html.NewTokenizer(strings.NewReader(src))
	offset := 0
	for {
		tt := z.Next()
		start := offset
		offset += len(z.Raw())

		switch tt {
		case html.ErrorToken:
			if err := z.Err(); err != nil && !errors.Is(err, io.EOF) {
				diags = append(diags, Diagnostic{Offset: start, Message: err.Error()})
			}
			for i := len(stack) - 1; i >= 0; i-- {
				if !optionalEnd[stack[i].a] {
					diags = append(diags, Diagnostic{Offset: stack[i].offset, Message: "unclosed <" + stack[i].name + ">"})
				}
			}
			return diags

		case html.StartTagToken:
			name, _ := z.TagName()
			a := atom.Lookup(name)
			if voidElements[a] {
				continue
			}
			stack = append(stack, openTag{name: string(name), a: a, offset: start})

		case html.EndTagToken:
			name, _ := z.TagName()
			tag := string(name)
			idx := -1
			for i := len(stack) - 1; i >= 0; i-- {
				if stack[i].name == tag {
					idx = i
					break
				}
			}
			if idx == -1 {
				diags = append(diags, Diagnostic{Offset: start, Message: "stray </" + tag + ">"})
				continue
			}
			for i := len(stack) - 1; i > idx; i-- {
				if !optionalEnd[stack[i].a] {
					diags = append(diags, Diagnostic{Offset: stack[i].offset, Message: "<" + stack[i].name + "> closed by </" + tag + ">"})
				}
			}
			stack = stack[:idx]
		}
	}
}
