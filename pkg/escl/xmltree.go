package escl

import (
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"strings"

	"golang.org/x/net/html/charset"
)

// element is a minimal namespace-resolved DOM node. text holds the
// concatenated character data of the element and all its descendants.
type element struct {
	name     xml.Name
	attrs    []xml.Attr
	children []*element
	text     strings.Builder
}

var errNoRoot = errors.New("document has no root element")

// parseTree decodes data into an element tree, rejecting documents that are
// not well-formed.
func parseTree(data []byte) (*element, error) {
	d := xml.NewDecoder(bytes.NewReader(data))
	d.CharsetReader = charset.NewReaderLabel

	var root *element
	var stack []*element
	for {
		tok, err := d.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			el := &element{name: t.Name, attrs: t.Attr}
			if len(stack) == 0 {
				if root != nil {
					return nil, errors.New("document has more than one root element")
				}
				root = el
			} else {
				parent := stack[len(stack)-1]
				parent.children = append(parent.children, el)
			}
			stack = append(stack, el)
		case xml.EndElement:
			stack = stack[:len(stack)-1]
		case xml.CharData:
			for _, el := range stack {
				el.text.Write(t)
			}
		}
	}

	if root == nil {
		return nil, errNoRoot
	}
	return root, nil
}

// descendants returns all elements below e (excluding e) named name, in
// document order.
func (e *element) descendants(name xml.Name) []*element {
	var out []*element
	var walk func(*element)
	walk = func(n *element) {
		for _, c := range n.children {
			if c.name == name {
				out = append(out, c)
			}
			walk(c)
		}
	}
	walk(e)
	return out
}

// textContent returns the trimmed character data of e.
func (e *element) textContent() string {
	return strings.TrimSpace(e.text.String())
}

// attr returns the value of the namespace-qualified attribute name.
func (e *element) attr(name xml.Name) (string, bool) {
	for _, a := range e.attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}
