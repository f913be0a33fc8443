// Package xmlvalue converts XML documents to and from structured values.
//
// The mapping is the conventional one used by API test tooling: the root
// element becomes a single-key mapping, attributes become "@name" entries,
// character data beside attributes or child elements becomes "#text",
// repeated sibling elements become a sequence, an element holding only text
// becomes that text and an empty element becomes null. Namespace prefixes are
// kept as written.
package xmlvalue

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding/htmlindex"

	"github.com/AbhinavRai30/api-framework/internal/value"
)

const (
	attrPrefix = "@"
	textKey    = "#text"
)

var (
	ErrInvalidXML = errors.New("invalid XML")
	ErrEncode     = errors.New("cannot encode value as XML")
)

type child struct {
	name   string
	values []value.Value
}

type element struct {
	name     string
	attrs    []value.Member
	children []child
	byName   map[string]int
	text     strings.Builder
}

func newElement(start xml.StartElement) *element {
	el := &element{
		name:   qualified(start.Name),
		byName: make(map[string]int),
	}
	for _, a := range start.Attr {
		el.attrs = append(el.attrs, value.Pair(attrPrefix+qualified(a.Name), value.Text(a.Value)))
	}
	return el
}

func (el *element) addChild(name string, v value.Value) {
	if i, ok := el.byName[name]; ok {
		el.children[i].values = append(el.children[i].values, v)
		return
	}
	el.byName[name] = len(el.children)
	el.children = append(el.children, child{name: name, values: []value.Value{v}})
}

func (el *element) build() value.Value {
	text := strings.TrimSpace(el.text.String())

	if len(el.attrs) == 0 && len(el.children) == 0 {
		if text == "" {
			return value.Null()
		}
		return value.Text(text)
	}

	members := make([]value.Member, 0, len(el.attrs)+len(el.children)+1)
	members = append(members, el.attrs...)
	for _, c := range el.children {
		if len(c.values) == 1 {
			members = append(members, value.Pair(c.name, c.values[0]))
			continue
		}
		members = append(members, value.Pair(c.name, value.Seq(c.values...)))
	}
	if text != "" {
		members = append(members, value.Pair(textKey, value.Text(text)))
	}
	return value.Map(members...)
}

func qualified(n xml.Name) string {
	if n.Space == "" {
		return n.Local
	}
	return n.Space + ":" + n.Local
}

// Decode parses one XML document.
func Decode(data []byte) (value.Value, error) {
	d := xml.NewDecoder(bytes.NewReader(data))
	d.CharsetReader = charsetReader

	var (
		stack []*element
		root  *value.Value
	)

	for {
		tok, err := d.RawToken()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return value.Value{}, fmt.Errorf("%w: %v", ErrInvalidXML, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if root != nil && len(stack) == 0 {
				return value.Value{}, fmt.Errorf("%w: multiple root elements", ErrInvalidXML)
			}
			stack = append(stack, newElement(t))
		case xml.EndElement:
			if len(stack) == 0 {
				return value.Value{}, fmt.Errorf("%w: unexpected end element </%s>", ErrInvalidXML, qualified(t.Name))
			}
			top := stack[len(stack)-1]
			if top.name != qualified(t.Name) {
				return value.Value{}, fmt.Errorf("%w: element <%s> closed by </%s>", ErrInvalidXML, top.name, qualified(t.Name))
			}
			stack = stack[:len(stack)-1]

			built := top.build()
			if len(stack) == 0 {
				doc := value.Map(value.Pair(top.name, built))
				root = &doc
				continue
			}
			stack[len(stack)-1].addChild(top.name, built)
		case xml.CharData:
			if len(stack) == 0 {
				if len(bytes.TrimSpace(t)) > 0 {
					return value.Value{}, fmt.Errorf("%w: text outside root element", ErrInvalidXML)
				}
				continue
			}
			stack[len(stack)-1].text.Write(t)
		}
	}

	if len(stack) > 0 {
		return value.Value{}, fmt.Errorf("%w: unclosed element <%s>", ErrInvalidXML, stack[len(stack)-1].name)
	}
	if root == nil {
		return value.Value{}, fmt.Errorf("%w: no root element", ErrInvalidXML)
	}
	return *root, nil
}

func charsetReader(label string, input io.Reader) (io.Reader, error) {
	enc, err := htmlindex.Get(label)
	if err != nil {
		return nil, fmt.Errorf("unsupported charset %q: %w", label, err)
	}
	return enc.NewDecoder().Reader(input), nil
}

// Encode writes v, a mapping with exactly one key naming the root element.
func Encode(v value.Value) ([]byte, error) {
	if v.Kind() != value.KindMapping || v.Len() != 1 {
		return nil, fmt.Errorf("%w: document must be a mapping with a single root key", ErrEncode)
	}
	root := v.Members()[0]
	if root.Value.Kind() == value.KindSequence {
		return nil, fmt.Errorf("%w: root element %q cannot be a sequence", ErrEncode, root.Key)
	}

	var buf bytes.Buffer
	enc := xml.NewEncoder(&buf)
	if err := encodeElement(enc, root.Key, root.Value); err != nil {
		return nil, err
	}
	if err := enc.Flush(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncode, err)
	}
	return buf.Bytes(), nil
}

func encodeElement(enc *xml.Encoder, name string, v value.Value) error {
	if strings.HasPrefix(name, attrPrefix) || name == textKey || name == "" {
		return fmt.Errorf("%w: invalid element name %q", ErrEncode, name)
	}

	start := xml.StartElement{Name: xml.Name{Local: name}}

	switch v.Kind() {
	case value.KindNull:
		return writeElement(enc, start, "", nil)
	case value.KindMapping:
		var (
			text     string
			children []value.Member
		)
		for _, m := range v.Members() {
			switch {
			case strings.HasPrefix(m.Key, attrPrefix):
				if m.Value.Kind() == value.KindMapping || m.Value.Kind() == value.KindSequence {
					return fmt.Errorf("%w: attribute %q must be scalar", ErrEncode, m.Key)
				}
				start.Attr = append(start.Attr, xml.Attr{
					Name:  xml.Name{Local: strings.TrimPrefix(m.Key, attrPrefix)},
					Value: scalarText(m.Value),
				})
			case m.Key == textKey:
				text = scalarText(m.Value)
			default:
				children = append(children, m)
			}
		}
		return writeElement(enc, start, text, children)
	case value.KindSequence:
		return fmt.Errorf("%w: nested sequence under %q", ErrEncode, name)
	default:
		return writeElement(enc, start, scalarText(v), nil)
	}
}

func writeElement(enc *xml.Encoder, start xml.StartElement, text string, children []value.Member) error {
	if err := enc.EncodeToken(start); err != nil {
		return fmt.Errorf("%w: %v", ErrEncode, err)
	}
	if text != "" {
		if err := enc.EncodeToken(xml.CharData(text)); err != nil {
			return fmt.Errorf("%w: %v", ErrEncode, err)
		}
	}
	for _, c := range children {
		if c.Value.Kind() == value.KindSequence {
			for _, item := range c.Value.Items() {
				if err := encodeElement(enc, c.Key, item); err != nil {
					return err
				}
			}
			continue
		}
		if err := encodeElement(enc, c.Key, c.Value); err != nil {
			return err
		}
	}
	if err := enc.EncodeToken(start.End()); err != nil {
		return fmt.Errorf("%w: %v", ErrEncode, err)
	}
	return nil
}

func scalarText(v value.Value) string {
	if v.IsNull() {
		return ""
	}
	return v.Render()
}
