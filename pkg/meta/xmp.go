package meta

import(
	"bytes"
	"encoding/xml"
	"io"
	"strings"

	"github.com/pkg/errors"
)

const rdfNS = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"

type xmpFrame struct {
	name  string // local name; "rdf:"-prefixed for rdf elements
	text  strings.Builder
	items []string
}

// ParseXMP flattens an XMP packet into "XMP:<Name>" keys, the way
// exiftool groups them. Both attribute-style properties
// (Camera:BandName="Red") and element-style ones are picked up; rdf:Seq,
// rdf:Bag and rdf:Alt lists become comma separated values.
func ParseXMP(packet []byte) (map[string]string, error) {
	ret := map[string]string{}

	start := bytes.Index(packet, []byte("<x:xmpmeta"))
	end := bytes.LastIndex(packet, []byte("</x:xmpmeta>"))
	if start < 0 || end < 0 {
		start, end = 0, len(packet)
	} else {
		end += len("</x:xmpmeta>")
	}

	dec := xml.NewDecoder(bytes.NewReader(packet[start:end]))
	stack := []*xmpFrame{}

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, errors.Wrap(err, "xmp")
		}

		switch t := tok.(type) {
		case xml.StartElement:
			for _, a := range t.Attr {
				if a.Name.Space == "" || a.Name.Space == "xmlns" || a.Name.Space == rdfNS {
					continue
				}
				ret["XMP:"+a.Name.Local] = strings.TrimSpace(a.Value)
			}
			f := &xmpFrame{name: t.Name.Local}
			if t.Name.Space == rdfNS {
				f.name = "rdf:" + t.Name.Local
			}
			stack = append(stack, f)

		case xml.CharData:
			if len(stack) > 0 {
				stack[len(stack)-1].text.Write(t)
			}

		case xml.EndElement:
			if len(stack) == 0 {
				continue
			}
			f := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			text := strings.TrimSpace(f.text.String())

			if f.name == "rdf:li" {
				if owner := xmpListOwner(stack); owner != nil {
					owner.items = append(owner.items, text)
				}
				continue
			}
			if strings.HasPrefix(f.name, "rdf:") || f.name == "xmpmeta" {
				continue
			}
			if len(f.items) > 0 {
				ret["XMP:"+f.name] = strings.Join(f.items, ",")
			} else if text != "" {
				ret["XMP:"+f.name] = text
			}
		}
	}

	return ret, nil
}

// xmpListOwner is the nearest enclosing property element of an rdf:li.
func xmpListOwner(stack []*xmpFrame) *xmpFrame {
	for i:=len(stack)-1; i>=0; i-- {
		if !strings.HasPrefix(stack[i].name, "rdf:") {
			return stack[i]
		}
	}
	return nil
}
