// Package sl binds the WAP Service Loading 1.0 document type.
package sl

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"net/url"

	"github.com/lychee-technology/labdb"
)

const (
	PublicID = "-//WAPFORUM//DTD SL 1.0//EN"
	SystemID = "http://www.wapforum.org/DTD/sl.dtd"
)

// Doctype is the declaration emitted ahead of every rendered document.
const Doctype = `<!DOCTYPE sl PUBLIC "` + PublicID + `" "` + SystemID + `">`

// Action tells the user agent how to treat the loaded service.
type Action string

const (
	ActionExecuteLow  Action = "execute-low"
	ActionExecuteHigh Action = "execute-high"
	ActionCache       Action = "cache"
)

// DefaultAction is implied when the attribute is absent.
const DefaultAction = ActionExecuteLow

func (a Action) Valid() bool {
	switch a {
	case ActionExecuteLow, ActionExecuteHigh, ActionCache:
		return true
	}
	return false
}

// SL is the only element of the document type. Its content model is EMPTY.
type SL struct {
	XMLName xml.Name `xml:"sl"`
	Href    string   `xml:"href,attr"`
	Action  Action   `xml:"action,attr,omitempty"`
}

// New returns a document pointing at href with the default action.
func New(href string) *SL {
	return &SL{Href: href, Action: DefaultAction}
}

// Validate checks href is an absolute URI and action is one of the
// enumerated values. An empty action is filled with the default.
func (s *SL) Validate() error {
	if s.Href == "" {
		return labdb.NewValidationError("href", "attribute is required")
	}
	u, err := url.Parse(s.Href)
	if err != nil {
		return labdb.NewValidationError("href", err.Error())
	}
	if !u.IsAbs() {
		return labdb.NewValidationError("href", fmt.Sprintf("%q is not an absolute URI", s.Href))
	}
	if s.Action == "" {
		s.Action = DefaultAction
	}
	if !s.Action.Valid() {
		return labdb.NewValidationError("action", fmt.Sprintf("%q is not one of execute-low, execute-high, cache", s.Action))
	}
	return nil
}

// Parse decodes and validates an SL document. Child elements and character
// data are rejected.
func Parse(r io.Reader) (*SL, error) {
	dec := xml.NewDecoder(r)
	var doc *SL
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, labdb.NewValidationError("document", err.Error())
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if doc != nil {
				return nil, labdb.NewValidationError("document", "only one sl element is allowed")
			}
			if t.Name.Local != "sl" {
				return nil, labdb.NewValidationError("document", fmt.Sprintf("unexpected root element %q", t.Name.Local))
			}
			doc = &SL{XMLName: t.Name}
			for _, attr := range t.Attr {
				switch attr.Name.Local {
				case "href":
					doc.Href = attr.Value
				case "action":
					doc.Action = Action(attr.Value)
				default:
					return nil, labdb.NewValidationError(attr.Name.Local, "undeclared attribute")
				}
			}
			if err := expectEmpty(dec); err != nil {
				return nil, err
			}
		case xml.CharData:
			if doc != nil && len(bytes.TrimSpace(t)) > 0 {
				return nil, labdb.NewValidationError("document", "content after sl element")
			}
		}
	}
	if doc == nil {
		return nil, labdb.NewValidationError("document", "missing sl element")
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return doc, nil
}

// expectEmpty consumes tokens up to the end of the current element.
func expectEmpty(dec *xml.Decoder) error {
	for {
		tok, err := dec.Token()
		if err != nil {
			return labdb.NewValidationError("sl", err.Error())
		}
		switch t := tok.(type) {
		case xml.EndElement:
			return nil
		case xml.StartElement:
			return labdb.NewValidationError("sl", fmt.Sprintf("element content %q not allowed", t.Name.Local))
		case xml.CharData:
			if len(bytes.TrimSpace(t)) > 0 {
				return labdb.NewValidationError("sl", "character data not allowed")
			}
		}
	}
}

// Render validates s and writes a complete document: XML declaration,
// DOCTYPE and the sl element.
func (s *SL) Render(w io.Writer) error {
	if err := s.Validate(); err != nil {
		return err
	}
	if _, err := io.WriteString(w, xml.Header+Doctype+"\n"); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("encode sl: %w", err)
	}
	_, err := io.WriteString(w, "\n")
	return err
}

// String renders the document, returning the empty string when invalid.
func (s *SL) String() string {
	var buf bytes.Buffer
	if err := s.Render(&buf); err != nil {
		return ""
	}
	return buf.String()
}
