// Package feed extracts flat station and reading records from DATEX II style
// road weather XML feeds in a single streaming pass.
package feed

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html/charset"
)

// Kind names the two feed vocabularies the extractor understands
type Kind string

const (
	KindStations Kind = "stations"
	KindReadings Kind = "readings"
)

// ParseKind validates a feed kind given on the command line
func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case KindStations:
		return KindStations, nil
	case KindReadings:
		return KindReadings, nil
	default:
		return "", fmt.Errorf("unknown feed kind %q (allowed: stations, readings)", s)
	}
}

// ErrNoOpenRecord is reported when a detail element shows up before the
// element that opens a record.
var ErrNoOpenRecord = errors.New("detail element outside of an open record")

// MalformedError reports markup the decoder could not tokenize
type MalformedError struct {
	Offset int64
	Err    error
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("malformed feed at byte offset %d: %v", e.Offset, e.Err)
}

func (e *MalformedError) Unwrap() error {
	return e.Err
}

// ContractError reports a detail element with no record to attach to.
// It usually means the file uses a different vocabulary than the caller expected.
type ContractError struct {
	Element string
	Offset  int64
}

func (e *ContractError) Error() string {
	return fmt.Sprintf("element <%s> at byte offset %d: %v", e.Element, e.Offset, ErrNoOpenRecord)
}

func (e *ContractError) Unwrap() error {
	return ErrNoOpenRecord
}

// recordSpec describes one feed vocabulary: which element opens a record,
// how the record is seeded from that element, and which child elements fill it.
type recordSpec[T any] struct {
	openTag string
	open    func(start xml.StartElement) T
	fields  map[string]func(rec *T, text string)

	// paired lists fields the producer emits twice in a row; only every
	// other sighting is read, starting with the first.
	paired []string
}

// firstOfPair flips on every sighting and reports whether this one should be read.
type firstOfPair struct {
	seen bool
}

func (p *firstOfPair) take() bool {
	p.seen = !p.seen
	return p.seen
}

// extract runs one forward pass over the token stream. The record under
// construction lives in current and is appended when the next one opens or
// the stream ends.
func extract[T any](r io.Reader, vocab recordSpec[T]) ([]T, error) {
	decoder := xml.NewDecoder(r)
	decoder.CharsetReader = charset.NewReaderLabel

	toggles := make(map[string]*firstOfPair, len(vocab.paired))
	for _, name := range vocab.paired {
		toggles[name] = &firstOfPair{}
	}

	records := make([]T, 0)
	var current *T

	for {
		tok, err := decoder.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, &MalformedError{Offset: decoder.InputOffset(), Err: err}
		}

		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		name := start.Name.Local

		if name == vocab.openTag {
			if current != nil {
				records = append(records, *current)
			}
			rec := vocab.open(start)
			current = &rec
			continue
		}

		set, ok := vocab.fields[name]
		if !ok {
			continue
		}

		if toggle, paired := toggles[name]; paired && !toggle.take() {
			continue
		}

		if current == nil {
			return nil, &ContractError{Element: name, Offset: decoder.InputOffset()}
		}

		text, err := readText(decoder)
		if err != nil {
			return nil, &MalformedError{Offset: decoder.InputOffset(), Err: err}
		}
		set(current, text)
	}

	if current != nil {
		records = append(records, *current)
	}

	return records, nil
}

// readText consumes tokens up to the end of the element whose start was just
// read and returns its trimmed character data, descendants included.
func readText(decoder *xml.Decoder) (string, error) {
	var parts []string
	depth := 0

	for {
		tok, err := decoder.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return "", io.ErrUnexpectedEOF
			}
			return "", err
		}

		switch t := tok.(type) {
		case xml.CharData:
			if text := strings.TrimSpace(string(t)); text != "" {
				parts = append(parts, text)
			}
		case xml.StartElement:
			depth++
		case xml.EndElement:
			if depth == 0 {
				return strings.Join(parts, " "), nil
			}
			depth--
		}
	}
}

// attrValue returns the unprefixed attribute with the given local name
func attrValue(start xml.StartElement, name string) string {
	for _, attr := range start.Attr {
		if attr.Name.Space == "" && attr.Name.Local == name {
			return attr.Value
		}
	}
	return ""
}
