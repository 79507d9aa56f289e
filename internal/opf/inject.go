// Package opf edits a staged package document in place.
//
// Edits are byte splices: the document is tokenised only to find where the
// manifest and metadata sections close, and the new elements are inserted
// there. Everything else, including namespace declarations, comments, and
// formatting, is written back untouched.
package opf

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path"
	"strings"

	"github.com/mahadisabot/Cambridge-Go-Extractor/internal/fileutil"
)

const (
	// CoverFileName is the name the cover image is staged under, next to the package document.
	CoverFileName = "cover.jpg"
	// CoverItemID is the manifest id of the injected cover item.
	CoverItemID = "cover-image-injected"
)

// ErrInjectionSkipped means the document had no locatable manifest or metadata
// section and was left unchanged.
var ErrInjectionSkipped = errors.New("cover injection skipped")

// InjectCover rewrites the package document at docPath so that coverHref is
// declared as the book cover. An empty mediaType is derived from the href
// extension. Injecting twice is a no-op.
func InjectCover(docPath, coverHref, mediaType string) error {
	data, err := os.ReadFile(docPath)
	if err != nil {
		return fmt.Errorf("read package document: %w", err)
	}
	out, err := InjectCoverBytes(data, coverHref, mediaType)
	if err != nil {
		return err
	}
	if bytes.Equal(out, data) {
		return nil
	}
	if _, err := fileutil.WriteAtomic(docPath, bytes.NewReader(out)); err != nil {
		return fmt.Errorf("write package document: %w", err)
	}
	return nil
}

// InjectCoverBytes is InjectCover on an in-memory document.
func InjectCoverBytes(doc []byte, coverHref, mediaType string) ([]byte, error) {
	coverHref = strings.TrimSpace(coverHref)
	if coverHref == "" {
		return nil, errors.New("cover href required")
	}
	if mediaType == "" {
		mediaType = MediaTypeFor(coverHref)
	}

	sections, err := locateSections(doc)
	if err != nil {
		return nil, err
	}
	if sections.alreadyInjected {
		return doc, nil
	}
	if sections.manifest == nil || sections.metadata == nil {
		return nil, ErrInjectionSkipped
	}

	item := element(sections.manifest.prefix, "item",
		"id", CoverItemID, "href", coverHref, "media-type", mediaType)
	meta := element(sections.metadata.prefix, "meta",
		"name", "cover", "content", CoverItemID)

	// Splice the later offset first so the earlier one stays valid.
	first, second := sections.metadata, sections.manifest
	firstText, secondText := meta, item
	if first.offset > second.offset {
		first, second = second, first
		firstText, secondText = secondText, firstText
	}
	out := splice(doc, second, secondText)
	out = splice(out, first, firstText)
	return out, nil
}

// MediaTypeFor guesses a cover media type from its file extension.
func MediaTypeFor(name string) string {
	if mt := mime.TypeByExtension(strings.ToLower(path.Ext(name))); strings.HasPrefix(mt, "image/") {
		if i := strings.IndexByte(mt, ';'); i >= 0 {
			mt = mt[:i]
		}
		return mt
	}
	return "image/jpeg"
}

type closeTag struct {
	offset int
	prefix string
}

type located struct {
	manifest        *closeTag
	metadata        *closeTag
	alreadyInjected bool
}

// locateSections finds the closing tags of the manifest and metadata elements
// that are direct children of the root element.
func locateSections(doc []byte) (located, error) {
	var loc located
	dec := xml.NewDecoder(bytes.NewReader(doc))
	dec.CharsetReader = func(_ string, input io.Reader) (io.Reader, error) { return input, nil }

	depth := 0
	inManifest := false
	for {
		before := int(dec.InputOffset())
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return loc, fmt.Errorf("parse package document: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			if depth == 2 && t.Name.Local == "manifest" {
				inManifest = true
			}
			if inManifest && depth == 3 && t.Name.Local == "item" {
				for _, attr := range t.Attr {
					if attr.Name.Local == "id" && attr.Value == CoverItemID {
						loc.alreadyInjected = true
					}
				}
			}
		case xml.EndElement:
			if depth == 2 {
				after := int(dec.InputOffset())
				// A self-closing element yields an end token without consuming input.
				if after > before {
					tag := &closeTag{offset: before, prefix: prefixOf(doc[before:after])}
					switch t.Name.Local {
					case "manifest":
						if loc.manifest == nil {
							loc.manifest = tag
						}
					case "metadata":
						if loc.metadata == nil {
							loc.metadata = tag
						}
					}
				}
				inManifest = false
			}
			depth--
		}
	}
	return loc, nil
}

// prefixOf returns the namespace prefix of a raw closing tag such as "</opf:manifest>".
func prefixOf(raw []byte) string {
	name := strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(string(raw), "</"), ">"))
	if i := strings.IndexByte(name, ':'); i > 0 {
		return name[:i]
	}
	return ""
}

func element(prefix, local string, attrs ...string) string {
	var b strings.Builder
	b.WriteByte('<')
	if prefix != "" {
		b.WriteString(prefix)
		b.WriteByte(':')
	}
	b.WriteString(local)
	for i := 0; i+1 < len(attrs); i += 2 {
		b.WriteByte(' ')
		b.WriteString(attrs[i])
		b.WriteString(`="`)
		_ = xml.EscapeText(&b, []byte(attrs[i+1]))
		b.WriteByte('"')
	}
	b.WriteString("/>")
	return b.String()
}

// splice inserts text before the closing tag at tag.offset. When the closing
// tag sits on its own line the new element gets a line of its own, indented one
// step deeper than the tag.
func splice(doc []byte, tag *closeTag, text string) []byte {
	at := tag.offset
	lineStart := bytes.LastIndexByte(doc[:at], '\n') + 1
	indent := doc[lineStart:at]

	var insert string
	if lineStart > 0 && len(bytes.TrimLeft(indent, " \t")) == 0 {
		step := "  "
		if bytes.Contains(indent, []byte("\t")) {
			step = "\t"
		}
		insert = string(indent) + step + text + "\n"
		at = lineStart
	} else {
		insert = text
	}

	out := make([]byte, 0, len(doc)+len(insert))
	out = append(out, doc[:at]...)
	out = append(out, insert...)
	out = append(out, doc[at:]...)
	return out
}
