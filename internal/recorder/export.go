package recorder

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"

	"github.com/dshills/ptyagent/internal/terminal"
)

// DocumentVersion is the current export schema version.
const DocumentVersion = 1

// Format selects an export encoding.
type Format int

const (
	// FormatJSON is the lossless machine-readable timeline.
	FormatJSON Format = iota
	// FormatHTML is a self-contained page for viewing in a browser.
	FormatHTML
)

// String returns the format name.
func (f Format) String() string {
	switch f {
	case FormatJSON:
		return "json"
	case FormatHTML:
		return "html"
	default:
		return fmt.Sprintf("Format(%d)", int(f))
	}
}

// ParseFormat maps a name or file extension to a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(s, ".")) {
	case "json":
		return FormatJSON, nil
	case "html", "htm":
		return FormatHTML, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// Export errors.
var (
	// ErrUnknownFormat indicates an unsupported export format.
	ErrUnknownFormat = errors.New("unknown export format")

	// ErrUnsupportedVersion indicates a document newer than this reader.
	ErrUnsupportedVersion = errors.New("unsupported document version")
)

// Document is the serialized form of a session timeline.
type Document struct {
	Version   int                `json:"version"`
	StartedAt time.Time          `json:"started_at"`
	SessionID string             `json:"session_id"`
	Turns     []Turn             `json:"turns"`
	Events    []Event            `json:"events"`
	Final     *terminal.Snapshot `json:"final,omitempty"`
}

// Export encodes the timeline in the given format. final is the screen at the
// end of the session and may be nil.
func (r *Recorder) Export(format Format, final *terminal.Snapshot) ([]byte, error) {
	doc := r.Document(final)
	switch format {
	case FormatJSON:
		return marshalDocument(doc)
	case FormatHTML:
		return renderHTML(doc)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, format)
	}
}

// WriteFile exports the timeline to path using the format implied by its
// extension, defaulting to JSON.
func (r *Recorder) WriteFile(path string, final *terminal.Snapshot) error {
	format := FormatJSON
	if i := strings.LastIndexByte(path, '.'); i >= 0 {
		if f, err := ParseFormat(path[i:]); err == nil {
			format = f
		}
	}
	data, err := r.Export(format, final)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write session %s: %w", format, err)
	}
	return nil
}

func marshalDocument(doc Document) ([]byte, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode session: %w", err)
	}
	return pretty.Pretty(data), nil
}

// ParseJSON decodes a document produced by Export(FormatJSON).
func ParseJSON(data []byte) (Document, error) {
	if !gjson.ValidBytes(data) {
		return Document{}, errors.New("decode session: invalid JSON")
	}
	if v := gjson.GetBytes(data, "version").Int(); v > DocumentVersion {
		return Document{}, fmt.Errorf("%w: %d", ErrUnsupportedVersion, v)
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return Document{}, fmt.Errorf("decode session: %w", err)
	}
	return doc, nil
}
