// Package output renders session state for the terminal and writes JSON,
// Markdown and image files.
package output

import (
	"bytes"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	_ "image/png"  // Register PNG decoder
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	_ "golang.org/x/image/webp" // Register WebP decoder
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/ppiankov/chronosight/internal/model"
	"github.com/ppiankov/chronosight/internal/session"
)

// DecodeDataURI splits a base64 data URI into its MIME type and payload
func DecodeDataURI(uri string) (string, []byte, error) {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return "", nil, fmt.Errorf("not a data URI")
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, fmt.Errorf("data URI has no payload")
	}
	mimeType, ok := strings.CutSuffix(meta, ";base64")
	if !ok {
		return "", nil, fmt.Errorf("data URI is not base64 encoded")
	}
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		if raw, rawErr := base64.RawStdEncoding.DecodeString(payload); rawErr == nil {
			return mimeType, raw, nil
		}
		return "", nil, fmt.Errorf("decode payload: %w", err)
	}
	return mimeType, data, nil
}

// SavedImage describes an image file written by SaveImage
type SavedImage struct {
	Path     string `json:"path"`
	MimeType string `json:"mimeType"`
	Bytes    int    `json:"bytes"`
	Width    int    `json:"width,omitempty"`
	Height   int    `json:"height,omitempty"`
}

// SaveImage decodes a data URI into dir/base.<ext>. Width and height are
// filled when the format is decodable.
func SaveImage(dir, base, dataURI string) (*SavedImage, error) {
	mimeType, data, err := DecodeDataURI(dataURI)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	path := filepath.Join(dir, base+extensionFor(mimeType))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, fmt.Errorf("write image: %w", err)
	}

	saved := &SavedImage{Path: path, MimeType: mimeType, Bytes: len(data)}
	if cfg, _, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
		saved.Width = cfg.Width
		saved.Height = cfg.Height
	}
	return saved, nil
}

func extensionFor(mimeType string) string {
	switch mimeType {
	case "image/png":
		return ".png"
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	}
	if exts, err := mime.ExtensionsByType(mimeType); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ".bin"
}

// Export is the JSON document written for one explored location
type Export struct {
	Location    string                   `json:"location"`
	Coordinates *model.Coordinates       `json:"coordinates,omitempty"`
	Context     *model.HistoricalContext `json:"context,omitempty"`
	CurrentEra  string                   `json:"currentEra,omitempty"`
	Images      map[string]*SavedImage   `json:"images,omitempty"`
	Error       string                   `json:"error,omitempty"`
	ErrorKind   string                   `json:"errorKind,omitempty"`
	GeneratedAt time.Time                `json:"generatedAt"`
}

// NewExport builds the export document for a state snapshot
func NewExport(st session.State, images map[string]*SavedImage) Export {
	exp := Export{
		Location:    st.LocationName,
		Coordinates: st.Coordinates,
		Context:     st.Context,
		Images:      images,
		GeneratedAt: time.Now().UTC(),
	}
	if st.CurrentEra != nil {
		exp.CurrentEra = st.CurrentEra.EraName
	}
	if st.Err != nil {
		exp.Error = st.Err.Error()
		exp.ErrorKind = st.Err.Kind.String()
	}
	return exp
}

// WriteJSON writes v as indented JSON
func WriteJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write JSON: %w", err)
	}
	return nil
}

// SaveState writes <dir>/<base>.json, <base>.md and the state's images.
// It returns the saved image descriptions keyed "modern" and "historical".
func SaveState(dir, base string, st session.State) (map[string]*SavedImage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	images := make(map[string]*SavedImage)
	if st.ModernImageURL != "" {
		img, err := SaveImage(dir, base+"-modern", st.ModernImageURL)
		if err != nil {
			return nil, fmt.Errorf("save modern image: %w", err)
		}
		images["modern"] = img
	}
	if st.HistoricalImageURL != "" {
		img, err := SaveImage(dir, base+"-historical", st.HistoricalImageURL)
		if err != nil {
			return nil, fmt.Errorf("save historical image: %w", err)
		}
		images["historical"] = img
	}

	if err := WriteJSON(filepath.Join(dir, base+".json"), NewExport(st, images)); err != nil {
		return nil, err
	}

	links := make(map[string]string, len(images))
	for k, img := range images {
		links[k] = filepath.Base(img.Path)
	}
	md := RenderMarkdown(st, links)
	if err := os.WriteFile(filepath.Join(dir, base+".md"), []byte(md), 0o644); err != nil {
		return nil, fmt.Errorf("write markdown: %w", err)
	}

	return images, nil
}

// Slug turns a location name into a file-name-safe base. Accents are
// folded to ASCII and a minus sign before a digit becomes "m". Names with
// letters that have no ASCII form get a short hash of the full name so
// distinct names never share a base.
func Slug(name string) string {
	folded, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), name)
	if err != nil {
		folded = name
	}

	var sb strings.Builder
	dash, lossy := false, false
	src := []rune(strings.ToLower(folded))
	for i, r := range src {
		switch {
		case isSlugRune(r):
			sb.WriteRune(r)
			dash = false
		case r == '-' && i+1 < len(src) && unicode.IsDigit(src[i+1]) && (i == 0 || !isSlugRune(src[i-1])):
			if !dash && sb.Len() > 0 {
				sb.WriteByte('-')
			}
			sb.WriteByte('m')
			dash = false
		default:
			if unicode.IsLetter(r) || unicode.IsNumber(r) {
				lossy = true
			}
			if !dash && sb.Len() > 0 {
				sb.WriteByte('-')
				dash = true
			}
		}
	}

	s := strings.TrimSuffix(sb.String(), "-")
	if s == "" {
		s = "location"
	}
	if lossy {
		sum := sha256.Sum256([]byte(name))
		s += "-" + hex.EncodeToString(sum[:4])
	}
	return s
}

func isSlugRune(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
}

// UniqueBase returns base, or base with a numeric suffix when used already
// holds it, and records the result in used
func UniqueBase(used map[string]bool, base string) string {
	candidate := base
	for n := 2; used[candidate]; n++ {
		candidate = fmt.Sprintf("%s-%d", base, n)
	}
	used[candidate] = true
	return candidate
}
