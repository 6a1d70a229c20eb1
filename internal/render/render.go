package render

import (
	_ "embed"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"html"
	"os"
	"strings"
)

const (
	PlaceholderImages   = "{{IMAGE_URLS}}"
	PlaceholderPartner1 = "{{PARTNER1}}"
	PlaceholderPartner2 = "{{PARTNER2}}"

	// ContentType of every rendered page.
	ContentType = "text/html; charset=utf-8"
)

//go:embed templates/diary.html
var defaultTemplate string

// Image is one uploaded picture, already checked to be an image.
type Image struct {
	MIMEType string
	Data     []byte
}

// DataURI encodes img as data:<mime>;base64,<data>.
func (img Image) DataURI() string {
	return "data:" + img.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(img.Data)
}

// Renderer fills the diary template.
type Renderer struct {
	tmpl string
}

// New loads the template at path, or the built-in one when path is empty.
func New(path string) (*Renderer, error) {
	if path == "" {
		return &Renderer{tmpl: defaultTemplate}, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read diary template: %w", err)
	}
	return NewFromString(string(b))
}

// NewFromString uses tmpl as the template. It must contain the image
// placeholder.
func NewFromString(tmpl string) (*Renderer, error) {
	if !strings.Contains(tmpl, PlaceholderImages) {
		return nil, fmt.Errorf("diary template lacks %s", PlaceholderImages)
	}
	return &Renderer{tmpl: tmpl}, nil
}

// Render replaces the first image placeholder with a JSON array of data URIs
// and every partner placeholder with the HTML-escaped name.
func (r *Renderer) Render(partner1, partner2 string, images []Image) ([]byte, error) {
	urls := make([]string, 0, len(images))
	for _, img := range images {
		urls = append(urls, img.DataURI())
	}
	// json escapes <, > and & so the array is safe inside <script>
	list, err := json.MarshalIndent(urls, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode image urls: %w", err)
	}
	out := strings.Replace(r.tmpl, PlaceholderImages, string(list), 1)
	out = strings.NewReplacer(
		PlaceholderPartner1, html.EscapeString(partner1),
		PlaceholderPartner2, html.EscapeString(partner2),
	).Replace(out)
	return []byte(out), nil
}
