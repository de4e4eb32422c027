package util

import (
	"bytes"
	"fmt"
	"html/template"
	"log"
	"strings"
	"time"
	"unicode"

	"github.com/twpayne/go-polyline"
)

func NotBlank(value string) bool {
	return strings.TrimSpace(value) != ""
}

func safeHTML(s string) template.HTML {
	return template.HTML(s)
}

func formatTime(format string, t time.Time) string {
	return t.Format(format)
}

func slugify(s string) string {
	var buf bytes.Buffer

	for _, r := range s {
		switch {
		case r > unicode.MaxASCII:
			continue
		case unicode.IsLetter(r):
			buf.WriteRune(unicode.ToLower(r))
		case unicode.IsDigit(r), r == '_', r == '-':
			buf.WriteRune(r)
		case unicode.IsSpace(r):
			buf.WriteRune('-')
		}
	}

	return buf.String()
}

func formatCoord(v float64) string {
	return fmt.Sprintf("%.6f", v)
}

var TemplateFuncs = template.FuncMap{
	// Time functions
	"now":        time.Now,
	"timeSince":  time.Since,
	"formatTime": formatTime,

	// String functions
	"uppercase": strings.ToUpper,
	"lowercase": strings.ToLower,
	"slugify":   slugify,
	"safeHTML":  safeHTML,

	// Geo functions
	"formatCoord": formatCoord,

	// Slice functions
	"join": strings.Join,
}

// DecodePolyLines decodes a Google-encoded overview polyline (precision 1e5)
// into [lat, lng] pairs.
func DecodePolyLines(shape string) ([][]float64, error) {
	decoded, _, err := polyline.DecodeCoords([]byte(shape))
	if err != nil {
		log.Println("error decoding polyline: ", err)
		return nil, fmt.Errorf("failed to decode polyline %w", err)
	}
	return decoded, nil
}
