// Package captions flattens caption payloads into plain transcript text.
// Upstream collaborators deliver captions as SRT, WebVTT or JSON segment
// lists; the engine only ever sees the flattened text.
package captions

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/goodanalysis/transcriptrag/internal/domain/entities"
)

// Parser implements ports.CaptionParser for the common caption formats.
type Parser struct{}

// NewParser creates a caption parser.
func NewParser() *Parser {
	return &Parser{}
}

// SupportedExtensions returns file extensions this parser handles.
func (p *Parser) SupportedExtensions() []string {
	return []string{".txt", ".srt", ".vtt", ".json"}
}

// Parse extracts transcript text from raw caption bytes, dispatching on the
// file extension. Plain text passes through unchanged.
func (p *Parser) Parse(data []byte, filename string) (string, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".srt":
		return parseSRT(string(data)), nil
	case ".vtt":
		return parseVTT(string(data)), nil
	case ".json":
		return parseJSONSegments(data)
	case ".txt", "":
		return string(data), nil
	default:
		return "", entities.NewError(entities.KindConfiguration, "unsupported caption format %q", filepath.Ext(filename))
	}
}

// segment matches the JSON shape caption downloaders emit:
// [{"text": "...", "start": 0.0, "duration": 4.2}, ...]
type segment struct {
	Text     string  `json:"text"`
	Start    float64 `json:"start"`
	Duration float64 `json:"duration"`
}

func parseJSONSegments(data []byte) (string, error) {
	var segments []segment
	if err := json.Unmarshal(data, &segments); err != nil {
		return "", fmt.Errorf("decoding caption segments: %w", err)
	}
	texts := make([]string, 0, len(segments))
	for _, s := range segments {
		if t := strings.TrimSpace(s.Text); t != "" {
			texts = append(texts, t)
		}
	}
	return strings.Join(texts, " "), nil
}

var srtTimestampRe = regexp.MustCompile(`^\d{2}:\d{2}:\d{2}[,.]\d{3}\s+-->\s+\d{2}:\d{2}:\d{2}[,.]\d{3}`)

func parseSRT(content string) string {
	var texts []string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(strings.TrimPrefix(line, "\uFEFF"))
		if line == "" || isCueIndex(line) || srtTimestampRe.MatchString(line) {
			continue
		}
		texts = append(texts, line)
	}
	return strings.Join(texts, " ")
}

func parseVTT(content string) string {
	var texts []string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(strings.TrimPrefix(line, "\uFEFF"))
		switch {
		case line == "",
			strings.HasPrefix(line, "WEBVTT"),
			strings.HasPrefix(line, "NOTE"),
			strings.HasPrefix(line, "STYLE"),
			strings.Contains(line, "-->"):
			continue
		}
		texts = append(texts, stripCueTags(line))
	}
	return strings.Join(texts, " ")
}

func isCueIndex(line string) bool {
	for _, r := range line {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

var cueTagRe = regexp.MustCompile(`<[^>]*>`)

// stripCueTags removes inline VTT styling like <c> and <00:00:01.000>.
func stripCueTags(line string) string {
	return cueTagRe.ReplaceAllString(line, "")
}
