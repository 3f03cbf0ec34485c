package infra

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/contre95/muscat/src/music"
)

// ParseM3U parses M3U content and extracts track paths in order.
func ParseM3U(content string) ([]string, error) {
	var paths []string
	scanner := bufio.NewScanner(strings.NewReader(content))

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Clean the path (remove quotes if present)
		path := strings.Trim(line, "\"'")
		if path != "" {
			paths = append(paths, path)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error parsing M3U content: %w", err)
	}

	return paths, nil
}

// GenerateM3U generates extended M3U content from tracks.
func GenerateM3U(tracks []*music.Track) string {
	var builder strings.Builder

	// Write M3U header
	builder.WriteString("#EXTM3U\n")

	for _, track := range tracks {
		duration := track.Length
		if duration <= 0 {
			duration = -1 // Unknown duration
		}

		title := track.Metadata.Title
		if title == "" {
			title = track.Path
		}
		if track.Metadata.Artist != "" {
			title = track.Metadata.Artist + " - " + title
		}

		fmt.Fprintf(&builder, "#EXTINF:%d,%s\n", duration, title)
		builder.WriteString(track.Path)
		builder.WriteString("\n")
	}

	return builder.String()
}
