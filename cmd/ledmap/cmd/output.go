package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

const (
	outputFormatJSON = "json"
	outputFormatYAML = "yaml"
	outputFormatText = "text"
)

// parseRect parses "x0,y0,x1,y1" into a canonical rectangle.
func parseRect(s string) (image.Rectangle, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return image.Rectangle{}, fmt.Errorf("invalid rectangle %q: expected x0,y0,x1,y1", s)
	}
	var v [4]int
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return image.Rectangle{}, fmt.Errorf("invalid rectangle %q: %w", s, err)
		}
		v[i] = n
	}
	return image.Rect(v[0], v[1], v[2], v[3]), nil
}

// checkRect rejects rectangles too small to calibrate from.
func checkRect(rect image.Rectangle, minSize int) error {
	if rect.Dx() < minSize || rect.Dy() < minSize {
		return fmt.Errorf("calibration rectangle %dx%d is smaller than %dx%d", rect.Dx(), rect.Dy(), minSize, minSize)
	}
	return nil
}

// parsePoint parses "x,y".
func parsePoint(s string) (float64, float64, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid point %q: expected x,y", s)
	}
	x, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid point %q: %w", s, err)
	}
	y, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid point %q: %w", s, err)
	}
	return x, y, nil
}

// writeOutput renders v in format and writes it to file, or to the command's
// stdout when file is empty. text renders the human-readable form.
func writeOutput(cmd *cobra.Command, format, file string, v any, text func(io.Writer)) error {
	var buf bytes.Buffer
	switch format {
	case outputFormatJSON:
		enc := json.NewEncoder(&buf)
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("failed to encode JSON: %w", err)
		}
	case outputFormatYAML:
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("failed to encode YAML: %w", err)
		}
		_ = enc.Close()
	case outputFormatText, "":
		text(&buf)
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}

	if file == "" {
		_, err := cmd.OutOrStdout().Write(buf.Bytes())
		return err
	}
	if err := os.WriteFile(file, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	return nil
}

// readStructured decodes a JSON or YAML file into v, choosing by extension.
func readStructured(path string, v any) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: user-supplied input path
	if err != nil {
		return err
	}
	lower := strings.ToLower(path)
	if strings.HasSuffix(lower, ".yaml") || strings.HasSuffix(lower, ".yml") {
		return yaml.Unmarshal(data, v)
	}
	return json.Unmarshal(data, v)
}
