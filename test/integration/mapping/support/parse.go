package support

import (
	"fmt"
	"image"
	"strconv"
	"strings"
)

func parseInts(s string) ([]int, error) {
	var out []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid integer %q: %w", part, err)
		}
		out = append(out, n)
	}
	return out, nil
}

func parseRect(s string) (image.Rectangle, error) {
	v, err := parseInts(s)
	if err != nil {
		return image.Rectangle{}, err
	}
	if len(v) != 4 {
		return image.Rectangle{}, fmt.Errorf("rectangle %q needs 4 values", s)
	}
	return image.Rect(v[0], v[1], v[2], v[3]), nil
}

func parsePair(s string) (float64, float64, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("point %q needs 2 values", s)
	}
	x, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, 0, err
	}
	y, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return 0, 0, err
	}
	return x, y, nil
}
