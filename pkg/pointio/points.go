// Package pointio reads and writes the plain-text point, element and
// problem files that feed a registration.
//
// Point files hold one point per line as three whitespace-separated
// numbers. Element files hold one element per line as node numbers, each
// optionally suffixed with ":version". Blank lines and lines starting with
// '#' are ignored in both.
package pointio

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/golang/geo/r3"

	"pointfit/pkg/pointset"
)

// ReadPoints reads a point file.
func ReadPoints(path string) ([]r3.Vector, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening point file: %w", err)
	}
	defer f.Close()

	points, err := ParsePoints(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return points, nil
}

// ParsePoints parses point lines from r.
func ParsePoints(r io.Reader) ([]r3.Vector, error) {
	var points []r3.Vector
	err := scanLines(r, func(lineNo int, fields []string) error {
		if len(fields) != pointset.Dims {
			return fmt.Errorf("line %d: %w: want %d values, got %d",
				lineNo, pointset.ErrDimensionMismatch, pointset.Dims, len(fields))
		}
		var v [3]float64
		for i, s := range fields {
			f, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return fmt.Errorf("line %d: %w", lineNo, err)
			}
			v[i] = f
		}
		points = append(points, r3.Vector{X: v[0], Y: v[1], Z: v[2]})
		return nil
	})
	return points, err
}

// WritePoints writes points to path, one per line, creating parent
// directories as needed.
func WritePoints(path string, points []r3.Vector) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("error creating output directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("error creating point file: %w", err)
	}
	if err := FormatPoints(f, points); err != nil {
		f.Close()
		return fmt.Errorf("error writing point file: %w", err)
	}
	return f.Close()
}

// FormatPoints writes points to w in the point file format.
func FormatPoints(w io.Writer, points []r3.Vector) error {
	bw := bufio.NewWriter(w)
	for _, p := range points {
		fmt.Fprintf(bw, "%s %s %s\n", formatFloat(p.X), formatFloat(p.Y), formatFloat(p.Z))
	}
	return bw.Flush()
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// scanLines calls fn with the 1-based line number and fields of every
// line that is neither blank nor a comment.
func scanLines(r io.Reader, fn func(lineNo int, fields []string) error) error {
	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if err := fn(lineNo, strings.Fields(line)); err != nil {
			return err
		}
	}
	return sc.Err()
}
