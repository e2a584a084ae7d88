package pointio

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"pointfit/internal/models"
)

// ReadElements reads an element file.
func ReadElements(path string) ([]models.Element, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening element file: %w", err)
	}
	defer f.Close()

	elems, err := ParseElements(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return elems, nil
}

// ParseElements parses element lines from r. A node may carry a version
// suffix ("12:2"), which is dropped.
func ParseElements(r io.Reader) ([]models.Element, error) {
	var elems []models.Element
	err := scanLines(r, func(lineNo int, fields []string) error {
		nodes := make([]int, len(fields))
		for i, s := range fields {
			id, _, _ := strings.Cut(s, ":")
			n, err := strconv.Atoi(id)
			if err != nil {
				return fmt.Errorf("line %d: %w", lineNo, err)
			}
			nodes[i] = n
		}
		elems = append(elems, models.Element{Nodes: nodes})
		return nil
	})
	return elems, err
}
