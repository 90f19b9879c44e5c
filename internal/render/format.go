package render

import (
	"fmt"
	"strings"
)

// PageFormat is a named paper size.
type PageFormat string

// Supported paper sizes.
const (
	FormatA3     PageFormat = "A3"
	FormatA4     PageFormat = "A4"
	FormatA5     PageFormat = "A5"
	FormatLetter PageFormat = "Letter"
	FormatLegal  PageFormat = "Legal"
)

// paper dimensions in inches, width x height.
var paperSizes = map[PageFormat][2]float64{
	FormatA3:     {11.69, 16.54},
	FormatA4:     {8.27, 11.69},
	FormatA5:     {5.83, 8.27},
	FormatLetter: {8.5, 11},
	FormatLegal:  {8.5, 14},
}

// ParsePageFormat matches name case-insensitively against the supported sizes.
func ParsePageFormat(name string) (PageFormat, error) {
	for f := range paperSizes {
		if strings.EqualFold(string(f), strings.TrimSpace(name)) {
			return f, nil
		}
	}
	return "", fmt.Errorf("unsupported page format %q", name)
}

// Inches returns the paper width and height. Unknown formats fall back to A4.
func (f PageFormat) Inches() (width, height float64) {
	size, ok := paperSizes[f]
	if !ok {
		size = paperSizes[FormatA4]
	}
	return size[0], size[1]
}
