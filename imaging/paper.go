package imaging

import (
	"fmt"
	"strings"
)

// PaperWidth is one of the two supported paper classes
type PaperWidth int

const (
	// Narrow is 58 mm paper
	Narrow PaperWidth = 58
	// Wide is 80 mm paper
	Wide PaperWidth = 80
)

// WidthSpec holds the raster limits of a paper class, in dots
type WidthSpec struct {
	MaxWidth         int
	MaxHeight        int
	RecommendedWidth int
}

var widthSpecs = map[PaperWidth]WidthSpec{
	Narrow: {MaxWidth: 384, MaxHeight: 200, RecommendedWidth: 120},
	Wide:   {MaxWidth: 576, MaxHeight: 280, RecommendedWidth: 200},
}

// Spec returns the raster limits for w. Unknown values resolve to Narrow.
func (w PaperWidth) Spec() WidthSpec {
	if s, ok := widthSpecs[w]; ok {
		return s
	}
	return widthSpecs[Narrow]
}

func (w PaperWidth) String() string {
	return fmt.Sprintf("%dmm", int(w))
}

// ParsePaperWidth accepts "58", "58mm", "80", "80mm", "narrow" or "wide"
func ParsePaperWidth(s string) (PaperWidth, error) {
	switch strings.ToLower(strings.TrimSuffix(strings.TrimSpace(s), "mm")) {
	case "58", "narrow", "":
		return Narrow, nil
	case "80", "wide":
		return Wide, nil
	}
	return Narrow, fmt.Errorf("unknown paper width %q", s)
}
