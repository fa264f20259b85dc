package splitter

import (
	"fmt"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// Direction selects how a page is halved.
type Direction string

const (
	// Vertical cuts along the width: left half, then right half.
	Vertical Direction = "vertical"
	// Horizontal cuts along the height: top half, then bottom half.
	Horizontal Direction = "horizontal"
)

// ParseDirection accepts "vertical"/"horizontal" and their initials, case-insensitively.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "v", "vertical":
		return Vertical, nil
	case "h", "horizontal":
		return Horizontal, nil
	}
	return "", fmt.Errorf("unknown split direction %q (want vertical or horizontal)", s)
}

func (d Direction) String() string { return string(d) }

// Halves divides box at its midpoint. Both halves share the same midpoint
// value, so together they cover box exactly.
func Halves(box *types.Rectangle, dir Direction) (a, b *types.Rectangle) {
	llx, lly, urx, ury := box.LL.X, box.LL.Y, box.UR.X, box.UR.Y

	if dir == Horizontal {
		midY := lly + box.Height()/2
		return types.NewRectangle(llx, midY, urx, ury), types.NewRectangle(llx, lly, urx, midY)
	}

	midX := llx + box.Width()/2
	return types.NewRectangle(llx, lly, midX, ury), types.NewRectangle(midX, lly, urx, ury)
}
