package splitter

import (
	"fmt"
	"strconv"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	"github.com/rs/zerolog/log"

	"github.com/local/pdfsplit/internal/apperr"
	"github.com/local/pdfsplit/internal/selection"
)

// Half tells which part of its source page an output page shows.
type Half int

const (
	Whole Half = iota
	HalfA      // left or top
	HalfB      // right or bottom
)

func (h Half) String() string {
	switch h {
	case HalfA:
		return "A"
	case HalfB:
		return "B"
	default:
		return "whole"
	}
}

// Slot is one page of the output sequence.
type Slot struct {
	Source int // 1-based page number in the input
	Half   Half
}

// Plan lays out the output sequence for a document of total pages: selected
// pages contribute HalfA then HalfB, all others contribute themselves.
func Plan(total int, sel selection.Selection) []Slot {
	slots := make([]Slot, 0, total+sel.Len())
	for p := 1; p <= total; p++ {
		if !sel.Contains(p) {
			slots = append(slots, Slot{Source: p, Half: Whole})
			continue
		}
		slots = append(slots, Slot{Source: p, Half: HalfA}, Slot{Source: p, Half: HalfB})
	}
	return slots
}

// Result is the assembled output document.
type Result struct {
	Doc   *model.Context
	Slots []Slot
	// Boxes holds the visible rectangle of every output page, in output order.
	Boxes []*types.Rectangle
}

func (r *Result) PageCount() int { return len(r.Slots) }

// Split builds a new document from src in which every selected page is
// replaced by two copies cropped to its halves. src is not modified.
func Split(src *model.Context, sel selection.Selection, dir Direction) (*Result, error) {
	if err := src.EnsurePageCount(); err != nil {
		return nil, apperr.Wrap(apperr.InvalidPDF, "", err, "cannot count pages")
	}

	slots := Plan(src.PageCount, sel)
	pageNrs := make([]int, len(slots))
	for i, s := range slots {
		pageNrs[i] = s.Source
	}

	// Every occurrence gets its own page dict; content streams are shared.
	dst, err := pdfcpu.ExtractPages(src, pageNrs, false)
	if err != nil {
		return nil, apperr.Wrap(apperr.InvalidPDF, "", err, "cannot copy pages")
	}
	if err := dst.EnsurePageCount(); err != nil {
		return nil, apperr.Wrap(apperr.InvalidPDF, "", err, "cannot count output pages")
	}
	if dst.PageCount != len(slots) {
		return nil, fmt.Errorf("copied %d pages, planned %d", dst.PageCount, len(slots))
	}

	boxes := make(map[int]pageBox)
	res := &Result{Doc: dst, Slots: slots, Boxes: make([]*types.Rectangle, 0, len(slots))}

	for i, s := range slots {
		pb, ok := boxes[s.Source]
		if !ok {
			if pb, err = visibleBox(src, s.Source); err != nil {
				return nil, err
			}
			boxes[s.Source] = pb
		}
		box := pb.rect

		d, _, _, err := dst.PageDict(i+1, false)
		if err != nil || d == nil {
			return nil, apperr.Wrap(apperr.InvalidPDF, strconv.Itoa(s.Source), orMissing(err), "cannot access copied page")
		}

		rect := box
		switch s.Half {
		case HalfA:
			rect, _ = Halves(box, dir)
		case HalfB:
			_, rect = Halves(box, dir)
		}

		if s.Half != Whole {
			d["CropBox"] = rect.Array()
			log.Debug().
				Int("page", s.Source).
				Str("half", s.Half.String()).
				Str("crop", rect.String()).
				Msg("cropped page copy")
		} else if _, found := d.Find("CropBox"); !found && pb.cropped {
			// Keep an inherited crop that the copy lost with its parent.
			d["CropBox"] = box.Array()
		}
		res.Boxes = append(res.Boxes, rect)
	}

	return res, nil
}

type pageBox struct {
	rect    *types.Rectangle
	cropped bool // rect came from a CropBox
}

// visibleBox returns the effective CropBox of page p, or its MediaBox.
func visibleBox(ctx *model.Context, p int) (pageBox, error) {
	_, _, inh, err := ctx.PageDict(p, false)
	if err != nil || inh == nil {
		return pageBox{}, apperr.Wrap(apperr.InvalidPDF, strconv.Itoa(p), orMissing(err), "cannot read page")
	}
	if inh.CropBox != nil {
		return pageBox{rect: inh.CropBox, cropped: true}, nil
	}
	if inh.MediaBox != nil {
		return pageBox{rect: inh.MediaBox}, nil
	}
	return pageBox{}, apperr.New(apperr.InvalidPDF, strconv.Itoa(p), "page has no MediaBox")
}

func orMissing(err error) error {
	if err != nil {
		return err
	}
	return fmt.Errorf("page dictionary missing")
}
