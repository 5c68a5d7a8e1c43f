package export

import (
	"image"
	"image/color"
	"image/draw"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	margin       = 24
	minWidth     = 640
	maxWidth     = 1600
	headingH     = 28
	cellH        = 52
	metricCols   = 3
	captionH     = 22
	placeholderH = 160
	maxFigureH   = 1600
	gap          = 16
)

var (
	ink   = color.RGBA{R: 0x22, G: 0x22, B: 0x22, A: 0xff}
	muted = color.RGBA{R: 0x66, G: 0x66, B: 0x66, A: 0xff}
	rule  = color.RGBA{R: 0xdd, G: 0xdd, B: 0xdd, A: 0xff}
	fill  = color.RGBA{R: 0xf5, G: 0xf5, B: 0xf5, A: 0xff}
	face  = basicfont.Face7x13
)

// layout draws the panel at 1x onto a white canvas.
func layout(p Panel, images []image.Image) *image.RGBA {
	inner := minWidth
	for _, img := range images {
		if img != nil && img.Bounds().Dx() > inner {
			inner = img.Bounds().Dx()
		}
	}
	if inner > maxWidth {
		inner = maxWidth
	}
	width := inner + 2*margin

	rows := (len(p.Metrics) + metricCols - 1) / metricCols
	height := margin + headingH + rows*cellH + gap
	heights := make([]int, len(images))
	for i, img := range images {
		heights[i] = figureHeight(img, inner)
		height += captionH + heights[i] + gap
	}
	height += margin - gap

	canvas := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)

	y := margin
	text(canvas, margin, y+16, p.Heading, ink)
	y += headingH

	cellW := inner / metricCols
	for i, m := range p.Metrics {
		x := margin + (i%metricCols)*cellW
		cy := y + (i/metricCols)*cellH
		hline(canvas, x, x+cellW-8, cy, rule)
		label := metricLabels[m.Key]
		if label == "" {
			label = m.Key
		}
		text(canvas, x, cy+18, label, muted)
		text(canvas, x, cy+38, m.Value, ink)
	}
	y += rows*cellH + gap

	for i, img := range images {
		caption := ""
		if i < len(p.Figures) {
			caption = p.Figures[i].Caption
		}
		text(canvas, margin, y+15, caption, ink)
		y += captionH

		dst := image.Rect(margin, y, margin+inner, y+heights[i])
		if img == nil {
			draw.Draw(canvas, dst, image.NewUniform(fill), image.Point{}, draw.Src)
			text(canvas, margin+12, y+placeholderH/2, "chart unavailable", muted)
		} else {
			dst.Max.X = margin + figureWidth(img, inner, heights[i])
			xdraw.CatmullRom.Scale(canvas, dst, img, img.Bounds(), xdraw.Over, nil)
		}
		y += heights[i] + gap
	}

	return canvas
}

// figureHeight is the drawn height of img when fitted into width, capped at
// maxFigureH.
func figureHeight(img image.Image, width int) int {
	if img == nil {
		return placeholderH
	}
	b := img.Bounds()
	if b.Dx() == 0 {
		return placeholderH
	}
	h := b.Dy()
	if b.Dx() > width {
		h = b.Dy() * width / b.Dx()
	}
	return min(h, maxFigureH)
}

// figureWidth keeps the aspect ratio of img at the given drawn height.
func figureWidth(img image.Image, width, height int) int {
	b := img.Bounds()
	if b.Dy() == 0 {
		return min(b.Dx(), width)
	}
	w := b.Dx() * height / b.Dy()
	return max(1, min(w, width))
}

func text(dst draw.Image, x, y int, s string, c color.Color) {
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}

func hline(dst *image.RGBA, x0, x1, y int, c color.Color) {
	for x := x0; x < x1; x++ {
		dst.Set(x, y, c)
	}
}
