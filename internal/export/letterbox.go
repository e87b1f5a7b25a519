// Package export captures a slide visual into a story-sized PNG card and
// hands it to a share target, falling back to a plain file download.
package export

import (
	"image"
	"image/color"

	"github.com/skip2/go-qrcode"
	"golang.org/x/image/draw"

	"github.com/ivlev/bronify/internal/system"
)

// Letterbox fits src into a w×h canvas preserving its aspect ratio, centered
// on a solid background. The canvas comes from the system pool; return it
// with system.PutImage once encoded.
func Letterbox(src image.Image, w, h int, bg color.Color) *image.RGBA {
	canvas := system.GetImage(image.Rect(0, 0, w, h))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(bg), image.Point{}, draw.Src)

	sb := src.Bounds()
	if sb.Empty() {
		return canvas
	}
	draw.CatmullRom.Scale(canvas, Fit(sb, w, h), src, sb, draw.Over, nil)
	return canvas
}

// Fit returns where Letterbox places an image with bounds sb on a w×h canvas.
func Fit(sb image.Rectangle, w, h int) image.Rectangle {
	if sb.Empty() {
		return image.Rectangle{}
	}
	scale := min(float64(w)/float64(sb.Dx()), float64(h)/float64(sb.Dy()))
	sw := int(float64(sb.Dx())*scale + 0.5)
	sh := int(float64(sb.Dy())*scale + 0.5)
	offX := (w - sw) / 2
	offY := (h - sh) / 2
	return image.Rect(offX, offY, offX+sw, offY+sh)
}

// StampQR draws a QR code for link in the bottom margin under content, the
// visual's rectangle on the canvas. When that margin is too short for the
// code it goes into the bottom-right corner instead, inside a margin of
// size/4.
func StampQR(canvas *image.RGBA, content image.Rectangle, link string, size int) error {
	q, err := qrcode.New(link, qrcode.Medium)
	if err != nil {
		return err
	}
	q.BackgroundColor = color.White
	q.ForegroundColor = color.Black
	code := q.Image(size)

	margin := size / 4
	b := canvas.Bounds()
	at := image.Pt(b.Max.X-size-margin, b.Max.Y-size-margin)
	if band := b.Max.Y - content.Max.Y; !content.Empty() && band >= size+2*margin {
		at = image.Pt(b.Min.X+(b.Dx()-size)/2, content.Max.Y+(band-size)/2)
	}
	draw.Draw(canvas, image.Rectangle{Min: at, Max: at.Add(code.Bounds().Size())}, code, code.Bounds().Min, draw.Src)
	return nil
}
