package export

import (
	"image"
	"image/color"
	"math"
)

// ContentFinder locates the part of a captured visual that carries content.
// Page screenshots usually come with flat margins; cropping them lets the
// letterbox scale the content itself to the card.
type ContentFinder struct {
	MinArea       int     // компоненты меньше этого считаются шумом
	EdgeThreshold float64 // порог модуля градиента Собеля
	Pad           int
}

func NewContentFinder() *ContentFinder {
	return &ContentFinder{
		MinArea:       500,
		EdgeThreshold: 30,
		Pad:           8,
	}
}

// Bounds returns the union of all edge regions, padded and clipped to the
// image. A flat image yields its full bounds.
func (f *ContentFinder) Bounds(img image.Image) image.Rectangle {
	b := img.Bounds()
	edges := dilate(sobel(toGray(img), f.EdgeThreshold), 5, 2)

	var union image.Rectangle
	for _, r := range components(edges) {
		if r.Dx()*r.Dy() < f.MinArea {
			continue
		}
		union = union.Union(r)
	}
	if union.Empty() {
		return b
	}
	return union.Inset(-f.Pad).Intersect(b)
}

// Crop returns the content region of img, sharing its pixels when possible.
func (f *ContentFinder) Crop(img image.Image) image.Image {
	r := f.Bounds(img)
	if r == img.Bounds() {
		return img
	}
	if s, ok := img.(interface {
		SubImage(image.Rectangle) image.Image
	}); ok {
		return s.SubImage(r)
	}
	return img
}

func toGray(img image.Image) *image.Gray {
	b := img.Bounds()
	if g, ok := img.(*image.Gray); ok {
		return g
	}
	gray := image.NewGray(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			gray.Set(x, y, color.GrayModel.Convert(img.At(x, y)))
		}
	}
	return gray
}

var (
	sobelX = [3][3]float64{{-1, 0, 1}, {-2, 0, 2}, {-1, 0, 1}}
	sobelY = [3][3]float64{{-1, -2, -1}, {0, 0, 0}, {1, 2, 1}}
)

// sobel marks pixels whose gradient magnitude exceeds threshold.
func sobel(gray *image.Gray, threshold float64) *image.Gray {
	b := gray.Bounds()
	out := image.NewGray(b)
	for y := b.Min.Y + 1; y < b.Max.Y-1; y++ {
		for x := b.Min.X + 1; x < b.Max.X-1; x++ {
			var gx, gy float64
			for ky := -1; ky <= 1; ky++ {
				for kx := -1; kx <= 1; kx++ {
					p := float64(gray.GrayAt(x+kx, y+ky).Y)
					gx += p * sobelX[ky+1][kx+1]
					gy += p * sobelY[ky+1][kx+1]
				}
			}
			if math.Hypot(gx, gy) > threshold {
				out.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	return out
}

// dilate joins nearby edges so that a block of text becomes one component.
func dilate(img *image.Gray, size, iterations int) *image.Gray {
	b := img.Bounds()
	half := size / 2
	cur := img
	for range iterations {
		next := image.NewGray(b)
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				if cur.GrayAt(x, y).Y == 0 {
					continue
				}
				for ky := max(b.Min.Y, y-half); ky <= min(b.Max.Y-1, y+half); ky++ {
					for kx := max(b.Min.X, x-half); kx <= min(b.Max.X-1, x+half); kx++ {
						next.SetGray(kx, ky, color.Gray{Y: 255})
					}
				}
			}
		}
		cur = next
	}
	return cur
}

// components returns the bounding box of every 4-connected white region.
func components(img *image.Gray) []image.Rectangle {
	b := img.Bounds()
	w := b.Dx()
	visited := make([]bool, w*b.Dy())
	idx := func(x, y int) int { return (y-b.Min.Y)*w + (x - b.Min.X) }

	var rects []image.Rectangle
	var stack []image.Point
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if visited[idx(x, y)] || img.GrayAt(x, y).Y <= 128 {
				continue
			}
			r := image.Rect(x, y, x+1, y+1)
			stack = append(stack[:0], image.Pt(x, y))
			visited[idx(x, y)] = true
			for len(stack) > 0 {
				p := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				r = r.Union(image.Rect(p.X, p.Y, p.X+1, p.Y+1))
				for _, n := range [4]image.Point{image.Pt(p.X+1, p.Y), image.Pt(p.X-1, p.Y), image.Pt(p.X, p.Y+1), image.Pt(p.X, p.Y-1)} {
					if !n.In(b) || visited[idx(n.X, n.Y)] || img.GrayAt(n.X, n.Y).Y <= 128 {
						continue
					}
					visited[idx(n.X, n.Y)] = true
					stack = append(stack, n)
				}
			}
			rects = append(rects, r)
		}
	}
	return rects
}
