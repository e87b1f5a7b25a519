package system

import (
	"image"
	"sync"
)

// CanvasPool раздаёт холсты *image.RGBA по размеру. Все карточки экспорта
// одного размера (1080x1920x4 байт), так что на сессию обычно один пул.
type CanvasPool struct {
	bySize sync.Map // image.Point -> *sync.Pool
}

var canvases CanvasPool

// GetImage берёт холст из пула. Содержимое не очищается.
func GetImage(r image.Rectangle) *image.RGBA { return canvases.Get(r) }

// PutImage возвращает холст; nil игнорируется.
func PutImage(img *image.RGBA) { canvases.Put(img) }

func (p *CanvasPool) pool(size image.Point, create bool) *sync.Pool {
	if v, ok := p.bySize.Load(size); ok {
		return v.(*sync.Pool)
	}
	if !create {
		return nil
	}
	v, _ := p.bySize.LoadOrStore(size, &sync.Pool{
		New: func() any { return image.NewRGBA(image.Rectangle{Max: size}) },
	})
	return v.(*sync.Pool)
}

// Get returns a canvas with bounds r. Canvases are pooled by size, the
// origin is moved to r.Min.
func (p *CanvasPool) Get(r image.Rectangle) *image.RGBA {
	img := p.pool(r.Size(), true).Get().(*image.RGBA)
	img.Rect = r
	return img
}

func (p *CanvasPool) Put(img *image.RGBA) {
	if img == nil {
		return
	}
	if pool := p.pool(img.Rect.Size(), false); pool != nil {
		pool.Put(img)
	}
}
