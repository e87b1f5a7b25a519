// Package visual renders slide visuals to images: stills, PDF pages and
// HTML slides captured in headless Chrome.
package visual

import (
	"image"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/gen2brain/go-fitz"
)

type Source interface {
	PageCount() int
	GetPageDimensions(index int) (width, height float64, err error)
	RenderPage(index int, dpi int) (image.Image, error)
	Close() error
}

// Open picks a source by the location's extension: PDF, HTML page (local or
// http) or image file/directory.
func Open(location string) (Source, error) {
	if u, err := url.Parse(location); err == nil && (u.Scheme == "http" || u.Scheme == "https") {
		return NewHTMLSource(location), nil
	}
	switch strings.ToLower(filepath.Ext(location)) {
	case ".pdf":
		return NewFitzPDFSource(location)
	case ".html", ".htm":
		return NewHTMLSource(location), nil
	default:
		return NewImageSource(location)
	}
}

type FitzPDFSource struct {
	doc  *fitz.Document
	path string
}

func NewFitzPDFSource(path string) (*FitzPDFSource, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, err
	}
	return &FitzPDFSource{doc: doc, path: path}, nil
}

func (f *FitzPDFSource) PageCount() int {
	return f.doc.NumPage()
}

func (f *FitzPDFSource) GetPageDimensions(index int) (float64, float64, error) {
	rect, err := f.doc.Bound(index)
	if err != nil {
		return 0, 0, err
	}
	return float64(rect.Dx()), float64(rect.Dy()), nil
}

// RenderPage открывает документ заново: fitz.Document не потокобезопасен.
func (f *FitzPDFSource) RenderPage(index int, dpi int) (image.Image, error) {
	doc, err := fitz.New(f.path)
	if err != nil {
		return nil, err
	}
	defer doc.Close()
	return doc.ImageDPI(index, float64(dpi))
}

func (f *FitzPDFSource) Close() error {
	return f.doc.Close()
}
