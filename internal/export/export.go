// Package export writes baked atlases to disk for inspection. Files are
// never read back by the pipeline.
package export

import (
	"bufio"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/HugoSmits86/nativewebp"
	"github.com/ftrvxmtrx/tga"
)

// Format is an output image encoding.
type Format int

const (
	FormatWebP Format = iota
	FormatTGA
	FormatPNG
)

// ParseFormat accepts "webp", "tga" or "png", case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(s, ".")) {
	case "webp", "":
		return FormatWebP, nil
	case "tga":
		return FormatTGA, nil
	case "png":
		return FormatPNG, nil
	}
	return 0, fmt.Errorf("export: unknown format %q", s)
}

func (f Format) String() string {
	switch f {
	case FormatTGA:
		return "tga"
	case FormatPNG:
		return "png"
	}
	return "webp"
}

// Ext returns the file extension including the dot.
func (f Format) Ext() string {
	return "." + f.String()
}

// Encode writes img to w in format f. WebP output is lossless.
func Encode(w io.Writer, img image.Image, f Format) error {
	var err error
	switch f {
	case FormatWebP:
		err = nativewebp.Encode(w, img, nil)
	case FormatTGA:
		err = tga.Encode(w, img)
	case FormatPNG:
		err = png.Encode(w, img)
	default:
		return fmt.Errorf("export: unknown format %d", int(f))
	}
	if err != nil {
		return fmt.Errorf("export: %s encode: %w", f, err)
	}
	return nil
}

// WriteFile encodes img into path, creating parent directories.
func WriteFile(path string, img image.Image, f Format) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("export: create dir for %s: %w", path, err)
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("export: create %s: %w", path, err)
	}
	bw := bufio.NewWriter(file)
	if err := Encode(bw, img, f); err != nil {
		file.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		file.Close()
		return fmt.Errorf("export: write %s: %w", path, err)
	}
	return file.Close()
}

// Atlases names the files written for one impostor.
type Atlases struct {
	Albedo    string `json:"albedo"`
	RawAlbedo string `json:"raw_albedo,omitempty"`
	Normal    string `json:"normal"`
}

// WriteAtlases writes the albedo and normal atlases as <name>_albedo and
// <name>_normal in dir. raw, when non-nil, is written as <name>_albedo_raw.
// Returned paths are relative to dir.
func WriteAtlases(dir, name string, albedo, raw, normal image.Image, f Format) (Atlases, error) {
	out := Atlases{
		Albedo: name + "_albedo" + f.Ext(),
		Normal: name + "_normal" + f.Ext(),
	}
	if err := WriteFile(filepath.Join(dir, out.Albedo), albedo, f); err != nil {
		return Atlases{}, err
	}
	if err := WriteFile(filepath.Join(dir, out.Normal), normal, f); err != nil {
		return Atlases{}, err
	}
	if raw != nil {
		out.RawAlbedo = name + "_albedo_raw" + f.Ext()
		if err := WriteFile(filepath.Join(dir, out.RawAlbedo), raw, f); err != nil {
			return Atlases{}, err
		}
	}
	return out, nil
}
