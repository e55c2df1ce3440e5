package service

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"os"
	"path"
	"path/filepath"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

var (
	ErrNoImageData      = errors.New("no image data provided")
	ErrOverlayTextEmpty = errors.New("overlay text is required")
)

const (
	mediumMaxSize = 1024
	thumbMaxSize  = 256

	jpegQuality = 85

	imageLibraryURLPrefix = "/image_library"
)

// ImageSaveResult 保存后三个尺寸的访问地址
type ImageSaveResult struct {
	Orig   string `json:"orig"`
	Medium string `json:"medium"`
	Thumb  string `json:"thumb"`
}

// ImageLibraryService 创意图库的本地存储：原图、1024 中图、256 缩略图
// 按 UUID 命名写到图库目录，返回相对 URL。
type ImageLibraryService struct {
	Root string
}

func NewImageLibraryService(root string) *ImageLibraryService {
	return &ImageLibraryService{Root: root}
}

// SaveImage 解码并按三个尺寸落盘
func (s *ImageLibraryService) SaveImage(data []byte) (ImageSaveResult, error) {
	if len(data) == 0 {
		return ImageSaveResult{}, ErrNoImageData
	}

	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return ImageSaveResult{}, fmt.Errorf("decode image failed: %w", err)
	}

	uid := uuid.NewString()
	medium := imaging.Fit(img, mediumMaxSize, mediumMaxSize, imaging.Lanczos)
	thumb := imaging.Fit(img, thumbMaxSize, thumbMaxSize, imaging.Lanczos)

	result := ImageSaveResult{}
	saves := []struct {
		subdir string
		img    image.Image
		dst    *string
	}{
		{"orig", img, &result.Orig},
		{"m", medium, &result.Medium},
		{"t", thumb, &result.Thumb},
	}
	for _, save := range saves {
		rel := path.Join(save.subdir, uid+".jpg")
		if err := s.writeJPEG(rel, save.img); err != nil {
			return ImageSaveResult{}, err
		}
		*save.dst = path.Join(imageLibraryURLPrefix, rel)
	}
	return result, nil
}

// OverlayText 在图片底部居中叠加文字（带半透明底色）并保存原尺寸图
func (s *ImageLibraryService) OverlayText(data []byte, text string) (string, error) {
	if len(data) == 0 {
		return "", ErrNoImageData
	}
	if text == "" {
		return "", ErrOverlayTextEmpty
	}

	decoded, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("decode image failed: %w", err)
	}
	img := imaging.Clone(decoded)

	face := basicfont.Face7x13
	textWidth := font.MeasureString(face, text).Ceil()
	textHeight := face.Metrics().Height.Ceil()

	bounds := img.Bounds()
	x := (bounds.Dx() - textWidth) / 2
	if x < 10 {
		x = 10
	}
	y := bounds.Dy() - textHeight - 10

	const margin = 4
	rect := image.Rect(x-margin, y-margin, x+textWidth+margin, y+textHeight+margin)
	draw.DrawMask(img, rect, image.NewUniform(color.Black), image.Point{},
		image.NewUniform(color.Alpha{A: 127}), image.Point{}, draw.Over)

	drawer := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.White),
		Face: face,
		Dot: fixed.Point26_6{
			X: fixed.I(x),
			Y: fixed.I(y + face.Metrics().Ascent.Ceil()),
		},
	}
	drawer.DrawString(text)

	rel := path.Join("orig", uuid.NewString()+".jpg")
	if err := s.writeJPEG(rel, img); err != nil {
		return "", err
	}
	return path.Join(imageLibraryURLPrefix, rel), nil
}

func (s *ImageLibraryService) writeJPEG(rel string, img image.Image) error {
	dst := filepath.Join(s.Root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("create image dir failed: %w", err)
	}
	if err := imaging.Save(img, dst, imaging.JPEGQuality(jpegQuality)); err != nil {
		return fmt.Errorf("save image failed: %w", err)
	}
	return nil
}
