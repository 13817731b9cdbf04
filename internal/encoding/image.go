package encoding

import (
	"bytes"
	"fmt"
	"image"

	// Decoders for the image formats the catalog and clients use.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
)

// clipImageSize is the square input resolution of the CLIP vision model.
const clipImageSize = 224

// CLIP's per-channel normalization constants (RGB).
var (
	clipMean = [3]float32{0.48145466, 0.4578275, 0.40821073}
	clipStd  = [3]float32{0.26862954, 0.26130258, 0.27577711}
)

// PreprocessImage decodes raw image bytes and converts them to the CLIP
// vision input: a 1x3x224x224 CHW float32 tensor, bilinearly resized and
// per-channel normalized.
func PreprocessImage(data []byte) ([]float32, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return imageToTensor(img), nil
}

// imageToTensor resizes img to clipImageSize and writes normalized CHW floats.
func imageToTensor(img image.Image) []float32 {
	bounds := img.Bounds()
	srcW := bounds.Dx()
	srcH := bounds.Dy()

	out := make([]float32, 3*clipImageSize*clipImageSize)
	plane := clipImageSize * clipImageSize

	for y := 0; y < clipImageSize; y++ {
		for x := 0; x < clipImageSize; x++ {
			r, g, b := bilinearSample(img, bounds,
				float64(x)/float64(clipImageSize-1)*float64(srcW-1),
				float64(y)/float64(clipImageSize-1)*float64(srcH-1))
			i := y*clipImageSize + x
			out[i] = (r - clipMean[0]) / clipStd[0]
			out[plane+i] = (g - clipMean[1]) / clipStd[1]
			out[2*plane+i] = (b - clipMean[2]) / clipStd[2]
		}
	}
	return out
}

// bilinearSample returns the interpolated RGB at fractional source
// coordinates, each channel scaled to [0,1].
func bilinearSample(img image.Image, bounds image.Rectangle, fx, fy float64) (float32, float32, float32) {
	x0 := int(fx)
	y0 := int(fy)
	x1 := x0 + 1
	y1 := y0 + 1
	if x1 >= bounds.Dx() {
		x1 = bounds.Dx() - 1
	}
	if y1 >= bounds.Dy() {
		y1 = bounds.Dy() - 1
	}
	dx := float32(fx - float64(x0))
	dy := float32(fy - float64(y0))

	r00, g00, b00 := rgbAt(img, bounds.Min.X+x0, bounds.Min.Y+y0)
	r10, g10, b10 := rgbAt(img, bounds.Min.X+x1, bounds.Min.Y+y0)
	r01, g01, b01 := rgbAt(img, bounds.Min.X+x0, bounds.Min.Y+y1)
	r11, g11, b11 := rgbAt(img, bounds.Min.X+x1, bounds.Min.Y+y1)

	lerp2 := func(v00, v10, v01, v11 float32) float32 {
		top := v00*(1-dx) + v10*dx
		bottom := v01*(1-dx) + v11*dx
		return top*(1-dy) + bottom*dy
	}
	return lerp2(r00, r10, r01, r11), lerp2(g00, g10, g01, g11), lerp2(b00, b10, b01, b11)
}

func rgbAt(img image.Image, x, y int) (float32, float32, float32) {
	r, g, b, _ := img.At(x, y).RGBA()
	return float32(r) / 65535, float32(g) / 65535, float32(b) / 65535
}
