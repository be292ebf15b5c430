package extractor

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"

	// Register decoders for the formats listing images arrive in.
	_ "image/gif"
	_ "image/png"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// modelInputSize is the square edge length the extractor model expects.
const modelInputSize = 224

// jpegQuality for the re-encoded model input.
const jpegQuality = 90

// prepareImage decodes an image of any supported format and resizes it
// bilinearly to the model's expected input, re-encoded as JPEG.
func prepareImage(data []byte) ([]byte, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	dst := image.NewRGBA(image.Rect(0, 0, modelInputSize, modelInputSize))
	draw.BiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("encode model input: %w", err)
	}
	return buf.Bytes(), nil
}
