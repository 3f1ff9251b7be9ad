package mulmocast

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"sync"
)

const (
	seedWidth  = 1024
	seedHeight = 576
)

// SeedImage returns the blank 16:9 PNG sent with every beat,
// so the provider keeps the aspect ratio of the slides.
var SeedImage = sync.OnceValue(func() string {
	img := image.NewRGBA(image.Rect(0, 0, seedWidth, seedHeight))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		panic(err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes())
})
