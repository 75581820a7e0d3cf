package emulator

import (
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	ScreenWidth  = 240
	ScreenHeight = 160

	// Background palette entry 0, the backdrop colour (BGR555)
	registerPalette0 uint32 = 0x05000000
)

// videoController handles the frame counter, the backdrop colour and the
// rendering of the text console
type videoController struct {
	frame    uint64
	backdrop uint16

	// Interrupt is true if the video wants to trigger the V-Blank interrupt
	Interrupt *interruptSource
}

func newVideoController() *videoController {
	return &videoController{
		Interrupt: newInterruptSource(),
	}
}

// Read16 is exposed in the address space, and may be read by the program
func (v *videoController) Read16(address uint32) (uint16, bool) {
	if address == registerPalette0 {
		return v.backdrop, true
	}
	return 0, false
}

// Write16 is exposed in the address space, and may be written to by the program
func (v *videoController) Write16(address uint32, value uint16) bool {
	if address == registerPalette0 {
		v.backdrop = value & 0x7FFF
		return true
	}
	return false
}

// Cycle finishes the current frame and enters V-Blank
func (v *videoController) Cycle() {
	v.frame++
	v.Interrupt.Set()
}

// Render draws the console tail in white on the backdrop colour
func (v *videoController) Render(c *console) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, ScreenWidth, ScreenHeight))

	draw.Draw(img, img.Bounds(), image.NewUniform(PaletteColor(v.backdrop)), image.Point{}, draw.Src)

	face := basicfont.Face7x13
	lineHeight := face.Metrics().Height.Ceil()
	drawer := font.Drawer{
		Dst:  img,
		Src:  image.White,
		Face: face,
	}

	for i, line := range c.Tail(ScreenHeight / lineHeight) {
		drawer.Dot = fixed.P(2, (i+1)*lineHeight-face.Descent)
		drawer.DrawString(line)
	}
	return img
}

// PaletteColor converts a BGR555 palette entry for display
func PaletteColor(c uint16) color.RGBA {
	r, g, b := bgr555ToRGBA(c)
	return color.RGBA{R: r, G: g, B: b, A: 255}
}

func (v *videoController) String() string {
	return "VIDEO"
}
