package render

import "image/color"

// Global render configuration for the kiosk backdrop and logical canvas.
var (
	Foreground = color.RGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF} // #ffffff
	Background = color.RGBA{R: 0x1B, G: 0x1E, B: 0x2B, A: 0xFF} // #1b1e2b

	// Logical canvas size; scaled to framebuffer.
	CanvasWidth  = 1920
	CanvasHeight = 1080

	// DefaultFPS is the frame rate of ticker driven loops.
	DefaultFPS = 60
	// FBDefaultFPS is lower since every framebuffer frame is a full blit.
	FBDefaultFPS = 30
)
