package media

import (
	"image/color"
	"path/filepath"
	"strings"
)

// background used when flattening transparent images for JPEG output
var imageWhite = color.NRGBA{R: 255, G: 255, B: 255, A: 255}

var supportedImageExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".bmp": true, ".tif": true, ".tiff": true,
}

// IsAllowedImage checks if the filename has an allow-listed raster image extension
func IsAllowedImage(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return supportedImageExtensions[ext]
}
