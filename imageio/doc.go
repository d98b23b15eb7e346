// Package imageio decodes images into normalized float pixel arrays.
//
// Decoding is delegated to github.com/anthonynsimon/bild (PNG, JPEG, BMP).
// Pixels are scaled to [0, 1]; grayscale conversion uses the ITU-R BT.709
// luminance weights so results match common scientific image tooling.
package imageio
