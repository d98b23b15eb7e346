// Package feature extracts corner-anchored HOG descriptor maps from images.
//
// The pipeline per image is:
//
//	gray → FAST corner response → corner peaks → alpha patches → HOG maps
//
// Extract always yields exactly alpha channels. Missing keypoints and patches
// that would leave the image degrade to all-zero patches.
package feature
