// Package config holds the run configuration of the pipeline.
//
// A Config is a plain value: it is loaded once, validated and then passed by
// value into every component, so no component observes later changes.
package config
