// Package conv provides checked integer conversions for artifact headers and
// array shapes read from untrusted bytes.
package conv
