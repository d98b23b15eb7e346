// Package parallel provides an order-preserving bounded parallel map.
package parallel
