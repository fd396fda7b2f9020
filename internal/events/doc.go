// Package events groups capture timestamps into events: runs of photos with no
// gap between chronological neighbours larger than a threshold.
//
// Segmentation is a single pass over stamps sorted by time; a gap exactly
// equal to the threshold keeps the current event. Assign numbers events from
// 1 within each year, or each year and month.
package events
