// Package logparser implements the log parser & multiplexer (§4.5): it
// buffers a lane child's stdout/stderr, splits it into lines, classifies
// JSON message records into typed ParsedMessages, writes a rotated raw
// sink (verbatim bytes) and a rotated readable sink (ANSI-stripped, one
// formatted line per event), and pokes an activity callback for every
// non-noise line so the stall controller's idle clock advances.
package logparser
