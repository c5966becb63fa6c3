// Package logging configures structured JSON logging for shaderdex.
//
// Logs go to a size-rotated file under ~/.shaderdex/logs/ so query output
// on stdout stays clean; long-running commands additionally mirror records
// to stderr. Setup returns a cleanup function that must run before exit.
package logging
