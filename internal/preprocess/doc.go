// Package preprocess flattens script units linked by directives into a single
// compilable source unit.
//
// Recognized directives:
//
//	using "Some.Namespace";   namespace import (claimed in both zones)
//	#load <path>              file inclusion (header zone only; inert later)
//	#r <reference>            reference (header zone only; inert later)
//	#!...                     shebang (header zone only)
//
// A unit is split into a header zone and a body zone at the first line that
// is neither blank nor directive-prefixed (#r, #load, #!). Every line is still
// offered to every line processor; the zone only changes what a processor does
// with it.
//
// ORDERING:
//
// Inclusion is depth-first, pre-order: when A loads B, all of B's resolved body
// lines land in the body before any of A's following lines. A file is marked
// loaded before it is parsed, so self and mutual inclusion terminate.
//
// Each loaded file gets one marker line, `#line <n> "<fullpath>"`, placed
// before its first line that is neither a directive nor a namespace import, so
// diagnostics from the compiler point back at the original file.
package preprocess
