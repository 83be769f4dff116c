// Package nplusone groups captured queries by normalized shape and flags
// repeated shapes, the signature of N+1 query loops.
//
// GroupQueries and Classify are pure functions; Detect combines them into
// reportable findings. Nothing in this package holds state between calls.
package nplusone
