// Package field holds the numeric helpers shared by the analysis
// algorithms: small vector types, central-difference gradients, safe
// sampling wrappers and adapters from an evaluator to plain Go functions.
//
// Non-finite samples are never errors here. Every adapter coerces NaN and
// ±Inf to a default so one bad sample cannot abort a field sweep.
package field
