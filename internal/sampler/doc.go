// Package sampler generates linked samples with a controlled false-positive rate.
//
// A sample of size n at precision p holds round(p*n) correct links, where the
// predictor and response come from the same population record, and n-round(p*n)
// false links, where the response belongs to a different, independently drawn
// record. Every draw is without replacement and the three draw pools (correct
// records, false-link predictors, false-link responses) never overlap, so a
// false link can never accidentally pair a record with itself.
//
// Randomness is always supplied by the caller as a *rand.Rand. The package holds
// no global state.
package sampler
