// Package extract turns bank-app push-notification text into structured
// payment observations. Each supported source app has one extraction
// rule in a closed lookup table; Extract is total and degrades
// malformed input to a zero observation instead of failing, because it
// runs inside the live stream loop.
package extract
