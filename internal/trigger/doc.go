// Package trigger implements the Trigger Pipeline: it decides which
// filesystem changes count and converts bursts of them into a single Job
// launch.
//
// A change passes through three steps:
//
//  1. Filter: the full path must match the configured regular expression
//     (unanchored).
//  2. Cache: with caching enabled, a path that qualified once never
//     qualifies again for the life of the process.
//  3. Debounce: a single timer shared by all paths is re-armed; the launch
//     happens once the configured interval passes without another
//     qualifying change.
//
// Launches run in the background and never block event delivery. Their
// failures are logged and counted, and the pipeline stays armed.
package trigger
