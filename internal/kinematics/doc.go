// Package kinematics derives per-entity speed, acceleration and heading from
// a frame-ordered stream of planar positions, and smooths each signal with a
// trailing moving average.
//
// Responsibilities: bounded per-entity position history, the per-frame
// kinematics calculation, and per-metric moving-average windows.
// Key types: Params, HistoryStore, Calculator, Smoother, Estimator.
//
// Units: speeds are computed and stored in metres per second. Conversion to
// the display unit (km/h by default) happens once, in Metrics.Speed.
// Acceleration is m/s² and orientation is degrees in [0, 360).
//
// All state is owned by the caller's Estimator (or HistoryStore/Smoother
// pair); there is no package-level state. Frames must be fed in increasing
// frame-index order. Nothing in this package is safe for concurrent use.
package kinematics
