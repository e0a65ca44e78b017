// Package simulator produces synthetic feeders for demos and load tests and
// plays the work-order system that acknowledges published plans.
package simulator
