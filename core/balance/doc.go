// Package balance searches for a phase assignment of feeder consumers that
// brings the three phases close to equal load while keeping the number and
// cost of rewiring jobs low.
//
// The search is a genetic algorithm working on whole branch groups: a group
// of consumers sharing a route and branch is always moved as one unit.
// Offspring are repaired back under a change budget derived from the current
// unbalance and improved by hill climbing before the next generation. The
// Optimizer runs several independent attempts and returns the best feasible
// champion.
package balance
