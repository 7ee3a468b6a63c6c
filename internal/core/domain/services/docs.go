// Package services provides domain services that work across the order and
// courier aggregates.
//
// The package includes:
//   - CandidateSelector: picks the couriers a dispatch round is offered to
//   - RandomCodeGenerator: issues handover codes
//   - RuleSet: the time-based progression rules run by the scheduler
package services
