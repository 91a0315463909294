// Package models defines the core domain models for binarypay.
//
// # Models
//
//   - Participant: one node of the binary placement tree, with its lifetime
//     eligibility flag, carry-forward counts and income balances
//   - DailySettlement: the audit row of one participant's settlement for one date
//   - SponsorCredit: a mirrored credit from a child's day result to its upline receiver
//   - RunLock: the mutual-exclusion record for a full batch run of one date
//   - RunSummary: the outcome of one orchestrator run, surfaced to operators
//
// # Design Principles
//
// 1. **IDs, not pointers**: uplines are referenced by participant ID strings
// 2. **Dates are days**: settlement dates are UTC midnights, persisted as "2006-01-02"
// 3. **Money is decimal**: every amount is a shopspring decimal, never a float
// 4. **Append-only audit**: DailySettlement and SponsorCredit rows are never rewritten
//    by anything other than the settlement engine
package models
