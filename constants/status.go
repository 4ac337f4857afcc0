package constants

// ProcessingStatus is the canonical status for rows in processing_records.
type ProcessingStatus string

// Stable values (store these exact strings in DB).
const (
	StatusPending    ProcessingStatus = "PENDING"    // record created, not yet processed
	StatusProcessing ProcessingStatus = "PROCESSING" // extraction in flight; acts as the per-document lock
	StatusCompleted  ProcessingStatus = "COMPLETED"  // terminal success, extracted_data present
	StatusFailed     ProcessingStatus = "FAILED"     // terminal failure, error_detail present
)

// CanStartProcessing reports whether a record in s may transition to PROCESSING.
// FAILED is the only re-entrant source; COMPLETED and PROCESSING never are.
func (s ProcessingStatus) CanStartProcessing() bool {
	return s == StatusPending || s == StatusFailed
}

// Terminal reports whether s is a terminal status.
func (s ProcessingStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}
