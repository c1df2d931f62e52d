// Package services holds cross-cutting helpers for the pipeline's external
// collaborators: the error taxonomy used to classify failures, the shared
// retry/backoff policy, and context annotations that flow into structured
// logs.
//
// Failure classification drives state-machine behavior: precondition and
// validation errors are permanent and move an item straight to failed,
// while transient errors are retried with backoff before giving up.
package services
