package gem

import "errors"

var (
	// ErrInvalidConfig is a configuration fault: bad capacity, slack or chunk size.
	ErrInvalidConfig = errors.New("gem: invalid configuration")

	// ErrMissingCriterion means the host supplied no loss to differentiate.
	ErrMissingCriterion = errors.New("gem: missing criterion")

	// ErrMissingMemory means reference gradients were requested for an
	// experience with no stored samples, i.e. refresh ran before ingestion.
	ErrMissingMemory = errors.New("gem: no episodic memory for experience")

	// ErrDuplicateExperience means Update was called twice for one experience.
	ErrDuplicateExperience = errors.New("gem: experience already stored")

	// ErrStaleReference means projection was asked for without a matching
	// reference-gradient refresh in the same iteration.
	ErrStaleReference = errors.New("gem: reference gradients not refreshed")

	// ErrQPFailed is a numerical fault of the quadratic program.
	ErrQPFailed = errors.New("gem: quadratic program failed")
)
