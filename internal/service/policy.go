package service

import "loved-api/internal/models"

// Review scores. -2 and 2 are retired and only survive on reviews that already hold them.
const (
	ScoreStrongRejection   = -4
	ScoreDeprecatedReject  = -2
	ScoreRejection         = -1
	ScoreNeutral           = 0
	ScoreSupport           = 1
	ScoreDeprecatedSupport = 2
	ScoreStrongSupport     = 3
)

// isDeprecatedScore reports whether score is one of the retired values
func isDeprecatedScore(score int) bool {
	return score == ScoreDeprecatedReject || score == ScoreDeprecatedSupport
}

// allowDeprecatedScore reports whether requested may be written given the
// reviewer's existing review. Retired scores may only be kept, never set.
// Remove once no stored review holds -2 or 2.
func allowDeprecatedScore(existing *models.Review, requested int) bool {
	if !isDeprecatedScore(requested) {
		return true
	}
	return existing != nil && existing.Score == requested
}

// requiresCaptainScore reports whether score needs the captain capability for the mode
func requiresCaptainScore(score int) bool {
	return score == ScoreStrongRejection || score == ScoreNeutral
}

// validScore reports whether score is in the review score domain
func validScore(score int) bool {
	return score >= ScoreStrongRejection && score <= ScoreStrongSupport
}
