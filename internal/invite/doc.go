// Package invite manages royalty invitations: tokens sent to collaborators
// who must accept their share before a split revision can go active.
//
// Confirming an invitation resolves the split's beneficiary account,
// consolidates any same-account splits already confirmed in the revision,
// and, once every split in the revision is confirmed, flips the revision to
// active while retiring its predecessor. The whole flow runs inside one
// per-song transaction and is idempotent: re-confirming an accepted token
// returns the same split without double-counting.
package invite
