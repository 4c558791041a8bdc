// Package timeline reconciles original segment timings with synthesized clip
// durations.
//
// Reconcile walks the segments in order while tracking the current output
// position. Gaps before a segment become silence; clips whose length differs
// from the original slot by more than the tolerance are time-stretched to fit;
// segments that failed synthesis become silence spanning the original slot.
// Positions are tracked in whole frames so consecutive placements never leave
// gaps.
package timeline
