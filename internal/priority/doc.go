// Package priority classifies and ranks scored tasks.
//
// Tasks are flat views over scored tree nodes with scores in the unit range.
// Classify sorts them into the four quadrants of the urgency/importance
// matrix using an inclusive 0.5 threshold on both axes. TopN ranks by
// importance, urgency or the combined score, and CompleteTopN bulk-completes
// the most important tasks. Completion writes through to the tree.
package priority
