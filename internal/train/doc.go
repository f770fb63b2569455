// Package train releases an ordered set of repositories as one unit.
//
// Each repository goes through the same protocol: its descriptor is rewritten with the
// planned versions, the change is committed and tagged, and the branch and tag are
// pushed. Every completed step records a compensating action in a per-repository
// checkpoint. When any repository fails, its checkpoint is replayed in reverse and then
// the checkpoints of every repository released earlier in the run are replayed too, so
// a run either releases the whole train or leaves every repository at its original commit.
//
// Callers must ensure that no two runs operate on the same working copies concurrently.
package train
