package sync

import (
	"log/slog"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/openmined/themesync/internal/assets"
	"github.com/openmined/themesync/internal/localfs"
)

// Reconciler finds remote assets that no longer exist locally.
type Reconciler struct {
	classifier *PathClassifier
	lfs        *localfs.FS
}

func NewReconciler(classifier *PathClassifier, lfs *localfs.FS) *Reconciler {
	return &Reconciler{classifier: classifier, lfs: lfs}
}

// ComputeOrphans returns the keys of remote files that have no eligible local
// counterpart and are themselves eligible under force. local holds absolute
// paths as returned by localfs.FS.GetFiles.
func (r *Reconciler) ComputeOrphans(remote []*assets.Asset, local []string, force bool) mapset.Set[string] {
	localSet := mapset.NewThreadUnsafeSet[string]()
	for _, abs := range local {
		rel, err := r.lfs.RelPath(abs)
		if err != nil {
			slog.Debug("reconcile skip", "path", abs, "error", err)
			continue
		}
		if r.classifier.IsEligible(rel, force) {
			localSet.Add(rel)
		}
	}

	orphans := mapset.NewThreadUnsafeSet[string]()
	for _, a := range remote {
		if a == nil || a.IsDir() {
			continue
		}
		if localSet.Contains(a.Key) {
			continue
		}
		if r.classifier.IsEligible(a.Key, force) {
			orphans.Add(a.Key)
		}
	}

	slog.Debug("reconcile", "remote", len(remote), "local", localSet.Cardinality(), "orphans", orphans.Cardinality())
	return orphans
}
