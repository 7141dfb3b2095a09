// Package trash holds the lifecycle policy shared by the folder and file
// managers: a delete request is either a soft delete (move into the Bin
// root) or a hard delete (permanent purge), depending on where the target
// currently lives in the tree.
package trash

// Action is the outcome of classifying a delete request
type Action int

const (
	// ActionSoftDelete reparents the target under the Bin root
	ActionSoftDelete Action = iota
	// ActionHardDelete removes the target permanently
	ActionHardDelete
)

func (a Action) String() string {
	switch a {
	case ActionSoftDelete:
		return "soft-delete"
	case ActionHardDelete:
		return "hard-delete"
	default:
		return "unknown"
	}
}

// Classify decides the delete action for a target whose highest ancestor
// is highestAncestorID. Targets already under the user's Bin root are
// purged; everything else is moved into the Bin. Descendants of a
// soft-deleted node are never re-classified individually: only the moved
// node's parent changes, and ancestry is resolved through the chain at
// query time.
func Classify(highestAncestorID, binRootID string) Action {
	if highestAncestorID == binRootID {
		return ActionHardDelete
	}
	return ActionSoftDelete
}
