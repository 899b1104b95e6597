package models

import (
	"github.com/google/uuid"
)

// MergeV2 adds every imported item to a copy of current. Imported ids that
// already exist are re-keyed and colliding creation times are bumped so
// nothing is overwritten and legacy references stay unambiguous.
func MergeV2(current, imported DocumentV2) (DocumentV2, int) {
	merged := current.Clone()
	used := creationTimes(merged)
	added := 0
	for _, item := range imported.Ordered() {
		if hasID(merged, item.ID) {
			item.ID = uuid.NewString()
		}
		item.CreationTime = nextFree(used, item.CreationTime)
		used[item.CreationTime] = struct{}{}
		merged.Add(item)
		added++
	}
	return merged, added
}

// UniqueCreationTime bumps ms until no item in doc uses it.
func UniqueCreationTime(doc DocumentV2, ms int64) int64 {
	return nextFree(creationTimes(doc), ms)
}

func creationTimes(doc DocumentV2) map[int64]struct{} {
	used := make(map[int64]struct{}, len(doc.Items))
	for _, item := range doc.Items {
		used[item.CreationTime] = struct{}{}
	}
	return used
}

func nextFree(used map[int64]struct{}, ms int64) int64 {
	for {
		if _, ok := used[ms]; !ok {
			return ms
		}
		ms++
	}
}
