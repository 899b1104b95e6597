package models

import (
	"fmt"

	"github.com/google/uuid"
)

var migrationNamespace = uuid.MustParse("6f1c2a4e-3b9d-5e07-9a41-52c8d0e7b3f6")

// MigrateV1ToV2 converts a sanitized legacy document. The bucket key wins
// over an item's own popTime, and items without an id get one derived from
// their content so that repeated migrations of the same data agree.
func MigrateV1ToV2(doc DocumentV1) DocumentV2 {
	out := NewDocumentV2()
	for _, at := range doc.bucketKeys() {
		for n, item := range doc.Buckets[at] {
			item.PopTime = at
			if item.ID == "" || hasID(out, item.ID) {
				item.ID = legacyID(item, at, n)
			}
			out.Add(item)
		}
	}
	return out
}

func hasID(doc DocumentV2, id string) bool {
	_, ok := doc.Items[id]
	return ok
}

func legacyID(item SnoozedItem, bucket int64, n int) string {
	name := fmt.Sprintf("%d|%d|%s|%d", bucket, item.CreationTime, item.URL, n)
	return uuid.NewSHA1(migrationNamespace, []byte(name)).String()
}
