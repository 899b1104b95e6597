package models

// SanitizeV1 returns the closest valid legacy document. Buckets with a bad
// key or a non-array value are dropped whole, invalid items are dropped
// individually and the counter is recomputed.
func SanitizeV1(raw any) DocumentV1 {
	out := NewDocumentV1()
	doc, ok := raw.(map[string]any)
	if !ok || doc == nil {
		return out
	}

	for _, key := range sortedKeys(doc) {
		if key == TabCountKey || key == KeySchemaVersion {
			continue
		}
		at, ok := parseBucketKey(key)
		if !ok {
			continue
		}
		bucket, ok := doc[key].([]any)
		if !ok {
			continue
		}
		var kept []SnoozedItem
		for _, rawItem := range bucket {
			if len(ValidateItem(rawItem)) > 0 {
				continue
			}
			kept = append(kept, itemFromMap(rawItem.(map[string]any)))
		}
		if len(kept) == 0 {
			continue
		}
		out.Buckets[at] = append(out.Buckets[at], kept...)
		out.TabCount += len(kept)
	}
	return out
}

// SanitizeV2 returns the closest valid current document. Items are the
// source of truth; the schedule is rebuilt from them, keeping the existing
// order of ids that were already in their own bucket.
func SanitizeV2(raw any) DocumentV2 {
	out := NewDocumentV2()
	doc, ok := raw.(map[string]any)
	if !ok || doc == nil {
		return out
	}
	items, _ := doc[KeyItems].(map[string]any)
	schedule, _ := doc[KeySchedule].(map[string]any)

	for _, key := range sortedKeys(items) {
		if len(ValidateItem(items[key])) > 0 {
			continue
		}
		item := itemFromMap(items[key].(map[string]any))
		if item.ID != key {
			continue
		}
		out.Items[key] = item
	}

	placed := make(map[string]struct{}, len(out.Items))
	for _, key := range sortedKeys(schedule) {
		ids, _ := schedule[key].([]any)
		for _, rawID := range ids {
			id, ok := rawID.(string)
			if !ok {
				continue
			}
			item, ok := out.Items[id]
			if !ok || BucketKey(item.PopTime) != key {
				continue
			}
			if _, dup := placed[id]; dup {
				continue
			}
			placed[id] = struct{}{}
			out.Schedule[key] = append(out.Schedule[key], id)
		}
	}

	var unplaced []SnoozedItem
	for id, item := range out.Items {
		if _, ok := placed[id]; !ok {
			unplaced = append(unplaced, item)
		}
	}
	sortItems(unplaced)
	for _, item := range unplaced {
		key := BucketKey(item.PopTime)
		out.Schedule[key] = append(out.Schedule[key], item.ID)
	}
	return out
}
