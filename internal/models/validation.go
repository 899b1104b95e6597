package models

import (
	"fmt"
	"math"
	"sort"

	"github.com/spf13/cast"
)

// ValidationResult reports every structural problem found in a document.
// Repairable is true when sanitizing recovers a document without guessing.
type ValidationResult struct {
	Valid      bool     `json:"valid"`
	Errors     []string `json:"errors"`
	Repairable bool     `json:"repairable"`
}

type validator struct {
	errors       []string
	unrepairable bool
}

func (v *validator) repairable(format string, args ...any) {
	v.errors = append(v.errors, fmt.Sprintf(format, args...))
}

func (v *validator) fatal(format string, args ...any) {
	v.errors = append(v.errors, fmt.Sprintf(format, args...))
	v.unrepairable = true
}

func (v *validator) result() ValidationResult {
	return ValidationResult{
		Valid:      len(v.errors) == 0,
		Errors:     v.errors,
		Repairable: !v.unrepairable,
	}
}

// Validate dispatches on the declared version.
func Validate(raw any, version Version) ValidationResult {
	switch version {
	case V1:
		return ValidateV1(raw)
	case V2:
		return ValidateV2(raw)
	}
	v := &validator{}
	v.fatal("Unsupported schemaVersion: %d", version)
	return v.result()
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func ValidateV1(raw any) ValidationResult {
	v := &validator{}
	doc, ok := raw.(map[string]any)
	if !ok || doc == nil {
		v.fatal("Document must be an object")
		return v.result()
	}

	actual := 0
	for _, key := range sortedKeys(doc) {
		if key == TabCountKey || key == KeySchemaVersion {
			continue
		}
		if _, ok := parseBucketKey(key); !ok {
			v.repairable("Invalid timestamp key: %s", key)
			continue
		}
		bucket, ok := doc[key].([]any)
		if !ok {
			v.fatal("Bucket %s must be an array", key)
			continue
		}
		if len(bucket) == 0 {
			v.repairable("Empty bucket %s", key)
		}
		actual += len(bucket)
		for i, item := range bucket {
			for _, msg := range ValidateItem(item) {
				v.repairable("Bucket %s item %d: %s", key, i, msg)
			}
		}
	}

	stored, ok := doc[TabCountKey]
	switch {
	case !ok:
		v.repairable("Missing tabCount key")
	case !isCount(stored):
		v.repairable("Invalid tabCount: %v", stored)
	default:
		if n := cast.ToInt64(stored); n != int64(actual) {
			v.repairable("tabCount mismatch: stored %d, actual %d", n, actual)
		}
	}
	return v.result()
}

func isCount(v any) bool {
	if !isNumber(v) {
		return false
	}
	f, ok := v.(float64)
	if ok && (math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f)) {
		return false
	}
	return cast.ToInt64(v) >= 0
}

func ValidateV2(raw any) ValidationResult {
	v := &validator{}
	doc, ok := raw.(map[string]any)
	if !ok || doc == nil {
		v.fatal("Document must be an object")
		return v.result()
	}
	items, itemsOK := doc[KeyItems].(map[string]any)
	if !itemsOK {
		v.fatal("Missing or invalid items object")
	}
	schedule, scheduleOK := doc[KeySchedule].(map[string]any)
	if !scheduleOK {
		v.fatal("Missing or invalid schedule object")
	}
	if !itemsOK || !scheduleOK {
		return v.result()
	}

	valid := make(map[string]SnoozedItem, len(items))
	for _, key := range sortedKeys(items) {
		errs := ValidateItem(items[key])
		for _, msg := range errs {
			v.repairable("Item %s: %s", key, msg)
		}
		if len(errs) > 0 {
			continue
		}
		item := itemFromMap(items[key].(map[string]any))
		if item.ID != key {
			v.repairable("ID Validation Mismatch: key %s has id %q", key, item.ID)
			continue
		}
		valid[key] = item
	}

	placed := make(map[string]string)
	for _, key := range sortedKeys(schedule) {
		if _, ok := parseBucketKey(key); !ok {
			v.repairable("Invalid schedule key: %s", key)
			continue
		}
		ids, ok := schedule[key].([]any)
		if !ok {
			v.repairable("Schedule bucket %s must be an array", key)
			continue
		}
		if len(ids) == 0 {
			v.repairable("Empty schedule bucket %s", key)
		}
		for _, rawID := range ids {
			id, ok := rawID.(string)
			if !ok {
				v.repairable("Schedule bucket %s has non-string ID %v", key, rawID)
				continue
			}
			if _, exists := items[id]; !exists {
				v.repairable("Schedule bucket %s references missing item ID %s", key, id)
				continue
			}
			if prev, dup := placed[id]; dup {
				v.repairable("Item ID %s scheduled more than once (%s, %s)", id, prev, key)
				continue
			}
			placed[id] = key
			if item, ok := valid[id]; ok && BucketKey(item.PopTime) != key {
				v.repairable("Item ID %s scheduled in %s but pops at %d", id, key, item.PopTime)
			}
		}
	}

	for _, id := range sortedItemIDs(valid) {
		if _, ok := placed[id]; !ok {
			v.repairable("Item ID %s missing from schedule bucket %s", id, BucketKey(valid[id].PopTime))
		}
	}
	return v.result()
}

func sortedItemIDs(items map[string]SnoozedItem) []string {
	ids := make([]string, 0, len(items))
	for id := range items {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
