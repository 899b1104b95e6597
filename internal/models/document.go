package models

import (
	"sort"
	"strconv"

	json "github.com/goccy/go-json"
	"github.com/spf13/cast"
)

type Version int

const (
	V1 Version = 1
	V2 Version = 2
)

// Persisted keys.
const (
	KeySnoozedTabs   = "snoozedTabs"
	KeySchemaVersion = "schemaVersion"
	KeyItems         = "items"
	KeySchedule      = "schedule"
	KeySettings      = "settings"
	TabCountKey      = "tabCount"
)

func BucketKey(popTime int64) string {
	return strconv.FormatInt(popTime, 10)
}

func parseBucketKey(key string) (int64, bool) {
	v, err := strconv.ParseInt(key, 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// DocumentV1 is the legacy layout: timestamp buckets holding whole items next
// to a stored counter.
type DocumentV1 struct {
	TabCount int
	Buckets  map[int64][]SnoozedItem
}

func NewDocumentV1() DocumentV1 {
	return DocumentV1{Buckets: make(map[int64][]SnoozedItem)}
}

func (d DocumentV1) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(d.Buckets)+1)
	out[TabCountKey] = d.TabCount
	for key, items := range d.Buckets {
		out[BucketKey(key)] = items
	}
	return json.Marshal(out)
}

func (d DocumentV1) bucketKeys() []int64 {
	keys := make([]int64, 0, len(d.Buckets))
	for k := range d.Buckets {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(a, b int) bool { return keys[a] < keys[b] })
	return keys
}

// DocumentV2 keeps items by id and a schedule of ids keyed by wake instant.
type DocumentV2 struct {
	Items    map[string]SnoozedItem `json:"items"`
	Schedule map[string][]string    `json:"schedule"`
}

func NewDocumentV2() DocumentV2 {
	return DocumentV2{
		Items:    make(map[string]SnoozedItem),
		Schedule: make(map[string][]string),
	}
}

func (d DocumentV2) Len() int {
	return len(d.Items)
}

// Add stores the item and appends its id to the bucket of its popTime.
// An item with the same id is replaced.
func (d *DocumentV2) Add(item SnoozedItem) {
	if _, ok := d.Items[item.ID]; ok {
		d.Remove(item.ID)
	}
	d.Items[item.ID] = item
	key := BucketKey(item.PopTime)
	d.Schedule[key] = append(d.Schedule[key], item.ID)
}

func (d *DocumentV2) Remove(id string) (SnoozedItem, bool) {
	item, ok := d.Items[id]
	if !ok {
		return SnoozedItem{}, false
	}
	delete(d.Items, id)
	d.unschedule(id, BucketKey(item.PopTime))
	return item, true
}

// Move rewrites the item's popTime and relocates it to the matching bucket.
func (d *DocumentV2) Move(id string, popTime int64) bool {
	item, ok := d.Items[id]
	if !ok {
		return false
	}
	d.unschedule(id, BucketKey(item.PopTime))
	item.PopTime = popTime
	d.Items[id] = item
	key := BucketKey(popTime)
	d.Schedule[key] = append(d.Schedule[key], id)
	return true
}

func (d *DocumentV2) unschedule(id, key string) {
	ids := d.Schedule[key]
	kept := ids[:0:0]
	for _, v := range ids {
		if v != id {
			kept = append(kept, v)
		}
	}
	if len(kept) == 0 {
		delete(d.Schedule, key)
		return
	}
	d.Schedule[key] = kept
}

// Due returns the bucket keys whose instant is at or before nowMs, oldest first.
func (d DocumentV2) Due(nowMs int64) []string {
	type bucket struct {
		key string
		at  int64
	}
	var due []bucket
	for key := range d.Schedule {
		at, ok := parseBucketKey(key)
		if ok && at <= nowMs {
			due = append(due, bucket{key: key, at: at})
		}
	}
	sort.Slice(due, func(a, b int) bool { return due[a].at < due[b].at })

	keys := make([]string, len(due))
	for i, b := range due {
		keys[i] = b.key
	}
	return keys
}

// IDsIn unions the ids of the given buckets, keeping first occurrence order.
func (d DocumentV2) IDsIn(keys []string) []string {
	seen := make(map[string]struct{})
	var ids []string
	for _, key := range keys {
		for _, id := range d.Schedule[key] {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	return ids
}

// Ordered lists the items by popTime, then creationTime.
func (d DocumentV2) Ordered() []SnoozedItem {
	items := make([]SnoozedItem, 0, len(d.Items))
	for _, item := range d.Items {
		items = append(items, item)
	}
	sortItems(items)
	sort.SliceStable(items, func(a, b int) bool { return items[a].PopTime < items[b].PopTime })
	return items
}

func (d DocumentV2) Clone() DocumentV2 {
	out := NewDocumentV2()
	for id, item := range d.Items {
		if item.Extra != nil {
			extra := make(map[string]any, len(item.Extra))
			for k, v := range item.Extra {
				extra[k] = v
			}
			item.Extra = extra
		}
		out.Items[id] = item
	}
	for key, ids := range d.Schedule {
		out.Schedule[key] = append([]string(nil), ids...)
	}
	return out
}

// Envelope is the version-explicit form of a V2 document used for
// persistence and export.
type Envelope struct {
	SchemaVersion Version `json:"schemaVersion"`
	DocumentV2
}

func NewEnvelope(doc DocumentV2) Envelope {
	return Envelope{SchemaVersion: V2, DocumentV2: doc}
}

// Document is a tagged union over the supported store layouts.
type Document struct {
	Version Version
	V1      *DocumentV1
	V2      *DocumentV2
}

// ToV2 returns the current-layout view, migrating legacy documents.
func (d Document) ToV2() DocumentV2 {
	switch {
	case d.V2 != nil:
		return *d.V2
	case d.V1 != nil:
		return MigrateV1ToV2(*d.V1)
	}
	return NewDocumentV2()
}

// VersionOf reads the explicit schemaVersion of a raw document; documents
// without one are legacy V1.
func VersionOf(raw any) Version {
	m, ok := raw.(map[string]any)
	if !ok {
		return V1
	}
	v, ok := m[KeySchemaVersion]
	if !ok || v == nil {
		return V1
	}
	n, err := cast.ToIntE(v)
	if err != nil {
		return 0
	}
	return Version(n)
}

// ParseDocument validates a raw document against its declared version and
// sanitizes it when the damage is repairable. The returned document is only
// meaningful when the result is valid or repairable.
func ParseDocument(raw any) (Document, ValidationResult) {
	version := VersionOf(raw)
	result := Validate(raw, version)
	if !result.Valid && !result.Repairable {
		return Document{Version: version}, result
	}

	switch version {
	case V2:
		doc := SanitizeV2(raw)
		return Document{Version: V2, V2: &doc}, result
	default:
		doc := SanitizeV1(raw)
		return Document{Version: V1, V1: &doc}, result
	}
}

// Raw converts a typed value to its generic JSON form.
func Raw(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}
