package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, s string) any {
	t.Helper()
	var raw any
	require.NoError(t, json.Unmarshal([]byte(s), &raw))
	return raw
}

func raw(t *testing.T, v any) any {
	t.Helper()
	out, err := Raw(v)
	require.NoError(t, err)
	return out
}

const validItemJSON = `{"url":"https://example.com","title":"Example","creationTime":1699990000000,"popTime":1700000000000}`

func TestValidateV1_CorruptedCounter(t *testing.T) {
	doc := decode(t, `{"tabCount":999,"1700000000000":[`+validItemJSON+`]}`)

	result := ValidateV1(doc)
	assert.False(t, result.Valid)
	assert.True(t, result.Repairable)
	assert.Contains(t, result.Errors, "tabCount mismatch: stored 999, actual 1")

	sanitized := SanitizeV1(doc)
	assert.Equal(t, 1, sanitized.TabCount)
	require.Len(t, sanitized.Buckets[1700000000000], 1)
	assert.Equal(t, "https://example.com", sanitized.Buckets[1700000000000][0].URL)
}

func TestValidateV1_StringBucketIsUnrepairable(t *testing.T) {
	doc := decode(t, `{"tabCount":1,"1700000000000":"not an array"}`)

	result := ValidateV1(doc)
	assert.False(t, result.Valid)
	assert.False(t, result.Repairable)
}

func TestValidateV1_NonObject(t *testing.T) {
	for _, input := range []any{nil, "text", []any{}, float64(3)} {
		result := ValidateV1(input)
		assert.False(t, result.Valid)
		assert.False(t, result.Repairable)
	}
}

func TestValidateV1_RepairableProblems(t *testing.T) {
	doc := decode(t, `{
		"abc": [`+validItemJSON+`],
		"1700000000000": [{"title":"no url","creationTime":1,"popTime":2}, {"url":5,"creationTime":"x","popTime":2}],
		"1700000001000": []
	}`)

	result := ValidateV1(doc)
	assert.False(t, result.Valid)
	assert.True(t, result.Repairable)
	assert.Contains(t, result.Errors, "Invalid timestamp key: abc")
	assert.Contains(t, result.Errors, "Missing tabCount key")
	assert.Contains(t, result.Errors, "Empty bucket 1700000001000")
	assert.Contains(t, result.Errors, "Bucket 1700000000000 item 0: Missing required field: url")
	assert.Contains(t, result.Errors, "Bucket 1700000000000 item 1: url must be a string")
	assert.Contains(t, result.Errors, "Bucket 1700000000000 item 1: creationTime must be a number")

	sanitized := SanitizeV1(doc)
	assert.Equal(t, 0, sanitized.TabCount)
	assert.Empty(t, sanitized.Buckets)
}

func TestValidateV1_Valid(t *testing.T) {
	doc := decode(t, `{"tabCount":1,"1700000000000":[`+validItemJSON+`]}`)
	result := ValidateV1(doc)
	assert.True(t, result.Valid)
	assert.True(t, result.Repairable)
	assert.Empty(t, result.Errors)
}

func TestSanitizeV1_NullInput(t *testing.T) {
	doc := SanitizeV1(nil)
	assert.Equal(t, 0, doc.TabCount)
	assert.NotNil(t, doc.Buckets)

	encoded, err := json.Marshal(doc)
	require.NoError(t, err)
	assert.JSONEq(t, `{"tabCount":0}`, string(encoded))
}

func TestSanitizeV1_PreservesUnknownFields(t *testing.T) {
	doc := decode(t, `{"tabCount":1,"1700000000000":[{"url":"https://a","creationTime":1,"popTime":1700000000000,"pinned":true,"windowId":7}]}`)

	sanitized := SanitizeV1(doc)
	item := sanitized.Buckets[1700000000000][0]
	assert.Equal(t, true, item.Extra["pinned"])
	assert.Equal(t, float64(7), item.Extra["windowId"])

	encoded, err := json.Marshal(sanitized)
	require.NoError(t, err)
	assert.Contains(t, string(encoded), `"pinned":true`)
}

func TestSanitizeV1_Idempotent(t *testing.T) {
	inputs := []string{
		`{"tabCount":999,"1700000000000":[` + validItemJSON + `]}`,
		`{"x":1,"1700000000000":[{"url":"a","creationTime":1,"popTime":2},{"nope":true}],"5":[]}`,
		`{"tabCount":-3}`,
		`null`,
		`[1,2,3]`,
		`{"1700000000000":"broken","1700000005000":[` + validItemJSON + `]}`,
	}
	for _, input := range inputs {
		once := SanitizeV1(decode(t, input))
		twice := SanitizeV1(raw(t, once))
		assert.Equal(t, once, twice, input)
		assert.True(t, ValidateV1(raw(t, once)).Valid, input)
	}
}

func TestValidateV2_OrphanPrune(t *testing.T) {
	doc := decode(t, `{
		"items": {"a": {"id":"a","url":"https://a","creationTime":1,"popTime":1700000000000}},
		"schedule": {"1700000000000": ["a","missing"]}
	}`)

	result := ValidateV2(doc)
	assert.False(t, result.Valid)
	assert.True(t, result.Repairable)
	assert.Contains(t, result.Errors, "Schedule bucket 1700000000000 references missing item ID missing")

	sanitized := SanitizeV2(doc)
	assert.Equal(t, map[string][]string{"1700000000000": {"a"}}, sanitized.Schedule)
	assert.Len(t, sanitized.Items, 1)
}

func TestValidateV2_IDMismatchDropsItem(t *testing.T) {
	doc := decode(t, `{
		"items": {
			"a": {"id":"b","url":"https://a","creationTime":1,"popTime":10},
			"c": {"id":"c","url":"https://c","creationTime":2,"popTime":10}
		},
		"schedule": {"10": ["a","c"]}
	}`)

	result := ValidateV2(doc)
	assert.True(t, result.Repairable)
	assert.Contains(t, result.Errors, `ID Validation Mismatch: key a has id "b"`)

	sanitized := SanitizeV2(doc)
	assert.Equal(t, []string{"c"}, sortedItemIDs(sanitized.Items))
	assert.Equal(t, []string{"c"}, sanitized.Schedule["10"])
}

func TestValidateV2_MissingTopLevelKeys(t *testing.T) {
	result := ValidateV2(decode(t, `{"items":{}}`))
	assert.False(t, result.Valid)
	assert.False(t, result.Repairable)

	result = ValidateV2(decode(t, `{"items":[],"schedule":{}}`))
	assert.False(t, result.Repairable)
}

func TestSanitizeV2_NullInput(t *testing.T) {
	doc := SanitizeV2(nil)
	encoded, err := json.Marshal(doc)
	require.NoError(t, err)
	assert.JSONEq(t, `{"items":{},"schedule":{}}`, string(encoded))
}

func TestSanitizeV2_RebuildsSchedule(t *testing.T) {
	doc := decode(t, `{
		"items": {
			"a": {"id":"a","url":"https://a","creationTime":3,"popTime":20},
			"b": {"id":"b","url":"https://b","creationTime":1,"popTime":20},
			"c": {"id":"c","url":"https://c","creationTime":2,"popTime":30}
		},
		"schedule": {"10": ["a"], "20": ["a","a"], "oops": ["c"], "40": 7, "50": []}
	}`)

	result := ValidateV2(doc)
	assert.False(t, result.Valid)
	assert.True(t, result.Repairable)

	sanitized := SanitizeV2(doc)
	assert.Equal(t, map[string][]string{
		"20": {"a", "b"},
		"30": {"c"},
	}, sanitized.Schedule)
	assert.True(t, ValidateV2(raw(t, sanitized)).Valid)
}

func TestSanitizeV2_OrphanFreeAndIdempotent(t *testing.T) {
	inputs := []string{
		`{"items":{"a":{"id":"a","url":"u","creationTime":1,"popTime":5}},"schedule":{"5":["a","x"],"6":["a"]}}`,
		`{"items":{"a":{"id":"a","url":"u","creationTime":1,"popTime":5,"extra":{"k":1}}},"schedule":{}}`,
		`{"items":{"a":{"url":"u","creationTime":1,"popTime":5}},"schedule":{"5":["a"]}}`,
		`{"items":5,"schedule":{}}`,
		`null`,
	}
	for _, input := range inputs {
		once := SanitizeV2(decode(t, input))
		for id, item := range once.Items {
			assert.Contains(t, once.Schedule[BucketKey(item.PopTime)], id, input)
		}
		for key, ids := range once.Schedule {
			assert.NotEmpty(t, ids, key)
			for _, id := range ids {
				assert.Contains(t, once.Items, id, input)
			}
		}
		twice := SanitizeV2(raw(t, once))
		assert.Equal(t, once, twice, input)
	}
}

func TestVersionOf(t *testing.T) {
	assert.Equal(t, V1, VersionOf(decode(t, `{"tabCount":0}`)))
	assert.Equal(t, V2, VersionOf(decode(t, `{"schemaVersion":2,"items":{},"schedule":{}}`)))
	assert.Equal(t, Version(3), VersionOf(decode(t, `{"schemaVersion":3}`)))
	assert.Equal(t, V1, VersionOf(nil))
}

func TestParseDocument_UnsupportedVersion(t *testing.T) {
	_, result := ParseDocument(decode(t, `{"schemaVersion":7}`))
	assert.False(t, result.Valid)
	assert.False(t, result.Repairable)
}

func TestParseDocument_V1MigratesToV2(t *testing.T) {
	doc, result := ParseDocument(decode(t, `{"tabCount":2,"1700000000000":[`+validItemJSON+`,{"url":"https://b","creationTime":5,"popTime":1}]}`))
	require.True(t, result.Valid)
	require.Equal(t, V1, doc.Version)

	v2 := doc.ToV2()
	assert.Equal(t, 2, v2.Len())
	require.Len(t, v2.Schedule["1700000000000"], 2)
	for _, item := range v2.Items {
		assert.Equal(t, int64(1700000000000), item.PopTime)
		assert.NotEmpty(t, item.ID)
	}
	assert.True(t, ValidateV2(raw(t, v2)).Valid)
	assert.Equal(t, v2, doc.ToV2(), "migration ids are deterministic")
}

func TestEnvelope_Marshal(t *testing.T) {
	doc := NewDocumentV2()
	doc.Add(SnoozedItem{ID: "a", URL: "https://a", CreationTime: 1, PopTime: 5})

	encoded, err := json.Marshal(NewEnvelope(doc))
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"schemaVersion": 2,
		"items": {"a": {"id":"a","url":"https://a","creationTime":1,"popTime":5}},
		"schedule": {"5": ["a"]}
	}`, string(encoded))
}

func TestDocumentV2_AddMoveRemove(t *testing.T) {
	doc := NewDocumentV2()
	doc.Add(SnoozedItem{ID: "a", URL: "u", CreationTime: 1, PopTime: 5})
	doc.Add(SnoozedItem{ID: "b", URL: "u", CreationTime: 2, PopTime: 5})
	doc.Add(SnoozedItem{ID: "c", URL: "u", CreationTime: 3, PopTime: 9})

	assert.Equal(t, []string{"5"}, doc.Due(8))
	assert.Equal(t, []string{"5", "9"}, doc.Due(9))
	assert.Equal(t, []string{"a", "b", "c"}, doc.IDsIn(doc.Due(9)))

	require.True(t, doc.Move("a", 9))
	assert.Equal(t, []string{"b"}, doc.Schedule["5"])
	assert.Equal(t, []string{"c", "a"}, doc.Schedule["9"])
	assert.Equal(t, int64(9), doc.Items["a"].PopTime)

	_, ok := doc.Remove("b")
	require.True(t, ok)
	_, exists := doc.Schedule["5"]
	assert.False(t, exists, "empty bucket removed")

	assert.False(t, doc.Move("missing", 1))
	_, ok = doc.Remove("missing")
	assert.False(t, ok)
}

func TestDocumentV2_CloneIsIndependent(t *testing.T) {
	doc := NewDocumentV2()
	doc.Add(SnoozedItem{ID: "a", URL: "u", CreationTime: 1, PopTime: 5, Extra: map[string]any{"k": "v"}})

	clone := doc.Clone()
	clone.Move("a", 10)
	clone.Items["a"].Extra["k"] = "changed"

	assert.Equal(t, int64(5), doc.Items["a"].PopTime)
	assert.Equal(t, []string{"a"}, doc.Schedule["5"])
	assert.Equal(t, "v", doc.Items["a"].Extra["k"])
}

func TestItemRef_Find(t *testing.T) {
	doc := NewDocumentV2()
	doc.Add(SnoozedItem{ID: "a", URL: "u", CreationTime: 11, PopTime: 5})

	item, ok := ItemRef{ID: "a"}.Find(doc)
	require.True(t, ok)
	assert.Equal(t, int64(11), item.CreationTime)

	item, ok = ItemRef{PopTime: 5, CreationTime: 11}.Find(doc)
	require.True(t, ok)
	assert.Equal(t, "a", item.ID)

	_, ok = ItemRef{PopTime: 5, CreationTime: 12}.Find(doc)
	assert.False(t, ok)
}
