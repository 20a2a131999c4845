package dto

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodePatch(t *testing.T, body string) PatchSubmissionRequest {
	t.Helper()
	var req PatchSubmissionRequest
	require.NoError(t, json.Unmarshal([]byte(body), &req))
	return req
}

func TestOptionalStringDistinguishesNullFromAbsent(t *testing.T) {
	req := decodePatch(t, `{"entryId":"e-1","matchGameAccountId":null}`)
	assert.True(t, req.MatchGameAccountID.Set)
	assert.Nil(t, req.MatchGameAccountID.Value)
	assert.False(t, req.ReferenceDate.Set)

	req = decodePatch(t, `{"entryId":"e-1","matchGameAccountId":"acc-1"}`)
	require.NotNil(t, req.MatchGameAccountID.Value)
	assert.Equal(t, "acc-1", *req.MatchGameAccountID.Value)
}

func TestPatchKind(t *testing.T) {
	cases := map[string]struct {
		body string
		want PatchKind
	}{
		"edit":              {`{"entryId":"e-1","editFields":{"chest_name":"Gold"}}`, PatchEditFields},
		"assign":            {`{"entryId":"e-1","matchGameAccountId":"acc-1","saveCorrection":true}`, PatchAssignAccount},
		"unassign":          {`{"entryId":"e-1","matchGameAccountId":null}`, PatchAssignAccount},
		"metadata":          {`{"referenceDate":"2024-06-01"}`, PatchMetadata},
		"clear link":        {`{"linkedEventId":null}`, PatchMetadata},
		"edit and assign":   {`{"entryId":"e-1","editFields":{},"matchGameAccountId":null}`, PatchInvalid},
		"metadata on entry": {`{"entryId":"e-1","referenceDate":"2024-06-01"}`, PatchInvalid},
		"entry only":        {`{"entryId":"e-1"}`, PatchInvalid},
		"empty":             {`{}`, PatchInvalid},
		"edit without id":   {`{"editFields":{"chest_name":"Gold"}}`, PatchInvalid},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, decodePatch(t, tc.body).Kind())
		})
	}
}
