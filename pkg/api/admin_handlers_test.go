package api

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdminStats(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, "a", "a@example.com", "pw")
	f.seedUser(t, "b", "b@example.com", "pw")
	seedTopics(t, f)

	rec := f.do(jsonRequest(http.MethodGet, "/admin/stats", ""))
	require.Equal(t, http.StatusOK, rec.Code)

	var stats statsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, int64(3), stats.Users, "two seeded plus the topic author")
	assert.Equal(t, int64(3), stats.Topics)
}
