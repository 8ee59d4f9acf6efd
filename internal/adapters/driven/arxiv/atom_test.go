package arxiv

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFeed_SkipsEntriesWithoutID(t *testing.T) {
	feed := `<feed xmlns="http://www.w3.org/2005/Atom">
  <entry><id></id><title>No ID</title></entry>
  <entry><id>http://arxiv.org/abs/2301.00001v1</id><title>Has ID</title><published>not a date</published></entry>
</feed>`

	candidates, err := parseFeed(strings.NewReader(feed), "https://arxiv.org/pdf/")

	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "2301.00001v1", candidates[0].ID)
	assert.Equal(t, "https://arxiv.org/pdf/2301.00001v1", candidates[0].ArtifactURL)
	assert.True(t, candidates[0].PublishedAt.IsZero())
}

func TestParseFeed_Malformed(t *testing.T) {
	_, err := parseFeed(strings.NewReader("<feed><entry>"), DefaultPDFBaseURL)

	assert.Error(t, err)
}

func TestEntryID(t *testing.T) {
	assert.Equal(t, "1706.03762v7", entryID("http://arxiv.org/abs/1706.03762v7"))
	assert.Equal(t, "math/0211159v1", entryID(" http://arxiv.org/abs/math/0211159v1 "))
	assert.Equal(t, "plain", entryID("plain"))
}

func TestAPIError_Error(t *testing.T) {
	withStatus := &APIError{StatusCode: 500, Message: "boom", URL: "u"}
	assert.Contains(t, withStatus.Error(), "500")

	feedErr := &APIError{Message: "bad query", URL: "u"}
	assert.NotContains(t, feedErr.Error(), "0:")
	assert.Contains(t, feedErr.Error(), "bad query")
}
