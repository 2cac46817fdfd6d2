package cmd

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// Test_ParseRequests tests the benchmark request file grammar.
func Test_ParseRequests(t *testing.T) {
	src := "insert, Like a Rolling Stone, https://example.com/stone\n" +
		"query, Like a Rolling Stone\n" +
		"\n" +
		"delete, Hey Jude\n"

	requests, err := ParseRequests(src)
	require.NoError(t, err)
	require.Len(t, requests, 3)

	require.Equal(t, Request{
		Op:    "insert",
		Key:   "Like a Rolling Stone",
		Value: "https://example.com/stone",
	}, requests[0])
	require.Equal(t, Request{Op: "query", Key: "Like a Rolling Stone"}, requests[1])
	require.Equal(t, Request{Op: "delete", Key: "Hey Jude"}, requests[2])
}

// Test_ParseRequests_Invalid tests the rejection of malformed files.
func Test_ParseRequests_Invalid(t *testing.T) {
	_, err := ParseRequests("upsert, some key\n")
	require.Error(t, err)

	_, err = ParseRequests("insert, only a key\n")
	require.Error(t, err)

	_, err = ParseRequests("query, one, two\n")
	require.Error(t, err)
}

// Test_SplitRecord tests the bulk-insert line splitting.
func Test_SplitRecord(t *testing.T) {
	key, value := splitRecord("Like a Rolling Stone, https://example.com/stone")
	require.Equal(t, "Like a Rolling Stone", key)
	require.Equal(t, "https://example.com/stone", value)

	key, value = splitRecord("Hey Jude")
	require.Equal(t, "Hey Jude", key)
	require.Equal(t, "Hey Jude", value)
}
