package api

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInboxDropsOldest(t *testing.T) {
	in := NewInbox(2)
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	in.Add("a", at)
	in.Add("b", at.Add(time.Second))
	in.Add("c", at.Add(2*time.Second))

	list := in.List()
	require.Len(t, list, 2)
	assert.Equal(t, "b", list[0].GUID)
	assert.Equal(t, "c", list[1].GUID)

	assert.Equal(t, at.Add(2*time.Second), list[1].ReceivedAt)
}

func TestInboxListIsACopy(t *testing.T) {
	in := NewInbox(0)
	assert.Empty(t, in.List())

	in.Add("a", time.Now())
	list := in.List()
	list[0].GUID = "changed"
	assert.Equal(t, "a", in.List()[0].GUID)
}
