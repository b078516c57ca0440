package history

import (
	"encoding/json"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
)

func message(n int) Message {
	return Message{
		ID:        strconv.Itoa(n),
		Content:   "message " + strconv.Itoa(n),
		Username:  "alice",
		Timestamp: json.RawMessage(strconv.Itoa(1000 + n)),
	}
}

func TestNewFallsBackToDefaultCapacity(t *testing.T) {
	req := require.New(t)

	req.Equal(DefaultCapacity, New(0).Cap())
	req.Equal(DefaultCapacity, New(-3).Cap())
	req.Equal(7, New(7).Cap())
}

func TestSnapshotOfEmptyBufferEncodesAsEmptyArray(t *testing.T) {
	req := require.New(t)

	snapshot := New(DefaultCapacity).Snapshot()
	req.NotNil(snapshot)
	req.Empty(snapshot)

	raw, err := json.Marshal(snapshot)
	req.NoError(err)
	req.JSONEq(`[]`, string(raw))
}

func TestAppendPreservesInsertionOrder(t *testing.T) {
	req := require.New(t)
	buf := New(DefaultCapacity)

	for i := 1; i <= 5; i++ {
		buf.Append(message(i))
	}

	snapshot := buf.Snapshot()
	req.Len(snapshot, 5)
	for i, msg := range snapshot {
		req.Equal(strconv.Itoa(i+1), msg.ID)
	}
}

func TestAppendNeverExceedsCapacity(t *testing.T) {
	req := require.New(t)
	buf := New(DefaultCapacity)

	for i := 1; i <= 250; i++ {
		buf.Append(message(i))
		req.LessOrEqual(buf.Len(), DefaultCapacity)
	}

	snapshot := buf.Snapshot()
	req.Len(snapshot, DefaultCapacity)
	for i, msg := range snapshot {
		req.Equal(strconv.Itoa(151+i), msg.ID, "retained set must be the most recent insertions in order")
	}
}

func TestHundredAndFirstAppendEvictsFirst(t *testing.T) {
	req := require.New(t)
	buf := New(DefaultCapacity)

	for i := 1; i <= DefaultCapacity; i++ {
		buf.Append(message(i))
	}
	req.Equal("1", buf.Snapshot()[0].ID)

	buf.Append(message(DefaultCapacity + 1))

	snapshot := buf.Snapshot()
	req.Len(snapshot, DefaultCapacity)
	req.Equal("2", snapshot[0].ID)
	req.Equal(strconv.Itoa(DefaultCapacity+1), snapshot[len(snapshot)-1].ID)
}

func TestSnapshotIsACopy(t *testing.T) {
	req := require.New(t)
	buf := New(3)
	buf.Append(message(1))

	snapshot := buf.Snapshot()
	snapshot[0].Content = "changed"

	req.Equal("message 1", buf.Snapshot()[0].Content)
}

func TestTimestampIsCarriedVerbatim(t *testing.T) {
	req := require.New(t)
	buf := New(1)
	buf.Append(Message{ID: "x", Timestamp: json.RawMessage(`"2024-01-01T00:00:00Z"`)})

	raw, err := json.Marshal(buf.Snapshot()[0])
	req.NoError(err)
	req.Contains(string(raw), `"timestamp":"2024-01-01T00:00:00Z"`)
}
