package sqlutil

import (
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestToSqlString(t *testing.T) {
	assert.False(t, ToSqlString("").Valid)
	assert.Equal(t, sql.NullString{String: "alice", Valid: true}, ToSqlString("alice"))
	assert.Equal(t, "none", FromSqlString(sql.NullString{}, "none"))
	assert.Equal(t, "alice", FromSqlString(ToSqlString("alice"), "none"))
}

func TestToNullUUID(t *testing.T) {
	assert.False(t, ToNullUUID(uuid.Nil).Valid)

	id := uuid.New()
	assert.Equal(t, uuid.NullUUID{UUID: id, Valid: true}, ToNullUUID(id))
}

func TestSqlTimeRoundTrip(t *testing.T) {
	assert.False(t, ToSqlTime(nil).Valid)
	assert.Nil(t, FromSqlTime(sql.NullTime{}))

	now := time.Date(2024, 9, 1, 12, 0, 0, 0, time.UTC)
	got := FromSqlTime(ToSqlTime(&now))
	if assert.NotNil(t, got) {
		assert.Equal(t, now, *got)
	}
}
