//go:build integration

package audit_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"tagproof/internal/audit"
	"tagproof/pkg/testutil/containers"
)

type RedisStoreSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *audit.RedisStore
}

func TestRedisStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisStoreSuite))
}

func (s *RedisStoreSuite) SetupSuite() {
	s.redis = containers.NewRedisContainer(s.T())
	s.store = audit.NewRedisStore(s.redis.Client)
}

func (s *RedisStoreSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisStoreSuite) TestAppendAndListByTag() {
	ctx := context.Background()
	record := audit.Record{
		ID:        "req-123",
		RequestID: "req-123",
		TS:        "2026-08-30T12:00:00Z",
		TagID:     "ABC12345",
		OK:        true,
		Status:    "AUTHENTIC",
		Message:   "Verification successful",
	}
	s.Require().NoError(s.store.Append(ctx, record))

	records, err := s.store.ListByTag(ctx, "ABC12345")
	s.Require().NoError(err)
	s.Require().Len(records, 1)
	s.Equal(record, records[0])
}

// Records without a tag id only land on the global list. The server error
// paths write these when the tag id never parsed out of the request.
func (s *RedisStoreSuite) TestTaglessRecordSkipsTagList() {
	ctx := context.Background()
	s.Require().NoError(s.store.Append(ctx, audit.Record{
		RequestID: "req-789",
		TS:        "2026-08-30T12:00:00Z",
		Kind:      audit.KindOwnerChangePIN,
		Error:     "unexpected end of JSON input",
	}))

	recent, err := s.store.ListRecent(ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(recent, 1)
	s.NotEmpty(recent[0].ID, "store assigns an id when the writer brings none")

	byTag, err := s.store.ListByTag(ctx, "")
	s.Require().NoError(err)
	s.Empty(byTag)
}

func (s *RedisStoreSuite) TestListRecentReturnsNewest() {
	ctx := context.Background()
	for _, id := range []string{"req-1", "req-2", "req-3", "req-4"} {
		s.Require().NoError(s.store.Append(ctx, audit.Record{
			ID:        id,
			RequestID: id,
			TS:        "2026-08-30T12:00:00Z",
			TagID:     "TAG00001",
		}))
	}

	records, err := s.store.ListRecent(ctx, 2)
	s.Require().NoError(err)
	s.Require().Len(records, 2)
	s.Equal("req-3", records[0].ID)
	s.Equal("req-4", records[1].ID)
}
