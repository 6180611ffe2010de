package credentials

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/dmitrijs2005/nidkeeper/internal/common"
	"github.com/dmitrijs2005/nidkeeper/internal/migrations"
	"github.com/dmitrijs2005/nidkeeper/internal/models"
	"github.com/stretchr/testify/suite"

	_ "modernc.org/sqlite"
)

type SQLiteRepositorySuite struct {
	suite.Suite
	db   *sql.DB
	repo *SQLiteRepository
	ctx  context.Context
}

func TestSQLiteRepositorySuite(t *testing.T) {
	suite.Run(t, new(SQLiteRepositorySuite))
}

func (s *SQLiteRepositorySuite) SetupTest() {
	db, err := sql.Open("sqlite", ":memory:")
	s.Require().NoError(err)
	db.SetMaxOpenConns(1)
	s.ctx = context.Background()
	s.Require().NoError(migrations.Up(s.ctx, db, migrations.DialectSQLite))
	s.db = db
	s.repo = NewSQLiteRepository(db)
}

func (s *SQLiteRepositorySuite) TearDownTest() {
	_ = s.db.Close()
}

func (s *SQLiteRepositorySuite) seed(username string) *models.Credential {
	c := &models.Credential{
		Username:  username,
		Salt:      []byte("0123456789abcdef0123456789abcdef"),
		Verifier:  []byte("verifier-verifier-verifier-12345"),
		KDF:       "pbkdf2-sha256$i=10000",
		Role:      models.RoleAdmin,
		CreatedAt: time.Unix(1700000000, 0).UTC(),
	}
	s.Require().NoError(s.repo.Create(s.ctx, c))
	return c
}

func (s *SQLiteRepositorySuite) TestCreateAndGet() {
	want := s.seed("alice")

	got, err := s.repo.GetByUsername(s.ctx, "alice")
	s.Require().NoError(err)
	s.Equal(want.Username, got.Username)
	s.Equal(want.Salt, got.Salt)
	s.Equal(want.Verifier, got.Verifier)
	s.Equal(want.KDF, got.KDF)
	s.Equal(models.RoleAdmin, got.Role)
	s.Equal(0, got.FailedAttempts)
	s.True(got.LastLogin.IsZero(), "last login absent until first success")
	s.False(got.MustChangePassword)
	s.Equal(want.CreatedAt, got.CreatedAt)
}

func (s *SQLiteRepositorySuite) TestCreate_Duplicate() {
	s.seed("alice")
	err := s.repo.Create(s.ctx, &models.Credential{Username: "alice", Salt: []byte{1}, Verifier: []byte{2}, KDF: "k", Role: models.RoleOfficer})
	s.ErrorIs(err, common.ErrConflict)
}

func (s *SQLiteRepositorySuite) TestGet_NotFound() {
	_, err := s.repo.GetByUsername(s.ctx, "nobody")
	s.ErrorIs(err, common.ErrorNotFound)
}

func (s *SQLiteRepositorySuite) TestRecordFailure() {
	s.seed("alice")

	for want := 1; want <= 3; want++ {
		n, err := s.repo.RecordFailure(s.ctx, "alice")
		s.Require().NoError(err)
		s.Equal(want, n)
	}

	_, err := s.repo.RecordFailure(s.ctx, "nobody")
	s.ErrorIs(err, common.ErrorNotFound)
}

func (s *SQLiteRepositorySuite) TestRecordSuccess() {
	s.seed("alice")
	first := time.Unix(1700000100, 0)

	s.Run("resets counter and sets last login", func() {
		_, err := s.repo.RecordFailure(s.ctx, "alice")
		s.Require().NoError(err)

		ok, err := s.repo.RecordSuccess(s.ctx, "alice", first, 3)
		s.Require().NoError(err)
		s.True(ok)

		c, err := s.repo.GetByUsername(s.ctx, "alice")
		s.Require().NoError(err)
		s.Equal(0, c.FailedAttempts)
		s.Equal(first.Unix(), c.LastLogin.Unix())
	})

	s.Run("last login never moves backwards", func() {
		ok, err := s.repo.RecordSuccess(s.ctx, "alice", first.Add(-time.Hour), 3)
		s.Require().NoError(err)
		s.True(ok)

		c, err := s.repo.GetByUsername(s.ctx, "alice")
		s.Require().NoError(err)
		s.Equal(first.Unix(), c.LastLogin.Unix())
	})

	s.Run("locked counter is not reset", func() {
		for i := 0; i < 3; i++ {
			_, err := s.repo.RecordFailure(s.ctx, "alice")
			s.Require().NoError(err)
		}
		ok, err := s.repo.RecordSuccess(s.ctx, "alice", first.Add(time.Hour), 3)
		s.Require().NoError(err)
		s.False(ok)

		c, err := s.repo.GetByUsername(s.ctx, "alice")
		s.Require().NoError(err)
		s.Equal(3, c.FailedAttempts)
	})
}

func (s *SQLiteRepositorySuite) TestResetFailures() {
	s.seed("alice")
	for i := 0; i < 4; i++ {
		_, err := s.repo.RecordFailure(s.ctx, "alice")
		s.Require().NoError(err)
	}

	s.Require().NoError(s.repo.ResetFailures(s.ctx, "alice"))
	c, err := s.repo.GetByUsername(s.ctx, "alice")
	s.Require().NoError(err)
	s.Equal(0, c.FailedAttempts)

	s.ErrorIs(s.repo.ResetFailures(s.ctx, "nobody"), common.ErrorNotFound)
}

func (s *SQLiteRepositorySuite) TestUpdatePassword() {
	s.seed("alice")

	s.Require().NoError(s.repo.UpdatePassword(s.ctx, "alice", []byte("new-salt"), []byte("new-verifier"), "argon2id$t=1,m=65536,p=4", true))

	c, err := s.repo.GetByUsername(s.ctx, "alice")
	s.Require().NoError(err)
	s.Equal([]byte("new-salt"), c.Salt)
	s.Equal([]byte("new-verifier"), c.Verifier)
	s.Equal("argon2id$t=1,m=65536,p=4", c.KDF)
	s.True(c.MustChangePassword)

	s.ErrorIs(s.repo.UpdatePassword(s.ctx, "nobody", nil, nil, "", false), common.ErrorNotFound)
}

func (s *SQLiteRepositorySuite) TestCountAndList() {
	n, err := s.repo.Count(s.ctx)
	s.Require().NoError(err)
	s.Equal(0, n)

	s.seed("bob")
	s.seed("alice")

	n, err = s.repo.Count(s.ctx)
	s.Require().NoError(err)
	s.Equal(2, n)

	all, err := s.repo.List(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(all, 2)
	s.Equal("alice", all[0].Username)
	s.Equal("bob", all[1].Username)
}

func (s *SQLiteRepositorySuite) TestClosedDBErrorsWrapped() {
	s.Require().NoError(s.db.Close())

	_, err := s.repo.GetByUsername(s.ctx, "alice")
	s.ErrorContains(err, "failed to get credential")

	_, err = s.repo.Count(s.ctx)
	s.ErrorContains(err, "failed to count credentials")
}
