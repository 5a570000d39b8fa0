//go:build small_tests || all_tests

package db

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/mbland/optinlist/testutils"
	"github.com/mbland/optinlist/types"
	"gotest.tools/assert"
	is "gotest.tools/assert/cmp"
)

func newTestSqliteDb(t *testing.T) *SqlDb {
	t.Helper()

	sdb, err := NewSqliteDb(":memory:")
	assert.NilError(t, err)
	t.Cleanup(func() { sdb.Close() })

	assert.NilError(t, sdb.CreateTables(context.Background()))
	return sdb
}

func newMockPostgresDb(t *testing.T) (*SqlDb, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New(
		sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual),
	)
	assert.NilError(t, err)
	t.Cleanup(func() { db.Close() })
	return &SqlDb{Db: db, Dialect: PostgresDialect}, mock
}

func countRows(t *testing.T, sdb *SqlDb, table string) (count int) {
	t.Helper()
	row := sdb.Db.QueryRow("SELECT COUNT(*) FROM " + table)
	assert.NilError(t, row.Scan(&count))
	return
}

func TestRebind(t *testing.T) {
	t.Run("LeavesSqliteQueriesUnchanged", func(t *testing.T) {
		sdb := &SqlDb{Dialect: SqliteDialect}

		assert.Equal(t, insertToken, sdb.rebind(insertToken))
	})

	t.Run("NumbersPostgresPlaceholders", func(t *testing.T) {
		sdb := &SqlDb{Dialect: PostgresDialect}

		assert.Equal(
			t,
			"UPDATE subscriptions SET status = $1 WHERE id = $2",
			sdb.rebind(confirmSubscriber),
		)
	})
}

func TestSqlDbCreatePendingSubscriber(t *testing.T) {
	ctx := context.Background()

	t.Run("StoresSubscriberAndToken", func(t *testing.T) {
		sdb := newTestSqliteDb(t)
		sub := newTestSubscribers()[0]

		err := sdb.CreatePendingSubscriber(ctx, sub, testToken)

		assert.NilError(t, err)
		id, err := sdb.GetSubscriberIdByToken(ctx, testToken)
		assert.NilError(t, err)
		assert.Equal(t, sub.Id, id)

		stored, err := sdb.GetSubscriber(ctx, sub.Id)
		assert.NilError(t, err)
		assert.DeepEqual(t, sub, stored)
	})

	t.Run("RollsBackSubscriberIfTokenInsertFails", func(t *testing.T) {
		sdb := newTestSqliteDb(t)
		subs := newTestSubscribers()
		assert.NilError(t, sdb.CreatePendingSubscriber(ctx, subs[0], testToken))

		err := sdb.CreatePendingSubscriber(ctx, subs[1], testToken)

		assert.ErrorContains(t, err, "failed to insert token for "+subs[1].Email)
		assert.Equal(t, 1, countRows(t, sdb, "subscriptions"))
		assert.Equal(t, 1, countRows(t, sdb, "subscription_tokens"))
		_, err = sdb.GetSubscriber(ctx, subs[1].Id)
		assert.Assert(t, testutils.ErrorIs(err, ErrSubscriberNotFound))
	})

	t.Run("AllowsDuplicateEmails", func(t *testing.T) {
		sdb := newTestSqliteDb(t)
		first := newTestSubscribers()[0]
		second := *first
		second.Id = uuid.New()

		assert.NilError(t, sdb.CreatePendingSubscriber(ctx, first, testToken))
		err := sdb.CreatePendingSubscriber(ctx, &second, "ZYXWVUTSRQponmlk9876")

		assert.NilError(t, err)
		assert.Equal(t, 2, countRows(t, sdb, "subscriptions"))
	})

	t.Run("UsesPostgresPlaceholdersInOneTransaction", func(t *testing.T) {
		sdb, mock := newMockPostgresDb(t)
		sub := newTestSubscribers()[0]
		mock.ExpectBegin()
		mock.ExpectExec(
			"INSERT INTO subscriptions (id, email, name, status, subscribed_at) " +
				"VALUES ($1, $2, $3, $4, $5)",
		).WithArgs(
			sub.Id.String(), sub.Email, sub.Name, "pending_confirmation",
			sub.SubscribedAt.Unix(),
		).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(
			"INSERT INTO subscription_tokens " +
				"(subscription_token, subscriber_id) VALUES ($1, $2)",
		).WithArgs(
			testToken.String(), sub.Id.String(),
		).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := sdb.CreatePendingSubscriber(ctx, sub, testToken)

		assert.NilError(t, err)
		assert.NilError(t, mock.ExpectationsWereMet())
	})

	t.Run("RollsBackIfSubscriberInsertFails", func(t *testing.T) {
		sdb, mock := newMockPostgresDb(t)
		sub := newTestSubscribers()[0]
		mock.ExpectBegin()
		mock.ExpectExec(sdb.rebind(insertSubscriber)).
			WillReturnError(errors.New("connection reset"))
		mock.ExpectRollback()

		err := sdb.CreatePendingSubscriber(ctx, sub, testToken)

		assert.ErrorContains(t, err, "failed to insert subscriber "+sub.Email)
		assert.ErrorContains(t, err, "connection reset")
		assert.NilError(t, mock.ExpectationsWereMet())
	})

	t.Run("ReportsRollbackFailure", func(t *testing.T) {
		sdb, mock := newMockPostgresDb(t)
		sub := newTestSubscribers()[0]
		mock.ExpectBegin()
		mock.ExpectExec(sdb.rebind(insertSubscriber)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(sdb.rebind(insertToken)).
			WillReturnError(errors.New("duplicate key"))
		mock.ExpectRollback().WillReturnError(errors.New("rollback failed"))

		err := sdb.CreatePendingSubscriber(ctx, sub, testToken)

		assert.ErrorContains(t, err, "duplicate key")
		assert.ErrorContains(t, err, "rollback failed")
		assert.NilError(t, mock.ExpectationsWereMet())
	})

	t.Run("ErrorsIfCommitFails", func(t *testing.T) {
		sdb, mock := newMockPostgresDb(t)
		sub := newTestSubscribers()[0]
		mock.ExpectBegin()
		mock.ExpectExec(sdb.rebind(insertSubscriber)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(sdb.rebind(insertToken)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit().WillReturnError(errors.New("commit failed"))

		err := sdb.CreatePendingSubscriber(ctx, sub, testToken)

		assert.ErrorContains(t, err, "failed to commit subscriber "+sub.Email)
		assert.NilError(t, mock.ExpectationsWereMet())
	})

	t.Run("ErrorsIfBeginFails", func(t *testing.T) {
		sdb, mock := newMockPostgresDb(t)
		mock.ExpectBegin().WillReturnError(errors.New("too many clients"))

		err := sdb.CreatePendingSubscriber(ctx, newTestSubscribers()[0], testToken)

		assert.ErrorContains(t, err, "failed to begin transaction")
		assert.NilError(t, mock.ExpectationsWereMet())
	})
}

func TestSqlDbGetSubscriberIdByToken(t *testing.T) {
	ctx := context.Background()

	t.Run("ErrorsIfTokenNotFound", func(t *testing.T) {
		sdb := newTestSqliteDb(t)

		id, err := sdb.GetSubscriberIdByToken(ctx, testToken)

		assert.Equal(t, uuid.Nil, id)
		assert.Assert(t, testutils.ErrorIs(err, ErrTokenNotFound))
	})

	t.Run("ErrorsIfQueryFails", func(t *testing.T) {
		sdb, mock := newMockPostgresDb(t)
		mock.ExpectQuery(sdb.rebind(selectTokenSubscriber)).
			WillReturnError(errors.New("connection refused"))

		_, err := sdb.GetSubscriberIdByToken(ctx, testToken)

		assert.ErrorContains(t, err, "failed to get token "+testToken.String())
		assert.Assert(t, !errors.Is(err, ErrTokenNotFound))
	})
}

func TestSqlDbConfirmSubscriber(t *testing.T) {
	ctx := context.Background()
	setup := func(t *testing.T) (*SqlDb, *Subscriber) {
		sdb := newTestSqliteDb(t)
		sub := newTestSubscribers()[0]
		assert.NilError(t, sdb.CreatePendingSubscriber(ctx, sub, testToken))
		return sdb, sub
	}

	t.Run("MovesSubscriberToConfirmed", func(t *testing.T) {
		sdb, sub := setup(t)

		err := sdb.ConfirmSubscriber(ctx, sub.Id)

		assert.NilError(t, err)
		stored, err := sdb.GetSubscriber(ctx, sub.Id)
		assert.NilError(t, err)
		assert.Equal(t, SubscriberConfirmed, stored.Status)
		assert.Equal(t, sub.SubscribedAt, stored.SubscribedAt)
	})

	t.Run("SucceedsIfAlreadyConfirmed", func(t *testing.T) {
		sdb, sub := setup(t)
		assert.NilError(t, sdb.ConfirmSubscriber(ctx, sub.Id))

		err := sdb.ConfirmSubscriber(ctx, sub.Id)

		assert.NilError(t, err)
	})

	t.Run("ErrorsIfSubscriberNotFound", func(t *testing.T) {
		sdb, _ := setup(t)

		err := sdb.ConfirmSubscriber(ctx, uuid.New())

		assert.Assert(t, testutils.ErrorIs(err, ErrSubscriberNotFound))
	})

	t.Run("ErrorsIfUpdateFails", func(t *testing.T) {
		sdb, mock := newMockPostgresDb(t)
		id := uuid.New()
		mock.ExpectExec(sdb.rebind(confirmSubscriber)).
			WithArgs("confirmed", id.String()).
			WillReturnError(errors.New("read-only transaction"))

		err := sdb.ConfirmSubscriber(ctx, id)

		assert.ErrorContains(t, err, "failed to confirm subscriber "+id.String())
		assert.Assert(t, !errors.Is(err, ErrSubscriberNotFound))
	})
}

func TestSqlDbGetSubscribers(t *testing.T) {
	ctx := context.Background()

	t.Run("ReturnsOnlySubscribersInState", func(t *testing.T) {
		sdb := newTestSqliteDb(t)
		subs := newTestSubscribers()
		tokens := []string{
			"AAAAAAAAAAAAAAAAAAA1", "AAAAAAAAAAAAAAAAAAA2", "AAAAAAAAAAAAAAAAAAA3",
		}
		for i, sub := range subs {
			err := sdb.CreatePendingSubscriber(ctx, sub, types.Token(tokens[i]))
			assert.NilError(t, err)
		}
		assert.NilError(t, sdb.ConfirmSubscriber(ctx, subs[0].Id))
		assert.NilError(t, sdb.ConfirmSubscriber(ctx, subs[2].Id))

		confirmedSubs, err := sdb.GetSubscribers(ctx, SubscriberConfirmed)

		assert.NilError(t, err)
		assert.DeepEqual(t, confirmed(subs[0], subs[2]), confirmedSubs)

		pendingSubs, err := sdb.GetSubscribers(ctx, SubscriberPending)

		assert.NilError(t, err)
		assert.DeepEqual(t, []*Subscriber{subs[1]}, pendingSubs)
	})

	t.Run("ReturnsNothingIfNoSubscribers", func(t *testing.T) {
		sdb := newTestSqliteDb(t)

		subs, err := sdb.GetSubscribers(ctx, SubscriberConfirmed)

		assert.NilError(t, err)
		assert.Equal(t, 0, len(subs))
	})

	t.Run("ErrorsIfQueryFails", func(t *testing.T) {
		sdb, mock := newMockPostgresDb(t)
		mock.ExpectQuery(sdb.rebind(selectSubscribersInState)).
			WithArgs("confirmed").
			WillReturnError(sql.ErrConnDone)

		subs, err := sdb.GetSubscribers(ctx, SubscriberConfirmed)

		assert.Check(t, is.Nil(subs))
		assert.ErrorContains(t, err, "failed to get confirmed subscribers")
		assert.Assert(t, testutils.ErrorIs(err, sql.ErrConnDone))
	})

	t.Run("ReturnsParseableRowsAndReportsMalformedOnes", func(t *testing.T) {
		sdb, mock := newMockPostgresDb(t)
		good := confirmed(newTestSubscribers()[0])[0]
		badStatusId := uuid.NewString()
		rows := sqlmock.NewRows(
			[]string{"id", "email", "name", "status", "subscribed_at"},
		).AddRow(
			badStatusId, "foo@example.com", "foo", "unsubscribed", int64(0),
		).AddRow(
			good.Id.String(),
			good.Email,
			good.Name,
			string(good.Status),
			good.SubscribedAt.Unix(),
		).AddRow(
			"not-a-uuid", "bar@example.com", "bar", "confirmed", int64(0),
		)
		mock.ExpectQuery(sdb.rebind(selectSubscribersInState)).
			WillReturnRows(rows)

		subs, err := sdb.GetSubscribers(ctx, SubscriberConfirmed)

		assert.DeepEqual(t, []*Subscriber{good}, subs)
		var malformed *MalformedSubscribersError
		assert.Assert(t, errors.As(err, &malformed))
		assert.Equal(t, 2, len(malformed.Records))
		assert.Equal(t, badStatusId, malformed.Records[0].Key)
		assert.ErrorContains(
			t, malformed.Records[0].Err, `unknown status "unsubscribed"`,
		)
		assert.Equal(t, "not-a-uuid", malformed.Records[1].Key)
		assert.ErrorContains(t, err, "2 malformed subscriber records")
	})
}
