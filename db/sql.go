package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mbland/optinlist/types"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

type SqlDialect int

const (
	SqliteDialect SqlDialect = iota
	PostgresDialect
)

// SqlDb stores subscribers in a "subscriptions" table and their tokens in a
// "subscription_tokens" table, using any database/sql driver that speaks one
// of the supported dialects.
type SqlDb struct {
	Db      *sql.DB
	Dialect SqlDialect
}

func NewPostgresDb(dataSourceName string) (*SqlDb, error) {
	return openSqlDb("postgres", dataSourceName, PostgresDialect)
}

// NewSqliteDb opens a SQLite database file, or a private in-memory database
// if path is ":memory:".
//
// The pool is limited to one connection, since every connection to ":memory:"
// opens a distinct database and SQLite serializes writers anyway.
func NewSqliteDb(path string) (sqlDb *SqlDb, err error) {
	if sqlDb, err = openSqlDb("sqlite", path, SqliteDialect); err != nil {
		return
	}
	sqlDb.Db.SetMaxOpenConns(1)

	const pragma = "PRAGMA foreign_keys = ON"
	if _, err = sqlDb.Db.Exec(pragma); err != nil {
		err = errors.Join(
			fmt.Errorf("failed to enable sqlite foreign keys: %w", err),
			sqlDb.Close(),
		)
		sqlDb = nil
	}
	return
}

func openSqlDb(
	driver, dataSourceName string, dialect SqlDialect,
) (*SqlDb, error) {
	db, err := sql.Open(driver, dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", driver, err)
	}
	return &SqlDb{Db: db, Dialect: dialect}, nil
}

func (sdb *SqlDb) Close() error {
	return sdb.Db.Close()
}

const createSubscriptionsTable = `CREATE TABLE IF NOT EXISTS subscriptions (
	id TEXT NOT NULL PRIMARY KEY,
	email TEXT NOT NULL,
	name TEXT NOT NULL,
	status TEXT NOT NULL,
	subscribed_at BIGINT NOT NULL
)`

const createTokensTable = `CREATE TABLE IF NOT EXISTS subscription_tokens (
	subscription_token TEXT NOT NULL PRIMARY KEY,
	subscriber_id TEXT NOT NULL REFERENCES subscriptions (id)
)`

func (sdb *SqlDb) CreateTables(ctx context.Context) error {
	for _, stmt := range []string{createSubscriptionsTable, createTokensTable} {
		if _, err := sdb.Db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create tables: %w", err)
		}
	}
	return nil
}

// rebind converts "?" placeholders into the dialect's native form.
func (sdb *SqlDb) rebind(query string) string {
	if sdb.Dialect != PostgresDialect {
		return query
	}

	sb := strings.Builder{}
	n := 0
	for _, c := range query {
		if c != '?' {
			sb.WriteRune(c)
			continue
		}
		n++
		sb.WriteByte('$')
		sb.WriteString(strconv.Itoa(n))
	}
	return sb.String()
}

const insertSubscriber = "INSERT INTO subscriptions " +
	"(id, email, name, status, subscribed_at) VALUES (?, ?, ?, ?, ?)"

const insertToken = "INSERT INTO subscription_tokens " +
	"(subscription_token, subscriber_id) VALUES (?, ?)"

func (sdb *SqlDb) CreatePendingSubscriber(
	ctx context.Context, sub *Subscriber, token types.Token,
) (err error) {
	var tx *sql.Tx

	if tx, err = sdb.Db.BeginTx(ctx, nil); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err == nil {
			return
		} else if rbErr := tx.Rollback(); !errors.Is(rbErr, sql.ErrTxDone) {
			err = errors.Join(err, rbErr)
		}
	}()

	_, err = tx.ExecContext(
		ctx,
		sdb.rebind(insertSubscriber),
		sub.Id.String(),
		sub.Email,
		sub.Name,
		string(sub.Status),
		sub.SubscribedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert subscriber %s: %w", sub.Email, err)
	}

	_, err = tx.ExecContext(
		ctx, sdb.rebind(insertToken), token.String(), sub.Id.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert token for %s: %w", sub.Email, err)
	}

	if err = tx.Commit(); err != nil {
		err = fmt.Errorf("failed to commit subscriber %s: %w", sub.Email, err)
	}
	return
}

const selectTokenSubscriber = "SELECT subscriber_id FROM subscription_tokens " +
	"WHERE subscription_token = ?"

func (sdb *SqlDb) GetSubscriberIdByToken(
	ctx context.Context, token types.Token,
) (id uuid.UUID, err error) {
	var rawId string
	row := sdb.Db.QueryRowContext(
		ctx, sdb.rebind(selectTokenSubscriber), token.String(),
	)

	if err = row.Scan(&rawId); errors.Is(err, sql.ErrNoRows) {
		err = fmt.Errorf("%w: %s", ErrTokenNotFound, token)
	} else if err != nil {
		err = fmt.Errorf("failed to get token %s: %w", token, err)
	} else if id, err = uuid.Parse(rawId); err != nil {
		err = fmt.Errorf("failed to parse token %s: %w", token, err)
	}
	return
}

const subscriberColumns = "id, email, name, status, subscribed_at"

const selectSubscriber = "SELECT " + subscriberColumns +
	" FROM subscriptions WHERE id = ?"

type sqlScanner interface {
	Scan(dest ...any) error
}

// subscriberRow holds one row's columns before they're validated.
type subscriberRow struct {
	id, email, name, status string
	subscribedAt            int64
}

func (r *subscriberRow) scan(row sqlScanner) error {
	return row.Scan(&r.id, &r.email, &r.name, &r.status, &r.subscribedAt)
}

func (r *subscriberRow) subscriber() (*Subscriber, error) {
	sub := &Subscriber{
		Email:        r.email,
		Name:         r.name,
		SubscribedAt: time.Unix(r.subscribedAt, 0).UTC(),
	}
	var err error

	if sub.Id, err = uuid.Parse(r.id); err != nil {
		return nil, fmt.Errorf("failed to parse subscriber id %q: %w", r.id, err)
	}

	switch SubscriberStatus(r.status) {
	case SubscriberPending, SubscriberConfirmed:
		sub.Status = SubscriberStatus(r.status)
	default:
		const errFmt = "subscriber %s has unknown status %q"
		return nil, fmt.Errorf(errFmt, r.id, r.status)
	}
	return sub, nil
}

func scanSubscriber(row sqlScanner) (*Subscriber, error) {
	r := &subscriberRow{}
	if err := r.scan(row); err != nil {
		return nil, err
	}
	return r.subscriber()
}

func (sdb *SqlDb) GetSubscriber(
	ctx context.Context, id uuid.UUID,
) (sub *Subscriber, err error) {
	row := sdb.Db.QueryRowContext(ctx, sdb.rebind(selectSubscriber), id.String())

	if sub, err = scanSubscriber(row); errors.Is(err, sql.ErrNoRows) {
		err = fmt.Errorf("%s %w", id, ErrSubscriberNotFound)
	} else if err != nil {
		err = fmt.Errorf("failed to get subscriber %s: %w", id, err)
	}
	return
}

const confirmSubscriber = "UPDATE subscriptions SET status = ? WHERE id = ?"

func (sdb *SqlDb) ConfirmSubscriber(
	ctx context.Context, id uuid.UUID,
) (err error) {
	var result sql.Result
	var numRows int64

	if result, err = sdb.Db.ExecContext(
		ctx,
		sdb.rebind(confirmSubscriber),
		string(SubscriberConfirmed),
		id.String(),
	); err != nil {
		err = fmt.Errorf("failed to confirm subscriber %s: %w", id, err)
	} else if numRows, err = result.RowsAffected(); err != nil {
		err = fmt.Errorf("failed to confirm subscriber %s: %w", id, err)
	} else if numRows == 0 {
		err = fmt.Errorf("%s %w", id, ErrSubscriberNotFound)
	}
	return
}

const selectSubscribersInState = "SELECT " + subscriberColumns +
	" FROM subscriptions WHERE status = ? ORDER BY subscribed_at, id"

func (sdb *SqlDb) GetSubscribers(
	ctx context.Context, status SubscriberStatus,
) (subs []*Subscriber, err error) {
	errMsg := fmt.Sprintf("failed to get %s subscribers", status)
	var rows *sql.Rows

	rows, err = sdb.Db.QueryContext(
		ctx, sdb.rebind(selectSubscribersInState), string(status),
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errMsg, err)
	}
	defer rows.Close()

	var malformed []MalformedRecord
	for rows.Next() {
		r := &subscriberRow{}
		if err = r.scan(rows); err != nil {
			return nil, fmt.Errorf("%s: %w", errMsg, err)
		} else if sub, parseErr := r.subscriber(); parseErr != nil {
			malformed = append(malformed, MalformedRecord{r.id, parseErr})
		} else {
			subs = append(subs, sub)
		}
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", errMsg, err)
	}
	return subs, malformedError(malformed)
}
