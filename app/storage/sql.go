package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"prdchat/app/model"
)

var _ Store = (*SQLStore)(nil)

type dialect struct {
	driver      string
	placeholder func(n int) string
	createTable string
}

var (
	postgresDialect = dialect{
		driver: "postgres",
		placeholder: func(n int) string {
			return "$" + strconv.Itoa(n)
		},
		createTable: `CREATE TABLE IF NOT EXISTS %s (
			partition_key       TEXT   NOT NULL,
			row_key             TEXT   NOT NULL,
			name                TEXT   NOT NULL,
			messages            TEXT   NOT NULL,
			last_response_id    TEXT   NOT NULL DEFAULT '',
			latest_prd_markdown TEXT   NOT NULL DEFAULT '',
			created_ts          BIGINT NOT NULL,
			updated_ts          BIGINT NOT NULL,
			PRIMARY KEY (partition_key, row_key)
		)`,
	}

	mysqlDialect = dialect{
		driver: "mysql",
		placeholder: func(int) string {
			return "?"
		},
		createTable: `CREATE TABLE IF NOT EXISTS %s (
			partition_key       VARCHAR(64)  NOT NULL,
			row_key             VARCHAR(64)  NOT NULL,
			name                VARCHAR(512) NOT NULL,
			messages            LONGTEXT     NOT NULL,
			last_response_id    VARCHAR(256) NOT NULL DEFAULT '',
			latest_prd_markdown LONGTEXT     NOT NULL,
			created_ts          BIGINT       NOT NULL,
			updated_ts          BIGINT       NOT NULL,
			PRIMARY KEY (partition_key, row_key)
		)`,
	}

	sqliteDialect = dialect{
		driver: "sqlite",
		placeholder: func(int) string {
			return "?"
		},
		createTable: `CREATE TABLE IF NOT EXISTS %s (
			partition_key       TEXT    NOT NULL,
			row_key             TEXT    NOT NULL,
			name                TEXT    NOT NULL,
			messages            TEXT    NOT NULL,
			last_response_id    TEXT    NOT NULL DEFAULT '',
			latest_prd_markdown TEXT    NOT NULL DEFAULT '',
			created_ts          INTEGER NOT NULL,
			updated_ts          INTEGER NOT NULL,
			PRIMARY KEY (partition_key, row_key)
		)`,
	}
)

// SQLStore keeps sessions in a single table of a relational database, one row per
// session under the fixed partition key.
type SQLStore struct {
	db      *sql.DB
	dialect dialect
	table   string
	now     func() time.Time
}

func newSQLStore(db *sql.DB, d dialect, table string) *SQLStore {
	return &SQLStore{
		db:      db,
		dialect: d,
		table:   table,
		now:     time.Now,
	}
}

// EnsureTable creates the sessions table when it does not exist yet.
func (s *SQLStore) EnsureTable(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf(s.dialect.createTable, s.table)); err != nil {
		return fmt.Errorf("failed to create table %s: %w", s.table, err)
	}

	return nil
}

func (s *SQLStore) ph(n int) string {
	return s.dialect.placeholder(n)
}

func (s *SQLStore) Create(ctx context.Context, session *model.Session) error {
	rec, err := toRecord(session)
	if err != nil {
		return unavailable(err, "create", session.ID)
	}

	ts := s.now().Unix()
	stmt := fmt.Sprintf(
		`INSERT INTO %s (partition_key, row_key, name, messages, last_response_id, latest_prd_markdown, created_ts, updated_ts)
		 VALUES (%s, %s, %s, %s, %s, %s, %s, %s)`,
		s.table, s.ph(1), s.ph(2), s.ph(3), s.ph(4), s.ph(5), s.ph(6), s.ph(7), s.ph(8),
	)
	if _, err = s.db.ExecContext(ctx, stmt,
		rec.PartitionKey, rec.RowKey, rec.Name, rec.Messages, rec.LastResponseID, rec.LatestPRDMarkdown, ts, ts,
	); err != nil {
		return unavailable(err, "create", session.ID)
	}

	return nil
}

func (s *SQLStore) Get(ctx context.Context, id string) (*model.Session, error) {
	query := fmt.Sprintf(
		`SELECT partition_key, row_key, name, messages, last_response_id, latest_prd_markdown
		 FROM %s WHERE partition_key = %s AND row_key = %s`,
		s.table, s.ph(1), s.ph(2),
	)

	var rec record
	if err := s.db.QueryRowContext(ctx, query, PartitionKey, id).Scan(
		&rec.PartitionKey, &rec.RowKey, &rec.Name, &rec.Messages, &rec.LastResponseID, &rec.LatestPRDMarkdown,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound(id)
		}
		return nil, unavailable(err, "get", id)
	}

	return rec.toSession(), nil
}

func (s *SQLStore) List(ctx context.Context) ([]model.Summary, error) {
	query := fmt.Sprintf(
		`SELECT row_key, name FROM %s WHERE partition_key = %s ORDER BY created_ts ASC, row_key ASC`,
		s.table, s.ph(1),
	)

	rows, err := s.db.QueryContext(ctx, query, PartitionKey)
	if err != nil {
		return nil, unavailable(err, "list", "")
	}
	defer rows.Close()

	list := []model.Summary{}
	for rows.Next() {
		var summary model.Summary
		if err = rows.Scan(&summary.ID, &summary.Name); err != nil {
			return nil, unavailable(err, "list", "")
		}
		list = append(list, summary)
	}
	if err = rows.Err(); err != nil {
		return nil, unavailable(err, "list", "")
	}

	return list, nil
}

func (s *SQLStore) Update(ctx context.Context, id string, update model.SessionUpdate) error {
	if update.IsEmpty() {
		_, err := s.Get(ctx, id)
		return err
	}

	set, args := []string{}, []any{}
	if v := update.Name; v != nil {
		set, args = append(set, "name = "+s.ph(len(args)+1)), append(args, *v)
	}
	if v := update.Messages; v != nil {
		messages, err := encodeMessages(v)
		if err != nil {
			return unavailable(err, "update", id)
		}
		set, args = append(set, "messages = "+s.ph(len(args)+1)), append(args, messages)
	}
	if v := update.LastResponseID; v != nil {
		set, args = append(set, "last_response_id = "+s.ph(len(args)+1)), append(args, *v)
	}
	if v := update.Document; v != nil {
		set, args = append(set, "latest_prd_markdown = "+s.ph(len(args)+1)), append(args, *v)
	}
	set, args = append(set, "updated_ts = "+s.ph(len(args)+1)), append(args, s.now().Unix())

	args = append(args, PartitionKey, id)
	stmt := fmt.Sprintf(
		`UPDATE %s SET %s WHERE partition_key = %s AND row_key = %s`,
		s.table, strings.Join(set, ", "), s.ph(len(args)-1), s.ph(len(args)),
	)

	result, err := s.db.ExecContext(ctx, stmt, args...)
	if err != nil {
		return unavailable(err, "update", id)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return unavailable(err, "update", id)
	}
	if affected == 0 {
		return notFound(id)
	}

	return nil
}

func (s *SQLStore) Delete(ctx context.Context, id string) error {
	stmt := fmt.Sprintf(
		`DELETE FROM %s WHERE partition_key = %s AND row_key = %s`,
		s.table, s.ph(1), s.ph(2),
	)
	if _, err := s.db.ExecContext(ctx, stmt, PartitionKey, id); err != nil {
		return unavailable(err, "delete", id)
	}

	return nil
}

func (s *SQLStore) Shutdown() error {
	return s.db.Close()
}
