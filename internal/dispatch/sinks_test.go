package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hospitality-commands/internal/common/logger"
	"hospitality-commands/internal/models"
)

func sampleRecord() models.CommandRecord {
	return models.CommandRecord{
		ID:        "5f0c7a9e-3f0b-4c52-9a57-8d1f6a0b2c11",
		Sender:    "+14155238886",
		Body:      "Block room 204 from March 5 to March 9",
		Command:   "block_room",
		Payload:   map[string]string{"room": "204", "from": "March 5", "to": "March 9"},
		Status:    models.StatusProcessed,
		Source:    models.SourcePattern,
		CreatedAt: time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC),
	}
}

// ==========================
// Postgres
// ==========================

func TestPostgresSink_Write(t *testing.T) {
	tests := []struct {
		name      string
		rec       models.CommandRecord
		setupMock func(mock sqlmock.Sqlmock)
		wantErr   bool
	}{
		{
			name: "processed command",
			rec:  sampleRecord(),
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(regexp.QuoteMeta("INSERT INTO whatsapp_commands")).
					WithArgs(
						"5f0c7a9e-3f0b-4c52-9a57-8d1f6a0b2c11",
						"+14155238886",
						"Block room 204 from March 5 to March 9",
						"block_room",
						`{"from":"March 5","room":"204","to":"March 9"}`,
						"processed",
						nil,
						"pattern",
						sqlmock.AnyArg(),
					).
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
		},
		{
			name: "failed command stores nulls",
			rec: models.CommandRecord{
				ID:        "a",
				Sender:    "+1",
				Body:      "please tidy room 5",
				Status:    models.StatusFailed,
				ErrorCode: "UNINTELLIGIBLE_COMMAND",
				CreatedAt: time.Now().UTC(),
			},
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(regexp.QuoteMeta("INSERT INTO whatsapp_commands")).
					WithArgs("a", "+1", "please tidy room 5", nil, nil, "failed", "UNINTELLIGIBLE_COMMAND", nil, sqlmock.AnyArg()).
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
		},
		{
			name: "database error",
			rec:  sampleRecord(),
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(regexp.QuoteMeta("INSERT INTO whatsapp_commands")).
					WillReturnError(errors.New("relation does not exist"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			tt.setupMock(mock)

			err = NewPostgresSink(db).Write(context.Background(), tt.rec)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestPostgresSink_EnsureSchema(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS whatsapp_commands")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, NewPostgresSink(db).EnsureSchema(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSink_Recent(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	created := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "sender", "body", "command", "payload", "status", "error_code", "source", "created_at"}).
		AddRow("1", "+1", "set price to 10 on x", "set_price", []byte(`{"room":"all","price":"10","date":"x"}`), "processed", nil, "pattern", created).
		AddRow("2", "+2", "hmm", nil, nil, "failed", "UNINTELLIGIBLE_COMMAND", "fallback", created)

	mock.ExpectQuery(regexp.QuoteMeta("FROM whatsapp_commands ORDER BY created_at DESC")).
		WithArgs(5).
		WillReturnRows(rows)

	got, err := NewPostgresSink(db).Recent(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "set_price", got[0].Command)
	assert.Equal(t, "10", got[0].Payload["price"])
	assert.Equal(t, models.StatusFailed, got[1].Status)
	assert.Equal(t, "UNINTELLIGIBLE_COMMAND", got[1].ErrorCode)
	assert.Nil(t, got[1].Payload)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ==========================
// Redis
// ==========================

func TestRedisSink_WriteAndRecent(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	sink := NewRedisSink(client, 3)
	ctx := context.Background()

	for _, id := range []string{"1", "2", "3", "4"} {
		rec := sampleRecord()
		rec.ID = id
		require.NoError(t, sink.Write(ctx, rec))
	}

	got, err := sink.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 3, "list is capped")
	assert.Equal(t, "4", got[0].ID, "newest first")
	assert.Equal(t, "2", got[2].ID)

	got, err = sink.Recent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "block_room", got[0].Command)
}

func TestRedisSink_Errors(t *testing.T) {
	client, mock := redismock.NewClientMock()
	sink := NewRedisSink(client, 10)
	rec := sampleRecord()
	data, err := json.Marshal(rec)
	require.NoError(t, err)

	mock.ExpectLPush(RecentCommandsKey, string(data)).SetErr(errors.New("READONLY"))
	err = sink.Write(context.Background(), rec)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "lpush")

	mock.ExpectLRange(RecentCommandsKey, 0, 9).SetErr(errors.New("connection refused"))
	_, err = sink.Recent(context.Background(), 0)
	require.Error(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisSink_SkipsCorruptEntries(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	_, err := mr.Lpush(RecentCommandsKey, "not json")
	require.NoError(t, err)

	sink := NewRedisSink(client, 10)
	require.NoError(t, sink.Write(context.Background(), sampleRecord()))

	got, err := sink.Recent(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

// ==========================
// Elasticsearch
// ==========================

func newTestES(t *testing.T, handler http.HandlerFunc) *elasticsearch.Client {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		handler(w, r)
	}))
	t.Cleanup(server.Close)

	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{server.URL}})
	require.NoError(t, err)
	return client
}

func TestElasticsearchSink_Write(t *testing.T) {
	var gotPath, gotMethod string
	var gotDoc models.CommandRecord

	client := newTestES(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotMethod = r.Method
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotDoc)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"result":"created"}`))
	})

	rec := sampleRecord()
	require.NoError(t, NewElasticsearchSink(client, "whatsapp-commands").Write(context.Background(), rec))

	assert.Equal(t, http.MethodPut, gotMethod)
	assert.Equal(t, "/whatsapp-commands/_doc/"+rec.ID, gotPath)
	assert.Equal(t, rec.Body, gotDoc.Body)
}

func TestElasticsearchSink_ErrorStatus(t *testing.T) {
	client := newTestES(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":"unavailable"}`))
	})

	err := NewElasticsearchSink(client, "idx").Write(context.Background(), sampleRecord())
	require.Error(t, err)
}

// ==========================
// Wiring
// ==========================

func TestLog_ListerPrefersFirstListingSink(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	redisSink := NewRedisSink(client, 10)
	l := NewLog(logger.NewNoOpLogger(), time.Second, &memorySink{name: "mem"}, redisSink)

	l.Record(context.Background(), successOutcome())
	require.NoError(t, l.Close(context.Background()))

	lister, ok := l.Lister()
	require.True(t, ok)
	got, err := lister.Recent(context.Background(), 5)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}
