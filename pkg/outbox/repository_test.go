package outbox

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/replyflow/replyflow-backend/pkg/db/models"
	"github.com/replyflow/replyflow-backend/pkg/enums"
)

// outboxRow mirrors models.OutboxEvent without the postgres uuid default and
// enum column types, which sqlite cannot express.
type outboxRow struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey"`
	EventType     string          `gorm:"column:event_type;not null"`
	AggregateType string          `gorm:"column:aggregate_type;not null"`
	AggregateID   uuid.UUID       `gorm:"column:aggregate_id;type:uuid;not null"`
	Payload       json.RawMessage `gorm:"column:payload;not null"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime"`
	PublishedAt   *time.Time      `gorm:"column:published_at"`
	AttemptCount  int             `gorm:"column:attempt_count;not null;default:0"`
	LastError     *string         `gorm:"column:last_error"`
}

func (outboxRow) TableName() string { return "outbox_events" }

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&outboxRow{}))
	return conn
}

func testEvent(aggregateID uuid.UUID) models.OutboxEvent {
	return models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventReplySent,
		AggregateType: enums.AggregateMessage,
		AggregateID:   aggregateID,
		Payload:       json.RawMessage(`{}`),
	}
}

func TestRepositoryExistsTx(t *testing.T) {
	conn := newTestDB(t)
	repo := NewRepository(conn)
	aggregateID := uuid.New()

	found, err := repo.ExistsTx(conn, enums.EventReplySent, enums.AggregateMessage, aggregateID)
	require.NoError(t, err)
	require.False(t, found)

	require.NoError(t, repo.Insert(conn, testEvent(aggregateID)))

	found, err = repo.ExistsTx(conn, enums.EventReplySent, enums.AggregateMessage, aggregateID)
	require.NoError(t, err)
	require.True(t, found)

	found, err = repo.ExistsTx(conn, enums.EventReplySuppressed, enums.AggregateMessage, aggregateID)
	require.NoError(t, err)
	require.False(t, found)
}

func TestRepositoryExistsTxIgnoresPublished(t *testing.T) {
	conn := newTestDB(t)
	repo := NewRepository(conn)
	event := testEvent(uuid.New())

	require.NoError(t, repo.Insert(conn, event))
	require.NoError(t, repo.MarkPublishedTx(conn, event.ID))

	found, err := repo.ExistsTx(conn, event.EventType, event.AggregateType, event.AggregateID)
	require.NoError(t, err)
	require.False(t, found)
}

func TestRepositoryMarkPublishedTxRetiresRow(t *testing.T) {
	conn := newTestDB(t)
	repo := NewRepository(conn)
	event := testEvent(uuid.New())

	require.NoError(t, repo.Insert(conn, event))
	require.NoError(t, repo.MarkPublishedTx(conn, event.ID))

	rows, err := repo.FetchUnpublished(10)
	require.NoError(t, err)
	require.Empty(t, rows)
}

func TestRepositoryMarkFailedTxIncrementsAttempts(t *testing.T) {
	conn := newTestDB(t)
	repo := NewRepository(conn)
	event := testEvent(uuid.New())

	require.NoError(t, repo.Insert(conn, event))
	require.NoError(t, repo.MarkFailedTx(conn, event.ID, errors.New("topic unavailable")))
	require.NoError(t, repo.MarkFailedTx(conn, event.ID, errors.New("topic unavailable")))

	var row outboxRow
	require.NoError(t, conn.Where("id = ?", event.ID).First(&row).Error)
	require.Equal(t, 2, row.AttemptCount)
	require.NotNil(t, row.LastError)
	require.Equal(t, "topic unavailable", *row.LastError)
	require.Nil(t, row.PublishedAt)
}

func TestRepositoryTxRequired(t *testing.T) {
	repo := NewRepository(newTestDB(t))

	require.Error(t, repo.Insert(nil, testEvent(uuid.New())))
	_, err := repo.ExistsTx(nil, enums.EventReplySent, enums.AggregateMessage, uuid.New())
	require.Error(t, err)
	_, err = repo.FetchUnpublishedForPublish(nil, 10, 5)
	require.Error(t, err)
	require.Error(t, repo.MarkPublishedTx(nil, uuid.New()))
	require.Error(t, repo.MarkFailedTx(nil, uuid.New(), errors.New("x")))
	require.Error(t, repo.MarkTerminalTx(nil, uuid.New(), errors.New("x"), 5))
}
