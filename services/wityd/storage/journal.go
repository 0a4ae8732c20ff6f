package storage

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"gorm.io/gorm"
	"lukechampine.com/blake3"

	"wity/core/events"
	telemetry "wity/observability/otel"
)

var tracer = telemetry.Tracer("wityd/storage")

const (
	subscriberBuffer = 64
	maxBacklog       = 1000
)

// ErrChainBroken reports a journal entry whose hash does not match its content.
var ErrChainBroken = errors.New("journal: hash chain broken")

// Journal is an append-only, hash-chained record of committed economy events.
// It implements events.Emitter and fans appended entries out to subscribers.
type Journal struct {
	store  *Storage
	logger *slog.Logger

	mu          sync.Mutex
	subscribers map[uint64]chan JournalEntry
	nextID      uint64
}

// NewJournal wraps store. A nil logger falls back to slog.Default.
func NewJournal(store *Storage, logger *slog.Logger) *Journal {
	if logger == nil {
		logger = slog.Default()
	}
	return &Journal{store: store, logger: logger, subscribers: make(map[uint64]chan JournalEntry)}
}

// Emit implements events.Emitter. Append failures are logged since committed
// state cannot be rolled back from here.
func (j *Journal) Emit(e events.Event) {
	if j == nil || e == nil {
		return
	}
	evt := e.Event()
	if evt == nil {
		return
	}
	if _, err := j.Append(context.Background(), evt.Type, evt.Attributes); err != nil {
		j.logger.Error("journal append failed", slog.String("type", evt.Type), slog.Any("error", err))
	}
}

// Append records one event and notifies subscribers.
func (j *Journal) Append(ctx context.Context, eventType string, attributes map[string]string) (entry JournalEntry, err error) {
	ctx, span := tracer.Start(ctx, "journal.append")
	span.SetAttributes(attribute.String("event.type", eventType))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()
	if attributes == nil {
		attributes = map[string]string{}
	}
	attrs, err := json.Marshal(attributes)
	if err != nil {
		return JournalEntry{}, fmt.Errorf("journal: encode attributes: %w", err)
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	entry = JournalEntry{
		ID:         uuid.NewString(),
		Type:       eventType,
		Attributes: string(attrs),
		RecordedAt: j.store.now().UTC().Truncate(time.Microsecond),
	}
	err = j.store.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var last JournalEntry
		res := tx.Order("seq DESC").Limit(1).Find(&last)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			entry.PrevHash = last.Hash
		}
		entry.Hash = chainHash(entry)
		return tx.Create(&entry).Error
	})
	if err != nil {
		return JournalEntry{}, fmt.Errorf("journal: append: %w", err)
	}
	for id, ch := range j.subscribers {
		select {
		case ch <- entry:
		default:
			// slow consumer
			close(ch)
			delete(j.subscribers, id)
		}
	}
	return entry, nil
}

// Entries returns up to limit entries with Seq greater than after.
func (j *Journal) Entries(ctx context.Context, after uint64, limit int) ([]JournalEntry, error) {
	if limit <= 0 || limit > maxBacklog {
		limit = maxBacklog
	}
	var out []JournalEntry
	err := j.store.db.WithContext(ctx).Where("seq > ?", after).Order("seq ASC").Limit(limit).Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("journal: list: %w", err)
	}
	return out, nil
}

// Subscribe returns every entry after the cursor and a channel of subsequent
// entries. Appends are held off while the backlog is read, so the live channel
// starts right after the last backlog entry. The channel is closed when the subscriber falls behind or cancel
// is called.
func (j *Journal) Subscribe(ctx context.Context, after uint64) ([]JournalEntry, <-chan JournalEntry, func(), error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	var backlog []JournalEntry
	for {
		page, err := j.Entries(ctx, after, maxBacklog)
		if err != nil {
			return nil, nil, nil, err
		}
		backlog = append(backlog, page...)
		if len(page) < maxBacklog {
			break
		}
		after = page[len(page)-1].Seq
	}
	ch := make(chan JournalEntry, subscriberBuffer)
	id := j.nextID
	j.nextID++
	j.subscribers[id] = ch
	var once sync.Once
	cancel := func() {
		once.Do(func() {
			j.mu.Lock()
			defer j.mu.Unlock()
			if existing, ok := j.subscribers[id]; ok {
				close(existing)
				delete(j.subscribers, id)
			}
		})
	}
	return backlog, ch, cancel, nil
}

// Verify walks the whole journal and recomputes the hash chain.
func (j *Journal) Verify(ctx context.Context) (int, error) {
	var (
		prev    string
		checked int
		after   uint64
	)
	for {
		batch, err := j.Entries(ctx, after, maxBacklog)
		if err != nil {
			return checked, err
		}
		if len(batch) == 0 {
			return checked, nil
		}
		for _, entry := range batch {
			if entry.PrevHash != prev || chainHash(entry) != entry.Hash {
				return checked, fmt.Errorf("%w at seq %d", ErrChainBroken, entry.Seq)
			}
			prev = entry.Hash
			after = entry.Seq
			checked++
		}
	}
}

func chainHash(entry JournalEntry) string {
	var buf bytes.Buffer
	writeField(&buf, []byte(entry.PrevHash))
	writeField(&buf, []byte(entry.ID))
	writeField(&buf, []byte(entry.Type))
	writeField(&buf, []byte(entry.Attributes))
	var ts [8]byte
	binary.BigEndian.PutUint64(ts[:], uint64(entry.RecordedAt.UnixMicro()))
	buf.Write(ts[:])
	sum := blake3.Sum256(buf.Bytes())
	return hex.EncodeToString(sum[:])
}

func writeField(buf *bytes.Buffer, data []byte) {
	var length [4]byte
	binary.BigEndian.PutUint32(length[:], uint32(len(data)))
	buf.Write(length[:])
	buf.Write(data)
}

// DecodeAttributes parses the stored attribute map.
func (e JournalEntry) DecodeAttributes() (map[string]string, error) {
	out := map[string]string{}
	if e.Attributes == "" {
		return out, nil
	}
	if err := json.Unmarshal([]byte(e.Attributes), &out); err != nil {
		return nil, err
	}
	return out, nil
}
