package repo

import (
	"encoding/json"
	"log"
	"time"

	"chatdesk-backend/internal/libraries"
	"chatdesk-backend/internal/models"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Notifier records change events in the change log and publishes them on the feed.
// A nil Notifier drops events.
type Notifier struct {
	db        *gorm.DB
	publisher libraries.Publisher
}

func NewNotifier(db *gorm.DB, publisher libraries.Publisher) *Notifier {
	return &Notifier{db: db, publisher: publisher}
}

// change is an event waiting for its transaction to commit
type change struct {
	table  string
	typ    libraries.EventType
	newRow interface{}
	oldRow interface{}
}

func (n *Notifier) Notify(table string, typ libraries.EventType, newRow, oldRow interface{}) {
	n.flush([]change{{table: table, typ: typ, newRow: newRow, oldRow: oldRow}})
}

func (n *Notifier) flush(changes []change) {
	if n == nil {
		return
	}
	for _, c := range changes {
		ev := libraries.ChangeEvent{
			Table:           c.table,
			Type:            c.typ,
			CommitTimestamp: time.Now(),
		}
		if c.newRow != nil {
			ev.New = mustJSON(c.newRow)
		}
		if c.oldRow != nil {
			ev.Old = mustJSON(c.oldRow)
		}

		payload, _ := json.Marshal(map[string]json.RawMessage{"new": ev.New, "old": ev.Old})
		entry := &models.ChangeLog{
			Table:     ev.Table,
			EventType: string(ev.Type),
			Payload:   datatypes.JSON(payload),
			CreatedAt: ev.CommitTimestamp,
		}
		if err := n.db.Create(entry).Error; err != nil {
			log.Printf("[changes] failed to record %s on %s: %v", ev.Type, ev.Table, err)
		} else {
			ev.Seq = entry.Seq
		}

		if n.publisher != nil {
			n.publisher.Publish(ev)
		}
	}
}

func mustJSON(v interface{}) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		log.Printf("[changes] failed to marshal row %T: %v", v, err)
		return nil
	}
	return b
}

type ChangeLogRepo struct {
	db *gorm.DB
}

type ChangeLogRepoInterface interface {
	ListChanges(since uint64, table string, limit int) ([]models.ChangeLog, error)
}

func NewChangeLogRepository(db *gorm.DB) ChangeLogRepoInterface {
	return &ChangeLogRepo{db: db}
}

// ListChanges returns events with seq greater than since, oldest first
func (r *ChangeLogRepo) ListChanges(since uint64, table string, limit int) ([]models.ChangeLog, error) {
	if limit <= 0 {
		limit = 100
	}
	if limit > 1000 {
		limit = 1000
	}

	query := r.db.Model(&models.ChangeLog{}).Where("seq > ?", since)
	if table != "" {
		query = query.Where("table_name = ?", table)
	}

	var entries []models.ChangeLog
	err := query.Order("seq ASC").Limit(limit).Find(&entries).Error
	return entries, err
}
