package orm

import (
	"context"
	"fmt"
	"reflect"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/shashiranjanraj/grocerylist/pkg/metrics"
)

// Manager queues writes and applies them together.
type Manager interface {
	// Persist schedules an insert, or an update when entity has a primary
	// key.
	Persist(entity interface{})
	// Remove schedules the deletion of entity.
	Remove(entity interface{})
	// Flush applies every scheduled write.
	Flush(ctx context.Context) error
}

type opKind int

const (
	opPersist opKind = iota
	opRemove
)

type op struct {
	kind   opKind
	entity interface{}
}

// Session is a GORM-backed unit of work. Flush runs the queued writes in
// one transaction, in the order they were queued; nothing is written
// before Flush. Associations are never cascaded. A Session belongs to one
// request.
type Session struct {
	db  *gorm.DB
	ops []op
}

var _ Manager = (*Session)(nil)

func NewSession(db *gorm.DB) *Session {
	return &Session{db: db}
}

func (s *Session) Persist(entity interface{}) {
	s.ops = append(s.ops, op{kind: opPersist, entity: entity})
}

func (s *Session) Remove(entity interface{}) {
	s.ops = append(s.ops, op{kind: opRemove, entity: entity})
}

// Pending is the number of queued writes.
func (s *Session) Pending() int { return len(s.ops) }

// Flush commits the queue. The queue is emptied whether or not the
// transaction commits.
func (s *Session) Flush(ctx context.Context) (err error) {
	if len(s.ops) == 0 {
		return nil
	}
	ops := s.ops
	s.ops = nil

	defer metrics.ObserveFlush(time.Now(), &err)

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, o := range ops {
			switch o.kind {
			case opPersist:
				if err := persist(ctx, tx, o.entity); err != nil {
					return fmt.Errorf("orm: persist %T: %w", o.entity, err)
				}
			case opRemove:
				if err := tx.Delete(o.entity).Error; err != nil {
					return fmt.Errorf("orm: remove %T: %w", o.entity, err)
				}
			}
		}
		return nil
	})
}

// persist inserts entities without a primary key and updates the rest.
// An update that matches no live row is ErrNotFound, never an insert, so
// a row deleted since it was loaded stays deleted.
func persist(ctx context.Context, tx *gorm.DB, entity interface{}) error {
	stored, err := hasPrimaryKey(ctx, tx, entity)
	if err != nil {
		return err
	}
	if !stored {
		return tx.Omit(clause.Associations).Create(entity).Error
	}

	res := tx.Model(entity).Select("*").Omit(clause.Associations).Updates(entity)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func hasPrimaryKey(ctx context.Context, tx *gorm.DB, entity interface{}) (bool, error) {
	stmt := &gorm.Statement{DB: tx}
	if err := stmt.Parse(entity); err != nil {
		return false, err
	}
	pk := stmt.Schema.PrioritizedPrimaryField
	if pk == nil {
		return false, nil
	}
	_, zero := pk.ValueOf(ctx, reflect.ValueOf(entity))
	return !zero, nil
}
