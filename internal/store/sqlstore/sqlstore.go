// Package sqlstore persists the tree in a relational table, one row per
// leaf keyed by its full path.
package sqlstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/railzwaylabs/roomledger/internal/store/domain"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Node is one stored leaf.
type Node struct {
	Path      string         `gorm:"primaryKey;size:512"`
	Value     datatypes.JSON `gorm:"not null"`
	UpdatedAt time.Time      `gorm:"not null"`
}

func (Node) TableName() string { return "store_nodes" }

var errGuardTaken = errors.New("guard_taken")

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// AutoMigrate creates the node table for dialects without a versioned
// migration (sqlite, mysql).
func (s *Store) AutoMigrate(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(&Node{})
}

func (s *Store) Read(ctx context.Context, path string) (domain.Snapshot, error) {
	segments, err := domain.SplitPath(path)
	if err != nil {
		return domain.Snapshot{}, err
	}
	snap, err := load(s.db.WithContext(ctx), domain.JoinPath(segments...))
	if err != nil && !errors.Is(err, domain.ErrUnavailable) {
		return domain.Snapshot{}, unavailable(ctx, err)
	}
	return snap, err
}

// load assembles the subtree at p from its leaf rows.
func load(q *gorm.DB, p string) (domain.Snapshot, error) {
	var rows []Node
	if err := subtree(q, p).Order("path").Find(&rows).Error; err != nil {
		return domain.Snapshot{}, err
	}
	if len(rows) == 0 {
		return domain.NewSnapshot(p, nil), nil
	}

	leaves := make(map[string]any, len(rows))
	for _, row := range rows {
		var value any
		if err := json.Unmarshal(row.Value, &value); err != nil {
			return domain.Snapshot{}, fmt.Errorf("%w: corrupt leaf %s: %v", domain.ErrUnavailable, row.Path, err)
		}
		if row.Path == p {
			return domain.NewSnapshot(p, value), nil
		}
		leaves[row.Path] = value
	}
	return domain.NewSnapshot(p, domain.Expand(p, leaves)), nil
}

func (s *Store) Shallow(ctx context.Context, path string) ([]string, error) {
	segments, err := domain.SplitPath(path)
	if err != nil {
		return nil, err
	}
	p := domain.JoinPath(segments...)

	var paths []string
	if err := subtree(s.db.WithContext(ctx).Model(&Node{}), p).Pluck("path", &paths).Error; err != nil {
		return nil, unavailable(ctx, err)
	}
	return domain.ChildKeys(p, paths), nil
}

func (s *Store) Write(ctx context.Context, path string, value any) error {
	p, segments, err := domain.NodePath(path)
	if err != nil {
		return err
	}
	normalized, err := domain.Normalize(value)
	if err != nil {
		return err
	}
	_, err = s.apply(ctx, []domain.Update{{Path: p, Segments: segments, Value: normalized}}, nil)
	return err
}

func (s *Store) Merge(ctx context.Context, path string, fields map[string]any) error {
	_, segments, err := domain.NodePath(path)
	if err != nil {
		return err
	}
	updates, err := domain.MergeUpdates(segments, fields)
	if err != nil {
		return err
	}
	if len(updates) == 0 {
		return nil
	}
	_, err = s.apply(ctx, updates, nil)
	return err
}

func (s *Store) Remove(ctx context.Context, path string) error {
	return s.Write(ctx, path, nil)
}

func (s *Store) CreateIfAbsent(ctx context.Context, path string, value any) (bool, error) {
	return s.ReplaceIf(ctx, path, value, domain.Absent)
}

func (s *Store) ReplaceIf(ctx context.Context, path string, value any, allow func(domain.Snapshot) bool) (bool, error) {
	p, segments, err := domain.NodePath(path)
	if err != nil {
		return false, err
	}
	normalized, err := domain.Normalize(value)
	if err != nil {
		return false, err
	}
	if normalized == nil {
		return false, domain.ErrInvalidValue
	}
	return s.apply(ctx, []domain.Update{{Path: p, Segments: segments, Value: normalized}}, &condition{path: p, allow: allow})
}

type condition struct {
	path  string
	allow func(domain.Snapshot) bool
}

// guard serializes conditional writers of one path for the rest of tx.
// Postgres row locks miss rows a concurrent writer inserts, so it takes a
// transaction lock on the path instead. SQLite serializes writers itself.
func guard(tx *gorm.DB, path string) (*gorm.DB, error) {
	switch tx.Dialector.Name() {
	case DriverSQLite:
		return tx, nil
	case DriverPostgres:
		if err := tx.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", "node:"+path).Error; err != nil {
			return nil, err
		}
		return tx, nil
	default:
		return tx.Clauses(clause.Locking{Strength: "UPDATE"}), nil
	}
}

func (s *Store) apply(ctx context.Context, updates []domain.Update, cond *condition) (bool, error) {
	plan := domain.PlanLeaves(updates)
	now := time.Now().UTC()
	rows := make([]Node, 0, len(plan.Put))
	for leaf, v := range plan.Put {
		raw, err := json.Marshal(v)
		if err != nil {
			return false, fmt.Errorf("%w: %v", domain.ErrInvalidValue, err)
		}
		rows = append(rows, Node{Path: leaf, Value: datatypes.JSON(raw), UpdatedAt: now})
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if cond != nil {
			q, err := guard(tx, cond.path)
			if err != nil {
				return err
			}
			current, err := load(q, cond.path)
			if err != nil {
				return err
			}
			if !cond.allow(current) {
				return errGuardTaken
			}
		}

		for _, node := range plan.Clear {
			if err := subtree(tx, node).Delete(&Node{}).Error; err != nil {
				return err
			}
		}
		if len(plan.Drop) > 0 {
			if err := tx.Where("path IN ?", plan.Drop).Delete(&Node{}).Error; err != nil {
				return err
			}
		}
		if len(rows) == 0 {
			return nil
		}

		if cond != nil {
			// A concurrent creator commits first and our conflicting rows are
			// skipped; roll back rather than leave a partial record.
			res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected != int64(len(rows)) {
				return errGuardTaken
			}
			return nil
		}
		return tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&rows).Error
	})
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, errGuardTaken):
		return false, nil
	default:
		return false, unavailable(ctx, err)
	}
}

// subtree scopes q to the node at path and its descendants. The root scopes
// to everything.
func subtree(q *gorm.DB, path string) *gorm.DB {
	if path == "" {
		return q.Where("1 = 1")
	}
	return q.Where("path = ? OR (path >= ? AND path < ?)",
		path, path+domain.Separator, domain.SubtreeUpperBound(path))
}

func unavailable(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return fmt.Errorf("%w: %v", domain.ErrUnavailable, err)
}
