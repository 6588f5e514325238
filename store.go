package simlabel

import (
	"context"
	"database/sql"
	_ "embed"

	"github.com/pkg/errors"
	_ "modernc.org/sqlite"
)

// store_schema.sql creates the frames and objects tables if they do not exist.
//
//go:embed store_schema.sql
var storeSchemaSQL string

// Store keeps frame annotations in an SQLite database.
type Store struct {
	*sql.DB
}

// OpenStore opens or creates the database at path. Use ":memory:" for a private in-memory store.
func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open annotation store %q", path)
	}
	// A single connection keeps in-memory databases alive and serialises writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to enable foreign keys")
	}
	if _, err := db.Exec(storeSchemaSQL); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to initialise the annotation store schema")
	}

	logger.WithField("path", path).Debug("Annotation store opened")
	return &Store{db}, nil
}

// SaveFrame stores frame, replacing any previous version of the same frame.
func (s *Store) SaveFrame(ctx context.Context, frame FrameAnnotation) (err error) {
	tx, err := s.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM objects WHERE frame_id = ?`, frame.FrameID); err != nil {
		return errors.Wrapf(err, "failed to clear frame %d", frame.FrameID)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO frames (frame_id, sequence_id, timestamp, image_path)
		VALUES (?, ?, ?, ?)
	`, frame.FrameID, frame.SequenceID, frame.Timestamp, frame.ImagePath)
	if err != nil {
		return errors.Wrapf(err, "failed to insert frame %d", frame.FrameID)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO objects (
			frame_id, position, actor_id, class, semantic_tag, blueprint_id,
			velocity_x, velocity_y, velocity_z, distance,
			center_x, center_y, center_z, length, width, height, yaw, projection,
			has_bbox_2d, xmin, ymin, xmax, ymax, light_state
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return errors.Wrap(err, "failed to prepare object insert")
	}
	defer stmt.Close()

	for i, o := range frame.Objects {
		projection := o.Box3D.Projection
		if projection == nil {
			projection = []Segment{}
		}
		enc, err := json.MarshalToString(projection)
		if err != nil {
			return errors.Wrapf(err, "failed to encode projection of actor %d", o.ID)
		}

		var hasBox bool
		var xmin, ymin, xmax, ymax sql.NullInt64
		if b := o.Box2D; b != nil {
			hasBox = true
			xmin = sql.NullInt64{Int64: int64(b.XMin), Valid: true}
			ymin = sql.NullInt64{Int64: int64(b.YMin), Valid: true}
			xmax = sql.NullInt64{Int64: int64(b.XMax), Valid: true}
			ymax = sql.NullInt64{Int64: int64(b.YMax), Valid: true}
		}

		_, err = stmt.ExecContext(ctx,
			frame.FrameID, i, o.ID, o.Class, int(o.Tag), o.TypeID,
			o.Velocity.X, o.Velocity.Y, o.Velocity.Z, o.Distance,
			o.Box3D.Center.X, o.Box3D.Center.Y, o.Box3D.Center.Z,
			o.Box3D.Dimensions.Length, o.Box3D.Dimensions.Width, o.Box3D.Dimensions.Height,
			o.Box3D.Yaw, enc,
			hasBox, xmin, ymin, xmax, ymax, uint32(o.LightState))
		if err != nil {
			return errors.Wrapf(err, "failed to insert actor %d of frame %d", o.ID, frame.FrameID)
		}
	}

	if err = tx.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit frame")
	}
	return nil
}

// LoadFrame reads the frame with the given id. It returns sql.ErrNoRows if there is none.
func (s *Store) LoadFrame(ctx context.Context, frameID uint64) (FrameAnnotation, error) {
	frame := FrameAnnotation{FrameID: frameID}
	err := s.QueryRowContext(ctx,
		`SELECT sequence_id, timestamp, image_path FROM frames WHERE frame_id = ?`, frameID,
	).Scan(&frame.SequenceID, &frame.Timestamp, &frame.ImagePath)
	if err != nil {
		return FrameAnnotation{}, errors.Wrapf(err, "failed to load frame %d", frameID)
	}

	rows, err := s.QueryContext(ctx, `
		SELECT actor_id, class, semantic_tag, blueprint_id,
			velocity_x, velocity_y, velocity_z, distance,
			center_x, center_y, center_z, length, width, height, yaw, projection,
			has_bbox_2d, xmin, ymin, xmax, ymax, light_state
		FROM objects
		WHERE frame_id = ?
		ORDER BY position
	`, frameID)
	if err != nil {
		return FrameAnnotation{}, errors.Wrapf(err, "failed to query objects of frame %d", frameID)
	}
	defer rows.Close()

	frame.Objects = []ObjectAnnotation{}
	for rows.Next() {
		var (
			o                      ObjectAnnotation
			tag                    int
			projection             string
			hasBox                 bool
			xmin, ymin, xmax, ymax sql.NullInt64
			lights                 uint32
		)
		err := rows.Scan(&o.ID, &o.Class, &tag, &o.TypeID,
			&o.Velocity.X, &o.Velocity.Y, &o.Velocity.Z, &o.Distance,
			&o.Box3D.Center.X, &o.Box3D.Center.Y, &o.Box3D.Center.Z,
			&o.Box3D.Dimensions.Length, &o.Box3D.Dimensions.Width, &o.Box3D.Dimensions.Height,
			&o.Box3D.Yaw, &projection,
			&hasBox, &xmin, &ymin, &xmax, &ymax, &lights)
		if err != nil {
			return FrameAnnotation{}, errors.Wrap(err, "failed to scan object")
		}

		o.Tag = SemanticTag(tag)
		o.LightState = LightState(lights)
		if err := json.UnmarshalFromString(projection, &o.Box3D.Projection); err != nil {
			return FrameAnnotation{}, errors.Wrapf(err, "invalid projection of actor %d", o.ID)
		}
		if hasBox {
			o.Box2D = &Box2D{
				XMin:  int(xmin.Int64),
				YMin:  int(ymin.Int64),
				XMax:  int(xmax.Int64),
				YMax:  int(ymax.Int64),
				Label: o.Tag,
			}
		}
		frame.Objects = append(frame.Objects, o)
	}
	if err := rows.Err(); err != nil {
		return FrameAnnotation{}, errors.Wrapf(err, "failed to read objects of frame %d", frameID)
	}

	return frame, nil
}

// CountObjects returns the number of stored objects of class, or of all classes if class is empty.
func (s *Store) CountObjects(ctx context.Context, class string) (int, error) {
	var n int
	err := s.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM objects WHERE ? = '' OR class = ?`, class, class,
	).Scan(&n)
	if err != nil {
		return 0, errors.Wrap(err, "failed to count objects")
	}
	return n, nil
}

// FrameIDs lists the stored frame ids in ascending order.
func (s *Store) FrameIDs(ctx context.Context) ([]uint64, error) {
	rows, err := s.QueryContext(ctx, `SELECT frame_id FROM frames ORDER BY frame_id`)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list frames")
	}
	defer rows.Close()

	var ids []uint64
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, errors.Wrap(err, "failed to scan frame id")
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
