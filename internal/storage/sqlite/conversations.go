package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sandevgo/recall/internal/config"
	"github.com/sandevgo/recall/internal/core"
	"github.com/sandevgo/recall/pkg/log"
)

// ConversationsRepo stores conversation turns with their embeddings.
// Similarity ranking is an exact scan using sqlite-vec distance functions
// over the rows that pass the user, channel and time filters.
type ConversationsRepo struct {
	db           *sql.DB
	distanceFunc string
	now          func() time.Time
}

func NewConversationsRepo(db *sql.DB, metric string) (*ConversationsRepo, error) {
	var fn string
	switch metric {
	case config.DistanceCosine:
		fn = "vec_distance_cosine"
	case config.DistanceL2:
		fn = "vec_distance_l2"
	default:
		return nil, fmt.Errorf("unsupported distance metric: %s", metric)
	}

	return &ConversationsRepo{
		db:           db,
		distanceFunc: fn,
		now:          time.Now,
	}, nil
}

func (r *ConversationsRepo) InsertTurn(ctx context.Context, userID, channelID string, payload core.TurnPayload, embedding []float32) (int64, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal payload: %w: %w", core.ErrStoreQueryFailed, err)
	}

	// nil binds as NULL so turns without an embedding never match a similarity query
	var vecArg any
	if len(embedding) > 0 {
		blob, err := serializeVector(embedding)
		if err != nil {
			return 0, fmt.Errorf("%w: %w", core.ErrStoreQueryFailed, err)
		}
		vecArg = blob
	}

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO conversations (user_id, channel_id, data, created_at, embedding) VALUES (?, ?, ?, ?, ?)`,
		userID, channelID, string(data), toMillis(r.now()), vecArg,
	)
	if err != nil {
		return 0, wrapErr("failed to insert turn", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, wrapErr("failed to read turn id", err)
	}
	return id, nil
}

func (r *ConversationsRepo) QueryRecent(ctx context.Context, q core.RecentQuery) ([]core.TurnRow, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT data, created_at, embedding FROM conversations WHERE user_id = ? AND created_at >= ?`)
	args := []any{q.UserID, toMillis(q.Since)}

	if q.ChannelID != "" {
		sb.WriteString(` AND channel_id = ?`)
		args = append(args, q.ChannelID)
	}

	sb.WriteString(` ORDER BY created_at ASC, id ASC LIMIT ?`)
	args = append(args, q.Limit)

	rows, err := r.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, wrapErr("failed to query recent turns", err)
	}
	defer rows.Close()

	var result []core.TurnRow
	for rows.Next() {
		var data string
		var createdAt int64
		var vecBlob []byte
		if err := rows.Scan(&data, &createdAt, &vecBlob); err != nil {
			return nil, wrapErr("failed to scan recent turn", err)
		}

		row, err := newTurnRow(data, createdAt)
		if err != nil {
			return nil, err
		}
		if row.Embedding, err = deserializeVector(vecBlob); err != nil {
			return nil, fmt.Errorf("%w: %w", core.ErrStoreQueryFailed, err)
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("failed to iterate recent turns", err)
	}

	log.FromCtx(ctx).Debug().Int("count", len(result)).Msg("loaded recent turns")
	return result, nil
}

func (r *ConversationsRepo) QuerySimilar(ctx context.Context, q core.SimilarQuery) ([]core.TurnRow, error) {
	vecBlob, err := serializeVector(q.Embedding)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrStoreQueryFailed, err)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, `SELECT data, created_at, %s(embedding, ?) AS distance FROM conversations WHERE user_id = ? AND created_at < ?`, r.distanceFunc)
	args := []any{vecBlob, q.UserID, toMillis(q.Before)}

	if q.ChannelID != "" {
		sb.WriteString(` AND channel_id = ?`)
		args = append(args, q.ChannelID)
	}

	// Turns stored without an embedding have a NULL distance and go last.
	sb.WriteString(` ORDER BY distance IS NULL, distance ASC LIMIT ?`)
	args = append(args, q.Limit)

	rows, err := r.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, wrapErr("failed to query similar turns", err)
	}
	defer rows.Close()

	var result []core.TurnRow
	for rows.Next() {
		var data string
		var createdAt int64
		var distance sql.NullFloat64
		if err := rows.Scan(&data, &createdAt, &distance); err != nil {
			return nil, wrapErr("failed to scan similar turn", err)
		}

		row, err := newTurnRow(data, createdAt)
		if err != nil {
			return nil, err
		}
		if distance.Valid {
			d := distance.Float64
			row.Distance = &d
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("failed to iterate similar turns", err)
	}

	log.FromCtx(ctx).Debug().Int("count", len(result)).Msg("loaded similar turns")
	return result, nil
}

// ListMessages returns the latest messages of a user, oldest first. Messages
// keep their order inside a turn and Limit counts messages, not turns.
func (r *ConversationsRepo) ListMessages(ctx context.Context, q core.HistoryQuery) ([]core.TurnMessage, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT data FROM conversations WHERE user_id = ?`)
	args := []any{q.UserID}

	if !q.Since.IsZero() {
		sb.WriteString(` AND created_at >= ?`)
		args = append(args, toMillis(q.Since))
	}
	if !q.Until.IsZero() {
		sb.WriteString(` AND created_at <= ?`)
		args = append(args, toMillis(q.Until))
	}

	// every turn holds at least one message, so Limit turns cover Limit messages
	sb.WriteString(` ORDER BY created_at DESC, id DESC`)
	if q.Limit > 0 {
		sb.WriteString(` LIMIT ?`)
		args = append(args, q.Limit)
	}

	rows, err := r.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, wrapErr("failed to query history", err)
	}
	defer rows.Close()

	var turns [][]core.TurnMessage
	total := 0
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, wrapErr("failed to scan history", err)
		}

		var payload core.TurnPayload
		if err := json.Unmarshal([]byte(data), &payload); err != nil {
			return nil, fmt.Errorf("failed to unmarshal payload: %w: %w", core.ErrStoreQueryFailed, err)
		}
		turns = append(turns, payload.Messages)
		total += len(payload.Messages)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("failed to iterate history", err)
	}

	if total == 0 {
		return nil, nil
	}

	messages := make([]core.TurnMessage, 0, total)
	for i := len(turns) - 1; i >= 0; i-- {
		messages = append(messages, turns[i]...)
	}
	if q.Limit > 0 && len(messages) > q.Limit {
		messages = messages[len(messages)-q.Limit:]
	}
	return messages, nil
}

func newTurnRow(data string, createdAt int64) (core.TurnRow, error) {
	var payload core.TurnPayload
	if err := json.Unmarshal([]byte(data), &payload); err != nil {
		return core.TurnRow{}, fmt.Errorf("failed to unmarshal payload: %w: %w", core.ErrStoreQueryFailed, err)
	}
	return core.TurnRow{
		Payload:   payload,
		CreatedAt: fromMillis(createdAt),
	}, nil
}

func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
