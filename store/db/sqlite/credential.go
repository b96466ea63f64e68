package sqlite

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/studyhallhq/studyhall/store"
)

func (d *DB) UpsertIntegrationCredential(ctx context.Context, upsert *store.IntegrationCredential) (*store.IntegrationCredential, error) {
	now := time.Now().Unix()
	if upsert.CreatedTs == 0 {
		upsert.CreatedTs = now
	}
	upsert.UpdatedTs = now

	stmt := `
		INSERT INTO integration_credential (user_id, kind, access_token, refresh_token, base_url, expires_ts, created_ts, updated_ts)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, kind) DO UPDATE SET
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			base_url = excluded.base_url,
			expires_ts = excluded.expires_ts,
			updated_ts = excluded.updated_ts
		RETURNING id`
	if err := d.db.QueryRowContext(ctx, stmt,
		upsert.UserID, upsert.Kind, upsert.AccessToken, upsert.RefreshToken,
		upsert.BaseURL, upsert.ExpiresTs, upsert.CreatedTs, upsert.UpdatedTs,
	).Scan(&upsert.ID); err != nil {
		return nil, errors.Wrap(err, "failed to upsert integration credential")
	}
	return upsert, nil
}

func (d *DB) ListIntegrationCredentials(ctx context.Context, find *store.FindIntegrationCredential) ([]*store.IntegrationCredential, error) {
	where, args := []string{"1 = 1"}, []any{}

	if find.UserID != nil {
		where, args = append(where, "user_id = ?"), append(args, *find.UserID)
	}
	if find.Kind != nil {
		where, args = append(where, "kind = ?"), append(args, *find.Kind)
	}

	query := `
		SELECT id, user_id, kind, access_token, refresh_token, base_url, expires_ts, created_ts, updated_ts
		FROM integration_credential
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY kind ASC`
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list integration credentials")
	}
	defer rows.Close()

	list := make([]*store.IntegrationCredential, 0)
	for rows.Next() {
		c := &store.IntegrationCredential{}
		if err := rows.Scan(&c.ID, &c.UserID, &c.Kind, &c.AccessToken, &c.RefreshToken,
			&c.BaseURL, &c.ExpiresTs, &c.CreatedTs, &c.UpdatedTs); err != nil {
			return nil, errors.Wrap(err, "failed to scan integration credential")
		}
		list = append(list, c)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate integration credentials")
	}
	return list, nil
}

func (d *DB) DeleteIntegrationCredential(ctx context.Context, delete *store.DeleteIntegrationCredential) error {
	stmt := "DELETE FROM integration_credential WHERE user_id = ? AND kind = ?"
	if _, err := d.db.ExecContext(ctx, stmt, delete.UserID, delete.Kind); err != nil {
		return errors.Wrap(err, "failed to delete integration credential")
	}
	return nil
}
