package roster

import (
	"context"
	"database/sql"
	"time"

	"osprey/internal/constants"
	"osprey/internal/logger"
	pkgerrors "osprey/pkg/errors"
	"osprey/pkg/metrics"
)

const selectContactsQuery = `
	SELECT id, user_id, name,
	       COALESCE(email, ''),
	       COALESCE(company, ''),
	       COALESCE(phone, ''),
	       COALESCE(domain, '')
	FROM contacts
	WHERE user_id = $1
	ORDER BY name, id`

// DatabaseProvider reads the roster from the synced contacts table.
type DatabaseProvider struct {
	db     *sql.DB
	logger logger.Logger
}

func NewDatabaseProvider(db *sql.DB, log logger.Logger) *DatabaseProvider {
	return &DatabaseProvider{
		db:     db,
		logger: log,
	}
}

func (p *DatabaseProvider) Name() string {
	return constants.ProviderNameDatabase
}

func (p *DatabaseProvider) Fetch(ctx context.Context, userID string) ([]Contact, error) {
	start := time.Now()

	rows, err := p.db.QueryContext(ctx, selectContactsQuery, userID)
	if err != nil {
		metrics.IncRosterProviderRequest(p.Name(), "error")
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}
	defer rows.Close()

	var contacts []Contact
	for rows.Next() {
		var c Contact
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &c.Email, &c.Company, &c.Phone, &c.Domain); err != nil {
			metrics.IncRosterProviderRequest(p.Name(), "error")
			return nil, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
		}
		contacts = append(contacts, c)
	}
	if err := rows.Err(); err != nil {
		metrics.IncRosterProviderRequest(p.Name(), "error")
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}

	metrics.IncRosterProviderRequest(p.Name(), "success")
	metrics.ObserveRosterProviderDuration(p.Name(), time.Since(start))

	p.logger.Debugw("Roster fetched from database",
		"user_id", userID,
		"contact_count", len(contacts),
	)
	return contacts, nil
}
