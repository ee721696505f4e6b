package repository

import (
	"context"
	"database/sql"

	"drclean-workers/internal/models"
)

func (p *Postgres) ListTeamMembers(ctx context.Context) ([]models.TeamMember, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, name, email, phone, position, hourly_rate, is_active
		FROM team_members ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []models.TeamMember
	for rows.Next() {
		var (
			m                      models.TeamMember
			email, phone, position sql.NullString
			rate                   sql.NullFloat64
			active                 sql.NullBool
		)
		if err := rows.Scan(&m.ID, &m.Name, &email, &phone, &position, &rate, &active); err != nil {
			return nil, err
		}
		m.Email = email.String
		m.Phone = phone.String
		m.Position = position.String
		m.HourlyRate = rate.Float64
		m.IsActive = active.Bool
		members = append(members, m)
	}
	return members, rows.Err()
}
