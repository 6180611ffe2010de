package citizens

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/nidkeeper/internal/common"
	"github.com/dmitrijs2005/nidkeeper/internal/dbx"
	"github.com/dmitrijs2005/nidkeeper/internal/models"
)

// PostgresRepository implements Repository for PostgreSQL.
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, c *models.Citizen) error {
	query :=
		`INSERT INTO citizens (nid, name, dob, gender, address, father_name, mother_name, blood_group, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := r.db.ExecContext(ctx, query,
		c.NID, c.Name, c.DOB, c.Gender, c.Address, c.FatherName, c.MotherName, c.BloodGroup,
		c.CreatedAt.Unix(), c.UpdatedAt.Unix())
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return common.ErrConflict
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, nid string) (*models.Citizen, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM citizens WHERE nid = $1`, nid)
	c, err := scanCitizen(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return c, nil
}

func (r *PostgresRepository) Update(ctx context.Context, c *models.Citizen) error {
	query :=
		`UPDATE citizens SET name = $1, dob = $2, gender = $3, address = $4, father_name = $5,
		 mother_name = $6, blood_group = $7, updated_at = $8
		 WHERE nid = $9`
	res, err := r.db.ExecContext(ctx, query,
		c.Name, c.DOB, c.Gender, c.Address, c.FatherName, c.MotherName, c.BloodGroup,
		c.UpdatedAt.Unix(), c.NID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return expectOneRow(res)
}

func (r *PostgresRepository) Delete(ctx context.Context, nid string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM citizens WHERE nid = $1`, nid)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return expectOneRow(res)
}

func (r *PostgresRepository) List(ctx context.Context) ([]models.Citizen, error) {
	return list(ctx, r.db, `SELECT `+selectColumns+` FROM citizens ORDER BY nid`)
}

func (r *PostgresRepository) Exists(ctx context.Context, nid string) (bool, error) {
	var ok bool
	if err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM citizens WHERE nid = $1)`, nid).Scan(&ok); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return ok, nil
}
